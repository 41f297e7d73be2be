package deconstruct

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/cfsage/memoria/internal/profile"
)

const promptTemplate = `You are a master cultural anthropologist and data extraction AI. Your task is to analyze a transcript of a spoken personal story and convert it into a structured JSON object. Your response must be only the raw JSON, with no markdown fences or other text.

The JSON object must validate against this schema:
%s

Now, analyze the following transcript and generate the JSON object.

Transcript:
"%s"`

// extractionSchema is the JSON schema for the profile record, reflected from
// the Go struct so the prompt and the parse target stay in lockstep.
var extractionSchema = mustSchemaJSON()

func mustSchemaJSON() string {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(&profile.Profile{})
	b, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		panic(fmt.Sprintf("reflect profile schema: %v", err))
	}
	return string(b)
}

func buildPrompt(transcript string) string {
	return fmt.Sprintf(promptTemplate, extractionSchema, transcript)
}
