// Package persona answers questions in the voice of a story's original
// teller. It retrieves relevant passages scoped to one story, assembles a
// role-conditioned prompt from the story's profile and the retrieved
// context, and invokes the generative model once per request.
package persona

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cfsage/memoria/internal/llm"
	"github.com/cfsage/memoria/internal/profile"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrGenerationFailed = errors.New("persona generation failed")
)

const (
	answerMaxTokens   = 512
	answerTemperature = 1.0
	retrievalTopK     = 1
)

// ContextSource retrieves passage texts scoped to one story's partition.
// The narrative store satisfies this.
type ContextSource interface {
	Query(ctx context.Context, storyID, question string, topK int) ([]string, error)
}

// Responder produces in-persona answers for a story.
type Responder struct {
	completer llm.Completer
	source    ContextSource
}

// NewResponder creates a persona responder over the given completer and
// context source.
func NewResponder(completer llm.Completer, source ContextSource) (*Responder, error) {
	if completer == nil {
		return nil, fmt.Errorf("%w: completer is required", ErrInvalidInput)
	}
	if source == nil {
		return nil, fmt.Errorf("%w: context source is required", ErrInvalidInput)
	}
	return &Responder{completer: completer, source: source}, nil
}

// Respond answers the question in the story persona's voice. A model
// failure surfaces as ErrGenerationFailed; fabricating a wrong in-persona
// answer is worse than failing visibly, so there is no fallback answer.
func (r *Responder) Respond(ctx context.Context, storyID, question string, prof profile.Profile) (string, error) {
	if storyID == "" {
		return "", fmt.Errorf("%w: story id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("%w: question is empty", ErrInvalidInput)
	}

	passages, err := r.source.Query(ctx, storyID, question, retrievalTopK)
	if err != nil {
		return "", fmt.Errorf("retrieve story context: %w", err)
	}

	context := strings.Join(passages, "\n")
	if context == "" {
		context = FallbackContext
	}

	var prompt string
	if wantsContinuation(question) {
		// Continuation ignores the question text entirely and just picks
		// up the narrative from the retrieved context.
		prompt = continuationPrompt(context)
	} else {
		prof.Normalize()
		prompt = chatPrompt(prof.TraitList(), context, question)
	}

	answer, err := r.completer.Complete(ctx, []llm.Message{llm.UserMessage(prompt)}, answerMaxTokens, answerTemperature)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	return answer, nil
}
