package persona

import "fmt"

// FallbackContext replaces an empty retrieval result so the generative step
// never receives an empty context block; an empty block measurably increases
// hallucination risk.
const FallbackContext = "I don't recall that part."

const continuationTemplate = `You are a master storyteller. Continue the following story in the same style and voice, picking up where it left off. Be vivid, warm, and keep the tone consistent.

STORY SO FAR:
%s

Continue the story:`

// The "say you don't remember" line is mandatory: it is what suppresses
// fabrication when the answer is absent from the snippets.
const chatTemplate = `You are an AI persona of an elderly storyteller. Your personality is described as %s.
Your task is to answer the user's question based ONLY on the provided story snippets.
Do not make up information. If the answer is not in the snippets, say you don't remember that part of the story.
Speak warmly and in the first person.

STORY SNIPPETS:
"%s"

USER'S QUESTION:
"%s"`

func continuationPrompt(context string) string {
	return fmt.Sprintf(continuationTemplate, context)
}

func chatPrompt(personality, context, question string) string {
	return fmt.Sprintf(chatTemplate, personality, context, question)
}
