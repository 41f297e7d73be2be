package persona

import "strings"

// continuationMarkers is the fixed vocabulary signalling that the user wants
// the story continued rather than a question answered. This is a coarse
// keyword heuristic, not a learned classifier; false positives and negatives
// are accepted at this fidelity.
var continuationMarkers = []string{
	"continue",
	"next",
	"more",
	"go on",
	"what happened after",
}

// Intent labels for classified questions.
const (
	IntentContinuation = "continuation"
	IntentQuestion     = "question"
)

// Intent classifies a question as a continuation request or a plain
// question.
func Intent(question string) string {
	if wantsContinuation(question) {
		return IntentContinuation
	}
	return IntentQuestion
}

// wantsContinuation reports whether the question asks to continue the story.
// Classification is a pure function of the marker vocabulary.
func wantsContinuation(question string) bool {
	q := strings.ToLower(question)
	for _, marker := range continuationMarkers {
		if strings.Contains(q, marker) {
			return true
		}
	}
	return false
}
