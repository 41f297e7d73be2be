// Package transcribe converts an uploaded audio artifact into transcript
// text. Real speech-to-text is out of scope; the placeholder implementation
// stands in for it.
package transcribe

import "context"

// Transcriber derives transcript text from an audio file on disk.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// PlaceholderText is the fixed transcript returned until a real
// speech-to-text backend is wired in.
const PlaceholderText = "Well, let me tell you about the winter of '78..."

// Placeholder is a Transcriber that returns a fixed transcript regardless
// of the audio content.
type Placeholder struct{}

func (Placeholder) Transcribe(_ context.Context, _ string) (string, error) {
	return PlaceholderText, nil
}
