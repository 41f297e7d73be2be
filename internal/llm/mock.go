package llm

import "context"

// MockCompleter is a deterministic Completer implementation for testing.
type MockCompleter struct {
	// Response is the fixed text returned by Complete.
	Response string

	// Err, if set, is returned by Complete instead of a response.
	Err error

	// EchoPrompt makes Complete return the content of the last message,
	// which lets tests assert on assembled prompt text.
	EchoPrompt bool

	// LastMessages stores the most recent messages passed to Complete.
	LastMessages []Message
}

func (m *MockCompleter) Complete(_ context.Context, messages []Message, _ int, _ float64) (string, error) {
	m.LastMessages = messages

	if m.Err != nil {
		return "", m.Err
	}
	if m.EchoPrompt && len(messages) > 0 {
		return messages[len(messages)-1].Content, nil
	}
	return m.Response, nil
}
