// Package deconstruct transforms a raw story transcript into a structured
// profile via a single extraction call to the generative model. By default
// the pipeline never propagates model failures: it substitutes a
// deterministic fallback profile so story processing always completes,
// trading fidelity for availability.
package deconstruct

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/cfsage/memoria/internal/llm"
	"github.com/cfsage/memoria/internal/profile"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrModelUnavailable = errors.New("extraction model unavailable")
)

const (
	extractionMaxTokens   = 1024
	extractionTemperature = 1.0
)

// Options configures pipeline behavior.
type Options struct {
	// StrictErrors surfaces model failures as ErrModelUnavailable instead
	// of masking them with the fallback profile.
	StrictErrors bool
}

// Pipeline extracts profiles from transcripts.
type Pipeline struct {
	completer llm.Completer
	logger    *log.Logger
	opts      Options
}

// New creates a deconstruction pipeline over the given completer.
func New(completer llm.Completer, logger *log.Logger, opts Options) *Pipeline {
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{completer: completer, logger: logger, opts: opts}
}

// Deconstruct derives a profile from the transcript. The returned profile is
// always structurally valid: required fields are present and the personality
// trait list is never empty. A model failure yields the fallback profile
// unless StrictErrors is set.
func (p *Pipeline) Deconstruct(ctx context.Context, transcript string) (profile.Profile, error) {
	if strings.TrimSpace(transcript) == "" {
		return profile.Profile{}, fmt.Errorf("%w: transcript is empty", ErrInvalidInput)
	}

	prompt := buildPrompt(transcript)

	raw, err := p.completer.Complete(ctx, []llm.Message{llm.UserMessage(prompt)}, extractionMaxTokens, extractionTemperature)
	if err != nil {
		if p.opts.StrictErrors {
			return profile.Profile{}, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
		}
		p.logger.Warn("extraction model call failed, using fallback profile", "error", err)
		return profile.Fallback(), nil
	}

	prof, err := profile.Parse(raw)
	if err != nil {
		// Keep whatever partial fields decoded; Parse already filled the
		// required defaults.
		p.logger.Warn("extraction response was not valid JSON, keeping partial fields", "error", err)
	}

	return prof, nil
}
