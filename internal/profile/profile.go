// Package profile defines the structured narrative profile extracted from a
// story transcript, along with parsing, defaulting, and fallback helpers.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var ErrParseFailed = errors.New("profile parse failed")

const (
	// DefaultTitle is used when extraction yields no title.
	DefaultTitle = "Untitled Story"

	// DefaultTrait guarantees persona prompts never operate on an empty
	// trait set.
	DefaultTrait = "kind"
)

// CulturalReference explains a term a younger listener might not know.
type CulturalReference struct {
	Term        string `json:"term" jsonschema:"description=A specific term or phrase a young person might not know."`
	Explanation string `json:"explanation" jsonschema:"description=A simple, modern explanation of that term."`
}

// Profile is the deconstructed record of one story. Created once per story
// and immutable thereafter.
type Profile struct {
	Title             string              `json:"title" jsonschema:"description=A short, compelling title for the story."`
	Summary           string              `json:"summary" jsonschema:"description=A concise, one-paragraph summary of the story's main events."`
	Themes            []string            `json:"themes" jsonschema:"description=A list of 3-5 key themes identified in the story (e.g. 'Family', 'Childhood', 'Tradition', 'Humor')."`
	EmojiSummary      string              `json:"emoji_summary,omitempty" jsonschema:"description=A 3-5 emoji summary that captures the essence of the story."`
	UnderlyingValues  []string            `json:"underlying_values,omitempty" jsonschema:"description=A list of 3-5 core human values or lessons taught in the story."`
	PersonalityTraits []string            `json:"personality_traits" jsonschema:"description=A list of 3-5 adjectives describing the speaker's personality."`
	MemorableQuote    string              `json:"memorable_quote" jsonschema:"description=The single most memorable line from the story, verbatim."`
	CulturalReferences []CulturalReference `json:"cultural_references,omitempty" jsonschema:"description=Culturally or historically specific items that need explanation."`
	Humor             string              `json:"humor,omitempty" jsonschema:"description=A short description of the story's humor, if any."`
	Essence           string              `json:"essence,omitempty" jsonschema:"description=The story's essence in one sentence."`
}

// Normalize fills missing required fields with safe defaults so that every
// profile handed downstream is structurally valid.
func (p *Profile) Normalize() {
	if strings.TrimSpace(p.Title) == "" {
		p.Title = DefaultTitle
	}
	if len(p.PersonalityTraits) == 0 {
		p.PersonalityTraits = []string{DefaultTrait}
	}
}

// TraitList joins the personality traits for use in persona prompts.
func (p *Profile) TraitList() string {
	return strings.Join(p.PersonalityTraits, ", ")
}

// Parse decodes a model response into a Profile, tolerating markdown code
// fences around the JSON object. The returned profile is normalized even on
// error, so callers can keep whatever partial fields decoded.
func Parse(raw string) (Profile, error) {
	var p Profile

	cleaned := stripFences(raw)
	err := json.Unmarshal([]byte(cleaned), &p)
	p.Normalize()
	if err != nil {
		return p, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}
	return p, nil
}

// stripFences removes a surrounding markdown code fence if present, keeping
// only the fenced body.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// IsFallback reports whether this profile is the deterministic fallback
// substituted when the extraction model was unavailable.
func (p Profile) IsFallback() bool {
	return reflect.DeepEqual(p, Fallback())
}

// Fallback returns the fixed deterministic profile substituted when the
// extraction model is unavailable, so story processing always completes.
func Fallback() Profile {
	return Profile{
		Title:   "The Winter of '78",
		Summary: "A family gathers around the fireplace during a harsh winter, sharing laughter and warmth.",
		Themes:  []string{"Family", "Resilience", "Tradition", "Humor"},
		Humor:   "The story is sprinkled with light-hearted jokes about the cold and the family's quirky habits.",
		Essence: "Cherish togetherness and find joy even in tough times.",
		PersonalityTraits: []string{"kind", "funny", "wise"},
		MemorableQuote:    "And that's how we survived the blizzard—with love, laughter, and a lot of hot cocoa!",
	}
}
