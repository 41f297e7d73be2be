package profile

import (
	"errors"
	"testing"
)

func TestParseValidJSON(t *testing.T) {
	p, err := Parse(`{"title":"Winter Tale","personality_traits":["kind","funny"]}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Title != "Winter Tale" {
		t.Errorf("title = %q", p.Title)
	}
	if len(p.PersonalityTraits) != 2 || p.PersonalityTraits[0] != "kind" || p.PersonalityTraits[1] != "funny" {
		t.Errorf("traits = %v", p.PersonalityTraits)
	}
	if p.MemorableQuote != "" {
		t.Errorf("memorable_quote should default to empty, got %q", p.MemorableQuote)
	}
}

func TestParseFencedJSON(t *testing.T) {
	raw := "```json\n{\"title\":\"Fenced\",\"summary\":\"s\"}\n```"
	p, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Title != "Fenced" {
		t.Errorf("title = %q", p.Title)
	}
}

func TestParseMalformedStillNormalized(t *testing.T) {
	p, err := Parse("I am not JSON at all")
	if !errors.Is(err, ErrParseFailed) {
		t.Fatalf("expected ErrParseFailed, got %v", err)
	}
	if p.Title != DefaultTitle {
		t.Errorf("title = %q, want default", p.Title)
	}
	if len(p.PersonalityTraits) != 1 || p.PersonalityTraits[0] != DefaultTrait {
		t.Errorf("traits = %v, want [%s]", p.PersonalityTraits, DefaultTrait)
	}
}

func TestNormalizeFillsMissingFields(t *testing.T) {
	p := Profile{Summary: "only a summary"}
	p.Normalize()

	if p.Title != DefaultTitle {
		t.Errorf("title = %q", p.Title)
	}
	if len(p.PersonalityTraits) == 0 {
		t.Error("personality traits must never be empty")
	}
	if p.Summary != "only a summary" {
		t.Errorf("summary changed: %q", p.Summary)
	}
}

func TestNormalizeKeepsExistingFields(t *testing.T) {
	p := Profile{Title: "Kept", PersonalityTraits: []string{"wise"}}
	p.Normalize()

	if p.Title != "Kept" || p.PersonalityTraits[0] != "wise" {
		t.Errorf("normalize overwrote fields: %+v", p)
	}
}

func TestTraitList(t *testing.T) {
	p := Profile{PersonalityTraits: []string{"kind", "funny", "wise"}}
	if got := p.TraitList(); got != "kind, funny, wise" {
		t.Errorf("TraitList = %q", got)
	}
}

func TestFallbackIsValid(t *testing.T) {
	p := Fallback()
	if p.Title == "" || len(p.PersonalityTraits) == 0 || p.Summary == "" {
		t.Errorf("fallback profile incomplete: %+v", p)
	}
}
