package translate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// parseTranslations
// ---------------------------------------------------------------------------

func TestParseTranslations_PlainArray(t *testing.T) {
	got, err := parseTranslations(`["egy", "kettő"]`)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if len(got) != 2 || got[0] != "egy" || got[1] != "kettő" {
		t.Errorf("got %v", got)
	}
}

func TestParseTranslations_MarkdownFence(t *testing.T) {
	raw := "```json\n[\"egy\", \"kettő\"]\n```"
	got, err := parseTranslations(raw)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %v", got)
	}

	// Bare fence without a language tag.
	got, err = parseTranslations("```\n[\"x\"]\n```")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if len(got) != 1 || got[0] != "x" {
		t.Errorf("got %v", got)
	}
}

func TestParseTranslations_ProseAroundArray(t *testing.T) {
	raw := `Here are your translations: ["one", "two"] Hope that helps!`
	got, err := parseTranslations(raw)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if len(got) != 2 || got[1] != "two" {
		t.Errorf("got %v", got)
	}
}

func TestParseTranslations_BracketsInsideStrings(t *testing.T) {
	raw := `["a [note]", "b"]`
	got, err := parseTranslations(raw)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if got[0] != "a [note]" {
		t.Errorf("got %v", got)
	}
}

func TestParseTranslations_NotAnArray(t *testing.T) {
	if _, err := parseTranslations("I cannot translate that."); err == nil {
		t.Fatal("expected error for a prose-only response")
	}
	if _, err := parseTranslations(`{"0": "x"}`); err == nil {
		t.Fatal("expected error for an object response")
	}
}

// ---------------------------------------------------------------------------
// PromptSet
// ---------------------------------------------------------------------------

func TestSystem_SubstitutesLanguages(t *testing.T) {
	ps := &PromptSet{}

	p := ps.System("hu", "", "direct", "general")
	if !strings.Contains(p, "to Hungarian") {
		t.Errorf("target language missing:\n%s", p)
	}
	if strings.Contains(p, "{{") {
		t.Errorf("unexpanded placeholder left in prompt:\n%s", p)
	}

	p = ps.System("hu", "en", "direct", "general")
	if !strings.Contains(p, "from English") {
		t.Errorf("source language missing:\n%s", p)
	}
}

func TestSystem_StyleAndTopic(t *testing.T) {
	ps := &PromptSet{}

	p := ps.System("de", "", "formal", "diving")
	if !strings.Contains(p, "formal, professional language") {
		t.Errorf("style instructions missing:\n%s", p)
	}
	if !strings.Contains(p, "SCUBA diving") {
		t.Errorf("topic instructions missing:\n%s", p)
	}

	// Unknown style falls back to direct; unknown topic adds nothing.
	p = ps.System("de", "", "nonexistent", "nonexistent")
	if !strings.Contains(p, "direct, clear, and concise") {
		t.Errorf("style fallback missing:\n%s", p)
	}
	if strings.Contains(p, "Topic Context") {
		t.Errorf("unknown topic injected instructions:\n%s", p)
	}
}

func TestSystem_CustomOverridesBuiltin(t *testing.T) {
	ps := &PromptSet{
		Styles: map[string]string{"formal": "Custom formal style."},
		Topics: map[string]string{"cooking": "Topic Context: recipes."},
	}

	p := ps.System("fr", "", "formal", "cooking")
	if !strings.Contains(p, "Custom formal style.") {
		t.Errorf("custom style not used:\n%s", p)
	}
	if !strings.Contains(p, "recipes") {
		t.Errorf("custom topic not used:\n%s", p)
	}
}

func TestStyleAndTopicNames(t *testing.T) {
	ps := &PromptSet{Topics: map[string]string{"cooking": "x"}}

	styles := ps.StyleNames()
	if len(styles) != 4 {
		t.Errorf("styles = %v, want the four built-ins", styles)
	}

	topics := ps.TopicNames()
	found := false
	for _, n := range topics {
		if n == "cooking" {
			found = true
		}
	}
	if !found {
		t.Errorf("topics = %v, custom topic missing", topics)
	}
	for i := 1; i < len(topics); i++ {
		if topics[i-1] >= topics[i] {
			t.Errorf("topics not sorted: %v", topics)
		}
	}
}

func TestLoadPromptsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	content := `styles:
  pirate: "Translation Style: talk like a pirate."
topics:
  sailing: "Topic Context: nautical terminology."
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	ps, err := LoadPromptsFile(path)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if !strings.Contains(ps.System("es", "", "pirate", "sailing"), "pirate") {
		t.Error("loaded style not applied")
	}

	if _, err := LoadPromptsFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
