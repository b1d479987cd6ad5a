package translate

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/agobi/translaitor/langmeta"
)

// ---------------------------------------------------------------------------
// System prompt
// ---------------------------------------------------------------------------

const basePrompt = `You are a professional translator working on presentation slides. Translate each entry{{sourceLang}} to {{targetLang}}.

{{styleInstructions}}

{{topicInstructions}}

TECHNICAL REQUIREMENTS:
- Return ONLY a JSON array of translated strings, one for each input entry, in the same order.
- Slide text is often split mid-sentence into several entries to carry formatting; translate each entry on its own and never merge or split entries.
- Preserve leading/trailing whitespace and punctuation patterns.
- Keep brand names and proper nouns unchanged.
- Preserve numbers, dates, and measurements exactly.
- Return ONLY the JSON array, no explanations or markdown code blocks.`

// defaultStyleInstructions are the built-in translation styles.
var defaultStyleInstructions = map[string]string{
	"direct": `Translation Style: Use direct, clear, and concise language.
- Avoid overly formal or flowery language
- Use active voice where possible
- Be straightforward and to the point
- Maintain professional tone while being accessible`,
	"formal": `Translation Style: Use formal, professional language.
- Maintain formal register throughout
- Use complete sentences and proper grammar
- Avoid contractions and colloquialisms
- Use industry-standard terminology`,
	"casual": `Translation Style: Use casual, conversational language.
- Use natural, everyday expressions
- Keep it friendly and approachable
- Use contractions where natural
- Speak directly to the reader`,
	"technical": `Translation Style: Use precise technical language.
- Maintain technical accuracy
- Use exact technical terms
- Preserve all technical specifications
- Keep professional and precise`,
}

// defaultTopicInstructions are the built-in topic contexts.
var defaultTopicInstructions = map[string]string{
	"diving": `Topic Context: This content is about SCUBA diving and deep diving.
- Use correct diving terminology (e.g., "depth", "decompression", "nitrogen narcosis")
- Maintain safety-critical information accurately
- Use terminology recognized by diving certification organizations (PADI, SSI, SDI, etc.)
- Preserve numerical values for depths, times, and safety limits exactly`,
	"medical": `Topic Context: This content is medical/healthcare related.
- Use accurate medical terminology
- Preserve all dosages, measurements, and medical specifications exactly
- Maintain formal medical register
- Use terminology consistent with medical standards`,
	"technical": `Topic Context: This content is technical documentation.
- Preserve all technical terms and specifications
- Maintain accuracy for measurements, codes, and technical details
- Use industry-standard terminology
- Keep technical precision`,
	"business": `Topic Context: This content is business-related.
- Use appropriate business terminology
- Maintain professional tone
- Use terminology common in business contexts
- Preserve numbers, dates, and business-specific terms accurately`,
	"education": `Topic Context: This content is educational material.
- Use clear, pedagogical language
- Maintain instructional tone
- Use terminology appropriate for learners
- Keep explanations accessible`,
}

// PromptSet holds style and topic instruction tables. Custom entries extend
// and override the built-in ones.
type PromptSet struct {
	Styles map[string]string `yaml:"styles"`
	Topics map[string]string `yaml:"topics"`
}

var defaultPromptSet = &PromptSet{}

// LoadPromptsFile reads custom style/topic instructions from a YAML file.
func LoadPromptsFile(path string) (*PromptSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading prompts file: %w", err)
	}
	var ps PromptSet
	if err := yaml.Unmarshal(data, &ps); err != nil {
		return nil, fmt.Errorf("parsing prompts file %s: %w", path, err)
	}
	return &ps, nil
}

func (ps *PromptSet) style(name string) string {
	if s, ok := ps.Styles[name]; ok && s != "" {
		return s
	}
	if s, ok := defaultStyleInstructions[name]; ok {
		return s
	}
	return defaultStyleInstructions["direct"]
}

func (ps *PromptSet) topic(name string) string {
	if s, ok := ps.Topics[name]; ok && s != "" {
		return s
	}
	return defaultTopicInstructions[name]
}

// StyleNames lists all known styles, built-in and custom, sorted.
func (ps *PromptSet) StyleNames() []string {
	return sortedKeys(defaultStyleInstructions, ps.Styles)
}

// TopicNames lists all known topics, built-in and custom, sorted.
func (ps *PromptSet) TopicNames() []string {
	return sortedKeys(defaultTopicInstructions, ps.Topics)
}

func sortedKeys(maps ...map[string]string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range maps {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}
	sort.Strings(names)
	return names
}

// System assembles the system prompt for a target language, optional source
// language, style, and topic.
func (ps *PromptSet) System(targetLang, sourceLang, style, topic string) string {
	sourceText := ""
	if sourceLang != "" {
		sourceText = " from " + langmeta.Name(sourceLang)
	}
	prompt := basePrompt
	prompt = strings.ReplaceAll(prompt, "{{sourceLang}}", sourceText)
	prompt = strings.ReplaceAll(prompt, "{{targetLang}}", langmeta.Name(targetLang))
	prompt = strings.ReplaceAll(prompt, "{{styleInstructions}}", ps.style(style))
	prompt = strings.ReplaceAll(prompt, "{{topicInstructions}}", ps.topic(topic))
	// An unknown topic leaves a gap, not a broken prompt.
	return strings.TrimSpace(strings.ReplaceAll(prompt, "\n\n\n", "\n\n"))
}

// ---------------------------------------------------------------------------
// Response parsing
// ---------------------------------------------------------------------------

var markdownCodeBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// parseTranslations extracts a JSON array of strings from the model's
// response text. Models sometimes wrap the array in markdown fences or
// prose; both are stripped before decoding.
func parseTranslations(content string) ([]string, error) {
	content = strings.TrimSpace(content)

	if m := markdownCodeBlock.FindStringSubmatch(content); len(m) > 1 {
		content = m[1]
	}

	startIdx := strings.Index(content, "[")
	endIdx := strings.LastIndex(content, "]")
	if startIdx >= 0 && endIdx > startIdx {
		content = content[startIdx : endIdx+1]
	}

	var translations []string
	if err := json.Unmarshal([]byte(content), &translations); err != nil {
		return nil, fmt.Errorf("failed to parse translation response as JSON array: %w\nResponse: %s", err, truncate(content, 300))
	}
	return translations, nil
}

// truncate truncates a string to maxLen characters.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
