// Package translate maps a snapshot's text units through a translation
// client, preserving unit count, order, identity, and formatting.
//
// The translator batches non-empty unit texts, sends each batch as a
// numbered-entry prompt expecting a JSON array of the same length back, and
// writes the translations into a copy of the input snapshot. Empty units are
// never sent to the API and pass through untouched at their position, so the
// alignment between snapshot and document survives translation by
// construction — any response of the wrong length is rejected outright.
package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/agobi/translaitor/memory"
	"github.com/agobi/translaitor/snapshot"
)

// Client is the translation backend. *gemini.Client satisfies it.
type Client interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// CountMismatchError reports a batch response whose length does not match
// the request. The batch is never truncated or padded to fit.
type CountMismatchError struct {
	// Want and Got are the requested and returned entry counts.
	Want, Got int
	// Batch is the 1-based batch number within the document.
	Batch int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("batch %d: API returned %d translations for %d entries", e.Batch, e.Got, e.Want)
}

// Options controls translation behavior.
type Options struct {
	// Style selects the style instruction block (default "direct").
	Style string
	// Topic selects the topic instruction block (default "general").
	Topic string
	// SourceLang optionally names the source language.
	SourceLang string
	// ChunkSize is how many units to translate per API call (0 = all at once).
	ChunkSize int
	// Prompts overrides the built-in style/topic instruction tables.
	Prompts *PromptSet
	// Memory, when set, is consulted before the API and updated after it.
	// Units with a cached translation are never sent.
	Memory *memory.Memory
	// OnProgress is called after each translated batch.
	OnProgress func(done, total int)
	// OnLog emits log messages during translation.
	OnLog func(format string, args ...any)
	// Verbose enables per-batch logging.
	Verbose bool
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) prompts() *PromptSet {
	if o.Prompts != nil {
		return o.Prompts
	}
	return defaultPromptSet
}

// Translator translates snapshots through a Client.
type Translator struct {
	client Client
	opts   Options
}

// New builds a Translator. The configuration is explicit; nothing is read
// from ambient state.
func New(client Client, opts Options) *Translator {
	return &Translator{client: client, opts: opts}
}

// Snapshot translates snap into targetLang and returns a new snapshot with
// identical structure: same slides, same unit IDs, positions, and formatting;
// only the text changes. The input snapshot is not mutated.
func (t *Translator) Snapshot(ctx context.Context, snap *snapshot.Snapshot, targetLang string) (*snapshot.Snapshot, error) {
	out := snap.Clone()
	out.TargetLang = targetLang

	// Collect the units that actually go to the API. Empty units stay in
	// place untouched. Units already in the translation memory
	// are filled from it and skipped.
	var units []*snapshot.Unit
	reused := 0
	for si := range out.Slides {
		for ui := range out.Slides[si].Units {
			u := &out.Slides[si].Units[ui]
			if u.Text == "" {
				continue
			}
			if t.opts.Memory != nil {
				if cached, ok := t.opts.Memory.Lookup(targetLang, u.Text); ok {
					u.Text = cached
					reused++
					continue
				}
			}
			units = append(units, u)
		}
	}
	if reused > 0 {
		t.opts.log("  %d units reused from cache", reused)
	}
	if len(units) == 0 {
		return out, nil
	}

	chunkSize := t.opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = len(units)
	}
	batches := (len(units) + chunkSize - 1) / chunkSize
	systemPrompt := t.systemPrompt(targetLang)

	done := 0
	for b := 0; b < batches; b++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		start := b * chunkSize
		end := start + chunkSize
		if end > len(units) {
			end = len(units)
		}
		batch := units[start:end]

		if t.opts.Verbose {
			t.opts.log("  Batch %d/%d (%d entries)", b+1, batches, len(batch))
		}

		texts := make([]string, len(batch))
		for i, u := range batch {
			texts[i] = u.Text
		}
		translated, err := t.batch(ctx, texts, systemPrompt, b+1)
		if err != nil {
			return nil, fmt.Errorf("translating batch %d/%d: %w", b+1, batches, err)
		}
		for i, s := range translated {
			if t.opts.Memory != nil {
				t.opts.Memory.Record(targetLang, texts[i], s)
			}
			batch[i].Text = s
		}

		done += len(batch)
		if t.opts.OnProgress != nil {
			t.opts.OnProgress(done, len(units))
		}
	}
	return out, nil
}

// Batch translates an ordered sequence of texts into targetLang, returning
// the translations in the same order and count.
func (t *Translator) Batch(ctx context.Context, texts []string, targetLang string) ([]string, error) {
	return t.batch(ctx, texts, t.systemPrompt(targetLang), 1)
}

func (t *Translator) batch(ctx context.Context, texts []string, systemPrompt string, batchNo int) ([]string, error) {
	var userMsg strings.Builder
	userMsg.WriteString("Translate these entries:\n\n")
	for i, s := range texts {
		userMsg.WriteString(fmt.Sprintf("%d. %s\n", i+1, escapeForPrompt(s)))
	}
	userMsg.WriteString(fmt.Sprintf("\nReturn a JSON array with exactly %d translated strings.", len(texts)))

	raw, err := t.client.Generate(ctx, systemPrompt, userMsg.String())
	if err != nil {
		return nil, err
	}

	translations, err := parseTranslations(raw)
	if err != nil {
		return nil, err
	}
	if len(translations) != len(texts) {
		return nil, &CountMismatchError{Want: len(texts), Got: len(translations), Batch: batchNo}
	}
	return translations, nil
}

func (t *Translator) systemPrompt(targetLang string) string {
	return t.opts.prompts().System(targetLang, t.opts.SourceLang, t.opts.Style, t.opts.Topic)
}

// escapeForPrompt renders a text as a quoted single-line prompt entry.
func escapeForPrompt(s string) string {
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return fmt.Sprintf(`"%s"`, s)
}
