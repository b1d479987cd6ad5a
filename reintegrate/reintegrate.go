// Package reintegrate writes translated text back into a presentation.
//
// The translated snapshot is aligned against a fresh extraction of the
// original deck before any text is touched, so a snapshot produced from a
// different file (or an edited one) fails cleanly and the output file is
// never created.
package reintegrate

import (
	"fmt"

	"github.com/agobi/translaitor/extract"
	"github.com/agobi/translaitor/pptx"
	"github.com/agobi/translaitor/snapshot"
)

// Deck applies a translated snapshot to an open deck. It returns the number
// of runs whose text actually changed.
func Deck(d *pptx.Deck, translated *snapshot.Snapshot) (int, error) {
	current := extract.FromDeck(d)
	if err := snapshot.Align(current, translated); err != nil {
		return 0, err
	}

	replaced := 0
	for i, slide := range d.Slides {
		units := translated.Slides[i].Units
		texts := make([]string, len(units))
		for j, u := range units {
			texts[j] = u.Text
			if u.Text != current.Slides[i].Units[j].Text {
				replaced++
			}
		}
		if err := slide.Apply(texts); err != nil {
			return 0, fmt.Errorf("slide %s: %w", slide.Part, err)
		}
	}
	return replaced, nil
}

// File loads a presentation and a translated snapshot, applies the
// translations, and writes the result to outPath. On any error, including
// misaligned snapshots, outPath is left untouched.
func File(pptxPath, snapshotPath, outPath string) (int, error) {
	d, err := pptx.Open(pptxPath)
	if err != nil {
		return 0, err
	}
	translated, err := snapshot.Load(snapshotPath)
	if err != nil {
		return 0, err
	}
	replaced, err := Deck(d, translated)
	if err != nil {
		return 0, err
	}
	if err := d.Save(outPath); err != nil {
		return 0, err
	}
	return replaced, nil
}
