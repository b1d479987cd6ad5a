// Package extract produces a translation snapshot from a presentation.
//
// Extraction is a read-only, deterministic traversal: slides in presentation
// order, shapes in z-order (groups depth-first, tables row-major), paragraphs
// and runs in document order. Empty runs are kept with their position so the
// unit count stays a reliable correctness signal for the later stages.
// Structural failures surface as *pptx.StructureError from pptx.Open and
// abort the whole document.
package extract

import (
	"fmt"
	"path/filepath"

	"github.com/agobi/translaitor/pptx"
	"github.com/agobi/translaitor/snapshot"
)

// FromDeck builds a snapshot of every text run in the deck.
// Extracting the same deck twice yields identical unit ID sequences.
func FromDeck(d *pptx.Deck) *snapshot.Snapshot {
	snap := &snapshot.Snapshot{Source: filepath.Base(d.Path())}

	for i, slide := range d.Slides {
		su := snapshot.SlideUnits{Slide: i}
		for _, run := range slide.Runs() {
			su.Units = append(su.Units, snapshot.Unit{
				ID: fmt.Sprintf("s%d/%s", i, run.Path),
				Position: snapshot.Position{
					Slide:     i,
					Shape:     run.Shape,
					Paragraph: run.Paragraph,
					Run:       run.RunIndex,
				},
				Text:       run.Text,
				Formatting: run.Formatting,
			})
		}
		snap.Slides = append(snap.Slides, su)
	}
	return snap
}

// File extracts pptxPath into a snapshot JSON at jsonPath and returns the
// snapshot for summary reporting.
func File(pptxPath, jsonPath string) (*snapshot.Snapshot, error) {
	deck, err := pptx.Open(pptxPath)
	if err != nil {
		return nil, err
	}
	snap := FromDeck(deck)
	if err := snap.Save(jsonPath); err != nil {
		return nil, err
	}
	return snap, nil
}
