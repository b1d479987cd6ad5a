// Package snapshot implements the JSON intermediate representation of a
// presentation's translatable text.
//
// A snapshot is an ordered collection of text units grouped by slide. It is
// produced by extraction, rewritten (text only) by translation, and consumed
// by reintegration. The unit ID sequence of a snapshot is the structural
// fingerprint of the source document: reintegration refuses a snapshot whose
// sequence does not match the document it is applied to.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// Position locates a unit within its document.
type Position struct {
	// Slide is the slide index in presentation order.
	Slide int `json:"slide"`
	// Shape is the top-level shape index in z-order.
	Shape int `json:"shape"`
	// Paragraph and Run are document-order indexes within the text body.
	Paragraph int `json:"paragraph"`
	Run       int `json:"run"`
}

// Unit is one translatable text run.
type Unit struct {
	// ID is the canonical tree path of the run (e.g. "s0/sh1/p0/r2").
	// It is stable across repeated extraction of the same document.
	ID string `json:"id"`
	// Position addresses the unit for human inspection.
	Position Position `json:"position"`
	// Text is the run text. Empty strings are real units and are kept.
	Text string `json:"text"`
	// Formatting is the run's opaque formatting blob, carried through
	// untouched so translation can never lose it.
	Formatting string `json:"formatting,omitempty"`
}

// SlideUnits groups the units of one slide.
type SlideUnits struct {
	Slide int    `json:"slide"`
	Units []Unit `json:"units"`
}

// Snapshot is one document's translatable content at one pipeline stage.
type Snapshot struct {
	// Source is the file the snapshot was extracted from (informational).
	Source string `json:"source,omitempty"`
	// TargetLang is set once the snapshot has been translated.
	TargetLang string       `json:"target_lang,omitempty"`
	Slides     []SlideUnits `json:"slides"`
}

// Units returns all units in document order.
func (s *Snapshot) Units() []Unit {
	var units []Unit
	for _, sl := range s.Slides {
		units = append(units, sl.Units...)
	}
	return units
}

// Len returns the total unit count.
func (s *Snapshot) Len() int {
	n := 0
	for _, sl := range s.Slides {
		n += len(sl.Units)
	}
	return n
}

// Clone returns a deep copy. Translation writes into a clone so the input
// snapshot is never mutated.
func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{Source: s.Source, TargetLang: s.TargetLang}
	for _, sl := range s.Slides {
		units := make([]Unit, len(sl.Units))
		copy(units, sl.Units)
		out.Slides = append(out.Slides, SlideUnits{Slide: sl.Slide, Units: units})
	}
	return out
}

// ---------------------------------------------------------------------------
// JSON round trip
// ---------------------------------------------------------------------------

// Load reads a snapshot from a JSON file.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &s, nil
}

// Save writes the snapshot as indented JSON. The file is meant to be
// inspected and hand-edited between pipeline steps, so non-ASCII text is
// written as-is.
func (s *Snapshot) Save(path string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Alignment
// ---------------------------------------------------------------------------

// AlignmentError reports a structural mismatch between a snapshot and the
// document (or snapshot) it is being matched against.
type AlignmentError struct {
	// Reason describes the first divergence found.
	Reason string
}

func (e *AlignmentError) Error() string {
	return "snapshot does not match document structure: " + e.Reason
}

// Align checks that `have` (freshly extracted from the document) and `want`
// (the translated snapshot) describe the same structure: same slide count,
// same unit count per slide, same ID sequence. Formatting and text are not
// compared; only text is expected to differ.
func Align(have, want *Snapshot) error {
	if len(have.Slides) != len(want.Slides) {
		return &AlignmentError{
			Reason: fmt.Sprintf("document has %d slides, snapshot has %d", len(have.Slides), len(want.Slides)),
		}
	}
	for i := range have.Slides {
		h, w := have.Slides[i].Units, want.Slides[i].Units
		if len(h) != len(w) {
			return &AlignmentError{
				Reason: fmt.Sprintf("slide %d has %d units, snapshot has %d", i+1, len(h), len(w)),
			}
		}
		for j := range h {
			if h[j].ID != w[j].ID {
				return &AlignmentError{
					Reason: fmt.Sprintf("slide %d unit %d: document id %q, snapshot id %q", i+1, j, h[j].ID, w[j].ID),
				}
			}
		}
	}
	return nil
}
