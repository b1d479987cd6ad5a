// Package pptx implements reading and writing of PowerPoint (.pptx)
// presentations for translation purposes.
//
// A .pptx file is a zip container of XML parts. This package opens the
// container, resolves the slide parts in presentation order, and parses each
// slide's shape tree down to the individual text runs. Runs keep byte spans
// into the raw slide XML, so rewriting a run's text is a byte splice: every
// untouched byte of the slide — and every untouched part of the container —
// is carried over verbatim. Replacing a run with its original text is a
// no-op, which makes an identity rewrite reproduce the input byte for byte.
package pptx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

// OOXML namespaces used in slide parts.
const (
	nsPresentation  = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsDrawing       = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsRelationships = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsMarkupCompat  = "http://schemas.openxmlformats.org/markup-compatibility/2006"
)

const (
	presentationPart = "ppt/presentation.xml"
	presentationRels = "ppt/_rels/presentation.xml.rels"
)

// StructureError indicates that the presentation container or a slide part
// could not be traversed. It aborts processing of the whole document.
type StructureError struct {
	// Part is the zip entry that failed (empty for container-level failures).
	Part string
	Err  error
}

func (e *StructureError) Error() string {
	if e.Part == "" {
		return fmt.Sprintf("presentation structure: %v", e.Err)
	}
	return fmt.Sprintf("presentation structure in %s: %v", e.Part, e.Err)
}

func (e *StructureError) Unwrap() error { return e.Err }

// ---------------------------------------------------------------------------
// Deck
// ---------------------------------------------------------------------------

// Deck is an opened .pptx container with its slides parsed.
type Deck struct {
	// Slides holds the parsed slides in presentation order.
	Slides []*Slide

	path  string
	zr    *zip.Reader
	parts map[string]*zip.File
}

// Open reads a .pptx file and parses all slide parts.
// The source file is never modified; Save writes a new container.
func Open(pptxPath string) (*Deck, error) {
	data, err := os.ReadFile(pptxPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", pptxPath, err)
	}
	return openBytes(pptxPath, data)
}

func openBytes(pptxPath string, data []byte) (*Deck, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &StructureError{Err: fmt.Errorf("opening zip container: %w", err)}
	}

	d := &Deck{
		path:  pptxPath,
		zr:    zr,
		parts: make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		d.parts[f.Name] = f
	}

	order, err := d.slideOrder()
	if err != nil {
		return nil, err
	}

	for _, part := range order {
		raw, err := d.readPart(part)
		if err != nil {
			return nil, err
		}
		slide, err := parseSlide(part, raw)
		if err != nil {
			return nil, err
		}
		d.Slides = append(d.Slides, slide)
	}
	return d, nil
}

// Path returns the path the deck was opened from.
func (d *Deck) Path() string { return d.path }

func (d *Deck) readPart(name string) ([]byte, error) {
	f, ok := d.parts[name]
	if !ok {
		return nil, &StructureError{Part: name, Err: fmt.Errorf("part not found in container")}
	}
	rc, err := f.Open()
	if err != nil {
		return nil, &StructureError{Part: name, Err: err}
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &StructureError{Part: name, Err: err}
	}
	return data, nil
}

// ---------------------------------------------------------------------------
// Slide order resolution
// ---------------------------------------------------------------------------

// presentationXML models the p:sldIdLst of ppt/presentation.xml.
type presentationXML struct {
	SlideIDs []struct {
		RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

// relationshipsXML models a .rels part.
type relationshipsXML struct {
	Rels []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// slideOrder returns the slide part names in presentation (file) order,
// resolved through the sldIdLst relationship references.
func (d *Deck) slideOrder() ([]string, error) {
	presData, err := d.readPart(presentationPart)
	if err != nil {
		return nil, err
	}
	var pres presentationXML
	if err := xml.Unmarshal(presData, &pres); err != nil {
		return nil, &StructureError{Part: presentationPart, Err: err}
	}

	relsData, err := d.readPart(presentationRels)
	if err != nil {
		return nil, err
	}
	var rels relationshipsXML
	if err := xml.Unmarshal(relsData, &rels); err != nil {
		return nil, &StructureError{Part: presentationRels, Err: err}
	}

	targets := make(map[string]string, len(rels.Rels))
	for _, r := range rels.Rels {
		targets[r.ID] = r.Target
	}

	var order []string
	for _, sld := range pres.SlideIDs {
		target, ok := targets[sld.RID]
		if !ok {
			return nil, &StructureError{
				Part: presentationPart,
				Err:  fmt.Errorf("slide relationship %s not found in %s", sld.RID, presentationRels),
			}
		}
		order = append(order, resolvePartName(target))
	}
	return order, nil
}

// resolvePartName turns a relationship target into a zip entry name.
// Targets are relative to ppt/ ("slides/slide1.xml") or absolute
// ("/ppt/slides/slide1.xml").
func resolvePartName(target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join("ppt", target)
}

// ---------------------------------------------------------------------------
// Saving
// ---------------------------------------------------------------------------

// Save writes the deck to outPath. Slide parts with pending text edits are
// re-deflated; every other entry is copied raw, without recompression.
func (d *Deck) Save(outPath string) error {
	edited := make(map[string][]byte, len(d.Slides))
	for _, s := range d.Slides {
		if s.edited != nil {
			edited[s.Part] = s.edited
		}
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	for _, f := range d.zr.File {
		if data, ok := edited[f.Name]; ok {
			hdr := &zip.FileHeader{
				Name:     f.Name,
				Method:   zip.Deflate,
				Modified: f.Modified,
			}
			fw, err := w.CreateHeader(hdr)
			if err != nil {
				return fmt.Errorf("writing %s: %w", f.Name, err)
			}
			if _, err := fw.Write(data); err != nil {
				return fmt.Errorf("writing %s: %w", f.Name, err)
			}
			continue
		}

		hdr := f.FileHeader
		fw, err := w.CreateRaw(&hdr)
		if err != nil {
			return fmt.Errorf("copying %s: %w", f.Name, err)
		}
		rr, err := f.OpenRaw()
		if err != nil {
			return fmt.Errorf("copying %s: %w", f.Name, err)
		}
		if _, err := io.Copy(fw, rr); err != nil {
			return fmt.Errorf("copying %s: %w", f.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing container: %w", err)
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	return nil
}
