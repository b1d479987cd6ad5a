package pptx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// ShapeKind distinguishes the shape variants that matter for text traversal.
type ShapeKind int

const (
	// ShapeText is a shape with a text body (p:sp).
	ShapeText ShapeKind = iota
	// ShapeTable is a graphic frame containing a table (a:tbl).
	ShapeTable
	// ShapeGroup is a group shape with child shapes (p:grpSp).
	ShapeGroup
	// ShapeOther is a shape without translatable text (picture, connector, ...).
	ShapeOther
)

// Shape is one node of a slide's shape tree, in z-order.
type Shape struct {
	Kind ShapeKind
	// Paragraphs holds the text body of a ShapeText.
	Paragraphs []*Paragraph
	// Rows holds the cells of a ShapeTable, row-major.
	Rows [][]*Cell
	// Children holds the members of a ShapeGroup, in document order.
	Children []*Shape
}

// Cell is a single table cell with its own text body.
type Cell struct {
	Paragraphs []*Paragraph
}

// Paragraph is one a:p element.
type Paragraph struct {
	Runs []*Run
}

// Run is one a:r element carrying text. The byte spans address the raw slide
// XML and drive splice-based rewriting; Formatting is the run's a:rPr element
// captured verbatim and never interpreted.
type Run struct {
	// Text is the decoded run text ("" for empty runs, which are kept).
	Text string
	// Formatting is the raw a:rPr XML, empty when the run has none.
	Formatting string
	// Path addresses the run within the slide, e.g. "sh1/p0/r2",
	// "sh0.sh2/p1/r0" (group member), "sh3.r1c0/p0/r0" (table cell).
	Path string
	// Shape is the top-level z-order index of the containing shape.
	Shape int
	// Paragraph and RunIndex are document-order indexes within the body.
	Paragraph int
	RunIndex  int

	tagStart    int64 // start of <a:t>
	innerStart  int64 // start of the text content
	innerEnd    int64 // end of the text content
	tagEnd      int64 // end of </a:t>
	selfClosing bool  // <a:t/> — no inner span to splice into
}

// Slide is a parsed slide part.
type Slide struct {
	// Part is the zip entry name, e.g. "ppt/slides/slide1.xml".
	Part string
	// Shapes is the top-level shape tree in z-order.
	Shapes []*Shape

	raw    []byte
	runs   []*Run
	edited []byte
}

// Runs returns every text run of the slide in traversal order:
// shapes in z-order, groups depth-first, tables row-major,
// paragraphs and runs in document order.
func (s *Slide) Runs() []*Run { return s.runs }

// ---------------------------------------------------------------------------
// Rewriting
// ---------------------------------------------------------------------------

// Apply replaces the slide's run texts with texts, one entry per run in
// traversal order. Runs whose replacement equals the original text keep
// their original bytes. The edit becomes effective on the next Deck.Save.
func (s *Slide) Apply(texts []string) error {
	if len(texts) != len(s.runs) {
		return fmt.Errorf("%s: %d replacement texts for %d runs", s.Part, len(texts), len(s.runs))
	}

	var buf bytes.Buffer
	var pos int64
	changed := false

	for i, r := range s.runs {
		t := texts[i]
		if t == r.Text {
			continue
		}
		changed = true
		if r.selfClosing {
			// Empty element: rewrite the whole tag. Slide parts always bind
			// the drawingml namespace to the "a" prefix.
			buf.Write(s.raw[pos:r.tagStart])
			buf.WriteString("<a:t>")
			escapeText(&buf, t)
			buf.WriteString("</a:t>")
			pos = r.tagEnd
		} else {
			buf.Write(s.raw[pos:r.innerStart])
			escapeText(&buf, t)
			pos = r.innerEnd
		}
	}

	if !changed {
		s.edited = nil
		return nil
	}
	buf.Write(s.raw[pos:])
	s.edited = buf.Bytes()
	return nil
}

func escapeText(buf *bytes.Buffer, s string) {
	// EscapeText cannot fail on a bytes.Buffer.
	_ = xml.EscapeText(buf, []byte(s))
}

// ---------------------------------------------------------------------------
// Slide XML parsing
// ---------------------------------------------------------------------------

// bodyState tracks the text body (p:txBody or a:txBody) currently open.
type bodyState struct {
	target  *[]*Paragraph
	path    string
	para    *Paragraph
	paraIdx int
	count   int
}

type slideParser struct {
	raw   []byte
	dec   *xml.Decoder
	slide *Slide

	inSpTree bool
	shapes   []*Shape // open shape elements
	paths    []string // path of each open shape
	counts   []int    // next sibling index per nesting level
	topShape int      // z-order index of the current top-level shape

	body     *bodyState
	cell     *Cell
	cellPath string
	col      int
}

func parseSlide(part string, raw []byte) (*Slide, error) {
	p := &slideParser{
		raw:   raw,
		dec:   xml.NewDecoder(bytes.NewReader(raw)),
		slide: &Slide{Part: part, raw: raw},
	}
	if err := p.parse(); err != nil {
		return nil, &StructureError{Part: part, Err: err}
	}
	return p.slide, nil
}

func (p *slideParser) parse() error {
	for {
		off := p.dec.InputOffset()
		tok, err := p.dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := p.startElement(off, t); err != nil {
				return err
			}
		case xml.EndElement:
			p.endElement(t)
		}
	}
}

// isShapeElem reports whether a presentationml element opens a shape.
func isShapeElem(local string) bool {
	switch local {
	case "sp", "grpSp", "graphicFrame", "pic", "cxnSp":
		return true
	}
	return false
}

func (p *slideParser) startElement(off int64, t xml.StartElement) error {
	switch {
	case t.Name.Space == nsMarkupCompat && t.Name.Local == "Fallback":
		// The Choice branch already carries the content; parsing the
		// fallback too would double-count its runs.
		return p.dec.Skip()

	case t.Name.Space == nsPresentation && t.Name.Local == "spTree":
		p.inSpTree = true
		p.counts = []int{0}

	case p.inSpTree && t.Name.Space == nsPresentation && isShapeElem(t.Name.Local):
		p.pushShape(t.Name.Local)

	case len(p.shapes) > 0 && t.Name.Space == nsDrawing && t.Name.Local == "tbl":
		p.currentShape().Kind = ShapeTable

	case len(p.shapes) > 0 && t.Name.Space == nsDrawing && t.Name.Local == "tr":
		s := p.currentShape()
		s.Rows = append(s.Rows, nil)
		p.col = 0

	case len(p.shapes) > 0 && t.Name.Space == nsDrawing && t.Name.Local == "tc":
		s := p.currentShape()
		if len(s.Rows) == 0 {
			return fmt.Errorf("table cell outside a row")
		}
		row := len(s.Rows) - 1
		cell := &Cell{}
		s.Rows[row] = append(s.Rows[row], cell)
		p.cell = cell
		p.cellPath = fmt.Sprintf("%s.r%dc%d", p.currentPath(), row, p.col)
		p.col++

	case len(p.shapes) > 0 && t.Name.Local == "txBody" &&
		(t.Name.Space == nsPresentation || t.Name.Space == nsDrawing):
		if p.cell != nil {
			p.body = &bodyState{target: &p.cell.Paragraphs, path: p.cellPath}
		} else {
			p.body = &bodyState{target: &p.currentShape().Paragraphs, path: p.currentPath()}
		}

	case p.body != nil && t.Name.Space == nsDrawing && t.Name.Local == "p":
		para := &Paragraph{}
		p.body.para = para
		p.body.paraIdx = p.body.count
		p.body.count++
		*p.body.target = append(*p.body.target, para)

	case p.body != nil && p.body.para != nil && t.Name.Space == nsDrawing && t.Name.Local == "r":
		return p.parseRun()

	case p.body != nil && p.body.para != nil && t.Name.Space == nsDrawing && t.Name.Local == "fld":
		// Field text (slide numbers, dates) is regenerated by the
		// application and must not be translated.
		return p.dec.Skip()
	}
	return nil
}

func (p *slideParser) endElement(t xml.EndElement) {
	switch {
	case t.Name.Space == nsPresentation && t.Name.Local == "spTree":
		p.inSpTree = false

	case t.Name.Local == "txBody" &&
		(t.Name.Space == nsPresentation || t.Name.Space == nsDrawing):
		p.body = nil

	case p.body != nil && t.Name.Space == nsDrawing && t.Name.Local == "p":
		p.body.para = nil

	case t.Name.Space == nsDrawing && t.Name.Local == "tc":
		p.cell = nil

	case p.inSpTree && t.Name.Space == nsPresentation && isShapeElem(t.Name.Local) && len(p.shapes) > 0:
		if t.Name.Local == "grpSp" && len(p.counts) > 1 {
			p.counts = p.counts[:len(p.counts)-1]
		}
		p.shapes = p.shapes[:len(p.shapes)-1]
		p.paths = p.paths[:len(p.paths)-1]
	}
}

func (p *slideParser) currentShape() *Shape { return p.shapes[len(p.shapes)-1] }
func (p *slideParser) currentPath() string  { return p.paths[len(p.paths)-1] }

func (p *slideParser) pushShape(local string) {
	level := len(p.counts) - 1
	idx := p.counts[level]
	p.counts[level]++

	path := fmt.Sprintf("sh%d", idx)
	if len(p.paths) > 0 {
		path = p.currentPath() + "." + path
	}

	kind := ShapeOther
	switch local {
	case "sp":
		kind = ShapeText
	case "grpSp":
		kind = ShapeGroup
	}
	shape := &Shape{Kind: kind}

	if len(p.shapes) == 0 {
		p.topShape = idx
		p.slide.Shapes = append(p.slide.Shapes, shape)
	} else {
		parent := p.currentShape()
		parent.Children = append(parent.Children, shape)
	}
	p.shapes = append(p.shapes, shape)
	p.paths = append(p.paths, path)
	if local == "grpSp" {
		p.counts = append(p.counts, 0)
	}
}

// parseRun consumes one a:r element and records its text run, if any.
// Runs without an a:t child carry no text node and yield no unit.
func (p *slideParser) parseRun() error {
	run := &Run{Shape: p.topShape, Paragraph: p.body.paraIdx}
	hasText := false

	for {
		off := p.dec.InputOffset()
		tok, err := p.dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Space == nsDrawing && t.Name.Local == "rPr":
				if err := p.dec.Skip(); err != nil {
					return err
				}
				run.Formatting = string(p.raw[off:p.dec.InputOffset()])
			case t.Name.Space == nsDrawing && t.Name.Local == "t":
				if err := p.parseText(run, off); err != nil {
					return err
				}
				hasText = true
			default:
				if err := p.dec.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if t.Name.Space == nsDrawing && t.Name.Local == "r" {
				if hasText {
					para := p.body.para
					run.RunIndex = len(para.Runs)
					run.Path = fmt.Sprintf("%s/p%d/r%d", p.body.path, p.body.paraIdx, run.RunIndex)
					para.Runs = append(para.Runs, run)
					p.slide.runs = append(p.slide.runs, run)
				}
				return nil
			}
		}
	}
}

// parseText consumes one a:t element, recording the decoded text and the
// byte spans of both the content and the whole tag.
func (p *slideParser) parseText(run *Run, tagStart int64) error {
	run.tagStart = tagStart
	run.innerStart = p.dec.InputOffset()
	run.innerEnd = run.innerStart

	var text strings.Builder
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.CharData:
			text.Write(t)
			run.innerEnd = p.dec.InputOffset()
		case xml.EndElement:
			run.tagEnd = p.dec.InputOffset()
			// A self-closed <a:t/> advances no offset for its virtual
			// end element.
			run.selfClosing = run.tagEnd == run.innerStart
			run.Text = text.String()
			return nil
		case xml.StartElement:
			return fmt.Errorf("unexpected element <%s> inside a:t", t.Name.Local)
		}
	}
}
