package evidence

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// glyph is one positioned text fragment on a page. Coordinates are PDF
// points with the origin at the bottom-left, x/y on the baseline, w the
// advance width.
type glyph struct {
	s    string
	x    float64
	y    float64
	w    float64
	size float64
}

// box is an axis-aligned highlight region in PDF points, bottom-left origin,
// y0 < y1.
type box struct {
	x0, y0, x1, y1 float64
}

// loadPageGlyphs extracts the positioned text of one page (1-indexed) along
// with the page height in points.
func loadPageGlyphs(pdfPath string, pageNumber int) (glyphs []glyph, pageHeight float64, err error) {
	f, reader, err := pdf.Open(pdfPath)
	if err != nil {
		return nil, 0, fmt.Errorf("open pdf for text layer: %w", err)
	}
	defer f.Close()

	if pageNumber < 1 || pageNumber > reader.NumPage() {
		return nil, 0, fmt.Errorf("page %d out of range (document has %d pages)", pageNumber, reader.NumPage())
	}

	page := reader.Page(pageNumber)
	if page.V.IsNull() {
		return nil, 0, fmt.Errorf("page %d has no content", pageNumber)
	}

	pageHeight, err = mediaBoxHeight(page)
	if err != nil {
		return nil, 0, err
	}

	// The content-stream interpreter panics on malformed font programs in
	// some scanned documents; a broken text layer must degrade to an
	// unhighlighted page, not a crash.
	defer func() {
		if r := recover(); r != nil {
			glyphs = nil
			err = fmt.Errorf("decode page %d content: %v", pageNumber, r)
		}
	}()

	content := page.Content()
	glyphs = make([]glyph, 0, len(content.Text))
	for _, t := range content.Text {
		glyphs = append(glyphs, glyph{s: t.S, x: t.X, y: t.Y, w: t.W, size: t.FontSize})
	}
	return glyphs, pageHeight, nil
}

// mediaBoxHeight resolves the page's MediaBox, walking the Parent chain
// because the box is commonly inherited from the page tree root.
func mediaBoxHeight(page pdf.Page) (float64, error) {
	for v := page.V; !v.IsNull(); v = v.Key("Parent") {
		mediaBox := v.Key("MediaBox")
		if mediaBox.IsNull() || mediaBox.Len() != 4 {
			continue
		}
		lly := mediaBox.Index(1).Float64()
		ury := mediaBox.Index(3).Float64()
		if ury > lly {
			return ury - lly, nil
		}
	}
	return 0, fmt.Errorf("page has no usable MediaBox")
}

// searchPage locates every occurrence of snippet in the page's glyph stream
// and returns one box per text line of each occurrence. Matching ignores
// case and all whitespace: extracted PDF text rarely preserves the spacing
// the snippet came with.
func searchPage(glyphs []glyph, snippet string) []box {
	needle := matchKey(snippet)
	if len(needle) == 0 {
		return nil
	}

	// Flatten glyphs into a normalized rune stream with a map back to the
	// glyph that produced each rune.
	var stream []rune
	var owner []int
	for gi, g := range glyphs {
		for _, r := range g.s {
			if unicode.IsSpace(r) {
				continue
			}
			stream = append(stream, unicode.ToLower(r))
			owner = append(owner, gi)
		}
	}

	var boxes []box
	for start := 0; start+len(needle) <= len(stream); start++ {
		if !runesMatch(stream[start:start+len(needle)], needle) {
			continue
		}
		boxes = append(boxes, lineBoxes(glyphs, owner[start:start+len(needle)])...)
		start += len(needle) - 1
	}
	return boxes
}

// lineBoxes merges a run of matched glyphs into per-line bounding boxes.
// A new line starts when the baseline moves by more than half the font size
// or the x position jumps backwards (wrap).
func lineBoxes(glyphs []glyph, matched []int) []box {
	var boxes []box
	var current box
	var lineSize float64
	open := false
	prevX := 0.0
	prevIdx := -1

	flush := func() {
		if open {
			current.y0 -= 0.25 * lineSize
			current.y1 += 0.1 * lineSize
			boxes = append(boxes, current)
			open = false
		}
	}

	for _, gi := range matched {
		if gi == prevIdx {
			continue
		}
		prevIdx = gi
		g := glyphs[gi]

		sameLine := open &&
			absFloat(g.y-current.y0) <= 0.5*maxFloat(g.size, lineSize) &&
			g.x >= prevX-g.size
		if !sameLine {
			flush()
			current = box{x0: g.x, y0: g.y, x1: g.x + g.w, y1: g.y + g.size}
			lineSize = g.size
			open = true
		} else {
			if g.x < current.x0 {
				current.x0 = g.x
			}
			if g.x+g.w > current.x1 {
				current.x1 = g.x + g.w
			}
			if g.y+g.size > current.y1 {
				current.y1 = g.y + g.size
			}
			if g.size > lineSize {
				lineSize = g.size
			}
		}
		prevX = g.x
	}
	flush()
	return boxes
}

// matchKey lowercases s and strips all whitespace.
func matchKey(s string) []rune {
	var out []rune
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		out = append(out, unicode.ToLower(r))
	}
	return out
}

func runesMatch(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// normalizeSnippet collapses runs of whitespace so snippets taken from chunk
// text line up with the single-line form the matcher works in.
func normalizeSnippet(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
