// Package evidence renders highlighted page images that prove where an
// answer came from. Each render walks a fixed stage sequence: open the
// source PDF, validate the page, search for the snippet, highlight every
// occurrence, rasterize, persist.
package evidence

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"

	"github.com/fogleman/gg"
	fitz "github.com/gen2brain/go-fitz"
	"github.com/google/uuid"

	"github.com/almuwathiq/evidence-agent/pipeline"
)

const (
	// Pages render at 1.5x native resolution: legible without ballooning
	// artifact size or render time. PDF native resolution is 72 DPI.
	renderScale = 1.5
	nativeDPI   = 72

	artifactSubdir = "evidence_artifacts"
)

// Highlight ink: translucent yellow over the rasterized page.
var highlightRGBA = [4]float64{1, 1, 0, 0.35}

// Generator renders evidence page images into a media directory.
type Generator struct {
	mediaDir string
	logger   *log.Logger
}

var _ pipeline.Renderer = (*Generator)(nil)

func NewGenerator(mediaDir string, logger *log.Logger) *Generator {
	if logger == nil {
		logger = log.Default()
	}
	return &Generator{mediaDir: mediaDir, logger: logger}
}

// Render produces a PNG of the given page (1-indexed) with every occurrence
// of snippet highlighted, and returns the image path relative to the media
// directory. A snippet that cannot be located is logged and the clean page
// is still rendered; open, page-range, rasterization and persistence
// failures return an error and no artifact.
func (g *Generator) Render(ctx context.Context, pdfPath string, pageNumber int, snippet string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	doc, err := fitz.New(pdfPath)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", pdfPath, err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageNumber < 1 || pageNumber > pageCount {
		return "", fmt.Errorf("page %d out of range (document has %d pages)", pageNumber, pageCount)
	}

	boxes, pageHeight := g.searchSnippet(pdfPath, pageNumber, snippet)

	img, err := doc.ImageDPI(pageNumber-1, nativeDPI*renderScale)
	if err != nil {
		return "", fmt.Errorf("rasterize page %d: %w", pageNumber, err)
	}

	dc := gg.NewContextForImage(img)
	if len(boxes) > 0 && pageHeight > 0 {
		// Map PDF points (bottom-left origin) onto image pixels
		// (top-left origin) using the rendered height as the scale
		// reference.
		scale := float64(dc.Height()) / pageHeight
		dc.SetRGBA(highlightRGBA[0], highlightRGBA[1], highlightRGBA[2], highlightRGBA[3])
		for _, b := range boxes {
			dc.DrawRectangle(b.x0*scale, (pageHeight-b.y1)*scale, (b.x1-b.x0)*scale, (b.y1-b.y0)*scale)
		}
		dc.Fill()
	}

	outDir := filepath.Join(g.mediaDir, artifactSubdir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create evidence directory: %w", err)
	}

	// Unique per call on purpose: the same page rendered for two queries
	// must yield two independent artifacts.
	filename := fmt.Sprintf("evidence_%s.png", uuid.New())
	if err := dc.SavePNG(filepath.Join(outDir, filename)); err != nil {
		return "", fmt.Errorf("persist evidence image: %w", err)
	}

	return path.Join(artifactSubdir, filename), nil
}

// searchSnippet locates snippet occurrences on the page. Any failure here
// only disables highlighting.
func (g *Generator) searchSnippet(pdfPath string, pageNumber int, snippet string) ([]box, float64) {
	snippet = normalizeSnippet(snippet)
	if snippet == "" {
		return nil, 0
	}

	glyphs, pageHeight, err := loadPageGlyphs(pdfPath, pageNumber)
	if err != nil {
		g.logger.Printf("text layer unavailable for %s page %d: %v", pdfPath, pageNumber, err)
		return nil, 0
	}

	boxes := searchPage(glyphs, snippet)
	if len(boxes) == 0 {
		g.logger.Printf("text not found on page %d of %s, rendering clean page", pageNumber, pdfPath)
	}
	return boxes, pageHeight
}
