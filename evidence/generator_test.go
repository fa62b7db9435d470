package evidence

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeFixturePDF assembles a valid one-page PDF with a short text layer.
// Offsets in the xref table are computed while writing, so the fixture stays
// correct if the objects change.
func writeFixturePDF(t *testing.T) string {
	t.Helper()

	content := "BT /F1 12 Tf 50 150 Td (Ijarah contracts transfer usufruct) Tj ET"
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 200] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects)+1)
	for i, obj := range objects {
		offsets[i+1] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xrefPos := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= len(objects); i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xrefPos)

	path := filepath.Join(t.TempDir(), "fixture.pdf")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write fixture pdf: %v", err)
	}
	return path
}

func TestRenderMissingDocumentFails(t *testing.T) {
	g := NewGenerator(t.TempDir(), log.New(io.Discard, "", 0))

	missing := filepath.Join(t.TempDir(), "missing.pdf")
	if _, err := g.Render(context.Background(), missing, 1, "snippet"); err == nil {
		t.Fatal("expected error for missing document")
	}
}

func TestRenderCancelledContext(t *testing.T) {
	g := NewGenerator(t.TempDir(), log.New(io.Discard, "", 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := g.Render(ctx, "whatever.pdf", 1, "snippet"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestRenderPageZeroOutOfRange(t *testing.T) {
	g := NewGenerator(t.TempDir(), log.New(io.Discard, "", 0))
	fixture := writeFixturePDF(t)

	rel, err := g.Render(context.Background(), fixture, 0, "usufruct")
	if err == nil {
		t.Fatal("expected error for page 0")
	}
	if rel != "" {
		t.Fatalf("expected no artifact path, got %q", rel)
	}
}

func TestRenderPageBeyondDocumentOutOfRange(t *testing.T) {
	g := NewGenerator(t.TempDir(), log.New(io.Discard, "", 0))
	fixture := writeFixturePDF(t)

	rel, err := g.Render(context.Background(), fixture, 2, "usufruct")
	if err == nil {
		t.Fatal("expected error for page beyond document")
	}
	if rel != "" {
		t.Fatalf("expected no artifact path, got %q", rel)
	}
	if !strings.Contains(err.Error(), "out of range") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRenderMissingSnippetStillProducesArtifact(t *testing.T) {
	mediaDir := t.TempDir()
	g := NewGenerator(mediaDir, log.New(io.Discard, "", 0))
	fixture := writeFixturePDF(t)

	rel, err := g.Render(context.Background(), fixture, 1, "phrase that appears nowhere in the document")
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	if !strings.HasPrefix(rel, "evidence_artifacts/") {
		t.Fatalf("unexpected artifact path: %q", rel)
	}

	info, err := os.Stat(filepath.Join(mediaDir, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("artifact not persisted: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("artifact file is empty")
	}
}
