package ingest_test

import (
	"strings"
	"testing"

	"github.com/almuwathiq/evidence-agent/ingest"
)

func TestChunkPageTextKeepsShortPageWhole(t *testing.T) {
	content := "First paragraph.\n\nSecond paragraph."

	chunks := ingest.ChunkPageText(content, 1000, 200)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "First paragraph.\n\nSecond paragraph." {
		t.Fatalf("unexpected chunk: %q", chunks[0])
	}
}

func TestChunkPageTextSplitsWithOverlap(t *testing.T) {
	para1 := strings.Repeat("a", 400)
	para2 := strings.Repeat("b", 400)
	para3 := strings.Repeat("c", 400)
	content := para1 + "\n\n" + para2 + "\n\n" + para3

	chunks := ingest.ChunkPageText(content, 1000, 200)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	// The last paragraph of the first chunk carries over as overlap.
	if !strings.HasSuffix(chunks[0], para2) {
		t.Fatal("first chunk should end with the second paragraph")
	}
	if !strings.HasPrefix(chunks[1], para2) {
		t.Fatal("second chunk should start with the overlapping paragraph")
	}
	if !strings.HasSuffix(chunks[1], para3) {
		t.Fatal("second chunk should end with the third paragraph")
	}
}

func TestChunkPageTextWithoutBlankSeparators(t *testing.T) {
	// Many PDF pages extract as single-newline runs.
	content := "line one\nline two\nline three"

	chunks := ingest.ChunkPageText(content, 1000, 0)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if !strings.Contains(chunks[0], "line two") {
		t.Fatalf("unexpected chunk: %q", chunks[0])
	}
}

func TestChunkPageTextEmptyInput(t *testing.T) {
	if chunks := ingest.ChunkPageText("   \n\n \n", 1000, 200); len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %d", len(chunks))
	}
}

func TestChunkPageTextZeroOverlap(t *testing.T) {
	para1 := strings.Repeat("a", 600)
	para2 := strings.Repeat("b", 600)
	content := para1 + "\n\n" + para2

	chunks := ingest.ChunkPageText(content, 1000, 0)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if strings.Contains(chunks[1], "a") {
		t.Fatal("zero overlap must not carry the previous paragraph over")
	}
}
