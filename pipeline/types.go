// Package pipeline implements the evidence-backed retrieval-and-answer flow:
// retrieval over the chunk store, grounded answer generation, quote
// localization, and rendering of highlighted page images as proof.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Authority identifies the issuing body of a source document.
type Authority string

const (
	AuthorityBNM    Authority = "BNM"
	AuthorityAAOIFI Authority = "AAOIFI"
	AuthoritySC     Authority = "SC"
	AuthorityIIFM   Authority = "IIFM"
	AuthorityFatwa  Authority = "FATWA"
	AuthorityIIFA   Authority = "IIFA"
)

// ParseAuthority maps a user-supplied value onto the known authority set,
// case-insensitively. Unknown values are rejected so a typo cannot register
// a corpus under a bogus issuing body.
func ParseAuthority(value string) (Authority, error) {
	switch a := Authority(strings.ToUpper(strings.TrimSpace(value))); a {
	case AuthorityBNM, AuthorityAAOIFI, AuthoritySC, AuthorityIIFM, AuthorityFatwa, AuthorityIIFA:
		return a, nil
	default:
		return "", fmt.Errorf("unknown authority %q (expected one of BNM, AAOIFI, SC, IIFM, FATWA, IIFA)", value)
	}
}

// Chunk is the retrieval unit: a slice of a source document's text together
// with the metadata needed to point evidence back at the original page.
type Chunk struct {
	Text        string
	SourceDocID uuid.UUID
	PageNumber  int
	Authority   Authority
	Title       string
}

// RetrievalHit pairs a chunk with its similarity score. Scores are
// normalized by the chunk store so that higher always means closer; raw
// provider distances never leave the store layer.
type RetrievalHit struct {
	Chunk Chunk
	Score float64
}

// AnswerDraft is the parsed model output: the free-text answer plus the
// supporting quote, which may be empty when the model dropped it.
type AnswerDraft struct {
	AnswerText string
	QuoteText  string
}

// EvidenceItem describes one rendered page image proving part of the answer.
type EvidenceItem struct {
	SourceDocID uuid.UUID
	PageNumber  int
	Snippet     string
	ImagePath   string
	Title       string
	Score       float64
}

// RetrievalMetadata summarizes the retrieval that produced an answer, for
// provenance logging by callers.
type RetrievalMetadata struct {
	HitCount int
	TopDocID uuid.UUID
	TopPage  int
	TopScore float64
}

// AnswerResult is the pipeline's terminal output. Answer is always
// non-empty; Evidence may be empty.
type AnswerResult struct {
	Answer    string
	Evidence  []EvidenceItem
	Retrieval RetrievalMetadata
}

// ChunkStore performs k-nearest-neighbor lookup over embedded chunks.
// An empty slice with a nil error means the corpus had nothing relevant.
type ChunkStore interface {
	SimilarChunks(ctx context.Context, embedding []float32, limit int) ([]RetrievalHit, error)
}

// DocumentResolver maps a source document ID to the absolute path of the
// original file on disk.
type DocumentResolver interface {
	ResolvePath(ctx context.Context, docID uuid.UUID) (string, error)
}

// Renderer produces a highlighted page image and returns its path relative
// to the media root. A failed highlight search is not an error; only
// open/validate/rasterize/persist failures are.
type Renderer interface {
	Render(ctx context.Context, pdfPath string, pageNumber int, snippet string) (string, error)
}

// EvidenceLogger records rendered artifacts as an audit trail. Recording is
// best-effort; failures are logged, never surfaced.
type EvidenceLogger interface {
	Record(ctx context.Context, item EvidenceItem) error
}
