package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/almuwathiq/evidence-agent/embeddings"
	"github.com/almuwathiq/evidence-agent/llm"
)

const (
	defaultRetrievalK = 12
	maxEvidenceItems  = 3

	// Answers below this length are useless on their own; the user is
	// pointed at the rendered evidence instead.
	usableAnswerLength = 20

	noRulingMessage    = "I cannot find a specific ruling on this in the provided documents."
	shortAnswerMessage = "Based on the retrieved Shariah standards, please refer to the visual evidence below for the relevant ruling."

	// Leading context shown when generation is unavailable or fails.
	fallbackContextLength = 1200
)

// Config tunes a Service. The zero value selects the canonical retrieval
// breadth and the anchor localization policy.
type Config struct {
	RetrievalK  int
	Policy      Policy
	EvidenceLog EvidenceLogger
}

// Service is the stateless pipeline orchestrator. All collaborators are
// injected once at construction and reused across requests; Answer holds no
// state between calls.
type Service struct {
	chunks   ChunkStore
	docs     DocumentResolver
	embedder embeddings.Embedder
	llm      llm.Client
	renderer Renderer
	cfg      Config
	logger   *log.Logger
}

// NewService wires the pipeline. llmClient may be nil: the pipeline then
// degrades to raw-context answers instead of refusing to start, since
// evidence rendering still works without a model.
func NewService(
	chunks ChunkStore,
	docs DocumentResolver,
	embedder embeddings.Embedder,
	llmClient llm.Client,
	renderer Renderer,
	cfg Config,
	logger *log.Logger,
) *Service {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.RetrievalK <= 0 {
		cfg.RetrievalK = defaultRetrievalK
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyAnchor
	}

	return &Service{
		chunks:   chunks,
		docs:     docs,
		embedder: embedder,
		llm:      llmClient,
		renderer: renderer,
		cfg:      cfg,
		logger:   logger,
	}
}

// Answer runs the full pipeline for one question. The returned result always
// carries a non-empty answer; input-dependent failures (no hits, model
// errors, render misses) degrade inside the pipeline and never surface as
// errors. Only infrastructure faults (embedding or store outage, invalid
// input) return a non-nil error.
func (s *Service) Answer(ctx context.Context, question string) (AnswerResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return AnswerResult{}, fmt.Errorf("question cannot be empty")
	}
	if s.embedder == nil {
		return AnswerResult{}, fmt.Errorf("embedder is not configured")
	}
	if s.chunks == nil {
		return AnswerResult{}, fmt.Errorf("chunk store is not configured")
	}

	vectors, err := s.embedder.Embed(ctx, []string{question})
	if err != nil {
		return AnswerResult{}, fmt.Errorf("embed question: %w", err)
	}
	if len(vectors) == 0 {
		return AnswerResult{}, fmt.Errorf("embedder returned no vectors")
	}

	hits, err := s.chunks.SimilarChunks(ctx, vectors[0], s.cfg.RetrievalK)
	if err != nil {
		return AnswerResult{}, fmt.Errorf("vector search: %w", err)
	}

	if len(hits) == 0 {
		s.logger.Printf("no hits for question, returning canned answer without generation")
		return AnswerResult{Answer: noRulingMessage}, nil
	}

	draft := s.generateDraft(ctx, question, hits)
	targets := Localize(draft, hits, s.cfg.Policy)
	evidence := s.renderEvidence(ctx, targets)

	answer := strings.TrimSpace(draft.AnswerText)
	if len(answer) < usableAnswerLength {
		answer = shortAnswerMessage
	}

	return AnswerResult{
		Answer:   answer,
		Evidence: evidence,
		Retrieval: RetrievalMetadata{
			HitCount: len(hits),
			TopDocID: hits[0].Chunk.SourceDocID,
			TopPage:  hits[0].Chunk.PageNumber,
			TopScore: hits[0].Score,
		},
	}, nil
}

// generateDraft calls the model and parses its output. Model unavailability
// and call failures both fall back to the top hit's leading text so the user
// still sees what retrieval found.
func (s *Service) generateDraft(ctx context.Context, question string, hits []RetrievalHit) AnswerDraft {
	if s.llm == nil {
		s.logger.Printf("llm client not configured, answering with raw context")
		return AnswerDraft{AnswerText: rawContextAnswer("System Error: AI Service Unavailable.", hits)}
	}

	prompt := BuildPrompt(question, hits)
	messages := []llm.Message{
		{Role: llm.RoleUser, Content: prompt},
	}

	raw, err := s.llm.Generate(ctx, messages)
	if err != nil {
		s.logger.Printf("llm generate failed: %v", err)
		return AnswerDraft{AnswerText: rawContextAnswer("Note: AI generation failed. Showing raw context.", hits)}
	}

	return ParseAnswer(raw)
}

func rawContextAnswer(reason string, hits []RetrievalHit) string {
	snippet := leadingSnippet(hits[0].Chunk.Text, fallbackContextLength)
	return fmt.Sprintf("**%s**\n\nBased on the retrieved documents:\n\n%s...", reason, snippet)
}

// renderEvidence turns localization targets into persisted page images.
// Failure on one item never aborts the others, and at most one item is
// rendered per distinct (document, page).
func (s *Service) renderEvidence(ctx context.Context, targets []EvidenceTarget) []EvidenceItem {
	if s.renderer == nil || s.docs == nil {
		if len(targets) > 0 {
			s.logger.Printf("renderer not configured, skipping %d evidence targets", len(targets))
		}
		return nil
	}

	type pageKey struct {
		doc  string
		page int
	}
	seen := make(map[pageKey]struct{}, maxEvidenceItems)

	items := make([]EvidenceItem, 0, maxEvidenceItems)
	for _, target := range targets {
		if len(items) >= maxEvidenceItems {
			break
		}

		chunk := target.Hit.Chunk
		key := pageKey{doc: chunk.SourceDocID.String(), page: chunk.PageNumber}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		pdfPath, err := s.docs.ResolvePath(ctx, chunk.SourceDocID)
		if err != nil {
			s.logger.Printf("resolve document %s: %v", chunk.SourceDocID, err)
			continue
		}

		imagePath, err := s.renderer.Render(ctx, pdfPath, chunk.PageNumber, target.Snippet)
		if err != nil {
			s.logger.Printf("render evidence for %s page %d: %v", chunk.SourceDocID, chunk.PageNumber, err)
			continue
		}

		item := EvidenceItem{
			SourceDocID: chunk.SourceDocID,
			PageNumber:  chunk.PageNumber,
			Snippet:     target.Snippet,
			ImagePath:   imagePath,
			Title:       chunk.Title,
			Score:       target.Hit.Score,
		}

		if s.cfg.EvidenceLog != nil {
			if logErr := s.cfg.EvidenceLog.Record(ctx, item); logErr != nil {
				s.logger.Printf("record evidence artifact: %v", logErr)
			}
		}

		items = append(items, item)
	}

	return items
}
