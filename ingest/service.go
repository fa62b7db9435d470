// Package ingest builds the retrieval corpus: it walks a directory of
// source PDFs, splits each page into chunks, embeds them, and writes the
// page-addressed rows the answer pipeline retrieves against.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ledongthuc/pdf"
	"github.com/pgvector/pgvector-go"

	"github.com/almuwathiq/evidence-agent/database"
	"github.com/almuwathiq/evidence-agent/embeddings"
	"github.com/almuwathiq/evidence-agent/pipeline"
	"github.com/almuwathiq/evidence-agent/store"
)

const (
	embedBatchSize  = 16
	embedMaxRetries = 4
)

type Service struct {
	pool      *pgxpool.Pool
	docs      *store.Documents
	embedder  embeddings.Embedder
	logger    *log.Logger
	dimension int
}

func NewService(pool *pgxpool.Pool, docs *store.Documents, embedder embeddings.Embedder, logger *log.Logger, dimension int) *Service {
	if logger == nil {
		logger = log.Default()
	}

	return &Service{
		pool:      pool,
		docs:      docs,
		embedder:  embedder,
		logger:    logger,
		dimension: dimension,
	}
}

// pageChunk is a chunk still attached to its 1-indexed page of origin.
// Page numbers are fixed here, at ingestion time, so the renderer never has
// to re-derive them.
type pageChunk struct {
	Page int
	Text string
}

// IngestDirectory ingests every PDF under dir, tagging the documents with
// the given authority. A failed file is logged and skipped; the walk
// continues.
func (s *Service) IngestDirectory(ctx context.Context, dir string, authority pipeline.Authority) error {
	if s.embedder == nil {
		return fmt.Errorf("embedder not configured")
	}
	if err := database.EnsureSchema(ctx, s.pool, s.dimension); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("documents directory: %w", err)
	}

	entries := make([]string, 0)
	if err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(d.Name()), ".pdf") {
			entries = append(entries, path)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("walk documents directory: %w", err)
	}

	if len(entries) == 0 {
		s.logger.Printf("no PDF files found in %s", dir)
		return nil
	}

	for _, path := range entries {
		if err := s.IngestFile(ctx, path, authority); err != nil {
			s.logger.Printf("ingest failed for %s: %v", path, err)
		}
	}

	return nil
}

// IngestFile ingests a single PDF. Re-ingestion of an unchanged file is a
// no-op, gated on the file's content hash.
func (s *Service) IngestFile(ctx context.Context, path string, authority pipeline.Authority) (err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	absPath, absErr := filepath.Abs(path)
	if absErr != nil {
		absPath = path
	}

	hash := sha256.Sum256(data)
	hashHex := hex.EncodeToString(hash[:])
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	chunks, err := extractPageChunks(absPath, s.logger)
	if err != nil {
		return fmt.Errorf("extract pages: %w", err)
	}
	if len(chunks) == 0 {
		s.logger.Printf("skip %s: no extractable text", path)
		return nil
	}

	vectors, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return fmt.Errorf("generate embeddings: %w", err)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Printf("rollback error: %v", rbErr)
			}
		}
	}()

	docID, changed, err := s.docs.Upsert(ctx, tx, store.SourceDocument{
		Title:     title,
		Authority: authority,
		FilePath:  absPath,
		SHA256:    hashHex,
	})
	if err != nil {
		return err
	}

	if !changed {
		if commitErr := tx.Commit(ctx); commitErr != nil {
			return fmt.Errorf("commit transaction: %w", commitErr)
		}
		s.logger.Printf("no updates required for %s", path)
		return nil
	}

	if _, err = tx.Exec(ctx, "DELETE FROM document_chunks WHERE document_id = $1", docID); err != nil {
		return fmt.Errorf("clear existing chunks: %w", err)
	}

	for idx, chunk := range chunks {
		if _, err = tx.Exec(ctx, `
			INSERT INTO document_chunks (id, document_id, page_number, chunk_index, content, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())
		`, uuid.New(), docID, chunk.Page, idx, chunk.Text, pgvector.NewVector(vectors[idx])); err != nil {
			return fmt.Errorf("insert chunk %d: %w", idx, err)
		}
	}

	if err = s.docs.MarkIngested(ctx, tx, docID); err != nil {
		return err
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		return fmt.Errorf("commit transaction: %w", commitErr)
	}

	s.logger.Printf("ingested %s (%d chunks)", path, len(chunks))
	return nil
}

// embedChunks embeds in batches with exponential backoff, since embedding
// providers rate-limit bulk ingestion well before they rate-limit
// per-query traffic.
func (s *Service) embedChunks(ctx context.Context, chunks []pageChunk) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, 0, end-start)
		for _, chunk := range chunks[start:end] {
			texts = append(texts, chunk.Text)
		}

		var batch [][]float32
		operation := func() error {
			var embErr error
			batch, embErr = s.embedder.Embed(ctx, texts)
			return embErr
		}
		policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), embedMaxRetries), ctx)
		if err := backoff.Retry(operation, policy); err != nil {
			return nil, fmt.Errorf("embed batch starting at %d: %w", start, err)
		}

		if len(batch) != end-start {
			return nil, fmt.Errorf("embedding count mismatch: sent %d texts, got %d vectors", end-start, len(batch))
		}
		vectors = append(vectors, batch...)
	}

	return vectors, nil
}

// extractPageChunks extracts each page's text and chunks it. Pages that fail
// to extract are logged and skipped so one bad page doesn't lose the
// document.
func extractPageChunks(path string, logger *log.Logger) ([]pageChunk, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	chunks := make([]pageChunk, 0)
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		text, pageErr := extractPageText(reader, pageNum)
		if pageErr != nil {
			logger.Printf("skip page %d of %s: %v", pageNum, path, pageErr)
			continue
		}

		for _, chunk := range ChunkPageText(text, defaultChunkSize, defaultChunkOverlap) {
			chunks = append(chunks, pageChunk{Page: pageNum, Text: chunk})
		}
	}

	return chunks, nil
}

func extractPageText(reader *pdf.Reader, pageNum int) (text string, err error) {
	// The extractor panics on malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decode page content: %v", r)
		}
	}()

	page := reader.Page(pageNum)
	if page.V.IsNull() {
		return "", fmt.Errorf("page has no content")
	}

	text, err = page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	return text, nil
}
