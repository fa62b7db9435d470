// Package store implements the Postgres-backed collaborators the pipeline
// consumes: the pgvector chunk store, the source document registry, and the
// evidence artifact log.
package store

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/almuwathiq/evidence-agent/pipeline"
)

type ChunkStore struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewChunkStore(pool *pgxpool.Pool, logger *log.Logger) *ChunkStore {
	if logger == nil {
		logger = log.Default()
	}
	return &ChunkStore{pool: pool, logger: logger}
}

// SimilarChunks runs k-nearest-neighbor search over the chunk embeddings.
// Raw L2 distances are normalized to 1/(1+distance) so callers always see
// higher-is-better scores regardless of the index operator. Rows with
// malformed metadata are rejected here, at the boundary, instead of
// surfacing as missing fields deep inside rendering.
func (s *ChunkStore) SimilarChunks(ctx context.Context, embedding []float32, limit int) ([]pipeline.RetrievalHit, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("embedding is empty")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	probes := limit * 10
	if probes < 10 {
		probes = 10
	}
	if _, err := conn.Exec(ctx, fmt.Sprintf("SET ivfflat.probes = %d", probes)); err != nil {
		return nil, fmt.Errorf("set ivfflat probes: %w", err)
	}

	rows, err := conn.Query(ctx, `
        SELECT
            dc.content,
            dc.document_id,
            dc.page_number,
            sd.authority,
            sd.title,
            (dc.embedding <-> $1::vector) AS distance
        FROM document_chunks dc
        JOIN source_documents sd ON sd.id = dc.document_id
        ORDER BY dc.embedding <-> $1::vector
        LIMIT $2
    `, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("query similar chunks: %w", err)
	}
	defer rows.Close()

	hits := make([]pipeline.RetrievalHit, 0, limit)
	for rows.Next() {
		var (
			chunk     pipeline.Chunk
			docID     uuid.UUID
			authority string
			distance  float64
		)
		if scanErr := rows.Scan(&chunk.Text, &docID, &chunk.PageNumber, &authority, &chunk.Title, &distance); scanErr != nil {
			return nil, fmt.Errorf("scan similar chunk: %w", scanErr)
		}

		chunk.SourceDocID = docID
		chunk.Authority = pipeline.Authority(authority)

		if chunk.Text == "" || chunk.PageNumber < 1 || chunk.SourceDocID == uuid.Nil {
			s.logger.Printf("skipping malformed chunk row (doc=%s page=%d)", docID, chunk.PageNumber)
			continue
		}

		hits = append(hits, pipeline.RetrievalHit{
			Chunk: chunk,
			Score: 1 / (1 + distance),
		})
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return hits, nil
}

var _ pipeline.ChunkStore = (*ChunkStore)(nil)
