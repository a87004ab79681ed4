package chunkstore

import (
	"context"
	"sort"
	"strings"

	"github.com/o-boukoutaya/graphrag/database"
)

// PostgresStore adapts the pre-existing chunks/documents tables into a
// Store: series is taken to be the ltree path root every chunk of that
// series was ingested under, so StreamChunks delegates to
// SelectAllChunksByPathDescendant.
type PostgresStore struct {
	chunks *database.ChunksDBHandler
}

// NewPostgresStore wraps an already-initialized ChunksDBHandler.
func NewPostgresStore(chunks *database.ChunksDBHandler) *PostgresStore {
	return &PostgresStore{chunks: chunks}
}

// StreamChunks loads every chunk under series eagerly (the underlying
// handler has no cursor API) and hands back an iterator over the sorted
// result, satisfying the stable-order-by-id contract.
func (p *PostgresStore) StreamChunks(ctx context.Context, series string) (Iterator, error) {
	rows, err := p.chunks.SelectAllChunksByPathDescendant(series)
	if err != nil {
		return nil, err
	}

	out := make([]Chunk, 0, len(rows))
	for _, c := range rows {
		order := 0
		if c.ChunkIndex != nil {
			order = *c.ChunkIndex
		}
		out = append(out, Chunk{
			CID:    c.ID.String(),
			Series: series,
			Text:   c.Content,
			DocID:  c.DocumentRID.String(),
			Order:  order,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CID < out[j].CID })

	return &memoryIterator{ctx: ctx, rows: out}, nil
}

// SearchBySimilarity satisfies engine/vector's SimilaritySearcher by
// repurposing the existing pgvector-backed chunk search as the optional
// ANN "Chunk index (external)" collaborator the vector engine prefers
// over its keyword-overlap fallback. Only rows under the series ltree root
// are kept, the same scoping StreamChunks uses; topK is applied by the
// database before that filter, so fewer than topK chunks may come back.
func (p *PostgresStore) SearchBySimilarity(ctx context.Context, series string, queryVec []float32, topK int) ([]Chunk, []float64, error) {
	rows, err := p.chunks.SelectChunksBySimilarity(queryVec, topK, 0, nil)
	if err != nil {
		return nil, nil, err
	}

	chunks := make([]Chunk, 0, len(rows))
	scores := make([]float64, 0, len(rows))
	for _, c := range rows {
		if c.Path != series && !strings.HasPrefix(c.Path, series+".") {
			continue
		}
		order := 0
		if c.ChunkIndex != nil {
			order = *c.ChunkIndex
		}
		chunks = append(chunks, Chunk{
			CID:    c.ID.String(),
			Series: series,
			Text:   c.Content,
			DocID:  c.DocumentRID.String(),
			Order:  order,
		})
		score := 0.0
		if c.Similarity != nil {
			score = *c.Similarity
		}
		scores = append(scores, score)
	}
	return chunks, scores, nil
}

// ChangeIndexType switches the underlying pgvector ANN index between HNSW
// and IVFFlat, tuning the vector search SearchBySimilarity runs against.
func (p *PostgresStore) ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error {
	return p.chunks.ChangeIndexType(ctx, indexType, params)
}
