// Package index implements SearchIndexer: batch-embedding entity and
// community text into vector columns, and installing the pgvector index
// type (HNSW or IVFFlat) once a dimension is fixed.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/o-boukoutaya/graphrag/helper"
	"github.com/o-boukoutaya/graphrag/model"
	"github.com/o-boukoutaya/graphrag/providers"
)

// EntityStore is the persistence surface entity indexing needs.
type EntityStore interface {
	EntitiesBySeries(ctx context.Context, series string) ([]*model.Entity, error)
	UpdateEntityVector(ctx context.Context, id uuid.UUID, vec []float32) error
}

// Indexer drives batched embedding of entity/community text, and the
// pgvector index DDL that serves similarity search over the result.
type Indexer struct {
	embedding providers.Embedding
	batchSize int
}

// New builds an Indexer embedding in batches of batchSize (≤0 selects 64).
func New(embedding providers.Embedding, batchSize int) *Indexer {
	if batchSize <= 0 {
		batchSize = 64
	}
	return &Indexer{embedding: embedding, batchSize: batchSize}
}

// textFor picks the text an entity is embedded from: desc, falling back to
// name when desc is empty.
func textFor(desc, name string) string {
	if desc != "" {
		return desc
	}
	return name
}

// batches splits items into chunks of size n.
func batches[T any](items []T, n int) [][]T {
	var out [][]T
	for i := 0; i < len(items); i += n {
		end := i + n
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[i:end])
	}
	return out
}

// IndexType names a pgvector index kind.
type IndexType string

const (
	IndexHNSW    IndexType = "hnsw"
	IndexIVFFlat IndexType = "ivfflat"
)

// IndexParams configures the chosen IndexType; zero values fall back to
// pgvector's own defaults.
type IndexParams struct {
	M              int // HNSW
	EFConstruction int // HNSW
	Lists          int // IVFFlat
}

// EnsureVectorIndex (re)creates the similarity index on table.column,
// dropping any prior index of that name first so a dimension or index-type
// change takes effect immediately.
func EnsureVectorIndex(ctx context.Context, db *sql.DB, table, column, name string, kind IndexType, params IndexParams) error {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, fmt.Sprintf(`DROP INDEX IF EXISTS %s;`, name)); err != nil {
		return helper.NewKindError("drop vector index", helper.KindStorageUnavailable, err)
	}

	var ddl string
	switch kind {
	case IndexHNSW:
		m, ef := params.M, params.EFConstruction
		if m <= 0 {
			m = 16
		}
		if ef <= 0 {
			ef = 64
		}
		ddl = fmt.Sprintf(
			`CREATE INDEX %s ON %s USING hnsw (%s vector_cosine_ops) WITH (m = %d, ef_construction = %d);`,
			name, table, column, m, ef,
		)
	case IndexIVFFlat:
		lists := params.Lists
		if lists <= 0 {
			lists = 100
		}
		ddl = fmt.Sprintf(
			`CREATE INDEX %s ON %s USING ivfflat (%s vector_cosine_ops) WITH (lists = %d);`,
			name, table, column, lists,
		)
	default:
		return helper.NewKindError("ensure vector index", helper.KindConfigInvalid, fmt.Errorf("unsupported index type: %q", kind))
	}

	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return helper.NewKindError("create vector index", helper.KindStorageUnavailable, err)
	}
	return nil
}
