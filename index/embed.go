package index

import (
	"context"

	"github.com/o-boukoutaya/graphrag/model"
)

// EmbedEntities embeds every entity in series (desc, falling back to name)
// in batches and writes the result back via UpdateEntityVector. Dimension
// is whatever the configured Embedding provider returns; it is never
// inspected here, only fixed once by the caller at index-creation time.
func (ix *Indexer) EmbedEntities(ctx context.Context, st EntityStore, series string) (int, error) {
	entities, err := st.EntitiesBySeries(ctx, series)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, group := range batches(entities, ix.batchSize) {
		texts := make([]string, len(group))
		for i, e := range group {
			texts[i] = textFor(e.Desc, e.Name)
		}

		vecs, err := ix.embedding.EmbedBatch(ctx, texts)
		if err != nil {
			return count, err
		}

		for i, e := range group {
			if err := st.UpdateEntityVector(ctx, e.ID, vecs[i]); err != nil {
				return count, err
			}
			count++
		}
	}

	return count, nil
}

// SummaryStore is the persistence surface community summary indexing
// needs.
type SummaryStore interface {
	SummariesByLevel(ctx context.Context, series string, level int) ([]*model.Summary, error)
	UpsertSummaries(ctx context.Context, rows []*model.Summary) error
}

// EmbedSummaries embeds every summary at level for series and writes the
// vector back onto the same row.
func (ix *Indexer) EmbedSummaries(ctx context.Context, st SummaryStore, series string, level int) (int, error) {
	summaries, err := st.SummariesByLevel(ctx, series, level)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, group := range batches(summaries, ix.batchSize) {
		texts := make([]string, len(group))
		for i, sm := range group {
			texts[i] = sm.Text
		}

		vecs, err := ix.embedding.EmbedBatch(ctx, texts)
		if err != nil {
			return count, err
		}

		for i, sm := range group {
			sm.Vec = vecs[i]
		}
		if err := st.UpsertSummaries(ctx, group); err != nil {
			return count, err
		}
		count += len(group)
	}

	return count, nil
}
