// Package build wires every stage (canonicalize, link, community-detect,
// summarize, index) into the single entry point a caller runs over a
// series' chunks, logging a failing unit of work and recording it as
// skipped rather than failing the whole run.
package build

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/o-boukoutaya/graphrag/canonicalize"
	"github.com/o-boukoutaya/graphrag/chunkstore"
	"github.com/o-boukoutaya/graphrag/community"
	"github.com/o-boukoutaya/graphrag/helper"
	"github.com/o-boukoutaya/graphrag/index"
	"github.com/o-boukoutaya/graphrag/linker"
	"github.com/o-boukoutaya/graphrag/model"
	"github.com/o-boukoutaya/graphrag/providers"
	"github.com/o-boukoutaya/graphrag/retry"
	"github.com/o-boukoutaya/graphrag/store"
	"github.com/o-boukoutaya/graphrag/summarize"
	"github.com/o-boukoutaya/graphrag/workerpool"
)

// DefaultBaseResolution seeds community.Detector the same way
// community.New does when no override is given.
const DefaultBaseResolution = 1.0

// Orchestrator runs a full build over a series' chunks: canonicalize,
// link, upsert, detect communities, summarize, and embed for search.
type Orchestrator struct {
	chunks    chunkstore.Store
	store     *store.GraphStore
	chat      providers.Chat
	embedding providers.Embedding
	log       *slog.Logger
}

// New builds an Orchestrator. embedding may be nil, in which case the
// index-sync step is skipped with a warning.
func New(chunks chunkstore.Store, st *store.GraphStore, chat providers.Chat, embedding providers.Embedding, log *slog.Logger) *Orchestrator {
	return &Orchestrator{chunks: chunks, store: st, chat: chat, embedding: embedding, log: log}
}

// Build runs every stage in order over series and returns a BuildReport.
// Each stage is individually idempotent under re-run; prior stages'
// results are preserved even if a later stage fails.
func (o *Orchestrator) Build(ctx context.Context, series string, opts model.BuildOptions) (model.BuildReport, error) {
	started := time.Now()
	report := model.BuildReport{Series: series}

	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = workerpool.DefaultParallelism
	}

	if err := o.store.EnsureConstraints(ctx); err != nil {
		return report, helper.NewKindError("build: ensure constraints", helper.KindStorageUnavailable, err)
	}

	rawEntities, rawRelations, chunksIn, skipped, err := o.canonicalizeChunks(ctx, series, parallelism)
	if err != nil {
		return report, err
	}
	report.ChunksIn = chunksIn
	report.Skipped = append(report.Skipped, skipped...)

	lnk := linker.New(o.chat)
	var linked linker.Result
	err = retry.Do(ctx, retry.Default, func() error {
		var err error
		linked, err = lnk.Link(ctx, series, rawEntities, rawRelations)
		return err
	})
	if err != nil {
		return report, helper.NewKindError("build: link entities", helper.KindProviderUnavailable, err)
	}

	if len(linked.Entities) > 0 {
		if err := o.store.UpsertEntities(ctx, linked.Entities); err != nil {
			return report, helper.NewKindError("build: upsert entities", helper.KindStorageUnavailable, err)
		}
		if err := o.store.LinkMentions(ctx, series, linked.Entities); err != nil {
			return report, helper.NewKindError("build: link mentions", helper.KindStorageUnavailable, err)
		}
	}
	if len(linked.Relations) > 0 {
		if err := o.store.UpsertRelations(ctx, linked.Relations); err != nil {
			return report, helper.NewKindError("build: upsert relations", helper.KindStorageUnavailable, err)
		}
	}
	report.EntitiesOut = len(linked.Entities)
	report.RelationsOut = len(linked.Relations)

	levels := opts.MaxLevels
	if levels <= 0 {
		levels = 1
	}
	stats, err := community.Run(ctx, o.store, series, levels, DefaultBaseResolution)
	if err != nil {
		return report, helper.NewKindError("build: detect communities", helper.KindStorageUnavailable, err)
	}
	report.CommunitiesOut = stats.Communities
	report.Levels = stats.Levels

	if !opts.SkipSummary {
		summarized, skippedLevels := o.summarizeLevels(ctx, series, stats.Levels)
		report.SummariesOut = summarized
		report.Skipped = append(report.Skipped, skippedLevels...)
	}

	if !opts.SkipVectors && o.embedding != nil {
		_, skippedIndex := o.syncIndex(ctx, series, stats.Levels)
		report.Skipped = append(report.Skipped, skippedIndex...)
	} else if !opts.SkipVectors && o.log != nil {
		o.log.Warn("skipping index sync: no embedding provider configured", "series", series)
	}

	report.Duration = time.Since(started)
	return report, nil
}

// canonicalizeChunks streams series' chunks, canonicalizes each with
// bounded parallelism, and merges the per-chunk extractions into one
// entity/relation set keyed by their deterministic ids. A chunk whose
// canonicalize call fails is skipped, not fatal.
func (o *Orchestrator) canonicalizeChunks(ctx context.Context, series string, parallelism int) ([]*model.Entity, []*model.Relation, int, []model.SkippedItem, error) {
	it, err := o.chunks.StreamChunks(ctx, series)
	if err != nil {
		return nil, nil, 0, nil, helper.NewKindError("build: stream chunks", helper.KindStorageUnavailable, err)
	}
	defer it.Close()

	var rows []chunkstore.Chunk
	for {
		c, ok, err := it.Next(ctx)
		if err != nil {
			return nil, nil, 0, nil, helper.NewKindError("build: stream chunks", helper.KindStorageUnavailable, err)
		}
		if !ok {
			break
		}
		rows = append(rows, c)
	}

	canon := canonicalize.New(o.chat, o.log)
	opts := canonicalize.DefaultOptions()

	type outcome struct {
		result canonicalize.Result
		chunk  chunkstore.Chunk
		err    error
	}

	outcomes, err := workerpool.Map(ctx, parallelism, rows, func(ctx context.Context, c chunkstore.Chunk) (outcome, error) {
		var res canonicalize.Result
		retryErr := retry.Do(ctx, retry.Default, func() error {
			var err error
			res, err = canon.Canonicalize(ctx, series, c.CID, c.Text, opts)
			return err
		})
		return outcome{result: res, chunk: c, err: retryErr}, nil
	})
	if err != nil {
		return nil, nil, len(rows), nil, helper.NewKindError("build: canonicalize", helper.KindProviderUnavailable, err)
	}

	entityByID := make(map[uuid.UUID]*model.Entity)
	relationByID := make(map[uuid.UUID]*model.Relation)
	var skipped []model.SkippedItem

	for _, oc := range outcomes {
		if oc.err != nil {
			skipped = append(skipped, model.SkippedItem{Stage: "canonicalize", ChunkID: oc.chunk.CID, Reason: oc.err.Error()})
			continue
		}
		for _, e := range oc.result.Entities {
			if existing, ok := entityByID[e.ID]; ok {
				existing.MergeFrom(e)
			} else {
				entityByID[e.ID] = e
			}
		}
		for _, r := range oc.result.Relations {
			if existing, ok := relationByID[r.ID]; ok {
				existing.MergeFrom(r)
			} else {
				relationByID[r.ID] = r
			}
		}
	}

	entities := make([]*model.Entity, 0, len(entityByID))
	for _, e := range entityByID {
		entities = append(entities, e)
	}
	sort.Slice(entities, func(i, j int) bool { return entities[i].ID.String() < entities[j].ID.String() })

	relations := make([]*model.Relation, 0, len(relationByID))
	for _, r := range relationByID {
		relations = append(relations, r)
	}
	sort.Slice(relations, func(i, j int) bool { return relations[i].ID.String() < relations[j].ID.String() })

	return entities, relations, len(rows), skipped, nil
}

func (o *Orchestrator) summarizeLevels(ctx context.Context, series string, levels int) (int, []model.SkippedItem) {
	var total int
	var skipped []model.SkippedItem
	opts := summarize.DefaultOptions()

	for level := 0; level < levels; level++ {
		n, err := summarize.RunLevel(ctx, o.store, o.chat, series, level, opts, o.log)
		if err != nil {
			skipped = append(skipped, model.SkippedItem{Stage: "summarize", Reason: err.Error()})
			continue
		}
		total += n
	}
	return total, skipped
}

func (o *Orchestrator) syncIndex(ctx context.Context, series string, levels int) (int, []model.SkippedItem) {
	ix := index.New(o.embedding, 0)
	var total int
	var skipped []model.SkippedItem

	n, err := ix.EmbedEntities(ctx, o.store, series)
	if err != nil {
		skipped = append(skipped, model.SkippedItem{Stage: "index_entities", Reason: err.Error()})
	} else {
		total += n
	}

	for level := 0; level < levels; level++ {
		n, err := ix.EmbedSummaries(ctx, o.store, series, level)
		if err != nil {
			skipped = append(skipped, model.SkippedItem{Stage: "index_summaries", Reason: err.Error()})
			continue
		}
		total += n
	}
	return total, skipped
}
