package grapher

import (
	"context"
	"log/slog"
	"os"

	"github.com/o-boukoutaya/graphrag/build"
	"github.com/o-boukoutaya/graphrag/chunkstore"
	"github.com/o-boukoutaya/graphrag/database"
	"github.com/o-boukoutaya/graphrag/engine/graphrag"
	"github.com/o-boukoutaya/graphrag/engine/pathrag"
	"github.com/o-boukoutaya/graphrag/engine/vector"
	"github.com/o-boukoutaya/graphrag/helper"
	"github.com/o-boukoutaya/graphrag/model"
	"github.com/o-boukoutaya/graphrag/providers"
	"github.com/o-boukoutaya/graphrag/router"
	loadSql "github.com/o-boukoutaya/graphrag/sql"
	"github.com/o-boukoutaya/graphrag/store"
)

// GraphRAG is the single entry point a caller builds once per database and
// uses for every series it owns: Build ingests a series' chunks into the
// knowledge graph, community hierarchy and search indexes; Query answers a
// question by routing to whichever engine fits it; Search exposes the raw
// vector retrieval Query's vector engine would otherwise hide behind an
// LLM call.
type GraphRAG struct {
	DB         *helper.Database
	Store      *store.GraphStore
	Chunks     chunkstore.Store
	chunkStore *chunkstore.PostgresStore
	Builder    *build.Orchestrator
	graphEng   *graphrag.Engine
	pathEng    *pathrag.Engine
	vecEng     *vector.Engine
	log        *slog.Logger
}

// New wires a GraphRAG instance over config: it installs the pgvector/
// ltree extensions and stored procedures, opens the graph store, and
// repurposes the pre-existing chunks/documents tables as the optional
// Postgres ChunkStore. chat is required; embedding may be nil, in which
// case every query path falls back to keyword overlap and Build skips
// index sync.
func New(config *helper.DatabaseConfiguration, embeddingDim int, chat providers.Chat, embedding providers.Embedding) (*GraphRAG, error) {
	opts := helper.PrettyHandlerOptions{SlogOpts: slog.HandlerOptions{Level: slog.LevelInfo}}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	db := helper.NewDatabase("graphrag", config, logger)
	if err := loadSql.Init(db.Instance); err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	if _, err := database.NewDocumentsDBHandler(db, false); err != nil {
		return nil, helper.NewError("create documents handler", err)
	}
	chunksHandler, err := database.NewChunksDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create chunks handler", err)
	}

	graphStore, err := store.New(db, false)
	if err != nil {
		return nil, helper.NewError("create graph store", err)
	}

	chunkStore := chunkstore.NewPostgresStore(chunksHandler)

	var similarity vector.SimilaritySearcher
	if s, ok := any(chunkStore).(vector.SimilaritySearcher); ok {
		similarity = s
	}

	return &GraphRAG{
		DB:         db,
		Store:      graphStore,
		Chunks:     chunkStore,
		chunkStore: chunkStore,
		Builder:    build.New(chunkStore, graphStore, chat, embedding, logger),
		graphEng:   graphrag.New(graphStore, chat, embedding),
		pathEng:    pathrag.New(graphStore, chat),
		vecEng:     vector.New(chunkStore, similarity, embedding, chat),
		log:        logger,
	}, nil
}

// ChangeIndexType switches the pgvector ANN index backing chunk similarity
// search between HNSW and IVFFlat.
func (g *GraphRAG) ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error {
	return g.chunkStore.ChangeIndexType(ctx, indexType, params)
}

// Close releases the underlying database connection.
func (g *GraphRAG) Close() error {
	if g.DB != nil && g.DB.Instance != nil {
		return g.DB.Instance.Close()
	}
	return nil
}

// Build ingests series' chunks through canonicalize/link/upsert/detect/
// summarize/index and returns a report of what it did and skipped.
func (g *GraphRAG) Build(ctx context.Context, series string, opts model.BuildOptions) (model.BuildReport, error) {
	opts.Series = series
	return g.Builder.Build(ctx, series, opts)
}

// Query routes question to the GraphRAG, PathRAG or vector engine per
// QueryRouter's heuristic (or opts.Mode, if the caller forces one), and
// falls back to the vector engine when the chosen engine returns no
// citations and opts.FallbackToVector is set.
func (g *GraphRAG) Query(ctx context.Context, series, question string, opts model.QueryOptions) (*model.AnswerBundle, error) {
	if opts.Series == "" {
		opts.Series = series
	}
	mode := router.Route(question, opts.Mode)

	bundle, err := g.answerWith(ctx, mode, series, question, opts)
	if err != nil {
		return nil, err
	}

	if opts.FallbackToVector && mode != model.QueryModeVector && len(bundle.Citations) == 0 {
		if g.log != nil {
			g.log.Warn("falling back to vector engine: primary engine found no citations", "series", series, "mode", mode)
		}
		return g.answerWith(ctx, model.QueryModeVector, series, question, opts)
	}

	return bundle, nil
}

func (g *GraphRAG) answerWith(ctx context.Context, mode model.QueryMode, series, question string, opts model.QueryOptions) (*model.AnswerBundle, error) {
	switch mode {
	case model.QueryModePath:
		return g.pathEng.Answer(ctx, series, question, pathrag.FromQueryOptions(opts))
	case model.QueryModeVector:
		vOpts := vector.DefaultOptions()
		if opts.TopKChunks > 0 {
			vOpts.TopKChunks = opts.TopKChunks
		}
		return g.vecEng.Answer(ctx, series, question, vOpts)
	default:
		gOpts := graphrag.DefaultOptions()
		if opts.MaxLevel > 0 {
			gOpts.MaxLevel = opts.MaxLevel
		}
		if opts.PromptBudget > 0 {
			gOpts.PromptBudget = opts.PromptBudget
		}
		return g.graphEng.Answer(ctx, series, question, gOpts)
	}
}

// Search exposes the vector engine's raw top-k retrieval without an LLM
// call, the "vector top-k debug view" named in the Query API.
func (g *GraphRAG) Search(ctx context.Context, series, question string, k int) ([]vector.Hit, error) {
	return g.vecEng.Retrieve(ctx, series, question, k)
}
