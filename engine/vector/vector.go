// Package vector answers a question directly from chunk text: embed the
// query (or fall back to keyword overlap when embeddings are unavailable),
// retrieve the top-k chunks, and demand the model cite every claim back to
// a chunk id.
package vector

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/o-boukoutaya/graphrag/chunkstore"
	"github.com/o-boukoutaya/graphrag/helper"
	"github.com/o-boukoutaya/graphrag/model"
	"github.com/o-boukoutaya/graphrag/prompts"
	"github.com/o-boukoutaya/graphrag/providers"
)

// SimilaritySearcher is the "Chunk index (external)" collaborator: an ANN
// index over chunk embeddings, maintained outside the core, referenced
// here by the series it was built for. Optional; when nil the engine
// always falls back to keyword overlap over chunkstore.Store.
type SimilaritySearcher interface {
	SearchBySimilarity(ctx context.Context, series string, queryVec []float32, topK int) ([]chunkstore.Chunk, []float64, error)
}

// Options configures a single vector query.
type Options struct {
	TopKChunks int
}

// DefaultOptions mirrors model.DefaultQueryOptions' TopKChunks of 8.
func DefaultOptions() Options {
	return Options{TopKChunks: 8}
}

// Engine runs embed-or-fulltext seeding, then a citation-first ask.
type Engine struct {
	chunks     chunkstore.Store
	similarity SimilaritySearcher // nil disables the embedding path
	embedding  providers.Embedding
	chat       providers.Chat
}

// New builds a vector engine. similarity and embedding may both be nil, in
// which case every query uses the keyword-overlap fallback.
func New(chunks chunkstore.Store, similarity SimilaritySearcher, embedding providers.Embedding, chat providers.Chat) *Engine {
	return &Engine{chunks: chunks, similarity: similarity, embedding: embedding, chat: chat}
}

type scoredChunk struct {
	chunk chunkstore.Chunk
	score float64
}

// Hit is a single scored chunk, exposed for Search's debug view.
type Hit struct {
	Chunk chunkstore.Chunk
	Score float64
}

// Retrieve runs the same embed-or-fulltext seeding Answer uses and returns
// the scored chunks directly, for callers that want the raw top-k (e.g. a
// Search debug endpoint) without an LLM call.
func (e *Engine) Retrieve(ctx context.Context, series, query string, topK int) ([]Hit, error) {
	if topK <= 0 {
		topK = DefaultOptions().TopKChunks
	}
	scored, err := e.retrieve(ctx, series, query, topK)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, len(scored))
	for i, s := range scored {
		hits[i] = Hit{Chunk: s.chunk, Score: s.score}
	}
	return hits, nil
}

// Answer retrieves the top-k chunks for query and asks the provider for a
// citation-bearing answer. ModeUsed is always model.ModeVector.
func (e *Engine) Answer(ctx context.Context, series, query string, opts Options) (*model.AnswerBundle, error) {
	if opts.TopKChunks <= 0 {
		opts.TopKChunks = DefaultOptions().TopKChunks
	}

	chunks, err := e.retrieve(ctx, series, query, opts.TopKChunks)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return &model.AnswerBundle{Series: series, Query: query, ModeUsed: model.ModeVector}, nil
	}

	var block strings.Builder
	for _, c := range chunks {
		fmt.Fprintf(&block, "[cid=%s] %s\n", c.chunk.CID, c.chunk.Text)
	}

	prompt, err := prompts.Render("vector", prompts.Data{Query: query, PartialsBlock: block.String()})
	if err != nil {
		return nil, err
	}

	answer, err := e.chat.Ask(ctx, prompt)
	if err != nil {
		return nil, helper.NewKindError("vector ask", helper.KindProviderUnavailable, err)
	}

	citations := make([]model.Citation, 0, len(chunks))
	for _, c := range chunks {
		citations = append(citations, model.VectorCitation{
			CID:   c.chunk.CID,
			Doc:   c.chunk.DocID,
			Page:  c.chunk.Page,
			Score: c.score,
		})
	}

	return &model.AnswerBundle{
		Series:    series,
		Query:     query,
		ModeUsed:  model.ModeVector,
		Answer:    strings.TrimSpace(answer),
		Citations: citations,
	}, nil
}

// retrieve tries the embedding path first (query vec + SimilaritySearcher),
// falling back to keyword overlap over the full chunk stream whenever
// either collaborator is unavailable or the embed call fails.
func (e *Engine) retrieve(ctx context.Context, series, query string, topK int) ([]scoredChunk, error) {
	if e.embedding != nil && e.similarity != nil {
		if qVec, err := e.embedding.Embed(ctx, query); err == nil {
			chunks, scores, err := e.similarity.SearchBySimilarity(ctx, series, qVec, topK)
			if err == nil && len(chunks) > 0 {
				out := make([]scoredChunk, len(chunks))
				for i := range chunks {
					out[i] = scoredChunk{chunk: chunks[i], score: scores[i]}
				}
				return out, nil
			}
		}
	}
	return e.fulltextFallback(ctx, series, query, topK)
}

var wordRe = regexp.MustCompile(`[\p{L}\p{N}]+`)

func tokenize(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, m := range wordRe.FindAllString(strings.ToLower(s), -1) {
		out[m] = struct{}{}
	}
	return out
}

// fulltextFallback streams every chunk of series and scores it by keyword
// overlap with the query, keeping the top-k.
func (e *Engine) fulltextFallback(ctx context.Context, series, query string, topK int) ([]scoredChunk, error) {
	if e.chunks == nil {
		return nil, nil
	}

	it, err := e.chunks.StreamChunks(ctx, series)
	if err != nil {
		return nil, helper.NewKindError("vector fulltext fallback", helper.KindStorageUnavailable, err)
	}
	defer it.Close()

	qTokens := tokenize(query)
	var scored []scoredChunk
	for {
		c, ok, err := it.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		score := overlapScore(qTokens, tokenize(c.Text))
		if score <= 0 {
			continue
		}
		scored = append(scored, scoredChunk{chunk: c, score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func overlapScore(q, text map[string]struct{}) float64 {
	if len(q) == 0 {
		return 0
	}
	var hits int
	for t := range q {
		if _, ok := text[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(q))
}
