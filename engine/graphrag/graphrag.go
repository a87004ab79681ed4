// Package graphrag answers a question by seeding from community summaries,
// asking the provider for a partial answer per summary (map), then asking
// it to combine the surviving partials into one answer (reduce).
package graphrag

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/o-boukoutaya/graphrag/budget"
	"github.com/o-boukoutaya/graphrag/helper"
	"github.com/o-boukoutaya/graphrag/jsonx"
	"github.com/o-boukoutaya/graphrag/model"
	"github.com/o-boukoutaya/graphrag/prompts"
	"github.com/o-boukoutaya/graphrag/providers"
	"github.com/o-boukoutaya/graphrag/workerpool"
)

// SummaryStore is the subset of GraphStore the seeding step needs.
type SummaryStore interface {
	SummariesByLevel(ctx context.Context, series string, level int) ([]*model.Summary, error)
}

// Options configures a single GraphRAG query.
type Options struct {
	MaxLevel     int // query levels 0..MaxLevel inclusive
	CandidateCap int // at most this many seed candidates enter the map step
	Parallelism  int // bounded worker pool size for the map step
	PromptBudget int // per-item token budget fed to budget.Fit
	Family       budget.Family
}

// DefaultOptions returns this engine's own defaults. MaxLevel matches
// model.DefaultQueryOptions; the per-item PromptBudget of 800 is this
// engine's own and differs from the query-wide 6000 there.
func DefaultOptions() Options {
	return Options{
		MaxLevel:     0,
		CandidateCap: 8,
		Parallelism:  workerpool.DefaultParallelism,
		PromptBudget: 800,
		Family:       budget.FamilyOther,
	}
}

// Engine runs the GraphRAG seed/map/reduce algorithm against a SummaryStore
// and a Chat provider, optionally accelerating seeding with an Embedding
// provider.
type Engine struct {
	store     SummaryStore
	chat      providers.Chat
	embedding providers.Embedding // nil disables cosine seeding, keyword-overlap only
}

// New builds a GraphRAG engine. embedding may be nil.
func New(store SummaryStore, chat providers.Chat, embedding providers.Embedding) *Engine {
	return &Engine{store: store, chat: chat, embedding: embedding}
}

type candidate struct {
	summary *model.Summary
	score   float64
}

type mapResult struct {
	PartialAnswer string   `json:"partial_answer"`
	Confidence    float64  `json:"confidence"`
	Evidence      []string `json:"evidence"`
}

type mapOutcome struct {
	id      string
	level   int
	partial string
	conf    float64
}

type reduceResult struct {
	Answer     string   `json:"answer"`
	Used       []string `json:"used"`
	Confidence float64  `json:"confidence"`
}

// Answer runs the full seed/map/reduce pipeline and returns an AnswerBundle
// with ModeUsed == model.ModeGraph.
func (e *Engine) Answer(ctx context.Context, series, query string, opts Options) (*model.AnswerBundle, error) {
	if opts.CandidateCap <= 0 {
		opts.CandidateCap = DefaultOptions().CandidateCap
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = workerpool.DefaultParallelism
	}
	if opts.PromptBudget <= 0 {
		opts.PromptBudget = DefaultOptions().PromptBudget
	}

	candidates, err := e.seed(ctx, series, query, opts)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return &model.AnswerBundle{
			Series:   series,
			Query:    query,
			ModeUsed: model.ModeGraph,
			Answer:   "",
		}, nil
	}

	outcomes, err := workerpool.Map(ctx, opts.Parallelism, candidates, func(ctx context.Context, c candidate) (*mapOutcome, error) {
		return e.mapOne(ctx, query, c, opts)
	})
	if err != nil {
		return nil, helper.NewKindError("graphrag map", helper.KindProviderUnavailable, err)
	}

	partials := make([]*mapOutcome, 0, len(outcomes))
	for _, o := range outcomes {
		if o != nil {
			partials = append(partials, o)
		}
	}
	if len(partials) == 0 {
		return &model.AnswerBundle{
			Series:   series,
			Query:    query,
			ModeUsed: model.ModeGraph,
		}, nil
	}

	return e.reduce(ctx, series, query, partials, opts)
}

// seed scores every community summary across levels 0..opts.MaxLevel and
// keeps the top CandidateCap. Scoring combines cosine similarity when both
// the query and the summary have a vector, else keyword overlap.
func (e *Engine) seed(ctx context.Context, series, query string, opts Options) ([]candidate, error) {
	var summaries []*model.Summary
	for level := 0; level <= opts.MaxLevel; level++ {
		rows, err := e.store.SummariesByLevel(ctx, series, level)
		if err != nil {
			return nil, helper.NewKindError("graphrag seed", helper.KindStorageUnavailable, err)
		}
		summaries = append(summaries, rows...)
	}
	if len(summaries) == 0 {
		return nil, nil
	}

	var queryVec []float32
	if e.embedding != nil {
		if v, err := e.embedding.Embed(ctx, query); err == nil {
			queryVec = v
		}
	}

	qTokens := tokenize(query)
	candidates := make([]candidate, 0, len(summaries))
	for _, s := range summaries {
		var score float64
		if queryVec != nil && len(s.Vec) > 0 {
			score = cosine(queryVec, s.Vec)
		} else {
			score = overlapScore(qTokens, tokenize(s.Text))
		}
		candidates = append(candidates, candidate{summary: s, score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > opts.CandidateCap {
		candidates = candidates[:opts.CandidateCap]
	}
	return candidates, nil
}

func (e *Engine) mapOne(ctx context.Context, query string, c candidate, opts Options) (*mapOutcome, error) {
	summaryText := budget.Fit(c.summary.Text, opts.PromptBudget, opts.Family, nil)
	prompt, err := prompts.Render("graphrag_map", prompts.Data{Query: query, Summary: summaryText})
	if err != nil {
		return nil, err
	}

	raw, err := e.chat.Ask(ctx, prompt)
	if err != nil {
		// a single candidate failing does not fail the whole query
		return nil, nil
	}

	var parsed mapResult
	if !jsonx.ExtractObject(raw, &parsed) {
		parsed = mapResult{PartialAnswer: raw, Confidence: 0.4}
	}
	if parsed.PartialAnswer == "" {
		return nil, nil
	}

	return &mapOutcome{
		id:      c.summary.ID.String(),
		level:   c.summary.Level,
		partial: parsed.PartialAnswer,
		conf:    parsed.Confidence,
	}, nil
}

func (e *Engine) reduce(ctx context.Context, series, query string, partials []*mapOutcome, opts Options) (*model.AnswerBundle, error) {
	sort.SliceStable(partials, func(i, j int) bool { return partials[i].conf > partials[j].conf })

	perItemBudget := opts.PromptBudget
	if n := len(partials); n > 0 {
		perItemBudget = opts.PromptBudget / n
		if perItemBudget < 40 {
			perItemBudget = 40
		}
	}

	var block strings.Builder
	byID := make(map[string]*mapOutcome, len(partials))
	for _, p := range partials {
		byID[p.id] = p
		text := budget.Fit(p.partial, perItemBudget, opts.Family, nil)
		fmt.Fprintf(&block, "[%s @L%d] %s\n", p.id, p.level, text)
	}

	prompt, err := prompts.Render("graphrag_reduce", prompts.Data{Query: query, PartialsBlock: block.String()})
	if err != nil {
		return nil, err
	}

	raw, err := e.chat.Ask(ctx, prompt)
	if err != nil {
		return nil, helper.NewKindError("graphrag reduce", helper.KindProviderUnavailable, err)
	}

	var parsed reduceResult
	if !jsonx.ExtractObject(raw, &parsed) {
		var fallback strings.Builder
		used := make([]string, 0, len(partials))
		for _, p := range partials {
			fallback.WriteString(p.partial)
			fallback.WriteString(" ")
			used = append(used, p.id)
		}
		parsed = reduceResult{Answer: strings.TrimSpace(fallback.String()), Used: used, Confidence: 0.3}
	}

	citations := make([]model.Citation, 0, len(parsed.Used))
	for _, id := range parsed.Used {
		p, ok := byID[id]
		if !ok {
			continue
		}
		parsedID, err := uuid.Parse(id)
		if err != nil {
			continue
		}
		citations = append(citations, model.GraphCitation{ID: parsedID, Snippet: firstSentence(p.partial, 280)})
	}

	return &model.AnswerBundle{
		Series:    series,
		Query:     query,
		ModeUsed:  model.ModeGraph,
		Answer:    parsed.Answer,
		Citations: citations,
	}, nil
}

var tokenRe = regexp.MustCompile(`[\p{L}\p{N}]+`)

func tokenize(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, m := range tokenRe.FindAllString(strings.ToLower(s), -1) {
		out[m] = struct{}{}
	}
	return out
}

// overlapScore is |tokens(q) ∩ tokens(text)| / |tokens(q)|.
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

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// firstSentence returns the first sentence of s, truncated to maxChars.
func firstSentence(s string, maxChars int) string {
	end := len(s)
	for i, r := range s {
		if r == '.' || r == '!' || r == '?' {
			end = i + 1
			break
		}
	}
	sentence := strings.TrimSpace(s[:end])
	if len(sentence) > maxChars {
		sentence = strings.TrimSpace(sentence[:maxChars])
	}
	return sentence
}
