// Package pathrag answers a question by finding confidence-filtered paths
// between keyword-matched entities and asking the provider to reason over
// them, paths ordered least-reliable-first to mitigate "lost in the
// middle".
package pathrag

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/o-boukoutaya/graphrag/helper"
	"github.com/o-boukoutaya/graphrag/model"
	"github.com/o-boukoutaya/graphrag/prompts"
	"github.com/o-boukoutaya/graphrag/providers"
)

// Store is the subset of GraphStore path seeding needs.
type Store interface {
	EntitiesBySeries(ctx context.Context, series string) ([]*model.Entity, error)
	RelationsBySeries(ctx context.Context, series string) ([]*model.Relation, error)
}

// Options configures a single PathRAG query. Zero values of every field
// except Theta are replaced by DefaultOptions; a zero Theta keeps every
// path regardless of confidence.
type Options struct {
	TopNEntities int     // seed entities kept after keyword scoring
	TopKPaths    int     // paths kept after scoring, across all pairs
	Alpha        float64 // length decay base in alpha^(L-1)
	Theta        float64 // minimum per-node/per-edge confidence to keep a path
	MaxHops      int      // longest path searched, in edges
	PairCap      int      // at most this many seed ids are paired up
	PathsPerPair int      // at most this many paths are kept per pair
}

// DefaultOptions returns this engine's own literal defaults: alpha 0.8,
// theta 0.05, 12 kept paths, 6 hops, 30 paired ids, 6 paths per pair.
func DefaultOptions() Options {
	return Options{
		TopNEntities: 5,
		TopKPaths:    12,
		Alpha:        0.8,
		Theta:        0.05,
		MaxHops:      6,
		PairCap:      30,
		PathsPerPair: 6,
	}
}

// FromQueryOptions overlays the caller's QueryOptions (when non-zero) on
// top of DefaultOptions.
func FromQueryOptions(qo model.QueryOptions) Options {
	opts := DefaultOptions()
	if qo.TopNEntities > 0 {
		opts.TopNEntities = qo.TopNEntities
	}
	if qo.TopKPaths > 0 {
		opts.TopKPaths = qo.TopKPaths
	}
	if qo.Alpha > 0 {
		opts.Alpha = qo.Alpha
	}
	if qo.Theta > 0 {
		opts.Theta = qo.Theta
	}
	return opts
}

// Engine runs the PathRAG seed/prune/score/ask algorithm against a Store
// and a Chat provider.
type Engine struct {
	store Store
	chat  providers.Chat
}

// New builds a PathRAG engine.
func New(store Store, chat providers.Chat) *Engine {
	return &Engine{store: store, chat: chat}
}

type foundPath struct {
	nodes []uuid.UUID
	edges []*model.Relation
	score float64
}

var keywordRe = regexp.MustCompile(`[\p{L}\p{N}]{3,}`)

// extractKeywords pulls up to 8 distinct lowercase keyword tokens (letters
// or digits, length >= 3) out of the query, in first-seen order.
func extractKeywords(query string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range keywordRe.FindAllString(strings.ToLower(query), -1) {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
		if len(out) == 8 {
			break
		}
	}
	return out
}

// Answer runs the full seed/prune/score/ask pipeline and returns an
// AnswerBundle with ModeUsed == model.ModePath.
func (e *Engine) Answer(ctx context.Context, series, query string, opts Options) (*model.AnswerBundle, error) {
	if opts.TopNEntities <= 0 {
		opts.TopNEntities = DefaultOptions().TopNEntities
	}
	if opts.TopKPaths <= 0 {
		opts.TopKPaths = DefaultOptions().TopKPaths
	}
	if opts.Alpha <= 0 {
		opts.Alpha = DefaultOptions().Alpha
	}
	if opts.MaxHops <= 0 {
		opts.MaxHops = DefaultOptions().MaxHops
	}
	if opts.PairCap <= 0 {
		opts.PairCap = DefaultOptions().PairCap
	}
	if opts.PathsPerPair <= 0 {
		opts.PathsPerPair = DefaultOptions().PathsPerPair
	}

	entities, err := e.store.EntitiesBySeries(ctx, series)
	if err != nil {
		return nil, helper.NewKindError("pathrag seed", helper.KindStorageUnavailable, err)
	}
	relations, err := e.store.RelationsBySeries(ctx, series)
	if err != nil {
		return nil, helper.NewKindError("pathrag seed", helper.KindStorageUnavailable, err)
	}
	if len(entities) == 0 {
		return emptyBundle(series, query), nil
	}

	entityByID := make(map[uuid.UUID]*model.Entity, len(entities))
	for _, e := range entities {
		entityByID[e.ID] = e
	}
	adjacency := buildAdjacency(relations)

	keywords := extractKeywords(query)
	seeds := scoreSeeds(entities, keywords, opts.TopNEntities)
	if len(seeds) == 0 {
		return emptyBundle(series, query), nil
	}
	if len(seeds) > opts.PairCap {
		seeds = seeds[:opts.PairCap]
	}

	var paths []foundPath
	for i := 0; i < len(seeds); i++ {
		for j := i + 1; j < len(seeds); j++ {
			found := findPaths(seeds[i], seeds[j], adjacency, entityByID, opts.MaxHops, opts.Theta)
			for k := range found {
				found[k].score = scorePath(found[k], entityByID, opts.Alpha)
			}
			sort.SliceStable(found, func(a, b int) bool { return found[a].score > found[b].score })
			if len(found) > opts.PathsPerPair {
				found = found[:opts.PathsPerPair]
			}
			paths = append(paths, found...)
		}
	}

	sort.SliceStable(paths, func(a, b int) bool { return paths[a].score > paths[b].score })
	if len(paths) > opts.TopKPaths {
		paths = paths[:opts.TopKPaths]
	}
	// ascending by score: least reliable first, most reliable last
	sort.SliceStable(paths, func(a, b int) bool { return paths[a].score < paths[b].score })

	if len(paths) == 0 {
		return emptyBundle(series, query), nil
	}

	prompt, err := prompts.Render("pathrag", prompts.Data{Query: query, PathsBlock: renderPaths(paths, entityByID)})
	if err != nil {
		return nil, err
	}
	answer, err := e.chat.Ask(ctx, prompt)
	if err != nil {
		return nil, helper.NewKindError("pathrag ask", helper.KindProviderUnavailable, err)
	}

	citations := make([]model.Citation, 0, len(paths))
	for _, p := range paths {
		edgeIDs := make([]uuid.UUID, 0, len(p.edges))
		for _, r := range p.edges {
			edgeIDs = append(edgeIDs, r.ID)
		}
		citations = append(citations, model.PathCitation{Score: p.score, NodeIDs: p.nodes, EdgeIDs: edgeIDs})
	}

	return &model.AnswerBundle{
		Series:    series,
		Query:     query,
		ModeUsed:  model.ModePath,
		Answer:    strings.TrimSpace(answer),
		Citations: citations,
	}, nil
}

func emptyBundle(series, query string) *model.AnswerBundle {
	return &model.AnswerBundle{Series: series, Query: query, ModeUsed: model.ModePath}
}

type edgeRef struct {
	to       uuid.UUID
	relation *model.Relation
}

// buildAdjacency makes relations traversable from either endpoint; a path
// may walk a relation "against" its stored direction, since a fact like
// "born_in" still informs a path between the two entities either way.
func buildAdjacency(relations []*model.Relation) map[uuid.UUID][]edgeRef {
	adj := make(map[uuid.UUID][]edgeRef)
	for _, r := range relations {
		adj[r.SrcID] = append(adj[r.SrcID], edgeRef{to: r.DstID, relation: r})
		adj[r.DstID] = append(adj[r.DstID], edgeRef{to: r.SrcID, relation: r})
	}
	return adj
}

// scoreSeeds keeps entities whose name or an alias contains at least one
// keyword, scored by overlap_count + conf, and returns the top n ids.
func scoreSeeds(entities []*model.Entity, keywords []string, n int) []uuid.UUID {
	if len(keywords) == 0 {
		return nil
	}

	type scored struct {
		id    uuid.UUID
		score float64
	}
	var candidates []scored

	for _, e := range entities {
		overlap := 0
		name := strings.ToLower(e.Name)
		for _, k := range keywords {
			if strings.Contains(name, k) {
				overlap++
				continue
			}
			for _, alias := range e.Aliases {
				if strings.Contains(strings.ToLower(alias), k) {
					overlap++
					break
				}
			}
		}
		if overlap == 0 {
			continue
		}
		candidates = append(candidates, scored{id: e.ID, score: float64(overlap) + e.Conf})
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > n {
		candidates = candidates[:n]
	}

	out := make([]uuid.UUID, len(candidates))
	for i, c := range candidates {
		out[i] = c.id
	}
	return out
}

// findPaths depth-first-searches from src to dst up to maxHops edges,
// pruning any node or edge whose confidence falls below theta.
func findPaths(src, dst uuid.UUID, adj map[uuid.UUID][]edgeRef, entityByID map[uuid.UUID]*model.Entity, maxHops int, theta float64) []foundPath {
	if srcEntity, ok := entityByID[src]; !ok || srcEntity.Conf < theta {
		return nil
	}
	if dstEntity, ok := entityByID[dst]; !ok || dstEntity.Conf < theta {
		return nil
	}

	var results []foundPath
	const explorationCap = 64

	visited := map[uuid.UUID]bool{src: true}
	var walk func(cur uuid.UUID, nodes []uuid.UUID, edges []*model.Relation)
	walk = func(cur uuid.UUID, nodes []uuid.UUID, edges []*model.Relation) {
		if len(results) >= explorationCap {
			return
		}
		if cur == dst && len(edges) > 0 {
			results = append(results, foundPath{nodes: append([]uuid.UUID(nil), nodes...), edges: append([]*model.Relation(nil), edges...)})
			return
		}
		if len(edges) >= maxHops {
			return
		}
		for _, ref := range adj[cur] {
			if visited[ref.to] {
				continue
			}
			if ref.relation.Conf < theta {
				continue
			}
			next, ok := entityByID[ref.to]
			if !ok || next.Conf < theta {
				continue
			}
			visited[ref.to] = true
			walk(ref.to, append(nodes, ref.to), append(edges, ref.relation))
			visited[ref.to] = false
		}
	}
	walk(src, []uuid.UUID{src}, nil)
	return results
}

// scorePath implements alpha^(L-1) * mean(conf(n) for n in path, conf(e) for
// e in path), L = number of edges.
func scorePath(p foundPath, entityByID map[uuid.UUID]*model.Entity, alpha float64) float64 {
	l := len(p.edges)
	if l == 0 {
		return 0
	}

	var sum float64
	var count int
	for _, n := range p.nodes {
		if e, ok := entityByID[n]; ok {
			sum += e.Conf
			count++
		}
	}
	for _, r := range p.edges {
		sum += r.Conf
		count++
	}
	if count == 0 {
		return 0
	}
	mean := sum / float64(count)
	return math.Pow(alpha, float64(l-1)) * mean
}

// renderPaths writes each path as "<u.name> --[pred]--> <v.name>", numbered,
// in the order given (callers pass ascending-by-score order).
func renderPaths(paths []foundPath, entityByID map[uuid.UUID]*model.Entity) string {
	var sb strings.Builder
	for i, p := range paths {
		fmt.Fprintf(&sb, "%d. ", i+1)
		for j, edge := range p.edges {
			u := nameOf(entityByID, p.nodes[j])
			v := nameOf(entityByID, p.nodes[j+1])
			fmt.Fprintf(&sb, "%s --[%s]--> %s", u, edge.Pred, v)
			if j < len(p.edges)-1 {
				sb.WriteString(" ")
			}
		}
		fmt.Fprintf(&sb, " (score=%.3f)\n", p.score)
	}
	return sb.String()
}

func nameOf(entityByID map[uuid.UUID]*model.Entity, id uuid.UUID) string {
	if e, ok := entityByID[id]; ok && e.Name != "" {
		return e.Name
	}
	return id.String()
}
