// Package canonicalize turns a chunk of source text into candidate
// entities and relations, deduplicated and identity-hashed, ready for
// GraphStore.Upsert*. Canonicalizer never writes to the store itself.
package canonicalize

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/o-boukoutaya/graphrag/budget"
	"github.com/o-boukoutaya/graphrag/jsonx"
	"github.com/o-boukoutaya/graphrag/model"
	"github.com/o-boukoutaya/graphrag/prompts"
	"github.com/o-boukoutaya/graphrag/providers"
)

// Options configures a single Canonicalize call.
type Options struct {
	MinConf      float64
	MaxCtxTokens int
	Family       budget.Family
}

// DefaultOptions matches the documented defaults: min_conf 0.35,
// max_ctx_tokens 1200.
func DefaultOptions() Options {
	return Options{MinConf: 0.35, MaxCtxTokens: 1200, Family: budget.FamilyOther}
}

// Result is the (nodes, edges) accumulator a single Canonicalize call
// produces; GraphStore.UpsertEntities/UpsertRelations consume it directly.
type Result struct {
	Entities  []*model.Entity
	Relations []*model.Relation
}

// extraction is the tolerant-JSON wire shape the chat provider is asked to
// produce.
type extraction struct {
	Entities []struct {
		Name string  `json:"name"`
		Type string  `json:"type"`
		Desc string  `json:"desc"`
		Conf float64 `json:"conf"`
	} `json:"entities"`
	Relations []struct {
		Src  string  `json:"src"`
		Pred string  `json:"pred"`
		Dst  string  `json:"dst"`
		Conf float64 `json:"conf"`
	} `json:"relations"`
}

// Canonicalizer extracts entities and relations from chunks via a chat
// provider, merging repeated mentions within a single call before returning.
type Canonicalizer struct {
	chat providers.Chat
	log  *slog.Logger
}

// New builds a Canonicalizer over chat.
func New(chat providers.Chat, log *slog.Logger) *Canonicalizer {
	return &Canonicalizer{chat: chat, log: log}
}

// Canonicalize extracts and merges entities/relations from a single chunk.
// An empty chunk is skipped and returns a zero Result with no error.
func (c *Canonicalizer) Canonicalize(ctx context.Context, series, chunkID, chunkText string, opts Options) (Result, error) {
	if strings.TrimSpace(chunkText) == "" {
		return Result{}, nil
	}

	fitted := budget.Fit(chunkText, opts.MaxCtxTokens, opts.Family, c.log)
	prompt, err := prompts.Render("canonicalize", prompts.Data{
		Series: series, ChunkID: chunkID, ChunkText: fitted,
	})
	if err != nil {
		return Result{}, err
	}

	raw, err := c.chat.Ask(ctx, prompt)
	if err != nil {
		return Result{}, err
	}

	var ex extraction
	if !jsonx.ExtractObject(raw, &ex) {
		// Non-JSON output is an empty extraction, not an error: the
		// chunk is skipped, not the build.
		return Result{}, nil
	}

	return merge(series, chunkID, ex, opts.MinConf), nil
}

// merge folds a single call's extraction into a deduplicated Result: repeat
// entities within the same call union aliases/cids and keep the max
// confidence, exactly as GraphStore does across calls.
func merge(series, chunkID string, ex extraction, minConf float64) Result {
	byID := make(map[string]*model.Entity)
	order := make([]string, 0, len(ex.Entities))

	for _, e := range ex.Entities {
		name := strings.TrimSpace(e.Name)
		typ := strings.TrimSpace(e.Type)
		if name == "" || typ == "" || e.Conf < minConf {
			continue
		}

		id := model.NodeID(series, name, typ)
		key := id.String()
		if existing, ok := byID[key]; ok {
			existing.MergeFrom(&model.Entity{Name: name, Type: typ, Desc: e.Desc, Conf: e.Conf, CIDs: []string{chunkID}})
			continue
		}

		byID[key] = &model.Entity{
			ID: id, Series: series, Name: name, Type: typ,
			Desc: e.Desc, Conf: e.Conf, CIDs: []string{chunkID},
		}
		order = append(order, key)
	}

	entities := make([]*model.Entity, 0, len(order))
	for _, key := range order {
		entities = append(entities, byID[key])
	}

	relByID := make(map[string]*model.Relation)
	relOrder := make([]string, 0, len(ex.Relations))

	for _, r := range ex.Relations {
		src := strings.TrimSpace(r.Src)
		dst := strings.TrimSpace(r.Dst)
		pred := strings.TrimSpace(r.Pred)
		if src == "" || dst == "" || pred == "" || r.Conf < minConf {
			continue
		}

		srcID := entityIDFor(byID, series, src)
		dstID := entityIDFor(byID, series, dst)
		id := model.StableID(series, srcID, dstID, pred)
		key := id.String()

		if existing, ok := relByID[key]; ok {
			existing.MergeFrom(&model.Relation{Conf: r.Conf, CIDs: []string{chunkID}})
			continue
		}

		relByID[key] = &model.Relation{
			ID: id, Series: series, SrcID: srcID, DstID: dstID, Pred: pred,
			Conf: r.Conf, CIDs: []string{chunkID},
		}
		relOrder = append(relOrder, key)
	}

	relations := make([]*model.Relation, 0, len(relOrder))
	for _, key := range relOrder {
		relations = append(relations, relByID[key])
	}

	sort.Slice(entities, func(i, j int) bool { return entities[i].ID.String() < entities[j].ID.String() })
	sort.Slice(relations, func(i, j int) bool { return relations[i].ID.String() < relations[j].ID.String() })

	return Result{Entities: entities, Relations: relations}
}

// entityIDFor resolves a relation endpoint's surface form to the id
// assigned to it in this same call, falling back to the "concept" type
// when the name was never seen as an extracted entity.
func entityIDFor(byID map[string]*model.Entity, series, name string) uuid.UUID {
	for _, e := range byID {
		if strings.EqualFold(e.Name, name) {
			return e.ID
		}
	}
	return model.NodeID(series, name, "concept")
}
