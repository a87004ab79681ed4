// Package linker implements entity-link augmentation: grouping candidate
// entities canonicalization left as near-duplicates, asking a chat
// provider to pick a winner per group, and rewriting relations to point at
// the winners.
package linker

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/o-boukoutaya/graphrag/jsonx"
	"github.com/o-boukoutaya/graphrag/model"
	"github.com/o-boukoutaya/graphrag/prompts"
	"github.com/o-boukoutaya/graphrag/providers"
)

const maxAliases = 20

// Result is the output of a Link call: the deduplicated entities/relations
// ready for GraphStore.Upsert*, plus the remap table from dropped ids to
// the winner id that absorbed them.
type Result struct {
	Entities  []*model.Entity
	Relations []*model.Relation
	Remap     map[uuid.UUID]uuid.UUID
}

// Linker reduces near-duplicate entities via fingerprint blocking plus an
// LLM tie-break within each block.
type Linker struct {
	chat providers.Chat
}

// New builds a Linker over chat.
func New(chat providers.Chat) *Linker {
	return &Linker{chat: chat}
}

// winnerResponse is the tolerant-JSON wire shape the link prompt asks for.
type winnerResponse struct {
	Winner string `json:"winner"`
}

// Link groups entities by fingerprint, resolves groups of size ≥ 2 via the
// chat provider, and rewrites relations to the resulting id remap.
func (l *Linker) Link(ctx context.Context, series string, entities []*model.Entity, relations []*model.Relation) (Result, error) {
	groups := blockByFingerprint(entities)

	remap := make(map[uuid.UUID]uuid.UUID, len(entities))
	var kept []*model.Entity

	for _, group := range groups {
		if len(group) == 1 {
			e := group[0]
			remap[e.ID] = e.ID
			kept = append(kept, e)
			continue
		}

		winner, err := l.resolve(ctx, group)
		if err != nil || winner == nil {
			// Provider failure is equivalent to NONE: conservative,
			// keep every member distinct.
			for _, e := range group {
				remap[e.ID] = e.ID
				kept = append(kept, e)
			}
			continue
		}

		for _, e := range group {
			remap[e.ID] = winner.ID
			if e == winner {
				continue
			}
			absorb(winner, e)
		}
		kept = append(kept, winner)
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].ID.String() < kept[j].ID.String() })

	rewritten := rewriteRelations(series, relations, remap)

	return Result{Entities: kept, Relations: rewritten, Remap: remap}, nil
}

// resolve asks the provider to pick a winner within group, treating the
// first member as the mention and the whole group (including it) as the
// candidate set. It returns nil, nil when the provider says NONE.
func (l *Linker) resolve(ctx context.Context, group []*model.Entity) (*model.Entity, error) {
	mention := group[0]

	var sb strings.Builder
	for _, e := range group {
		fmt.Fprintf(&sb, "- id=%s name=%q type=%q\n", e.ID, e.Name, e.Type)
	}

	prompt, err := prompts.Render("entity_link", prompts.Data{
		Mention:         fmt.Sprintf("id=%s name=%q type=%q", mention.ID, mention.Name, mention.Type),
		CandidatesBlock: sb.String(),
	})
	if err != nil {
		return nil, err
	}

	raw, err := l.chat.Ask(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var resp winnerResponse
	if !jsonx.ExtractObject(raw, &resp) || resp.Winner == "" || resp.Winner == "NONE" {
		return nil, nil
	}

	winnerID, err := uuid.Parse(strings.TrimSpace(resp.Winner))
	if err != nil {
		return nil, nil
	}
	for _, e := range group {
		if e.ID == winnerID {
			return e, nil
		}
	}
	return nil, nil
}

// absorb folds loser into winner: loser's name and aliases join winner's
// alias set (capped), cids are unioned, confidence takes the max.
func absorb(winner, loser *model.Entity) {
	if loser.Conf > winner.Conf {
		winner.Conf = loser.Conf
	}

	aliasSet := make(map[string]struct{})
	for _, a := range winner.Aliases {
		aliasSet[a] = struct{}{}
	}
	aliasSet[loser.Name] = struct{}{}
	for _, a := range loser.Aliases {
		aliasSet[a] = struct{}{}
	}
	delete(aliasSet, winner.Name)

	aliases := make([]string, 0, len(aliasSet))
	for a := range aliasSet {
		aliases = append(aliases, a)
	}
	sort.Strings(aliases)
	if len(aliases) > maxAliases {
		aliases = aliases[:maxAliases]
	}
	winner.Aliases = aliases

	cidSet := make(map[string]struct{})
	for _, c := range winner.CIDs {
		cidSet[c] = struct{}{}
	}
	for _, c := range loser.CIDs {
		cidSet[c] = struct{}{}
	}
	cids := make([]string, 0, len(cidSet))
	for c := range cidSet {
		cids = append(cids, c)
	}
	sort.Strings(cids)
	winner.CIDs = cids
}

// rewriteRelations remaps every relation endpoint through remap, recomputes
// each relation's id from its new endpoints, and dedups the result.
func rewriteRelations(series string, relations []*model.Relation, remap map[uuid.UUID]uuid.UUID) []*model.Relation {
	byID := make(map[string]*model.Relation, len(relations))
	order := make([]string, 0, len(relations))

	for _, r := range relations {
		src, ok := remap[r.SrcID]
		if !ok {
			src = r.SrcID
		}
		dst, ok := remap[r.DstID]
		if !ok {
			dst = r.DstID
		}

		id := model.StableID(series, src, dst, r.Pred)
		key := id.String()

		if existing, found := byID[key]; found {
			existing.MergeFrom(&model.Relation{Conf: r.Conf, CIDs: r.CIDs})
			continue
		}

		byID[key] = &model.Relation{
			ID: id, Series: series, SrcID: src, DstID: dst, Pred: r.Pred,
			Conf: r.Conf, CIDs: append([]string(nil), r.CIDs...), Metadata: r.Metadata,
		}
		order = append(order, key)
	}

	out := make([]*model.Relation, 0, len(order))
	for _, key := range order {
		out = append(out, byID[key])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

// blockByFingerprint groups entities whose fingerprint collides, preserving
// first-seen order both across and within groups.
func blockByFingerprint(entities []*model.Entity) [][]*model.Entity {
	index := make(map[string]int)
	var groups [][]*model.Entity

	for _, e := range entities {
		fp := fingerprint(e.Name)
		if i, ok := index[fp]; ok {
			groups[i] = append(groups[i], e)
			continue
		}
		index[fp] = len(groups)
		groups = append(groups, []*model.Entity{e})
	}
	return groups
}

// fingerprint lowercases name, keeps only alphanumerics and spaces, drops
// tokens of length ≤ 2, and truncates to 64 chars, so that trivial
// casing/accent/punctuation variants of the same name block together.
func fingerprint(name string) string {
	lower := strings.ToLower(name)

	var cleaned strings.Builder
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			cleaned.WriteRune(r)
		}
	}

	tokens := strings.Fields(cleaned.String())
	kept := tokens[:0]
	for _, t := range tokens {
		if len(t) > 2 {
			kept = append(kept, t)
		}
	}

	fp := strings.Join(kept, " ")
	if len(fp) > 64 {
		fp = fp[:64]
	}
	return fp
}
