// Package summarize implements CommunitySummarizer: rendering a natural
// language description of each community from its member entities.
package summarize

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/o-boukoutaya/graphrag/budget"
	"github.com/o-boukoutaya/graphrag/model"
	"github.com/o-boukoutaya/graphrag/prompts"
	"github.com/o-boukoutaya/graphrag/providers"
)

// Options configures a single community summary.
type Options struct {
	MaxMembers int
	MaxTokens  int
	Family     budget.Family
}

// DefaultOptions matches the documented defaults.
func DefaultOptions() Options {
	return Options{MaxMembers: 30, MaxTokens: 512, Family: budget.FamilyOther}
}

// Summarizer asks a chat provider to describe a community from its member
// entities, sorted by degree so the most central members anchor the
// summary.
type Summarizer struct {
	chat providers.Chat
}

// New builds a Summarizer over chat.
func New(chat providers.Chat) *Summarizer {
	return &Summarizer{chat: chat}
}

// Summarize renders and asks for a summary of community, whose members are
// given alongside each member's degree in the series graph (the centrality
// proxy used to rank and truncate the members blob).
func (s *Summarizer) Summarize(ctx context.Context, series string, community *model.Community, members []*model.Entity, degree map[uuid.UUID]int, opts Options) (*model.Summary, error) {
	ranked := rankMembers(members, degree, opts.MaxMembers)

	var sb strings.Builder
	for _, e := range ranked {
		fmt.Fprintf(&sb, "- %s [%s]: %s\n", e.Name, e.Type, e.Desc)
	}
	membersBlob := budget.Fit(sb.String(), opts.MaxTokens, opts.Family, nil)

	prompt, err := prompts.Render("community_summary", prompts.Data{MembersBlock: membersBlob})
	if err != nil {
		return nil, err
	}

	raw, err := s.chat.Ask(ctx, prompt)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(raw)

	return &model.Summary{
		ID:     uuid.New(),
		Series: series,
		CID:    community.CID,
		Level:  community.Level,
		Kind:   "summary",
		Text:   text,
		Tokens: budget.CountTokens(text, opts.Family, nil),
	}, nil
}

// rankMembers sorts by (degree desc, name asc) for deterministic tie-breaks
// and truncates to maxMembers.
func rankMembers(members []*model.Entity, degree map[uuid.UUID]int, maxMembers int) []*model.Entity {
	ranked := make([]*model.Entity, len(members))
	copy(ranked, members)

	sort.Slice(ranked, func(i, j int) bool {
		di, dj := degree[ranked[i].ID], degree[ranked[j].ID]
		if di != dj {
			return di > dj
		}
		return ranked[i].Name < ranked[j].Name
	})

	if maxMembers > 0 && len(ranked) > maxMembers {
		ranked = ranked[:maxMembers]
	}
	return ranked
}
