package summarize

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/o-boukoutaya/graphrag/model"
	"github.com/o-boukoutaya/graphrag/providers"
)

// Store is the persistence surface RunLevel needs; GraphStore satisfies it.
type Store interface {
	CommunitiesByLevel(ctx context.Context, series string, level int) ([]*model.Community, error)
	CommunityMembers(ctx context.Context, cid uuid.UUID) ([]uuid.UUID, error)
	EntitiesBySeries(ctx context.Context, series string) ([]*model.Entity, error)
	RunProjection(ctx context.Context, series string) (*model.Graph, error)
	UpsertSummaries(ctx context.Context, rows []*model.Summary) error
	SetCommunitySummary(ctx context.Context, series string, cid uuid.UUID, level int, summary string) error
}

// RunLevel summarizes every community at level for series, skipping
// (logging, not failing) any single community whose provider call fails,
// per the ProviderUnavailable per-item skip policy.
func RunLevel(ctx context.Context, st Store, chat providers.Chat, series string, level int, opts Options, log *slog.Logger) (int, error) {
	communities, err := st.CommunitiesByLevel(ctx, series, level)
	if err != nil {
		return 0, err
	}
	if len(communities) == 0 {
		return 0, nil
	}

	entities, err := st.EntitiesBySeries(ctx, series)
	if err != nil {
		return 0, err
	}
	entityByID := make(map[uuid.UUID]*model.Entity, len(entities))
	for _, e := range entities {
		entityByID[e.ID] = e
	}

	g, err := st.RunProjection(ctx, series)
	if err != nil {
		return 0, err
	}
	degree := make(map[uuid.UUID]int, len(g.Nodes))
	for id := range g.Nodes {
		degree[id] = g.Degree(id)
	}

	summarizer := New(chat)
	count := 0

	for _, c := range communities {
		memberIDs, err := st.CommunityMembers(ctx, c.CID)
		if err != nil {
			if log != nil {
				log.Warn("skipping community summary: could not load members", "cid", c.CID, "err", err)
			}
			continue
		}

		members := make([]*model.Entity, 0, len(memberIDs))
		for _, id := range memberIDs {
			if e, ok := entityByID[id]; ok {
				members = append(members, e)
			}
		}
		if len(members) == 0 {
			continue
		}

		summary, err := summarizer.Summarize(ctx, series, c, members, degree, opts)
		if err != nil {
			if log != nil {
				log.Warn("skipping community summary: provider failed", "cid", c.CID, "err", err)
			}
			continue
		}

		if err := st.UpsertSummaries(ctx, []*model.Summary{summary}); err != nil {
			return count, err
		}
		if err := st.SetCommunitySummary(ctx, series, c.CID, level, summary.Text); err != nil {
			return count, err
		}
		count++
	}

	return count, nil
}
