package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/o-boukoutaya/graphrag/helper"
	"github.com/o-boukoutaya/graphrag/model"
)

// ReplaceLevel atomically drops and rebuilds every community (and its
// memberships) at level for series. CommunityDetector always recomputes a
// level from scratch rather than diffing against a previous run.
func (s *GraphStore) ReplaceLevel(ctx context.Context, series string, level int, communities []*model.Community, memberships []*model.Membership) error {
	tx, err := s.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return helper.NewKindError("replace communities", helper.KindStorageUnavailable, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT replace_communities($1, $2)`, series, level); err != nil {
		return helper.NewKindError("replace communities", helper.KindStorageUnavailable, err)
	}

	for _, c := range communities {
		if _, err := tx.ExecContext(ctx,
			`SELECT * FROM upsert_community($1, $2, $3, $4)`, c.CID, c.Series, c.Level, c.Summary,
		); err != nil {
			return helper.NewKindError("upsert community", helper.KindStorageUnavailable, err)
		}
	}

	for _, m := range memberships {
		if _, err := tx.ExecContext(ctx,
			`SELECT add_community_member($1, $2, $3, $4)`, m.EntityID, m.CID, m.Series, m.Level,
		); err != nil {
			return helper.NewKindError("add community member", helper.KindStorageUnavailable, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return helper.NewKindError("commit communities", helper.KindStorageUnavailable, err)
	}
	return nil
}

// ReplaceParentEdges rewires every PARENT edge from levelFrom to
// levelFrom+1. HierarchyWirer never assumes continuity with a prior run's
// community ids, so this always replaces the whole level-to-level edge
// set.
func (s *GraphStore) ReplaceParentEdges(ctx context.Context, series string, levelFrom int, edges []*model.ParentEdge) error {
	if _, err := s.db.Instance.ExecContext(ctx, `SELECT replace_parent_edges($1, $2)`, series, levelFrom); err != nil {
		return helper.NewKindError("replace parent edges", helper.KindStorageUnavailable, err)
	}

	for _, e := range edges {
		if _, err := s.db.Instance.ExecContext(ctx,
			`SELECT add_parent_edge($1, $2, $3, $4, $5, $6)`,
			e.Series, e.CIDLo, e.CIDHi, e.From, e.To, e.Overlap,
		); err != nil {
			return helper.NewKindError("add parent edge", helper.KindStorageUnavailable, err)
		}
	}

	return nil
}

// SetCommunitySummary stores the rendered summary text on a community,
// called by CommunitySummarizer once it has rendered a community's text.
func (s *GraphStore) SetCommunitySummary(ctx context.Context, series string, cid uuid.UUID, level int, summary string) error {
	if _, err := s.db.Instance.ExecContext(ctx,
		`SELECT * FROM upsert_community($1, $2, $3, $4)`, cid, series, level, summary,
	); err != nil {
		return helper.NewKindError("set community summary", helper.KindStorageUnavailable, err)
	}
	return nil
}

// CommunitiesByLevel returns every community at level for series.
func (s *GraphStore) CommunitiesByLevel(ctx context.Context, series string, level int) ([]*model.Community, error) {
	rows, err := s.db.Instance.QueryContext(ctx, `SELECT * FROM select_communities_by_level($1, $2)`, series, level)
	if err != nil {
		return nil, helper.NewKindError("select communities", helper.KindStorageUnavailable, err)
	}
	defer rows.Close()

	var out []*model.Community
	for rows.Next() {
		c := &model.Community{}
		if err := rows.Scan(&c.CID, &c.Series, &c.Level, &c.Summary); err != nil {
			return nil, helper.NewKindError("scan community", helper.KindStorageUnavailable, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// CommunityMembers returns every entity id belonging to cid.
func (s *GraphStore) CommunityMembers(ctx context.Context, cid uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.Instance.QueryContext(ctx, `SELECT * FROM select_community_members($1)`, cid)
	if err != nil {
		return nil, helper.NewKindError("select community members", helper.KindStorageUnavailable, err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var m model.Membership
		if err := rows.Scan(&m.EntityID, &m.CID, &m.Series, &m.Level); err != nil {
			return nil, helper.NewKindError("scan community member", helper.KindStorageUnavailable, err)
		}
		out = append(out, m.EntityID)
	}
	return out, nil
}

// UpsertSummaries stores each Summary, attaching its embedding vector when
// present.
func (s *GraphStore) UpsertSummaries(ctx context.Context, rows []*model.Summary) error {
	for _, sm := range rows {
		if _, err := s.db.Instance.ExecContext(ctx,
			`SELECT * FROM upsert_summary($1, $2, $3, $4, $5, $6, $7)`,
			sm.ID, sm.Series, sm.CID, sm.Level, sm.Kind, sm.Text, sm.Tokens,
		); err != nil {
			return helper.NewKindError("upsert summary", helper.KindStorageUnavailable, err)
		}
		if len(sm.Vec) > 0 {
			v := pgvector.NewVector(sm.Vec)
			if _, err := s.db.Instance.ExecContext(ctx,
				`UPDATE summaries SET svec = $2 WHERE id = $1`, sm.ID, v,
			); err != nil {
				return helper.NewKindError("update summary vector", helper.KindStorageUnavailable, err)
			}
		}
	}
	return nil
}

// SummariesByLevel returns every summary at level for series.
func (s *GraphStore) SummariesByLevel(ctx context.Context, series string, level int) ([]*model.Summary, error) {
	rows, err := s.db.Instance.QueryContext(ctx, `SELECT * FROM select_summaries_by_level($1, $2)`, series, level)
	if err != nil {
		return nil, helper.NewKindError("select summaries", helper.KindStorageUnavailable, err)
	}
	defer rows.Close()

	var out []*model.Summary
	for rows.Next() {
		sm := &model.Summary{}
		var svec *pgvector.Vector
		if err := rows.Scan(&sm.ID, &sm.Series, &sm.CID, &sm.Level, &sm.Kind, &sm.Text, &sm.Tokens, &svec); err != nil {
			return nil, helper.NewKindError("scan summary", helper.KindStorageUnavailable, err)
		}
		if svec != nil {
			sm.Vec = svec.Slice()
		}
		out = append(out, sm)
	}
	return out, nil
}
