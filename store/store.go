// Package store implements GraphStore: the only component that writes to
// the database. Canonicalizer, EntityLinker, CommunityDetector and the
// rest pass rows here; they never touch *sql.DB directly.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/o-boukoutaya/graphrag/helper"
	"github.com/o-boukoutaya/graphrag/model"
	"github.com/o-boukoutaya/graphrag/sql"
)

// GraphStore owns the entities/relations/communities/summaries/
// mention_links tables for every series.
type GraphStore struct {
	db *helper.Database
}

// New creates a GraphStore, loading the stored procedures and ensuring the
// schema exists. If force is true the procedures are reinstalled even if
// already present (used when graph.sql changes between deploys).
func New(db *helper.Database, force bool) (*GraphStore, error) {
	if db == nil {
		return nil, helper.NewKindError("build graph store", helper.KindConfigInvalid, fmt.Errorf("database connection is nil"))
	}

	s := &GraphStore{db: db}

	if err := sql.LoadGraphSql(db.Instance, force); err != nil {
		return nil, helper.NewKindError("load graph sql", helper.KindStorageUnavailable, err)
	}
	if err := s.EnsureConstraints(context.Background()); err != nil {
		return nil, err
	}

	db.Logger.Info("initialized graph store")
	return s, nil
}

// EnsureConstraints installs the tables, indexes and foreign keys backing
// the graph if they do not already exist. It is idempotent and safe to
// call on every process start.
func (s *GraphStore) EnsureConstraints(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := s.db.Instance.ExecContext(ctx, `SELECT init_graph();`); err != nil {
		return helper.NewKindError("ensure graph constraints", helper.KindStorageUnavailable, err)
	}
	return nil
}

// UpsertEntities merges rows into the entities table by id, folding
// aliases/cids into sets and keeping the longest description and the max
// confidence.
func (s *GraphStore) UpsertEntities(ctx context.Context, rows []*model.Entity) error {
	for _, e := range rows {
		row := s.db.Instance.QueryRowContext(ctx,
			`SELECT * FROM upsert_entity($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			e.ID, e.Series, e.Name, e.Type, pq.Array(e.Aliases),
			e.Desc, e.Conf, pq.Array(e.CIDs), e.Metadata,
		)

		var evec *pgvector.Vector
		if err := row.Scan(
			&e.ID, &e.Series, &e.Name, &e.Type, pq.Array(&e.Aliases),
			&e.Desc, &e.Conf, pq.Array(&e.CIDs), &evec, &e.Metadata, &e.CreatedAt,
		); err != nil {
			return helper.NewKindError("upsert entity", helper.KindStorageUnavailable, err)
		}
	}
	return nil
}

// UpsertRelations merges rows into the relations table by id
// (UpsertEntities is always called first by BuildOrchestrator). A row
// whose endpoint does not exist (a foreign-key violation) is skipped; any
// other error fails the call.
func (s *GraphStore) UpsertRelations(ctx context.Context, rows []*model.Relation) error {
	for _, r := range rows {
		row := s.db.Instance.QueryRowContext(ctx,
			`SELECT * FROM upsert_relation($1, $2, $3, $4, $5, $6, $7, $8)`,
			r.ID, r.Series, r.SrcID, r.DstID, r.Pred, pq.Array(r.CIDs), r.Conf, r.Metadata,
		)
		if err := row.Scan(
			&r.ID, &r.Series, &r.SrcID, &r.DstID, &r.Pred,
			pq.Array(&r.CIDs), &r.Conf, &r.Metadata, &r.CreatedAt,
		); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23503" {
				continue
			}
			return helper.NewKindError("upsert relation", helper.KindStorageUnavailable, err)
		}
	}
	return nil
}

// LinkMentions derives MENTIONED_IN relations from each entity's CIDs, so
// a chunk can be looked up from an entity (or vice versa) without
// re-running extraction.
func (s *GraphStore) LinkMentions(ctx context.Context, series string, rows []*model.Entity) error {
	for _, e := range rows {
		for _, cid := range e.CIDs {
			if _, err := s.db.Instance.ExecContext(ctx,
				`SELECT link_mention($1, $2, $3)`, e.ID, cid, series,
			); err != nil {
				return helper.NewKindError("link mention", helper.KindStorageUnavailable, err)
			}
		}
	}
	return nil
}

// UpdateEntityVector stores id's embedding, used by SearchIndexer once
// entity descriptions have been embedded.
func (s *GraphStore) UpdateEntityVector(ctx context.Context, id uuid.UUID, vec []float32) error {
	v := pgvector.NewVector(vec)
	if _, err := s.db.Instance.ExecContext(ctx, `SELECT update_entity_vector($1, $2)`, id, v); err != nil {
		return helper.NewKindError("update entity vector", helper.KindStorageUnavailable, err)
	}
	return nil
}

// EntitiesBySeries returns every entity in series, ordered by name.
func (s *GraphStore) EntitiesBySeries(ctx context.Context, series string) ([]*model.Entity, error) {
	rows, err := s.db.Instance.QueryContext(ctx, `SELECT * FROM select_entities_by_series($1)`, series)
	if err != nil {
		return nil, helper.NewKindError("select entities", helper.KindStorageUnavailable, err)
	}
	defer rows.Close()

	var out []*model.Entity
	for rows.Next() {
		e := &model.Entity{}
		var evec *pgvector.Vector
		if err := rows.Scan(
			&e.ID, &e.Series, &e.Name, &e.Type, pq.Array(&e.Aliases),
			&e.Desc, &e.Conf, pq.Array(&e.CIDs), &evec, &e.Metadata, &e.CreatedAt,
		); err != nil {
			return nil, helper.NewKindError("scan entity", helper.KindStorageUnavailable, err)
		}
		if evec != nil {
			e.EVec = evec.Slice()
		}
		out = append(out, e)
	}
	return out, nil
}

// RelationsBySeries returns every relation in series.
func (s *GraphStore) RelationsBySeries(ctx context.Context, series string) ([]*model.Relation, error) {
	rows, err := s.db.Instance.QueryContext(ctx, `SELECT * FROM select_relations_by_series($1)`, series)
	if err != nil {
		return nil, helper.NewKindError("select relations", helper.KindStorageUnavailable, err)
	}
	defer rows.Close()

	var out []*model.Relation
	for rows.Next() {
		r := &model.Relation{}
		if err := rows.Scan(
			&r.ID, &r.Series, &r.SrcID, &r.DstID, &r.Pred,
			pq.Array(&r.CIDs), &r.Conf, &r.Metadata, &r.CreatedAt,
		); err != nil {
			return nil, helper.NewKindError("scan relation", helper.KindStorageUnavailable, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// RunProjection loads a series' entities and relations into the in-memory
// Graph shape CommunityDetector operates on.
func (s *GraphStore) RunProjection(ctx context.Context, series string) (*model.Graph, error) {
	entities, err := s.EntitiesBySeries(ctx, series)
	if err != nil {
		return nil, err
	}
	relations, err := s.RelationsBySeries(ctx, series)
	if err != nil {
		return nil, err
	}
	return model.NewGraph(entities, relations), nil
}
