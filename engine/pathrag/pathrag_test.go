package pathrag

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/o-boukoutaya/graphrag/model"
)

type fakeStore struct {
	entities  []*model.Entity
	relations []*model.Relation
}

func (f *fakeStore) EntitiesBySeries(ctx context.Context, series string) ([]*model.Entity, error) {
	return f.entities, nil
}

func (f *fakeStore) RelationsBySeries(ctx context.Context, series string) ([]*model.Relation, error) {
	return f.relations, nil
}

type fakeChat struct {
	response string
}

func (f *fakeChat) Ask(ctx context.Context, prompt string) (string, error) {
	return f.response, nil
}

func entity(name string, conf float64) *model.Entity {
	return &model.Entity{ID: uuid.New(), Series: "s1", Name: name, Type: "concept", Conf: conf}
}

func relation(src, dst *model.Entity, pred string, conf float64) *model.Relation {
	return &model.Relation{ID: uuid.New(), Series: "s1", SrcID: src.ID, DstID: dst.ID, Pred: pred, Conf: conf}
}

func TestAnswer_FindsPathBetweenKeywordMatchedEntities(t *testing.T) {
	paris := entity("Paris", 0.9)
	france := entity("France", 0.9)
	rel := relation(paris, france, "capital_of", 0.8)

	store := &fakeStore{entities: []*model.Entity{paris, france}, relations: []*model.Relation{rel}}
	chat := &fakeChat{response: "Paris is the capital of France."}

	e := New(store, chat)
	bundle, err := e.Answer(context.Background(), "s1", "What is the relation between Paris and France?", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, model.ModePath, bundle.ModeUsed)
	assert.Equal(t, "Paris is the capital of France.", bundle.Answer)
	require.Len(t, bundle.Citations, 1)
	pc, ok := bundle.Citations[0].(model.PathCitation)
	require.True(t, ok)
	assert.Equal(t, []uuid.UUID{rel.ID}, pc.EdgeIDs)
}

func TestAnswer_NoKeywordMatchReturnsEmptyBundle(t *testing.T) {
	paris := entity("Paris", 0.9)
	store := &fakeStore{entities: []*model.Entity{paris}}
	chat := &fakeChat{response: "unused"}

	e := New(store, chat)
	bundle, err := e.Answer(context.Background(), "s1", "12345 !!! ??", DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, bundle.Answer)
	assert.Empty(t, bundle.Citations)
}

func TestFindPaths_PrunesEdgesBelowTheta(t *testing.T) {
	a := entity("Alpha", 0.9)
	b := entity("Beta", 0.9)
	weakRel := relation(a, b, "related_to", 0.01)

	adj := buildAdjacency([]*model.Relation{weakRel})
	entityByID := map[uuid.UUID]*model.Entity{a.ID: a, b.ID: b}

	paths := findPaths(a.ID, b.ID, adj, entityByID, 4, 0.05)
	assert.Empty(t, paths)
}

func TestScorePath_DecaysWithLength(t *testing.T) {
	a := entity("Alpha", 1.0)
	b := entity("Beta", 1.0)
	c := entity("Gamma", 1.0)
	r1 := relation(a, b, "p1", 1.0)
	r2 := relation(b, c, "p2", 1.0)

	entityByID := map[uuid.UUID]*model.Entity{a.ID: a, b.ID: b, c.ID: c}

	short := foundPath{nodes: []uuid.UUID{a.ID, b.ID}, edges: []*model.Relation{r1}}
	long := foundPath{nodes: []uuid.UUID{a.ID, b.ID, c.ID}, edges: []*model.Relation{r1, r2}}

	shortScore := scorePath(short, entityByID, 0.8)
	longScore := scorePath(long, entityByID, 0.8)
	assert.Greater(t, shortScore, longScore)
}

func TestExtractKeywords_CapsAtEightDistinctTokens(t *testing.T) {
	kw := extractKeywords("one two three four five six seven eight nine ten")
	assert.Len(t, kw, 8)
}
