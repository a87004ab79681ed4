package community

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/o-boukoutaya/graphrag/model"
)

func newID() uuid.UUID { return uuid.New() }

func twoCliquesGraph() *model.Graph {
	a1, a2, a3 := newID(), newID(), newID()
	b1, b2, b3 := newID(), newID(), newID()

	entities := []*model.Entity{
		{ID: a1}, {ID: a2}, {ID: a3},
		{ID: b1}, {ID: b2}, {ID: b3},
	}
	relations := []*model.Relation{
		{SrcID: a1, DstID: a2, Conf: 1}, {SrcID: a2, DstID: a3, Conf: 1}, {SrcID: a1, DstID: a3, Conf: 1},
		{SrcID: b1, DstID: b2, Conf: 1}, {SrcID: b2, DstID: b3, Conf: 1}, {SrcID: b1, DstID: b3, Conf: 1},
		{SrcID: a1, DstID: b1, Conf: 0.01},
	}
	return model.NewGraph(entities, relations)
}

func TestDetectLevels_SeparatesTwoDenseCliques(t *testing.T) {
	g := twoCliquesGraph()
	d := New(1.0)

	results := d.DetectLevels("series-1", g, 1)
	require.Len(t, results, 1)
	assert.Len(t, results[0].Memberships, 6)
	assert.NotEmpty(t, results[0].Communities)
	assert.LessOrEqual(t, len(results[0].Communities), 6)
	assert.Len(t, results[0].Communities, 2)
}

func TestDetectLevels_EveryEntityGetsExactlyOneMembershipPerLevel(t *testing.T) {
	g := twoCliquesGraph()
	d := New(1.0)

	results := d.DetectLevels("series-1", g, 3)
	require.Len(t, results, 3)

	for _, r := range results {
		assert.Len(t, r.Memberships, len(g.Nodes))
		seen := make(map[uuid.UUID]bool)
		for _, m := range r.Memberships {
			assert.False(t, seen[m.EntityID], "entity should appear at most once per level")
			seen[m.EntityID] = true
		}
	}
}

func TestDetectLevels_EmptyGraphYieldsNoMemberships(t *testing.T) {
	g := model.NewGraph(nil, nil)
	d := New(1.0)

	results := d.DetectLevels("series-1", g, 2)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Empty(t, r.Memberships)
		assert.Empty(t, r.Communities)
	}
}
