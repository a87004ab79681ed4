package community

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/o-boukoutaya/graphrag/model"
)

func TestWire_ConnectsOverlappingCommunitiesAcrossLevels(t *testing.T) {
	e1, e2, e3 := uuid.New(), uuid.New(), uuid.New()
	loCID, hiCID1, hiCID2 := uuid.New(), uuid.New(), uuid.New()

	lo := LevelResult{
		Level:       0,
		Communities: []*model.Community{{CID: loCID, Level: 0}},
		Memberships: []*model.Membership{
			{EntityID: e1, CID: loCID, Level: 0},
			{EntityID: e2, CID: loCID, Level: 0},
			{EntityID: e3, CID: loCID, Level: 0},
		},
	}
	hi := LevelResult{
		Level:       1,
		Communities: []*model.Community{{CID: hiCID1, Level: 1}, {CID: hiCID2, Level: 1}},
		Memberships: []*model.Membership{
			{EntityID: e1, CID: hiCID1, Level: 1},
			{EntityID: e2, CID: hiCID1, Level: 1},
			{EntityID: e3, CID: hiCID2, Level: 1},
		},
	}

	edges := NewWirer().Wire("series-1", []LevelResult{lo, hi})
	require.Len(t, edges, 2)

	byHi := make(map[uuid.UUID]int)
	for _, e := range edges {
		assert.Equal(t, loCID, e.CIDLo)
		assert.Equal(t, 0, e.From)
		assert.Equal(t, 1, e.To)
		byHi[e.CIDHi] = e.Overlap
	}
	assert.Equal(t, 2, byHi[hiCID1])
	assert.Equal(t, 1, byHi[hiCID2])
}

func TestWire_SingleLevelProducesNoEdges(t *testing.T) {
	edges := NewWirer().Wire("series-1", []LevelResult{{Level: 0}})
	assert.Empty(t, edges)
}
