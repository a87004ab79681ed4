package community

import (
	"sort"

	"github.com/google/uuid"

	"github.com/o-boukoutaya/graphrag/model"
)

// Wirer computes PARENT edges between every pair of consecutive levels.
type Wirer struct{}

// NewWirer builds a Wirer.
func NewWirer() *Wirer { return &Wirer{} }

// Wire produces PARENT{from,to,overlap} edges for every consecutive pair of
// levels in results (already sorted by Level by DetectLevels): an edge
// connects a lo-community to a hi-community whenever at least one entity
// belongs to both, with overlap set to the shared member count.
func (w *Wirer) Wire(series string, results []LevelResult) []*model.ParentEdge {
	var edges []*model.ParentEdge

	for i := 0; i+1 < len(results); i++ {
		lo, hi := results[i], results[i+1]
		loOf := membershipIndex(lo.Memberships)
		hiOf := membershipIndex(hi.Memberships)

		overlap := make(map[[2]uuid.UUID]int)
		for entity, loCID := range loOf {
			hiCID, ok := hiOf[entity]
			if !ok {
				continue
			}
			overlap[[2]uuid.UUID{loCID, hiCID}]++
		}

		keys := make([][2]uuid.UUID, 0, len(overlap))
		for k := range overlap {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(a, b int) bool {
			if keys[a][0] != keys[b][0] {
				return keys[a][0].String() < keys[b][0].String()
			}
			return keys[a][1].String() < keys[b][1].String()
		})

		for _, k := range keys {
			edges = append(edges, &model.ParentEdge{
				Series: series, From: lo.Level, To: hi.Level,
				CIDLo: k[0], CIDHi: k[1], Overlap: overlap[k],
			})
		}
	}

	return edges
}

func membershipIndex(memberships []*model.Membership) map[uuid.UUID]uuid.UUID {
	idx := make(map[uuid.UUID]uuid.UUID, len(memberships))
	for _, m := range memberships {
		idx[m.EntityID] = m.CID
	}
	return idx
}
