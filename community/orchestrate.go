package community

import (
	"context"

	"github.com/o-boukoutaya/graphrag/model"
)

// Store is the persistence surface community detection needs; GraphStore
// satisfies it.
type Store interface {
	RunProjection(ctx context.Context, series string) (*model.Graph, error)
	ReplaceLevel(ctx context.Context, series string, level int, communities []*model.Community, memberships []*model.Membership) error
	ReplaceParentEdges(ctx context.Context, series string, levelFrom int, edges []*model.ParentEdge) error
}

// Stats summarizes one Run for BuildReport.
type Stats struct {
	Levels      int
	Communities int
	Memberships int
}

// Run loads series' graph projection, detects `levels` resolution levels,
// replaces each level's communities/memberships in the store, and wires
// PARENT edges between every consecutive pair of levels. The projection is
// discarded on return, success or failure.
func Run(ctx context.Context, st Store, series string, levels int, baseResolution float64) (Stats, error) {
	g, err := st.RunProjection(ctx, series)
	if err != nil {
		return Stats{}, err
	}

	detector := New(baseResolution)
	results := detector.DetectLevels(series, g, levels)

	var stats Stats
	for _, r := range results {
		if err := st.ReplaceLevel(ctx, series, r.Level, r.Communities, r.Memberships); err != nil {
			return stats, err
		}
		stats.Levels++
		stats.Communities += len(r.Communities)
		stats.Memberships += len(r.Memberships)
	}

	wirer := NewWirer()
	edges := wirer.Wire(series, results)
	edgesByFrom := make(map[int][]*model.ParentEdge)
	for _, e := range edges {
		edgesByFrom[e.From] = append(edgesByFrom[e.From], e)
	}
	for i := 0; i+1 < len(results); i++ {
		from := results[i].Level
		if err := st.ReplaceParentEdges(ctx, series, from, edgesByFrom[from]); err != nil {
			return stats, err
		}
	}

	return stats, nil
}
