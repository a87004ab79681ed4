package model

import "github.com/google/uuid"

// Graph is the in-memory projection CommunityDetector runs modularity
// optimization over, loaded by GraphStore.RunProjection from a series'
// entities and relations.
type Graph struct {
	Nodes map[uuid.UUID]*Node
	Edges []*GraphEdge
}

// Node mirrors an Entity with the adjacency CommunityDetector needs: its
// neighbor ids and current community assignment at the level being
// computed.
type Node struct {
	ID        uuid.UUID
	Type      string
	Community uuid.UUID
	Neighbors []uuid.UUID
}

// GraphEdge is an undirected, weighted view of a Relation for modularity
// purposes: weight defaults to the relation's confidence.
type GraphEdge struct {
	Source uuid.UUID
	Target uuid.UUID
	Weight float64
}

// NewGraph builds a Graph projection from a series' entities and
// relations, wiring up bidirectional adjacency lists.
func NewGraph(entities []*Entity, relations []*Relation) *Graph {
	g := &Graph{
		Nodes: make(map[uuid.UUID]*Node, len(entities)),
		Edges: make([]*GraphEdge, 0, len(relations)),
	}

	for _, e := range entities {
		g.Nodes[e.ID] = &Node{ID: e.ID, Type: e.Type, Community: e.ID}
	}

	for _, r := range relations {
		src, srcOK := g.Nodes[r.SrcID]
		dst, dstOK := g.Nodes[r.DstID]
		if !srcOK || !dstOK {
			continue
		}

		weight := r.Conf
		if weight <= 0 {
			weight = 1
		}
		g.Edges = append(g.Edges, &GraphEdge{Source: r.SrcID, Target: r.DstID, Weight: weight})

		src.Neighbors = append(src.Neighbors, r.DstID)
		dst.Neighbors = append(dst.Neighbors, r.SrcID)
	}

	return g
}

// Degree returns the number of edges touching id.
func (g *Graph) Degree(id uuid.UUID) int {
	if n, ok := g.Nodes[id]; ok {
		return len(n.Neighbors)
	}
	return 0
}
