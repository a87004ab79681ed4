// Package community implements hierarchical, multi-resolution community
// detection over a series' knowledge graph, and the PARENT-edge wiring
// between consecutive levels.
package community

import (
	"sort"

	"github.com/google/uuid"

	"github.com/o-boukoutaya/graphrag/model"
)

// MaxIterations bounds the local-move loop so a pathological graph cannot
// spin forever; real graphs converge in a handful of passes.
const MaxIterations = 100

// LevelResult is one resolution level's output: every community discovered
// and each entity's membership in exactly one of them.
type LevelResult struct {
	Level       int
	Communities []*model.Community
	Memberships []*model.Membership
}

// Detector runs modularity-optimizing community detection over an
// in-memory graph projection. It never touches the store: GraphStore.
// RunProjection loads the graph, and the caller persists LevelResults via
// GraphStore.ReplaceLevel.
type Detector struct {
	// BaseResolution is resolution in the level formula γ_ℓ =
	// BaseResolution · (1 + 0.5·ℓ). Higher ℓ ⇒ finer communities.
	BaseResolution float64
}

// New builds a Detector at the given base resolution.
func New(baseResolution float64) *Detector {
	if baseResolution <= 0 {
		baseResolution = 1.0
	}
	return &Detector{BaseResolution: baseResolution}
}

// DetectLevels computes `levels` independent partitions of g, one per
// resolution level, re-optimizing from the same base projection each time
// rather than refining the previous level's partition.
func (d *Detector) DetectLevels(series string, g *model.Graph, levels int) []LevelResult {
	nodes := sortedNodeIDs(g)
	adjacency, degree, totalWeight := weightedAdjacency(g)

	out := make([]LevelResult, 0, levels)
	for level := 0; level < levels; level++ {
		resolution := d.BaseResolution * (1 + 0.5*float64(level))
		assignment := localMove(nodes, adjacency, degree, totalWeight, resolution)
		out = append(out, buildLevelResult(series, level, nodes, assignment))
	}
	return out
}

// buildLevelResult converts a node→representative assignment into
// Community/Membership rows, minting a fresh opaque CID per distinct
// representative (community ids are never stable across runs).
func buildLevelResult(series string, level int, nodes []uuid.UUID, assignment map[uuid.UUID]uuid.UUID) LevelResult {
	cidByRep := make(map[uuid.UUID]uuid.UUID)
	var communities []*model.Community
	var memberships []*model.Membership

	for _, n := range nodes {
		rep := assignment[n]
		cid, ok := cidByRep[rep]
		if !ok {
			cid = uuid.New()
			cidByRep[rep] = cid
			communities = append(communities, &model.Community{CID: cid, Series: series, Level: level})
		}
		memberships = append(memberships, &model.Membership{EntityID: n, CID: cid, Series: series, Level: level})
	}

	return LevelResult{Level: level, Communities: communities, Memberships: memberships}
}

// localMove runs a single-resolution Louvain-style local-move loop: each
// pass visits every node and relocates it to whichever neighboring
// community maximizes weighted modularity gain, stopping once a full pass
// makes no move.
func localMove(nodes []uuid.UUID, adjacency map[uuid.UUID]map[uuid.UUID]float64, degree map[uuid.UUID]float64, totalWeight, resolution float64) map[uuid.UUID]uuid.UUID {
	assignment := make(map[uuid.UUID]uuid.UUID, len(nodes))
	communityDegree := make(map[uuid.UUID]float64, len(nodes))
	for _, n := range nodes {
		assignment[n] = n
		communityDegree[n] = degree[n]
	}

	if totalWeight <= 0 {
		return assignment
	}

	for iter := 0; iter < MaxIterations; iter++ {
		improved := false

		for _, node := range nodes {
			current := assignment[node]

			neighborWeight := make(map[uuid.UUID]float64)
			for neighbor, w := range adjacency[node] {
				neighborWeight[assignment[neighbor]] += w
			}

			communityDegree[current] -= degree[node]

			bestCommunity := current
			bestGain := modularityGain(neighborWeight[current], degree[node], communityDegree[current], totalWeight, resolution)

			for comm, edgeWeight := range neighborWeight {
				if comm == current {
					continue
				}
				g := modularityGain(edgeWeight, degree[node], communityDegree[comm], totalWeight, resolution)
				if g > bestGain {
					bestGain = g
					bestCommunity = comm
				}
			}

			communityDegree[bestCommunity] += degree[node]
			if bestCommunity != current {
				assignment[node] = bestCommunity
				improved = true
			}
		}

		if !improved {
			break
		}
	}

	return assignment
}

// modularityGain scores moving a node of weighted degree nodeDegree into a
// community with edgeWeightToCommunity worth of ties to it and
// communityDegree total weighted degree (excluding the node itself).
func modularityGain(edgeWeightToCommunity, nodeDegree, communityDegree, totalWeight, resolution float64) float64 {
	return edgeWeightToCommunity - resolution*nodeDegree*communityDegree/(2*totalWeight)
}

// weightedAdjacency builds an undirected adjacency list and per-node
// weighted degree from g's edges, summing weight when parallel edges exist.
func weightedAdjacency(g *model.Graph) (map[uuid.UUID]map[uuid.UUID]float64, map[uuid.UUID]float64, float64) {
	adjacency := make(map[uuid.UUID]map[uuid.UUID]float64, len(g.Nodes))
	degree := make(map[uuid.UUID]float64, len(g.Nodes))
	for id := range g.Nodes {
		adjacency[id] = make(map[uuid.UUID]float64)
	}

	var totalWeight float64
	for _, e := range g.Edges {
		if _, ok := g.Nodes[e.Source]; !ok {
			continue
		}
		if _, ok := g.Nodes[e.Target]; !ok {
			continue
		}
		adjacency[e.Source][e.Target] += e.Weight
		adjacency[e.Target][e.Source] += e.Weight
		degree[e.Source] += e.Weight
		degree[e.Target] += e.Weight
		totalWeight += e.Weight
	}

	return adjacency, degree, totalWeight
}

// sortedNodeIDs returns g's node ids in a fixed, deterministic order so
// repeated runs over the same graph visit nodes identically.
func sortedNodeIDs(g *model.Graph) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}
