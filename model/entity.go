package model

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Entity is a node in the per-series knowledge graph. Id is deterministic
// (see NodeID): merging two mentions of the same (series, name, type)
// always lands on the same row.
type Entity struct {
	ID        uuid.UUID `json:"id"`
	Series    string    `json:"series"`
	Name      string    `json:"name"`
	Type      string    `json:"entity_type"`
	Aliases   []string  `json:"aliases,omitempty"`
	Desc      string    `json:"desc,omitempty"`
	Conf      float64   `json:"conf"`
	CIDs      []string  `json:"cids,omitempty"`
	EVec      []float32 `json:"evec,omitempty"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// MergeFrom folds other into e: name/type are overwritten by the latest
// observation, desc keeps the longer non-empty value, conf takes the max,
// aliases and cids are unioned (deduplicated, sorted for determinism).
func (e *Entity) MergeFrom(other *Entity) {
	e.Name = other.Name
	e.Type = other.Type
	if len(other.Desc) > len(e.Desc) {
		e.Desc = other.Desc
	}
	if other.Conf > e.Conf {
		e.Conf = other.Conf
	}
	e.Aliases = unionSorted(e.Aliases, other.Aliases)
	e.CIDs = unionSorted(e.CIDs, other.CIDs)
}

// unionSorted merges two string sets into a deduplicated, sorted slice so
// that repeated merges are observably idempotent regardless of input order.
func unionSorted(a, b []string) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		set[s] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// MentionLink is the derived MENTIONED_IN relation between an Entity and a
// source Chunk id, built from the entity's CIDs by GraphStore.LinkMentions.
type MentionLink struct {
	EntityID uuid.UUID `json:"entity_id"`
	ChunkID  string    `json:"chunk_id"`
}

// ChunkMention is the legacy chunk-retrieval counterpart of MentionLink.
// No package in this module reads or writes it.
type ChunkMention struct {
	ChunkID      uuid.UUID `json:"chunk_id"`
	EdgeID       uuid.UUID `json:"edge_id"`
	EdgeMetadata Metadata  `json:"edge_metadata,omitempty"`
}
