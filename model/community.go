package model

import "github.com/google/uuid"

// Community is a cluster of entities discovered by CommunityDetector at a
// given resolution level. Cid is treated as opaque and MAY change across
// runs (see SPEC_FULL.md's Open Questions decision); only (Series, Level,
// CID) together are a stable identity within a single build.
type Community struct {
	CID     uuid.UUID `json:"cid"`
	Series  string    `json:"series"`
	Level   int       `json:"level"`
	Summary string    `json:"summary,omitempty"`
}

// Membership is the IN_COMMUNITY{series,level} edge from an Entity to the
// Community it belongs to at that level. An entity has exactly one
// membership per level it participates in.
type Membership struct {
	EntityID uuid.UUID `json:"entity_id"`
	CID      uuid.UUID `json:"cid"`
	Series   string    `json:"series"`
	Level    int       `json:"level"`
}

// ParentEdge is the PARENT{series,from,to,overlap} edge connecting a
// community at level `from` to the community it rolls up into at level
// `from+1`, annotated with the member-overlap count that justified it.
type ParentEdge struct {
	Series  string    `json:"series"`
	From    int       `json:"from"`
	To      int       `json:"to"`
	CIDLo   uuid.UUID `json:"cid_lo"`
	CIDHi   uuid.UUID `json:"cid_hi"`
	Overlap int       `json:"overlap"`
}

// Summary is the natural-language artifact CommunitySummarizer produces
// for a Community at a given level.
type Summary struct {
	ID     uuid.UUID `json:"id"`
	Series string    `json:"series"`
	CID    uuid.UUID `json:"community_id"`
	Level  int       `json:"level"`
	Kind   string    `json:"kind"`
	Text   string    `json:"text"`
	Tokens int       `json:"tokens"`
	Vec    []float32 `json:"vec,omitempty"`
}
