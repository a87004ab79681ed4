package model

import (
	"time"

	"github.com/google/uuid"
)

// Relation is a directed edge between two Entities: {id, series, src_id,
// dst_id, pred, cids[], conf}. Id is deterministic (see StableID); pred is
// part of identity and is never normalized away.
type Relation struct {
	ID        uuid.UUID `json:"id"`
	Series    string    `json:"series"`
	SrcID     uuid.UUID `json:"src_id"`
	DstID     uuid.UUID `json:"dst_id"`
	Pred      string    `json:"pred"`
	CIDs      []string  `json:"cids,omitempty"`
	Conf      float64   `json:"conf"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// MergeFrom folds other into r: cids unioned, conf takes the max, pred is
// left untouched (it is part of r's identity already).
func (r *Relation) MergeFrom(other *Relation) {
	if other.Conf > r.Conf {
		r.Conf = other.Conf
	}
	r.CIDs = unionSorted(r.CIDs, other.CIDs)
}
