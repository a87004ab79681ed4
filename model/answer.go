package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// AnswerMode names which engine produced an AnswerBundle. It drives the
// shape of Citations: the mode determines which Citation variant is valid.
type AnswerMode string

const (
	ModeGraph  AnswerMode = "graph"
	ModePath   AnswerMode = "path"
	ModeVector AnswerMode = "vector"
)

// Citation is a tagged variant: GraphRAG, PathRAG and the vector fallback
// each cite evidence shaped differently, so AnswerBundle.Citations holds
// whichever concrete type matches AnswerBundle.ModeUsed.
type Citation interface {
	citation()
}

// GraphCitation points at a community summary passage used in a map-reduce
// answer.
type GraphCitation struct {
	ID      uuid.UUID `json:"id"`
	Snippet string    `json:"snippet"`
}

func (GraphCitation) citation() {}

func (c GraphCitation) MarshalJSON() ([]byte, error) {
	type wire struct {
		Kind    string    `json:"kind"`
		ID      uuid.UUID `json:"id"`
		Snippet string    `json:"snippet"`
	}
	return json.Marshal(wire{Kind: string(ModeGraph), ID: c.ID, Snippet: c.Snippet})
}

// PathCitation records the scored graph path that grounded an answer.
type PathCitation struct {
	Score   float64
	NodeIDs []uuid.UUID
	EdgeIDs []uuid.UUID
}

func (PathCitation) citation() {}

func (c PathCitation) MarshalJSON() ([]byte, error) {
	type wire struct {
		Kind    string      `json:"kind"`
		Score   float64     `json:"path_score"`
		NodeIDs []uuid.UUID `json:"node_ids"`
		EdgeIDs []uuid.UUID `json:"edge_ids"`
	}
	return json.Marshal(wire{Kind: string(ModePath), Score: c.Score, NodeIDs: c.NodeIDs, EdgeIDs: c.EdgeIDs})
}

// VectorCitation points at a chunk returned by the dense fallback.
type VectorCitation struct {
	CID   string
	Doc   string
	Page  int
	Score float64
}

func (VectorCitation) citation() {}

func (c VectorCitation) MarshalJSON() ([]byte, error) {
	type wire struct {
		Kind  string  `json:"kind"`
		CID   string  `json:"cid"`
		Doc   string  `json:"doc"`
		Page  int     `json:"page,omitempty"`
		Score float64 `json:"score"`
	}
	return json.Marshal(wire{Kind: string(ModeVector), CID: c.CID, Doc: c.Doc, Page: c.Page, Score: c.Score})
}

// TokenUsage reports the cost of producing an AnswerBundle. No engine in
// this module fills it in, so every returned bundle carries zero usage.
type TokenUsage struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}

// AnswerBundle is the uniform response shape returned by every engine
// (GraphRAG, PathRAG, Vector), regardless of which one actually ran.
type AnswerBundle struct {
	Series    string     `json:"series"`
	Query     string     `json:"query"`
	ModeUsed  AnswerMode `json:"mode_used"`
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations,omitempty"`
	Usage     TokenUsage `json:"usage"`
}
