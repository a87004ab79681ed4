package router

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/o-boukoutaya/graphrag/model"
)

func TestRoute_ExplicitModeOverridesHeuristic(t *testing.T) {
	got := Route("compare these two companies", model.QueryModeVector)
	assert.Equal(t, model.QueryModeVector, got)
}

func TestRoute_CompareWordRoutesToGraph(t *testing.T) {
	got := Route("Compare the advantages and disadvantages of both approaches", model.QueryModeAuto)
	assert.Equal(t, model.QueryModeGraph, got)
}

func TestRoute_LongNonFactualQuestionRoutesToGraph(t *testing.T) {
	q := "what can you tell me broadly about the overall structure and history of this organization and its many subsidiaries"
	got := Route(q, model.QueryModeAuto)
	assert.Equal(t, model.QueryModeGraph, got)
}

func TestRoute_RelationWordRoutesToPath(t *testing.T) {
	got := Route("what is the relation between Alice and Bob", model.QueryModeAuto)
	assert.Equal(t, model.QueryModePath, got)
}

func TestRoute_FactQuestionWithNumberRoutesToPath(t *testing.T) {
	got := Route("combien de employees work there in 2024", model.QueryModeAuto)
	assert.Equal(t, model.QueryModePath, got)
}

func TestRoute_ShortFactQuestionWithoutNumberRoutesToVector(t *testing.T) {
	got := Route("qui is the CEO", model.QueryModeAuto)
	assert.Equal(t, model.QueryModeVector, got)
}
