package graphrag

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/o-boukoutaya/graphrag/model"
)

type fakeSummaryStore struct {
	byLevel map[int][]*model.Summary
}

func (f *fakeSummaryStore) SummariesByLevel(ctx context.Context, series string, level int) ([]*model.Summary, error) {
	return f.byLevel[level], nil
}

type fakeChat struct {
	mu        sync.Mutex
	responses []string
	calls     int
}

func (f *fakeChat) Ask(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls >= len(f.responses) {
		return f.responses[len(f.responses)-1], nil
	}
	r := f.responses[f.calls]
	f.calls++
	return r, nil
}

func summaryRow(level int, text string) *model.Summary {
	return &model.Summary{ID: uuid.New(), Series: "s1", CID: uuid.New(), Level: level, Kind: "summary", Text: text}
}

func TestAnswer_SeedsByKeywordOverlapWithoutEmbedding(t *testing.T) {
	a := summaryRow(0, "Paris is the capital of France and hosts the Eiffel Tower.")
	b := summaryRow(0, "Bananas are a tropical fruit rich in potassium.")
	store := &fakeSummaryStore{byLevel: map[int][]*model.Summary{0: {a, b}}}

	chat := &fakeChat{responses: []string{
		`{"partial_answer":"Paris is the capital.","confidence":0.9,"evidence":[]}`,
		`{"answer":"Paris is the capital of France.","used":["` + a.ID.String() + `"],"confidence":0.9}`,
	}}

	// One worker keeps the map calls in candidate order, so the scripted
	// replies reach a, then b, then the reduce step.
	opts := DefaultOptions()
	opts.Parallelism = 1

	e := New(store, chat, nil)
	bundle, err := e.Answer(context.Background(), "s1", "What is the capital of France?", opts)
	require.NoError(t, err)
	assert.Equal(t, model.ModeGraph, bundle.ModeUsed)
	assert.Equal(t, "Paris is the capital of France.", bundle.Answer)
	require.Len(t, bundle.Citations, 1)
	gc, ok := bundle.Citations[0].(model.GraphCitation)
	require.True(t, ok)
	assert.Equal(t, a.ID, gc.ID)
}

func TestAnswer_NoCandidatesReturnsEmptyBundle(t *testing.T) {
	store := &fakeSummaryStore{byLevel: map[int][]*model.Summary{}}
	chat := &fakeChat{responses: []string{"unused"}}

	e := New(store, chat, nil)
	bundle, err := e.Answer(context.Background(), "s1", "anything", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "", bundle.Answer)
	assert.Empty(t, bundle.Citations)
}

func TestAnswer_MapFallsBackOnNonJSONOutput(t *testing.T) {
	a := summaryRow(0, "Rivers carry fresh water from mountains to the sea.")
	store := &fakeSummaryStore{byLevel: map[int][]*model.Summary{0: {a}}}

	chat := &fakeChat{responses: []string{
		"Rivers flow downhill.",
		`{"answer":"Rivers flow downhill to the sea.","used":["` + a.ID.String() + `"],"confidence":0.5}`,
	}}

	e := New(store, chat, nil)
	bundle, err := e.Answer(context.Background(), "s1", "how do rivers flow", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "Rivers flow downhill to the sea.", bundle.Answer)
}

func TestAnswer_ReduceFallsBackOnNonJSONOutput(t *testing.T) {
	a := summaryRow(0, "Solar panels convert sunlight into electricity.")
	store := &fakeSummaryStore{byLevel: map[int][]*model.Summary{0: {a}}}

	chat := &fakeChat{responses: []string{
		`{"partial_answer":"Solar panels generate power from sunlight.","confidence":0.8,"evidence":[]}`,
		"I cannot answer that right now.",
	}}

	e := New(store, chat, nil)
	bundle, err := e.Answer(context.Background(), "s1", "how do solar panels work", DefaultOptions())
	require.NoError(t, err)
	assert.Contains(t, bundle.Answer, "Solar panels generate power from sunlight.")
	require.Len(t, bundle.Citations, 1)
}

func TestAnswer_CandidateCapLimitsSeedCount(t *testing.T) {
	byLevel := map[int][]*model.Summary{0: {}}
	for i := 0; i < 20; i++ {
		byLevel[0] = append(byLevel[0], summaryRow(0, "unrelated filler text about nothing in particular"))
	}
	store := &fakeSummaryStore{byLevel: byLevel}
	chat := &fakeChat{responses: []string{
		`{"partial_answer":"n/a","confidence":0.1,"evidence":[]}`,
		`{"answer":"n/a","used":[],"confidence":0.1}`,
	}}

	opts := DefaultOptions()
	opts.CandidateCap = 3
	e := New(store, chat, nil)
	bundle, err := e.Answer(context.Background(), "s1", "irrelevant query", opts)
	require.NoError(t, err)
	assert.Equal(t, model.ModeGraph, bundle.ModeUsed)
}
