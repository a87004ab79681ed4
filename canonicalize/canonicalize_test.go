package canonicalize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChat struct {
	response string
	err      error
}

func (f *fakeChat) Ask(ctx context.Context, prompt string) (string, error) {
	return f.response, f.err
}

func TestCanonicalize_ExtractsEntitiesAndRelations(t *testing.T) {
	chat := &fakeChat{response: `here you go:
{"entities":[{"name":"Alice","type":"person","desc":"engineer","conf":0.9},{"name":"Acme Corp","type":"organization","desc":"a company","conf":0.8}],"relations":[{"src":"Alice","pred":"works_at","dst":"Acme Corp","conf":0.7}]}`}
	c := New(chat, nil)

	res, err := c.Canonicalize(context.Background(), "series-1", "chunk-1", "Alice works at Acme Corp.", DefaultOptions())
	require.NoError(t, err)
	require.Len(t, res.Entities, 2)
	require.Len(t, res.Relations, 1)

	rel := res.Relations[0]
	assert.Equal(t, "works_at", rel.Pred)
	assert.Contains(t, rel.CIDs, "chunk-1")
}

func TestCanonicalize_DropsBelowMinConf(t *testing.T) {
	chat := &fakeChat{response: `{"entities":[{"name":"Alice","type":"person","conf":0.1}],"relations":[]}`}
	c := New(chat, nil)

	res, err := c.Canonicalize(context.Background(), "series-1", "chunk-1", "some text", DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, res.Entities)
}

func TestCanonicalize_NonJSONOutputIsEmptyExtraction(t *testing.T) {
	chat := &fakeChat{response: "I cannot help with that."}
	c := New(chat, nil)

	res, err := c.Canonicalize(context.Background(), "series-1", "chunk-1", "some text", DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, res.Entities)
	assert.Empty(t, res.Relations)
}

func TestCanonicalize_EmptyChunkIsSkipped(t *testing.T) {
	chat := &fakeChat{response: "should never be called"}
	c := New(chat, nil)

	res, err := c.Canonicalize(context.Background(), "series-1", "chunk-1", "   ", DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, res.Entities)
}

func TestCanonicalize_RepeatedEntityWithinOneCallMerges(t *testing.T) {
	chat := &fakeChat{response: `{"entities":[
		{"name":"Alice","type":"person","desc":"short","conf":0.5},
		{"name":"alice","type":"person","desc":"a longer description","conf":0.9}
	],"relations":[]}`}
	c := New(chat, nil)

	res, err := c.Canonicalize(context.Background(), "series-1", "chunk-1", "text", DefaultOptions())
	require.NoError(t, err)
	require.Len(t, res.Entities, 1)
	assert.Equal(t, "a longer description", res.Entities[0].Desc)
	assert.InDelta(t, 0.9, res.Entities[0].Conf, 1e-9)
}
