package build

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/o-boukoutaya/graphrag/chunkstore"
)

type fakeChat struct {
	fallback string
}

func (f *fakeChat) Ask(ctx context.Context, prompt string) (string, error) {
	return f.fallback, nil
}

const extractionJSON = `{"entities":[{"name":"Acme","type":"org","conf":0.9}],"relations":[]}`

func TestCanonicalizeChunks_MergesRepeatedEntityAcrossChunks(t *testing.T) {
	store := chunkstore.NewMemoryStore()
	store.Put("s1",
		chunkstore.Chunk{CID: "c1", Text: "Acme announced a new product."},
		chunkstore.Chunk{CID: "c2", Text: "Acme is based in Paris."},
	)

	chat := &fakeChat{fallback: extractionJSON}
	o := New(store, nil, chat, nil, nil)

	entities, _, chunksIn, skipped, err := o.canonicalizeChunks(context.Background(), "s1", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, chunksIn)
	assert.Empty(t, skipped)
	require.Len(t, entities, 1)
	assert.Equal(t, "Acme", entities[0].Name)
	assert.ElementsMatch(t, []string{"c1", "c2"}, entities[0].CIDs)
}

func TestCanonicalizeChunks_NonJSONOutputYieldsEmptyExtraction(t *testing.T) {
	store := chunkstore.NewMemoryStore()
	store.Put("s1", chunkstore.Chunk{CID: "c1", Text: "Acme announced a new product."})

	chat := &fakeChat{fallback: "not json at all, nor does it parse"}
	o := New(store, nil, chat, nil, nil)

	entities, relations, chunksIn, skipped, err := o.canonicalizeChunks(context.Background(), "s1", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, chunksIn)
	assert.Empty(t, entities)
	assert.Empty(t, relations)
	assert.Empty(t, skipped)
}

func TestCanonicalizeChunks_EmptySeriesYieldsNoEntities(t *testing.T) {
	store := chunkstore.NewMemoryStore()
	chat := &fakeChat{fallback: extractionJSON}
	o := New(store, nil, chat, nil, nil)

	entities, relations, chunksIn, skipped, err := o.canonicalizeChunks(context.Background(), "empty-series", 2)
	require.NoError(t, err)
	assert.Equal(t, 0, chunksIn)
	assert.Empty(t, entities)
	assert.Empty(t, relations)
	assert.Empty(t, skipped)
}
