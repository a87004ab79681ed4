package pipeline

import "github.com/o-boukoutaya/graphrag/model"

// ChunkFunc is a function that splits text into chunks with their hierarchical paths
// The path should follow ltree format (e.g., "doc.chapter1.section2.chunk3")
type ChunkFunc func(text string, basePath string) ([]ChunkWithPath, error)

// EmbedFunc is a function that generates embeddings for text
type EmbedFunc func(text string) ([]float32, error)

// ChunkWithPath represents a chunk with its hierarchical path
type ChunkWithPath struct {
	Content    string
	Path       string // ltree path
	StartPos   *int
	EndPos     *int
	ChunkIndex *int
	Metadata   map[string]interface{}
}

// Pipeline combines chunking and embedding functions. Entity/relation
// extraction is the GraphRAG domain's own concern (canonicalize/linker,
// driven by a chat provider) rather than this pipeline's, so it stops at
// producing embedded chunks.
type Pipeline struct {
	Chunker  ChunkFunc
	Embedder EmbedFunc
}

// NewPipeline creates a new processing pipeline
func NewPipeline(chunker ChunkFunc, embedder EmbedFunc) *Pipeline {
	return &Pipeline{
		Chunker:  chunker,
		Embedder: embedder,
	}
}

// Process splits text into chunks via Chunker and embeds each one via
// Embedder.
func (p *Pipeline) Process(text string, basePath string) ([]*model.Chunk, error) {
	chunksWithPath, err := p.Chunker(text, basePath)
	if err != nil {
		return nil, err
	}

	chunks := make([]*model.Chunk, 0, len(chunksWithPath))
	for _, cwp := range chunksWithPath {
		embedding, err := p.Embedder(cwp.Content)
		if err != nil {
			return nil, err
		}

		chunks = append(chunks, &model.Chunk{
			Content:    cwp.Content,
			Path:       cwp.Path,
			Embedding:  embedding,
			StartPos:   cwp.StartPos,
			EndPos:     cwp.EndPos,
			ChunkIndex: cwp.ChunkIndex,
			Metadata:   cwp.Metadata,
		})
	}

	return chunks, nil
}
