package grapher

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/o-boukoutaya/graphrag/core/pipeline"
	"github.com/o-boukoutaya/graphrag/database"
	"github.com/o-boukoutaya/graphrag/helper"
	"github.com/o-boukoutaya/graphrag/model"
	loadSql "github.com/o-boukoutaya/graphrag/sql"
)

// Grapher ingests documents into the chunks/documents tables that
// chunkstore.PostgresStore reads from: it chunks and embeds a document's
// content through Pipeline and inserts the result, leaving retrieval to
// GraphRAG's engines.
type Grapher struct {
	DB        *helper.Database
	Chunks    *database.ChunksDBHandler
	Documents *database.DocumentsDBHandler
	Pipeline  *pipeline.Pipeline // Optional chunking pipeline
	// Logging
	log *slog.Logger
}

// NewGrapher creates a new Grapher instance with all handlers initialized
func NewGrapher(config *helper.DatabaseConfiguration, embeddingDim int) (*Grapher, error) {
	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	// Initialize database
	db := helper.NewDatabase("grapher", config, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Create handlers in order: documents before chunks, since a chunk
	// row has a foreign key back to its document.
	// force=false to not reload if functions already exist
	documents, err := database.NewDocumentsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create documents handler", err)
	}

	chunks, err := database.NewChunksDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create chunks handler", err)
	}

	return &Grapher{
		DB:        db,
		Chunks:    chunks,
		Documents: documents,
		log:       logger,
	}, nil
}

// Close closes the database connection
func (g *Grapher) Close() error {
	if g.DB != nil && g.DB.Instance != nil {
		return g.DB.Instance.Close()
	}
	return nil
}

// SetPipeline sets the chunking pipeline for document processing
func (g *Grapher) SetPipeline(pipeline *pipeline.Pipeline) {
	g.Pipeline = pipeline
}

// UseDefaultPipeline sets up the default semantic chunking and embedding
// pipeline: DefaultChunker with 500 char max chunks and 0.7 similarity
// threshold, DefaultEmbedder with the all-MiniLM-L6-v2 model (384
// dimensions).
func (g *Grapher) UseDefaultPipeline() error {
	chunker := pipeline.DefaultChunker(500, 0.7)
	embedder, err := pipeline.DefaultEmbedder()
	if err != nil {
		return helper.NewError("create default embedder", err)
	}

	g.Pipeline = pipeline.NewPipeline(chunker, embedder)
	return nil
}

// ProcessAndInsertDocument processes a document by:
// 1. Inserting the document metadata (without content)
// 2. Processing the content into chunks using the pipeline
// 3. Inserting all chunks with the document ID
// The document's Content field is used for processing but not stored in the database.
// Returns the number of chunks inserted and any error encountered.
func (g *Grapher) ProcessAndInsertDocument(doc *model.Document) (int, error) {
	if g.Pipeline == nil {
		return 0, helper.NewError("process document", fmt.Errorf("pipeline not set, use SetPipeline() first"))
	}

	if doc.Content == "" {
		return 0, helper.NewError("process document", fmt.Errorf("document content is empty"))
	}

	// Store content temporarily and clear it before DB insert
	content := doc.Content
	doc.Content = ""

	// Insert document metadata
	if err := g.Documents.InsertDocument(doc); err != nil {
		return 0, helper.NewError("insert document", err)
	}

	g.log.Info("Inserted document", slog.String("document_id", doc.RID.String()), slog.String("title", doc.Title))

	chunks, err := g.Pipeline.Process(content, fmt.Sprintf("doc_%s", doc.RID.String()))
	if err != nil {
		return 0, helper.NewError("process chunks", err)
	}

	g.log.Info("Processed document into chunks",
		slog.Int("num_chunks", len(chunks)),
		slog.String("document_id", doc.RID.String()))

	for i, chunk := range chunks {
		chunk.DocumentID = doc.ID

		// Merge document metadata into chunk metadata
		if chunk.Metadata == nil {
			chunk.Metadata = make(model.Metadata)
		}
		for key, value := range doc.Metadata {
			// Only add if not already set by chunker
			if _, exists := chunk.Metadata[key]; !exists {
				chunk.Metadata[key] = value
			}
		}

		if err := g.Chunks.InsertChunk(chunk); err != nil {
			return i, helper.NewError(fmt.Sprintf("insert chunk %d", i), err)
		}
	}

	return len(chunks), nil
}
