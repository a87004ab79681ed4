// Command graphrag demonstrates the GraphRAG facade end to end: it reuses
// the existing document pipeline to chunk and store a couple of documents,
// then points a fresh GraphRAG at the same database to build the knowledge
// graph, community hierarchy and search index, and finally answers
// questions through all three retrieval modes.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	grapher "github.com/o-boukoutaya/graphrag"
	"github.com/o-boukoutaya/graphrag/helper"
	"github.com/o-boukoutaya/graphrag/model"
	"github.com/o-boukoutaya/graphrag/providers"
)

const docAcme = `Acme Corporation was founded in Paris in 1998 by Jane Doe.
Acme acquired Widget Inc in 2005, expanding into the hardware market.
Jane Doe later became the chief executive of Widget Inc as well.`

const docWidget = `Widget Inc builds components for the automotive industry.
It was headquartered in Lyon before the Acme acquisition moved its
offices to Paris, where it now shares a campus with Acme Corporation.`

func main() {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Fatal("OPENAI_API_KEY must be set: GraphRAG's canonicalize/link/summarize stages need a chat provider")
	}

	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("failed to start postgres container: %v", err)
	}
	defer teardown(context.Background())

	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	// Reuse the existing chunking pipeline to populate the chunks table.
	// Its default embedder is all-MiniLM-L6-v2 (384 dimensions), so every
	// handler touching the chunks table below is sized to match.
	const embeddingDim = 384

	ingest, err := grapher.NewGrapher(dbConfig, embeddingDim)
	if err != nil {
		log.Fatalf("failed to create grapher: %v", err)
	}
	if err := ingest.UseDefaultPipeline(); err != nil {
		log.Fatalf("failed to set up pipeline: %v", err)
	}
	for _, doc := range []*model.Document{
		{Title: "Acme Corporation", Source: "acme", Content: docAcme},
		{Title: "Widget Inc", Source: "widget", Content: docWidget},
	} {
		if _, err := ingest.ProcessAndInsertDocument(doc); err != nil {
			log.Fatalf("failed to ingest %q: %v", doc.Title, err)
		}
	}
	ingest.Close()

	chat, err := providers.NewOpenAIChat(providers.ChatConfig{
		APIKey: apiKey,
		Model:  "gpt-4o-mini",
		Family: providers.FamilyGPT,
	})
	if err != nil {
		log.Fatalf("failed to create chat provider: %v", err)
	}
	embedding, err := providers.NewHugotEmbedding("sentence-transformers/all-MiniLM-L6-v2", "", embeddingDim)
	if err != nil {
		log.Fatalf("failed to create embedding provider: %v", err)
	}

	g, err := grapher.New(dbConfig, embeddingDim, chat, embedding)
	if err != nil {
		log.Fatalf("failed to create graphrag: %v", err)
	}
	defer g.Close()

	ctx := context.Background()
	const series = "acme-widget"

	fmt.Println("Building knowledge graph...")
	report, err := g.Build(ctx, series, model.BuildOptions{MaxLevels: 2})
	if err != nil {
		log.Fatalf("build failed: %v", err)
	}
	fmt.Printf("entities=%d relations=%d communities=%d summaries=%d skipped=%d\n",
		report.EntitiesOut, report.RelationsOut, report.CommunitiesOut, report.SummariesOut, len(report.Skipped))

	questions := []struct {
		text string
		mode model.QueryMode
	}{
		{"What is Acme Corporation's relationship to Widget Inc?", model.QueryModeGraph},
		{"How is Jane Doe connected to Widget Inc through Acme?", model.QueryModePath},
		{"Where was Widget Inc headquartered before the acquisition?", model.QueryModeVector},
	}

	for _, q := range questions {
		opts := model.DefaultQueryOptions(series)
		opts.Mode = q.mode
		bundle, err := g.Query(ctx, series, q.text, opts)
		if err != nil {
			log.Fatalf("query failed: %v", err)
		}
		fmt.Printf("\nQ: %s\nmode=%s citations=%d\nA: %s\n", q.text, bundle.ModeUsed, len(bundle.Citations), bundle.Answer)
	}

	fmt.Println("\nRaw vector search (debug view):")
	hits, err := g.Search(ctx, series, "acquisition", 3)
	if err != nil {
		log.Fatalf("search failed: %v", err)
	}
	for _, h := range hits {
		fmt.Printf("  [%.3f] %s\n", h.Score, h.Chunk.Text)
	}
}
