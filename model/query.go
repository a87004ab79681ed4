package model

// QueryMode is the explicit engine selection a caller may force; leave
// empty to let QueryRouter decide.
type QueryMode string

const (
	QueryModeAuto   QueryMode = ""
	QueryModeGraph  QueryMode = "graph"
	QueryModePath   QueryMode = "path"
	QueryModeVector QueryMode = "vector"
)

// QueryOptions configures a single Query call across all three engines.
// Zero-valued knobs are replaced by the chosen engine's own DefaultOptions
// when GraphRAG.Query builds that engine's options; the router only picks
// the mode.
type QueryOptions struct {
	Series string    `json:"series"`
	Mode   QueryMode `json:"mode,omitempty"`

	// PathRAG knobs.
	TopNEntities int     `json:"top_n_entities,omitempty"` // N seed nodes
	TopKPaths    int     `json:"top_k_paths,omitempty"`    // K paths kept after pruning
	Alpha        float64 `json:"alpha,omitempty"`          // length decay in alpha^(L-1)
	Theta        float64 `json:"theta,omitempty"`          // min per-node/per-edge confidence to keep a path

	// GraphRAG knobs.
	MaxLevel int `json:"max_level,omitempty"`

	// Vector fallback.
	TopKChunks       int  `json:"top_k_chunks,omitempty"`
	FallbackToVector bool `json:"fallback_to_vector"`

	PromptBudget     int `json:"prompt_budget,omitempty"`
	CompletionBudget int `json:"completion_budget,omitempty"`
}

// DefaultQueryOptions returns the query defaults: vector fallback on, and
// PathRAG's own defaults of 5 seed entities, 12 kept paths, alpha=0.8,
// theta=0.05.
func DefaultQueryOptions(series string) QueryOptions {
	return QueryOptions{
		Series:           series,
		Mode:             QueryModeAuto,
		TopNEntities:     5,
		TopKPaths:        12,
		Alpha:            0.8,
		Theta:            0.05,
		MaxLevel:         0,
		TopKChunks:       8,
		FallbackToVector: true,
		PromptBudget:     6000,
		CompletionBudget: 800,
	}
}
