// Package providers models LLM and embedding backends as small capability
// records rather than a class hierarchy: callers depend on the Chat and
// Embedding interfaces, never on a concrete vendor type, so swapping
// providers is a configuration change, not a type switch.
package providers

import "context"

// Chat asks a language model to complete a prompt. Implementations must
// tolerate providers that wrap JSON answers in prose or code fences;
// callers extract structured data with the jsonx package.
type Chat interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// Embedding turns text into vectors. Dimension is fixed per concrete
// provider/model and is never assumed by callers; it is read once at
// index-creation time via Dimension.
type Embedding interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Family identifies a provider's tokenization family for budget.RatioFor.
type Family string

const (
	FamilyGPT    Family = "gpt"
	FamilyGemini Family = "gemini"
	FamilyOther  Family = "default"
)

// ChatConfig configures a Chat implementation.
type ChatConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Family  Family
}
