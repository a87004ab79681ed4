package providers

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/o-boukoutaya/graphrag/helper"
)

// OpenAIChat is the Chat capability backed by openai-go's chat completions
// endpoint. It is the default concrete Chat implementation; any other
// OpenAI-compatible endpoint (Azure, a local vLLM gateway) is reached the
// same way via ChatConfig.BaseURL.
type OpenAIChat struct {
	client *openai.Client
	model  string
}

// NewOpenAIChat builds an OpenAIChat from cfg.
func NewOpenAIChat(cfg ChatConfig) (*OpenAIChat, error) {
	if cfg.APIKey == "" {
		return nil, helper.NewKindError("build openai chat client", helper.KindConfigInvalid, fmt.Errorf("APIKey is required"))
	}
	if cfg.Model == "" {
		return nil, helper.NewKindError("build openai chat client", helper.KindConfigInvalid, fmt.Errorf("Model is required"))
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := openai.NewClient(opts...)
	return &OpenAIChat{client: &client, model: cfg.Model}, nil
}

// Ask sends prompt as a single user message and returns the first choice's
// text.
func (c *OpenAIChat) Ask(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", helper.NewKindError("chat completion", helper.KindProviderUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", helper.NewKindError("chat completion", helper.KindProviderUnavailable, fmt.Errorf("provider returned no choices"))
	}
	return resp.Choices[0].Message.Content, nil
}

// OpenAIEmbedding is the Embedding capability backed by openai-go's
// embeddings endpoint.
type OpenAIEmbedding struct {
	client *openai.Client
	model  string
	dim    int
}

// EmbeddingConfig configures an OpenAIEmbedding.
type EmbeddingConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	Dimension int
}

// NewOpenAIEmbedding builds an OpenAIEmbedding from cfg.
func NewOpenAIEmbedding(cfg EmbeddingConfig) (*OpenAIEmbedding, error) {
	if cfg.APIKey == "" {
		return nil, helper.NewKindError("build openai embedding client", helper.KindConfigInvalid, fmt.Errorf("APIKey is required"))
	}
	if cfg.Model == "" {
		return nil, helper.NewKindError("build openai embedding client", helper.KindConfigInvalid, fmt.Errorf("Model is required"))
	}
	if cfg.Dimension <= 0 {
		return nil, helper.NewKindError("build openai embedding client", helper.KindConfigInvalid, fmt.Errorf("Dimension must be positive"))
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := openai.NewClient(opts...)
	return &OpenAIEmbedding{client: &client, model: cfg.Model, dim: cfg.Dimension}, nil
}

func (e *OpenAIEmbedding) Dimension() int { return e.dim }

func (e *OpenAIEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *OpenAIEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: e.model,
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	})
	if err != nil {
		return nil, helper.NewKindError("embeddings request", helper.KindProviderUnavailable, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, helper.NewKindError("embeddings request", helper.KindProviderUnavailable,
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data)))
	}

	out := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, f := range d.Embedding {
			vec[j] = float32(f)
		}
		out[d.Index] = vec
	}
	return out, nil
}
