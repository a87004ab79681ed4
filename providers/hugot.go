package providers

import (
	"context"
	"fmt"

	"github.com/knights-analytics/hugot"

	"github.com/o-boukoutaya/graphrag/helper"
)

// HugotEmbedding is the local, no-network Embedding capability: an
// ONNX sentence-transformer running in-process via hugot. It exists so a
// series can be built with embeddings enabled without an external API key.
// The session and pipeline are captured as closures rather than typed
// fields, avoiding naming hugot's internal session/pipeline types.
type HugotEmbedding struct {
	embedBatch func(texts []string) ([][]float32, error)
	destroy    func() error
	dim        int
}

// NewHugotEmbedding downloads (if needed) and loads modelName, returning a
// ready-to-use Embedding. dim is the known output dimension of modelName
// (e.g. 384 for all-MiniLM-L6-v2); it is not discovered at runtime because
// GraphStore needs it fixed before the first vector index is created.
func NewHugotEmbedding(modelName, onnxFilePath string, dim int) (*HugotEmbedding, error) {
	modelPath, err := helper.PrepareModel(modelName, onnxFilePath)
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, helper.NewError("create hugot session", err)
	}

	pipe, err := hugot.NewPipeline(session, hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "embedder-pipeline",
	})
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, helper.NewError("create embedding pipeline", fmt.Errorf("%w (cleanup error: %v)", err, destroyErr))
		}
		return nil, helper.NewError("create embedding pipeline", err)
	}

	return &HugotEmbedding{
		dim:     dim,
		destroy: session.Destroy,
		embedBatch: func(texts []string) ([][]float32, error) {
			result, err := pipe.RunPipeline(texts)
			if err != nil {
				return nil, helper.NewKindError("run embedding pipeline", helper.KindProviderUnavailable, err)
			}
			if len(result.Embeddings) != len(texts) {
				return nil, helper.NewKindError("run embedding pipeline", helper.KindProviderUnavailable,
					fmt.Errorf("expected %d embeddings, got %d", len(texts), len(result.Embeddings)))
			}
			return result.Embeddings, nil
		},
	}, nil
}

func (h *HugotEmbedding) Dimension() int { return h.dim }

func (h *HugotEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := h.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (h *HugotEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return h.embedBatch(texts)
}

// Close releases the underlying hugot session.
func (h *HugotEmbedding) Close() error {
	if h.destroy == nil {
		return nil
	}
	return h.destroy()
}
