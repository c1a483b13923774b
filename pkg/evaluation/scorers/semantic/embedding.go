package semantic

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/ahhsitt/qaeval-go/pkg/evaluation"
	"github.com/ahhsitt/qaeval-go/pkg/llm"
)

// DefaultBatchSize 单次向量化请求的默认文本数
const DefaultBatchSize = 64

// EmbeddingModel 基于文本向量余弦相似度的语义模型
//
// 实现 evaluation.SimilarityModel。相同文本只向量化一次；任一侧为空串的
// 文本对直接记 0 分，不调用提供商。
type EmbeddingModel struct {
	embedder  llm.Embedder
	batchSize int
	cache     Cache
	logger    *slog.Logger
}

// EmbeddingOption 语义模型选项
type EmbeddingOption func(*EmbeddingModel)

// WithBatchSize 设置单次向量化的文本数
func WithBatchSize(n int) EmbeddingOption {
	return func(m *EmbeddingModel) {
		if n > 0 {
			m.batchSize = n
		}
	}
}

// WithCache 设置向量缓存
func WithCache(cache Cache) EmbeddingOption {
	return func(m *EmbeddingModel) {
		m.cache = cache
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *slog.Logger) EmbeddingOption {
	return func(m *EmbeddingModel) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewEmbeddingModel 创建语义模型
func NewEmbeddingModel(embedder llm.Embedder, opts ...EmbeddingOption) *EmbeddingModel {
	m := &EmbeddingModel{
		embedder:  embedder,
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Score 对每一对参考/候选文本打分
func (m *EmbeddingModel) Score(ctx context.Context, references, candidates []string) ([]float64, error) {
	if len(references) != len(candidates) {
		return nil, fmt.Errorf("%w: %d references, %d candidates",
			evaluation.ErrDatasetLengthMismatch, len(references), len(candidates))
	}

	vectors, err := m.embedAll(ctx, append(append([]string{}, references...), candidates...))
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(references))
	for i := range references {
		if references[i] == "" || candidates[i] == "" {
			continue
		}
		scores[i] = Cosine(vectors[references[i]], vectors[candidates[i]])
	}
	return scores, nil
}

// embedAll 向量化去重后的非空文本
func (m *EmbeddingModel) embedAll(ctx context.Context, texts []string) (map[string][]float32, error) {
	vectors := make(map[string][]float32, len(texts))
	var pending []string
	seen := make(map[string]struct{}, len(texts))

	for _, text := range texts {
		if text == "" {
			continue
		}
		if _, dup := seen[text]; dup {
			continue
		}
		seen[text] = struct{}{}

		if m.cache != nil {
			vec, ok, err := m.cache.Get(ctx, CacheKey(m.embedder.Model(), text))
			if err != nil {
				m.logger.Warn("embedding cache read failed", "error", err)
			} else if ok {
				vectors[text] = vec
				continue
			}
		}
		pending = append(pending, text)
	}

	for start := 0; start < len(pending); start += m.batchSize {
		end := min(start+m.batchSize, len(pending))
		batch := pending[start:end]

		embedded, err := m.embedder.Embed(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("%w: embedding batch %d-%d: %w", evaluation.ErrExternalService, start, end, err)
		}
		if len(embedded) != len(batch) {
			return nil, fmt.Errorf("%w: got %d vectors for %d texts",
				evaluation.ErrExternalService, len(embedded), len(batch))
		}

		for i, text := range batch {
			vectors[text] = embedded[i]
			if m.cache != nil {
				if err := m.cache.Set(ctx, CacheKey(m.embedder.Model(), text), embedded[i]); err != nil {
					m.logger.Warn("embedding cache write failed", "error", err)
				}
			}
		}
	}

	m.logger.Debug("embedded texts",
		"unique", len(seen), "cached", len(seen)-len(pending), "requested", len(pending))
	return vectors, nil
}

// Cosine 计算余弦相似度，结果截断到 [-1, 1]；零向量或维度不一致时为 0
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if math.IsNaN(sim) {
		return 0
	}
	return math.Max(-1, math.Min(1, sim))
}
