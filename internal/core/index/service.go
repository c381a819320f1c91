package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jinford/pdf-qa/internal/core/chunk"
)

// DefaultTopK は検索件数のデフォルト値
const DefaultTopK = 3

// IndexService はパッセージのインデックス構築と近傍検索のユースケースを提供する
type IndexService struct {
	repo     Repository
	embedder Embedder
	handle   Handle
	logger   *slog.Logger
}

type indexServiceOptions struct {
	logger *slog.Logger
}

// IndexServiceOption は IndexService のオプション設定
type IndexServiceOption func(*indexServiceOptions)

// WithIndexLogger は IndexService にロガーを設定する
func WithIndexLogger(logger *slog.Logger) IndexServiceOption {
	return func(o *indexServiceOptions) {
		o.logger = logger
	}
}

// NewIndexService は新しい IndexService を作成する
func NewIndexService(repo Repository, embedder Embedder, handle Handle, opts ...IndexServiceOption) *IndexService {
	options := indexServiceOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	return &IndexService{
		repo:     repo,
		embedder: embedder,
		handle:   handle,
		logger:   options.logger,
	}
}

// Handle はサービスが所有するハンドルを返す
func (s *IndexService) Handle() Handle {
	return s.handle
}

// Build はパッセージ群をEmbedding化し、コレクションを全置換で構築する。
// パッセージが0件の場合はストレージに触れる前に ErrEmptyInput を返す。
// 書き込みは1トランザクションで行われ、途中失敗で部分的な
// コレクションが残ることはない。
func (s *IndexService) Build(ctx context.Context, passages []chunk.Passage) (*BuildResult, error) {
	if len(passages) == 0 {
		return nil, ErrEmptyInput
	}

	start := time.Now()

	vectors, err := s.embedAll(ctx, chunk.Contents(passages))
	if err != nil {
		return nil, fmt.Errorf("failed to embed passages: %w", err)
	}
	if len(vectors) != len(passages) {
		return nil, fmt.Errorf("embedding count mismatch: got %d vectors for %d passages", len(vectors), len(passages))
	}

	stored := make([]StoredPassage, len(passages))
	for i, p := range passages {
		stored[i] = StoredPassage{
			ID:      uuid.New(),
			Key:     p.Key,
			Ordinal: p.Ordinal,
			Content: p.Content,
			Vector:  vectors[i],
		}
	}

	collection := Collection{
		ID:                 uuid.New(),
		Name:               s.handle.CollectionName,
		DocumentID:         s.handle.DocumentID,
		EmbeddingModel:     s.embedder.ModelName(),
		EmbeddingDimension: s.embedder.Dimension(),
		PassageCount:       len(stored),
	}

	if err := s.repo.Replace(ctx, collection, stored); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}

	result := &BuildResult{
		Collection:   collection,
		PassageCount: len(stored),
		Duration:     time.Since(start),
	}

	s.logger.Info("index built",
		"collection", collection.Name,
		"documentID", collection.DocumentID,
		"passages", result.PassageCount,
		"embeddingModel", collection.EmbeddingModel,
		"duration", result.Duration,
	)

	return result, nil
}

// Query は質問をパッセージと同一のEmbedding変換にかけ、
// コサイン類似度の近い順に最大 topK 件のパッセージを返す。
// コレクションが存在しない場合は空の結果を返す（エラーではない）。
// topK は格納パッセージ数でクランプされる。
func (s *IndexService) Query(ctx context.Context, question string, topK int) ([]*SearchResult, error) {
	if question == "" {
		return nil, fmt.Errorf("question is required")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	existing, err := s.repo.Get(ctx, s.handle.CollectionName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreRead, err)
	}
	collection, ok := existing.Get()
	if !ok {
		// 未インデックス状態は想定内。空の結果として返す。
		s.logger.Info("no collection indexed yet", "collection", s.handle.CollectionName)
		return []*SearchResult{}, nil
	}

	if collection.EmbeddingModel != s.embedder.ModelName() || collection.EmbeddingDimension != s.embedder.Dimension() {
		return nil, fmt.Errorf("%w: collection has model=%s dim=%d, embedder has model=%s dim=%d",
			ErrStaleIndex,
			collection.EmbeddingModel, collection.EmbeddingDimension,
			s.embedder.ModelName(), s.embedder.Dimension(),
		)
	}

	if topK > collection.PassageCount {
		topK = collection.PassageCount
	}

	queryVector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	results, err := s.repo.Search(ctx, s.handle.CollectionName, queryVector, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreRead, err)
	}

	s.logger.Info("query completed",
		"collection", s.handle.CollectionName,
		"topK", topK,
		"results", len(results),
	)

	return results, nil
}

// Drop はコレクションを削除する
func (s *IndexService) Drop(ctx context.Context) error {
	if err := s.repo.Drop(ctx, s.handle.CollectionName); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	s.logger.Info("collection dropped", "collection", s.handle.CollectionName)
	return nil
}

// embedAll は Embedder の最大バッチサイズを守りながら全パッセージを埋め込む
func (s *IndexService) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	batchSize := s.embedder.MaxBatchSize()
	if batchSize <= 0 {
		batchSize = 1
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := s.embedder.BatchEmbed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", start, end, err)
		}
		vectors = append(vectors, batch...)
	}

	return vectors, nil
}
