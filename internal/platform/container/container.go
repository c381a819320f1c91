// Package container はアプリケーションの依存関係の組み立てを提供する
package container

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jinford/pdf-qa/internal/core/answer"
	"github.com/jinford/pdf-qa/internal/core/chunk"
	"github.com/jinford/pdf-qa/internal/core/extract"
	"github.com/jinford/pdf-qa/internal/core/index"
	"github.com/jinford/pdf-qa/internal/core/session"
	"github.com/jinford/pdf-qa/internal/infra/groq"
	"github.com/jinford/pdf-qa/internal/infra/openai"
	"github.com/jinford/pdf-qa/internal/infra/pdf"
	"github.com/jinford/pdf-qa/internal/infra/postgres"
	"github.com/jinford/pdf-qa/internal/infra/tokenizer"
	"github.com/jinford/pdf-qa/internal/platform/config"
	"github.com/jinford/pdf-qa/internal/platform/database"
)

// ServiceContainer はアプリケーション全体の依存関係を保持する
type ServiceContainer struct {
	Session      *session.Session
	IndexService *index.IndexService
	Repository   index.Repository

	logger *slog.Logger
	pool   *pgxpool.Pool
}

type containerOptions struct {
	logger    *slog.Logger
	extractor extract.Extractor
	embedder  index.Embedder
	llmClient answer.LLMClient
	repo      index.Repository
	counter   answer.TokenCounter
}

// ContainerOption は ServiceContainer 構築時のオプション
type ContainerOption func(*containerOptions)

// WithContainerLogger はロガーを差し替える
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithContainerExtractor は Extractor を差し替える
func WithContainerExtractor(extractor extract.Extractor) ContainerOption {
	return func(opts *containerOptions) {
		opts.extractor = extractor
	}
}

// WithContainerEmbedder はカスタム Embedder を注入する
func WithContainerEmbedder(embedder index.Embedder) ContainerOption {
	return func(opts *containerOptions) {
		opts.embedder = embedder
	}
}

// WithContainerLLMClient は LLM クライアントを差し替える
func WithContainerLLMClient(client answer.LLMClient) ContainerOption {
	return func(opts *containerOptions) {
		opts.llmClient = client
	}
}

// WithContainerRepository はリポジトリを差し替える
func WithContainerRepository(repo index.Repository) ContainerOption {
	return func(opts *containerOptions) {
		opts.repo = repo
	}
}

// WithContainerTokenCounter は TokenCounter を差し替える
func WithContainerTokenCounter(counter answer.TokenCounter) ContainerOption {
	return func(opts *containerOptions) {
		opts.counter = counter
	}
}

// NewContainer は設定からコンテナを生成する。
// 資格情報の検証とスキーマ適用もここで行う。
func NewContainer(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (*ServiceContainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定が不正です: %w", err)
	}

	options := containerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	// Repository (PostgreSQL + pgvector)
	repo := options.repo
	var pool *pgxpool.Pool
	if repo == nil {
		var err error
		pool, err = database.NewPool(ctx, database.ConnectionParams{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			return nil, fmt.Errorf("データベース初期化に失敗しました: %w", err)
		}

		pgRepo := postgres.NewRepository(pool)
		if err := pgRepo.Bootstrap(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("スキーマ適用に失敗しました: %w", err)
		}
		repo = pgRepo
	}

	// Embedder (OpenAI)
	embedder := options.embedder
	if embedder == nil {
		embedder = openai.NewEmbedder(
			cfg.OpenAI.APIKey,
			openai.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel),
			openai.WithEmbeddingDimension(cfg.OpenAI.EmbeddingDimension),
		)
	}

	// LLMClient (Groq)
	llmClient := options.llmClient
	if llmClient == nil {
		groqClient, err := groq.NewClient(cfg.Groq.APIKey, groq.WithModel(cfg.Groq.Model))
		if err != nil {
			if pool != nil {
				pool.Close()
			}
			return nil, fmt.Errorf("Groq クライアント初期化に失敗しました: %w", err)
		}
		llmClient = groqClient
	}

	// TokenCounter (tiktoken)
	counter := options.counter
	if counter == nil {
		tc, err := tokenizer.NewTokenCounter()
		if err != nil {
			// エンコーディング定義を取得できない環境では文字数ベースの概算で代替する
			options.logger.Warn("tiktoken の初期化に失敗したため概算カウンタを使用します", slog.String("error", err.Error()))
			counter = runeCounter{}
		} else {
			counter = tc
		}
	}

	// Extractor (PDF)
	extractor := options.extractor
	if extractor == nil {
		extractor = pdf.NewExtractor()
	}

	// IndexService
	indexService := index.NewIndexService(
		repo,
		embedder,
		index.NewHandle(cfg.Index.CollectionName),
		index.WithIndexLogger(options.logger),
	)

	// Generator
	generator := answer.NewGenerator(
		llmClient,
		answer.WithGenerationParams(answer.GenerationParams{
			Temperature:        cfg.Groq.Temperature,
			MaxTokens:          cfg.Groq.MaxTokens,
			TopP:               cfg.Groq.TopP,
			ContextTokenBudget: cfg.Index.ContextTokens,
		}),
		answer.WithTokenCounter(counter),
		answer.WithGeneratorLogger(options.logger),
	)

	// Session
	sess := session.New(
		extractor,
		indexService,
		generator,
		session.WithChunkConfig(chunk.Config{
			ChunkSize: cfg.Chunking.ChunkSize,
			Overlap:   cfg.Chunking.Overlap,
		}),
		session.WithTopK(cfg.Index.TopK),
		session.WithSessionLogger(options.logger),
	)

	return &ServiceContainer{
		Session:      sess,
		IndexService: indexService,
		Repository:   repo,
		logger:       options.logger,
		pool:         pool,
	}, nil
}

// Close は内部リソースを解放する。
func (c *ServiceContainer) Close() {
	if c != nil && c.pool != nil {
		c.pool.Close()
	}
}

// Logger はロガーを返す。
func (c *ServiceContainer) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// runeCounter は文字数からトークン数を概算するフォールバック実装。
type runeCounter struct{}

func (runeCounter) CountTokens(text string) int {
	// 平均3文字で1トークン程度とみなす
	return len([]rune(text)) / 3
}
