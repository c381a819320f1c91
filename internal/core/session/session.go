package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jinford/pdf-qa/internal/core/answer"
	"github.com/jinford/pdf-qa/internal/core/chunk"
	"github.com/jinford/pdf-qa/internal/core/extract"
	"github.com/jinford/pdf-qa/internal/core/index"
)

// ErrEmptyExtraction はドキュメントは解析できたがテキストが1文字も
// 抽出できなかった場合のエラー。破損とは区別して利用者に提示する。
var ErrEmptyExtraction = errors.New("no text could be extracted from the document")

// State はセッションの状態を表す
type State string

const (
	StateNoDocument State = "no_document" // ドキュメント未処理
	StateProcessing State = "processing"  // ドキュメント処理中
	StateReady      State = "ready"       // 質問受付可能
	StateAnswering  State = "answering"   // 回答生成中
)

// Role はチャット発言者の種別を表す
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatTurn はチャット履歴の1発言を表す。履歴は追記専用で、
// 表示用のコンテキストであり、プロンプトには含めない。
type ChatTurn struct {
	Role    Role
	Content string
}

// ProcessResult はドキュメント処理の結果を表す
type ProcessResult struct {
	Pages    int // テキストを抽出できたページ数
	Passages int // インデックスしたパッセージ数
}

// Session は1ドキュメント・1会話のセッションを制御する
type Session struct {
	extractor extract.Extractor
	chunkCfg  chunk.Config
	index     *index.IndexService
	generator *answer.Generator
	topK      int

	state   State
	history []ChatTurn
	logger  *slog.Logger
}

type sessionOptions struct {
	chunkCfg *chunk.Config
	topK     int
	logger   *slog.Logger
}

// SessionOption は Session のオプション設定
type SessionOption func(*sessionOptions)

// WithChunkConfig はチャンク設定を上書きする
func WithChunkConfig(cfg chunk.Config) SessionOption {
	return func(o *sessionOptions) {
		o.chunkCfg = &cfg
	}
}

// WithTopK は検索件数を上書きする
func WithTopK(topK int) SessionOption {
	return func(o *sessionOptions) {
		o.topK = topK
	}
}

// WithSessionLogger は Session にロガーを設定する
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(o *sessionOptions) {
		o.logger = logger
	}
}

// New は新しい Session を作成する
func New(extractor extract.Extractor, indexService *index.IndexService, generator *answer.Generator, opts ...SessionOption) *Session {
	options := sessionOptions{
		topK:   index.DefaultTopK,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	chunkCfg := chunk.DefaultConfig()
	if options.chunkCfg != nil {
		chunkCfg = *options.chunkCfg
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	return &Session{
		extractor: extractor,
		chunkCfg:  chunkCfg,
		index:     indexService,
		generator: generator,
		topK:      options.topK,
		state:     StateNoDocument,
		logger:    options.logger,
	}
}

// State は現在のセッション状態を返す
func (s *Session) State() State {
	return s.state
}

// SetTopK は検索件数を変更する。0以下は無視する
func (s *Session) SetTopK(topK int) {
	if topK > 0 {
		s.topK = topK
	}
}

// History はチャット履歴のコピーを返す
func (s *Session) History() []ChatTurn {
	history := make([]ChatTurn, len(s.history))
	copy(history, s.history)
	return history
}

// ProcessDocument はドキュメントを抽出・分割・インデックス化する。
// 途中で失敗した場合は以前のインデックスに手を付けずに中断する。
func (s *Session) ProcessDocument(ctx context.Context, path string) (*ProcessResult, error) {
	prev := s.state
	s.state = StateProcessing

	result, err := s.processDocument(ctx, path)
	if err != nil {
		s.state = prev
		return nil, err
	}

	s.state = StateReady
	return result, nil
}

func (s *Session) processDocument(ctx context.Context, path string) (*ProcessResult, error) {
	pages, err := s.extractor.Extract(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract document: %w", err)
	}

	text := extract.AssembleDocument(pages)
	if text == "" {
		return nil, ErrEmptyExtraction
	}

	passages, err := chunk.Split(text, s.chunkCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk document: %w", err)
	}

	if _, err := s.index.Build(ctx, passages); err != nil {
		return nil, fmt.Errorf("failed to index document: %w", err)
	}

	s.logger.Info("document processed",
		"path", path,
		"pages", len(pages),
		"passages", len(passages),
	)

	return &ProcessResult{
		Pages:    len(pages),
		Passages: len(passages),
	}, nil
}

// Ask は質問に対する回答を返し、質問と回答を履歴に追記する。
// 検索結果が空の場合はリモートを呼ばずに定型回答を返す。
// 生成の失敗は Generator 内でテキストに変換されるため、
// ここでエラーになるのはストレージ障害のみ。
func (s *Session) Ask(ctx context.Context, question string) (string, error) {
	reply, _, err := s.AskWithSources(ctx, question)
	return reply, err
}

// AskWithSources は Ask と同じ処理を行い、回答に使った検索結果も返す
func (s *Session) AskWithSources(ctx context.Context, question string) (string, []*index.SearchResult, error) {
	if question == "" {
		return "", nil, fmt.Errorf("question is required")
	}

	prev := s.state
	s.state = StateAnswering
	defer func() { s.state = prev }()

	results, err := s.index.Query(ctx, question, s.topK)
	if err != nil {
		return "", nil, fmt.Errorf("failed to retrieve context: %w", err)
	}

	var reply string
	if len(results) == 0 {
		reply = answer.NoContextAnswer
	} else {
		passages := make([]string, len(results))
		for i, r := range results {
			passages[i] = r.Content
		}
		reply = s.generator.Answer(ctx, question, passages)
	}

	s.history = append(s.history,
		ChatTurn{Role: RoleUser, Content: question},
		ChatTurn{Role: RoleAssistant, Content: reply},
	)

	return reply, results, nil
}

// Reset はコレクションを削除し、履歴と状態を初期化する
func (s *Session) Reset(ctx context.Context) error {
	if err := s.index.Drop(ctx); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}

	s.history = nil
	s.state = StateNoDocument
	s.logger.Info("session reset")
	return nil
}
