package answer

import (
	"context"
	"fmt"
	"log/slog"
)

const (
	// DefaultTemperature は回答生成のデフォルト温度（低めで焦点を絞る）
	DefaultTemperature = 0.3
	// DefaultMaxTokens は生成トークン数の上限デフォルト
	DefaultMaxTokens = 1024
	// DefaultTopP は nucleus sampling のデフォルト値
	DefaultTopP = 0.9
	// DefaultContextTokenBudget はプロンプトに含めるコンテキストのトークン上限
	DefaultContextTokenBudget = 6000

	// NoContextAnswer はコンテキストが空の場合の定型回答
	NoContextAnswer = "PDFから質問に関連する情報が見つかりませんでした。"
)

// CompletionRequest はLLMへの1回の補完要求を表す
type CompletionRequest struct {
	System      string  // システム指示
	Prompt      string  // ユーザーメッセージ
	Temperature float64 // 温度
	MaxTokens   int     // 出力トークン上限
	TopP        float64 // nucleus sampling
}

// CompletionResponse はLLMの補完結果を表す
type CompletionResponse struct {
	Content    string // 生成テキスト
	TokensUsed int    // 消費トークン数
	Model      string // 実際に使用されたモデル名
}

// LLMClient はリモート補完モデルとの通信インターフェース
type LLMClient interface {
	GenerateCompletion(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// TokenCounter はテキストのトークン数を数えるインターフェース
type TokenCounter interface {
	CountTokens(text string) int
}

// GenerationParams は生成パラメータの安定したデフォルト群
type GenerationParams struct {
	Temperature        float64
	MaxTokens          int
	TopP               float64
	ContextTokenBudget int
}

// DefaultGenerationParams はデフォルトの生成パラメータを返す
func DefaultGenerationParams() GenerationParams {
	return GenerationParams{
		Temperature:        DefaultTemperature,
		MaxTokens:          DefaultMaxTokens,
		TopP:               DefaultTopP,
		ContextTokenBudget: DefaultContextTokenBudget,
	}
}

// Generator は取得済みコンテキストに基づく回答生成を提供する
type Generator struct {
	llm     LLMClient
	counter TokenCounter
	params  GenerationParams
	logger  *slog.Logger
}

type generatorOptions struct {
	params  *GenerationParams
	counter TokenCounter
	logger  *slog.Logger
}

// GeneratorOption は Generator のオプション設定
type GeneratorOption func(*generatorOptions)

// WithGenerationParams は生成パラメータを上書きする
func WithGenerationParams(params GenerationParams) GeneratorOption {
	return func(o *generatorOptions) {
		o.params = &params
	}
}

// WithTokenCounter はコンテキスト予算用のトークンカウンタを設定する
func WithTokenCounter(counter TokenCounter) GeneratorOption {
	return func(o *generatorOptions) {
		o.counter = counter
	}
}

// WithGeneratorLogger は Generator にロガーを設定する
func WithGeneratorLogger(logger *slog.Logger) GeneratorOption {
	return func(o *generatorOptions) {
		o.logger = logger
	}
}

// NewGenerator は新しい Generator を作成する
func NewGenerator(llm LLMClient, opts ...GeneratorOption) *Generator {
	options := generatorOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}

	params := DefaultGenerationParams()
	if options.params != nil {
		params = *options.params
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	return &Generator{
		llm:     llm,
		counter: options.counter,
		params:  params,
		logger:  options.logger,
	}
}

// Answer は質問と取得済みパッセージから回答を生成する。
// リモート呼び出しの失敗は例外として伝播させず、失敗内容を
// 説明するテキストに変換して返す（チャットを中断しない契約）。
// パッセージが空の場合はリモートを呼ばずに定型回答を返す。
func (g *Generator) Answer(ctx context.Context, question string, passages []string) string {
	if len(passages) == 0 {
		return NoContextAnswer
	}

	passages = g.fitContextBudget(passages)
	prompt := BuildUserPrompt(question, passages)

	resp, err := g.llm.GenerateCompletion(ctx, CompletionRequest{
		System:      SystemPrompt,
		Prompt:      prompt,
		Temperature: g.params.Temperature,
		MaxTokens:   g.params.MaxTokens,
		TopP:        g.params.TopP,
	})
	if err != nil {
		g.logger.Error("回答の生成に失敗しました", "error", err)
		return fmt.Sprintf("回答の生成中にエラーが発生しました: %v", err)
	}

	g.logger.Info("answer generated",
		"model", resp.Model,
		"tokensUsed", resp.TokensUsed,
		"contexts", len(passages),
	)

	return resp.Content
}

// fitContextBudget はコンテキストのトークン合計が予算に収まるよう、
// 関連度の低い（末尾の）パッセージから切り詰める。
// 先頭のパッセージは予算を超えても必ず1件残す。
func (g *Generator) fitContextBudget(passages []string) []string {
	if g.counter == nil || g.params.ContextTokenBudget <= 0 {
		return passages
	}

	total := 0
	kept := 0
	for _, passage := range passages {
		tokens := g.counter.CountTokens(passage)
		if kept > 0 && total+tokens > g.params.ContextTokenBudget {
			break
		}
		total += tokens
		kept++
	}

	if kept < len(passages) {
		g.logger.Warn("context trimmed to token budget",
			"budget", g.params.ContextTokenBudget,
			"kept", kept,
			"dropped", len(passages)-kept,
		)
	}

	return passages[:kept]
}
