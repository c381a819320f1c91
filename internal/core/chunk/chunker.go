package chunk

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultChunkSize はデフォルトのチャンクサイズ（文字数）
	DefaultChunkSize = 500
	// DefaultOverlap はデフォルトの重複文字数
	DefaultOverlap = 50
)

// ErrInvalidConfig はチャンク設定が不正な場合のエラー
var ErrInvalidConfig = errors.New("invalid chunk configuration")

// Passage はテキストから切り出した1つのパッセージを表す
type Passage struct {
	Key     string // インデックスキー（chunk_<ordinal> 形式で安定）
	Ordinal int    // 保持されたパッセージに対する連番（0始まり）
	Start   int    // トリム前ウィンドウの開始位置（文字単位）
	End     int    // トリム前ウィンドウの終了位置（排他、文字単位）
	Content string // トリム済みの本文
}

// Config はチャンク分割の設定を表す
type Config struct {
	ChunkSize int // 1ウィンドウの文字数
	Overlap   int // 隣接ウィンドウとの重複文字数
}

// DefaultConfig はデフォルトのチャンク設定を返す
func DefaultConfig() Config {
	return Config{
		ChunkSize: DefaultChunkSize,
		Overlap:   DefaultOverlap,
	}
}

// Validate は設定の不変条件（ChunkSize > Overlap >= 0）を検証する
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, c.ChunkSize)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("%w: overlap must not be negative, got %d", ErrInvalidConfig, c.Overlap)
	}
	if c.Overlap >= c.ChunkSize {
		return fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", ErrInvalidConfig, c.Overlap, c.ChunkSize)
	}
	return nil
}

// Split はテキストを重複付き固定長ウィンドウでパッセージに分割する。
// ウィンドウはトリムされ、トリム後に空のウィンドウは破棄される。
// Ordinal とキーは保持されたパッセージにのみ連番で割り当てられる。
// 同一入力に対する出力は常に同一（決定的）。
func Split(text string, cfg Config) ([]Passage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// 文字数ベースで扱うため rune 単位で走査する
	runes := []rune(text)
	if len(runes) == 0 {
		return []Passage{}, nil
	}

	step := cfg.ChunkSize - cfg.Overlap
	passages := make([]Passage, 0, (len(runes)+step-1)/step)

	for start := 0; start < len(runes); start += step {
		end := start + cfg.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}

		content := strings.TrimSpace(string(runes[start:end]))
		if content == "" {
			continue
		}

		ordinal := len(passages)
		passages = append(passages, Passage{
			Key:     fmt.Sprintf("chunk_%d", ordinal),
			Ordinal: ordinal,
			Start:   start,
			End:     end,
			Content: content,
		})
	}

	return passages, nil
}

// Contents はパッセージ列から本文のみを取り出す
func Contents(passages []Passage) []string {
	contents := make([]string, len(passages))
	for i, p := range passages {
		contents[i] = p.Content
	}
	return contents
}
