package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrExtraction はドキュメントが読み取り不能・破損・非対応形式の場合のエラー
var ErrExtraction = errors.New("document extraction failed")

// PageText は1ページ分の抽出テキストを表す
type PageText struct {
	Number int    // ページ番号（1始まり）
	Text   string // ページの抽出テキスト
}

// Extractor はドキュメントからページ単位でテキストを抽出するインターフェース
type Extractor interface {
	// Extract はドキュメントの全ページをページ順で抽出する。
	// 空白のみのページは結果に含めない。
	Extract(ctx context.Context, path string) ([]PageText, error)
}

// AssembleDocument はページ列を1つのドキュメントテキストに結合する。
// 各ページは "--- Page N ---" マーカーを先頭に付け、空行で区切られる。
// 空白のみのページはマーカーごと省略される。抽出テキストが1ページも
// なければ空文字列を返す（これはエラーではなく、呼び出し側が
// 「テキストなし」として扱う終端状態）。
func AssembleDocument(pages []PageText) string {
	var sections []string
	for _, page := range pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		sections = append(sections, fmt.Sprintf("--- Page %d ---\n%s", page.Number, page.Text))
	}
	return strings.Join(sections, "\n\n")
}
