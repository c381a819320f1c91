// Package pdf は ledongthuc/pdf を使った PDF テキスト抽出アダプタを提供する
package pdf

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/jinford/pdf-qa/internal/core/extract"
)

// Extractor は extract.Extractor の PDF 実装
type Extractor struct{}

// NewExtractor は新しい Extractor を作成する
func NewExtractor() *Extractor {
	return &Extractor{}
}

var _ extract.Extractor = (*Extractor)(nil)

// Extract は PDF の全ページをページ順でテキスト抽出する。
// 空白のみのページとテキスト抽出に失敗したページは結果に含めない。
// ファイルが開けない・解析できない場合は extract.ErrExtraction を返す。
func (e *Extractor) Extract(ctx context.Context, path string) (pages []extract.PageText, err error) {
	// ledongthuc/pdf は不正な入力で panic することがある
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: malformed document: %v", extract.ErrExtraction, r)
		}
	}()

	file, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", extract.ErrExtraction, err)
	}
	defer file.Close()

	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// 個別ページの抽出失敗はスキップに留める（スキャンページ等）
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		pages = append(pages, extract.PageText{Number: i, Text: text})
	}

	return pages, nil
}
