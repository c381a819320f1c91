package answer

import (
	"fmt"
	"strings"
)

// SystemPrompt は回答をコンテキストに限定する固定のシステム指示
const SystemPrompt = `あなたはPDFドキュメントの内容に基づいて質問に回答するアシスタントです。

## 回答のガイドライン
- 提供されたコンテキストに含まれる情報のみを使用して回答してください
- コンテキストに十分な情報がない場合は、推測せずにその旨を明示してください
- コンテキストにない情報を作り出さないでください
- 簡潔かつ正確に、丁寧な文体で回答してください`

// BuildUserPrompt は取得済みパッセージと質問からユーザーメッセージを構築する。
// 各パッセージは "Context i" ラベル付きのブロックとして埋め込まれる。
func BuildUserPrompt(question string, passages []string) string {
	var sb strings.Builder

	sb.WriteString("## コンテキスト\n")
	if len(passages) > 0 {
		for i, passage := range passages {
			sb.WriteString(fmt.Sprintf("### [Context %d]\n", i+1))
			sb.WriteString(passage)
			sb.WriteString("\n\n")
		}
	} else {
		sb.WriteString("(該当するコンテキストはありません)\n\n")
	}

	sb.WriteString("## 質問\n")
	sb.WriteString(question)
	sb.WriteString("\n\n上記のコンテキストに基づいて回答してください。")

	return sb.String()
}
