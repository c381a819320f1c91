package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
)

// ProcessAction はPDFドキュメントの取り込みコマンドのアクション。
// テキスト抽出、チャンク分割、Embedding生成、インデックス保存までを行う。
func ProcessAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("PDFファイルのパスを指定してください")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("PDFファイルを開けません: %w", err)
	}

	slog.Info("ドキュメント処理を開始", "path", path)

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	result, err := appCtx.Container.Session.ProcessDocument(ctx, path)
	if err != nil {
		slog.Error("ドキュメント処理に失敗しました", "error", err)
		return err
	}

	fmt.Printf("処理が完了しました: %dページ、%dパッセージをインデックスしました\n",
		result.Pages, result.Passages)

	slog.Info("ドキュメント処理が完了しました",
		"path", path,
		"pages", result.Pages,
		"passages", result.Passages,
	)
	return nil
}
