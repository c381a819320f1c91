package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"
)

// ResetAction はインデックスと会話履歴を破棄するコマンドのアクション
func ResetAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if err := appCtx.Container.Session.Reset(ctx); err != nil {
		slog.Error("リセットに失敗しました", "error", err)
		return err
	}

	fmt.Println("インデックスを削除しました")
	return nil
}
