package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/jinford/pdf-qa/internal/core/session"
)

// ChatAction は対話形式の質問応答コマンドのアクション。
// --file を指定した場合は先にドキュメントを取り込み、
// 以降は標準入力から質問を読み取って回答を表示する。
func ChatAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	file := cmd.String("file")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	sess := appCtx.Container.Session

	if file != "" {
		slog.Info("ドキュメント処理を開始", "path", file)
		result, err := sess.ProcessDocument(ctx, file)
		if err != nil {
			slog.Error("ドキュメント処理に失敗しました", "error", err)
			return err
		}
		fmt.Printf("処理が完了しました: %dページ、%dパッセージをインデックスしました\n",
			result.Pages, result.Passages)
	}

	fmt.Println("質問を入力してください（exit で終了、/reset でインデックス削除、/history で履歴表示）")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			return nil
		default:
		}

		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "exit" || line == "quit":
			return nil
		case line == "/reset":
			if err := sess.Reset(ctx); err != nil {
				slog.Error("リセットに失敗しました", "error", err)
				continue
			}
			fmt.Println("インデックスを削除しました")
			continue
		case line == "/history":
			printHistory(sess.History())
			continue
		}

		reply, err := sess.Ask(ctx, line)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			slog.Error("質問応答に失敗しました", "error", err)
			continue
		}
		fmt.Println(reply)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("入力の読み取りに失敗: %w", err)
	}
	return nil
}

func printHistory(history []session.ChatTurn) {
	if len(history) == 0 {
		fmt.Println("履歴はありません")
		return
	}
	for _, turn := range history {
		label := "あなた"
		if turn.Role == session.RoleAssistant {
			label = "アシスタント"
		}
		fmt.Printf("%s: %s\n", label, turn.Content)
	}
}
