package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"
)

// AskAction は単発の質問応答コマンドのアクション。
// 事前に process で作成したインデックスに対して検索と回答を行う。
func AskAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	topK := cmd.Int("top-k")
	showScores := cmd.Bool("show-scores")

	question := cmd.Args().First()
	if question == "" {
		return fmt.Errorf("質問文を指定してください")
	}

	slog.Info("質問応答を開始",
		"question", question,
		"topK", topK,
		"showScores", showScores,
	)

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	sess := appCtx.Container.Session
	sess.SetTopK(topK)

	reply, sources, err := sess.AskWithSources(ctx, question)
	if err != nil {
		slog.Error("質問応答に失敗しました", "error", err)
		return err
	}

	// 結果出力
	fmt.Println(reply)

	// --show-scoresフラグが指定されている場合、参照パッセージも出力
	if showScores && len(sources) > 0 {
		fmt.Println("\n--- 参照パッセージ ---")
		for i, r := range sources {
			fmt.Printf("[%d] %s スコア: %.4f\n", i+1, r.Key, r.Score)
		}
	}

	slog.Info("質問応答が完了しました")
	return nil
}
