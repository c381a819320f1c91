package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	appcli "github.com/jinford/pdf-qa/internal/app/cli"
	"github.com/jinford/pdf-qa/internal/platform/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 構造化ログの設定
	logger.New(logger.Config{
		Level:  logger.ParseLevel(os.Getenv("LOG_LEVEL")),
		Format: "json",
		Output: os.Stderr,
	})

	app := &cli.Command{
		Name:  "pdf-qa",
		Usage: "PDFドキュメントに対する検索拡張型の質問応答ツール",
		Commands: []*cli.Command{
			{
				Name:      "process",
				Usage:     "PDFを取り込みインデックスを作成",
				ArgsUsage: "<PDFファイルパス>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "環境変数ファイルパス",
						Value: ".env",
					},
				},
				Action: appcli.ProcessAction,
			},
			{
				Name:      "ask",
				Usage:     "インデックス済みドキュメントに質問",
				ArgsUsage: "<質問文>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "環境変数ファイルパス",
						Value: ".env",
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "検索するパッセージ数（省略時は環境変数またはデフォルトの3）",
					},
					&cli.BoolFlag{
						Name:  "show-scores",
						Usage: "参照パッセージと類似度スコアを表示",
					},
				},
				Action: appcli.AskAction,
			},
			{
				Name:  "chat",
				Usage: "対話形式で質問応答",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "環境変数ファイルパス",
						Value: ".env",
					},
					&cli.StringFlag{
						Name:  "file",
						Usage: "開始前に取り込むPDFファイルパス",
					},
				},
				Action: appcli.ChatAction,
			},
			{
				Name:  "reset",
				Usage: "インデックスと会話履歴を削除",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "環境変数ファイルパス",
						Value: ".env",
					},
				},
				Action: appcli.ResetAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
