package index

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"
)

// Handle はインデックス対象のコレクションを明示的に指すハンドル。
// コレクション名の定数を隠れた共有状態にせず、セッションが所有する。
type Handle struct {
	CollectionName string    // コレクション名
	DocumentID     uuid.UUID // 対象ドキュメントの識別子
}

// NewHandle は新しいドキュメントに対するハンドルを作成する
func NewHandle(collectionName string) Handle {
	return Handle{
		CollectionName: collectionName,
		DocumentID:     uuid.New(),
	}
}

// Collection は永続化されたコレクションのメタデータを表す
type Collection struct {
	ID                 uuid.UUID // コレクションID
	Name               string    // コレクション名（プロセス内で一意）
	DocumentID         uuid.UUID // インデックス時のドキュメント識別子
	EmbeddingModel     string    // Embedding生成に使用したモデル名
	EmbeddingDimension int       // ベクトル次元数
	PassageCount       int       // 格納パッセージ数
	CreatedAt          time.Time
}

// StoredPassage は永続化する (key, vector, content) の組を表す
type StoredPassage struct {
	ID      uuid.UUID
	Key     string // チャンクキー（chunk_<ordinal>）
	Ordinal int
	Content string
	Vector  []float32
}

// SearchResult は近傍検索の結果1件を表す
type SearchResult struct {
	Key     string  // チャンクキー
	Content string  // パッセージ本文
	Score   float64 // コサイン類似度（大きいほど近い）
}

// BuildResult はインデックス構築の結果を表す
type BuildResult struct {
	Collection   Collection
	PassageCount int
	Duration     time.Duration
}

// Repository はコレクションの永続化を担うインターフェース。
// コレクションのライフサイクルはこの層が排他的に所有する。
type Repository interface {
	// Replace は同名コレクションを削除し、新しいコレクションと
	// パッセージ群を1トランザクションで書き込む（全置換）。
	Replace(ctx context.Context, collection Collection, passages []StoredPassage) error

	// Get はコレクションのメタデータを返す。
	// 存在しない場合は None を返し、エラーにはしない。
	Get(ctx context.Context, name string) (mo.Option[Collection], error)

	// Search はコサイン類似度の近い順に最大 limit 件のパッセージを返す
	Search(ctx context.Context, name string, queryVector []float32, limit int) ([]*SearchResult, error)

	// Drop はコレクションを削除する。存在しなくてもエラーにしない。
	Drop(ctx context.Context, name string) error
}

// Embedder はテキストのEmbedding生成インターフェース。
// パッセージとクエリは必ず同一のEmbedderを通す（埋め込み空間の一貫性）。
type Embedder interface {
	// Embed は単一テキストのEmbeddingを生成する
	Embed(ctx context.Context, text string) ([]float32, error)

	// BatchEmbed は複数テキストのEmbeddingを入力順で生成する
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)

	// ModelName はモデル名を返す
	ModelName() string

	// Dimension はベクトル次元数を返す
	Dimension() int

	// MaxBatchSize はバッチ処理の最大サイズを返す
	MaxBatchSize() int
}
