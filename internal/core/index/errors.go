package index

import "errors"

var (
	// ErrEmptyInput はパッセージが0件のままインデックス構築を要求された場合のエラー
	ErrEmptyInput = errors.New("no passages to index")

	// ErrStoreWrite は永続化層への書き込み失敗を表す
	ErrStoreWrite = errors.New("vector store write failed")

	// ErrStoreRead は永続化層からの読み取り失敗を表す。
	// コレクション未作成は読み取り失敗ではなく、空の結果として扱う。
	ErrStoreRead = errors.New("vector store read failed")

	// ErrStaleIndex はコレクションのEmbeddingモデル・次元が現在の設定と
	// 一致しない場合のエラー。類似度が意味を持たないため検索を拒否する。
	ErrStaleIndex = errors.New("index was built with a different embedding configuration")
)
