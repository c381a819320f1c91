// Package postgres は pgvector を利用した index.Repository 実装を提供する
package postgres

import (
	_ "embed"

	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/samber/mo"

	"github.com/jinford/pdf-qa/internal/core/index"
)

//go:embed schema.sql
var schemaSQL string

// Repository は index.Repository インターフェースを実装する PostgreSQL リポジトリです
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository は新しい Repository を作成します
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// コンパイル時の型チェック
var _ index.Repository = (*Repository)(nil)

// Bootstrap はスキーマを適用する（冪等）
func (r *Repository) Bootstrap(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Replace はコレクションを同名の既存コレクションごと置き換える。
// 削除と挿入は単一トランザクションで行うため、途中で失敗しても
// 旧コレクションが欠けた状態にはならない。
func (r *Repository) Replace(ctx context.Context, collection index.Collection, passages []index.StoredPassage) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM collections WHERE name = $1`, collection.Name); err != nil {
		return fmt.Errorf("failed to delete existing collection: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO collections (id, name, document_id, embedding_model, embedding_dimension, passage_count)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		collection.ID,
		collection.Name,
		collection.DocumentID,
		collection.EmbeddingModel,
		collection.EmbeddingDimension,
		collection.PassageCount,
	)
	if err != nil {
		return fmt.Errorf("failed to insert collection: %w", err)
	}

	batch := &pgx.Batch{}
	for _, p := range passages {
		batch.Queue(`
			INSERT INTO passages (id, collection_id, chunk_key, ordinal, content, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			p.ID,
			collection.ID,
			p.Key,
			p.Ordinal,
			p.Content,
			pgvector.NewVector(p.Vector),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert passages: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Get は名前でコレクションを取得する。存在しない場合は None を返す
func (r *Repository) Get(ctx context.Context, name string) (mo.Option[index.Collection], error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, document_id, embedding_model, embedding_dimension, passage_count, created_at
		FROM collections
		WHERE name = $1`,
		name,
	)

	var collection index.Collection
	err := row.Scan(
		&collection.ID,
		&collection.Name,
		&collection.DocumentID,
		&collection.EmbeddingModel,
		&collection.EmbeddingDimension,
		&collection.PassageCount,
		&collection.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mo.None[index.Collection](), nil
		}
		return mo.None[index.Collection](), fmt.Errorf("failed to get collection: %w", err)
	}

	return mo.Some(collection), nil
}

// Search はコサイン類似度の降順で類似パッセージを検索する
func (r *Repository) Search(ctx context.Context, name string, queryVector []float32, limit int) ([]*index.SearchResult, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.chunk_key, p.content, 1 - (p.embedding <=> $2) AS score
		FROM passages p
		JOIN collections c ON c.id = p.collection_id
		WHERE c.name = $1
		ORDER BY p.embedding <=> $2
		LIMIT $3`,
		name,
		pgvector.NewVector(queryVector),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search passages: %w", err)
	}
	defer rows.Close()

	results := make([]*index.SearchResult, 0, limit)
	for rows.Next() {
		var result index.SearchResult
		if err := rows.Scan(&result.Key, &result.Content, &result.Score); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, &result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read search results: %w", err)
	}
	return results, nil
}

// Drop は名前でコレクションを削除する。存在しない場合も成功とする
func (r *Repository) Drop(ctx context.Context, name string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM collections WHERE name = $1`, name); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return nil
}
