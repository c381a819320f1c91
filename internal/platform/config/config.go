// Package config はアプリケーション設定の読み込みを提供する
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

var (
	// ErrOpenAIKeyMissing は OpenAI APIキー未設定のエラー
	ErrOpenAIKeyMissing = errors.New("OPENAI_API_KEY is required")

	// ErrGroqKeyMissing は Groq APIキー未設定のエラー
	ErrGroqKeyMissing = errors.New("GROQ_API_KEY is required")

	// ErrInvalidChunking はチャンク設定が不正な場合のエラー
	ErrInvalidChunking = errors.New("CHUNK_OVERLAP must be non-negative and smaller than CHUNK_SIZE")
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Database設定
	Database DatabaseConfig

	// OpenAI設定（Embeddings用）
	OpenAI OpenAIConfig

	// 回答生成用LLM設定
	Groq GroqConfig

	// チャンク分割設定
	Chunking ChunkingConfig

	// インデックス・検索設定
	Index IndexConfig
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// OpenAIConfig はOpenAI API設定（Embeddings用）
type OpenAIConfig struct {
	APIKey             string
	EmbeddingModel     string
	EmbeddingDimension int
}

// GroqConfig は回答生成用LLM設定
type GroqConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	TopP        float64
}

// ChunkingConfig はチャンク分割設定
type ChunkingConfig struct {
	ChunkSize int
	Overlap   int
}

// IndexConfig はインデックスと検索の設定
type IndexConfig struct {
	CollectionName string
	TopK           int
	ContextTokens  int
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "pdfqa"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "pdfqa"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		OpenAI: OpenAIConfig{
			APIKey:             getEnv("OPENAI_API_KEY", ""),
			EmbeddingModel:     getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimension: getEnvAsInt("OPENAI_EMBEDDING_DIMENSION", 1536),
		},
		Groq: GroqConfig{
			APIKey:      getEnv("GROQ_API_KEY", ""),
			Model:       getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
			Temperature: getEnvAsFloat("GROQ_TEMPERATURE", 0.3),
			MaxTokens:   getEnvAsInt("GROQ_MAX_TOKENS", 1024),
			TopP:        getEnvAsFloat("GROQ_TOP_P", 0.9),
		},
		Chunking: ChunkingConfig{
			ChunkSize: getEnvAsInt("CHUNK_SIZE", 500),
			Overlap:   getEnvAsInt("CHUNK_OVERLAP", 50),
		},
		Index: IndexConfig{
			CollectionName: getEnv("COLLECTION_NAME", "pdf_documents"),
			TopK:           getEnvAsInt("ANSWER_TOP_K", 3),
			ContextTokens:  getEnvAsInt("ANSWER_CONTEXT_TOKENS", 6000),
		},
	}

	return cfg, nil
}

// Validate は起動に必須の設定が揃っているかを検証します。
// 資格情報の不足は最初のAPI呼び出しまで待たず、ここで失敗させる。
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return ErrOpenAIKeyMissing
	}
	if c.Groq.APIKey == "" {
		return ErrGroqKeyMissing
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.ChunkSize {
		return ErrInvalidChunking
	}
	return nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat は環境変数を浮動小数点数として取得します
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
