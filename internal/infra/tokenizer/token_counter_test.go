package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountTokens(t *testing.T) {
	tc, err := NewTokenCounter()
	if err != nil {
		// エンコーディング定義の取得にはネットワークが必要
		t.Skipf("tiktoken encoding unavailable: %v", err)
	}
	require.NotNil(t, tc)

	assert.Zero(t, tc.CountTokens(""))

	short := tc.CountTokens("hello")
	long := tc.CountTokens("hello world, this is a much longer sentence about documents")
	assert.Greater(t, short, 0)
	assert.Greater(t, long, short)
}

func TestCountTokensNilEncoding(t *testing.T) {
	tc := &TokenCounter{}
	assert.Zero(t, tc.CountTokens("anything"))
}
