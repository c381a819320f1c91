package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sort"
	"strings"
	"testing"
	"unicode"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/pdf-qa/internal/core/answer"
	"github.com/jinford/pdf-qa/internal/core/chunk"
	"github.com/jinford/pdf-qa/internal/core/extract"
	"github.com/jinford/pdf-qa/internal/core/index"
)

// wordEmbedder は単語の一致がコサイン類似度に反映される決定的なスタブ。
// 固定語彙の bag-of-words で、語彙外の単語は無視する。
type wordEmbedder struct {
	vocab map[string]int
}

func newWordEmbedder() *wordEmbedder {
	words := []string{
		"what", "is", "the", "about", "color", "content", "page", "1", "2",
		"cats", "dogs", "sky", "blue", "grass", "green", "water", "wet",
		"apples", "oranges", "solar", "system", "planets", "question",
	}
	vocab := make(map[string]int, len(words))
	for i, w := range words {
		vocab[w] = i
	}
	return &wordEmbedder{vocab: vocab}
}

func (e *wordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vector := make([]float32, len(e.vocab))
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if i, ok := e.vocab[w]; ok {
			vector[i]++
		}
	}
	return vector, nil
}

func (e *wordEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}
	return vectors, nil
}

func (e *wordEmbedder) ModelName() string { return "word-hash" }
func (e *wordEmbedder) Dimension() int    { return len(e.vocab) }
func (e *wordEmbedder) MaxBatchSize() int { return 100 }

// memoryRepository はコサイン類似度検索を行うインメモリ実装
type memoryRepository struct {
	collection mo.Option[index.Collection]
	passages   []index.StoredPassage
}

func (r *memoryRepository) Replace(ctx context.Context, collection index.Collection, passages []index.StoredPassage) error {
	r.collection = mo.Some(collection)
	r.passages = passages
	return nil
}

func (r *memoryRepository) Get(ctx context.Context, name string) (mo.Option[index.Collection], error) {
	return r.collection, nil
}

func (r *memoryRepository) Search(ctx context.Context, name string, queryVector []float32, limit int) ([]*index.SearchResult, error) {
	results := make([]*index.SearchResult, 0, len(r.passages))
	for _, p := range r.passages {
		results = append(results, &index.SearchResult{
			Key:     p.Key,
			Content: p.Content,
			Score:   cosine(queryVector, p.Vector),
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}

func (r *memoryRepository) Drop(ctx context.Context, name string) error {
	r.collection = mo.None[index.Collection]()
	r.passages = nil
	return nil
}

func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

type stubExtractor struct {
	pages []extract.PageText
	err   error
}

func (e *stubExtractor) Extract(ctx context.Context, path string) ([]extract.PageText, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.pages, nil
}

// echoLLM は最初のコンテキストブロックをそのまま回答として返す
type echoLLM struct {
	prompts []string
}

func (l *echoLLM) GenerateCompletion(ctx context.Context, req answer.CompletionRequest) (answer.CompletionResponse, error) {
	l.prompts = append(l.prompts, req.Prompt)
	return answer.CompletionResponse{Content: "根拠: " + req.Prompt, Model: "stub"}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSession(t *testing.T, extractor extract.Extractor, llm answer.LLMClient, opts ...SessionOption) (*Session, *memoryRepository) {
	t.Helper()
	repo := &memoryRepository{}
	indexService := index.NewIndexService(repo, newWordEmbedder(), index.NewHandle("pdf_documents"), index.WithIndexLogger(testLogger()))
	generator := answer.NewGenerator(llm, answer.WithGeneratorLogger(testLogger()))
	opts = append([]SessionOption{WithSessionLogger(testLogger())}, opts...)
	return New(extractor, indexService, generator, opts...), repo
}

func TestSession_RoundTripRetrieval(t *testing.T) {
	repo := &memoryRepository{}
	embedder := newWordEmbedder()
	svc := index.NewIndexService(repo, embedder, index.NewHandle("pdf_documents"), index.WithIndexLogger(testLogger()))

	passages := []chunk.Passage{
		{Key: "chunk_0", Ordinal: 0, Content: "The sky is blue."},
		{Key: "chunk_1", Ordinal: 1, Content: "Grass is green."},
		{Key: "chunk_2", Ordinal: 2, Content: "Water is wet."},
	}
	_, err := svc.Build(context.Background(), passages)
	require.NoError(t, err)

	results, err := svc.Query(context.Background(), "What color is the sky?", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "The sky is blue.", results[0].Content)
}

// ドキュメント処理から回答まで通しで確認する
func TestSession_EndToEnd(t *testing.T) {
	extractor := &stubExtractor{pages: []extract.PageText{
		{Number: 1, Text: "Page 1 content about cats."},
		{Number: 2, Text: "Page 2 content about dogs."},
	}}
	llm := &echoLLM{}

	sess, _ := newTestSession(t, extractor, llm,
		WithChunkConfig(chunk.Config{ChunkSize: 45, Overlap: 5}),
		WithTopK(1),
	)

	result, err := sess.ProcessDocument(context.Background(), "animals.pdf")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Pages)
	assert.Greater(t, result.Passages, 1)
	assert.Equal(t, StateReady, sess.State())

	reply, err := sess.Ask(context.Background(), "What is page 2 about?")
	require.NoError(t, err)
	assert.Contains(t, reply, "dogs")
	assert.NotContains(t, reply, "cats")

	history := sess.History()
	require.Len(t, history, 2)
	assert.Equal(t, RoleUser, history[0].Role)
	assert.Equal(t, "What is page 2 about?", history[0].Content)
	assert.Equal(t, RoleAssistant, history[1].Role)
	assert.Equal(t, reply, history[1].Content)
}

func TestSession_AskBeforeProcessReturnsCannedAnswer(t *testing.T) {
	llm := &echoLLM{}
	sess, _ := newTestSession(t, &stubExtractor{}, llm)

	reply, err := sess.Ask(context.Background(), "anything?")
	require.NoError(t, err)
	assert.Equal(t, answer.NoContextAnswer, reply)
	assert.Empty(t, llm.prompts, "remote model must not be called")

	// 定型回答も通常の回答として履歴に残る
	assert.Len(t, sess.History(), 2)
}

// 履歴は表示専用であり、後続の質問のプロンプトに混入しない
func TestSession_HistoryNotFedBackIntoPrompt(t *testing.T) {
	extractor := &stubExtractor{pages: []extract.PageText{
		{Number: 1, Text: "Facts about the solar system and planets."},
	}}
	llm := &echoLLM{}
	sess, _ := newTestSession(t, extractor, llm)

	_, err := sess.ProcessDocument(context.Background(), "doc.pdf")
	require.NoError(t, err)

	_, err = sess.Ask(context.Background(), "first unique question marker")
	require.NoError(t, err)
	_, err = sess.Ask(context.Background(), "second question")
	require.NoError(t, err)

	require.Len(t, llm.prompts, 2)
	assert.NotContains(t, llm.prompts[1], "first unique question marker")
	assert.Len(t, sess.History(), 4)
}

func TestSession_EmptyExtractionIsDistinctFailure(t *testing.T) {
	extractor := &stubExtractor{pages: []extract.PageText{
		{Number: 1, Text: "   \n  "},
	}}
	sess, repo := newTestSession(t, extractor, &echoLLM{})

	_, err := sess.ProcessDocument(context.Background(), "scanned.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyExtraction)
	assert.Equal(t, StateNoDocument, sess.State())
	assert.True(t, repo.collection.IsAbsent(), "no index must be created")
}

func TestSession_ExtractionFailureAborts(t *testing.T) {
	extractor := &stubExtractor{err: extract.ErrExtraction}
	sess, repo := newTestSession(t, extractor, &echoLLM{})

	_, err := sess.ProcessDocument(context.Background(), "broken.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, extract.ErrExtraction)
	assert.True(t, repo.collection.IsAbsent())
}

func TestSession_ProcessReplacesPreviousDocument(t *testing.T) {
	extractor := &stubExtractor{pages: []extract.PageText{
		{Number: 1, Text: "Original document talks about apples."},
	}}
	sess, repo := newTestSession(t, extractor, &echoLLM{})

	_, err := sess.ProcessDocument(context.Background(), "a.pdf")
	require.NoError(t, err)
	first, ok := repo.collection.Get()
	require.True(t, ok)

	extractor.pages = []extract.PageText{
		{Number: 1, Text: "Replacement document talks about oranges."},
	}
	_, err = sess.ProcessDocument(context.Background(), "b.pdf")
	require.NoError(t, err)
	second, ok := repo.collection.Get()
	require.True(t, ok)

	assert.NotEqual(t, first.ID, second.ID, "collection must be fully replaced")
	require.Len(t, repo.passages, 1)
	assert.Contains(t, repo.passages[0].Content, "oranges")
}

func TestSession_Reset(t *testing.T) {
	extractor := &stubExtractor{pages: []extract.PageText{
		{Number: 1, Text: "Some indexed content."},
	}}
	sess, repo := newTestSession(t, extractor, &echoLLM{})

	_, err := sess.ProcessDocument(context.Background(), "doc.pdf")
	require.NoError(t, err)
	_, err = sess.Ask(context.Background(), "a question")
	require.NoError(t, err)

	require.NoError(t, sess.Reset(context.Background()))
	assert.Equal(t, StateNoDocument, sess.State())
	assert.Empty(t, sess.History())
	assert.True(t, repo.collection.IsAbsent())
}

func TestSession_AskWithSourcesReturnsRankedResults(t *testing.T) {
	extractor := &stubExtractor{pages: []extract.PageText{
		{Number: 1, Text: "The sky is blue."},
		{Number: 2, Text: "Grass is green."},
	}}
	sess, _ := newTestSession(t, extractor, &echoLLM{},
		WithChunkConfig(chunk.Config{ChunkSize: 30, Overlap: 0}),
		WithTopK(2),
	)

	_, err := sess.ProcessDocument(context.Background(), "facts.pdf")
	require.NoError(t, err)

	reply, sources, err := sess.AskWithSources(context.Background(), "What color is the sky?")
	require.NoError(t, err)
	assert.NotEmpty(t, reply)
	require.Len(t, sources, 2)
	assert.GreaterOrEqual(t, sources[0].Score, sources[1].Score)
}

func TestSession_StoreFaultSurfacesAsError(t *testing.T) {
	sess, _ := newTestSession(t, &stubExtractor{}, &echoLLM{})

	// Get が失敗する薄い包み
	failing := &failingRepository{}
	svc := index.NewIndexService(failing, newWordEmbedder(), index.NewHandle("pdf_documents"), index.WithIndexLogger(testLogger()))
	sess.index = svc

	_, err := sess.Ask(context.Background(), "q")
	require.Error(t, err)
	assert.ErrorIs(t, err, index.ErrStoreRead)
}

type failingRepository struct{}

func (r *failingRepository) Replace(ctx context.Context, c index.Collection, p []index.StoredPassage) error {
	return errors.New("write refused")
}

func (r *failingRepository) Get(ctx context.Context, name string) (mo.Option[index.Collection], error) {
	return mo.None[index.Collection](), errors.New("connection refused")
}

func (r *failingRepository) Search(ctx context.Context, name string, v []float32, limit int) ([]*index.SearchResult, error) {
	return nil, errors.New("connection refused")
}

func (r *failingRepository) Drop(ctx context.Context, name string) error {
	return errors.New("connection refused")
}
