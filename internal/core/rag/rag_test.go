package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fahmykhattab/docuai/internal/core"
	"github.com/fahmykhattab/docuai/internal/models"
)

// ragDB implements only what the RAG service touches; everything else panics
// so an unexpected call fails the test loudly.
type ragDB struct {
	core.DbClient
	nearest []models.ScoredDocument
	saved   []*models.ChatHistory
}

func (d *ragDB) NearestDocuments(context.Context, []float32, int) ([]models.ScoredDocument, error) {
	return d.nearest, nil
}

func (d *ragDB) AddChatHistory(_ context.Context, h *models.ChatHistory) error {
	d.saved = append(d.saved, h)
	return nil
}

type ragLLM struct {
	response string
	err      error
	calls    int
}

func (l *ragLLM) Generate(_ context.Context, _, _ string) (string, error) {
	l.calls++
	return l.response, l.err
}

func (l *ragLLM) GenerateJSON(context.Context, string) (string, error) {
	return "", errors.New("not used")
}

func (l *ragLLM) GenerateVision(context.Context, string, []byte) (string, error) {
	return "", errors.New("not used")
}

type ragEmbedder struct{}

func (ragEmbedder) Embed(context.Context, string) ([]float32, error) {
	return make([]float32, 8), nil
}

func (ragEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, 8)
	}
	return out, nil
}

func (ragEmbedder) Dim() int { return 8 }

func scoredDoc(id, title, content string, score float64) models.ScoredDocument {
	return models.ScoredDocument{
		Document: models.Document{ID: id, Title: &title, Content: &content, OriginalFilename: id + ".pdf"},
		Score:    score,
	}
}

func TestAskEmptyCorpus(t *testing.T) {
	db := &ragDB{}
	llm := &ragLLM{}
	svc := NewService(db, llm, ragEmbedder{})

	answer := svc.Ask(context.Background(), "where is my invoice?")
	assert.Equal(t, noDocumentsAnswer, answer.Answer)
	assert.Empty(t, answer.Sources)
	assert.Zero(t, llm.calls, "no documents means no generation call")

	require.Len(t, db.saved, 1)
	assert.Equal(t, "where is my invoice?", db.saved[0].Question)
}

func TestAskAllDocumentsBelowThreshold(t *testing.T) {
	db := &ragDB{nearest: []models.ScoredDocument{
		scoredDoc("a", "Unrelated", "nothing relevant here", 0.05),
	}}
	llm := &ragLLM{}
	svc := NewService(db, llm, ragEmbedder{})

	answer := svc.Ask(context.Background(), "what is the rent?")
	assert.Equal(t, noRelevantAnswer, answer.Answer)
	assert.Empty(t, answer.Sources)
	assert.Zero(t, llm.calls)
}

func TestAskGeneratesGroundedAnswer(t *testing.T) {
	db := &ragDB{nearest: []models.ScoredDocument{
		scoredDoc("a", "Rental Contract", "The monthly rent is 900 EUR.", 0.8),
		scoredDoc("b", "Old Letter", "irrelevant", 0.05),
	}}
	llm := &ragLLM{response: "The rent is 900 EUR per the Rental Contract."}
	svc := NewService(db, llm, ragEmbedder{})

	answer := svc.Ask(context.Background(), "what is the rent?")
	assert.Equal(t, "The rent is 900 EUR per the Rental Contract.", answer.Answer)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "a", answer.Sources[0].DocID)
	assert.Equal(t, "Rental Contract", answer.Sources[0].Title)
	assert.Equal(t, 1, llm.calls)
}

func TestAskModelFailureFallsBackToSourceList(t *testing.T) {
	db := &ragDB{nearest: []models.ScoredDocument{
		scoredDoc("a", "Rental Contract", "The monthly rent is 900 EUR.", 0.8),
	}}
	llm := &ragLLM{err: errors.New("model offline")}
	svc := NewService(db, llm, ragEmbedder{})

	answer := svc.Ask(context.Background(), "what is the rent?")
	assert.True(t, strings.Contains(answer.Answer, "Rental Contract"))
	require.Len(t, answer.Sources, 1)

	// The degraded exchange is still recorded.
	require.Len(t, db.saved, 1)
	assert.Equal(t, answer.Answer, db.saved[0].Answer)
}

func TestAskBlankQuestion(t *testing.T) {
	db := &ragDB{}
	svc := NewService(db, &ragLLM{}, ragEmbedder{})
	answer := svc.Ask(context.Background(), "   ")
	assert.Equal(t, noRelevantAnswer, answer.Answer)
}
