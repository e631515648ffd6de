package classify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

type stubLLM struct {
	jsonResponse string
	jsonErr      error
}

func (s *stubLLM) Generate(context.Context, string, string) (string, error) {
	return "", errors.New("not used")
}

func (s *stubLLM) GenerateJSON(context.Context, string) (string, error) {
	return s.jsonResponse, s.jsonErr
}

func (s *stubLLM) GenerateVision(context.Context, string, []byte) (string, error) {
	return "", errors.New("not used")
}

func TestClassifyEmptyTextSkipsModel(t *testing.T) {
	c := NewMetadataClassifier(&stubLLM{jsonErr: errors.New("must not be called")})
	result := c.Classify(context.Background(), "  \n ", nil, nil, nil)
	assert.Equal(t, "", result.Title)
	assert.Empty(t, result.Tags)
}

func TestClassifyParsesCleanJSON(t *testing.T) {
	c := NewMetadataClassifier(&stubLLM{jsonResponse: `{
		"title": "Electricity Invoice March",
		"tags": ["utilities", "invoice"],
		"document_type": "Invoice",
		"correspondent": "City Power",
		"date": "2024-03-15",
		"summary": "Monthly electricity bill."
	}`})

	result := c.Classify(context.Background(), "some document text", nil, nil, nil)
	assert.Equal(t, "Electricity Invoice March", result.Title)
	assert.Equal(t, []string{"utilities", "invoice"}, result.Tags)
	assert.Equal(t, "Invoice", result.DocumentType)
	assert.Equal(t, "City Power", result.Correspondent)
	assert.Equal(t, "2024-03-15", result.Date)
}

func TestClassifyRescuesEmbeddedJSON(t *testing.T) {
	c := NewMetadataClassifier(&stubLLM{
		jsonResponse: "Sure! Here is the classification:\n```json\n{\"title\": \"Rental Contract\", \"tags\": []}\n``` hope that helps",
	})
	result := c.Classify(context.Background(), "contract text", nil, nil, nil)
	assert.Equal(t, "Rental Contract", result.Title)
}

func TestClassifyNullDate(t *testing.T) {
	c := NewMetadataClassifier(&stubLLM{jsonResponse: `{"title": "Note", "date": null}`})
	result := c.Classify(context.Background(), "a note", nil, nil, nil)
	assert.Equal(t, "", result.Date)
}

func TestClassifyFallbackTitleOnModelError(t *testing.T) {
	c := NewMetadataClassifier(&stubLLM{jsonErr: errors.New("connection refused")})
	result := c.Classify(context.Background(), "\n\n  Quarterly Report 2024  \nbody text", nil, nil, nil)
	assert.Equal(t, "Quarterly Report 2024", result.Title)
	assert.Empty(t, result.Tags)
}

func TestClassifyFallbackTitleOnGarbageResponse(t *testing.T) {
	c := NewMetadataClassifier(&stubLLM{jsonResponse: "I cannot help with that."})
	result := c.Classify(context.Background(), "First Line Title\nrest", nil, nil, nil)
	assert.Equal(t, "First Line Title", result.Title)
}

func TestFallbackTitleTruncatesLongLines(t *testing.T) {
	long := strings.Repeat("x", 300)
	assert.Len(t, fallbackTitle(long), 100)
	assert.Equal(t, "Untitled Document", fallbackTitle("  \n \n "))
}

func TestTruncateKeepsRunesIntact(t *testing.T) {
	// A multi-byte rune at the cut must not be split into invalid UTF-8.
	title := fallbackTitle(strings.Repeat("a", 99) + "é and more")
	assert.True(t, utf8.ValidString(title))
	assert.Equal(t, strings.Repeat("a", 99)+"é", title)

	text := strings.Repeat("ü", 3000)
	cut := truncate(text, maxPromptChars)
	assert.True(t, utf8.ValidString(cut))
	assert.Equal(t, text, cut)

	cut = truncate(strings.Repeat("ü", 5000), maxPromptChars)
	assert.True(t, utf8.ValidString(cut))
	assert.Equal(t, maxPromptChars, utf8.RuneCountInString(cut))
}

func TestBuildClassifyPromptMentionsKnownVocabulary(t *testing.T) {
	prompt := buildClassifyPrompt("text",
		[]string{"utilities"}, []string{"Invoice"}, []string{"City Power"})
	assert.Contains(t, prompt, "Existing tags: utilities")
	assert.Contains(t, prompt, "Existing document types: Invoice")
	assert.Contains(t, prompt, "Existing correspondents: City Power")

	empty := buildClassifyPrompt("text", nil, nil, nil)
	assert.Contains(t, empty, "No existing tags.")
}
