// Package classify wraps the LLM for metadata suggestion and structured field
// extraction. Both adapters are total: when the model is unreachable or its
// output unparseable they degrade to deterministic fallbacks instead of
// returning errors.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/fahmykhattab/docuai/internal/core"
	"github.com/fahmykhattab/docuai/internal/models"
)

// maxPromptChars bounds the document text sent to the model so long documents
// stay inside the context window.
const maxPromptChars = 4000

// embeddedJSON rescues a JSON object buried in chatty model output.
var embeddedJSON = regexp.MustCompile(`(?s)\{.*\}`)

type MetadataClassifier struct {
	llm core.LLMProvider
}

func NewMetadataClassifier(llm core.LLMProvider) *MetadataClassifier {
	return &MetadataClassifier{llm: llm}
}

func (c *MetadataClassifier) Classify(ctx context.Context, text string, knownTags, knownTypes, knownCorrespondents []string) models.ClassificationResult {
	if strings.TrimSpace(text) == "" {
		return models.ClassificationResult{}
	}

	prompt := buildClassifyPrompt(truncate(text, maxPromptChars), knownTags, knownTypes, knownCorrespondents)

	raw, err := c.llm.GenerateJSON(ctx, prompt)
	if err != nil {
		log.Printf("classify: model unavailable, using fallback title: %v", err)
		return models.ClassificationResult{Title: fallbackTitle(text)}
	}

	result, ok := parseClassification(raw)
	if !ok {
		log.Printf("classify: unparseable response: %s", truncate(raw, 200))
		return models.ClassificationResult{Title: fallbackTitle(text)}
	}
	return result
}

func buildClassifyPrompt(text string, knownTags, knownTypes, knownCorrespondents []string) string {
	tagsHint := "No existing tags."
	if len(knownTags) > 0 {
		tagsHint = "Existing tags: " + strings.Join(knownTags, ", ")
	}
	typesHint := "No existing types."
	if len(knownTypes) > 0 {
		typesHint = "Existing document types: " + strings.Join(knownTypes, ", ")
	}
	corrHint := "No existing correspondents."
	if len(knownCorrespondents) > 0 {
		corrHint = "Existing correspondents: " + strings.Join(knownCorrespondents, ", ")
	}

	return fmt.Sprintf(`Analyze the following document text and provide classification metadata.

%s
%s
%s

Respond ONLY with a valid JSON object with these exact keys:
- "title": A concise descriptive title for this document
- "tags": An array of tag names (reuse existing tags when appropriate, or suggest new ones)
- "document_type": The type of document (e.g., "Invoice", "Receipt", "Contract", "Letter", "Report"). Reuse existing types when appropriate.
- "correspondent": The sender/author/company name. Reuse existing correspondents when appropriate.
- "date": The document date in YYYY-MM-DD format, or null if not found
- "summary": A brief 1-2 sentence summary

Document text:
---
%s
---

JSON response:`, tagsHint, typesHint, corrHint, text)
}

func parseClassification(raw string) (models.ClassificationResult, bool) {
	var payload struct {
		Title         string   `json:"title"`
		Tags          []string `json:"tags"`
		DocumentType  string   `json:"document_type"`
		Correspondent string   `json:"correspondent"`
		Date          *string  `json:"date"`
		Summary       string   `json:"summary"`
	}

	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		match := embeddedJSON.FindString(raw)
		if match == "" {
			return models.ClassificationResult{}, false
		}
		if err := json.Unmarshal([]byte(match), &payload); err != nil {
			return models.ClassificationResult{}, false
		}
	}

	result := models.ClassificationResult{
		Title:         payload.Title,
		DocumentType:  payload.DocumentType,
		Correspondent: payload.Correspondent,
		Summary:       payload.Summary,
	}
	if payload.Date != nil {
		result.Date = *payload.Date
	}
	for _, t := range payload.Tags {
		if t != "" {
			result.Tags = append(result.Tags, t)
		}
	}
	return result, true
}

// fallbackTitle derives a title from the first non-blank line of the text.
func fallbackTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return truncate(line, 100)
		}
	}
	return "Untitled Document"
}

// truncate cuts s to at most n runes. Byte slicing would split multi-byte
// runes at the boundary and produce invalid UTF-8, which Postgres rejects.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var _ core.Classifier = (*MetadataClassifier)(nil)
