// Package rag answers natural-language questions grounded on the most
// similar documents in the corpus.
package rag

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/fahmykhattab/docuai/internal/core"
	"github.com/fahmykhattab/docuai/internal/core/search"
	"github.com/fahmykhattab/docuai/internal/models"
)

const (
	topK         = 5
	minScore     = 0.1
	contextChars = 800

	systemPrompt = "You are a helpful assistant that answers questions about the user's documents. " +
		"Use only the provided document excerpts to answer. If the excerpts do not contain " +
		"the answer, say so. Always mention which document the information comes from."

	noDocumentsAnswer = "I don't have any processed documents to search yet. Upload some documents first."
	noRelevantAnswer  = "I couldn't find any documents relevant to your question."
)

type Answer struct {
	Answer  string              `json:"answer"`
	Sources []models.ChatSource `json:"sources"`
}

type Service struct {
	db       core.DbClient
	llm      core.LLMProvider
	embedder core.Embedder
}

func NewService(db core.DbClient, llm core.LLMProvider, embedder core.Embedder) *Service {
	return &Service{db: db, llm: llm, embedder: embedder}
}

// Ask answers one question over the document corpus. It degrades instead of
// failing: retrieval or generation problems produce a usable answer with
// whatever sources were found, and the exchange is always recorded.
func (s *Service) Ask(ctx context.Context, question string) *Answer {
	question = strings.TrimSpace(question)
	answer := s.answer(ctx, question)

	history := &models.ChatHistory{Question: question, Answer: answer.Answer, Sources: answer.Sources}
	if err := s.db.AddChatHistory(ctx, history); err != nil {
		log.Printf("rag: could not record chat history: %v", err)
	}
	return answer
}

func (s *Service) answer(ctx context.Context, question string) *Answer {
	if question == "" {
		return &Answer{Answer: noRelevantAnswer, Sources: []models.ChatSource{}}
	}

	vec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		log.Printf("rag: could not embed question: %v", err)
		return &Answer{Answer: noDocumentsAnswer, Sources: []models.ChatSource{}}
	}

	scored, err := s.db.NearestDocuments(ctx, vec, topK)
	if err != nil {
		log.Printf("rag: retrieval failed: %v", err)
		return &Answer{Answer: noDocumentsAnswer, Sources: []models.ChatSource{}}
	}
	if len(scored) == 0 {
		return &Answer{Answer: noDocumentsAnswer, Sources: []models.ChatSource{}}
	}

	relevant := scored[:0:0]
	for _, d := range scored {
		if d.Score >= minScore {
			relevant = append(relevant, d)
		}
	}
	if len(relevant) == 0 {
		return &Answer{Answer: noRelevantAnswer, Sources: []models.ChatSource{}}
	}

	sources := make([]models.ChatSource, 0, len(relevant))
	var b strings.Builder
	for _, d := range relevant {
		title := d.Document.OriginalFilename
		if d.Document.Title != nil && *d.Document.Title != "" {
			title = *d.Document.Title
		}
		content := ""
		if d.Document.Content != nil {
			content = *d.Document.Content
		}
		excerpt := search.Snippet(content, contextChars)
		fmt.Fprintf(&b, "[Document: %s]\n%s\n\n", title, excerpt)
		sources = append(sources, models.ChatSource{
			DocID:   d.Document.ID,
			Title:   title,
			Snippet: search.Snippet(content, 200),
		})
	}

	user := fmt.Sprintf("Document excerpts:\n\n%sQuestion: %s", b.String(), question)
	text, err := s.llm.Generate(ctx, systemPrompt, user)
	if err != nil {
		log.Printf("rag: generation failed: %v", err)
		return &Answer{Answer: sourceListFallback(sources), Sources: sources}
	}
	return &Answer{Answer: strings.TrimSpace(text), Sources: sources}
}

// sourceListFallback keeps the endpoint useful when the model is unreachable:
// the user at least learns which documents matched.
func sourceListFallback(sources []models.ChatSource) string {
	var b strings.Builder
	b.WriteString("I found these documents that may be relevant, but could not generate an answer right now:\n")
	for _, s := range sources {
		b.WriteString("- ")
		b.WriteString(s.Title)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
