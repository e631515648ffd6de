// Package search exposes fulltext, semantic and hybrid retrieval over the
// document store.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fahmykhattab/docuai/internal/core"
	"github.com/fahmykhattab/docuai/internal/models"
)

const (
	ModeFullText = "fulltext"
	ModeSemantic = "semantic"
	ModeHybrid   = "hybrid"

	// Hybrid fusion weights. Semantic similarity carries more signal than
	// keyword rank for natural-language queries.
	fullTextWeight = 0.4
	semanticWeight = 0.6

	snippetChars = 200
)

type Result struct {
	Items []Item `json:"items"`
	Total int    `json:"total"`
	Page  int    `json:"page"`
	Size  int    `json:"size"`
	Mode  string `json:"mode"`
}

type Item struct {
	ID               string       `json:"id"`
	Title            string       `json:"title"`
	OriginalFilename string       `json:"original_filename"`
	Snippet          string       `json:"snippet"`
	Score            float64      `json:"score"`
	Status           string       `json:"status"`
	Tags             []models.Tag `json:"tags"`
}

type Engine struct {
	db       core.DbClient
	embedder core.Embedder
}

func NewEngine(db core.DbClient, embedder core.Embedder) *Engine {
	return &Engine{db: db, embedder: embedder}
}

// Search runs one query in the requested mode. Page and size are normalized to
// sane values; an unknown mode falls back to hybrid.
func (e *Engine) Search(ctx context.Context, query, mode string, page, size int) (*Result, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return &Result{Items: []Item{}, Page: page, Size: size, Mode: mode}, nil
	}

	offset := (page - 1) * size
	switch mode {
	case ModeFullText:
		docs, total, err := e.db.SearchFullText(ctx, query, size, offset)
		if err != nil {
			return nil, fmt.Errorf("fulltext search: %w", err)
		}
		return e.result(docs, total, page, size, ModeFullText), nil
	case ModeSemantic:
		vec, err := e.embedder.Embed(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		docs, total, err := e.db.SearchSemantic(ctx, vec, size, offset)
		if err != nil {
			return nil, fmt.Errorf("semantic search: %w", err)
		}
		return e.result(docs, total, page, size, ModeSemantic), nil
	default:
		return e.hybrid(ctx, query, page, size)
	}
}

func (e *Engine) hybrid(ctx context.Context, query string, page, size int) (*Result, error) {
	ftScores, err := e.db.FullTextScores(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("fulltext scores: %w", err)
	}
	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	semScores, err := e.db.SemanticScores(ctx, vec)
	if err != nil {
		return nil, fmt.Errorf("semantic scores: %w", err)
	}

	fused := FuseScores(ftScores, semScores)
	total := len(fused)

	start := (page - 1) * size
	if start >= total {
		return &Result{Items: []Item{}, Total: total, Page: page, Size: size, Mode: ModeHybrid}, nil
	}
	end := start + size
	if end > total {
		end = total
	}
	window := fused[start:end]

	ids := make([]string, len(window))
	for i, s := range window {
		ids[i] = s.ID
	}
	byID, err := e.db.GetDocumentsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load hybrid results: %w", err)
	}

	items := make([]Item, 0, len(window))
	for _, s := range window {
		doc, ok := byID[s.ID]
		if !ok {
			continue
		}
		items = append(items, toItem(doc, s.Score))
	}
	return &Result{Items: items, Total: total, Page: page, Size: size, Mode: ModeHybrid}, nil
}

// FusedScore is one document's combined ranking in a hybrid query.
type FusedScore struct {
	ID    string
	Score float64
}

// FuseScores merges the two score maps over the union of their keys, weighting
// fulltext rank and semantic similarity, sorted best first with the document
// id as a stable tiebreak.
func FuseScores(fullText, semantic map[string]float64) []FusedScore {
	combined := make(map[string]float64, len(fullText)+len(semantic))
	for id, score := range fullText {
		combined[id] += score * fullTextWeight
	}
	for id, score := range semantic {
		combined[id] += score * semanticWeight
	}

	out := make([]FusedScore, 0, len(combined))
	for id, score := range combined {
		out = append(out, FusedScore{ID: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (e *Engine) result(docs []models.ScoredDocument, total, page, size int, mode string) *Result {
	items := make([]Item, 0, len(docs))
	for _, d := range docs {
		items = append(items, toItem(d.Document, d.Score))
	}
	return &Result{Items: items, Total: total, Page: page, Size: size, Mode: mode}
}

func toItem(doc models.Document, score float64) Item {
	title := doc.OriginalFilename
	if doc.Title != nil && *doc.Title != "" {
		title = *doc.Title
	}
	snippet := ""
	if doc.Content != nil {
		snippet = Snippet(*doc.Content, snippetChars)
	}
	tags := doc.Tags
	if tags == nil {
		tags = []models.Tag{}
	}
	return Item{
		ID:               doc.ID,
		Title:            title,
		OriginalFilename: doc.OriginalFilename,
		Snippet:          snippet,
		Score:            score,
		Status:           string(doc.Status),
		Tags:             tags,
	}
}

// Snippet returns the first max runes of text with whitespace collapsed.
func Snippet(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
