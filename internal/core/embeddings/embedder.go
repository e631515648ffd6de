// Package embeddings turns document text into fixed-dimension semantic
// vectors and provides the chunker that feeds long texts to the model.
package embeddings

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/fahmykhattab/docuai/internal/core"
)

const defaultBatchSize = 32

type Service struct {
	provider  core.EmbeddingProvider
	batchSize int
}

func NewService(provider core.EmbeddingProvider) *Service {
	return &Service{provider: provider, batchSize: defaultBatchSize}
}

func (s *Service) Dim() int { return s.provider.Dim() }

// Embed produces one vector. Blank text yields the zero vector without calling
// the model, keeping the operation total.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return make([]float32, s.provider.Dim()), nil
	}
	vecs, err := s.provider.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vecs))
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in provider-sized batches, fanning batches out with
// an errgroup. Blank entries map to the zero vector, preserving positions.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	// Collect the non-blank texts; blanks never reach the provider.
	var (
		pending []string
		slots   []int
	)
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			out[i] = make([]float32, s.provider.Dim())
			continue
		}
		pending = append(pending, t)
		slots = append(slots, i)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for start := 0; start < len(pending); start += s.batchSize {
		end := start + s.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		start, end := start, end
		g.Go(func() error {
			vecs, err := s.provider.EmbedTexts(gctx, pending[start:end])
			if err != nil {
				return fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
			}
			if len(vecs) != end-start {
				return fmt.Errorf("expected %d embeddings, got %d", end-start, len(vecs))
			}
			for i, v := range vecs {
				out[slots[start+i]] = v
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Chunk splits text into a sliding character window of the given size and
// overlap, dropping blank chunks. The split is a pure function of its two
// integer parameters, so re-chunking is always reproducible.
func Chunk(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("overlap must be in [0, size), got size=%d overlap=%d", size, overlap)
	}
	if text == "" {
		return []string{}, nil
	}

	var chunks []string
	runes := []rune(text)
	for start := 0; start < len(runes); start += size - overlap {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks, nil
}

var _ core.Embedder = (*Service)(nil)
