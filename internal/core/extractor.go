package core

import (
	"context"

	"github.com/fahmykhattab/docuai/internal/models"
)

// TextExtractor pulls text from a file on disk. "No text found" is not an
// error: implementations return "" and reserve errors for unrecoverable I/O.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Classifier suggests document metadata from extracted text. Implementations
// must be total: any input, including empty text, yields a usable result.
type Classifier interface {
	Classify(ctx context.Context, text string, knownTags, knownTypes, knownCorrespondents []string) models.ClassificationResult
}

// FieldExtractor pulls structured key/value fields out of document text.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, text string) []models.ExtractedField
}

// Thumbnailer renders a preview PNG and reports file metadata.
type Thumbnailer interface {
	Generate(ctx context.Context, path, outPath string) bool
	FileInfo(ctx context.Context, path string) models.FileInfo
}

// Embedder produces semantic vectors and the chunking that feeds them.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dim() int
}
