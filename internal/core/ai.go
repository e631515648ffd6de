package core

import "context"

// LLMProvider is a generative-text endpoint. GenerateJSON constrains the model
// to emit a single JSON object; GenerateVision reads text out of an image.
type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	GenerateJSON(ctx context.Context, prompt string) (string, error)
	GenerateVision(ctx context.Context, prompt string, imagePNG []byte) (string, error)
}

// EmbeddingProvider turns texts into fixed-dimension vectors.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	Dim() int
}
