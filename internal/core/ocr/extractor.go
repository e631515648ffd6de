// Package ocr extracts text from stored originals: docconv first, with a
// vision-model fallback for scans the OCR layer cannot read.
package ocr

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"code.sajari.com/docconv"

	"github.com/fahmykhattab/docuai/internal/core"
	"github.com/fahmykhattab/docuai/internal/core/imaging"
)

// minUsableChars is the quality bar for the primary OCR pass. Anything shorter
// is treated as a failed scan and retried through the vision model.
const minUsableChars = 50

const visionPromptBase = "Extract ALL text from this document image. Return only the extracted text, " +
	"preserving the original structure and formatting as much as possible. " +
	"Do not add any commentary or explanation."

// visionPromptFor appends the configured languages as a hint for the vision
// model. The language setting uses tesseract codes joined with "+".
func visionPromptFor(language string) string {
	if language == "" {
		return visionPromptBase
	}
	langs := strings.ReplaceAll(language, "+", ", ")
	return visionPromptBase + " Expected document languages: " + langs + "."
}

type Extractor struct {
	llm      core.LLMProvider
	language string
}

func NewExtractor(llm core.LLMProvider, language string) *Extractor {
	return &Extractor{llm: llm, language: language}
}

// Extract pulls text from the file at path. "No text found" is not an error
// and yields ""; only unrecoverable I/O (missing file) fails.
func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("file not accessible at %q: %w", path, err)
	}

	text := ""
	res, err := docconv.ConvertPath(path)
	if err != nil {
		log.Printf("ocr: docconv failed for %s: %v", path, err)
	} else if res != nil {
		text = res.Body
	}

	if len(strings.TrimSpace(text)) < minUsableChars {
		log.Printf("ocr: result too short (%d chars) for %s, trying vision model", len(strings.TrimSpace(text)), path)
		visionText, err := e.visionOCR(ctx, path)
		if err != nil {
			log.Printf("ocr: vision fallback failed for %s: %v", path, err)
		} else if len(strings.TrimSpace(visionText)) > len(strings.TrimSpace(text)) {
			text = visionText
		}
	}

	return strings.TrimSpace(text), nil
}

// visionOCR sends the first page (or the image itself) to the vision model.
func (e *Extractor) visionOCR(ctx context.Context, path string) (string, error) {
	img, err := imaging.FirstPageImage(ctx, path, 300)
	if err != nil {
		return "", err
	}
	pngBytes, err := imaging.EncodePNG(img)
	if err != nil {
		return "", err
	}
	return e.llm.GenerateVision(ctx, visionPromptFor(e.language), pngBytes)
}

var _ core.TextExtractor = (*Extractor)(nil)
