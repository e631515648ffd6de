package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVisionPromptForIncludesLanguages(t *testing.T) {
	prompt := visionPromptFor("eng+deu+ara")
	assert.Contains(t, prompt, "Extract ALL text")
	assert.Contains(t, prompt, "Expected document languages: eng, deu, ara.")
}

func TestVisionPromptForNoLanguage(t *testing.T) {
	prompt := visionPromptFor("")
	assert.Contains(t, prompt, "Extract ALL text")
	assert.NotContains(t, prompt, "Expected document languages")
}
