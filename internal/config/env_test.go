package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtensionAllowed(t *testing.T) {
	cfg := &Config{AllowedExtensions: []string{"pdf", "png"}}

	assert.True(t, cfg.ExtensionAllowed(".pdf"))
	assert.True(t, cfg.ExtensionAllowed("pdf"))
	assert.True(t, cfg.ExtensionAllowed(".PDF"))
	assert.False(t, cfg.ExtensionAllowed(".exe"))
	assert.False(t, cfg.ExtensionAllowed(""))
}

func TestMaxUploadSizeBytes(t *testing.T) {
	cfg := &Config{MaxUploadSizeMB: 50}
	assert.Equal(t, int64(50<<20), cfg.MaxUploadSizeBytes())
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("DOCUAI_TEST_STR", "value")
	t.Setenv("DOCUAI_TEST_INT", "42")
	t.Setenv("DOCUAI_TEST_BAD_INT", "nope")
	t.Setenv("DOCUAI_TEST_LIST", "PDF, png ,,jpg")

	assert.Equal(t, "value", getEnv("DOCUAI_TEST_STR", "def"))
	assert.Equal(t, "def", getEnv("DOCUAI_TEST_MISSING", "def"))
	assert.Equal(t, 42, getEnvInt("DOCUAI_TEST_INT", 1))
	assert.Equal(t, 1, getEnvInt("DOCUAI_TEST_BAD_INT", 1))
	assert.Equal(t, []string{"pdf", "png", "jpg"}, getEnvList("DOCUAI_TEST_LIST", ""))
}
