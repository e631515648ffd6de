package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStoragePathLayout(t *testing.T) {
	id := "a1b2c3d4-e5f6-7890-abcd-ef1234567890"
	path := storagePath(id, "My Invoice (final).pdf")

	now := time.Now()
	prefix := fmt.Sprintf("%04d/%02d/", now.Year(), int(now.Month()))
	assert.True(t, strings.HasPrefix(path, prefix), "path %q should start with %q", path, prefix)
	assert.Contains(t, path, "a1b2c3d4e5f678", "path should carry the compact document id")
	assert.NotContains(t, path, " ")
	assert.NotContains(t, path, "(")
}

func TestStoragePathStripsDirectories(t *testing.T) {
	path := storagePath("a1b2c3d4-e5f6-7890-abcd-ef1234567890", "../../etc/passwd")
	assert.NotContains(t, path, "..")
	assert.True(t, strings.HasSuffix(path, "_passwd"))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "report-2024_v2.pdf", sanitizeFilename("report-2024_v2.pdf"))
	assert.Equal(t, "My_Invoice__final_.pdf", sanitizeFilename("My Invoice (final).pdf"))
	assert.Equal(t, "file", sanitizeFilename(""))
}
