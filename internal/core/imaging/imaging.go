// Package imaging has the shared raster plumbing for OCR fallback and
// thumbnail generation: PDF page rendering via poppler's pdftoppm, decoding of
// the ingestable image formats, and MIME sniffing.
package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

var mimeByExt = map[string]string{
	"pdf":  "application/pdf",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"tiff": "image/tiff",
	"tif":  "image/tiff",
	"webp": "image/webp",
	"bmp":  "image/bmp",
	"gif":  "image/gif",
}

// MimeForExtension maps a file extension (with or without the leading dot) to
// its MIME type, defaulting to application/octet-stream.
func MimeForExtension(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if m, ok := mimeByExt[ext]; ok {
		return m
	}
	return "application/octet-stream"
}

// DetectMime sniffs the file's MIME type from content, falling back to the
// extension when the file cannot be read.
func DetectMime(path string) string {
	if mt, err := mimetype.DetectFile(path); err == nil {
		return mt.String()
	}
	return MimeForExtension(filepath.Ext(path))
}

// DetectMimeBytes sniffs a MIME type from an in-memory prefix of the file.
func DetectMimeBytes(head []byte) string {
	return mimetype.Detect(head).String()
}

func IsPDF(path string) bool {
	return DetectMime(path) == "application/pdf" || strings.HasSuffix(strings.ToLower(path), ".pdf")
}

// RenderPDFPage rasterizes one page (1-based) of a PDF to an image using
// pdftoppm, the same renderer the rest of the poppler toolchain uses.
func RenderPDFPage(ctx context.Context, path string, page, dpi int) (image.Image, error) {
	tmpDir, err := os.MkdirTemp("", "docuai-render-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-png",
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		"-r", strconv.Itoa(dpi),
		path, prefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, out)
	}

	matches, err := filepath.Glob(prefix + "*.png")
	if err != nil || len(matches) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no output for page %d of %s", page, path)
	}

	f, err := os.Open(matches[0])
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode rendered page: %w", err)
	}
	return img, nil
}

// DecodeImage decodes any of the ingestable raster formats.
func DecodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch DetectMime(path) {
	case "image/webp":
		return webp.Decode(f)
	case "image/bmp", "image/x-ms-bmp":
		return bmp.Decode(f)
	case "image/tiff":
		return tiff.Decode(f)
	case "image/gif":
		return gif.Decode(f)
	case "image/jpeg":
		return jpeg.Decode(f)
	case "image/png":
		return png.Decode(f)
	default:
		img, _, err := image.Decode(f)
		return img, err
	}
}

// FirstPageImage returns page 1 of a PDF, or the decoded image for raster files.
func FirstPageImage(ctx context.Context, path string, dpi int) (image.Image, error) {
	if IsPDF(path) {
		return RenderPDFPage(ctx, path, 1, dpi)
	}
	return DecodeImage(path)
}

// EncodePNG renders an image to PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
