// Package thumbnail renders document preview images and reports file metadata.
package thumbnail

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"log"
	"os"
	"path/filepath"

	pdfcpu "github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/image/draw"

	"github.com/fahmykhattab/docuai/internal/core"
	"github.com/fahmykhattab/docuai/internal/core/imaging"
	"github.com/fahmykhattab/docuai/internal/models"
)

// Preview box in pixels; the source aspect ratio is preserved inside it.
const (
	thumbWidth  = 300
	thumbHeight = 400
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate writes a PNG preview of the document's first page to outPath and
// reports success. Failures are logged, never returned: thumbnailing is a
// non-fatal stage.
func (g *Generator) Generate(ctx context.Context, path, outPath string) bool {
	if _, err := os.Stat(path); err != nil {
		log.Printf("thumbnail: file not found: %s", path)
		return false
	}

	img, err := imaging.FirstPageImage(ctx, path, 150)
	if err != nil {
		log.Printf("thumbnail: render failed for %s: %v", path, err)
		return false
	}

	thumb := scaleInto(img, thumbWidth, thumbHeight)

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		log.Printf("thumbnail: create output dir: %v", err)
		return false
	}
	f, err := os.Create(outPath)
	if err != nil {
		log.Printf("thumbnail: create output file: %v", err)
		return false
	}
	defer f.Close()

	if err := png.Encode(f, thumb); err != nil {
		log.Printf("thumbnail: encode failed for %s: %v", outPath, err)
		return false
	}
	log.Printf("thumbnail: generated %s", outPath)
	return true
}

// FileInfo reports size, MIME type and page count for the stored original.
func (g *Generator) FileInfo(ctx context.Context, path string) models.FileInfo {
	st, err := os.Stat(path)
	if err != nil {
		return models.FileInfo{MimeType: "unknown"}
	}

	info := models.FileInfo{
		Size:     st.Size(),
		MimeType: imaging.DetectMime(path),
		Pages:    1,
	}
	if imaging.IsPDF(path) {
		pages, err := pdfcpu.PageCountFile(path)
		if err != nil {
			log.Printf("thumbnail: could not get PDF page count for %s: %v", path, err)
			pages = 0
		}
		info.Pages = pages
	}
	return info
}

// scaleInto fits the image into a w×h box with Catmull-Rom resampling,
// flattening any alpha onto white.
func scaleInto(src image.Image, w, h int) image.Image {
	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()
	if sw == 0 || sh == 0 {
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}

	scale := float64(w) / float64(sw)
	if s := float64(h) / float64(sh); s < scale {
		scale = s
	}
	if scale > 1 {
		scale = 1
	}
	dw, dh := int(float64(sw)*scale), int(float64(sh)*scale)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

var _ core.Thumbnailer = (*Generator)(nil)
