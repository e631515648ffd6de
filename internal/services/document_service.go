// Package services holds the ingestion-side application services: creating
// document records from uploaded or watched files and removing them again.
package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fahmykhattab/docuai/internal/config"
	"github.com/fahmykhattab/docuai/internal/core"
	"github.com/fahmykhattab/docuai/internal/core/imaging"
	"github.com/fahmykhattab/docuai/internal/core/pipeline"
	"github.com/fahmykhattab/docuai/internal/models"
)

type DocumentService struct {
	db    core.DbClient
	blobs core.BlobStore
	queue *pipeline.Queue
	cfg   *config.Config
}

func NewDocumentService(db core.DbClient, blobs core.BlobStore, queue *pipeline.Queue, cfg *config.Config) *DocumentService {
	return &DocumentService{db: db, blobs: blobs, queue: queue, cfg: cfg}
}

// Ingest stores one file in the blob store, creates its pending document
// record and enqueues processing. filename is the original client-side name.
func (s *DocumentService) Ingest(ctx context.Context, filename string, size int64, r io.Reader) (*models.Document, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !s.cfg.ExtensionAllowed(ext) {
		return nil, fmt.Errorf("file type %q is not allowed", ext)
	}
	if size > s.cfg.MaxUploadSizeBytes() {
		return nil, fmt.Errorf("file exceeds the %d MB upload limit", s.cfg.MaxUploadSizeMB)
	}

	id := uuid.NewString()
	storePath := storagePath(id, filename)
	if err := s.blobs.Put(ctx, storePath, r, mimeForExt(ext)); err != nil {
		return nil, fmt.Errorf("store %s: %w", filename, err)
	}

	doc := &models.Document{
		ID:               id,
		OriginalFilename: filepath.Base(filename),
		FilePath:         storePath,
		Status:           models.StatusPending,
	}
	if size > 0 {
		doc.FileSize = &size
	}
	if mt := mimeForExt(ext); mt != "" {
		doc.MimeType = &mt
	}
	if err := s.db.CreateDocument(ctx, doc); err != nil {
		if derr := s.blobs.Delete(ctx, storePath); derr != nil {
			log.Printf("ingest: could not remove orphaned blob %s: %v", storePath, derr)
		}
		return nil, fmt.Errorf("create document record: %w", err)
	}

	s.queue.EnqueueProcess(doc.ID)
	log.Printf("ingest: queued %s (%s)", doc.OriginalFilename, doc.ID)
	return doc, nil
}

// IngestLocalFile ingests a file already on disk (the consume directory) and
// removes the source after a successful ingest.
func (s *DocumentService) IngestLocalFile(ctx context.Context, path string) (*models.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	doc, err := s.Ingest(ctx, filepath.Base(path), info.Size(), f)
	if err != nil {
		return nil, err
	}
	if err := os.Remove(path); err != nil {
		log.Printf("ingest: could not remove consumed file %s: %v", path, err)
	}
	return doc, nil
}

// Reprocess re-queues the AI stages for an existing document.
func (s *DocumentService) Reprocess(ctx context.Context, id string) (*models.Document, error) {
	doc, err := s.db.GetDocumentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	s.queue.EnqueueReprocess(id)
	return doc, nil
}

// Delete removes the record, the stored original and the thumbnail. Blob
// removal failures are logged, not returned: the record is gone either way.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	doc, err := s.db.GetDocumentByID(ctx, id)
	if err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	if err := s.db.DeleteDocument(ctx, id); err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, doc.FilePath); err != nil {
		log.Printf("delete: could not remove blob %s: %v", doc.FilePath, err)
	}
	if doc.ThumbnailPath != nil && *doc.ThumbnailPath != "" {
		thumb := filepath.Join(s.cfg.ThumbnailDir, *doc.ThumbnailPath)
		if err := os.Remove(thumb); err != nil && !os.IsNotExist(err) {
			log.Printf("delete: could not remove thumbnail %s: %v", thumb, err)
		}
	}
	return nil
}

// storagePath shards originals by ingest month so no single directory or key
// prefix grows unbounded.
func storagePath(id, filename string) string {
	now := time.Now()
	compact := strings.ReplaceAll(id, "-", "")
	name := sanitizeFilename(filepath.Base(filename))
	return fmt.Sprintf("%04d/%02d/%s_%s", now.Year(), int(now.Month()), compact, name)
}

func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}

func mimeForExt(ext string) string {
	return imaging.MimeForExtension(ext)
}
