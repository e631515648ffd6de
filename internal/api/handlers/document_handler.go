package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fahmykhattab/docuai/internal/config"
	"github.com/fahmykhattab/docuai/internal/core"
	"github.com/fahmykhattab/docuai/internal/core/search"
	"github.com/fahmykhattab/docuai/internal/models"
	"github.com/fahmykhattab/docuai/internal/services"
)

type DocumentHandler struct {
	db     core.DbClient
	blobs  core.BlobStore
	docs   *services.DocumentService
	engine *search.Engine
	cfg    *config.Config
}

func NewDocumentHandler(db core.DbClient, blobs core.BlobStore, docs *services.DocumentService, engine *search.Engine, cfg *config.Config) *DocumentHandler {
	return &DocumentHandler{db: db, blobs: blobs, docs: docs, engine: engine, cfg: cfg}
}

// Upload accepts one or more files under the "files" form field ("file" also
// works) and returns the created records, one per file. A bad file rejects
// that file only.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.cfg.MaxUploadSizeBytes()); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		files = r.MultipartForm.File["file"]
	}
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no files in request")
		return
	}

	type uploadResult struct {
		Filename string           `json:"filename"`
		Document *models.Document `json:"document,omitempty"`
		Error    string           `json:"error,omitempty"`
	}

	results := make([]uploadResult, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			results = append(results, uploadResult{Filename: fh.Filename, Error: "could not read file"})
			continue
		}
		doc, err := h.docs.Ingest(r.Context(), fh.Filename, fh.Size, f)
		f.Close()
		if err != nil {
			results = append(results, uploadResult{Filename: fh.Filename, Error: err.Error()})
			continue
		}
		results = append(results, uploadResult{Filename: fh.Filename, Document: doc})
	}
	writeJSON(w, http.StatusCreated, results)
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	f := core.DocumentFilter{
		Page:            queryInt(r, "page", 1),
		Size:            queryInt(r, "size", 20),
		TagID:           queryIntPtr(r, "tag_id"),
		DocumentTypeID:  queryIntPtr(r, "document_type_id"),
		CorrespondentID: queryIntPtr(r, "correspondent_id"),
		Status:          r.URL.Query().Get("status"),
		SortBy:          r.URL.Query().Get("sort_by"),
		SortOrder:       r.URL.Query().Get("sort_order"),
	}
	docs, total, err := h.db.ListDocuments(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": docs,
		"total": total,
		"page":  f.Page,
		"size":  f.Size,
	})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.loadDocument(w, r)
	if !ok {
		return
	}
	fields, err := h.db.ListCustomFields(r.Context(), doc.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document":      doc,
		"custom_fields": fields,
	})
}

type documentUpdateRequest struct {
	Title           *string `json:"title"`
	CreatedDate     *string `json:"created_date"`
	DocumentTypeID  *int    `json:"document_type_id"`
	CorrespondentID *int    `json:"correspondent_id"`
	TagIDs          *[]int  `json:"tag_ids"`
}

// Update patches document metadata. Only fields present in the body change;
// tag_ids replaces the whole tag set.
func (h *DocumentHandler) Update(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.loadDocument(w, r)
	if !ok {
		return
	}

	var req documentUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Title != nil {
		doc.Title = req.Title
	}
	if req.CreatedDate != nil {
		if *req.CreatedDate == "" {
			doc.CreatedDate = nil
		} else {
			ts, err := time.Parse("2006-01-02", *req.CreatedDate)
			if err != nil {
				writeError(w, http.StatusBadRequest, "created_date must be YYYY-MM-DD")
				return
			}
			doc.CreatedDate = &ts
		}
	}
	if req.DocumentTypeID != nil {
		if *req.DocumentTypeID == 0 {
			doc.DocumentTypeID = nil
		} else {
			doc.DocumentTypeID = req.DocumentTypeID
		}
	}
	if req.CorrespondentID != nil {
		if *req.CorrespondentID == 0 {
			doc.CorrespondentID = nil
		} else {
			doc.CorrespondentID = req.CorrespondentID
		}
	}

	if err := h.db.UpdateDocument(r.Context(), doc); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if req.TagIDs != nil {
		if err := h.db.ReplaceDocumentTags(r.Context(), doc.ID, *req.TagIDs); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	updated, err := h.db.GetDocumentByID(r.Context(), doc.ID)
	if err != nil || updated == nil {
		writeError(w, http.StatusInternalServerError, "could not reload document")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.docs.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

func (h *DocumentHandler) Reprocess(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := h.docs.Reprocess(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if doc == nil {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "id": id})
}

func (h *DocumentHandler) Logs(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.loadDocument(w, r)
	if !ok {
		return
	}
	logs, err := h.db.ListProcessingLogs(r.Context(), doc.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// Download streams the stored original with its upload-time filename.
func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.loadDocument(w, r)
	if !ok {
		return
	}
	rc, err := h.blobs.Get(r.Context(), doc.FilePath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer rc.Close()

	contentType := "application/octet-stream"
	if doc.MimeType != nil && *doc.MimeType != "" {
		contentType = *doc.MimeType
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+sanitizeHeaderFilename(doc.OriginalFilename)+`"`)
	if _, err := io.Copy(w, rc); err != nil {
		log.Printf("http: download of %s aborted: %v", doc.ID, err)
	}
}

func (h *DocumentHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.loadDocument(w, r)
	if !ok {
		return
	}
	if doc.ThumbnailPath == nil || *doc.ThumbnailPath == "" {
		writeError(w, http.StatusNotFound, "no thumbnail for this document")
		return
	}
	path := filepath.Join(h.cfg.ThumbnailDir, filepath.Base(*doc.ThumbnailPath))
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		writeError(w, http.StatusNotFound, "thumbnail file missing")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, path)
}

func (h *DocumentHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = search.ModeHybrid
	}
	res, err := h.engine.Search(r.Context(), q, mode, queryInt(r, "page", 1), queryInt(r, "size", 20))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *DocumentHandler) loadDocument(w http.ResponseWriter, r *http.Request) (*models.Document, bool) {
	id := chi.URLParam(r, "id")
	doc, err := h.db.GetDocumentByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if doc == nil {
		writeError(w, http.StatusNotFound, "document not found")
		return nil, false
	}
	return doc, true
}

func sanitizeHeaderFilename(name string) string {
	name = strings.ReplaceAll(name, `"`, "")
	name = strings.ReplaceAll(name, "\r", "")
	name = strings.ReplaceAll(name, "\n", "")
	return name
}
