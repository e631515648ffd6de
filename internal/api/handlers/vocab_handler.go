package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fahmykhattab/docuai/internal/core"
	"github.com/fahmykhattab/docuai/internal/models"
)

// VocabHandler serves the three flat vocabularies: tags, document types and
// correspondents. All three de-duplicate by slug, so creating "Power Bill"
// when "power-bill" exists returns the existing entity.
type VocabHandler struct {
	db core.DbClient
}

func NewVocabHandler(db core.DbClient) *VocabHandler {
	return &VocabHandler{db: db}
}

type vocabRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (h *VocabHandler) decode(w http.ResponseWriter, r *http.Request) (*vocabRequest, bool) {
	var req vocabRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name must not be empty")
		return nil, false
	}
	return &req, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func (h *VocabHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.db.ListTags(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (h *VocabHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	slug := models.Slugify(req.Name)
	if existing, err := h.db.GetTagBySlug(r.Context(), slug); err == nil && existing != nil {
		writeJSON(w, http.StatusOK, existing)
		return
	}
	tag := &models.Tag{Name: req.Name, Color: req.Color, Slug: slug}
	if err := h.db.CreateTag(r.Context(), tag); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, tag)
}

func (h *VocabHandler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	tag := &models.Tag{ID: id, Name: req.Name, Color: req.Color, Slug: models.Slugify(req.Name)}
	if err := h.db.UpdateTag(r.Context(), tag); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

func (h *VocabHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.db.DeleteTag(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "id": id})
}

func (h *VocabHandler) ListDocumentTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.db.ListDocumentTypes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, types)
}

func (h *VocabHandler) CreateDocumentType(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	slug := models.Slugify(req.Name)
	if existing, err := h.db.GetDocumentTypeBySlug(r.Context(), slug); err == nil && existing != nil {
		writeJSON(w, http.StatusOK, existing)
		return
	}
	dt := &models.DocumentType{Name: req.Name, Slug: slug}
	if err := h.db.CreateDocumentType(r.Context(), dt); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, dt)
}

func (h *VocabHandler) UpdateDocumentType(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	dt := &models.DocumentType{ID: id, Name: req.Name, Slug: models.Slugify(req.Name)}
	if err := h.db.UpdateDocumentType(r.Context(), dt); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, dt)
}

func (h *VocabHandler) DeleteDocumentType(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.db.DeleteDocumentType(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "id": id})
}

func (h *VocabHandler) ListCorrespondents(w http.ResponseWriter, r *http.Request) {
	cs, err := h.db.ListCorrespondents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *VocabHandler) CreateCorrespondent(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	slug := models.Slugify(req.Name)
	if existing, err := h.db.GetCorrespondentBySlug(r.Context(), slug); err == nil && existing != nil {
		writeJSON(w, http.StatusOK, existing)
		return
	}
	c := &models.Correspondent{Name: req.Name, Slug: slug}
	if err := h.db.CreateCorrespondent(r.Context(), c); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *VocabHandler) UpdateCorrespondent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	c := &models.Correspondent{ID: id, Name: req.Name, Slug: models.Slugify(req.Name)}
	if err := h.db.UpdateCorrespondent(r.Context(), c); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *VocabHandler) DeleteCorrespondent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.db.DeleteCorrespondent(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "id": id})
}
