package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/fahmykhattab/docuai/internal/core"
	"github.com/fahmykhattab/docuai/internal/core/rag"
)

type ChatHandler struct {
	db  core.DbClient
	rag *rag.Service
}

func NewChatHandler(db core.DbClient, ragService *rag.Service) *ChatHandler {
	return &ChatHandler{db: db, rag: ragService}
}

type askRequest struct {
	Question string `json:"question"`
}

// Ask answers one question over the corpus. Retrieval and generation problems
// degrade to a best-effort answer, so this endpoint only fails on bad input.
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question must not be empty")
		return
	}
	writeJSON(w, http.StatusOK, h.rag.Ask(r.Context(), req.Question))
}

func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	history, err := h.db.ListChatHistory(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, history)
}
