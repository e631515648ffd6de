package handlers

import (
	"net/http"

	"github.com/fahmykhattab/docuai/internal/core"
)

type DashboardHandler struct {
	db core.DbClient
}

func NewDashboardHandler(db core.DbClient) *DashboardHandler {
	return &DashboardHandler{db: db}
}

func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.DashboardStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
