package adminlog

import (
	"net/http"
	"strconv"

	"bijouterie-be/internal/utils"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.repo.List(r.Context(), limit)
	if err != nil {
		utils.WriteJSONError(w, "failed to list admin logs", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	utils.WriteJSON(w, http.StatusOK, entries)
}
