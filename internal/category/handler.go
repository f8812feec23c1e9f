package category

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"bijouterie-be/internal/adminlog"
	"bijouterie-be/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	repo     Repository
	auditLog adminlog.Repository
}

func NewHandler(repo Repository, auditLog adminlog.Repository) *Handler {
	return &Handler{repo: repo, auditLog: auditLog}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.repo.GetAll(r.Context())
	if err != nil {
		utils.WriteJSONError(w, "failed to list categories", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, categories)
}

type upsertRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

func (h *Handler) AdminCreate(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		utils.WriteFieldError(w, "name", "name is required")
		return
	}

	c, err := h.repo.Create(r.Context(), req.Name, req.Description)
	if err != nil {
		utils.WriteJSONError(w, "failed to create category", http.StatusInternalServerError)
		return
	}

	adminID, _ := utils.GetUserIDFromContext(r.Context())
	h.auditLog.Record(r.Context(), adminID, adminlog.ActionCreate, "category", &c.ID,
		map[string]string{"name": c.Name})

	utils.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req upsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		utils.WriteFieldError(w, "name", "name is required")
		return
	}

	if err := h.repo.Update(r.Context(), id, req.Name, req.Description); err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			utils.WriteJSONError(w, "category not found", http.StatusNotFound)
			return
		}
		utils.WriteJSONError(w, "failed to update category", http.StatusInternalServerError)
		return
	}

	adminID, _ := utils.GetUserIDFromContext(r.Context())
	h.auditLog.Record(r.Context(), adminID, adminlog.ActionUpdate, "category", &id,
		map[string]string{"name": req.Name})

	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) AdminDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			utils.WriteJSONError(w, "category not found", http.StatusNotFound)
			return
		}
		utils.WriteJSONError(w, "failed to delete category", http.StatusInternalServerError)
		return
	}

	adminID, _ := utils.GetUserIDFromContext(r.Context())
	h.auditLog.Record(r.Context(), adminID, adminlog.ActionDelete, "category", &id, nil)

	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
