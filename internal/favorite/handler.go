package favorite

import (
	"encoding/json"
	"errors"
	"net/http"

	"bijouterie-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/lib/pq"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	favorites, err := h.repo.List(r.Context(), userID)
	if err != nil {
		utils.WriteJSONError(w, "failed to list favorites", http.StatusInternalServerError)
		return
	}
	if favorites == nil {
		favorites = []Favorite{}
	}
	utils.WriteJSON(w, http.StatusOK, favorites)
}

type addRequest struct {
	ProductID string `json:"product_id"`
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		utils.WriteJSONError(w, "product_id is required", http.StatusBadRequest)
		return
	}

	if err := h.repo.Add(r.Context(), userID, req.ProductID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
			utils.WriteJSONError(w, "product not found", http.StatusNotFound)
			return
		}
		utils.WriteJSONError(w, "failed to add favorite", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, map[string]string{"status": "added"})
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	if err := h.repo.Remove(r.Context(), userID, chi.URLParam(r, "productID")); err != nil {
		if errors.Is(err, ErrFavoriteNotFound) {
			utils.WriteJSONError(w, "favorite not found", http.StatusNotFound)
			return
		}
		utils.WriteJSONError(w, "failed to remove favorite", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}
