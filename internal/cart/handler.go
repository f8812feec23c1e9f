package cart

import (
	"encoding/json"
	"errors"
	"net/http"

	"bijouterie-be/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	items, err := h.svc.GetCart(r.Context(), userID)
	if err != nil {
		utils.WriteJSONError(w, "failed to load cart", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []Item{}
	}
	utils.WriteJSON(w, http.StatusOK, items)
}

type addRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	item, err := h.svc.AddToCart(r.Context(), AddParams{
		UserID:    userID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrProductNotFound):
			utils.WriteJSONError(w, "product not found", http.StatusNotFound)
		case errors.Is(err, ErrInsufficientStock):
			utils.WriteJSONError(w, "insufficient stock", http.StatusConflict)
		case errors.Is(err, ErrInvalidQuantity):
			utils.WriteFieldError(w, "quantity", "quantity must be greater than zero")
		default:
			utils.WriteJSONError(w, "failed to add to cart", http.StatusInternalServerError)
		}
		return
	}

	utils.WriteJSON(w, http.StatusCreated, item)
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())
	itemID := chi.URLParam(r, "id")

	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.svc.UpdateQuantity(r.Context(), userID, itemID, req.Quantity); err != nil {
		switch {
		case errors.Is(err, ErrItemNotFound):
			utils.WriteJSONError(w, "cart item not found", http.StatusNotFound)
		case errors.Is(err, ErrInvalidQuantity):
			utils.WriteFieldError(w, "quantity", "quantity must be greater than zero")
		default:
			utils.WriteJSONError(w, "failed to update cart", http.StatusInternalServerError)
		}
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	if err := h.svc.Remove(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, ErrItemNotFound) {
			utils.WriteJSONError(w, "cart item not found", http.StatusNotFound)
			return
		}
		utils.WriteJSONError(w, "failed to remove cart item", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	if err := h.svc.Clear(r.Context(), userID); err != nil {
		utils.WriteJSONError(w, "failed to clear cart", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
