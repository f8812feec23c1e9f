package product

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"bijouterie-be/internal/adminlog"
	"bijouterie-be/internal/logger"
	"bijouterie-be/internal/storage"
	"bijouterie-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	svc      Service
	store    storage.Client
	auditLog adminlog.Repository
}

func NewHandler(svc Service, store storage.Client, auditLog adminlog.Repository) *Handler {
	return &Handler{svc: svc, store: store, auditLog: auditLog}
}

// ListCatalog is the public storefront listing, filtered by the search box
// and category selector.
func (h *Handler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.ListCatalog(r.Context(),
		r.URL.Query().Get("search"),
		r.URL.Query().Get("category"),
	)
	if err != nil {
		logger.FromCtx(r.Context()).Error("failed to list catalog", zap.Error(err))
		utils.WriteJSONError(w, "failed to list products", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, products)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			utils.WriteJSONError(w, "product not found", http.StatusNotFound)
			return
		}
		utils.WriteJSONError(w, "failed to load product", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.ListAll(r.Context())
	if err != nil {
		utils.WriteJSONError(w, "failed to list products", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, products)
}

func (h *Handler) AdminCreate(w http.ResponseWriter, r *http.Request) {
	var params UpsertParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	p, err := h.svc.Create(r.Context(), params)
	if err != nil {
		utils.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	adminID, _ := utils.GetUserIDFromContext(r.Context())
	h.auditLog.Record(r.Context(), adminID, adminlog.ActionCreate, "product", &p.ID,
		map[string]string{"name": p.Name})

	utils.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var params UpsertParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.svc.Update(r.Context(), id, params); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			utils.WriteJSONError(w, "product not found", http.StatusNotFound)
			return
		}
		utils.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	adminID, _ := utils.GetUserIDFromContext(r.Context())
	h.auditLog.Record(r.Context(), adminID, adminlog.ActionUpdate, "product", &id,
		map[string]string{"name": params.Name})

	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) AdminDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.svc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			utils.WriteJSONError(w, "product not found", http.StatusNotFound)
			return
		}
		utils.WriteJSONError(w, "failed to delete product", http.StatusInternalServerError)
		return
	}

	adminID, _ := utils.GetUserIDFromContext(r.Context())
	h.auditLog.Record(r.Context(), adminID, adminlog.ActionDelete, "product", &id, nil)

	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// AdminUploadImage accepts a raw image body and returns the stored public
// URL for the admin form to attach to a product.
func (h *Handler) AdminUploadImage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, storage.MaxImageSize+1))
	if err != nil {
		utils.WriteJSONError(w, "unable to read body", http.StatusBadRequest)
		return
	}

	url, err := h.store.UploadImage(r.Context(), body, r.Header.Get("Content-Type"))
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrImageTooLarge):
			utils.WriteJSONError(w, "image exceeds the 5MB limit", http.StatusRequestEntityTooLarge)
		case errors.Is(err, storage.ErrUnsupportedType):
			utils.WriteJSONError(w, "only JPEG, PNG and WEBP images are accepted", http.StatusUnsupportedMediaType)
		case errors.Is(err, storage.ErrNotConfigured):
			utils.WriteJSONError(w, "image uploads are disabled", http.StatusServiceUnavailable)
		default:
			logger.FromCtx(r.Context()).Error("image upload failed", zap.Error(err))
			utils.WriteJSONError(w, "upload failed", http.StatusBadGateway)
		}
		return
	}

	utils.WriteJSON(w, http.StatusCreated, map[string]string{"url": url})
}
