package order

import (
	"encoding/json"
	"errors"
	"net/http"

	"bijouterie-be/internal/adminlog"
	"bijouterie-be/internal/logger"
	"bijouterie-be/internal/metrics"
	"bijouterie-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	svc      Service
	auditLog adminlog.Repository
}

func NewHandler(svc Service, auditLog adminlog.Repository) *Handler {
	return &Handler{svc: svc, auditLog: auditLog}
}

type checkoutRequest struct {
	Shipping ShippingInfo `json:"shipping"`
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	o, err := h.svc.Checkout(r.Context(), userID, req.Shipping)
	if err != nil {
		var stockErr *StockError
		switch {
		case errors.As(err, &stockErr):
			utils.WriteJSON(w, http.StatusConflict, map[string]any{
				"error":      stockErr.Error(),
				"product_id": stockErr.ProductID,
				"requested":  stockErr.Requested,
				"available":  stockErr.Available,
			})
		case errors.Is(err, ErrCartEmpty):
			utils.WriteJSONError(w, "cart is empty", http.StatusBadRequest)
		case errors.Is(err, ErrMissingShipping):
			utils.WriteJSONError(w, "shipping address is incomplete", http.StatusBadRequest)
		default:
			logger.FromCtx(r.Context()).Error("checkout failed", zap.Error(err))
			utils.WriteJSONError(w, "checkout failed", http.StatusInternalServerError)
		}
		return
	}

	utils.WriteJSON(w, http.StatusCreated, o)
}

// CreatePaymentSession returns the client secret for the checkout page, or
// the simulated marker when no processor is configured.
func (h *Handler) CreatePaymentSession(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	session, err := h.svc.CreatePaymentSession(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrOrderNotFound):
			utils.WriteJSONError(w, "order not found", http.StatusNotFound)
		case errors.Is(err, ErrUnauthorized):
			utils.WriteJSONError(w, "order not found", http.StatusNotFound)
		case errors.Is(err, ErrNotAwaitingPay):
			utils.WriteJSONError(w, "order is not awaiting payment", http.StatusConflict)
		case errors.Is(err, ErrPaymentInit):
			utils.WriteJSONError(w, "failed to initiate payment", http.StatusBadGateway)
		default:
			logger.FromCtx(r.Context()).Error("payment session failed", zap.Error(err))
			utils.WriteJSONError(w, "failed to initiate payment", http.StatusInternalServerError)
		}
		return
	}

	utils.WriteJSON(w, http.StatusOK, session)
}

type confirmRequest struct {
	IntentID string `json:"intent_id"`
}

func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	err := h.svc.ConfirmPayment(r.Context(), userID, chi.URLParam(r, "id"), req.IntentID)
	if err != nil {
		switch {
		case errors.Is(err, ErrOrderNotFound), errors.Is(err, ErrUnauthorized):
			utils.WriteJSONError(w, "order not found", http.StatusNotFound)
		default:
			logger.FromCtx(r.Context()).Error("payment confirmation failed", zap.Error(err))
			utils.WriteJSONError(w, "failed to confirm payment", http.StatusInternalServerError)
		}
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "confirmed"})
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	orders, err := h.svc.ListOrders(r.Context(), userID)
	if err != nil {
		utils.WriteJSONError(w, "failed to list orders", http.StatusInternalServerError)
		return
	}
	if orders == nil {
		orders = []Order{}
	}
	utils.WriteJSON(w, http.StatusOK, orders)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	o, err := h.svc.GetOrder(r.Context(), userID, utils.IsAdmin(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrUnauthorized) {
			utils.WriteJSONError(w, "order not found", http.StatusNotFound)
			return
		}
		utils.WriteJSONError(w, "failed to load order", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.AdminListOrders(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		utils.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if orders == nil {
		orders = []AdminOrder{}
	}
	utils.WriteJSON(w, http.StatusOK, orders)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) AdminUpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.svc.UpdateStatus(r.Context(), orderID, Status(req.Status)); err != nil {
		switch {
		case errors.Is(err, ErrOrderNotFound):
			utils.WriteJSONError(w, "order not found", http.StatusNotFound)
		case errors.Is(err, ErrInvalidTransition):
			utils.WriteFieldError(w, "status", "invalid status transition")
		default:
			utils.WriteJSONError(w, "failed to update status", http.StatusInternalServerError)
		}
		return
	}

	adminID, _ := utils.GetUserIDFromContext(r.Context())
	h.auditLog.Record(r.Context(), adminID, adminlog.ActionUpdate, "order", &orderID,
		map[string]string{"status": req.Status})

	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) AdminRefund(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	if err := h.svc.Refund(r.Context(), orderID); err != nil {
		switch {
		case errors.Is(err, ErrOrderNotFound):
			utils.WriteJSONError(w, "order not found", http.StatusNotFound)
		case errors.Is(err, ErrInvalidTransition):
			utils.WriteJSONError(w, "order is not refundable", http.StatusConflict)
		default:
			utils.WriteJSONError(w, "failed to refund order", http.StatusInternalServerError)
		}
		return
	}

	adminID, _ := utils.GetUserIDFromContext(r.Context())
	h.auditLog.Record(r.Context(), adminID, adminlog.ActionUpdate, "order", &orderID,
		map[string]string{"payment_status": "refunded"})

	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "refunded"})
}

// AdminDashboard aggregates store totals plus the in-process path counters.
func (h *Handler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Dashboard(r.Context())
	if err != nil {
		logger.FromCtx(r.Context()).Error("failed to build dashboard", zap.Error(err))
		utils.WriteJSONError(w, "failed to load dashboard", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"stats": stats,
		"counters": map[string]uint64{
			"orders_created":     metrics.OrdersCreated.Load(),
			"orders_finalized":   metrics.OrdersFinalized.Load(),
			"payments_simulated": metrics.PaymentsSimulated.Load(),
			"payments_failed":    metrics.PaymentsFailed.Load(),
			"webhooks_received":  metrics.WebhooksReceived.Load(),
			"webhooks_rejected":  metrics.WebhooksRejected.Load(),
			"webhooks_duplicate": metrics.WebhooksDuplicate.Load(),
		},
	})
}
