package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"bijouterie-be/internal/cache"
	"bijouterie-be/internal/logger"
	"bijouterie-be/internal/metrics"
	"bijouterie-be/internal/order"
	"bijouterie-be/internal/payment"
	"bijouterie-be/internal/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// maxBodyBytes bounds the raw webhook payload we are willing to buffer.
const maxBodyBytes = 1 << 16

// stripeEvent is the subset of the processor's event envelope we act on.
type stripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string `json:"id"`
			Metadata struct {
				OrderID string `json:"orderId"`
			} `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// deduper is the fast-path duplicate check in front of the webhook table.
// claim marks the event id and reports whether this delivery is the first;
// release undoes a claim whose event could not be persisted, so the
// processor's retry is not misread as a duplicate.
type deduper interface {
	claim(ctx context.Context, eventID string) bool
	release(ctx context.Context, eventID string)
}

type redisDeduper struct {
	rdb *redis.Client
}

func (d redisDeduper) claim(ctx context.Context, eventID string) bool {
	return cache.SetNX(ctx, d.rdb, fmt.Sprintf(cache.KeyWebhookEvent, eventID), cache.TTLWebhookEvent)
}

func (d redisDeduper) release(ctx context.Context, eventID string) {
	cache.Del(ctx, d.rdb, fmt.Sprintf(cache.KeyWebhookEvent, eventID))
}

type Handler struct {
	gateway     payment.Gateway
	paymentRepo payment.Repository
	orderSvc    order.Service
	dedup       deduper
}

func NewHandler(gateway payment.Gateway, paymentRepo payment.Repository, orderSvc order.Service, rdb *redis.Client) *Handler {
	return &Handler{
		gateway:     gateway,
		paymentRepo: paymentRepo,
		orderSvc:    orderSvc,
		dedup:       redisDeduper{rdb: rdb},
	}
}

// HandleStripe receives processor callbacks. Rejections (bad signature,
// stale timestamp, malformed body) return 400 so the processor retries
// nothing; duplicates and processing failures both return 200, the former
// because the work is already done, the latter because the event is stored
// and can be replayed from the webhook table.
func (h *Handler) HandleStripe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromCtx(ctx).With(zap.String("handler", "HandleStripe"))

	metrics.WebhooksReceived.Inc()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		metrics.WebhooksRejected.Inc()
		utils.WriteJSONError(w, "unable to read body", http.StatusBadRequest)
		return
	}

	if err := h.gateway.VerifySignature(r, body); err != nil {
		metrics.WebhooksRejected.Inc()
		log.Warn("webhook signature rejected", zap.Error(err))
		utils.WriteJSONError(w, "invalid signature", http.StatusBadRequest)
		return
	}

	var ev stripeEvent
	if err := json.Unmarshal(body, &ev); err != nil || ev.ID == "" {
		metrics.WebhooksRejected.Inc()
		log.Warn("webhook payload malformed", zap.Error(err))
		utils.WriteJSONError(w, "malformed event", http.StatusBadRequest)
		return
	}

	log = log.With(
		zap.String("event_id", ev.ID),
		zap.String("event_type", ev.Type),
	)

	// Fast-path dedup in redis; the unique index on (provider, event_id)
	// below remains authoritative when redis is down or cold.
	if !h.dedup.claim(ctx, ev.ID) {
		metrics.WebhooksDuplicate.Inc()
		log.Info("duplicate webhook delivery (cache)")
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
		return
	}

	webhookID, isDuplicate, err := h.paymentRepo.SaveWebhookEvent(
		ctx, payment.ProviderStripe, ev.ID, ev.Type, ev.Data.Object.ID, body, true)
	if err != nil {
		// Drop the claim: the event was never stored, so the processor's
		// retry must come back through as a first delivery.
		h.dedup.release(ctx, ev.ID)
		log.Error("failed to persist webhook event", zap.Error(err))
		utils.WriteJSONError(w, "failed to record event", http.StatusInternalServerError)
		return
	}
	if isDuplicate {
		metrics.WebhooksDuplicate.Inc()
		log.Info("duplicate webhook delivery")
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
		return
	}

	if err := h.dispatch(r, &ev); err != nil {
		log.Error("webhook processing failed", zap.Error(err))
		if mErr := h.paymentRepo.MarkWebhookFailed(ctx, webhookID, err.Error()); mErr != nil {
			log.Error("failed to mark webhook failed", zap.Error(mErr))
		}
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "stored"})
		return
	}

	if err := h.paymentRepo.MarkWebhookProcessed(ctx, webhookID); err != nil {
		log.Error("failed to mark webhook processed", zap.Error(err))
	}

	log.Info("webhook processed")
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}

func (h *Handler) dispatch(r *http.Request, ev *stripeEvent) error {
	ctx := r.Context()
	orderID := ev.Data.Object.Metadata.OrderID

	switch ev.Type {
	case "payment_intent.succeeded":
		if orderID == "" {
			return errors.New("event has no orderId metadata")
		}
		return h.orderSvc.HandlePaymentSucceeded(ctx, orderID, ev.Data.Object.ID)

	case "payment_intent.payment_failed":
		if orderID == "" {
			return errors.New("event has no orderId metadata")
		}
		return h.orderSvc.HandlePaymentFailed(ctx, orderID)

	default:
		// Unrecognized events are stored and acknowledged without action.
		logger.FromCtx(ctx).Info("ignoring webhook event type",
			zap.String("event_type", ev.Type))
		return nil
	}
}
