package billing

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"reelcraft-server/modules/common/model"
	"reelcraft-server/modules/common/org"
	"reelcraft-server/modules/common/utils"
)

// Stripe caps event payloads well below this
const maxWebhookBody = 65536

type Handler struct {
	service *Service
	guard   *org.Guard
}

func NewHandler(service *Service, guard *org.Guard) *Handler {
	return &Handler{service: service, guard: guard}
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.Handle("/api/billing/checkout", h.guard.Require(model.RoleAdmin, h.HandleCheckout)).Methods("POST")
	r.Handle("/api/billing/subscription", h.guard.Require(model.RoleMember, h.HandleSubscription)).Methods("GET")
	r.HandleFunc("/api/webhooks/stripe", h.HandleWebhook).Methods("POST")
	log.Info("✅ Routes registered: /api/billing, /api/webhooks/stripe")
}

// HandleCheckout - POST /api/billing/checkout
func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrCodeInvalidRequest, err.Error())
		return
	}

	url, err := h.service.Checkout(r.Context(), org.TeamIDFromContext(r.Context()), req.Plan)
	switch {
	case errors.Is(err, ErrUnknownPlan):
		utils.WriteError(w, http.StatusBadRequest, utils.ErrCodeInvalidRequest, err.Error())
		return
	case err != nil:
		log.Errorf("❌ %v", err)
		utils.WriteError(w, http.StatusBadGateway, "CHECKOUT_FAILED", "failed to create checkout session")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"url":     url,
	})
}

// HandleSubscription - GET /api/billing/subscription
func (h *Handler) HandleSubscription(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Subscription(r.Context(), org.TeamIDFromContext(r.Context()))
	if errors.Is(err, ErrSubscriptionNotFound) {
		utils.WriteError(w, http.StatusNotFound, utils.ErrCodeNotFound, err.Error())
		return
	}
	if err != nil {
		log.Errorf("❌ %v", err)
		utils.WriteError(w, http.StatusInternalServerError, utils.ErrCodeInternal, "failed to load subscription")
		return
	}
	utils.WriteJSON(w, http.StatusOK, view)
}

// HandleWebhook - POST /api/webhooks/stripe
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrCodeInvalidRequest, "failed to read body")
		return
	}

	err = h.service.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if errors.Is(err, ErrInvalidSignature) {
		log.Warnf("⚠️ %v", err)
		utils.WriteError(w, http.StatusBadRequest, utils.ErrCodeInvalidRequest, "invalid signature")
		return
	}
	if err != nil {
		log.Errorf("❌ Stripe webhook not applied: %v", err)
		utils.WriteError(w, http.StatusInternalServerError, utils.ErrCodeInternal, "webhook not applied")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}
