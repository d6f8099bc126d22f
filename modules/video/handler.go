package video

import (
	"crypto/subtle"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"reelcraft-server/modules/common/model"
	"reelcraft-server/modules/common/org"
	"reelcraft-server/modules/common/utils"
)

const (
	ErrCodeQuotaExceeded = "QUOTA_EXCEEDED"
	ErrCodeProvider      = "PROVIDER_ERROR"
	ErrCodeImageNotFound = "IMAGE_NOT_FOUND"
	ErrCodeVideoNotFound = "VIDEO_NOT_FOUND"
	ErrCodeStorage       = "STORAGE_ERROR"

	maxCallbackBody = 1 << 20
)

// Handler - video HTTP handler
type Handler struct {
	service       *Service
	guard         *org.Guard
	callbackToken string
}

// NewHandler - Handler 생성
func NewHandler(service *Service, guard *org.Guard, callbackToken string) *Handler {
	return &Handler{
		service:       service,
		guard:         guard,
		callbackToken: callbackToken,
	}
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.Handle("/api/videos/generate", h.guard.Require(model.RoleMember, h.HandleGenerate)).Methods("POST")
	r.Handle("/api/videos", h.guard.Require(model.RoleMember, h.HandleList)).Methods("GET")
	r.Handle("/api/videos/{id}", h.guard.Require(model.RoleMember, h.HandleGet)).Methods("GET")
	r.Handle("/api/videos/{id}", h.guard.Require(model.RoleMember, h.HandleDelete)).Methods("DELETE")
	r.HandleFunc("/api/webhooks/kie", h.HandleCallback).Methods("POST")
	log.Info("✅ Routes registered: /api/videos, /api/webhooks/kie")
}

// HandleGenerate - POST /api/videos/generate
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	teamID := org.TeamIDFromContext(r.Context())

	var req GenerationRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrCodeInvalidRequest, err.Error())
		return
	}

	log.Infof("📥 Generation request from team %s (image: %s, duration: %d)", teamID, req.ImageID, req.Duration)

	resp, err := h.service.Dispatch(r.Context(), teamID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusAccepted, resp)
}

// HandleList - GET /api/videos
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	videos, err := h.service.List(r.Context(), org.TeamIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"videos":  videos,
	})
}

// HandleGet - GET /api/videos/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	video, err := h.service.Get(r.Context(), org.TeamIDFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, video)
}

// HandleDelete - DELETE /api/videos/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), org.TeamIDFromContext(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCallback - POST /api/webhooks/kie
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if h.callbackToken != "" {
		token := r.URL.Query().Get("token")
		if subtle.ConstantTimeCompare([]byte(token), []byte(h.callbackToken)) != 1 {
			utils.WriteError(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "invalid callback token")
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrCodeInvalidRequest, "failed to read body")
		return
	}

	cb, err := ParseCallback(body)
	if err != nil {
		log.Warnf("⚠️ Rejected callback: %v", err)
		utils.WriteError(w, http.StatusBadRequest, utils.ErrCodeInvalidRequest, err.Error())
		return
	}

	log.Infof("📨 Callback for task %s (kind: %d)", cb.TaskID, cb.Kind)

	outcome, err := h.service.HandleCallback(r.Context(), cb)
	if err != nil {
		log.Errorf("❌ Callback for task %s not processed: %v", cb.TaskID, err)
		utils.WriteError(w, http.StatusInternalServerError, utils.ErrCodeInternal, "callback not processed")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"outcome": outcome,
	})
}

func writeServiceError(w http.ResponseWriter, err error) {
	var providerErr *ProviderError
	switch {
	case errors.Is(err, ErrInvalidRequest):
		utils.WriteError(w, http.StatusBadRequest, utils.ErrCodeInvalidRequest, err.Error())
	case errors.Is(err, ErrQuotaExceeded):
		utils.WriteError(w, http.StatusPaymentRequired, ErrCodeQuotaExceeded, err.Error())
	case errors.As(err, &providerErr):
		utils.WriteError(w, http.StatusBadGateway, ErrCodeProvider, providerErr.Message)
	case errors.Is(err, ErrImageNotFound):
		utils.WriteError(w, http.StatusNotFound, ErrCodeImageNotFound, err.Error())
	case errors.Is(err, ErrVideoNotFound):
		utils.WriteError(w, http.StatusNotFound, ErrCodeVideoNotFound, err.Error())
	case errors.Is(err, ErrStorage):
		utils.WriteError(w, http.StatusBadGateway, ErrCodeStorage, err.Error())
	default:
		log.Errorf("❌ %v", err)
		utils.WriteError(w, http.StatusInternalServerError, utils.ErrCodeInternal, "internal error")
	}
}
