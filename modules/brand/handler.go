package brand

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"reelcraft-server/modules/common/model"
	"reelcraft-server/modules/common/org"
	"reelcraft-server/modules/common/utils"
)

type Handler struct {
	service *Service
	guard   *org.Guard
}

func NewHandler(service *Service, guard *org.Guard) *Handler {
	return &Handler{service: service, guard: guard}
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.Handle("/api/brand/analyze", h.guard.Require(model.RoleAdmin, h.HandleAnalyze)).Methods("POST")
	r.Handle("/api/brand", h.guard.Require(model.RoleMember, h.HandleGet)).Methods("GET")
	log.Info("✅ Routes registered: /api/brand, /api/brand/analyze")
}

// HandleAnalyze - POST /api/brand/analyze
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrCodeInvalidRequest, err.Error())
		return
	}

	profile, err := h.service.Analyze(r.Context(), org.TeamIDFromContext(r.Context()), req)
	if errors.Is(err, ErrAnalysis) {
		log.Warnf("⚠️ %v", err)
		utils.WriteError(w, http.StatusBadGateway, "ANALYSIS_FAILED", err.Error())
		return
	}
	if err != nil {
		log.Errorf("❌ %v", err)
		utils.WriteError(w, http.StatusInternalServerError, utils.ErrCodeInternal, "failed to save brand profile")
		return
	}
	utils.WriteJSON(w, http.StatusOK, profile)
}

// HandleGet - GET /api/brand
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.Get(r.Context(), org.TeamIDFromContext(r.Context()))
	if errors.Is(err, ErrProfileNotFound) {
		utils.WriteError(w, http.StatusNotFound, utils.ErrCodeNotFound, err.Error())
		return
	}
	if err != nil {
		log.Errorf("❌ %v", err)
		utils.WriteError(w, http.StatusInternalServerError, utils.ErrCodeInternal, "failed to load brand profile")
		return
	}
	utils.WriteJSON(w, http.StatusOK, profile)
}
