package drive

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"reelcraft-server/modules/common/auth"
	"reelcraft-server/modules/common/model"
	"reelcraft-server/modules/common/org"
	"reelcraft-server/modules/common/utils"
)

// Handler - drive sync enqueue handler
type Handler struct {
	service *Service
	guard   *org.Guard
}

func NewHandler(service *Service, guard *org.Guard) *Handler {
	return &Handler{service: service, guard: guard}
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.Handle("/api/drive/sync", h.guard.Require(model.RoleMember, h.HandleSync)).Methods("POST")
	log.Info("✅ Routes registered: /api/drive/sync")
}

// HandleSync - POST /api/drive/sync
func (h *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrCodeInvalidRequest, err.Error())
		return
	}

	var userID string
	if user := auth.UserFromContext(r.Context()); user != nil {
		userID = user.ID
	}

	position, err := h.service.Enqueue(r.Context(), org.TeamIDFromContext(r.Context()), userID, req)
	if errors.Is(err, ErrQueueUnavailable) {
		log.Errorf("❌ %v", err)
		utils.WriteError(w, http.StatusServiceUnavailable, "QUEUE_UNAVAILABLE", "sync queue unavailable")
		return
	}
	if err != nil {
		log.Errorf("❌ %v", err)
		utils.WriteError(w, http.StatusInternalServerError, utils.ErrCodeInternal, "failed to queue sync")
		return
	}

	utils.WriteJSON(w, http.StatusAccepted, SyncResponse{
		Success:       true,
		Queue:         QueueName,
		QueuePosition: position,
	})
}
