package realtime

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"reelcraft-server/modules/common/auth"
	"reelcraft-server/modules/common/model"
	"reelcraft-server/modules/common/org"
	"reelcraft-server/modules/common/utils"
)

// Handler - websocket status feed
type Handler struct {
	hub       *Hub
	jwtSecret string
	members   org.MemberLookup
	upgrader  websocket.Upgrader
}

func NewHandler(hub *Hub, jwtSecret string, members org.MemberLookup) *Handler {
	return &Handler{
		hub:       hub,
		jwtSecret: jwtSecret,
		members:   members,
		upgrader: websocket.Upgrader{
			// any origin; access is gated by the token
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/ws", h.HandleWebSocket)
	r.HandleFunc("/metrics", h.HandleMetrics).Methods("GET")
	log.Info("✅ Routes registered: /ws, /metrics")
}

// HandleWebSocket - GET /ws?team=<id>&token=<jwt>
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	teamID := r.URL.Query().Get("team")
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if teamID == "" || token == "" {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrCodeInvalidRequest, "team and token are required")
		return
	}

	user, err := auth.ParseToken(h.jwtSecret, token)
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "invalid or expired token")
		return
	}

	if _, err := h.members.FetchMember(r.Context(), teamID, user.ID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			utils.WriteError(w, http.StatusForbidden, utils.ErrCodeForbidden, "not a member of this team")
			return
		}
		log.Errorf("❌ Failed to check membership of %s in %s: %v", user.ID, teamID, err)
		utils.WriteError(w, http.StatusInternalServerError, utils.ErrCodeInternal, "failed to check team membership")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("⚠️ WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		id:     uuid.NewString(),
		teamID: teamID,
		userID: user.ID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}
	h.hub.join(client)

	go client.writePump()
	go client.readPump(h.hub)
}

// HandleMetrics - GET /metrics
func (h *Handler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, h.hub.Snapshot())
}
