package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"reelcraft-server/modules/common/logger"
)

var log = logger.For("realtime")

// CleanupInterval - how often empty team rooms are dropped
const CleanupInterval = 5 * time.Minute

// 연결된 클라이언트 정보
type Client struct {
	id     string
	teamID string
	userID string
	conn   *websocket.Conn
	send   chan []byte
}

// room - every socket of one team
type room struct {
	teamID       string
	clients      map[string]*Client
	mutex        sync.Mutex
	createdAt    time.Time
	lastActivity time.Time
}

// Metrics - 서버 메트릭
type Metrics struct {
	TotalRooms       int       `json:"totalRooms"`
	ActiveRooms      int       `json:"activeRooms"`
	TotalConnections int       `json:"totalConnections"`
	CurrentClients   int       `json:"currentClients"`
	StartTime        time.Time `json:"startTime"`
}

// Hub - team rooms and their sockets
type Hub struct {
	rooms   map[string]*room
	mutex   sync.RWMutex
	metrics Metrics
}

func NewHub() *Hub {
	return &Hub{
		rooms:   make(map[string]*room),
		metrics: Metrics{StartTime: time.Now()},
	}
}

// join - add a client to its team room, creating the room on first use
func (h *Hub) join(client *Client) {
	h.mutex.Lock()
	r, exists := h.rooms[client.teamID]
	if !exists {
		now := time.Now()
		r = &room{
			teamID:       client.teamID,
			clients:      make(map[string]*Client),
			createdAt:    now,
			lastActivity: now,
		}
		h.rooms[client.teamID] = r
		h.metrics.TotalRooms++
		h.metrics.ActiveRooms++
	}
	h.metrics.TotalConnections++

	// insert before releasing the hub lock so cleanup never sees the new room empty
	r.mutex.Lock()
	r.clients[client.id] = client
	r.lastActivity = time.Now()
	count := len(r.clients)
	r.mutex.Unlock()
	h.mutex.Unlock()

	log.Infof("👤 User %s joined team %s feed (clients: %d)", client.userID, client.teamID, count)
}

// leave - remove a client and close its send channel once
func (h *Hub) leave(client *Client) {
	h.mutex.RLock()
	r, exists := h.rooms[client.teamID]
	h.mutex.RUnlock()
	if !exists {
		return
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, ok := r.clients[client.id]; ok {
		close(client.send)
		delete(r.clients, client.id)
		r.lastActivity = time.Now()
		log.Infof("👋 User %s left team %s feed (remaining: %d)", client.userID, client.teamID, len(r.clients))
	}
}

// Broadcast - send payload to every socket of the team; slow sockets are dropped
func (h *Hub) Broadcast(teamID string, payload []byte) int {
	h.mutex.RLock()
	r, exists := h.rooms[teamID]
	h.mutex.RUnlock()
	if !exists {
		return 0
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	delivered := 0
	for id, client := range r.clients {
		select {
		case client.send <- payload:
			delivered++
		default:
			log.Warnf("⚠️ Dropping slow client %s of team %s", client.userID, teamID)
			close(client.send)
			delete(r.clients, id)
		}
	}
	r.lastActivity = time.Now()
	return delivered
}

// Dispatch - route a published status event to its team
func (h *Hub) Dispatch(payload []byte) {
	var envelope struct {
		TeamID string `json:"teamId"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil || envelope.TeamID == "" {
		log.Warnf("⚠️ Ignoring status event without team: %s", payload)
		return
	}
	h.Broadcast(envelope.TeamID, payload)
}

// cleanupEmptyRooms - 빈 방 정리
func (h *Hub) cleanupEmptyRooms() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	cleaned := 0
	for teamID, r := range h.rooms {
		r.mutex.Lock()
		isEmpty := len(r.clients) == 0
		r.mutex.Unlock()

		if isEmpty {
			delete(h.rooms, teamID)
			h.metrics.ActiveRooms--
			cleaned++
		}
	}

	if cleaned > 0 {
		log.Infof("🧹 Cleaned up %d empty rooms (active: %d)", cleaned, h.metrics.ActiveRooms)
	}
	return cleaned
}

// StartCleanup - 정기적 정리 작업 (until ctx is cancelled)
func (h *Hub) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Infof("🔄 Room cleanup every %s", interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.cleanupEmptyRooms()
		}
	}
}

// Snapshot - current metrics
func (h *Hub) Snapshot() Metrics {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	m := h.metrics
	for _, r := range h.rooms {
		r.mutex.Lock()
		m.CurrentClients += len(r.clients)
		r.mutex.Unlock()
	}
	return m
}
