package ws

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"maternity-chat/internal/models"
	"maternity-chat/internal/observability"
	"maternity-chat/internal/room"
)

// Hub maintains active websocket connections, their room memberships and the
// process-wide presence registry.
type Hub struct {
	mu     sync.RWMutex
	conns  map[*websocket.Conn]ConnInfo
	rooms  map[room.ID]map[*websocket.Conn]bool
	online map[string]string // participant id -> role
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		conns:  make(map[*websocket.Conn]ConnInfo),
		rooms:  make(map[room.ID]map[*websocket.Conn]bool),
		online: make(map[string]string),
	}
}

// Register adds a connection to the hub.
func (h *Hub) Register(conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = info
}

// Unregister removes a connection and any room memberships it still holds.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
	for id, members := range h.rooms {
		delete(members, conn)
		if len(members) == 0 {
			delete(h.rooms, id)
		}
	}
}

// SetUserIdentity records the participant id a connection declared, so
// lifecycle events published for it carry the identity.
func (h *Hub) SetUserIdentity(conn *websocket.Conn, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if info, ok := h.conns[conn]; ok {
		info.UserID = userID
		h.conns[conn] = info
	}
}

// SetDisplayName records the display name a connection joined a room with.
func (h *Hub) SetDisplayName(conn *websocket.Conn, name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if info, ok := h.conns[conn]; ok {
		info.DisplayName = name
		h.conns[conn] = info
	}
}

// Join subscribes a connection to a room.
func (h *Hub) Join(roomID room.ID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*websocket.Conn]bool)
	}
	h.rooms[roomID][conn] = true
}

// Leave removes a connection from a room.
func (h *Hub) Leave(roomID room.ID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[roomID]; ok {
		delete(members, conn)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// RoomSize reports how many connections a room currently has.
func (h *Hub) RoomSize(roomID room.ID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// SetOnline records a participant as online.
func (h *Hub) SetOnline(userID, role string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.online[userID] = role
}

// SetOffline removes a participant from the presence registry.
func (h *Hub) SetOffline(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.online, userID)
}

// OnlineIDs returns the sorted presence snapshot.
func (h *Hub) OnlineIDs() []string {
	h.mu.RLock()
	ids := make([]string, 0, len(h.online))
	for id := range h.online {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// SendTo delivers one event to a single connection.
func (h *Hub) SendTo(conn *websocket.Conn, event string, payload any) error {
	env, err := models.NewEnvelope(event, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.dropConn(conn, err)
		return err
	}
	return nil
}

// BroadcastToRoom sends an event to every connection subscribed to the room.
// The sender's own connection is included: a sender sees its message only
// through this echo.
func (h *Hub) BroadcastToRoom(roomID room.ID, event string, payload any) {
	data, ok := marshalEnvelope(event, payload)
	if !ok {
		return
	}
	for _, conn := range h.roomMembers(roomID) {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.dropConn(conn, err)
		}
	}
}

// BroadcastAll sends an event to every registered connection. Used for the
// full presence snapshot.
func (h *Hub) BroadcastAll(event string, payload any) {
	data, ok := marshalEnvelope(event, payload)
	if !ok {
		return
	}
	h.mu.RLock()
	targets := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		targets = append(targets, conn)
	}
	h.mu.RUnlock()

	for _, conn := range targets {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.dropConn(conn, err)
		}
	}
}

func (h *Hub) roomMembers(roomID room.ID) []*websocket.Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	members := make([]*websocket.Conn, 0, len(h.rooms[roomID]))
	for conn := range h.rooms[roomID] {
		members = append(members, conn)
	}
	return members
}

func marshalEnvelope(event string, payload any) ([]byte, bool) {
	env, err := models.NewEnvelope(event, payload)
	if err != nil {
		log.Printf("marshal %s: %v", event, err)
		return nil, false
	}
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("marshal %s: %v", event, err)
		return nil, false
	}
	return data, true
}

func (h *Hub) dropConn(conn *websocket.Conn, err error) {
	log.Printf("websocket write error: %v", err)
	info, known := h.connInfo(conn)
	conn.Close()
	h.Unregister(conn)
	if !known {
		return
	}

	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id": info.UserID,
			"ip":      info.IP,
		},
	}
	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events.rooms", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent("ws_error")
}

func (h *Hub) connInfo(conn *websocket.Conn) (ConnInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	info, ok := h.conns[conn]
	return info, ok
}
