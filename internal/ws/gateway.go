package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"maternity-chat/internal/models"
	"maternity-chat/internal/observability"
	"maternity-chat/internal/repositories"
	"maternity-chat/internal/room"
)

// Gateway serves the realtime channel: room join/leave, message fan-out,
// typing relay and presence broadcasting.
type Gateway struct {
	hub      *Hub
	messages repositories.MessageRepository
}

// NewGateway constructs a Gateway.
func NewGateway(hub *Hub, messages repositories.MessageRepository) *Gateway {
	return &Gateway{hub: hub, messages: messages}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and starts its event loop.
func (g *Gateway) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("maternity-chat/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	g.hub.Register(conn, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	g.publishLifecycle(ctx, info, "ws_connect", "")

	go g.readLoop(context.WithoutCancel(ctx), conn, info)
}

func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn, info ConnInfo) {
	var (
		currentRoom  room.ID
		declaredUser string
		closeReason  string
	)
	defer func() {
		if currentRoom != "" {
			g.hub.Leave(currentRoom, conn)
		}
		if declaredUser != "" {
			g.hub.SetOffline(declaredUser)
			g.hub.BroadcastAll(models.EventOnlineUsers, models.OnlineUsersPayload{UserIDs: g.hub.OnlineIDs()})
		}
		g.hub.Unregister(conn)
		conn.Close()
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		g.publishLifecycle(ctx, info, "ws_disconnect", closeReason)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
				g.publishLifecycle(ctx, info, "ws_error", closeReason)
			}
			return
		}
		var env models.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("gateway: dropping malformed frame from %s: %v", info.ConnID, err)
			continue
		}
		currentRoom, declaredUser = g.dispatch(ctx, conn, &info, env, currentRoom, declaredUser)
	}
}

func (g *Gateway) dispatch(ctx context.Context, conn *websocket.Conn, info *ConnInfo, env models.Envelope, currentRoom room.ID, declaredUser string) (room.ID, string) {
	observability.IncWSEvent(env.Event)

	switch env.Event {
	case models.EventJoinRoom:
		var p models.JoinRoomPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.RoomID == "" {
			return currentRoom, declaredUser
		}
		// One room per connection: joining again implicitly leaves the old one.
		if currentRoom != "" {
			g.hub.Leave(currentRoom, conn)
		}
		if p.DisplayName != "" {
			info.DisplayName = p.DisplayName
			g.hub.SetDisplayName(conn, p.DisplayName)
		}
		currentRoom = room.ID(p.RoomID)
		g.hub.Join(currentRoom, conn)
		g.sendHistory(ctx, conn, currentRoom)

	case models.EventLeaveRoom:
		var p models.LeaveRoomPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return currentRoom, declaredUser
		}
		if currentRoom != "" && (p.RoomID == "" || room.ID(p.RoomID) == currentRoom) {
			g.hub.Leave(currentRoom, conn)
			currentRoom = ""
		}

	case models.EventSendMessage:
		var p models.SendMessagePayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.RoomID == "" {
			return currentRoom, declaredUser
		}
		g.handleSend(ctx, p)

	case models.EventTyping:
		var p models.TypingPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.RoomID == "" {
			return currentRoom, declaredUser
		}
		g.hub.BroadcastToRoom(room.ID(p.RoomID), models.EventTyping, models.TypingPayload{DisplayName: p.DisplayName})

	case models.EventUserOnline:
		var p models.PresencePayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.UserID == "" {
			return currentRoom, declaredUser
		}
		declaredUser = p.UserID
		info.UserID = p.UserID
		g.hub.SetUserIdentity(conn, p.UserID)
		g.hub.SetOnline(p.UserID, p.Role)
		g.hub.BroadcastAll(models.EventOnlineUsers, models.OnlineUsersPayload{UserIDs: g.hub.OnlineIDs()})

	case models.EventUserOffline:
		var p models.PresencePayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.UserID == "" {
			return currentRoom, declaredUser
		}
		g.hub.SetOffline(p.UserID)
		if declaredUser == p.UserID {
			declaredUser = ""
		}
		g.hub.BroadcastAll(models.EventOnlineUsers, models.OnlineUsersPayload{UserIDs: g.hub.OnlineIDs()})

	default:
		log.Printf("gateway: ignoring unknown event %q", env.Event)
	}
	return currentRoom, declaredUser
}

// sendHistory delivers the room's persisted messages to the joining
// connection. A store failure degrades to an empty snapshot so the client
// still reaches its joined state.
func (g *Gateway) sendHistory(ctx context.Context, conn *websocket.Conn, roomID room.ID) {
	stored, err := g.messages.RoomHistory(ctx, roomID.String())
	if err != nil {
		log.Printf("gateway: load history for %s: %v", roomID, err)
	}
	history := make([]models.RawMessage, 0, len(stored))
	for _, m := range stored {
		history = append(history, m.Raw())
	}
	_ = g.hub.SendTo(conn, models.EventChatHistory, history)
}

// handleSend persists the message, then echoes it to the room. Persistence
// failure does not block the broadcast; the message survives only in flight.
func (g *Gateway) handleSend(ctx context.Context, p models.SendMessagePayload) {
	stored := models.StoredMessage{
		ID:         uuid.NewString(),
		RoomID:     p.RoomID,
		DoctorID:   p.DoctorID,
		MotherID:   p.MotherID,
		SenderID:   p.SenderID,
		Sender:     p.Message.Sender,
		MotherName: p.Message.MotherName,
		Message:    p.Message.Message,
		CreatedAt:  time.Now(),
	}
	if stored.Sender == "" {
		stored.Sender = p.SenderRole
	}
	saved, err := g.messages.CreateMessage(ctx, stored)
	if err != nil {
		log.Printf("gateway: persist message in %s: %v", p.RoomID, err)
		saved = stored
	}
	g.hub.BroadcastToRoom(room.ID(p.RoomID), models.EventReceiveMessage, saved.Raw())
}

func (g *Gateway) publishLifecycle(ctx context.Context, info ConnInfo, event, reason string) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id": info.UserID,
			"ip":      info.IP,
		},
	}
	_ = observability.PublishEvent(ctx, "ws_events.rooms", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload:   payload,
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}
