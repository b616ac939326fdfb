package models

import "encoding/json"

// Realtime event names shared by the gateway and the client transport.
const (
	EventJoinRoom       = "joinRoom"
	EventLeaveRoom      = "leaveRoom"
	EventChatHistory    = "chatHistory"
	EventSendMessage    = "sendMessage"
	EventReceiveMessage = "receiveMessage"
	EventTyping         = "typing"
	EventUserOnline     = "userOnline"
	EventUserOffline    = "userOffline"
	EventOnlineUsers    = "onlineUsers"
)

// Envelope is the wire frame carrying every realtime event in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals a payload into an envelope.
func NewEnvelope(event string, payload any) (Envelope, error) {
	if payload == nil {
		return Envelope{Event: event}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: event, Data: data}, nil
}

// JoinRoomPayload subscribes a connection to a room and requests its history.
type JoinRoomPayload struct {
	RoomID      string `json:"roomId"`
	DisplayName string `json:"user"`
}

// LeaveRoomPayload detaches a connection from a room.
type LeaveRoomPayload struct {
	RoomID string `json:"roomId"`
}

// SendMessagePayload carries a new message with its routing metadata.
type SendMessagePayload struct {
	RoomID     string     `json:"roomId"`
	Message    RawMessage `json:"message"`
	SenderID   string     `json:"senderId"`
	SenderRole string     `json:"senderRole"`
	DoctorID   string     `json:"doctor_id"`
	MotherID   string     `json:"mother_id"`
}

// TypingPayload is the ephemeral typing signal, identified by display name only.
type TypingPayload struct {
	RoomID      string `json:"roomId,omitempty"`
	DisplayName string `json:"user"`
}

// PresencePayload declares a participant online or offline.
type PresencePayload struct {
	UserID string `json:"userId"`
	Role   string `json:"role,omitempty"`
}

// OnlineUsersPayload is the full presence snapshot broadcast to every connection.
type OnlineUsersPayload struct {
	UserIDs []string `json:"userIds"`
}
