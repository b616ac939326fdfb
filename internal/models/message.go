package models

import "time"

// RawMessage is the unvalidated message record as it travels over the realtime
// channel and comes back from the store. MotherName is a denormalized display
// name carried only on rows written from the mother's side; Sender holds the
// sending role otherwise. Consumers must tolerate missing fields.
type RawMessage struct {
	ID         string    `json:"id,omitempty"`
	SenderID   string    `json:"sender_id,omitempty"`
	Sender     string    `json:"sender,omitempty"`
	MotherName string    `json:"mother_name,omitempty"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

// StoredMessage is the persisted form of a chat message.
type StoredMessage struct {
	ID         string    `db:"id" json:"id"`
	RoomID     string    `db:"room_id" json:"room_id"`
	DoctorID   string    `db:"doctor_id" json:"doctor_id"`
	MotherID   string    `db:"mother_id" json:"mother_id"`
	SenderID   string    `db:"sender_id" json:"sender_id"`
	Sender     string    `db:"sender" json:"sender"`
	MotherName string    `db:"mother_name" json:"mother_name,omitempty"`
	Message    string    `db:"message" json:"message"`
	IsRead     bool      `db:"is_read" json:"is_read"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Raw converts a stored message to its wire form.
func (m StoredMessage) Raw() RawMessage {
	return RawMessage{
		ID:         m.ID,
		SenderID:   m.SenderID,
		Sender:     m.Sender,
		MotherName: m.MotherName,
		Message:    m.Message,
		CreatedAt:  m.CreatedAt,
	}
}

// UnreadCount reports unread messages from one mother toward a doctor.
type UnreadCount struct {
	MotherID string `db:"mother_id" json:"mother_id"`
	Unread   int    `db:"unread" json:"unread"`
}
