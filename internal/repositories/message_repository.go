package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"maternity-chat/internal/models"
)

// MessageRepository defines persistence for chat messages and read state.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg models.StoredMessage) (models.StoredMessage, error)
	RoomHistory(ctx context.Context, roomID string) ([]models.StoredMessage, error)
	HistoryForPair(ctx context.Context, doctorID, motherID string) ([]models.StoredMessage, error)
	UnreadCounts(ctx context.Context, doctorID string) ([]models.UnreadCount, error)
	MarkRead(ctx context.Context, doctorID, motherID, reader string) error
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a message and returns it with the server-issued
// timestamp.
func (r *MessageRepo) CreateMessage(ctx context.Context, msg models.StoredMessage) (models.StoredMessage, error) {
	var out models.StoredMessage
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (id, room_id, doctor_id, mother_id, sender_id, sender, mother_name, message)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, room_id, doctor_id, mother_id, sender_id, sender, mother_name, message, is_read, created_at`,
		msg.ID, msg.RoomID, msg.DoctorID, msg.MotherID, msg.SenderID, msg.Sender, msg.MotherName, msg.Message).
		StructScan(&out)
	return out, err
}

// RoomHistory returns the room's messages in chronological ascending order.
func (r *MessageRepo) RoomHistory(ctx context.Context, roomID string) ([]models.StoredMessage, error) {
	var msgs []models.StoredMessage
	err := r.db.SelectContext(ctx, &msgs, `SELECT id, room_id, doctor_id, mother_id, sender_id, sender, mother_name, message, is_read, created_at
        FROM messages WHERE room_id=$1 ORDER BY created_at ASC`, roomID)
	return msgs, err
}

// HistoryForPair is the REST fallback keyed by the participant pair rather
// than the derived room id.
func (r *MessageRepo) HistoryForPair(ctx context.Context, doctorID, motherID string) ([]models.StoredMessage, error) {
	var msgs []models.StoredMessage
	err := r.db.SelectContext(ctx, &msgs, `SELECT id, room_id, doctor_id, mother_id, sender_id, sender, mother_name, message, is_read, created_at
        FROM messages WHERE doctor_id=$1 AND mother_id=$2 ORDER BY created_at ASC`, doctorID, motherID)
	return msgs, err
}

// UnreadCounts reports, per mother, how many of her messages the doctor has
// not read yet.
func (r *MessageRepo) UnreadCounts(ctx context.Context, doctorID string) ([]models.UnreadCount, error) {
	var counts []models.UnreadCount
	err := r.db.SelectContext(ctx, &counts, `SELECT mother_id, COUNT(*) AS unread
        FROM messages WHERE doctor_id=$1 AND sender='mother' AND is_read = FALSE
        GROUP BY mother_id`, doctorID)
	return counts, err
}

// MarkRead flags every message in the pair's room sent by the other party as
// read. reader is "doctor" or "mother".
func (r *MessageRepo) MarkRead(ctx context.Context, doctorID, motherID, reader string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE messages SET is_read = TRUE
        WHERE doctor_id=$1 AND mother_id=$2 AND sender <> $3 AND is_read = FALSE`,
		doctorID, motherID, reader)
	return err
}
