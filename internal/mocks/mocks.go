package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"maternity-chat/internal/models"
	"maternity-chat/internal/repositories"
)

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, msg models.StoredMessage) (models.StoredMessage, error) {
	args := m.Called(ctx, msg)
	var saved models.StoredMessage
	if val := args.Get(0); val != nil {
		saved = val.(models.StoredMessage)
	}
	return saved, args.Error(1)
}

func (m *MessageRepositoryMock) RoomHistory(ctx context.Context, roomID string) ([]models.StoredMessage, error) {
	args := m.Called(ctx, roomID)
	var msgs []models.StoredMessage
	if val := args.Get(0); val != nil {
		msgs = val.([]models.StoredMessage)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) HistoryForPair(ctx context.Context, doctorID, motherID string) ([]models.StoredMessage, error) {
	args := m.Called(ctx, doctorID, motherID)
	var msgs []models.StoredMessage
	if val := args.Get(0); val != nil {
		msgs = val.([]models.StoredMessage)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) UnreadCounts(ctx context.Context, doctorID string) ([]models.UnreadCount, error) {
	args := m.Called(ctx, doctorID)
	var counts []models.UnreadCount
	if val := args.Get(0); val != nil {
		counts = val.([]models.UnreadCount)
	}
	return counts, args.Error(1)
}

func (m *MessageRepositoryMock) MarkRead(ctx context.Context, doctorID, motherID, reader string) error {
	args := m.Called(ctx, doctorID, motherID, reader)
	return args.Error(0)
}

var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
