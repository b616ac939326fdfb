package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"maternity-chat/internal/mocks"
	"maternity-chat/internal/models"
)

func setupMessageRouter(handler *MessageHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", "doctor-1")
		c.Next()
	})
	r.GET("/messages", handler.GetMessages)
	r.POST("/messages", handler.PostMessage)
	r.GET("/messages/unread-count/:doctor_id", handler.GetUnreadCounts)
	r.PATCH("/messages/read", handler.MarkRead)
	return r
}

func TestGetMessagesSuccess(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewMessageHandler(messageRepo, nil)
	router := setupMessageRouter(handler)

	messageRepo.On("HistoryForPair", mock.Anything, "doctor-1", "mother-2").
		Return([]models.StoredMessage{{ID: "m1", RoomID: "room_doctor-1_mother-2", Message: "hello"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/messages?doctor_id=doctor-1&mother_id=mother-2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []models.StoredMessage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "hello", resp[0].Message)
	messageRepo.AssertExpectations(t)
}

func TestGetMessagesMissingParams(t *testing.T) {
	handler := NewMessageHandler(new(mocks.MessageRepositoryMock), nil)
	router := setupMessageRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/messages?doctor_id=doctor-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMessagesRepoError(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewMessageHandler(messageRepo, nil)
	router := setupMessageRouter(handler)

	messageRepo.On("HistoryForPair", mock.Anything, "doctor-1", "mother-2").
		Return(([]models.StoredMessage)(nil), assert.AnError).Once()

	req := httptest.NewRequest(http.MethodGet, "/messages?doctor_id=doctor-1&mother_id=mother-2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	messageRepo.AssertExpectations(t)
}

func TestPostMessageSuccess(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewMessageHandler(messageRepo, nil)
	router := setupMessageRouter(handler)

	messageRepo.On("CreateMessage", mock.Anything, mock.MatchedBy(func(msg models.StoredMessage) bool {
		return msg.RoomID == "room_doctor-1_mother-2" &&
			msg.SenderID == "mother-2" &&
			msg.Sender == "mother" &&
			msg.ID != ""
	})).Return(models.StoredMessage{ID: "m1", RoomID: "room_doctor-1_mother-2"}, nil).Once()

	body := bytes.NewBufferString(`{"doctor_id":"doctor-1","mother_id":"mother-2","sender":"mother","mother_name":"Amina","message":"hi"}`)
	req := httptest.NewRequest(http.MethodPost, "/messages", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	messageRepo.AssertExpectations(t)
}

func TestPostMessageInvalidBody(t *testing.T) {
	handler := NewMessageHandler(new(mocks.MessageRepositoryMock), nil)
	router := setupMessageRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/messages", bytes.NewBufferString(`{"doctor_id":"doctor-1"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUnreadCountsSuccess(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewMessageHandler(messageRepo, nil)
	router := setupMessageRouter(handler)

	messageRepo.On("UnreadCounts", mock.Anything, "doctor-1").
		Return([]models.UnreadCount{{MotherID: "mother-2", Unread: 3}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/messages/unread-count/doctor-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []models.UnreadCount
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp, 1)
	assert.Equal(t, 3, resp[0].Unread)
	messageRepo.AssertExpectations(t)
}

func TestGetUnreadCountsEmpty(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewMessageHandler(messageRepo, nil)
	router := setupMessageRouter(handler)

	messageRepo.On("UnreadCounts", mock.Anything, "doctor-1").
		Return(([]models.UnreadCount)(nil), nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/messages/unread-count/doctor-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	messageRepo.AssertExpectations(t)
}

func TestMarkReadSuccess(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewMessageHandler(messageRepo, nil)
	router := setupMessageRouter(handler)

	messageRepo.On("MarkRead", mock.Anything, "doctor-1", "mother-2", "doctor").Return(nil).Once()

	body := bytes.NewBufferString(`{"doctor_id":"doctor-1","mother_id":"mother-2","reader":"doctor"}`)
	req := httptest.NewRequest(http.MethodPatch, "/messages/read", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	messageRepo.AssertExpectations(t)
}

func TestMarkReadInvalidReader(t *testing.T) {
	handler := NewMessageHandler(new(mocks.MessageRepositoryMock), nil)
	router := setupMessageRouter(handler)

	body := bytes.NewBufferString(`{"doctor_id":"doctor-1","mother_id":"mother-2","reader":"nurse"}`)
	req := httptest.NewRequest(http.MethodPatch, "/messages/read", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
