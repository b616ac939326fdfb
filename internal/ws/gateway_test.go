package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"maternity-chat/internal/mocks"
	"maternity-chat/internal/models"
	"maternity-chat/internal/observability"
)

func startGateway(t *testing.T, gw *Gateway) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", gw.Handle)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func writeEvent(t *testing.T, conn *websocket.Conn, event string, payload any) {
	t.Helper()
	env, err := models.NewEnvelope(event, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(env))
}

func infoForUser(h *Hub, userID string) (ConnInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, info := range h.conns {
		if info.UserID == userID {
			return info, true
		}
	}
	return ConnInfo{}, false
}

func TestGatewayRecordsDeclaredIdentity(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	repo.On("RoomHistory", mock.Anything, "room_doctor-1_mother-2").
		Return([]models.StoredMessage{}, nil)

	hub := NewHub()
	client := startGateway(t, NewGateway(hub, repo))

	writeEvent(t, client, models.EventUserOnline, models.PresencePayload{UserID: "doctor-1", Role: "doctor"})
	writeEvent(t, client, models.EventJoinRoom, models.JoinRoomPayload{RoomID: "room_doctor-1_mother-2", DisplayName: "Dr. Okafor"})

	require.Eventually(t, func() bool {
		info, ok := infoForUser(hub, "doctor-1")
		return ok && info.DisplayName == "Dr. Okafor"
	}, 2*time.Second, 10*time.Millisecond, "declared identity should reach the hub's connection record")
}

func TestGatewayDisconnectEventCarriesIdentity(t *testing.T) {
	published := make(chan observability.EventEnvelope, 16)
	pub := new(mocks.PublisherMock)
	pub.On("PublishJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			if env, ok := args.Get(2).(observability.EventEnvelope); ok {
				published <- env
			}
		}).Return(nil)
	observability.SetPublisher(pub)
	t.Cleanup(func() { observability.SetPublisher(nil) })

	repo := new(mocks.MessageRepositoryMock)
	hub := NewHub()
	client := startGateway(t, NewGateway(hub, repo))

	writeEvent(t, client, models.EventUserOnline, models.PresencePayload{UserID: "mother-2", Role: "mother"})
	require.Eventually(t, func() bool {
		_, ok := infoForUser(hub, "mother-2")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, client.Close())

	deadline := time.After(2 * time.Second)
	for {
		select {
		case env := <-published:
			if env.EventName != "ws_disconnect" {
				continue
			}
			payload, ok := env.Payload.(map[string]interface{})
			require.True(t, ok)
			identity, ok := payload["identity"].(map[string]interface{})
			require.True(t, ok)
			// The publisher is global: disconnects from earlier tests'
			// connections can still land here. Wait for our own.
			if identity["user_id"] != "mother-2" {
				continue
			}
			assert.Equal(t, "mother-2", identity["user_id"])
			return
		case <-deadline:
			t.Fatal("no disconnect event published")
		}
	}
}
