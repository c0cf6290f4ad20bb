package websocket_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trainctl/internal/api/websocket"
)

func TestNewSystemStatusMessage(t *testing.T) {
	msg := websocket.NewSystemStatusMessage("RUNNING")

	assert.Equal(t, websocket.MessageTypeSystemStatus, msg.Type)
	data, ok := msg.Data.(websocket.SystemStatusData)
	require.True(t, ok)
	assert.Equal(t, "RUNNING", data.State)
	assert.False(t, msg.Timestamp.IsZero())
}

func TestHubBroadcastsSystemStatusToClient(t *testing.T) {
	hub := websocket.NewHub(zap.NewNop())
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		websocket.ServeWs(hub, w, r)
	}))
	defer srv.Close()

	conn, _, err := gws.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return hub.GetClientCount() == 1
	}, time.Second, 5*time.Millisecond)

	hub.Broadcast(websocket.NewSystemStatusMessage("RUNNING"))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type string `json:"type"`
		Data struct {
			State string `json:"state"`
		} `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "system_status", msg.Type)
	assert.Equal(t, "RUNNING", msg.Data.State)
}
