package live

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"parking-reservation-backend/internal/booking"
)

func startHub(t *testing.T, origins []string) (*Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := NewHub(origins, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/ws/spots", hub.ServeWS)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return hub, "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/spots"
}

func readSpots(t *testing.T, conn *websocket.Conn) SpotsMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg SpotsMessage
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func TestHub_BroadcastsSnapshots(t *testing.T) {
	hub, url := startHub(t, nil)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the hub a moment to register the client.
	time.Sleep(50 * time.Millisecond)
	hub.RenderSpots([]booking.Spot{{ID: "A-12", Label: "A12", Status: booking.SpotAvailable}})

	msg := readSpots(t, conn)
	assert.Equal(t, "spots", msg.Type)
	require.Len(t, msg.Spots, 1)
	assert.Equal(t, "A-12", msg.Spots[0].ID)
}

func TestHub_LateClientGetsLastSnapshot(t *testing.T) {
	hub, url := startHub(t, nil)
	hub.RenderSpots([]booking.Spot{{ID: "B-01", Status: booking.SpotOccupied}})
	time.Sleep(50 * time.Millisecond)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	msg := readSpots(t, conn)
	require.Len(t, msg.Spots, 1)
	assert.Equal(t, booking.SpotOccupied, msg.Spots[0].Status)
}

func TestHub_RejectsUnknownOrigin(t *testing.T) {
	_, url := startHub(t, []string{"https://app.example.com"})

	header := map[string][]string{"Origin": {"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	assert.Error(t, err)
	if resp != nil {
		assert.Equal(t, 403, resp.StatusCode)
	}

	header = map[string][]string{"Origin": {"https://app.example.com"}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	conn.Close()
}
