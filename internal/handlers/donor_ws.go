package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hemolink/hemolink-backend/internal/models"
	"github.com/hemolink/hemolink-backend/internal/services"
)

var donorFeedUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS for WebSocket is handled at the HTTP layer already.
		return true
	},
}

// FeedClientMessage represents messages coming from clients over WebSocket.
type FeedClientMessage struct {
	Type      string `json:"type"` // "subscribe_blood_type", "ping"
	BloodType string `json:"blood_type,omitempty"`
}

// safeConn serializes writes so hub broadcasts and the read-loop's acks
// never interleave on the underlying gorilla connection.
type safeConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *safeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *safeConn) Close() error {
	return c.conn.Close()
}

// DonorFeed serves the real-time donor feed. Clients subscribe to one or
// more blood types and receive a new_donor event whenever a matching donor
// registers. Unknown message types are ignored.
func DonorFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := donorFeedUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &safeConn{conn: conn}
	donorHub.Register(c)
	defer func() {
		donorHub.Unregister(c)
		conn.Close()
	}()

	conn.SetReadLimit(4 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	conn.SetPongHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))

		var msg FeedClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "subscribe_blood_type":
			bloodType := strings.ToUpper(strings.TrimSpace(msg.BloodType))
			if !models.IsValidBloodType(bloodType) {
				continue
			}
			donorHub.Subscribe(c, bloodType)
			_ = c.WriteJSON(services.DonorEvent{
				Type:      services.EventTypeSubscribed,
				BloodType: bloodType,
				Message:   fmt.Sprintf("Subscribed to %s blood requests", bloodType),
			})
		case "ping":
			donorHub.Ping(c)
		default:
			// Ignore unknown types
		}
	}
}
