package services

import (
	"log"
	"sync"
	"time"

	"github.com/hemolink/hemolink-backend/internal/models"
)

// Server->client event types. Inbound message types are handled at the
// websocket handler.
const (
	EventTypeSubscribed = "subscribed"
	EventTypePong       = "pong"
	EventTypeNewDonor   = "new_donor"
)

// DonorEvent is the payload pushed to websocket subscribers.
type DonorEvent struct {
	Type      string         `json:"type"`
	BloodType string         `json:"blood_type,omitempty"`
	Message   string         `json:"message,omitempty"`
	Donor     *NewDonorEvent `json:"donor,omitempty"`
}

// NewDonorEvent is the donor summary broadcast on registration. It carries
// no phone number or coordinates; interested recipients run a search.
type NewDonorEvent struct {
	ID         string    `json:"id"`
	FirstName  string    `json:"first_name"`
	BloodType  string    `json:"blood_type"`
	City       string    `json:"city,omitempty"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

// DonorConn is the minimal interface our WebSocket implementation must
// satisfy. Implementations must be safe for concurrent WriteJSON calls.
type DonorConn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// DonorHub tracks live connections and their blood type subscriptions, and
// fans donor-registration events out to matching subscribers. All set
// mutation happens under the hub lock; broadcasts snapshot the subscriber
// set before writing so a slow or dying connection never holds the lock.
type DonorHub struct {
	mu    sync.RWMutex
	conns map[DonorConn]struct{}
	subs  map[string]map[DonorConn]struct{}
}

func NewDonorHub() *DonorHub {
	return &DonorHub{
		conns: make(map[DonorConn]struct{}),
		subs:  make(map[string]map[DonorConn]struct{}),
	}
}

// Register adds a new live connection with no subscriptions.
func (h *DonorHub) Register(conn DonorConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

// Unregister removes a connection from the active set and from every blood
// type subscription. Safe to call more than once.
func (h *DonorHub) Unregister(conn DonorConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
	for bloodType, set := range h.subs {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.subs, bloodType)
		}
	}
}

// Subscribe adds the connection to the subscription set for bloodType.
// Subscribing twice is a no-op; unregistered connections are ignored.
func (h *DonorHub) Subscribe(conn DonorConn, bloodType string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[conn]; !ok {
		return
	}
	set, ok := h.subs[bloodType]
	if !ok {
		set = make(map[DonorConn]struct{})
		h.subs[bloodType] = set
	}
	set[conn] = struct{}{}
}

// BroadcastNewDonor delivers a new_donor event to every connection
// subscribed to the donor's blood type. A write failure on one connection
// drops that connection but never aborts delivery to the rest.
func (h *DonorHub) BroadcastNewDonor(d *models.Donor) {
	event := DonorEvent{
		Type: EventTypeNewDonor,
		Donor: &NewDonorEvent{
			ID:         d.ID,
			FirstName:  d.FirstName,
			BloodType:  d.BloodType,
			City:       d.City,
			IsVerified: d.IsVerified,
			CreatedAt:  d.CreatedAt,
		},
	}

	h.mu.RLock()
	targets := make([]DonorConn, 0, len(h.subs[d.BloodType]))
	for conn := range h.subs[d.BloodType] {
		targets = append(targets, conn)
	}
	h.mu.RUnlock()

	for _, conn := range targets {
		if err := conn.WriteJSON(event); err != nil {
			log.Printf("dropping donor feed connection: %v", err)
			h.Unregister(conn)
			_ = conn.Close()
		}
	}
}

// Ping answers a client liveness probe with a pong on the same connection.
func (h *DonorHub) Ping(conn DonorConn) {
	if err := conn.WriteJSON(DonorEvent{Type: EventTypePong}); err != nil {
		h.Unregister(conn)
		_ = conn.Close()
	}
}

// ConnectionCount returns the number of live connections.
func (h *DonorHub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// SubscriberCount returns the number of connections subscribed to bloodType.
func (h *DonorHub) SubscriberCount(bloodType string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[bloodType])
}
