// Package realtime manages per-delivery broadcast groups over websocket
// connections: clients join the group of a delivery they track and receive
// location and status pushes until they leave or disconnect. Membership is
// purely in-memory; a reconnecting client re-joins.
package realtime

import (
	"sync"
	"time"

	"foodie-delivery/internal/metrics"
	"foodie-delivery/internal/models"

	"github.com/rs/zerolog"
)

// Hub maintains the set of connected clients and one broadcast group per
// delivery id. Groups are created lazily on first join and torn down when
// the last member leaves.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	groups  map[string]map[*Client]struct{}
	logger  zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		groups:  make(map[string]map[*Client]struct{}),
		logger:  logger.With().Str("component", "realtime-hub").Logger(),
	}
}

// Register adds a connected client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.RealtimeClientsActive.Set(float64(total))
	h.logger.Info().Int("total_clients", total).Msg("realtime client connected")
}

// Unregister removes a client and its group memberships, and closes its send
// channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	for deliveryID := range c.joined {
		h.leaveLocked(deliveryID, c)
	}
	total := len(h.clients)
	close(c.send)
	h.mu.Unlock()

	metrics.RealtimeClientsActive.Set(float64(total))
	h.logger.Info().Int("total_clients", total).Msg("realtime client disconnected")
}

// Join subscribes the client to a delivery's broadcast group.
func (h *Hub) Join(deliveryID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.groups[deliveryID]
	if !ok {
		group = make(map[*Client]struct{})
		h.groups[deliveryID] = group
	}
	group[c] = struct{}{}
	c.joined[deliveryID] = struct{}{}
}

// Leave unsubscribes the client from a delivery's broadcast group.
func (h *Hub) Leave(deliveryID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(deliveryID, c)
	delete(c.joined, deliveryID)
}

func (h *Hub) leaveLocked(deliveryID string, c *Client) {
	group, ok := h.groups[deliveryID]
	if !ok {
		return
	}
	delete(group, c)
	if len(group) == 0 {
		delete(h.groups, deliveryID)
	}
}

// GroupSize returns the current membership of a delivery's group.
func (h *Hub) GroupSize(deliveryID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[deliveryID])
}

// BroadcastLocation fans a rider position out to the delivery's group. The
// value is not persisted anywhere; each push simply overwrites what clients
// hold.
func (h *Hub) BroadcastLocation(deliveryID string, location models.GeoPoint, at time.Time) {
	envelope, err := newEnvelope(EventLocationBroadcast, LocationBroadcast{
		DeliveryID: deliveryID,
		Location:   location,
		Timestamp:  at.UTC().Format(time.RFC3339),
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to encode location broadcast")
		return
	}
	h.broadcast(deliveryID, envelope)
	metrics.RealtimeBroadcastsTotal.WithLabelValues(EventLocationBroadcast).Inc()
}

// BroadcastStatus fans a status change out to the delivery's group. Both the
// authoritative path (store transition) and broker-originated changes land
// here.
func (h *Hub) BroadcastStatus(deliveryID string, status models.Status, orderID string, at time.Time) {
	envelope, err := newEnvelope(EventStatusBroadcast, StatusBroadcast{
		DeliveryID: deliveryID,
		Status:     string(status),
		Timestamp:  at.UTC().Format(time.RFC3339),
		OrderID:    orderID,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to encode status broadcast")
		return
	}
	h.broadcast(deliveryID, envelope)
	metrics.RealtimeBroadcastsTotal.WithLabelValues(EventStatusBroadcast).Inc()
}

// broadcast delivers an envelope to every member of the group. A client
// whose send buffer is full is skipped; a healthy client drains its buffer
// long before it fills, and location pushes tolerate loss.
func (h *Hub) broadcast(deliveryID string, envelope Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.groups[deliveryID] {
		select {
		case c.send <- envelope:
		default:
			h.logger.Warn().Str("delivery_id", deliveryID).Msg("dropping message for slow realtime client")
		}
	}
}
