package realtime

import (
	"net/http"
	"time"

	"foodie-delivery/internal/models"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// upgrader upgrades HTTP connections to websocket connections. Origin checks
// are handled by the CORS layer in front of the gateway.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Gateway owns the websocket endpoint and routes inbound frames to the hub.
type Gateway struct {
	hub    *Hub
	logger zerolog.Logger
}

// NewGateway creates a gateway over the given hub.
func NewGateway(hub *Hub, logger zerolog.Logger) *Gateway {
	return &Gateway{
		hub:    hub,
		logger: logger.With().Str("component", "realtime-gateway").Logger(),
	}
}

// Hub exposes the broadcast hub for components that fan out directly.
func (g *Gateway) Hub() *Hub {
	return g.hub
}

// Serve handles GET /ws/deliveries: upgrades the connection, registers the
// client and starts its pumps.
func (g *Gateway) Serve(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := newClient(g, conn)
	g.hub.Register(client)
	client.start()
	return nil
}

// dispatch routes one inbound envelope. Unknown events and invalid payloads
// are logged and dropped; the connection stays up.
func (g *Gateway) dispatch(client *Client, envelope Envelope) {
	switch envelope.Event {
	case EventJoinDelivery:
		var p JoinPayload
		if !g.decode(envelope, &p) {
			return
		}
		g.hub.Join(p.DeliveryID, client)

	case EventLeaveDelivery:
		var p JoinPayload
		if !g.decode(envelope, &p) {
			return
		}
		g.hub.Leave(p.DeliveryID, client)

	case EventRiderLocation:
		var p RiderLocationPayload
		if !g.decode(envelope, &p) {
			return
		}
		location := models.GeoPoint{Latitude: *p.Latitude, Longitude: *p.Longitude}
		g.hub.BroadcastLocation(p.DeliveryID, location, time.Now())

	case EventStatusUpdate:
		// Best-effort UI echo, distinct from the authoritative transition
		// that goes through the delivery API. Broadcast as-is.
		var p StatusUpdatePayload
		if !g.decode(envelope, &p) {
			return
		}
		g.echoStatus(p)

	default:
		g.logger.Warn().Str("event", envelope.Event).Msg("dropping unknown realtime event")
	}
}

func (g *Gateway) echoStatus(p StatusUpdatePayload) {
	ts := p.Timestamp
	if ts == "" {
		ts = time.Now().UTC().Format(time.RFC3339)
	}
	out, err := newEnvelope(EventStatusBroadcast, StatusBroadcast{
		DeliveryID: p.DeliveryID,
		Status:     p.Status,
		Timestamp:  ts,
	})
	if err != nil {
		g.logger.Error().Err(err).Msg("failed to encode status echo")
		return
	}
	g.hub.broadcast(p.DeliveryID, out)
}

type payloadValidator interface {
	Validate() error
}

// decode unmarshals and validates an envelope payload, reporting whether it
// is usable.
func (g *Gateway) decode(envelope Envelope, out payloadValidator) bool {
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		g.logger.Warn().Err(err).Str("event", envelope.Event).Msg("dropping malformed realtime payload")
		return false
	}
	if err := out.Validate(); err != nil {
		g.logger.Warn().Err(err).Str("event", envelope.Event).Msg("dropping invalid realtime payload")
		return false
	}
	return true
}
