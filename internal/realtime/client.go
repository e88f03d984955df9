package realtime

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

// Client is the middleman between one websocket connection and the hub. It
// tracks which delivery groups the connection has joined; that membership is
// lost with the connection, so a reconnecting client re-joins.
type Client struct {
	gw     *Gateway
	conn   *websocket.Conn
	send   chan Envelope
	joined map[string]struct{}
	logger zerolog.Logger
}

func newClient(gw *Gateway, conn *websocket.Conn) *Client {
	return &Client{
		gw:     gw,
		conn:   conn,
		send:   make(chan Envelope, sendBufferSize),
		joined: make(map[string]struct{}),
		logger: gw.logger,
	}
}

// start begins the read and write pumps.
func (c *Client) start() {
	go c.writePump()
	go c.readPump()
}

// readPump reads inbound frames and dispatches them. Malformed frames are
// logged and dropped, never propagated.
func (c *Client) readPump() {
	defer func() {
		c.gw.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error().Err(err).Msg("unexpected websocket close")
			}
			return
		}

		var envelope Envelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			c.logger.Warn().Err(err).Msg("dropping malformed realtime frame")
			continue
		}
		c.gw.dispatch(c, envelope)
	}
}

// writePump writes outbound envelopes and keepalive pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case envelope, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("failed to set write deadline")
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := json.Marshal(envelope)
			if err != nil {
				c.logger.Error().Err(err).Msg("failed to encode realtime frame")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error().Err(err).Msg("failed to write realtime frame")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
