// Package wsevents streams bus events to UI clients over a websocket.
package wsevents

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/aaron777collins/haos-rtc/internal/app/bus"
	"github.com/aaron777collins/haos-rtc/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Controller struct {
	bus        *bus.Bus
	pingPeriod time.Duration
}

func NewController(b *bus.Bus, pingPeriod time.Duration) *Controller {
	if pingPeriod <= 0 {
		pingPeriod = 54 * time.Second
	}
	return &Controller{bus: b, pingPeriod: pingPeriod}
}

type eventConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func (c *eventConn) trySend(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

func (c *eventConn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}

// HandleEvents upgrades the request and relays matching bus events
// until the client goes away. A ?room= query restricts the stream to
// one room.
func (ctl *Controller) HandleEvents(ctx context.Context, c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.wsevents").Msg("upgrade failed")
		return
	}
	ec := &eventConn{conn: conn, send: make(chan []byte, 64)}
	defer ec.close()

	forward := func(ev domain.Event) {
		data, err := json.Marshal(ev)
		if err != nil {
			return
		}
		if err := ec.trySend(data); err != nil {
			// Slow consumer; drop the event rather than block the bus.
			log.Debug().Str("module", "adapters.wsevents").Str("event", string(ev.Type)).Msg("event dropped")
		}
	}

	var cancel func()
	if room := c.Query("room"); room != "" {
		cancel = ctl.bus.SubscribeRoom(domain.RoomID(room), forward)
	} else {
		cancel = ctl.bus.Subscribe(forward)
	}
	defer cancel()

	go ec.readLoop()
	ec.writeLoop(ctx, ctl.pingPeriod)
}

// readLoop drains client frames so pings/pongs and close frames are
// processed. Inbound payloads are ignored; the stream is one-way.
func (c *eventConn) readLoop() {
	defer c.close()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *eventConn) writeLoop(ctx context.Context, pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
