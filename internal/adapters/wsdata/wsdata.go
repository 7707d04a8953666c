// Package wsdata implements the generic data channel over a websocket,
// for deployments that bridge the conference data channel through a
// gateway instead of the media engine.
package wsdata

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/openvc/confclient/internal/media"
)

var ErrBackpressure = errors.New("backpressure")
var ErrDetached = errors.New("channel detached")

const writeTimeout = 5 * time.Second

// Channel is a websocket-backed media.DataChannel. Attach dials, Detach
// closes; Send never blocks and fails with ErrBackpressure when the
// writer cannot keep up.
type Channel struct {
	url string
	log zerolog.Logger

	mu        sync.RWMutex
	conn      *websocket.Conn
	send      chan []byte
	onMessage func([]byte)
	closed    bool
	cancel    context.CancelFunc
}

var _ media.DataChannel = (*Channel)(nil)

func New(url string, logger zerolog.Logger) *Channel {
	return &Channel{url: url, log: logger}
}

func (c *Channel) Attach(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.conn = conn
	c.send = make(chan []byte, 32)
	c.closed = false
	c.cancel = cancel
	c.mu.Unlock()

	go c.writePump(ctx)
	go c.readPump(ctx)
	c.log.Info().Str("module", "wsdata").Str("url", c.url).Msg("data channel attached")
	return nil
}

func (c *Channel) Detach() {
	c.mu.Lock()
	if c.closed || c.conn == nil {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.cancel()
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
	c.log.Info().Str("module", "wsdata").Msg("data channel detached")
}

func (c *Channel) Send(payload []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed || c.conn == nil {
		return ErrDetached
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return ErrBackpressure
	}
}

func (c *Channel) OnMessage(fn func([]byte)) {
	c.mu.Lock()
	c.onMessage = fn
	c.mu.Unlock()
}

func (c *Channel) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				c.log.Error().Str("module", "wsdata").Err(err).Msg("set write deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Error().Str("module", "wsdata").Err(err).Msg("write")
				return
			}
		}
	}
}

func (c *Channel) readPump(ctx context.Context) {
	defer c.Detach()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.log.Warn().Str("module", "wsdata").Err(err).Msg("read")
			}
			return
		}
		c.mu.RLock()
		fn := c.onMessage
		c.mu.RUnlock()
		if fn != nil {
			fn(data)
		}
	}
}
