package channels

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"cardbot/pkg/activity"
	"cardbot/pkg/bus"
	"cardbot/pkg/config"
	"cardbot/pkg/logger"
)

const (
	bridgeHandshakeTimeout = 10 * time.Second
	bridgeWriteTimeout     = 10 * time.Second
	bridgeMinBackoff       = 200 * time.Millisecond
	bridgeMaxBackoff       = 5 * time.Second
)

// BridgeChannel talks to an external bridge process over a websocket. The
// bridge owns the messaging platform connection and exchanges JSON
// activities with the bot: inbound frames are activities, outbound frames
// are reply activities and invokeResponse activities.
type BridgeChannel struct {
	*BaseChannel
	config    config.BridgeConfig
	dialer    *websocket.Dialer
	runCancel cancelGuard
	mu        sync.Mutex
	conn      *websocket.Conn
}

func NewBridgeChannel(cfg config.BridgeConfig, messageBus *bus.MessageBus) *BridgeChannel {
	return &BridgeChannel{
		BaseChannel: NewBaseChannel("bridge", messageBus, cfg.AllowFrom),
		config:      cfg,
		dialer: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: bridgeHandshakeTimeout,
		},
	}
}

func (c *BridgeChannel) Start(ctx context.Context) error {
	if c.IsRunning() {
		return nil
	}
	logger.InfoCF("bridge", "Starting bridge channel", map[string]interface{}{
		"url": c.config.URL,
	})

	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.runCancel.set(cancel)

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.setRunning(true)
	logger.InfoC("bridge", "Bridge channel connected")

	go c.listen(runCtx)
	return nil
}

func (c *BridgeChannel) Stop(ctx context.Context) error {
	if !c.IsRunning() {
		return nil
	}
	logger.InfoC("bridge", "Stopping bridge channel")
	c.setRunning(false)
	c.runCancel.cancelAndClear()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		if err := c.conn.Close(); err != nil {
			logger.WarnCF("bridge", "Error closing bridge connection", map[string]interface{}{
				logger.FieldError: err.Error(),
			})
		}
		c.conn = nil
	}
	return nil
}

// Send writes the batch's replies in order. The task module response, if
// any, goes last as an invokeResponse.
func (c *BridgeChannel) Send(ctx context.Context, batch bus.OutboundBatch) error {
	frames := activity.Replies(batch.ReplyTo, batch.Actions)
	if batch.TaskModule != nil {
		invoke, err := activity.InvokeResponse(batch.ReplyTo, *batch.TaskModule)
		if err != nil {
			return fmt.Errorf("failed to build invoke response: %w", err)
		}
		frames = append(frames, invoke)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("bridge connection not established")
	}

	for i, frame := range frames {
		if err := ctx.Err(); err != nil {
			return err
		}
		_ = c.conn.SetWriteDeadline(time.Now().Add(bridgeWriteTimeout))
		if err := c.conn.WriteJSON(frame); err != nil {
			return fmt.Errorf("failed to send frame %d of %d: %w", i+1, len(frames), err)
		}
	}

	logger.DebugCF("bridge", "Batch delivered", map[string]interface{}{
		logger.FieldConversationID: batch.ConversationID,
		logger.FieldActionCount:    len(frames),
	})
	return nil
}

func (c *BridgeChannel) HealthCheck(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("bridge connection not established")
	}
	deadline := time.Now().Add(bridgeWriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	return c.conn.WriteControl(websocket.PingMessage, nil, deadline)
}

func (c *BridgeChannel) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.config.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to bridge: %w", err)
	}
	return conn, nil
}

// listen reads frames until ctx is done, redialing with capped backoff when
// the connection drops.
func (c *BridgeChannel) listen(ctx context.Context) {
	backoff := bridgeMinBackoff

	for {
		if ctx.Err() != nil {
			return
		}

		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		if conn == nil {
			if !sleepWithContext(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, bridgeMaxBackoff)

			newConn, err := c.dial(ctx)
			if err != nil {
				logger.WarnCF("bridge", "Bridge reconnect failed", map[string]interface{}{
					logger.FieldError: err.Error(),
				})
				continue
			}
			if ctx.Err() != nil {
				_ = newConn.Close()
				return
			}
			c.mu.Lock()
			c.conn = newConn
			c.mu.Unlock()
			logger.InfoC("bridge", "Bridge reconnected")
			continue
		}

		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || errors.Is(err, net.ErrClosed) {
				logger.InfoCF("bridge", "Bridge connection closed", map[string]interface{}{
					logger.FieldError: err.Error(),
				})
			} else {
				logger.WarnCF("bridge", "Bridge read error", map[string]interface{}{
					logger.FieldError: err.Error(),
				})
			}
			c.mu.Lock()
			if c.conn == conn {
				_ = conn.Close()
				c.conn = nil
			}
			c.mu.Unlock()
			continue
		}
		backoff = bridgeMinBackoff

		c.handleFrame(frame)
	}
}

func (c *BridgeChannel) handleFrame(frame []byte) {
	src, ev, err := activity.Decode(frame)
	switch {
	case errors.Is(err, activity.ErrUnhandledActivity):
		logger.DebugCF("bridge", "Ignoring activity", map[string]interface{}{
			"type":                 src.Type,
			logger.FieldActivityID: src.ID,
		})
		return
	case err != nil:
		logger.WarnCF("bridge", "Failed to decode bridge frame", map[string]interface{}{
			logger.FieldError:   err.Error(),
			logger.FieldPreview: truncateString(string(frame), 80),
		})
		return
	}

	logger.InfoCF("bridge", "Bridge activity received", map[string]interface{}{
		logger.FieldEventType:      string(ev.Type()),
		logger.FieldSenderID:       src.SenderID(),
		logger.FieldConversationID: src.ConversationID(),
	})

	c.HandleTurn(src, ev, map[string]string{"activity_id": src.ID})
}
