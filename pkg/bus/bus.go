package bus

import (
	"context"
	"sync"
	"time"

	"cardbot/pkg/logger"
)

type MessageBus struct {
	inbound   chan InboundTurn
	outbound  chan OutboundBatch
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

const queueWriteTimeout = 2 * time.Second

func NewMessageBus() *MessageBus {
	return &MessageBus{
		inbound:  make(chan InboundTurn, 100),
		outbound: make(chan OutboundBatch, 100),
	}
}

// PublishInbound reports whether the turn was queued.
func (mb *MessageBus) PublishInbound(turn InboundTurn) bool {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	if mb.closed {
		return false
	}

	select {
	case mb.inbound <- turn:
		return true
	case <-time.After(queueWriteTimeout):
		logger.ErrorCF("bus", "PublishInbound timeout (queue full)", map[string]interface{}{
			logger.FieldChannel:        turn.Channel,
			logger.FieldConversationID: turn.ConversationID,
		})
		return false
	}
}

func (mb *MessageBus) ConsumeInbound(ctx context.Context) (InboundTurn, bool) {
	select {
	case turn, ok := <-mb.inbound:
		return turn, ok
	case <-ctx.Done():
		return InboundTurn{}, false
	}
}

// PublishOutbound reports whether the batch was queued.
func (mb *MessageBus) PublishOutbound(batch OutboundBatch) bool {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	if mb.closed {
		return false
	}

	select {
	case mb.outbound <- batch:
		return true
	case <-time.After(queueWriteTimeout):
		logger.ErrorCF("bus", "PublishOutbound timeout (queue full)", map[string]interface{}{
			logger.FieldChannel:        batch.Channel,
			logger.FieldConversationID: batch.ConversationID,
		})
		return false
	}
}

func (mb *MessageBus) SubscribeOutbound(ctx context.Context) (OutboundBatch, bool) {
	select {
	case batch, ok := <-mb.outbound:
		return batch, ok
	case <-ctx.Done():
		return OutboundBatch{}, false
	}
}

// Close stops accepting publishes and closes both queues. Publishers hold the
// read lock while sending, so Close waits for in-flight publishes.
func (mb *MessageBus) Close() {
	mb.closeOnce.Do(func() {
		mb.mu.Lock()
		mb.closed = true
		close(mb.inbound)
		close(mb.outbound)
		mb.mu.Unlock()
	})
}
