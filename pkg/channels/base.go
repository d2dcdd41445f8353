package channels

import (
	"context"
	"sync/atomic"

	"cardbot/pkg/activity"
	"cardbot/pkg/bot"
	"cardbot/pkg/bus"
	"cardbot/pkg/logger"
)

// Channel is a transport that feeds turns into the bus and delivers reply
// batches back to users.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Send(ctx context.Context, batch bus.OutboundBatch) error
	IsRunning() bool
	HealthCheck(ctx context.Context) error
}

type BaseChannel struct {
	name      string
	bus       *bus.MessageBus
	allowList map[string]struct{}
	running   atomic.Bool
}

func NewBaseChannel(name string, messageBus *bus.MessageBus, allowFrom []string) *BaseChannel {
	allow := make(map[string]struct{}, len(allowFrom))
	for _, id := range allowFrom {
		allow[id] = struct{}{}
	}
	return &BaseChannel{
		name:      name,
		bus:       messageBus,
		allowList: allow,
	}
}

func (c *BaseChannel) Name() string {
	return c.name
}

func (c *BaseChannel) IsRunning() bool {
	return c.running.Load()
}

func (c *BaseChannel) setRunning(running bool) {
	c.running.Store(running)
}

// IsAllowed reports whether senderID may talk to the bot. An empty allow
// list admits everyone; events without a sender are always admitted.
func (c *BaseChannel) IsAllowed(senderID string) bool {
	if len(c.allowList) == 0 || senderID == "" {
		return true
	}
	_, ok := c.allowList[senderID]
	return ok
}

// HandleTurn publishes a decoded activity to the bus.
func (c *BaseChannel) HandleTurn(src activity.Activity, ev bot.InboundEvent, metadata map[string]string) bool {
	senderID := src.SenderID()
	if !c.IsAllowed(senderID) {
		logger.WarnCF(c.name, "Dropping turn from sender not in allow list", map[string]interface{}{
			logger.FieldSenderID: senderID,
		})
		return false
	}

	return c.bus.PublishInbound(bus.InboundTurn{
		Channel:        c.name,
		ConversationID: src.ConversationID(),
		SenderID:       senderID,
		Source:         src,
		Event:          ev,
		Metadata:       metadata,
	})
}
