package channels

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"cardbot/pkg/bus"
	"cardbot/pkg/config"
	"cardbot/pkg/logger"
)

const senderQueueSize = 64

type Manager struct {
	channels map[string]Channel
	bus      *bus.MessageBus
	config   *config.Config
	cancel   context.CancelFunc
	workers  sync.WaitGroup
	mu       sync.RWMutex
}

func NewManager(cfg *config.Config, messageBus *bus.MessageBus) (*Manager, error) {
	m := &Manager{
		channels: make(map[string]Channel),
		bus:      messageBus,
		config:   cfg,
	}

	if err := m.initChannels(); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Manager) initChannels() error {
	logger.InfoC("channels", "Initializing channel manager")

	if m.config.Channels.Bridge.Enabled {
		if m.config.Channels.Bridge.URL == "" {
			logger.WarnC("channels", "Bridge URL is empty, skipping")
		} else {
			m.channels["bridge"] = NewBridgeChannel(m.config.Channels.Bridge, m.bus)
			logger.InfoC("channels", "Bridge channel enabled successfully")
		}
	}

	logger.InfoCF("channels", "Channel initialization completed", map[string]interface{}{
		"enabled_channels": len(m.channels),
	})

	return nil
}

// StartAll starts every channel plus the outbound dispatcher. Each channel
// gets its own sender goroutine, so batches for one channel are sent in the
// order they were published and a slow channel does not hold up the others.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.channels) == 0 {
		logger.WarnC("channels", "No channels enabled")
		return nil
	}
	if m.cancel != nil {
		return fmt.Errorf("channels already started")
	}

	logger.InfoC("channels", "Starting all channels")

	dispatchCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	queues := make(map[string]chan bus.OutboundBatch, len(m.channels))
	for name, channel := range m.channels {
		queue := make(chan bus.OutboundBatch, senderQueueSize)
		queues[name] = queue
		m.workers.Add(1)
		go m.runSender(dispatchCtx, channel, queue)
	}

	m.workers.Add(1)
	go m.dispatchOutbound(dispatchCtx, queues)

	for name, channel := range m.channels {
		logger.InfoCF("channels", "Starting channel", map[string]interface{}{
			logger.FieldChannel: name,
		})
		if err := channel.Start(ctx); err != nil {
			logger.ErrorCF("channels", "Failed to start channel", map[string]interface{}{
				logger.FieldChannel: name,
				logger.FieldError:   err.Error(),
			})
		}
	}

	logger.InfoC("channels", "All channels started")
	return nil
}

func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	logger.InfoC("channels", "Stopping all channels")

	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
		m.workers.Wait()
	}

	for name, channel := range m.channels {
		if err := channel.Stop(ctx); err != nil {
			logger.ErrorCF("channels", "Error stopping channel", map[string]interface{}{
				logger.FieldChannel: name,
				logger.FieldError:   err.Error(),
			})
		}
	}

	logger.InfoC("channels", "All channels stopped")
	return nil
}

func (m *Manager) dispatchOutbound(ctx context.Context, queues map[string]chan bus.OutboundBatch) {
	defer m.workers.Done()
	logger.InfoC("channels", "Outbound dispatcher started")

	for {
		batch, ok := m.bus.SubscribeOutbound(ctx)
		if !ok {
			logger.InfoC("channels", "Outbound dispatcher stopped")
			return
		}

		queue, exists := queues[batch.Channel]
		if !exists {
			logger.WarnCF("channels", "Unknown channel for outbound batch", map[string]interface{}{
				logger.FieldChannel: batch.Channel,
			})
			continue
		}

		select {
		case queue <- batch:
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) runSender(ctx context.Context, channel Channel, queue <-chan bus.OutboundBatch) {
	defer m.workers.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case batch := <-queue:
			if err := channel.Send(ctx, batch); err != nil {
				logger.ErrorCF("channels", "Error sending batch to channel", map[string]interface{}{
					logger.FieldChannel:        channel.Name(),
					logger.FieldConversationID: batch.ConversationID,
					logger.FieldError:          err.Error(),
				})
			}
		}
	}
}

func (m *Manager) CheckHealth(ctx context.Context) map[string]error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make(map[string]error)
	for name, channel := range m.channels {
		results[name] = channel.HealthCheck(ctx)
	}
	return results
}

func (m *Manager) GetEnabledChannels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterChannel adds a channel. Channels registered after StartAll are not
// started and receive no outbound batches until the next StartAll.
func (m *Manager) RegisterChannel(name string, channel Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[name] = channel
}
