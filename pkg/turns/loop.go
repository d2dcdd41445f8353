// Package turns runs the dispatcher against turns arriving on the message
// bus and publishes each turn's replies as one ordered batch.
package turns

import (
	"context"
	"errors"

	"cardbot/pkg/bot"
	"cardbot/pkg/bus"
	"cardbot/pkg/cards"
	"cardbot/pkg/lifecycle"
	"cardbot/pkg/logger"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, ev bot.InboundEvent) (bot.Result, error)
}

type Loop struct {
	bus        *bus.MessageBus
	dispatcher Dispatcher
	runner     *lifecycle.LoopRunner
}

func NewLoop(messageBus *bus.MessageBus, dispatcher Dispatcher) *Loop {
	return &Loop{
		bus:        messageBus,
		dispatcher: dispatcher,
		runner:     lifecycle.NewLoopRunner(),
	}
}

func (l *Loop) Start(ctx context.Context) bool {
	return l.runner.Start(ctx, l.Run)
}

func (l *Loop) Stop() {
	l.runner.Stop()
}

// Run handles turns one at a time until ctx is done or the bus closes.
func (l *Loop) Run(ctx context.Context) {
	logger.InfoC("turns", "Turn loop started")
	defer logger.InfoC("turns", "Turn loop stopped")

	for {
		turn, ok := l.bus.ConsumeInbound(ctx)
		if !ok {
			return
		}

		batch, err := l.ProcessTurn(ctx, turn)
		if err != nil {
			continue
		}
		if batch.Empty() {
			continue
		}
		l.bus.PublishOutbound(batch)
	}
}

// ProcessTurn dispatches a single turn. Errors are logged here; the caller
// only decides whether to publish.
func (l *Loop) ProcessTurn(ctx context.Context, turn bus.InboundTurn) (bus.OutboundBatch, error) {
	fields := map[string]interface{}{
		logger.FieldChannel:        turn.Channel,
		logger.FieldConversationID: turn.ConversationID,
		logger.FieldActivityID:     turn.Source.ID,
	}
	if turn.Event != nil {
		fields[logger.FieldEventType] = string(turn.Event.Type())
	}

	res, err := l.dispatcher.Dispatch(ctx, turn.Event)
	if err != nil {
		fields[logger.FieldError] = err.Error()
		var loadErr *cards.CardLoadError
		if errors.As(err, &loadErr) {
			fields[logger.FieldCardPath] = loadErr.Path
		}
		logger.ErrorCF("turns", "Turn failed", fields)
		return bus.OutboundBatch{}, err
	}

	fields[logger.FieldActionCount] = len(res.Actions)
	logger.DebugCF("turns", "Turn handled", fields)

	return bus.OutboundBatch{
		Channel:        turn.Channel,
		ConversationID: turn.ConversationID,
		ReplyTo:        turn.Source,
		Actions:        res.Actions,
		TaskModule:     res.TaskModule,
	}, nil
}
