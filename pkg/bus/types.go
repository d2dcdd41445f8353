package bus

import (
	"cardbot/pkg/activity"
	"cardbot/pkg/bot"
)

// InboundTurn is one decoded event and the activity it arrived as.
type InboundTurn struct {
	Channel        string            `json:"channel"`
	ConversationID string            `json:"conversation_id"`
	SenderID       string            `json:"sender_id,omitempty"`
	Source         activity.Activity `json:"source"`
	Event          bot.InboundEvent  `json:"-"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// OutboundBatch carries every reply of a single turn. Channels deliver the
// actions in slice order.
type OutboundBatch struct {
	Channel        string                  `json:"channel"`
	ConversationID string                  `json:"conversation_id"`
	ReplyTo        activity.Activity       `json:"reply_to"`
	Actions        []bot.Action            `json:"-"`
	TaskModule     *bot.TaskModuleResponse `json:"task_module,omitempty"`
}

func (b OutboundBatch) Empty() bool {
	return len(b.Actions) == 0 && b.TaskModule == nil
}
