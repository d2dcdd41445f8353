// Package activity maps the JSON activity format exchanged with hosting
// transports onto dispatcher events and back.
package activity

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"cardbot/pkg/bot"
	"cardbot/pkg/cards"
)

const (
	TypeMessage            = "message"
	TypeConversationUpdate = "conversationUpdate"
	TypeInstallationUpdate = "installationUpdate"
	TypeInvoke             = "invoke"
	TypeInvokeResponse     = "invokeResponse"

	InvokeTaskFetch = "task/fetch"
)

var (
	ErrMalformedActivity = errors.New("malformed activity")
	// ErrUnhandledActivity marks a well-formed activity the bot has no
	// handler for. Hosts acknowledge it without replying.
	ErrUnhandledActivity = errors.New("unhandled activity")
)

type Account struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type Conversation struct {
	ID string `json:"id"`
}

type Activity struct {
	Type         string             `json:"type"`
	ID           string             `json:"id,omitempty"`
	Name         string             `json:"name,omitempty"`
	ChannelID    string             `json:"channelId,omitempty"`
	From         *Account           `json:"from,omitempty"`
	Recipient    *Account           `json:"recipient,omitempty"`
	Conversation *Conversation      `json:"conversation,omitempty"`
	ReplyToID    string             `json:"replyToId,omitempty"`
	Text         string             `json:"text,omitempty"`
	Action       string             `json:"action,omitempty"`
	MembersAdded []Account          `json:"membersAdded,omitempty"`
	Attachments  []cards.Attachment `json:"attachments,omitempty"`
	Value        json.RawMessage    `json:"value,omitempty"`
}

func (a Activity) ConversationID() string {
	if a.Conversation == nil {
		return ""
	}
	return a.Conversation.ID
}

func (a Activity) SenderID() string {
	if a.From == nil {
		return ""
	}
	return a.From.ID
}

// Decode parses one activity and converts it to the matching event. The
// activity is returned even when the error is ErrUnhandledActivity.
func Decode(data []byte) (Activity, bot.InboundEvent, error) {
	if !gjson.ValidBytes(data) {
		return Activity{}, nil, fmt.Errorf("%w: invalid JSON", ErrMalformedActivity)
	}
	if !gjson.GetBytes(data, "type").Exists() {
		return Activity{}, nil, fmt.Errorf("%w: missing type", ErrMalformedActivity)
	}

	var act Activity
	if err := json.Unmarshal(data, &act); err != nil {
		return Activity{}, nil, fmt.Errorf("%w: %v", ErrMalformedActivity, err)
	}

	ev, err := ToEvent(act)
	return act, ev, err
}

func ToEvent(act Activity) (bot.InboundEvent, error) {
	switch act.Type {
	case TypeConversationUpdate:
		if len(act.MembersAdded) == 0 {
			return nil, fmt.Errorf("%w: conversationUpdate without membersAdded", ErrUnhandledActivity)
		}
		members := make([]bot.Member, 0, len(act.MembersAdded))
		for _, m := range act.MembersAdded {
			members = append(members, bot.Member{ID: m.ID, Name: m.Name})
		}
		var recipientID string
		if act.Recipient != nil {
			recipientID = act.Recipient.ID
		}
		return bot.MembersAdded{Members: members, RecipientID: recipientID}, nil
	case TypeInstallationUpdate:
		return bot.InstallationUpdate{Action: act.Action}, nil
	case TypeMessage:
		return bot.Message{SenderID: act.SenderID(), Text: act.Text}, nil
	case TypeInvoke:
		if act.Name != InvokeTaskFetch {
			return nil, fmt.Errorf("%w: invoke %q", ErrUnhandledActivity, act.Name)
		}
		var data json.RawMessage
		if len(act.Value) > 0 {
			if raw := gjson.GetBytes(act.Value, "data"); raw.Exists() {
				data = json.RawMessage(raw.Raw)
			}
		}
		return bot.TaskModuleFetch{Data: data}, nil
	default:
		return nil, fmt.Errorf("%w: type %q", ErrUnhandledActivity, act.Type)
	}
}

// Replies builds the outbound message activities for a turn's actions, in
// action order, addressed back to the inbound activity's conversation.
func Replies(inbound Activity, actions []bot.Action) []Activity {
	out := make([]Activity, 0, len(actions))
	for _, action := range actions {
		reply := replyTo(inbound, TypeMessage)
		switch action.Kind {
		case bot.ActionAttachment:
			if action.Attachment != nil {
				reply.Attachments = []cards.Attachment{*action.Attachment}
			}
		default:
			reply.Text = action.Text
		}
		out = append(out, reply)
	}
	return out
}

type TaskModuleContinue struct {
	Type  string                 `json:"type"`
	Value bot.TaskModuleResponse `json:"value"`
}

type InvokeResponseBody struct {
	Task TaskModuleContinue `json:"task"`
}

func TaskModuleBody(resp bot.TaskModuleResponse) InvokeResponseBody {
	return InvokeResponseBody{Task: TaskModuleContinue{Type: "continue", Value: resp}}
}

// InvokeResponse wraps a task module response in an invokeResponse activity
// for transports that carry invoke replies in-band.
func InvokeResponse(inbound Activity, resp bot.TaskModuleResponse) (Activity, error) {
	body, err := json.Marshal(TaskModuleBody(resp))
	if err != nil {
		return Activity{}, err
	}
	reply := replyTo(inbound, TypeInvokeResponse)
	reply.Value = body
	return reply, nil
}

func replyTo(inbound Activity, typ string) Activity {
	return Activity{
		Type:         typ,
		ID:           uuid.NewString(),
		ChannelID:    inbound.ChannelID,
		From:         inbound.Recipient,
		Recipient:    inbound.From,
		Conversation: inbound.Conversation,
		ReplyToID:    inbound.ID,
	}
}
