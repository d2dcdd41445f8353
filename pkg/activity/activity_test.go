package activity

import (
	"encoding/json"
	"errors"
	"testing"

	"cardbot/pkg/bot"
	"cardbot/pkg/cards"
)

func TestDecodeConversationUpdate(t *testing.T) {
	t.Parallel()

	act, ev, err := Decode([]byte(`{
  "type": "conversationUpdate",
  "id": "a1",
  "recipient": {"id": "bot", "name": "Bot"},
  "conversation": {"id": "conv-1"},
  "membersAdded": [{"id": "u1", "name": "Ann"}, {"id": "bot", "name": "Bot"}]
}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if act.ConversationID() != "conv-1" {
		t.Fatalf("conversation id mismatch: %q", act.ConversationID())
	}
	got, ok := ev.(bot.MembersAdded)
	if !ok {
		t.Fatalf("expected MembersAdded, got %T", ev)
	}
	if got.RecipientID != "bot" || len(got.Members) != 2 || got.Members[0] != (bot.Member{ID: "u1", Name: "Ann"}) {
		t.Fatalf("unexpected event: %+v", got)
	}
}

func TestDecodeConversationUpdateWithoutMembersIsUnhandled(t *testing.T) {
	t.Parallel()

	act, _, err := Decode([]byte(`{"type":"conversationUpdate","id":"a2","membersRemoved":[{"id":"u1"}]}`))
	if !errors.Is(err, ErrUnhandledActivity) {
		t.Fatalf("expected unhandled, got %v", err)
	}
	if act.ID != "a2" {
		t.Fatalf("activity should still be returned, got %+v", act)
	}
}

func TestDecodeInstallationUpdate(t *testing.T) {
	t.Parallel()

	_, ev, err := Decode([]byte(`{"type":"installationUpdate","action":"remove"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got, ok := ev.(bot.InstallationUpdate); !ok || got.Action != "remove" {
		t.Fatalf("unexpected event: %#v", ev)
	}
}

func TestDecodeMessage(t *testing.T) {
	t.Parallel()

	_, ev, err := Decode([]byte(`{"type":"message","from":{"id":"u1"},"text":"hello"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got, ok := ev.(bot.Message); !ok || got.SenderID != "u1" || got.Text != "hello" {
		t.Fatalf("unexpected event: %#v", ev)
	}
}

func TestDecodeTaskFetch(t *testing.T) {
	t.Parallel()

	_, ev, err := Decode([]byte(`{"type":"invoke","name":"task/fetch","value":{"data":{"id":"open"},"context":{}}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, ok := ev.(bot.TaskModuleFetch)
	if !ok {
		t.Fatalf("expected TaskModuleFetch, got %T", ev)
	}
	if string(got.Data) != `{"id":"open"}` {
		t.Fatalf("unexpected data %s", got.Data)
	}

	_, _, err = Decode([]byte(`{"type":"invoke","name":"task/submit","value":{}}`))
	if !errors.Is(err, ErrUnhandledActivity) {
		t.Fatalf("other invokes should be unhandled, got %v", err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{``, `{"type":`, `{"text":"no type"}`, `{"type": 12}`} {
		if _, _, err := Decode([]byte(raw)); !errors.Is(err, ErrMalformedActivity) {
			t.Fatalf("%q: expected malformed, got %v", raw, err)
		}
	}
}

func TestRepliesKeepActionOrder(t *testing.T) {
	t.Parallel()

	inbound := Activity{
		Type:         TypeMessage,
		ID:           "in-1",
		ChannelID:    "msteams",
		From:         &Account{ID: "u1"},
		Recipient:    &Account{ID: "bot"},
		Conversation: &Conversation{ID: "conv-1"},
	}
	card := cards.Attachment{ContentType: cards.ContentTypeAdaptiveCard, Content: map[string]interface{}{"type": "AdaptiveCard"}}
	replies := Replies(inbound, []bot.Action{bot.AttachmentAction(card), bot.TextAction("next")})

	if len(replies) != 2 {
		t.Fatalf("expected 2 replies, got %d", len(replies))
	}
	if len(replies[0].Attachments) != 1 || replies[0].Text != "" {
		t.Fatalf("first reply should carry the card: %+v", replies[0])
	}
	if replies[1].Text != "next" || len(replies[1].Attachments) != 0 {
		t.Fatalf("second reply should be text: %+v", replies[1])
	}
	for _, r := range replies {
		if r.ReplyToID != "in-1" || r.ConversationID() != "conv-1" || r.From.ID != "bot" || r.Recipient.ID != "u1" {
			t.Fatalf("reply not addressed back: %+v", r)
		}
		if r.ID == "" || r.ID == "in-1" {
			t.Fatalf("reply needs its own id: %q", r.ID)
		}
	}
	if replies[0].ID == replies[1].ID {
		t.Fatalf("reply ids must differ")
	}
}

func TestInvokeResponseBody(t *testing.T) {
	t.Parallel()

	resp := bot.TaskModuleResponse{URL: "https://x.example.com", FallbackURL: "https://x.example.com", Height: 1000, Width: 700, Title: "Task Module Title"}
	act, err := InvokeResponse(Activity{ID: "inv-1"}, resp)
	if err != nil {
		t.Fatalf("invoke response: %v", err)
	}
	if act.Type != TypeInvokeResponse || act.ReplyToID != "inv-1" {
		t.Fatalf("unexpected activity: %+v", act)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(act.Value, &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	task := body["task"].(map[string]interface{})
	if task["type"] != "continue" {
		t.Fatalf("expected continue task, got %v", task["type"])
	}
	value := task["value"].(map[string]interface{})
	if value["url"] != "https://x.example.com" || value["fallbackUrl"] != "https://x.example.com" ||
		value["height"] != float64(1000) || value["width"] != float64(700) || value["title"] != "Task Module Title" {
		t.Fatalf("unexpected task value: %v", value)
	}
}
