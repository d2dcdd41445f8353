package bot

import "cardbot/pkg/cards"

type ActionKind string

const (
	ActionText       ActionKind = "text"
	ActionAttachment ActionKind = "attachment"
)

// Action is one outbound message. Exactly one of Text or Attachment is set,
// according to Kind.
type Action struct {
	Kind       ActionKind
	Text       string
	Attachment *cards.Attachment
}

func TextAction(text string) Action {
	return Action{Kind: ActionText, Text: text}
}

func AttachmentAction(a cards.Attachment) Action {
	return Action{Kind: ActionAttachment, Attachment: &a}
}

// TaskModuleResponse describes the web surface a task module opens.
type TaskModuleResponse struct {
	URL         string `json:"url"`
	FallbackURL string `json:"fallbackUrl"`
	Height      int    `json:"height"`
	Width       int    `json:"width"`
	Title       string `json:"title"`
}

// Result is everything a turn produces. Actions are delivered in order.
type Result struct {
	Actions    []Action
	TaskModule *TaskModuleResponse
}
