package logger

const (
	FieldChannel        = "channel"
	FieldConversationID = "conversation_id"
	FieldActivityID     = "activity_id"
	FieldSenderID       = "sender_id"
	FieldEventType      = "event_type"
	FieldCardPath       = "card_path"
	FieldActionCount    = "action_count"
	FieldPreview        = "preview"
	FieldError          = "error"

	FieldMessageContentLength = "message_content_length"
)
