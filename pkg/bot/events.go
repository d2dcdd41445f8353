package bot

import "encoding/json"

type EventType string

const (
	EventMembersAdded       EventType = "members_added"
	EventInstallationUpdate EventType = "installation_update"
	EventMessage            EventType = "message"
	EventTaskModuleFetch    EventType = "task_module_fetch"
)

// InboundEvent is one turn's worth of input. The set of implementations is
// closed; Dispatch switches over all of them.
type InboundEvent interface {
	Type() EventType
	inboundEvent()
}

type Member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type MembersAdded struct {
	Members     []Member
	RecipientID string
}

type InstallationUpdate struct {
	Action string
}

type Message struct {
	SenderID string
	Text     string
}

type TaskModuleFetch struct {
	Data json.RawMessage
}

func (MembersAdded) Type() EventType       { return EventMembersAdded }
func (InstallationUpdate) Type() EventType { return EventInstallationUpdate }
func (Message) Type() EventType            { return EventMessage }
func (TaskModuleFetch) Type() EventType    { return EventTaskModuleFetch }

func (MembersAdded) inboundEvent()       {}
func (InstallationUpdate) inboundEvent() {}
func (Message) inboundEvent()            {}
func (TaskModuleFetch) inboundEvent()    {}
