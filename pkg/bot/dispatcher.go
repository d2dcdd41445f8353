package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/text/cases"

	"cardbot/pkg/cards"
)

const (
	WelcomeText     = "This bot will introduce you to AdaptiveCards.\n Type anything to see an AdaptiveCard."
	InstallWelcome  = "Welcome message"
	InstallExit     = "Exit message"
	FollowUpText    = "Please enter any text to see another card."
	installAddValue = "Add"

	DefaultTaskModuleHeight = 1000
	DefaultTaskModuleWidth  = 700
	DefaultTaskModuleTitle  = "Task Module Title"
)

var ErrUnsupportedEvent = errors.New("unsupported event")

// TaskModuleSettings configures the response to task module fetches. Zero
// geometry and title fall back to the defaults; an empty FallbackURL
// mirrors URL.
type TaskModuleSettings struct {
	URL         string
	FallbackURL string
	Height      int
	Width       int
	Title       string
}

type Dispatcher struct {
	cardPaths []string
	task      TaskModuleResponse
}

func NewDispatcher(cardPaths []string, task TaskModuleSettings) (*Dispatcher, error) {
	if len(cardPaths) == 0 {
		return nil, fmt.Errorf("dispatcher needs at least one card path")
	}
	if task.URL == "" {
		return nil, fmt.Errorf("task module url is required")
	}

	resp := TaskModuleResponse{
		URL:         task.URL,
		FallbackURL: task.FallbackURL,
		Height:      task.Height,
		Width:       task.Width,
		Title:       task.Title,
	}
	if resp.FallbackURL == "" {
		resp.FallbackURL = resp.URL
	}
	if resp.Height <= 0 {
		resp.Height = DefaultTaskModuleHeight
	}
	if resp.Width <= 0 {
		resp.Width = DefaultTaskModuleWidth
	}
	if resp.Title == "" {
		resp.Title = DefaultTaskModuleTitle
	}

	return &Dispatcher{
		cardPaths: append([]string(nil), cardPaths...),
		task:      resp,
	}, nil
}

func (d *Dispatcher) Dispatch(ctx context.Context, ev InboundEvent) (Result, error) {
	switch e := ev.(type) {
	case MembersAdded:
		return Result{Actions: d.OnMembersAdded(e.Members, e.RecipientID)}, nil
	case InstallationUpdate:
		return Result{Actions: []Action{d.OnInstallationUpdate(e.Action)}}, nil
	case Message:
		actions, err := d.OnMessage(e)
		if err != nil {
			return Result{}, err
		}
		return Result{Actions: actions}, nil
	case TaskModuleFetch:
		resp := d.OnTaskModuleFetch(e.Data)
		return Result{TaskModule: &resp}, nil
	default:
		return Result{}, fmt.Errorf("%w: %T", ErrUnsupportedEvent, ev)
	}
}

// OnMembersAdded greets every added member except the bot itself, in input
// order.
func (d *Dispatcher) OnMembersAdded(members []Member, recipientID string) []Action {
	var actions []Action
	for _, m := range members {
		if m.ID == recipientID {
			continue
		}
		actions = append(actions, TextAction(fmt.Sprintf("Welcome to Adaptive Cards Bot %s. %s", m.Name, WelcomeText)))
	}
	return actions
}

func (d *Dispatcher) OnInstallationUpdate(action string) Action {
	// A Caser is not safe for concurrent use.
	fold := cases.Fold()
	if fold.String(action) == fold.String(installAddValue) {
		return TextAction(InstallWelcome)
	}
	return TextAction(InstallExit)
}

// OnMessage replies with the first configured card followed by a prompt. The
// message content does not affect the reply.
func (d *Dispatcher) OnMessage(_ Message) ([]Action, error) {
	att, err := cards.LoadCard(d.cardPaths[0])
	if err != nil {
		return nil, err
	}
	return []Action{
		AttachmentAction(att),
		TextAction(FollowUpText),
	}, nil
}

func (d *Dispatcher) OnTaskModuleFetch(_ json.RawMessage) TaskModuleResponse {
	return d.task
}
