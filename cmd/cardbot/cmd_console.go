package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/uuid"

	"cardbot/pkg/activity"
	"cardbot/pkg/bot"
	"cardbot/pkg/config"
)

const (
	consoleUserID = "console-user"
	consoleBotID  = "cardbot"
)

// consoleSession turns console lines into activities for one local
// conversation and runs them through the dispatcher.
type consoleSession struct {
	dispatcher     *bot.Dispatcher
	conversationID string
}

func newConsoleSession(d *bot.Dispatcher) *consoleSession {
	return &consoleSession{dispatcher: d, conversationID: "console-" + uuid.NewString()}
}

// parse maps a console line to an inbound activity:
//
//	/join <name>        conversationUpdate adding <name>
//	/install <action>   installationUpdate
//	/task [json]        task/fetch invoke with optional data
//	anything else       message
func (s *consoleSession) parse(line string) (activity.Activity, error) {
	act := activity.Activity{
		ID:           uuid.NewString(),
		ChannelID:    "console",
		From:         &activity.Account{ID: consoleUserID, Name: "You"},
		Recipient:    &activity.Account{ID: consoleBotID, Name: "cardbot"},
		Conversation: &activity.Conversation{ID: s.conversationID},
	}

	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch cmd {
	case "/join":
		if rest == "" {
			return activity.Activity{}, fmt.Errorf("usage: /join <name>")
		}
		act.Type = activity.TypeConversationUpdate
		act.MembersAdded = []activity.Account{{ID: "member-" + rest, Name: rest}}
	case "/install":
		if rest == "" {
			return activity.Activity{}, fmt.Errorf("usage: /install <action>")
		}
		act.Type = activity.TypeInstallationUpdate
		act.Action = rest
	case "/task":
		act.Type = activity.TypeInvoke
		act.Name = activity.InvokeTaskFetch
		if rest != "" {
			if !json.Valid([]byte(rest)) {
				return activity.Activity{}, fmt.Errorf("task data is not valid JSON")
			}
			value, err := json.Marshal(map[string]json.RawMessage{"data": json.RawMessage(rest)})
			if err != nil {
				return activity.Activity{}, err
			}
			act.Value = value
		}
	default:
		act.Type = activity.TypeMessage
		act.Text = line
	}
	return act, nil
}

// handle runs one console line and returns the outbound activities in
// delivery order.
func (s *consoleSession) handle(ctx context.Context, line string) ([]activity.Activity, error) {
	act, err := s.parse(line)
	if err != nil {
		return nil, err
	}
	ev, err := activity.ToEvent(act)
	if err != nil {
		return nil, err
	}
	res, err := s.dispatcher.Dispatch(ctx, ev)
	if err != nil {
		return nil, err
	}

	out := activity.Replies(act, res.Actions)
	if res.TaskModule != nil {
		invoke, err := activity.InvokeResponse(act, *res.TaskModule)
		if err != nil {
			return nil, err
		}
		out = append(out, invoke)
	}
	return out, nil
}

func consoleCmd() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	dispatcher, err := buildDispatcher(cfg)
	if err != nil {
		fmt.Printf("Error initializing dispatcher: %v\n", err)
		os.Exit(1)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "you> ",
		HistoryFile:     filepath.Join(config.GetConfigDir(), "console_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("Error starting console: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Printf("%s cardbot console. Type a message, /join <name>, /install <action>, /task [json] or /exit.\n\n", logo)

	session := newConsoleSession(dispatcher)
	ctx := context.Background()
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			fmt.Printf("Error reading input: %v\n", err)
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "/exit" || line == "/quit" {
			return
		}

		out, err := session.handle(ctx, line)
		if err != nil {
			fmt.Printf("✗ %v\n", err)
			continue
		}
		printActivities(rl.Stdout(), out)
	}
}

func printActivities(w io.Writer, acts []activity.Activity) {
	for _, act := range acts {
		data, err := json.MarshalIndent(act, "", "  ")
		if err != nil {
			fmt.Fprintf(w, "✗ %v\n", err)
			continue
		}
		fmt.Fprintf(w, "bot> %s\n", data)
	}
}
