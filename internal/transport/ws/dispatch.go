package ws

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/engine"
)

var ErrUnknownCommand = errors.New("unknown command")

// UsageError reports a command called with the wrong arguments.
type UsageError struct {
	Command string
	Usage   string
}

func (e *UsageError) Error() string { return fmt.Sprintf("usage: %s %s", e.Command, e.Usage) }

type handler func(e *engine.Engine, actor uuid.UUID, args []string) (engine.Result, error)

type command struct {
	usage    string
	min, max int
	run      handler
}

// Dispatcher maps command frames onto engine operations. Argument parsing
// lives here so the engine only sees typed values.
type Dispatcher struct {
	e    *engine.Engine
	cmds map[string]command
}

func oneName(fn func(uuid.UUID, string) (engine.Result, error)) handler {
	return func(_ *engine.Engine, actor uuid.UUID, args []string) (engine.Result, error) {
		return fn(actor, args[0])
	}
}

func noArgs(fn func(uuid.UUID) (engine.Result, error)) handler {
	return func(_ *engine.Engine, actor uuid.UUID, _ []string) (engine.Result, error) {
		return fn(actor)
	}
}

func amount(fn func(uuid.UUID, int) (engine.Result, error), name string) handler {
	return func(_ *engine.Engine, actor uuid.UUID, args []string) (engine.Result, error) {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return engine.Result{}, &UsageError{Command: name, Usage: "<amount>"}
		}
		return fn(actor, n)
	}
}

func NewDispatcher(e *engine.Engine) *Dispatcher {
	d := &Dispatcher{e: e}
	d.cmds = map[string]command{
		"create":   {usage: "<name>", min: 1, max: 1, run: oneName(e.Create)},
		"invite":   {usage: "<player>", min: 1, max: 1, run: oneName(e.Invite)},
		"join":     {usage: "<clan>", min: 1, max: 1, run: oneName(e.Join)},
		"leave":    {run: noArgs(e.Leave)},
		"kick":     {usage: "<player>", min: 1, max: 1, run: oneName(e.Kick)},
		"promote":  {usage: "<player>", min: 1, max: 1, run: oneName(e.Promote)},
		"demote":   {usage: "<player>", min: 1, max: 1, run: oneName(e.Demote)},
		"transfer": {usage: "<player>", min: 1, max: 1, run: oneName(e.Transfer)},
		"disband":  {run: noArgs(e.Disband)},
		"ally":     {usage: "<clan>", min: 1, max: 1, run: oneName(e.Ally)},
		"enemy":    {usage: "<clan>", min: 1, max: 1, run: oneName(e.Enemy)},
		"neutral":  {usage: "<clan>", min: 1, max: 1, run: oneName(e.Neutral)},
		"war":      {usage: "<clan>", min: 1, max: 1, run: oneName(e.War)},
		"deposit":  {usage: "<amount>", min: 1, max: 1, run: amount(e.Deposit, "deposit")},
		"withdraw": {usage: "<amount>", min: 1, max: 1, run: amount(e.Withdraw, "withdraw")},
		"chat": {usage: "<message>", min: 1, max: -1, run: func(e *engine.Engine, actor uuid.UUID, args []string) (engine.Result, error) {
			return e.Chat(actor, strings.Join(args, " "))
		}},
		"togglechat": {run: noArgs(e.ToggleChat)},
		"say":        {usage: "<message>", min: 1, max: -1, run: say},
		"info": {usage: "[clan]", max: 1, run: func(e *engine.Engine, actor uuid.UUID, args []string) (engine.Result, error) {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return e.InfoFor(actor, name)
		}},
		"list": {run: func(e *engine.Engine, _ uuid.UUID, _ []string) (engine.Result, error) {
			return e.ListFor(), nil
		}},
		"top": {usage: "[n]", max: 1, run: func(e *engine.Engine, _ uuid.UUID, args []string) (engine.Result, error) {
			n := 10
			if len(args) == 1 {
				v, err := strconv.Atoi(args[0])
				if err != nil || v <= 0 {
					return engine.Result{}, &UsageError{Command: "top", Usage: "[n]"}
				}
				n = v
			}
			return e.TopFor(n), nil
		}},
	}
	return d
}

// say routes ordinary chat: to the clan when the sender has clan chat mode
// on, otherwise back to the game server for public delivery.
func say(e *engine.Engine, actor uuid.UUID, args []string) (engine.Result, error) {
	text := strings.Join(args, " ")
	if e.Presence().ClanChat(actor) {
		return e.Chat(actor, text)
	}
	return engine.Result{Key: "chat.public", Args: map[string]any{"text": text}}, nil
}

// Commands lists the accepted command names.
func (d *Dispatcher) Commands() []string {
	out := make([]string, 0, len(d.cmds))
	for name := range d.cmds {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (d *Dispatcher) Dispatch(actor uuid.UUID, name string, args []string) (engine.Result, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	c, ok := d.cmds[name]
	if !ok {
		return engine.Result{}, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	if len(args) < c.min || (c.max >= 0 && len(args) > c.max) {
		return engine.Result{}, &UsageError{Command: name, Usage: c.usage}
	}
	return c.run(d.e, actor, args)
}
