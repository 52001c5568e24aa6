package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/m3rciful/callmylawyer/core/logger"

	tele "gopkg.in/telebot.v4"
)

// Command is a slash command and the ways users can reach it.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	// Hidden commands work but are left out of the Telegram menu.
	Hidden bool
	// Aliases are texts, such as reply keyboard captions, that run the
	// command when sent as a plain message.
	Aliases []string
}

// Registry maps commands, aliases and callback keys to handlers. It is
// filled during wiring and read concurrently afterwards.
type Registry struct {
	mu        sync.RWMutex
	commands  map[string]Command
	aliases   map[string]string
	callbacks map[string]tele.HandlerFunc

	unknownCallback tele.HandlerFunc
	unknownText     tele.HandlerFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]Command),
		aliases:   make(map[string]string),
		callbacks: make(map[string]tele.HandlerFunc),
	}
}

// RegisterCommand adds cmd under name, which must start with a slash.
func (r *Registry) RegisterCommand(name string, cmd Command) error {
	switch {
	case !strings.HasPrefix(name, "/") || len(name) < 2:
		return fmt.Errorf("telegram: command %q must start with /", name)
	case cmd.Handler == nil || cmd.Description == "":
		return fmt.Errorf("telegram: command %s needs a handler and a description", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.commands[name]; dup {
		return fmt.Errorf("telegram: command %s registered twice", name)
	}
	for _, a := range cmd.Aliases {
		if owner, dup := r.aliases[a]; dup {
			return fmt.Errorf("telegram: alias %q of %s already used by %s", a, name, owner)
		}
	}
	r.commands[name] = cmd
	for _, a := range cmd.Aliases {
		r.aliases[a] = name
	}
	return nil
}

// LookupCommand resolves a slash command or an alias to the canonical name.
func (r *Registry) LookupCommand(text string) (string, Command, bool) {
	text = strings.TrimSpace(text)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name, ok := r.aliases[text]; ok {
		return name, r.commands[name], true
	}
	cmd, ok := r.commands[text]
	if !ok {
		return "", Command{}, false
	}
	return text, cmd, true
}

// Commands returns a copy of the registered commands keyed by name.
func (r *Registry) Commands() map[string]Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Command, len(r.commands))
	for k, v := range r.commands {
		out[k] = v
	}
	return out
}

// ListCommands returns the commands sorted by name. With menuOnly, hidden
// and admin commands are skipped.
func (r *Registry) ListCommands(menuOnly bool) []tele.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]tele.Command, 0, len(r.commands))
	for name, cmd := range r.commands {
		if menuOnly && (cmd.Hidden || cmd.AdminOnly) {
			continue
		}
		list = append(list, tele.Command{Text: name, Description: cmd.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// RegisterCallback binds an inline button key to h.
func (r *Registry) RegisterCallback(key string, h tele.HandlerFunc) error {
	if key == "" || h == nil {
		return fmt.Errorf("telegram: callback %q needs a key and a handler", key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.callbacks[key]; dup {
		return fmt.Errorf("telegram: callback %s registered twice", key)
	}
	r.callbacks[key] = h
	return nil
}

// GetCallback returns the handler bound to key.
func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// ListCallbacks returns the registered keys in order.
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.callbacks))
	for k := range r.callbacks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetUnknownCallback sets the handler for button keys nobody registered.
func (r *Registry) SetUnknownCallback(h tele.HandlerFunc) {
	r.mu.Lock()
	r.unknownCallback = h
	r.mu.Unlock()
}

// UnknownCallback returns the handler set by SetUnknownCallback, or nil.
func (r *Registry) UnknownCallback() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.unknownCallback
}

// SetUnknownText sets the handler for text that matched no command.
func (r *Registry) SetUnknownText(h tele.HandlerFunc) {
	r.mu.Lock()
	r.unknownText = h
	r.mu.Unlock()
}

// UnknownText returns the handler set by SetUnknownText, or nil.
func (r *Registry) UnknownText() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.unknownText
}

// CommandMenu is the part of the bot API used to publish the menu.
type CommandMenu interface {
	SetCommands(opts ...interface{}) error
}

// PublishCommands sends the menu commands to Telegram. Failures are logged;
// the bot keeps working without a menu.
func (r *Registry) PublishCommands(ctx context.Context, bot CommandMenu) {
	list := r.ListCommands(true)
	if err := bot.SetCommands(list); err != nil {
		logger.Warn(ctx, "tg", "commands.publish",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return
	}
	logger.Info(ctx, "tg", "commands.publish",
		slog.String("status", "ok"),
		slog.Int("count", len(list)),
	)
}
