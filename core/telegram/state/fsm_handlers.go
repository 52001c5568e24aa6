package state

import (
	"log/slog"
	"sync"

	"github.com/m3rciful/callmylawyer/core/logger"
	tghelpers "github.com/m3rciful/callmylawyer/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

type handlerSet struct {
	mu sync.RWMutex
	m  map[State]tele.HandlerFunc
}

// Handle associates a state with its text handler.
func (t *Table[D]) Handle(st State, h tele.HandlerFunc) {
	if h == nil {
		return
	}
	t.handlers.mu.Lock()
	defer t.handlers.mu.Unlock()
	if t.handlers.m == nil {
		t.handlers.m = make(map[State]tele.HandlerFunc)
	}
	t.handlers.m[st] = h
}

// ManagerHandler executes the handler registered for the user's current state, if any.
func (t *Table[D]) ManagerHandler(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	current := t.GetState(sender.ID)
	ctx := tghelpers.BuildContext(c)
	logger.Debug(ctx, "tg", "fsm.manager",
		slog.String("status", "ok"),
		slog.Int64("user_id", sender.ID),
		slog.String("state", string(current)),
	)

	t.handlers.mu.RLock()
	handler, ok := t.handlers.m[current]
	t.handlers.mu.RUnlock()
	if ok {
		return handler(c)
	}
	return nil
}
