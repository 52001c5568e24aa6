package helpers

import (
	"context"

	"github.com/m3rciful/callmylawyer/core/logger"

	tele "gopkg.in/telebot.v4"
)

const contextKey = "log_ctx"

// StoreContext keeps ctx on the update so later helpers reuse its metadata.
func StoreContext(c tele.Context, ctx context.Context) {
	if c == nil || ctx == nil {
		return
	}
	c.Set(contextKey, ctx)
}

// ContextFrom returns the context stored by StoreContext.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	ctx, ok := c.Get(contextKey).(context.Context)
	return ctx, ok && ctx != nil
}

// BuildContext returns the update's logging context, creating it on first
// use with the rid and the update, user and chat ids.
func BuildContext(c tele.Context) context.Context {
	if ctx, ok := ContextFrom(c); ok {
		return ctx
	}
	updateID, userID, chatID := UpdateIDs(c)
	rid, _ := c.Get("rid").(string)
	if rid == "" {
		rid = logger.UpdateRID(updateID, chatID, userID)
	}
	ctx := logger.WithMeta(context.Background(), logger.Meta{
		RID:      rid,
		UpdateID: updateID,
		UserID:   userID,
		ChatID:   chatID,
	})
	StoreContext(c, ctx)
	return ctx
}

// UpdateIDs extracts the identifiers used for log correlation. Missing
// sender or chat yields zero.
func UpdateIDs(c tele.Context) (updateID int, userID, chatID int64) {
	updateID = c.Update().ID
	if u := c.Sender(); u != nil {
		userID = u.ID
	}
	if ch := c.Chat(); ch != nil {
		chatID = ch.ID
	}
	return updateID, userID, chatID
}

// WithHandler tags the stored context with the handler name.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler == "" {
		return ctx
	}
	ctx = logger.WithHandler(ctx, handler)
	StoreContext(c, ctx)
	return ctx
}
