package logger

import (
	"context"
	"strconv"
	"strings"
	"unicode"
)

type metaKey struct{}

// Meta is the correlation data carried by a request context and copied onto
// every record logged with it. Zero fields are omitted.
type Meta struct {
	RID      string
	UpdateID int
	UserID   int64
	ChatID   int64
	Handler  string
}

func (m Meta) merge(o Meta) Meta {
	if o.RID != "" {
		m.RID = o.RID
	}
	if o.UpdateID != 0 {
		m.UpdateID = o.UpdateID
	}
	if o.UserID != 0 {
		m.UserID = o.UserID
	}
	if o.ChatID != 0 {
		m.ChatID = o.ChatID
	}
	if o.Handler != "" {
		m.Handler = o.Handler
	}
	return m
}

// WithMeta returns ctx carrying the non-zero fields of m on top of any
// metadata already present.
func WithMeta(ctx context.Context, m Meta) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, metaKey{}, MetaFrom(ctx).merge(m))
}

// MetaFrom returns the metadata stored in ctx.
func MetaFrom(ctx context.Context) Meta {
	if ctx == nil {
		return Meta{}
	}
	m, _ := ctx.Value(metaKey{}).(Meta)
	return m
}

// WithRID attaches a request correlation id.
func WithRID(ctx context.Context, rid string) context.Context {
	return WithMeta(ctx, Meta{RID: rid})
}

// WithHandler names the handler serving the request.
func WithHandler(ctx context.Context, handler string) context.Context {
	return WithMeta(ctx, Meta{Handler: handler})
}

// UpdateRID builds a short correlation id for a chat update: the update, chat
// and user ids in base36 joined by dots.
func UpdateRID(updateID int, chatID, userID int64) string {
	return strconv.FormatInt(int64(updateID), 36) + "." +
		strconv.FormatInt(chatID, 36) + "." +
		strconv.FormatInt(userID, 36)
}

// SanitizeLimit drops control and format runes (tab and newline survive) and
// cuts the result to max runes.
func SanitizeLimit(s string, max int) string {
	if max <= 0 || s == "" {
		return ""
	}
	var b strings.Builder
	n := 0
	for _, r := range s {
		if r != '\n' && r != '\t' && (unicode.IsControl(r) || unicode.Is(unicode.Cf, r)) {
			continue
		}
		if n == max {
			break
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}
