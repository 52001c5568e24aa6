package router

import (
	tg "github.com/m3rciful/callmylawyer/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// Conversation is the per-user dialogue the text routes defer to.
type Conversation interface {
	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}

// TextOptions holds the fallbacks for free text and documents and the
// admin gate for commands reached through an alias.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
	AdminID         int64
	OnAdminReject   tele.HandlerFunc
}

// TextRoutes routes plain messages. A user in the middle of a conversation
// gets their text passed to it first; otherwise command aliases are tried,
// then the fallbacks.
func TextRoutes(conv Conversation, reg *tg.Registry, opts TextOptions) []tg.Route {
	gate := CommandRouteOptions{AdminID: opts.AdminID, OnAdminReject: opts.OnAdminReject}
	inConversation := func(c tele.Context) bool {
		return conv != nil && c.Sender() != nil && conv.InProgress(c.Sender().ID)
	}

	onText := func(c tele.Context) error {
		if inConversation(c) {
			return serve(c, "fsm", conv.ManagerHandler)
		}
		if reg != nil {
			if name, cmd, ok := reg.LookupCommand(c.Text()); ok {
				return serve(c, handlerName(name), gate.gate(cmd))
			}
			if fb := reg.UnknownText(); fb != nil {
				return serve(c, "fallback", fb)
			}
		}
		return serve(c, "unknown_text", opts.UnknownText)
	}

	onDocument := func(c tele.Context) error {
		if inConversation(c) {
			return serve(c, "fsm_document", conv.ManagerHandler)
		}
		return serve(c, "unexpected_document", opts.UnknownDocument)
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: guarded(onText)},
		{Endpoint: tele.OnDocument, Handler: guarded(onDocument)},
	}
}
