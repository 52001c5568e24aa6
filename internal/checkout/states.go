// Package checkout is the per-user conversation state machine that collects
// consent and contact data and turns a confirmed draft into an order.
package checkout

import "github.com/m3rciful/callmylawyer/core/telegram/state"

// Conversation states.
const (
	StateIdle            state.State = state.StateIdle
	StateAwaitingConsent state.State = "awaiting_consent"
	StateAwaitingName    state.State = "awaiting_name"
	StateAwaitingPhone   state.State = "awaiting_phone"
	StateAwaitingEmail   state.State = "awaiting_email"
	StateReadyForPayment state.State = "ready_for_payment"
)

// Draft is the in-progress order data of one user.
type Draft struct {
	ConsentGiven bool   `validate:"eq=true"`
	Name         string `validate:"required"`
	Phone        string `validate:"required"`
	Email        string `validate:"required,containsrune=@,contains=."`
	ServiceID    string `validate:"required"`
}

// Sessions is the ownership table the machine runs on.
type Sessions = state.Table[Draft]

// NewSessions returns an empty session table.
func NewSessions() *Sessions { return state.NewTable[Draft]() }
