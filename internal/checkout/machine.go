package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/m3rciful/callmylawyer/core/logger"
	"github.com/m3rciful/callmylawyer/core/telegram/state"
	"github.com/m3rciful/callmylawyer/internal/catalog"
	"github.com/m3rciful/callmylawyer/internal/orders"
)

// emailRule is a deliberately weak syntactic check: an "@" and a "." anywhere.
const emailRule = "required,containsrune=@,contains=."

// Deps wires a Machine. Sessions, Notifier and Metrics are optional.
type Deps struct {
	Sessions *Sessions
	Catalog  *catalog.Catalog
	Store    OrderStore
	Links    LinkBuilder
	Notifier Notifier
	Metrics  Metrics
}

// Machine drives every user's conversation. Events for one user are
// serialized by the session table; different users proceed in parallel.
type Machine struct {
	sessions *Sessions
	catalog  *catalog.Catalog
	store    OrderStore
	links    LinkBuilder
	notifier Notifier
	metrics  Metrics
	validate *validator.Validate
}

// Step is the result of accepted text input.
type Step struct {
	State state.State
	Draft Draft
}

// Outcome describes a confirmed draft.
type Outcome struct {
	Order   orders.Order
	Service catalog.Service
	// PaymentURL is empty for free services.
	PaymentURL string
	// Reused is set when an earlier unpaid free order was handed out again.
	Reused bool
	// Delivered is set when the asset was handed to the notifier successfully.
	Delivered bool
}

// New builds a Machine.
func New(d Deps) (*Machine, error) {
	switch {
	case d.Catalog == nil:
		return nil, errors.New("checkout: nil catalog")
	case d.Store == nil:
		return nil, errors.New("checkout: nil order store")
	case d.Links == nil:
		return nil, errors.New("checkout: nil link builder")
	}
	sessions := d.Sessions
	if sessions == nil {
		sessions = NewSessions()
	}
	return &Machine{
		sessions: sessions,
		catalog:  d.Catalog,
		store:    d.Store,
		links:    d.Links,
		notifier: d.Notifier,
		metrics:  d.Metrics,
		validate: validator.New(),
	}, nil
}

// Sessions exposes the session table for routing text to state handlers.
func (m *Machine) Sessions() *Sessions { return m.sessions }

// SelectService starts a fresh draft for serviceID from any state.
func (m *Machine) SelectService(ctx context.Context, userID int64, serviceID string) (catalog.Service, error) {
	svc, err := m.catalog.Lookup(serviceID)
	if err != nil {
		return catalog.Service{}, err
	}
	_ = m.sessions.Do(userID, func(s *state.Session[Draft]) error {
		from := s.State
		s.Data = Draft{ServiceID: svc.ID}
		s.State = StateAwaitingConsent
		m.logTransition(ctx, userID, from, s.State, slog.String("service_id", svc.ID))
		return nil
	})
	return svc, nil
}

// Consent records the user's answer to the terms prompt. Declining discards
// the draft.
func (m *Machine) Consent(ctx context.Context, userID int64, accept bool) (state.State, error) {
	var next state.State
	err := m.sessions.Do(userID, func(s *state.Session[Draft]) error {
		if s.State != StateAwaitingConsent {
			next = s.State
			return ErrUnexpectedAction
		}
		from := s.State
		if accept {
			s.Data.ConsentGiven = true
			s.State = StateAwaitingName
		} else {
			s.Reset()
		}
		next = s.State
		m.logTransition(ctx, userID, from, next)
		return nil
	})
	return next, err
}

// Input feeds free text to the data-collection states.
func (m *Machine) Input(ctx context.Context, userID int64, text string) (Step, error) {
	text = strings.TrimSpace(text)
	var step Step
	err := m.sessions.Do(userID, func(s *state.Session[Draft]) error {
		from := s.State
		switch s.State {
		case StateAwaitingName:
			if text == "" {
				return &ValidationError{Field: "name"}
			}
			s.Data.Name = text
			s.State = StateAwaitingPhone
		case StateAwaitingPhone:
			if text == "" {
				return &ValidationError{Field: "phone"}
			}
			s.Data.Phone = text
			s.State = StateAwaitingEmail
		case StateAwaitingEmail:
			if err := m.validate.Var(text, emailRule); err != nil {
				return &ValidationError{Field: "email"}
			}
			s.Data.Email = text
			s.State = StateReadyForPayment
		default:
			return ErrUnexpectedAction
		}
		step = Step{State: s.State, Draft: s.Data}
		m.logTransition(ctx, userID, from, s.State)
		return nil
	})
	if err != nil {
		snap := m.sessions.Snapshot(userID)
		step = Step{State: snap.State, Draft: snap.Data}
	}
	return step, err
}

// Confirm promotes a complete draft into exactly one order. Free services are
// delivered before Confirm returns; paid services get a signed payment URL
// only after the pending order is persisted. On persistence failure the user
// stays in StateReadyForPayment and may retry.
func (m *Machine) Confirm(ctx context.Context, userID int64) (Outcome, error) {
	var out Outcome
	err := m.sessions.Do(userID, func(s *state.Session[Draft]) error {
		if s.State != StateReadyForPayment {
			return ErrUnexpectedAction
		}
		if err := m.validate.Struct(s.Data); err != nil {
			s.State = StateAwaitingName
			m.logTransition(ctx, userID, StateReadyForPayment, s.State, slog.String("err", err.Error()))
			return fmt.Errorf("%w: %v", ErrIncompleteDraft, err)
		}
		svc, err := m.catalog.Lookup(s.Data.ServiceID)
		if err != nil {
			s.Reset()
			return err
		}
		out.Service = svc

		if svc.Free() {
			err = m.placeFree(ctx, userID, s.Data, svc, &out)
		} else {
			err = m.placePaid(ctx, userID, s.Data, svc, &out)
		}
		if err != nil {
			return err
		}
		s.Reset()
		m.logTransition(ctx, userID, StateReadyForPayment, s.State,
			slog.String("payment_ref", out.Order.PaymentRef),
			slog.String("order_status", string(out.Order.Status)),
		)
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}

	m.afterConfirm(ctx, &out)
	return out, nil
}

// Reset discards the user's draft. It is the only cancellation path.
func (m *Machine) Reset(ctx context.Context, userID int64) {
	_ = m.sessions.Do(userID, func(s *state.Session[Draft]) error {
		if s.State != StateIdle {
			m.logTransition(ctx, userID, s.State, StateIdle, slog.String("reason", "reset"))
		}
		s.Reset()
		return nil
	})
}

// State returns the user's current state.
func (m *Machine) State(userID int64) state.State {
	return m.sessions.GetState(userID)
}

// Draft returns a copy of the user's draft.
func (m *Machine) Draft(userID int64) Draft {
	return m.sessions.Snapshot(userID).Data
}

func (m *Machine) placeFree(ctx context.Context, userID int64, d Draft, svc catalog.Service, out *Outcome) error {
	if latest, ok := m.store.FindLatestByUser(userID); ok && latest.ServiceID == svc.ID && latest.Status != orders.StatusPaid {
		out.Order = latest
		out.Reused = true
		return nil
	}
	stored, err := m.store.Append(ctx, newOrder(userID, d, svc, orders.StatusFree))
	if err != nil {
		return err
	}
	out.Order = stored
	return nil
}

func (m *Machine) placePaid(ctx context.Context, userID int64, d Draft, svc catalog.Service, out *Outcome) error {
	stored, err := m.store.Append(ctx, newOrder(userID, d, svc, orders.StatusPending))
	if err != nil {
		return err
	}
	link, err := m.links.PaymentURL(stored)
	if err != nil {
		return fmt.Errorf("checkout: payment url for %s: %w", stored.PaymentRef, err)
	}
	out.Order = stored
	out.PaymentURL = link
	return nil
}

func (m *Machine) afterConfirm(ctx context.Context, out *Outcome) {
	if m.metrics != nil {
		status := string(out.Order.Status)
		if out.Reused {
			status = "reused"
		}
		m.metrics.OrderPlaced(status)
	}
	if m.notifier == nil {
		return
	}
	if out.Service.Free() {
		if err := m.notifier.Deliver(ctx, out.Order); err != nil {
			logger.Error(ctx, "checkout", "delivery",
				slog.String("status", "fail"),
				slog.String("payment_ref", out.Order.PaymentRef),
				slog.String("err", err.Error()),
			)
		} else {
			out.Delivered = true
		}
	}
	if out.Reused {
		return
	}
	if err := m.notifier.OrderPlaced(ctx, out.Order, out.PaymentURL); err != nil {
		logger.Warn(ctx, "checkout", "admin.notify",
			slog.String("status", "fail"),
			slog.String("payment_ref", out.Order.PaymentRef),
			slog.String("err", err.Error()),
		)
	}
}

func (m *Machine) logTransition(ctx context.Context, userID int64, from, to state.State, attrs ...slog.Attr) {
	base := []slog.Attr{
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.String("from_state", string(from)),
		slog.String("state", string(to)),
	}
	logger.Debug(ctx, "checkout", "transition", append(base, attrs...)...)
}

func newOrder(userID int64, d Draft, svc catalog.Service, status orders.Status) orders.Order {
	return orders.Order{
		UserID:      userID,
		Contact:     orders.Contact{Name: d.Name, Phone: d.Phone, Email: d.Email},
		ServiceID:   svc.ID,
		ServiceName: svc.Name,
		PriceMinor:  svc.PriceMinor,
		AssetRef:    svc.AssetURL,
		Status:      status,
	}
}
