package state

import tele "gopkg.in/telebot.v4"

const stateKey = "fsm_state"

// StateGetter is the minimal read view of a session table.
type StateGetter interface {
	GetState(userID int64) State
}

// WithState records the sender's current state in the handler context so
// router summary logs can report it.
func WithState(src StateGetter) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if user := c.Sender(); user != nil && src != nil {
				c.Set(stateKey, src.GetState(user.ID))
			}
			return next(c)
		}
	}
}

// FromContext returns the state stored by WithState.
func FromContext(c tele.Context) (State, bool) {
	if c == nil {
		return "", false
	}
	st, ok := c.Get(stateKey).(State)
	return st, ok
}
