package middleware

import (
	"sync/atomic"

	tele "gopkg.in/telebot.v4"
)

const tallyKey = "reply_tally"

// Recorder receives one observation per handled update.
type Recorder interface {
	ObserveUpdate(kind string, replies int, failed bool)
}

type tally struct {
	replies  atomic.Int32
	keyboard atomic.Bool
}

// countingContext counts successful outgoing messages of one update.
type countingContext struct {
	tele.Context
	t *tally
}

func (c countingContext) count(err error, opts []interface{}) error {
	if err != nil {
		return err
	}
	c.t.replies.Add(1)
	if withKeyboard(opts) {
		c.t.keyboard.Store(true)
	}
	return nil
}

func withKeyboard(opts []interface{}) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.ReplyMarkup:
			return v != nil
		case *tele.SendOptions:
			return v != nil && v.ReplyMarkup != nil
		}
	}
	return false
}

func (c countingContext) Send(what interface{}, opts ...interface{}) error {
	return c.count(c.Context.Send(what, opts...), opts)
}

func (c countingContext) Reply(what interface{}, opts ...interface{}) error {
	return c.count(c.Context.Reply(what, opts...), opts)
}

func (c countingContext) Edit(what interface{}, opts ...interface{}) error {
	return c.count(c.Context.Edit(what, opts...), opts)
}

func (c countingContext) EditOrSend(what interface{}, opts ...interface{}) error {
	return c.count(c.Context.EditOrSend(what, opts...), opts)
}

func (c countingContext) EditOrReply(what interface{}, opts ...interface{}) error {
	return c.count(c.Context.EditOrReply(what, opts...), opts)
}

// RepliesMiddleware counts the messages a handler sends and reports them to
// rec, which may be nil.
func RepliesMiddleware(rec Recorder) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			t, ok := c.Get(tallyKey).(*tally)
			if ok {
				// Already counted by an outer chain.
				return next(c)
			}
			t = &tally{}
			c.Set(tallyKey, t)
			err := next(countingContext{Context: c, t: t})
			if rec != nil {
				rec.ObserveUpdate(updateKind(c.Update()), int(t.replies.Load()), err != nil)
			}
			return err
		}
	}
}

// Replies returns how many messages were sent for the update so far and
// whether any of them carried a keyboard.
func Replies(c tele.Context) (int, bool) {
	t, ok := c.Get(tallyKey).(*tally)
	if !ok {
		return 0, false
	}
	return int(t.replies.Load()), t.keyboard.Load()
}
