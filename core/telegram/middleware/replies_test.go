package middleware

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type fakeContext struct {
	tele.Context
	upd   tele.Update
	store map[string]interface{}
	fail  error
}

func newFakeContext(upd tele.Update) *fakeContext {
	return &fakeContext{upd: upd, store: map[string]interface{}{}}
}

func (f *fakeContext) Update() tele.Update                    { return f.upd }
func (f *fakeContext) Get(k string) interface{}               { return f.store[k] }
func (f *fakeContext) Set(k string, v interface{})            { f.store[k] = v }
func (f *fakeContext) Send(interface{}, ...interface{}) error { return f.fail }
func (f *fakeContext) Edit(interface{}, ...interface{}) error { return f.fail }

type observation struct {
	kind    string
	replies int
	failed  bool
}

type recorder struct{ seen []observation }

func (r *recorder) ObserveUpdate(kind string, replies int, failed bool) {
	r.seen = append(r.seen, observation{kind, replies, failed})
}

func TestRepliesMiddlewareCountsSuccessfulSends(t *testing.T) {
	rec := &recorder{}
	c := newFakeContext(tele.Update{Message: &tele.Message{Text: "hi"}})

	err := RepliesMiddleware(rec)(func(c tele.Context) error {
		require.NoError(t, c.Send("one"))
		require.NoError(t, c.Edit("two", &tele.ReplyMarkup{}))
		n, kb := Replies(c)
		assert.Equal(t, 2, n)
		assert.True(t, kb)
		return nil
	})(c)

	require.NoError(t, err)
	assert.Equal(t, []observation{{"message", 2, false}}, rec.seen)
}

func TestRepliesMiddlewareSkipsFailedSends(t *testing.T) {
	rec := &recorder{}
	c := newFakeContext(tele.Update{Callback: &tele.Callback{}})
	c.fail = errors.New("blocked")

	err := RepliesMiddleware(rec)(func(c tele.Context) error {
		return c.Send("lost")
	})(c)

	require.Error(t, err)
	n, kb := Replies(c)
	assert.Zero(t, n)
	assert.False(t, kb)
	assert.Equal(t, []observation{{"callback", 0, true}}, rec.seen)
}

func TestRepliesMiddlewareNestedChainReportsOnce(t *testing.T) {
	rec := &recorder{}
	c := newFakeContext(tele.Update{Message: &tele.Message{}})
	mw := RepliesMiddleware(rec)

	err := mw(mw(func(c tele.Context) error { return c.Send("x") }))(c)

	require.NoError(t, err)
	assert.Len(t, rec.seen, 1)
	assert.Equal(t, 1, rec.seen[0].replies)
}

func TestRepliesWithoutMiddleware(t *testing.T) {
	n, kb := Replies(newFakeContext(tele.Update{}))
	assert.Zero(t, n)
	assert.False(t, kb)
}
