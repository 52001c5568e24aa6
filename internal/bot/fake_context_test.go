package bot

import (
	"sync"

	tele "gopkg.in/telebot.v4"
)

type outMsg struct {
	what interface{}
	opts *tele.SendOptions
	edit bool
}

func (m outMsg) text() string {
	switch v := m.what.(type) {
	case string:
		return v
	case *tele.Photo:
		return v.Caption
	}
	return ""
}

func (m outMsg) inline() [][]tele.InlineButton {
	if m.opts == nil || m.opts.ReplyMarkup == nil {
		return nil
	}
	return m.opts.ReplyMarkup.InlineKeyboard
}

// fakeContext implements the parts of tele.Context the handlers touch;
// anything else panics through the nil embedded interface.
type fakeContext struct {
	tele.Context

	user *tele.User
	msg  string
	cb   *tele.Callback

	mu        sync.Mutex
	store     map[string]interface{}
	out       []outMsg
	responses []*tele.CallbackResponse
}

func newFakeContext(userID int64) *fakeContext {
	return &fakeContext{
		user:  &tele.User{ID: userID, FirstName: "Test"},
		store: map[string]interface{}{},
	}
}

func (f *fakeContext) withText(text string) *fakeContext {
	f.msg, f.cb = text, nil
	return f
}

func (f *fakeContext) withCallback(unique, payload string) *fakeContext {
	data := "\f" + unique
	if payload != "" {
		data += "|" + payload
	}
	f.cb, f.msg = &tele.Callback{ID: "cb", Data: data}, ""
	return f
}

func (f *fakeContext) Sender() *tele.User       { return f.user }
func (f *fakeContext) Chat() *tele.Chat         { return &tele.Chat{ID: f.user.ID, Type: tele.ChatPrivate} }
func (f *fakeContext) Update() tele.Update      { return tele.Update{ID: 1} }
func (f *fakeContext) Text() string             { return f.msg }
func (f *fakeContext) Callback() *tele.Callback { return f.cb }

func (f *fakeContext) Get(key string) interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.store[key]
}

func (f *fakeContext) Set(key string, v interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store[key] = v
}

func (f *fakeContext) record(what interface{}, edit bool, opts []interface{}) {
	m := outMsg{what: what, edit: edit}
	for _, o := range opts {
		if so, ok := o.(*tele.SendOptions); ok {
			m.opts = so
		}
	}
	f.mu.Lock()
	f.out = append(f.out, m)
	f.mu.Unlock()
}

func (f *fakeContext) Send(what interface{}, opts ...interface{}) error {
	f.record(what, false, opts)
	return nil
}

func (f *fakeContext) Edit(what interface{}, opts ...interface{}) error {
	f.record(what, true, opts)
	return nil
}

func (f *fakeContext) EditOrSend(what interface{}, opts ...interface{}) error {
	f.record(what, f.cb != nil, opts)
	return nil
}

func (f *fakeContext) Respond(resp ...*tele.CallbackResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp...)
	return nil
}

func (f *fakeContext) last() outMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.out) == 0 {
		return outMsg{}
	}
	return f.out[len(f.out)-1]
}

func (f *fakeContext) sent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.out)
}
