package router

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/callmylawyer/core/telegram"
)

type fakeContext struct {
	tele.Context
	upd       tele.Update
	user      *tele.User
	store     map[string]interface{}
	responded bool
}

func textFrom(userID int64, text string) *fakeContext {
	u := &tele.User{ID: userID}
	return &fakeContext{
		upd:   tele.Update{ID: 1, Message: &tele.Message{Text: text, Sender: u}},
		user:  u,
		store: map[string]interface{}{},
	}
}

func pressFrom(userID int64, data string) *fakeContext {
	u := &tele.User{ID: userID}
	return &fakeContext{
		upd:   tele.Update{ID: 2, Callback: &tele.Callback{Data: data, Sender: u}},
		user:  u,
		store: map[string]interface{}{},
	}
}

func (f *fakeContext) Update() tele.Update         { return f.upd }
func (f *fakeContext) Sender() *tele.User          { return f.user }
func (f *fakeContext) Chat() *tele.Chat            { return &tele.Chat{ID: f.user.ID, Type: tele.ChatPrivate} }
func (f *fakeContext) Callback() *tele.Callback    { return f.upd.Callback }
func (f *fakeContext) Get(k string) interface{}    { return f.store[k] }
func (f *fakeContext) Set(k string, v interface{}) { f.store[k] = v }
func (f *fakeContext) Respond(...*tele.CallbackResponse) error {
	f.responded = true
	return nil
}
func (f *fakeContext) Text() string {
	if f.upd.Message != nil {
		return f.upd.Message.Text
	}
	return ""
}

type conversation struct {
	active map[int64]bool
	got    []string
}

func (c *conversation) InProgress(id int64) bool { return c.active[id] }
func (c *conversation) ManagerHandler(ctx tele.Context) error {
	c.got = append(c.got, ctx.Text())
	return nil
}

func recordTo(dst *[]string, name string) tele.HandlerFunc {
	return func(tele.Context) error {
		*dst = append(*dst, name)
		return nil
	}
}

func newRegistry(t *testing.T, calls *[]string) *tg.Registry {
	t.Helper()
	reg := tg.NewRegistry()
	require.NoError(t, reg.RegisterCommand("/services", tg.Command{
		Handler: recordTo(calls, "services"), Description: "Services", Aliases: []string{"Услуги"},
	}))
	require.NoError(t, reg.RegisterCommand("/orders", tg.Command{
		Handler: recordTo(calls, "orders"), Description: "Orders", AdminOnly: true,
	}))
	require.NoError(t, reg.RegisterCallback("confirm", recordTo(calls, "confirm")))
	return reg
}

func handlerFor(routes []tg.Route, endpoint any) tele.HandlerFunc {
	for _, r := range routes {
		if r.Endpoint == endpoint {
			return r.Handler
		}
	}
	return nil
}

func TestTextPrefersConversation(t *testing.T) {
	var calls []string
	conv := &conversation{active: map[int64]bool{7: true}}
	routes := TextRoutes(conv, newRegistry(t, &calls), TextOptions{})
	onText := handlerFor(routes, tele.OnText)
	require.NotNil(t, onText)

	require.NoError(t, onText(textFrom(7, "Услуги")))
	assert.Equal(t, []string{"Услуги"}, conv.got)
	assert.Empty(t, calls)

	require.NoError(t, onText(textFrom(8, "Услуги")))
	assert.Equal(t, []string{"services"}, calls, "alias runs the command outside a conversation")
}

func TestTextAliasRespectsAdminGate(t *testing.T) {
	var calls []string
	reg := newRegistry(t, &calls)
	require.NoError(t, reg.RegisterCommand("/secret", tg.Command{
		Handler: recordTo(&calls, "secret"), Description: "x", AdminOnly: true, Aliases: []string{"Секрет"},
	}))
	routes := TextRoutes(nil, reg, TextOptions{AdminID: 1, OnAdminReject: recordTo(&calls, "denied")})
	onText := handlerFor(routes, tele.OnText)

	require.NoError(t, onText(textFrom(2, "Секрет")))
	require.NoError(t, onText(textFrom(1, "Секрет")))
	assert.Equal(t, []string{"denied", "secret"}, calls)
}

func TestTextFallbackOrder(t *testing.T) {
	var calls []string
	reg := newRegistry(t, &calls)
	onText := handlerFor(TextRoutes(nil, reg, TextOptions{UnknownText: recordTo(&calls, "opts")}), tele.OnText)

	require.NoError(t, onText(textFrom(3, "hello")))
	assert.Equal(t, []string{"opts"}, calls)

	reg.SetUnknownText(recordTo(&calls, "registry"))
	require.NoError(t, onText(textFrom(3, "hello")))
	assert.Equal(t, []string{"opts", "registry"}, calls)
}

func TestTextWithoutFallbackIsSkipped(t *testing.T) {
	onText := handlerFor(TextRoutes(nil, tg.NewRegistry(), TextOptions{}), tele.OnText)
	assert.NoError(t, onText(textFrom(3, "hello")))
}

func TestCallbackDispatchAndNotFound(t *testing.T) {
	var calls []string
	reg := newRegistry(t, &calls)
	route := CallbackRoute(reg, CallbackOptions{NotFound: recordTo(&calls, "expired")})
	assert.Equal(t, tele.OnCallback, route.Endpoint)

	c := pressFrom(5, "\fconfirm")
	require.NoError(t, route.Handler(c))
	assert.True(t, c.responded, "press is acknowledged")

	require.NoError(t, route.Handler(pressFrom(5, "\fold_button|1")))
	assert.Equal(t, []string{"confirm", "expired"}, calls)

	reg.SetUnknownCallback(recordTo(&calls, "registry"))
	require.NoError(t, route.Handler(pressFrom(5, "\fold_button")))
	assert.Equal(t, "registry", calls[len(calls)-1])
}

func TestHandlerErrorsPropagate(t *testing.T) {
	reg := tg.NewRegistry()
	boom := errors.New("boom")
	require.NoError(t, reg.RegisterCallback("x", func(tele.Context) error { return boom }))
	route := CallbackRoute(reg, CallbackOptions{})
	assert.ErrorIs(t, route.Handler(pressFrom(1, "\fx")), boom)
}

func TestPanicsBecomeErrors(t *testing.T) {
	reg := tg.NewRegistry()
	require.NoError(t, reg.RegisterCallback("x", func(tele.Context) error { panic("bad") }))
	route := CallbackRoute(reg, CallbackOptions{})
	assert.Error(t, route.Handler(pressFrom(1, "\fx")))
}

func TestCommandRoutesGateAdminCommands(t *testing.T) {
	var calls []string
	routes := CommandRoutes(newRegistry(t, &calls), CommandRouteOptions{AdminID: 9, OnAdminReject: recordTo(&calls, "denied")})
	require.Len(t, routes, 2)

	orders := handlerFor(routes, "/orders")
	require.NoError(t, orders(textFrom(1, "/orders")))
	require.NoError(t, orders(textFrom(9, "/orders")))
	require.NoError(t, handlerFor(routes, "/services")(textFrom(1, "/services")))
	assert.Equal(t, []string{"denied", "orders", "services"}, calls)
}

func TestHandlerName(t *testing.T) {
	assert.Equal(t, "orders", handlerName("/orders"))
	assert.Equal(t, "check_payment", handlerName(" Check Payment "))
	assert.Equal(t, "unknown", handlerName(""))
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "unknown", errorCode(errors.New("x")))
	assert.Equal(t, "LEDGER_WRITE", errorCode(codedErr{}))
}

type codedErr struct{}

func (codedErr) Error() string { return "write failed" }
func (codedErr) Code() string  { return "LEDGER_WRITE" }
