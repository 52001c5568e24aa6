package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func TestRecoverMiddlewareReturnsPanicError(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })

	err := h(userContext{newFakeContext(tele.Update{ID: 9}), 1})

	var perr *PanicError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "boom", perr.Value)
	assert.NotEmpty(t, perr.Stack)
	assert.Equal(t, "handler panic: boom", err.Error())
}

func TestRecoverMiddlewarePassesErrors(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { return assert.AnError })
	assert.ErrorIs(t, h(userContext{newFakeContext(tele.Update{ID: 10}), 1}), assert.AnError)
}
