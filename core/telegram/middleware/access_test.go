package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func TestIsAdmin(t *testing.T) {
	assert.True(t, IsAdmin(854129215, 854129215))
	assert.False(t, IsAdmin(854129215, 85412921), "prefix must not match")
	assert.False(t, IsAdmin(854129215, 8541292150))
	assert.False(t, IsAdmin(0, 0), "unset admin denies everyone")
	assert.False(t, IsAdmin(0, 42))
}

type userContext struct {
	*fakeContext
	id int64
}

func (u userContext) Sender() *tele.User { return &tele.User{ID: u.id} }
func (u userContext) Chat() *tele.Chat   { return &tele.Chat{ID: u.id} }

func TestAdminOnlyGates(t *testing.T) {
	var reached, rejected int
	h := AdminOnly(7, func(tele.Context) error {
		rejected++
		return nil
	})(func(tele.Context) error {
		reached++
		return nil
	})

	require.NoError(t, h(userContext{newFakeContext(tele.Update{ID: 1}), 7}))
	require.NoError(t, h(userContext{newFakeContext(tele.Update{ID: 2}), 8}))
	assert.Equal(t, 1, reached)
	assert.Equal(t, 1, rejected)
}

func TestAdminOnlyUnsetAdminIsSilent(t *testing.T) {
	h := AdminOnly(0, nil)(func(tele.Context) error {
		t.Fatal("must not reach handler")
		return nil
	})
	assert.NoError(t, h(userContext{newFakeContext(tele.Update{ID: 3}), 0}))
}
