package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInlineButtonsOnePerRow(t *testing.T) {
	m := InlineButtons([]InlineBtn{
		{Text: "Pay", URL: "https://pay.example/1"},
		{Text: "Done", Unique: "check", Data: "42"},
	})
	require.Len(t, m.InlineKeyboard, 2)

	link := m.InlineKeyboard[0][0]
	assert.Equal(t, "https://pay.example/1", link.URL)
	assert.Empty(t, link.Unique)

	data := m.InlineKeyboard[1][0]
	assert.Equal(t, "check", data.Unique)
	assert.Equal(t, "42", data.Data)
	assert.Empty(t, data.URL)
}

func TestInlineButtonsRows(t *testing.T) {
	m := InlineButtonsRows(
		[]InlineBtn{{Text: "<", Unique: "page", Data: "1"}, {Text: ">", Unique: "page", Data: "3"}},
	)
	require.Len(t, m.InlineKeyboard, 1)
	assert.Len(t, m.InlineKeyboard[0], 2)
}

func TestReplyButtons(t *testing.T) {
	m := ReplyButtons([]string{"Услуги"})
	assert.True(t, m.ResizeKeyboard)
	require.Len(t, m.ReplyKeyboard, 1)
	assert.Equal(t, "Услуги", m.ReplyKeyboard[0][0].Text)
	assert.True(t, RemoveKeyboard().RemoveKeyboard)
}
