package callbacks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

func TestParseCallbackData(t *testing.T) {
	cases := []struct {
		name         string
		cb           *tele.Callback
		unique, data string
	}{
		{"nil", nil, "", ""},
		{"raw with payload", &tele.Callback{Data: "\fservice|3"}, "service", "3"},
		{"raw without payload", &tele.Callback{Data: "\fconfirm"}, "confirm", ""},
		{"payload with separator", &tele.Callback{Data: "\fcheck_payment|17|x"}, "check_payment", "17|x"},
		{"already split", &tele.Callback{Unique: "orders_page", Data: "2"}, "orders_page", "2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u, d := ParseCallbackData(tc.cb)
			assert.Equal(t, tc.unique, u)
			assert.Equal(t, tc.data, d)
		})
	}
}
