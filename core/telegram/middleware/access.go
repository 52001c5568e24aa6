package middleware

import (
	"errors"
	"log/slog"

	"github.com/m3rciful/callmylawyer/core/logger"
	tghelpers "github.com/m3rciful/callmylawyer/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// ErrUnauthorized is logged when a non-admin reaches an admin handler.
var ErrUnauthorized = errors.New("telegram: admin only")

// IsAdmin compares ids exactly. adminID 0 matches nobody.
func IsAdmin(adminID, userID int64) bool {
	return adminID != 0 && userID == adminID
}

// AdminOnly lets updates from adminID through. Anyone else gets onReject,
// or silence when it is nil.
func AdminOnly(adminID int64, onReject tele.HandlerFunc) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			var from int64
			if u := c.Sender(); u != nil {
				from = u.ID
			}
			if IsAdmin(adminID, from) {
				return next(c)
			}
			logger.Warn(tghelpers.BuildContext(c), "tg", "admin.reject",
				slog.String("status", "skip"),
				slog.Bool("admin_set", adminID != 0),
				slog.String("err", ErrUnauthorized.Error()),
				slog.String("err_code", "UNAUTHORIZED"),
			)
			if onReject == nil {
				return nil
			}
			return onReject(c)
		}
	}
}
