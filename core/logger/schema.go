package logger

import (
	"log/slog"
	"strings"
	"unicode/utf8"
)

// levelName maps slog levels onto the four names the log schema allows.
// Levels between the standard ones round down.
func levelName(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "ERROR"
	case l >= slog.LevelWarn:
		return "WARN"
	case l >= slog.LevelInfo:
		return "INFO"
	}
	return "DEBUG"
}

// Outcomes recognised in records; any other value is dropped.
var outcomes = map[string]bool{
	"ok": true, "fail": true, "cancelled": true, "rate_limited": true,
	"replay": true, "not_found": true, "rejected": true,
	"paid": true, "pending": true, "free": true, "reused": true,
}

func canonical(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"handler",
	"operation",
	"cb_key",
	"outcome",
	"duration_ms",
	"messages",
	"kb",
	"state",
	"from_state",
	"service_id",
	"order_id",
	"payment_ref",
	"order_status",
	"amount",
	"count",
	"evicted",
	"page",
	"pages",
	"payload",
	"lang",
	"username",
	"mode",
	"listen",
	"public_url",
	"method",
	"path",
	"http_code",
	"db",
	"host",
	"port",
	"err",
	"err_code",
	"cause",
	"retryable",
	"attempts",
	"backoff_ms",
	"rate_limited",
}

// Keys whose values never reach the log: gateway secrets and signatures.
var secretKeys = map[string]struct{}{
	"token":     {},
	"password":  {},
	"password1": {},
	"password2": {},
	"secret":    {},
	"signature": {},
}

// Keys holding buyer contact data; values are masked, keeping enough to
// tell entries apart.
var personalKeys = map[string]struct{}{
	"phone":         {},
	"email":         {},
	"contact_name":  {},
	"contact_phone": {},
	"contact_email": {},
}

const redacted = "[redacted]"

func redact(key string, val any) any {
	leaf := key
	if i := strings.LastIndexByte(key, '.'); i >= 0 {
		leaf = key[i+1:]
	}
	if _, ok := secretKeys[leaf]; ok {
		return redacted
	}
	if _, ok := personalKeys[leaf]; ok {
		if s, isStr := val.(string); isStr {
			return maskPersonal(s)
		}
		return redacted
	}
	return val
}

// maskPersonal keeps the first rune and, for emails, the domain:
// "ivan@mail.ru" -> "i***@mail.ru", "+79001234567" -> "+***67".
func maskPersonal(s string) string {
	if s == "" {
		return s
	}
	first, size := utf8.DecodeRuneInString(s)
	if at := strings.LastIndexByte(s, '@'); at > 0 {
		return string(first) + "***" + s[at:]
	}
	if n := utf8.RuneCountInString(s); n > 4 && strings.ContainsAny(s[size:], "0123456789") {
		r := []rune(s)
		return string(first) + "***" + string(r[n-2:])
	}
	return string(first) + "***"
}
