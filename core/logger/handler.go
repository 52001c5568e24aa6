package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"
)

type handlerConfig struct {
	level    slog.Leveler
	writer   *asyncWriter
	format   logFormat
	keyOrder []string
}

type field struct {
	key string
	val any
}

// structuredHandler renders one flat line per record: fixed keys first in
// keyOrder, the rest sorted. Groups become dotted key prefixes.
type structuredHandler struct {
	cfg    handlerConfig
	preset []field
	prefix string
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	if cfg.keyOrder == nil {
		cfg.keyOrder = append([]string(nil), defaultKeyOrder...)
	}
	return &structuredHandler{cfg: cfg}
}

func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return fmt.Errorf("logger: writer not initialized")
	}
	e := make(entry, 16)
	ts := r.Time.UTC()
	e["ts"] = ts.Truncate(time.Millisecond).Format(timeFormatMillis)
	e["level"] = levelName(r.Level)
	if h.cfg.format == formatJSON {
		e["ts_unix_nano"] = ts.UnixNano()
	}
	for _, f := range h.preset {
		e[f.key] = f.val
	}
	r.Attrs(func(a slog.Attr) bool {
		e.add(h.prefix, a)
		return true
	})
	e.addMeta(MetaFrom(ctx))
	e.finish(r.Message)

	var line []byte
	if h.cfg.format == formatJSON {
		var err error
		if line, err = e.json(h.cfg.keyOrder); err != nil {
			return err
		}
	} else {
		line = e.kv(h.cfg.keyOrder)
	}
	return h.cfg.writer.Write(append(line, '\n'))
}

// WithAttrs resolves attrs under the current group prefix right away.
func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	e := make(entry, len(attrs))
	for _, a := range attrs {
		e.add(h.prefix, a)
	}
	clone := *h
	clone.preset = append([]field(nil), h.preset...)
	for k, v := range e {
		clone.preset = append(clone.preset, field{key: k, val: v})
	}
	return &clone
}

func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = joinKey(h.prefix, name)
	return &clone
}

// entry is one record being assembled.
type entry map[string]any

func (e entry) add(prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	key := joinKey(prefix, a.Key)
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			e.add(key, child)
		}
		return
	}
	if key == "" {
		return
	}
	if k, val, ok := normalizeValue(key, v); ok {
		e[k] = redact(k, val)
	}
}

// addMeta fills correlation fields the record did not set itself.
func (e entry) addMeta(m Meta) {
	setDefault := func(k string, v any, zero bool) {
		if _, ok := e[k]; !ok && !zero {
			e[k] = v
		}
	}
	setDefault("rid", m.RID, m.RID == "")
	setDefault("update_id", m.UpdateID, m.UpdateID == 0)
	setDefault("user_id", m.UserID, m.UserID == 0)
	setDefault("chat_id", m.ChatID, m.ChatID == 0)
	setDefault("handler", m.Handler, m.Handler == "")
}

func (e entry) finish(msg string) {
	if s, _ := e["event"].(string); s == "" {
		if msg == "" {
			msg = "unknown"
		}
		e["event"] = msg
	}
	if s, _ := e["component"].(string); s == "" {
		e["component"] = "app"
	}
	if s, ok := e["status"].(string); ok {
		e["status"] = canonical(s)
	}
	if s, ok := e["outcome"].(string); ok {
		if o := canonical(s); outcomes[o] {
			e["outcome"] = o
		} else {
			delete(e, "outcome")
		}
	}
	for k, v := range e {
		if v == nil || v == "" {
			delete(e, k)
		}
	}
}

func (e entry) keys(order []string) []string {
	keys := make([]string, 0, len(e))
	seen := make(map[string]bool, len(order))
	for _, k := range order {
		if _, ok := e[k]; ok && !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	fixed := len(keys)
	for k := range e {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys[fixed:])
	return keys
}

func (e entry) json(order []string) ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range e.keys(order) {
		data, err := json.Marshal(e[k])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", k, err)
		}
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(k))
		b.WriteByte(':')
		b.Write(data)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

func (e entry) kv(order []string) []byte {
	var b strings.Builder
	for i, k := range e.keys(order) {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		s := fmt.Sprint(e[k])
		if strings.IndexFunc(s, needsQuote) >= 0 {
			s = strconv.Quote(s)
		}
		b.WriteString(s)
	}
	return []byte(b.String())
}

func needsQuote(r rune) bool {
	return r <= ' ' || r == '=' || r == '"'
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "." + key
}

// normalizeValue maps slog values onto JSON-friendly ones. Durations are
// logged as integer milliseconds under a key ending in _ms.
func normalizeValue(key string, v slog.Value) (string, any, bool) {
	switch v.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(v.String()), true
	case slog.KindBool:
		return key, v.Bool(), true
	case slog.KindInt64:
		return key, v.Int64(), true
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return key, int64(u), true
		}
		return key, v.Uint64(), true
	case slog.KindFloat64:
		return key, v.Float64(), true
	case slog.KindDuration:
		return msKey(key), RoundMS(v.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano), true
	}
	switch x := v.Any().(type) {
	case nil:
		return key, nil, false
	case error:
		return key, x.Error(), true
	case time.Duration:
		return msKey(key), RoundMS(x).Milliseconds(), true
	case fmt.Stringer:
		return key, x.String(), true
	case string:
		return key, strings.TrimSpace(x), true
	default:
		return key, fmt.Sprint(x), true
	}
}

func msKey(key string) string {
	switch {
	case key == "duration":
		return "duration_ms"
	case strings.HasSuffix(key, "_ms"):
		return key
	}
	return key + "_ms"
}
