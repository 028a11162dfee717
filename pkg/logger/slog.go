package logger

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/nyc-design/neil-logger/pkg/record"
)

// Handler returns a slog.Handler that feeds records into l. Attributes are
// appended to the message as key=value pairs; groups prefix their keys.
//
//	slog.SetDefault(slog.New(l.Handler()))
func (l *Logger) Handler() slog.Handler {
	return &handler{l: l}
}

type handler struct {
	l      *Logger
	prefix string
	attrs  string
}

func (h *handler) Enabled(context.Context, slog.Level) bool {
	return true
}

func (h *handler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Message)
	b.WriteString(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&b, h.prefix, a)
		return true
	})

	h.l.emit(levelFromSlog(r.Level), b.String(), funcName(r.PC), nil)
	return nil
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var b strings.Builder
	b.WriteString(h.attrs)
	for _, a := range attrs {
		appendAttr(&b, h.prefix, a)
	}
	return &handler{l: h.l, prefix: h.prefix, attrs: b.String()}
}

func (h *handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &handler{l: h.l, prefix: h.prefix + name + ".", attrs: h.attrs}
}

func appendAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		groupPrefix := prefix
		if a.Key != "" {
			groupPrefix += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			appendAttr(b, groupPrefix, ga)
		}
		return
	}

	b.WriteByte(' ')
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteByte('=')
	v := a.Value.String()
	if v == "" || strings.ContainsAny(v, " =\"\n") {
		v = strconv.Quote(v)
	}
	b.WriteString(v)
}

func levelFromSlog(level slog.Level) record.Level {
	switch {
	case level < slog.LevelInfo:
		return record.Debug
	case level < slog.LevelWarn:
		return record.Info
	case level < slog.LevelError:
		return record.Warning
	case level < slog.LevelError+4:
		return record.Error
	default:
		return record.Critical
	}
}
