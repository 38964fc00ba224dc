package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders `ts LEVEL component [record stage]: msg key=value` lines.
type consoleHandler struct {
	mu        *sync.Mutex
	out       io.Writer
	level     *slog.LevelVar
	attrs     []slog.Attr
	group     string
	addSource bool
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{mu: &sync.Mutex{}, out: w, level: lvl, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var component, recordID, stage string
	pairs := make([][2]string, 0, len(h.attrs)+record.NumAttrs())
	collect := func(prefix string, attr slog.Attr) {
		appendAttr(&pairs, prefix, attr)
	}
	for _, attr := range h.attrs {
		collect("", attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		collect(h.group, attr)
		return true
	})

	rest := pairs[:0]
	for _, p := range pairs {
		switch p[0] {
		case FieldComponent:
			if component == "" {
				component = p[1]
			}
		case FieldRecordID:
			recordID = p[1]
		case FieldStage:
			stage = p[1]
		default:
			rest = append(rest, p)
		}
	}

	var buf bytes.Buffer
	buf.WriteString(ts.UTC().Format(time.RFC3339))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(record.Level))
	if component != "" {
		buf.WriteByte(' ')
		buf.WriteString(component)
	}
	if recordID != "" || stage != "" {
		buf.WriteString(" [")
		buf.WriteString(strings.TrimSpace(recordID + " " + stage))
		buf.WriteByte(']')
	}
	buf.WriteString(": ")
	if msg := strings.TrimSpace(record.Message); msg != "" {
		buf.WriteString(msg)
	} else {
		buf.WriteString("(no message)")
	}
	if h.addSource && record.PC != 0 {
		if src := record.Source(); src != nil {
			fmt.Fprintf(&buf, " (%s:%d)", filepath.Base(src.File), src.Line)
		}
	}
	for _, p := range rest {
		buf.WriteByte(' ')
		buf.WriteString(p[0])
		buf.WriteByte('=')
		buf.WriteString(quoteIfNeeded(p[1]))
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf.Bytes())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, attr := range attrs {
		if h.group != "" {
			attr.Key = h.group + "." + attr.Key
		}
		clone.attrs = append(clone.attrs, attr)
	}
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if clone.group != "" {
		clone.group += "." + name
	} else {
		clone.group = name
	}
	return &clone
}

func appendAttr(dst *[][2]string, prefix string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	value := attr.Value.Resolve()
	key := attr.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	} else if key == "" {
		key = prefix
	}
	if value.Kind() == slog.KindGroup {
		for _, child := range value.Group() {
			appendAttr(dst, key, child)
		}
		return
	}
	*dst = append(*dst, [2]string{key, valueString(value)})
}

func valueString(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return v.String()
	}
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return strconv.Quote(s)
		}
	}
	return s
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
