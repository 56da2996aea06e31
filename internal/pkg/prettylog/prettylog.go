package prettylog

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const (
	ansiReset   = "\033[0m"
	ansiBlack   = "\033[30m"
	ansiRed     = "\033[31m"
	ansiGreen   = "\033[32m"
	ansiYellow  = "\033[33m"
	ansiMagenta = "\033[35m"
	ansiCyan    = "\033[36m"
	ansiGray    = "\033[90m"
	ansiBgRed   = "\033[41m"
)

const (
	iconDebug = "⚙"
	iconInfo  = "ℹ"
	iconWarn  = "⚠"
	iconError = "✖"
	iconOK    = "✔"
	iconStart = "◐"
)

// HintKey is a special zap field key used to override the display icon.
const HintKey = "_pl"

const (
	HintSuccess = "success"
	HintReady   = "ready"
	HintStart   = "start"
)

var lastLogTimeMs atomic.Int64

func deltaMs() int64 {
	now := time.Now().UnixMilli()
	prev := lastLogTimeMs.Swap(now)
	if prev == 0 {
		return 0
	}
	return now - prev
}

var bufPool = buffer.NewPool()

// Encoder formats zap entries in consola-like style for development consoles:
// timestamp, level icon, [logger], message, key=value pairs, +Nms delta.
type Encoder struct {
	*zapcore.MapObjectEncoder
	color bool
}

// NewEncoder creates a pretty console encoder. Set color=true for ANSI output.
func NewEncoder(color bool) zapcore.Encoder {
	return &Encoder{MapObjectEncoder: zapcore.NewMapObjectEncoder(), color: color}
}

// ShouldColor reports whether terminal colors should be enabled.
func ShouldColor() bool {
	return os.Getenv("NO_COLOR") == ""
}

// Clone implements zapcore.Encoder.
func (e *Encoder) Clone() zapcore.Encoder {
	clone := zapcore.NewMapObjectEncoder()
	for k, v := range e.Fields {
		clone.Fields[k] = v
	}
	return &Encoder{MapObjectEncoder: clone, color: e.color}
}

// EncodeEntry implements zapcore.Encoder.
func (e *Encoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	collected := zapcore.NewMapObjectEncoder()
	for k, v := range e.Fields {
		collected.Fields[k] = v
	}
	for _, f := range fields {
		f.AddTo(collected)
	}

	hint := ""
	if v, ok := collected.Fields[HintKey]; ok {
		hint, _ = v.(string)
		delete(collected.Fields, HintKey)
	}

	keys := make([]string, 0, len(collected.Fields))
	for k := range collected.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := bufPool.Get()
	isBadge := entry.Level >= zapcore.ErrorLevel
	if isBadge {
		buf.AppendByte('\n')
	}

	e.paint(buf, ansiGray, entry.Time.Format("2006-01-02 15:04:05"))
	buf.AppendByte(' ')

	if isBadge {
		label := " " + strings.ToUpper(entry.Level.String()) + " "
		if e.color {
			buf.AppendString(ansiBgRed + ansiBlack + label + ansiReset)
		} else {
			buf.AppendString(label)
		}
	} else {
		icon, iconColor := resolveIcon(entry.Level, hint)
		e.paint(buf, iconColor, icon)
	}
	buf.AppendByte(' ')

	if entry.LoggerName != "" {
		e.paint(buf, ansiYellow, "["+entry.LoggerName+"]")
		buf.AppendByte(' ')
	}

	buf.AppendString(entry.Message)

	for _, k := range keys {
		buf.AppendByte(' ')
		buf.AppendString(k)
		buf.AppendByte('=')
		buf.AppendString(formatValue(collected.Fields[k]))
	}

	if delta := deltaMs(); delta > 0 {
		e.paint(buf, ansiYellow, fmt.Sprintf(" +%dms", delta))
	}

	if isBadge {
		buf.AppendByte('\n')
	}
	buf.AppendByte('\n')
	return buf, nil
}

func (e *Encoder) paint(buf *buffer.Buffer, color, text string) {
	if e.color && color != "" {
		buf.AppendString(color)
		buf.AppendString(text)
		buf.AppendString(ansiReset)
		return
	}
	buf.AppendString(text)
}

func resolveIcon(level zapcore.Level, hint string) (icon string, color string) {
	switch hint {
	case HintSuccess, HintReady:
		return iconOK, ansiGreen
	case HintStart:
		return iconStart, ansiMagenta
	}
	switch level {
	case zapcore.DebugLevel:
		return iconDebug, ansiGray
	case zapcore.InfoLevel:
		return iconInfo, ansiCyan
	case zapcore.WarnLevel:
		return iconWarn, ansiYellow
	default:
		return iconError, ansiRed
	}
}

func formatValue(v interface{}) string {
	s := ""
	switch t := v.(type) {
	case string:
		s = t
	case error:
		s = t.Error()
	case time.Duration:
		s = t.String()
	case time.Time:
		s = t.Format(time.RFC3339)
	default:
		s = fmt.Sprint(v)
	}
	if needsQuote(s) {
		return strconv.Quote(s)
	}
	return s
}

func needsQuote(s string) bool {
	if s == "" {
		return true
	}
	return strings.ContainsAny(s, " \"=\n\r\t")
}

// SuccessField hints the encoder to render the entry with the success icon.
func SuccessField() zapcore.Field {
	return zapcore.Field{Key: HintKey, Type: zapcore.StringType, String: HintSuccess}
}

// ReadyField hints the encoder to render the entry with the ready icon.
func ReadyField() zapcore.Field {
	return zapcore.Field{Key: HintKey, Type: zapcore.StringType, String: HintReady}
}

// StartField hints the encoder to render the entry with the start icon.
func StartField() zapcore.Field {
	return zapcore.Field{Key: HintKey, Type: zapcore.StringType, String: HintStart}
}
