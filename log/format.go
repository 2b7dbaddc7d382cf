package log

import (
	"fmt"
	"log/slog"
	"strconv"
)

const timeFormat = "2006-01-02T15:04:05.000-0700"

// Custom levels below slog.LevelDebug and above slog.LevelError, so a
// node can run at trace verbosity during debugging or crit-only in
// production without losing the standard four in between.
const (
	LevelTrace = slog.Level(-8)
	LevelCrit  = slog.Level(12)
)

// levelMaxVerbosity keeps every record flowing through by default;
// callers that want filtering pass their own *slog.LevelVar to
// NewTerminalHandlerWithLevel/JSONHandlerWithLevel directly.
const levelMaxVerbosity = LevelTrace

// LevelString renders a level the same terse way across both handlers.
func LevelString(l slog.Level) string {
	switch {
	case l < slog.LevelDebug:
		return "TRCE"
	case l < slog.LevelInfo:
		return "DBUG"
	case l < slog.LevelWarn:
		return "INFO"
	case l < slog.LevelError:
		return "WARN"
	case l < LevelCrit:
		return "ERRO"
	default:
		return "CRIT"
	}
}

var levelColor = map[string]string{
	"TRCE": "\x1b[34m",
	"DBUG": "\x1b[36m",
	"INFO": "\x1b[32m",
	"WARN": "\x1b[33m",
	"ERRO": "\x1b[31m",
	"CRIT": "\x1b[35m",
}

const colorReset = "\x1b[0m"

// format renders one record as:
//
//	[LEVEL] [TIME] MESSAGE key=value key=value ...
func (h *TerminalHandler) format(buf []byte, r slog.Record, useColor bool) []byte {
	lvl := LevelString(r.Level)
	if useColor {
		buf = append(buf, levelColor[lvl]...)
	}
	buf = append(buf, '[')
	buf = append(buf, lvl...)
	buf = append(buf, ']')
	if useColor {
		buf = append(buf, colorReset...)
	}
	buf = append(buf, " ["...)
	buf = append(buf, r.Time.Format(timeFormat)...)
	buf = append(buf, "] "...)
	buf = append(buf, r.Message...)

	for _, a := range h.attrs {
		buf = appendAttr(buf, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		buf = appendAttr(buf, a)
		return true
	})
	buf = append(buf, '\n')
	return buf
}

func appendAttr(buf []byte, a slog.Attr) []byte {
	a = builtinReplace(nil, a, true)
	buf = append(buf, ' ')
	buf = append(buf, a.Key...)
	buf = append(buf, '=')
	buf = append(buf, formatValue(a.Value)...)
	return buf
}

func formatValue(v slog.Value) string {
	if v.Kind() == slog.KindString {
		s := v.String()
		if needsQuote(s) {
			return strconv.Quote(s)
		}
		return s
	}
	return fmt.Sprint(v.Any())
}

func needsQuote(s string) bool {
	if len(s) == 0 {
		return true
	}
	for _, r := range s {
		if r == ' ' || r == '=' || r == '"' {
			return true
		}
	}
	return false
}

func appendInt64(dst []byte, n int64) []byte {
	return strconv.AppendInt(dst, n, 10)
}

// appendUint64 appends n in decimal, or hex when hex is true (used for
// byte-oriented fields like node IDs where hex reads better than a
// huge decimal number).
func appendUint64(dst []byte, n uint64, hex bool) []byte {
	if hex {
		dst = append(dst, "0x"...)
		return strconv.AppendUint(dst, n, 16)
	}
	return strconv.AppendUint(dst, n, 10)
}
