// Package logger provides the editor's leveled structured logging. Messages
// go to the standard log package; when Sentry is configured, warnings and
// informational messages become breadcrumbs and errors are captured as
// events.
package logger

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/getsentry/sentry-go"
)

// Log levels, matching the --debug-level option range.
const (
	LevelNone = iota
	LevelFatal
	LevelError
	LevelWarn
	LevelInfo
	LevelVerbose
	LevelDebug
	LevelHuge
)

var (
	level      atomic.Int32
	timestamps atomic.Bool
	colors     atomic.Bool
)

func init() {
	level.Store(LevelInfo)
	colors.Store(true)
	log.SetFlags(0)
}

// Configure sets the level gate and the output decorations.
func Configure(lvl int, withTimestamps, withColors bool) {
	if lvl < LevelNone {
		lvl = LevelNone
	}
	if lvl > LevelHuge {
		lvl = LevelHuge
	}
	level.Store(int32(lvl))
	timestamps.Store(withTimestamps)
	colors.Store(withColors)
	if withTimestamps {
		log.SetFlags(log.LstdFlags)
	} else {
		log.SetFlags(0)
	}
}

// Level returns the current level gate.
func Level() int {
	return int(level.Load())
}

// Fields represents structured log fields.
type Fields map[string]interface{}

var levelTags = map[int]string{
	LevelFatal:   "FATAL",
	LevelError:   "ERROR",
	LevelWarn:    "WARN",
	LevelInfo:    "INFO",
	LevelVerbose: "VERB",
	LevelDebug:   "DEBUG",
	LevelHuge:    "HUGE",
}

var levelColors = map[int]string{
	LevelFatal: "\033[31m",
	LevelError: "\033[31m",
	LevelWarn:  "\033[33m",
}

func emit(lvl int, msg string, fields Fields) {
	if lvl > Level() {
		return
	}
	tag := levelTags[lvl]
	if colors.Load() {
		if c, ok := levelColors[lvl]; ok {
			tag = c + tag + "\033[0m"
		}
	}
	log.Printf("[%s] %s %s", tag, msg, formatFields(fields))
}

// Info logs an informational message with structured fields.
func Info(msg string, fields Fields) {
	emit(LevelInfo, msg, fields)
	breadcrumb(sentry.LevelInfo, "info", msg, fields)
}

// Warn logs a warning message with structured fields.
func Warn(msg string, fields Fields) {
	emit(LevelWarn, msg, fields)
	breadcrumb(sentry.LevelWarning, "warning", msg, fields)
}

// Error logs an error message with structured fields and sends it to Sentry.
func Error(msg string, err error, fields Fields) {
	if err != nil {
		emit(LevelError, fmt.Sprintf("%s: %v", msg, err), fields)
	} else {
		emit(LevelError, msg, fields)
	}
	if hub := sentry.CurrentHub(); hub.Client() != nil && err != nil {
		hub.WithScope(func(scope *sentry.Scope) {
			for key, value := range fields {
				scope.SetContext(key, map[string]interface{}{"value": value})
			}
			hub.CaptureException(err)
		})
	}
}

// Fatal logs a fatal message; the caller decides how to bail out.
func Fatal(msg string, fields Fields) {
	emit(LevelFatal, msg, fields)
}

// Verbose logs a message only shown at level 5 and above.
func Verbose(msg string, fields Fields) {
	emit(LevelVerbose, msg, fields)
}

// Debug logs a debug message with structured fields.
func Debug(msg string, fields Fields) {
	emit(LevelDebug, msg, fields)
	breadcrumb(sentry.LevelDebug, "debug", msg, fields)
}

// HexDump logs a buffer as hex at the most verbose level.
func HexDump(msg string, buf []byte) {
	if Level() < LevelHuge {
		return
	}
	var b strings.Builder
	for _, c := range buf {
		fmt.Fprintf(&b, "%02x", c)
	}
	emit(LevelHuge, msg, Fields{"hex": b.String(), "bytes": len(buf)})
}

func breadcrumb(lvl sentry.Level, typ, msg string, fields Fields) {
	if hub := sentry.CurrentHub(); hub.Client() != nil {
		sentry.AddBreadcrumb(&sentry.Breadcrumb{
			Type:     typ,
			Category: "log",
			Message:  msg,
			Data:     convertFieldsToMap(fields),
			Level:    lvl,
		})
	}
}

// formatFields converts Fields to a readable string with a stable key order.
func formatFields(fields Fields) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%v", k, fields[k])
	}
	b.WriteString("}")
	return b.String()
}

func convertFieldsToMap(fields Fields) map[string]interface{} {
	result := make(map[string]interface{})
	for k, v := range fields {
		result[k] = v
	}
	return result
}
