// Package logger writes leveled, category-tagged log lines with optional
// key=value fields.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	default:
		return "ERROR"
	}
}

// ParseLevel maps LOG_LEVEL values; unknown values fall back to info
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

var levelColors = map[Level]*color.Color{
	LevelDebug: color.New(color.FgHiBlack),
	LevelInfo:  color.New(color.FgCyan),
	LevelWarn:  color.New(color.FgYellow),
	LevelError: color.New(color.FgRed, color.Bold),
}

// Logger is safe for concurrent use
type Logger struct {
	mu      sync.Mutex
	out     io.Writer
	colored bool
	level   Level
	name    string
}

// New creates a logger writing to stdout
func New(name string, level Level) *Logger {
	return &Logger{out: color.Output, colored: true, level: level, name: name}
}

// NewWithWriter creates a logger writing to w without colors
func NewWithWriter(w io.Writer, name string, level Level) *Logger {
	return &Logger{out: w, level: level, name: name}
}

// Nop discards everything
func Nop() *Logger {
	return &Logger{out: io.Discard, level: LevelError + 1}
}

func (l *Logger) Debug(category, msg string, kv ...any) { l.log(LevelDebug, category, msg, kv) }
func (l *Logger) Info(category, msg string, kv ...any)  { l.log(LevelInfo, category, msg, kv) }
func (l *Logger) Warn(category, msg string, kv ...any)  { l.log(LevelWarn, category, msg, kv) }
func (l *Logger) Error(category, msg string, kv ...any) { l.log(LevelError, category, msg, kv) }

// Fatal logs at error level and exits
func (l *Logger) Fatal(category, msg string, kv ...any) {
	l.log(LevelError, category, msg, kv)
	os.Exit(1)
}

// LogAPI records one served request
func (l *Logger) LogAPI(method, path string, status int, duration time.Duration, kv ...any) {
	level := LevelInfo
	switch {
	case status >= 500:
		level = LevelError
	case status >= 400:
		level = LevelWarn
	}
	kv = append([]any{"status", status, "duration", duration.Round(time.Microsecond)}, kv...)
	l.log(level, "API", method+" "+path, kv)
}

func (l *Logger) LogDatabase(operation, store, msg string, kv ...any) {
	l.log(LevelInfo, "DATABASE", fmt.Sprintf("[%s] %s: %s", store, operation, msg), kv)
}

func (l *Logger) LogKafka(operation, component, msg string, kv ...any) {
	l.log(LevelInfo, "KAFKA", fmt.Sprintf("[%s] %s: %s", component, operation, msg), kv)
}

func (l *Logger) LogSecurity(event, msg string, kv ...any) {
	l.log(LevelWarn, "SECURITY", event+": "+msg, kv)
}

func (l *Logger) Enabled(level Level) bool {
	return level >= l.level
}

func (l *Logger) log(level Level, category, msg string, kv []any) {
	if !l.Enabled(level) {
		return
	}

	var b strings.Builder
	b.WriteString(time.Now().Format("2006-01-02 15:04:05.000"))
	b.WriteByte(' ')
	label := fmt.Sprintf("%-5s", level)
	if l.colored {
		label = levelColors[level].Sprint(label)
	}
	b.WriteString(label)
	if l.name != "" {
		b.WriteString(" " + l.name)
	}
	b.WriteString(" [" + category + "] " + msg)
	writeFields(&b, kv)
	b.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	io.WriteString(l.out, b.String())
}

func writeFields(b *strings.Builder, kv []any) {
	for i := 0; i < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		if i+1 >= len(kv) {
			fmt.Fprintf(b, " %s=<missing>", key)
			break
		}
		val := fmt.Sprint(kv[i+1])
		if strings.ContainsAny(val, " \t\"") {
			val = fmt.Sprintf("%q", val)
		}
		fmt.Fprintf(b, " %s=%s", key, val)
	}
}
