// Package logging provides the leveled, structured logger used across
// gridlock. Output is a single line per entry, either human-readable text or
// JSON, with optional key/value fields and a per-component tag.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level is a log severity threshold.
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
	case LevelError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// ParseLevel converts a configuration string into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("logging: invalid level %q", s)
}

// Format selects the output encoding.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// ParseFormat converts a configuration string into a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	}
	return FormatText, fmt.Errorf("logging: invalid format %q", s)
}

// Fields are ad-hoc key/value pairs attached to an entry.
type Fields map[string]interface{}

type entry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Component string    `json:"component,omitempty"`
	Message   string    `json:"message"`
	Fields    Fields    `json:"fields,omitempty"`
}

// Logger writes leveled log entries. It is safe for concurrent use; child
// loggers created by WithComponent and With share the parent's output and
// level.
type Logger struct {
	mu        *sync.Mutex
	out       io.Writer
	level     Level
	format    Format
	component string
	fields    Fields
}

// New creates a Logger writing to out at the given level and format.
func New(out io.Writer, level Level, format Format) *Logger {
	if out == nil {
		out = os.Stderr
	}
	return &Logger{mu: &sync.Mutex{}, out: out, level: level, format: format}
}

// WithComponent returns a child logger tagged with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	child := *l
	child.component = name
	return &child
}

// With returns a child logger whose entries carry the given fields in
// addition to any inherited ones.
func (l *Logger) With(fields Fields) *Logger {
	child := *l
	merged := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	child.fields = merged
	return &child
}

// Enabled reports whether entries at level would be written.
func (l *Logger) Enabled(level Level) bool {
	return level >= l.level
}

func (l *Logger) log(level Level, msg string, fields Fields) {
	if !l.Enabled(level) {
		return
	}
	e := entry{
		Timestamp: time.Now(),
		Level:     level.String(),
		Component: l.component,
		Message:   msg,
	}
	if len(l.fields) > 0 || len(fields) > 0 {
		e.Fields = make(Fields, len(l.fields)+len(fields))
		for k, v := range l.fields {
			e.Fields[k] = v
		}
		for k, v := range fields {
			e.Fields[k] = v
		}
	}

	var line string
	if l.format == FormatJSON {
		data, err := json.Marshal(e)
		if err != nil {
			return
		}
		line = string(data) + "\n"
	} else {
		line = formatText(e)
	}

	l.mu.Lock()
	io.WriteString(l.out, line)
	l.mu.Unlock()
}

func formatText(e entry) string {
	var sb strings.Builder
	sb.WriteString(e.Timestamp.Format("2006-01-02 15:04:05"))
	sb.WriteString(" [")
	sb.WriteString(e.Level)
	sb.WriteString("]")
	if e.Component != "" {
		sb.WriteString(" (")
		sb.WriteString(e.Component)
		sb.WriteString(")")
	}
	sb.WriteString(" ")
	sb.WriteString(e.Message)
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString(" [")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(" ")
			}
			fmt.Fprintf(&sb, "%s=%v", k, e.Fields[k])
		}
		sb.WriteString("]")
	}
	sb.WriteString("\n")
	return sb.String()
}

// Debug logs at debug level with optional fields.
func (l *Logger) Debug(msg string, fields ...Fields) { l.log(LevelDebug, msg, first(fields)) }

// Info logs at info level with optional fields.
func (l *Logger) Info(msg string, fields ...Fields) { l.log(LevelInfo, msg, first(fields)) }

// Warn logs at warn level with optional fields.
func (l *Logger) Warn(msg string, fields ...Fields) { l.log(LevelWarn, msg, first(fields)) }

// Error logs at error level with optional fields.
func (l *Logger) Error(msg string, fields ...Fields) { l.log(LevelError, msg, first(fields)) }

// Debugf logs a formatted message at debug level.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(LevelDebug, fmt.Sprintf(format, args...), nil)
}

// Infof logs a formatted message at info level.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(LevelInfo, fmt.Sprintf(format, args...), nil)
}

// Warnf logs a formatted message at warn level.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(LevelWarn, fmt.Sprintf(format, args...), nil)
}

// Errorf logs a formatted message at error level.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log(LevelError, fmt.Sprintf(format, args...), nil)
}

func first(fields []Fields) Fields {
	if len(fields) > 0 {
		return fields[0]
	}
	return nil
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = New(os.Stderr, LevelInfo, FormatText)
)

// SetDefault replaces the package-level logger.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// Default returns the package-level logger.
func Default() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// FileOutput opens filename for appending, creating parent directories as
// needed, for use as a logger output.
func FileOutput(filename string) (io.Writer, error) {
	dir := "."
	if i := strings.LastIndexByte(filename, '/'); i > 0 {
		dir = filename[:i]
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: create log directory: %w", err)
	}
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	return f, nil
}
