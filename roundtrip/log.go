package roundtrip

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel is the severity of a log line.
type LogLevel int

const (
	LevelError LogLevel = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

func (l LogLevel) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel parses a level name. Unknown names mean LevelWarn.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(s) {
	case "ERROR":
		return LevelError
	case "WARN", "WARNING":
		return LevelWarn
	case "INFO":
		return LevelInfo
	case "DEBUG":
		return LevelDebug
	default:
		return LevelWarn
	}
}

// Logger is what the harness logs through.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})

	// With returns a child logger which adds fields to every line.
	With(fields map[string]interface{}) Logger
}

// formatLine renders one line as: [LEVEL] ts msg key1=val1 key2=val2
func formatLine(ts time.Time, level LogLevel, msg string, fields map[string]interface{}, timestamp bool) []byte {
	var b strings.Builder
	b.Grow(128)

	b.WriteByte('[')
	b.WriteString(level.String())
	b.WriteString("] ")
	if timestamp {
		b.WriteString(ts.UTC().Format(time.RFC3339Nano))
		b.WriteByte(' ')
	}
	b.WriteString(msg)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fieldString(fields[k]))
	}

	b.WriteByte('\n')
	return []byte(b.String())
}

func fieldString(v interface{}) string {
	switch t := v.(type) {
	case string:
		if strings.IndexFunc(t, func(r rune) bool { return r <= ' ' }) >= 0 {
			return fmt.Sprintf("%q", t)
		}
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

type textLogger struct {
	out       io.Writer
	level     LogLevel
	timestamp bool
	fields    map[string]interface{}

	// mu is shared with every child logger.
	mu *sync.Mutex
}

// NewLogger returns a logger writing lines at level or more severe to w.
// If w is nil, os.Stderr is used.
func NewLogger(level LogLevel, w io.Writer) Logger {
	if w == nil {
		w = os.Stderr
	}
	return &textLogger{
		out:       w,
		level:     level,
		timestamp: true,
		fields:    make(map[string]interface{}),
		mu:        &sync.Mutex{},
	}
}

type noopLogger struct{}

func (noopLogger) Debugf(format string, args ...interface{})   {}
func (noopLogger) Infof(format string, args ...interface{})    {}
func (noopLogger) Warnf(format string, args ...interface{})    {}
func (noopLogger) Errorf(format string, args ...interface{})   {}
func (l noopLogger) With(fields map[string]interface{}) Logger { return l }

// NoopLogger discards everything.
func NoopLogger() Logger { return noopLogger{} }

func (l *textLogger) With(fields map[string]interface{}) Logger {
	if len(fields) == 0 {
		return l
	}
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	child := *l
	child.fields = merged
	return &child
}

func (l *textLogger) Debugf(format string, args ...interface{}) { l.logf(LevelDebug, format, args...) }
func (l *textLogger) Infof(format string, args ...interface{})  { l.logf(LevelInfo, format, args...) }
func (l *textLogger) Warnf(format string, args ...interface{})  { l.logf(LevelWarn, format, args...) }
func (l *textLogger) Errorf(format string, args ...interface{}) { l.logf(LevelError, format, args...) }

func (l *textLogger) logf(level LogLevel, format string, args ...interface{}) {
	if level > l.level {
		return
	}
	line := formatLine(time.Now(), level, fmt.Sprintf(format, args...), l.fields, l.timestamp)

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(line)
}
