// Package logger provides leveled logging on top of the standard log package and keeps a
// bounded buffer of the most recent entries for export.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/i474232898/weather-lookup/internal/collection"
)

// Level is a log severity.
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
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// ParseLevel maps "debug", "info", "warn" and "error" to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Entry is one buffered log line.
type Entry struct {
	Seq     uint64         `json:"seq"`
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// Config controls a Logger.
type Config struct {
	Level      Level
	Enabled    bool
	MaxEntries int
	Output     io.Writer
}

// Logger writes "LEVEL: message k=v" lines and remembers the last MaxEntries of them.
type Logger struct {
	mu      sync.Mutex
	out     *log.Logger
	level   Level
	enabled bool
	seq     uint64
	entries *collection.Collection[Entry, uint64]
	now     func() time.Time
}

// New creates a Logger. A nil Output writes to stderr.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	return &Logger{
		out:     log.New(out, "", log.LstdFlags),
		level:   cfg.Level,
		enabled: cfg.Enabled,
		entries: collection.New(cfg.MaxEntries, func(e Entry) uint64 { return e.Seq }),
		now:     time.Now,
	}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return New(Config{Level: LevelError, Output: io.Discard})
}

func (l *Logger) Debug(msg string, kv ...any) { l.log(LevelDebug, msg, kv) }
func (l *Logger) Info(msg string, kv ...any)  { l.log(LevelInfo, msg, kv) }
func (l *Logger) Warn(msg string, kv ...any)  { l.log(LevelWarn, msg, kv) }
func (l *Logger) Error(msg string, kv ...any) { l.log(LevelError, msg, kv) }

// SetLevel changes the minimum level that is written and buffered.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

func (l *Logger) log(level Level, msg string, kv []any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}
	fields := toFields(kv)
	l.out.Print(format(level, msg, kv))

	if !l.enabled {
		return
	}
	l.seq++
	l.entries.InsertFront(Entry{
		Seq:     l.seq,
		Time:    l.now(),
		Level:   level.String(),
		Message: msg,
		Fields:  fields,
	})
}

// Entries returns buffered entries at or above min, most recent first.
func (l *Logger) Entries(min Level) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	all := l.entries.Items()
	out := make([]Entry, 0, len(all))
	for _, e := range all {
		lvl, _ := ParseLevel(e.Level)
		if lvl >= min {
			out = append(out, e)
		}
	}
	return out
}

// Clear drops all buffered entries.
func (l *Logger) Clear() {
	l.mu.Lock()
	l.entries.Clear()
	l.mu.Unlock()
}

// Export returns the buffered entries as JSON.
func (l *Logger) Export() ([]byte, error) {
	return json.Marshal(l.Entries(LevelDebug))
}

func format(level Level, msg string, kv []any) string {
	var b strings.Builder
	b.WriteString(level.String())
	b.WriteString(": ")
	b.WriteString(msg)
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
	}
	if len(kv)%2 == 1 {
		fmt.Fprintf(&b, " %v", kv[len(kv)-1])
	}
	return b.String()
}

func toFields(kv []any) map[string]any {
	if len(kv) < 2 {
		return nil
	}
	fields := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		v := kv[i+1]
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		fields[fmt.Sprint(kv[i])] = v
	}
	return fields
}
