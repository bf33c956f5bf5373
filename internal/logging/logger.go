package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level orders log severities.
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

// Logger writes component-tagged lines:
//
//	[2006-01-02 15:04:05.000] [component] [LEVEL] message
//
// Loggers derived with With share the sink and the minimum level of their parent.
type Logger struct {
	component string
	sink      *sink
}

type sink struct {
	mu     sync.Mutex
	logger *log.Logger
	file   *os.File
	min    Level
	runID  string
	path   string
	once   sync.Once
}

var (
	runID     string
	runIDOnce sync.Once
)

// RunID identifies the current process run; it prefixes log file names.
func RunID() string {
	runIDOnce.Do(func() {
		runID = uuid.New().String()
	})
	return runID
}

// New returns a logger writing to w.
func New(component string, w io.Writer) *Logger {
	return &Logger{
		component: component,
		sink: &sink{
			logger: log.New(w, "", 0),
			min:    LevelDebug,
			runID:  RunID(),
		},
	}
}

// Open creates a logger writing to <dir>/<run-id>-sporcle.log. If the
// directory or file cannot be created it falls back to stderr and returns
// the error alongside the usable logger.
func Open(dir, component string) (*Logger, error) {
	if dir == "" {
		return New(component, os.Stderr), nil
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		l := New(component, os.Stderr)
		l.Warnf("falling back to stderr logging: %v", err)
		return l, fmt.Errorf("create log directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s-sporcle.log", RunID()))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		l := New(component, os.Stderr)
		l.Warnf("falling back to stderr logging: %v", err)
		return l, fmt.Errorf("open log file: %w", err)
	}

	l := New(component, file)
	l.sink.file = file
	l.sink.path = path
	return l, nil
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return New("discard", io.Discard)
}

// With derives a logger for another component on the same sink.
func (l *Logger) With(component string) *Logger {
	return &Logger{component: component, sink: l.sink}
}

// SetLevel drops messages below min, for this logger and every logger sharing its sink.
func (l *Logger) SetLevel(min Level) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.min = min
}

func (l *Logger) write(level Level, format string, v ...interface{}) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	if level < l.sink.min {
		return
	}
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	l.sink.logger.Printf("[%s] [%s] [%s] %s", timestamp, l.component, level, fmt.Sprintf(format, v...))
}

func (l *Logger) Debugf(format string, v ...interface{}) { l.write(LevelDebug, format, v...) }

func (l *Logger) Infof(format string, v ...interface{}) { l.write(LevelInfo, format, v...) }

func (l *Logger) Warnf(format string, v ...interface{}) { l.write(LevelWarn, format, v...) }

func (l *Logger) Errorf(format string, v ...interface{}) { l.write(LevelError, format, v...) }

// Path returns the log file path, empty when logging to a stream.
func (l *Logger) Path() string {
	return l.sink.path
}

// Close closes the log file if there is one. Safe to call multiple times.
func (l *Logger) Close() error {
	var err error
	l.sink.once.Do(func() {
		if l.sink.file != nil {
			err = l.sink.file.Close()
		}
	})
	return err
}
