// Package obslog implements QRT's asynchronous structured logger: an
// in-memory buffer drained by a background goroutine, with text or JSON
// rendering and optional caller capture.
package obslog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level is the severity of a log entry.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
	Fatal
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	case Fatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Format selects how entries are rendered.
type Format int

const (
	TextFormat Format = iota
	JSONFormat
)

// Entry is one emitted log record.
type Entry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	RunID     string                 `json:"run_id,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Caller    string                 `json:"caller,omitempty"`
}

// Config controls a Logger's behavior.
type Config struct {
	MinLevel      Level
	Format        Format
	IncludeCaller bool
	BufferSize    int
	Outputs       []io.Writer
}

// Logger is QRT's ambient logger: one instance typically lives for the
// duration of a CLI invocation or a wsrepl session.
type Logger struct {
	config  Config
	buffer  chan *Entry
	wg      sync.WaitGroup
	mu      sync.Mutex
	stopped bool
	syncCh  chan chan struct{}
}

// New builds a Logger from cfg, applying defaults for zero fields and
// starting its background drain goroutine.
func New(cfg Config) *Logger {
	if cfg.BufferSize == 0 {
		cfg.BufferSize = 256
	}
	if len(cfg.Outputs) == 0 {
		cfg.Outputs = []io.Writer{os.Stdout}
	}

	l := &Logger{
		config: cfg,
		buffer: make(chan *Entry, cfg.BufferSize),
		syncCh: make(chan chan struct{}, 1),
	}
	l.wg.Add(1)
	go l.drain()
	return l
}

// NewRunID mints an identifier suitable for correlating the log lines of a
// single evaluator invocation or wsrepl session.
func NewRunID() string {
	return uuid.NewString()
}

func (l *Logger) drain() {
	defer l.wg.Done()
	for {
		select {
		case entry, ok := <-l.buffer:
			if !ok {
				select {
				case done := <-l.syncCh:
					close(done)
				default:
				}
				return
			}
			l.write(entry)
		case done := <-l.syncCh:
			draining := true
			for draining {
				select {
				case entry := <-l.buffer:
					l.write(entry)
				default:
					draining = false
				}
			}
			close(done)
		}
	}
}

func (l *Logger) write(entry *Entry) {
	var rendered string
	if l.config.Format == JSONFormat {
		b, err := json.Marshal(entry)
		if err != nil {
			fmt.Fprintf(os.Stderr, "obslog: marshal failed: %v\n", err)
			return
		}
		rendered = string(b) + "\n"
	} else {
		rendered = formatText(entry)
	}
	for _, w := range l.config.Outputs {
		if _, err := w.Write([]byte(rendered)); err != nil {
			fmt.Fprintf(os.Stderr, "obslog: write failed: %v\n", err)
		}
	}
}

func formatText(e *Entry) string {
	ts := e.Timestamp.Format("2006-01-02 15:04:05.000")
	parts := []string{fmt.Sprintf("[%s]", ts), fmt.Sprintf("[%s]", e.Level)}
	if e.RunID != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.RunID))
	}
	if e.Caller != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Caller))
	}
	parts = append(parts, e.Message)
	if len(e.Fields) > 0 {
		fieldsStr := ""
		for k, v := range e.Fields {
			if fieldsStr != "" {
				fieldsStr += ", "
			}
			fieldsStr += fmt.Sprintf("%s=%v", k, v)
		}
		parts = append(parts, fmt.Sprintf("{%s}", fieldsStr))
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " "
		}
		out += p
	}
	return out + "\n"
}

func (l *Logger) log(level Level, runID, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	stopped := l.stopped
	l.mu.Unlock()
	if stopped || level < l.config.MinLevel {
		return
	}

	entry := &Entry{
		Timestamp: time.Now(),
		Level:     level.String(),
		Message:   msg,
		RunID:     runID,
		Fields:    fields,
	}
	if l.config.IncludeCaller {
		if _, file, line, ok := runtime.Caller(2); ok {
			entry.Caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
		}
	}

	select {
	case l.buffer <- entry:
	default:
		l.write(entry)
	}

	if level == Fatal {
		l.Close()
		os.Exit(1)
	}
}

func (l *Logger) Debug(runID, msg string, fields map[string]interface{}) { l.log(Debug, runID, msg, fields) }
func (l *Logger) Info(runID, msg string, fields map[string]interface{})  { l.log(Info, runID, msg, fields) }
func (l *Logger) Warn(runID, msg string, fields map[string]interface{})  { l.log(Warn, runID, msg, fields) }
func (l *Logger) Error(runID, msg string, fields map[string]interface{}) { l.log(Error, runID, msg, fields) }
func (l *Logger) Fatal(runID, msg string, fields map[string]interface{}) { l.log(Fatal, runID, msg, fields) }

// Sync blocks until every buffered entry has been written.
func (l *Logger) Sync() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()
	done := make(chan struct{})
	l.syncCh <- done
	<-done
}

// Close stops the drain goroutine after flushing pending entries.
func (l *Logger) Close() error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return nil
	}
	l.stopped = true
	l.mu.Unlock()
	close(l.buffer)
	l.wg.Wait()
	return nil
}
