package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
)

// syncBuffer serializes writes from concurrent loggers sharing one buffer.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func (s *syncBuffer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.Reset()
}

// TestLogger records through the same zerolog encoder as ZerologLogger, into
// an in-memory buffer that tests can decode.
type TestLogger struct {
	*ZerologLogger
	sink *syncBuffer
}

// NewTestLogger returns a logger capturing records at level and above,
// together with the buffer it writes to.
//
//	logger, buf := log.NewTestLogger(log.LevelDebug)
//	solver := logistic.NewSolver(logistic.WithLogger(logger))
func NewTestLogger(level Level) (*TestLogger, *bytes.Buffer) {
	sink := &syncBuffer{}
	return newTestLogger(sink, level), &sink.buf
}

func newTestLogger(sink *syncBuffer, level Level) *TestLogger {
	return &TestLogger{ZerologLogger: NewZerologLogger(sink, level), sink: sink}
}

// With implements Logger.With. Child loggers share the parent's buffer.
func (t *TestLogger) With(fields ...any) Logger {
	child := t.ZerologLogger.With(fields...).(*ZerologLogger)
	return &TestLogger{ZerologLogger: child, sink: t.sink}
}

// GetBuffer returns the buffer holding the captured JSON lines.
func (t *TestLogger) GetBuffer() *bytes.Buffer {
	return &t.sink.buf
}

// GetLogEntries decodes every captured record.
func (t *TestLogger) GetLogEntries() ([]map[string]interface{}, error) {
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(t.sink.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ContainsMessage reports whether any record's raw text contains message.
func (t *TestLogger) ContainsMessage(message string) bool {
	return strings.Contains(t.sink.String(), message)
}

// ContainsField reports whether some record has key set to value. Numbers
// decode as float64.
func (t *TestLogger) ContainsField(key string, value interface{}) bool {
	entries, err := t.GetLogEntries()
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if v, ok := entry[key]; ok && v == value {
			return true
		}
	}
	return false
}

// Clear drops everything captured so far.
func (t *TestLogger) Clear() {
	t.sink.Reset()
}

// TestLoggerProvider hands out TestLoggers that share one buffer.
type TestLoggerProvider struct {
	mu     sync.RWMutex
	logger *TestLogger
}

// NewTestLoggerProvider creates a provider capturing at level and above.
func NewTestLoggerProvider(level Level) (*TestLoggerProvider, *bytes.Buffer) {
	logger, buf := NewTestLogger(level)
	return &TestLoggerProvider{logger: logger}, buf
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *TestLoggerProvider) GetLogger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.logger
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *TestLoggerProvider) GetLoggerWithName(name string) Logger {
	return p.GetLogger().With(ComponentKey, name)
}

// SetLevel implements LoggerProvider.SetLevel. Loggers already handed out
// keep their level.
func (p *TestLoggerProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger = newTestLogger(p.logger.sink, level)
}

// GetBuffer returns the shared capture buffer.
func (p *TestLoggerProvider) GetBuffer() *bytes.Buffer {
	return p.logger.GetBuffer()
}
