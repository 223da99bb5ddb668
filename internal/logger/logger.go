// Package logger provides a thread-safe in-memory logger for node status
// messages. The bounded ring of recent messages is exposed over the API so
// operators can see what the node has been doing without shell access.
package logger

import (
	"fmt"
	"sync"
	"time"
)

// Message represents a single log message
type Message struct {
	Timestamp time.Time `json:"timestamp"`
	Component string    `json:"component"`
	Text      string    `json:"text"`
	Level     string    `json:"level"` // info, warning, error
}

// Logger manages in-memory log messages
type Logger struct {
	mu       sync.RWMutex
	messages []Message
	maxSize  int
}

// New creates a new logger with specified max message count
func New(maxSize int) *Logger {
	return &Logger{
		messages: make([]Message, 0, maxSize),
		maxSize:  maxSize,
	}
}

// Log adds a new message to the logger
func (l *Logger) Log(level, component, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := Message{
		Timestamp: time.Now(),
		Component: component,
		Text:      text,
		Level:     level,
	}

	l.messages = append(l.messages, msg)

	// Keep only the last maxSize messages
	if len(l.messages) > l.maxSize {
		l.messages = l.messages[len(l.messages)-l.maxSize:]
	}
}

// Infof logs a formatted info-level message for a component
func (l *Logger) Infof(component, format string, args ...interface{}) {
	l.Log("info", component, fmt.Sprintf(format, args...))
}

// Warningf logs a formatted warning-level message for a component
func (l *Logger) Warningf(component, format string, args ...interface{}) {
	l.Log("warning", component, fmt.Sprintf(format, args...))
}

// Errorf logs a formatted error-level message for a component
func (l *Logger) Errorf(component, format string, args ...interface{}) {
	l.Log("error", component, fmt.Sprintf(format, args...))
}

// GetRecent returns the most recent n messages (newest first)
func (l *Logger) GetRecent(n int) []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n > len(l.messages) {
		n = len(l.messages)
	}

	result := make([]Message, n)
	for i := 0; i < n; i++ {
		result[i] = l.messages[len(l.messages)-1-i]
	}

	return result
}

// GetAll returns all messages (newest first)
func (l *Logger) GetAll() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]Message, len(l.messages))
	for i := 0; i < len(l.messages); i++ {
		result[i] = l.messages[len(l.messages)-1-i]
	}

	return result
}
