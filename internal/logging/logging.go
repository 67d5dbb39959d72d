// Package logging provides the leveled logger shared by the ROM tools and the
// edit-session server. Codec packages only log best-effort conditions at
// debug level; everything else is returned as an error.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents log severity levels
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

// Format selects how log lines are rendered.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// Logger provides leveled logging
type Logger struct {
	level  Level
	format Format
	mu     sync.RWMutex
	logger *log.Logger
	out    io.Writer
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// New returns a logger writing text lines to w at info level.
func New(w io.Writer) *Logger {
	return &Logger{
		level:  LevelInfo,
		logger: log.New(w, "", log.LstdFlags|log.LUTC),
		out:    w,
	}
}

// Default returns the default logger instance
func Default() *Logger {
	once.Do(func() {
		defaultLogger = New(os.Stderr)
	})
	return defaultLogger
}

// SetLevel sets the minimum log level
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetLevelFromString sets the log level from a string
func (l *Logger) SetLevelFromString(levelStr string) {
	switch strings.ToLower(levelStr) {
	case "debug":
		l.SetLevel(LevelDebug)
	case "info":
		l.SetLevel(LevelInfo)
	case "warn", "warning":
		l.SetLevel(LevelWarn)
	case "error":
		l.SetLevel(LevelError)
	default:
		l.SetLevel(LevelInfo)
	}
}

// SetFormatFromString accepts "json"; anything else selects text.
func (l *Logger) SetFormatFromString(format string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if strings.EqualFold(format, "json") {
		l.format = FormatJSON
	} else {
		l.format = FormatText
	}
}

// SetOutput redirects the logger, typically to capture output in tests and
// tools.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
	l.logger.SetOutput(w)
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

// GetLevelString returns the current log level as a string
func (l *Logger) GetLevelString() string {
	return levelNames[l.GetLevel()]
}

// GetLevelString returns the default logger's level as a string
func GetLevelString() string {
	return Default().GetLevelString()
}

type jsonLine struct {
	Time      string `json:"time"`
	Level     string `json:"level"`
	Component string `json:"component,omitempty"`
	Msg       string `json:"msg"`
}

func (l *Logger) log(level Level, component, format string, args ...interface{}) {
	l.mu.RLock()
	currentLevel, fmtKind, out := l.level, l.format, l.out
	l.mu.RUnlock()

	if level < currentLevel {
		return
	}

	msg := fmt.Sprintf(format, args...)
	if fmtKind == FormatJSON {
		line, err := json.Marshal(jsonLine{
			Time:      time.Now().UTC().Format(time.RFC3339),
			Level:     levelNames[level],
			Component: component,
			Msg:       msg,
		})
		if err == nil {
			l.mu.Lock()
			_, _ = out.Write(append(line, '\n'))
			l.mu.Unlock()
		}
		return
	}
	if component != "" {
		msg = component + ": " + msg
	}
	l.logger.Printf("[%s] %s", levelNames[level], msg)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, "", format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, "", format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, "", format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LevelError, "", format, args...)
}

// Component tags every message with the name of the package or subsystem
// that produced it.
type Component struct {
	name   string
	logger *Logger
}

// For returns a component logger backed by the default logger.
func For(name string) Component {
	return Component{name: name}
}

// With returns a component logger backed by l.
func (l *Logger) With(name string) Component {
	return Component{name: name, logger: l}
}

func (c Component) base() *Logger {
	if c.logger != nil {
		return c.logger
	}
	return Default()
}

func (c Component) Debug(format string, args ...interface{}) {
	c.base().log(LevelDebug, c.name, format, args...)
}

func (c Component) Info(format string, args ...interface{}) {
	c.base().log(LevelInfo, c.name, format, args...)
}

func (c Component) Warn(format string, args ...interface{}) {
	c.base().log(LevelWarn, c.name, format, args...)
}

func (c Component) Error(format string, args ...interface{}) {
	c.base().log(LevelError, c.name, format, args...)
}

// Package-level convenience functions

// SetLevel sets the default logger's level
func SetLevel(level Level) {
	Default().SetLevel(level)
}

// SetLevelFromString sets the default logger's level from a string
func SetLevelFromString(levelStr string) {
	Default().SetLevelFromString(levelStr)
}

// SetFormatFromString sets the default logger's output format
func SetFormatFromString(format string) {
	Default().SetFormatFromString(format)
}

// SetOutput redirects the default logger
func SetOutput(w io.Writer) {
	Default().SetOutput(w)
}

// Debug logs a debug message to the default logger
func Debug(format string, args ...interface{}) {
	Default().Debug(format, args...)
}

// Info logs an info message to the default logger
func Info(format string, args ...interface{}) {
	Default().Info(format, args...)
}

// Warn logs a warning message to the default logger
func Warn(format string, args ...interface{}) {
	Default().Warn(format, args...)
}

// Error logs an error message to the default logger
func Error(format string, args ...interface{}) {
	Default().Error(format, args...)
}
