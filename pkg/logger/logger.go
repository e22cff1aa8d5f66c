// Package logger provides leveled, chain-tagged logging for the pipeline.
package logger

import (
	"log"
	"sync"

	"github.com/fatih/color"
)

// Level represents the severity level of a log message.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	NoticeLevel
	ErrorLevel
)

var levelTags = map[Level]string{
	DebugLevel:  "[DEBUG]  ",
	InfoLevel:   "[INFO]   ",
	NoticeLevel: "[NOTICE] ",
	ErrorLevel:  "[ERROR]  ",
}

// chainTags maps chain IDs to short log prefixes.
var chainTags = map[int]string{
	1:     "[ETH]  ",
	56:    "[BSC]  ",
	137:   "[POL]  ",
	42161: "[ARB]  ",
	43114: "[AVA]  ",
	8453:  "[BASE] ",
	7000:  "[ZETA] ",
}

var chainColors = map[int]color.Attribute{
	1:     color.FgHiGreen,
	56:    color.FgYellow,
	137:   color.FgMagenta,
	42161: color.FgHiBlue,
	43114: color.FgRed,
	8453:  color.FgBlue,
	7000:  color.FgGreen,
}

// Logger is a simple interface for logging messages.
type Logger interface {
	Info(format string, args ...interface{})
	InfoWithChain(chainID int, format string, args ...interface{})

	Error(format string, args ...interface{})
	ErrorWithChain(chainID int, format string, args ...interface{})

	Debug(format string, args ...interface{})
	DebugWithChain(chainID int, format string, args ...interface{})

	Notice(format string, args ...interface{})
	NoticeWithChain(chainID int, format string, args ...interface{})
}

// EmptyLogger discards all messages. Useful in tests.
type EmptyLogger struct{}

var _ Logger = (*EmptyLogger)(nil)

func (l *EmptyLogger) Info(_ string, _ ...interface{})                   {}
func (l *EmptyLogger) InfoWithChain(_ int, _ string, _ ...interface{})   {}
func (l *EmptyLogger) Error(_ string, _ ...interface{})                  {}
func (l *EmptyLogger) ErrorWithChain(_ int, _ string, _ ...interface{})  {}
func (l *EmptyLogger) Debug(_ string, _ ...interface{})                  {}
func (l *EmptyLogger) DebugWithChain(_ int, _ string, _ ...interface{})  {}
func (l *EmptyLogger) Notice(_ string, _ ...interface{})                 {}
func (l *EmptyLogger) NoticeWithChain(_ int, _ string, _ ...interface{}) {}

// StdLogger logs to the standard log package with optional chain coloring.
type StdLogger struct {
	enableColoring bool
	level          Level
	mu             sync.Mutex
}

var _ Logger = (*StdLogger)(nil)

func NewStdLogger(enableColoring bool, level Level) *StdLogger {
	return &StdLogger{
		enableColoring: enableColoring,
		level:          level,
	}
}

func (l *StdLogger) logf(level Level, chainID int, format string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.level > level {
		return
	}

	tag := chainTags[chainID]
	if tag != "" && l.enableColoring {
		tag = color.New(chainColors[chainID]).Sprint(tag)
	}
	log.Printf(levelTags[level]+tag+format, args...)
}

func (l *StdLogger) Info(format string, args ...interface{}) { l.logf(InfoLevel, 0, format, args) }
func (l *StdLogger) InfoWithChain(chainID int, format string, args ...interface{}) {
	l.logf(InfoLevel, chainID, format, args)
}

func (l *StdLogger) Error(format string, args ...interface{}) { l.logf(ErrorLevel, 0, format, args) }
func (l *StdLogger) ErrorWithChain(chainID int, format string, args ...interface{}) {
	l.logf(ErrorLevel, chainID, format, args)
}

func (l *StdLogger) Debug(format string, args ...interface{}) { l.logf(DebugLevel, 0, format, args) }
func (l *StdLogger) DebugWithChain(chainID int, format string, args ...interface{}) {
	l.logf(DebugLevel, chainID, format, args)
}

func (l *StdLogger) Notice(format string, args ...interface{}) { l.logf(NoticeLevel, 0, format, args) }
func (l *StdLogger) NoticeWithChain(chainID int, format string, args ...interface{}) {
	l.logf(NoticeLevel, chainID, format, args)
}
