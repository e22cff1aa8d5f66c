// Package notify delivers user-visible informational and success messages to
// the surrounding UI. Posting is fire-and-forget: the pipeline never waits on
// a sink and sink failures never affect a run's outcome.
package notify

import "github.com/hashdesk/intent-engine/pkg/logger"

// Kind classifies a message for UI presentation.
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Message is one chat/log entry shown to the user.
type Message struct {
	Kind        Kind
	Text        string
	ExplorerURL string
}

// Sink receives messages. Implementations must not block.
type Sink interface {
	Post(msg Message)
}

// LogSink writes messages to the service log. Used when no UI is attached.
type LogSink struct {
	Logger logger.Logger
}

var _ Sink = (*LogSink)(nil)

func (s *LogSink) Post(msg Message) {
	if s.Logger == nil {
		return
	}
	if msg.ExplorerURL != "" {
		s.Logger.Notice("%s: %s (%s)", msg.Kind, msg.Text, msg.ExplorerURL)
		return
	}
	s.Logger.Notice("%s: %s", msg.Kind, msg.Text)
}

// NullSink discards everything.
type NullSink struct{}

var _ Sink = (*NullSink)(nil)

func (NullSink) Post(Message) {}
