package notify

import (
	"context"
	"log"
	"time"
)

// LogChannel writes messages to a logger instead of the network. Used for
// dry runs and when no webhook is configured.
type LogChannel struct {
	Logger *log.Logger
}

func (l *LogChannel) Send(_ context.Context, content string) error {
	l.Logger.Printf("notify: %s", content)
	return nil
}

// Throttled drops messages arriving faster than a minimum interval. The
// monitor uses it to keep rapid event bursts from flooding the chat.
type Throttled struct {
	ch       Channel
	min      time.Duration
	now      func() time.Time
	lastSent time.Time
}

// NewThrottled wraps ch with a minimum send interval.
func NewThrottled(ch Channel, min time.Duration) *Throttled {
	return &Throttled{ch: ch, min: min, now: time.Now}
}

// Send forwards content unless the previous send was too recent; dropped
// messages are not an error.
func (t *Throttled) Send(ctx context.Context, content string) error {
	now := t.now()
	if !t.lastSent.IsZero() && now.Sub(t.lastSent) < t.min {
		return nil
	}
	if err := t.ch.Send(ctx, content); err != nil {
		return err
	}
	t.lastSent = now
	return nil
}
