package alerts

import (
	"context"
	"time"

	"github.com/gregdel/pushover"
	"github.com/pkg/errors"
)

// Pusher dispatches one composed alert to the push provider.
type Pusher interface {
	Push(ctx context.Context, title, message string) error
}

// PushoverClient sends alerts through the Pushover API.
type PushoverClient struct {
	app       *pushover.Pushover
	recipient *pushover.Recipient
	priority  int
	timeout   time.Duration
}

// NewPushoverClient creates a push client. priority follows the Pushover
// scale (0 default).
func NewPushoverClient(token, userKey string, priority int, timeout time.Duration) *PushoverClient {
	return &PushoverClient{
		app:       pushover.New(token),
		recipient: pushover.NewRecipient(userKey),
		priority:  priority,
		timeout:   timeout,
	}
}

// Push dispatches the message, bounded by the configured timeout.
func (c *PushoverClient) Push(ctx context.Context, title, message string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		msg := &pushover.Message{
			Title:    title,
			Message:  message,
			Priority: c.priority,
		}
		_, err := c.app.SendMessage(msg, c.recipient)
		done <- err
	}()

	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "push dispatch timed out")
	case err := <-done:
		return errors.Wrap(err, "push dispatch")
	}
}
