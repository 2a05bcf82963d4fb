// Package notify delivers human-readable messages. Delivery is best effort:
// failures are logged and never reach the caller.
package notify

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-riskbot/internal/logger"
	"github.com/rxtech-lab/argo-riskbot/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Message is a text with an optional PNG attachment.
type Message struct {
	Text      string
	Image     []byte
	ImageName string
}

// Sink accepts messages without reporting failures.
type Sink interface {
	Send(ctx context.Context, msg Message)
}

// Sender is one delivery channel.
type Sender interface {
	Name() string
	Deliver(ctx context.Context, msg Message) error
}

// Notifier fans a message out to every sender concurrently.
type Notifier struct {
	senders []Sender
	log     *logger.Logger
	timeout time.Duration
}

// NewNotifier bounds each delivery by timeout; zero means no bound.
func NewNotifier(log *logger.Logger, timeout time.Duration, senders ...Sender) *Notifier {
	return &Notifier{senders: senders, log: log, timeout: timeout}
}

func (n *Notifier) Send(ctx context.Context, msg Message) {
	var g errgroup.Group

	for _, s := range n.senders {
		g.Go(func() error {
			sendCtx := ctx
			if n.timeout > 0 {
				var cancel context.CancelFunc

				sendCtx, cancel = context.WithTimeout(ctx, n.timeout)
				defer cancel()
			}

			if err := s.Deliver(sendCtx, msg); err != nil {
				err = errors.Wrapf(errors.ErrCodeNotificationFailed, err, "%s delivery failed", s.Name())
				n.log.Warn("Notification not delivered", zap.String("sender", s.Name()), zap.Error(err))
			}

			return nil
		})
	}

	_ = g.Wait()
}

// LogSender writes messages to the log. It is always available.
type LogSender struct {
	log *logger.Logger
}

func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{log: log}
}

func (l *LogSender) Name() string {
	return "log"
}

func (l *LogSender) Deliver(_ context.Context, msg Message) error {
	l.log.Info("Notification", zap.String("text", msg.Text), zap.Bool("has_image", len(msg.Image) > 0))

	return nil
}
