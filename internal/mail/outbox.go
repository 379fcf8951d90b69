package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ziadkadry99/auto-report/internal/render"
)

// Outbox persists each message before handing it to a Transport, so failed
// sends can be retried later. It implements report.Mailer.
type Outbox struct {
	store     *Store
	transport Transport
	logger    zerolog.Logger
	document  bool
}

// OutboxOption configures an Outbox.
type OutboxOption func(*Outbox)

// WithLogger sets the logger used for delivery events.
func WithLogger(l zerolog.Logger) OutboxOption {
	return func(o *Outbox) { o.logger = l }
}

// WithDocument wraps each body in a standalone HTML page titled with the
// subject before it is stored.
func WithDocument() OutboxOption {
	return func(o *Outbox) { o.document = true }
}

// NewOutbox creates an Outbox.
func NewOutbox(store *Store, transport Transport, opts ...OutboxOption) *Outbox {
	o := &Outbox{
		store:     store,
		transport: transport,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Store returns the outbox's backing store.
func (o *Outbox) Store() *Store {
	return o.store
}

// Mail records the message and attempts delivery. When the send fails the
// delivery stays in the outbox as failed and the error is returned.
func (o *Outbox) Mail(ctx context.Context, subject string, recipients, senders []string, body string) error {
	_, err := o.Enqueue(ctx, Message{
		Subject:    subject,
		Recipients: recipients,
		Senders:    senders,
		Body:       body,
	})
	return err
}

// Enqueue is Mail returning the stored delivery.
func (o *Outbox) Enqueue(ctx context.Context, msg Message) (*Delivery, error) {
	if len(msg.Recipients) == 0 {
		return nil, ErrNoRecipients
	}
	if o.document {
		page, err := render.Document(msg.Body, render.DocumentOptions{Title: msg.Subject})
		if err != nil {
			return nil, fmt.Errorf("wrapping message body: %w", err)
		}
		msg.Body = page
	}

	d := &Delivery{Message: msg, Status: StatusPending}
	if err := o.store.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("creating delivery: %w", err)
	}
	o.logger.Debug().Str("delivery", d.ID).Strs("to", msg.Recipients).Msg("delivery queued")

	return o.deliver(ctx, d)
}

// Retry resends one delivery that is pending or failed.
func (o *Outbox) Retry(ctx context.Context, id string) (*Delivery, error) {
	d, err := o.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status == StatusSent {
		return d, fmt.Errorf("%w: %s", ErrAlreadySent, id)
	}
	return o.deliver(ctx, d)
}

// RetryPending resends every pending or failed delivery and reports how
// many went out. Failures of individual sends are logged and counted, not
// returned; only store errors abort the run.
func (o *Outbox) RetryPending(ctx context.Context) (sent, failed int, err error) {
	pending, err := o.store.GetPending(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("listing pending deliveries: %w", err)
	}
	for i := range pending {
		if err := ctx.Err(); err != nil {
			return sent, failed, err
		}
		_, sendErr := o.deliver(ctx, &pending[i])
		var se *SendError
		switch {
		case errors.As(sendErr, &se):
			failed++
		case sendErr != nil:
			return sent, failed, sendErr
		default:
			sent++
		}
	}
	return sent, failed, nil
}

// SendError reports a transport failure for a delivery that was recorded
// in the outbox and can be retried.
type SendError struct {
	ID  string
	Err error
}

func (e *SendError) Error() string { return fmt.Sprintf("delivering %s: %v", e.ID, e.Err) }
func (e *SendError) Unwrap() error { return e.Err }

func (o *Outbox) deliver(ctx context.Context, d *Delivery) (*Delivery, error) {
	sendErr := o.transport.Send(ctx, d.Message)
	if sendErr != nil {
		if err := o.store.MarkFailed(ctx, d.ID, sendErr); err != nil {
			return d, fmt.Errorf("recording failed delivery %s: %w", d.ID, err)
		}
		o.logger.Warn().Err(sendErr).Str("delivery", d.ID).Msg("delivery failed")
	} else {
		if err := o.store.MarkSent(ctx, d.ID); err != nil {
			return d, fmt.Errorf("recording sent delivery %s: %w", d.ID, err)
		}
		o.logger.Info().Str("delivery", d.ID).Str("subject", d.Subject).Msg("delivery sent")
	}

	updated, err := o.store.GetByID(ctx, d.ID)
	if err != nil {
		return d, err
	}
	if sendErr != nil {
		return updated, &SendError{ID: d.ID, Err: sendErr}
	}
	return updated, nil
}
