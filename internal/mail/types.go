package mail

import (
	"errors"
	"time"
)

// Status is the delivery state of an outbox entry.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

var (
	// ErrNotFound is returned when a delivery id is unknown.
	ErrNotFound = errors.New("delivery not found")
	// ErrAlreadySent is returned when retrying a delivery that succeeded.
	ErrAlreadySent = errors.New("delivery already sent")
	// ErrNoRecipients is returned when a message has nobody to go to.
	ErrNoRecipients = errors.New("no recipients")
)

// Message is a rendered report addressed for delivery.
type Message struct {
	Subject    string   `json:"subject"`
	Recipients []string `json:"recipients"`
	Senders    []string `json:"senders"`
	Body       string   `json:"body"`
}

// Delivery is a Message persisted in the outbox with its send history.
type Delivery struct {
	ID string `json:"id"`
	Message
	Status    Status     `json:"status"`
	Error     string     `json:"error,omitempty"`
	Attempts  int        `json:"attempts"`
	CreatedAt time.Time  `json:"created_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
}
