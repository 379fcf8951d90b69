package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/http"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// Transport sends a rendered message somewhere.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, msg Message) error

// Send calls f.
func (f TransportFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// sendMailFunc matches smtp.SendMail.
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPTransport delivers messages as HTML email.
type SMTPTransport struct {
	addr     string
	auth     smtp.Auth
	from     string
	sendMail sendMailFunc
}

// NewSMTPTransport creates a transport for host:port. Authentication is
// PLAIN and only used when username is set. from is used when a message
// names no sender.
func NewSMTPTransport(host string, port int, username, password, from string) *SMTPTransport {
	t := &SMTPTransport{
		addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		from:     from,
		sendMail: smtp.SendMail,
	}
	if username != "" {
		t.auth = smtp.PlainAuth("", username, password, host)
	}
	return t
}

// Send implements Transport. net/smtp has no context support, so ctx is
// only checked before dialing.
func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(msg.Recipients) == 0 {
		return ErrNoRecipients
	}
	from := t.from
	if len(msg.Senders) > 0 {
		from = msg.Senders[0]
	}
	if from == "" {
		return fmt.Errorf("smtp: no sender address")
	}

	data, err := buildMIME(from, msg)
	if err != nil {
		return err
	}
	if err := t.sendMail(t.addr, t.auth, from, msg.Recipients, data); err != nil {
		return fmt.Errorf("smtp send via %s: %w", t.addr, err)
	}
	return nil
}

// buildMIME assembles a single-part HTML message. Every sender is listed in
// From; the first one is the envelope sender. The body is quoted-printable
// so no line exceeds the SMTP limit.
func buildMIME(from string, msg Message) ([]byte, error) {
	senders := msg.Senders
	if len(senders) == 0 {
		senders = []string{from}
	}
	for _, addr := range append(append([]string{}, senders...), msg.Recipients...) {
		if strings.ContainsAny(addr, "\r\n") {
			return nil, fmt.Errorf("smtp: address %q contains a line break", addr)
		}
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", strings.Join(senders, ", "))
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.Recipients, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("Content-Transfer-Encoding: quoted-printable\r\n")
	b.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&b)
	if _, err := qp.Write([]byte(msg.Body)); err != nil {
		return nil, fmt.Errorf("encoding body: %w", err)
	}
	if err := qp.Close(); err != nil {
		return nil, fmt.Errorf("encoding body: %w", err)
	}
	return b.Bytes(), nil
}

// WebhookTransport POSTs each message as JSON.
type WebhookTransport struct {
	url    string
	client *http.Client
}

// NewWebhookTransport creates a transport posting to url. A zero timeout
// uses 10 seconds.
func NewWebhookTransport(url string, timeout time.Duration) *WebhookTransport {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookTransport{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Send implements Transport.
func (t *WebhookTransport) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshalling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
