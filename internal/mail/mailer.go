package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/ferdikurnia/mailblast/internal/domain"
)

// Message is a single rendered email ready for delivery.
type Message struct {
	To       string
	ToName   string
	Subject  string
	HTMLBody string
}

func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return fmt.Errorf("recipient address is required")
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("subject is required")
	}
	return nil
}

// Mailer delivers one message through one SMTP source. Implementations
// perform a single delivery attempt; retry policy lives with the caller.
type Mailer interface {
	Send(ctx context.Context, cfg domain.SmtpConfig, msg Message) error
}

// GomailMailer dials a fresh SMTP connection per send so a broken
// connection from a failed attempt never leaks into the next one.
type GomailMailer struct {
	insecureSkipVerify bool
}

func NewGomailMailer() *GomailMailer {
	return &GomailMailer{}
}

func (g *GomailMailer) Send(ctx context.Context, cfg domain.SmtpConfig, msg Message) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}
	if strings.TrimSpace(cfg.Host) == "" || cfg.Port <= 0 {
		return fmt.Errorf("%w: smtp host and port are required", domain.ErrValidation)
	}

	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.SSL = cfg.Secure
	if g.insecureSkipVerify {
		dialer.TLSConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // operator opt-in
	}

	m := compose(cfg, msg)

	done := make(chan error, 1)
	go func() {
		done <- dialer.DialAndSend(m)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp delivery via %s:%d failed: %w", cfg.Host, cfg.Port, err)
		}
		return nil
	}
}

// compose builds the wire message. Addresses and display names are
// ASCII-sanitized alike: an 8-bit local-part fails address encoding on
// strict relays just as an 8-bit display name does.
func compose(cfg domain.SmtpConfig, msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", sanitizeHeader(cfg.FromEmail), sanitizeHeader(cfg.FromName))
	m.SetAddressHeader("To", sanitizeHeader(msg.To), sanitizeHeader(msg.ToName))
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTMLBody)
	return m
}

var nonASCII = regexp.MustCompile(`[^\x00-\x7F]`)

// sanitizeHeader strips non-ASCII runes from a header value. Some relays
// reject 8-bit header content outright instead of negotiating an encoding.
func sanitizeHeader(s string) string {
	return strings.TrimSpace(nonASCII.ReplaceAllString(s, ""))
}
