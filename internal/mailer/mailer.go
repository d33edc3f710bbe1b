package mailer

import (
	"context"
	"fmt"
	"log"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer delivers notification emails. The worker fans broadcasts out
// through whichever implementation the config selects.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Console logs messages instead of sending them; the dev default.
type Console struct {
	From string
}

// Send writes the message to the log.
func (c *Console) Send(_ context.Context, to, subject, body string) error {
	log.Printf("mail to=%s subject=%q\nFrom: %s\n\n%s\n", to, subject, c.From, body)
	return nil
}

// Sendgrid sends through the SendGrid API.
type Sendgrid struct {
	client *sendgrid.Client
	from   *sgmail.Email
}

// NewSendgrid creates a SendGrid-backed mailer.
func NewSendgrid(apiKey, from string) *Sendgrid {
	return &Sendgrid{
		client: sendgrid.NewSendClient(apiKey),
		from:   sgmail.NewEmail("A+ Attendance", from),
	}
}

// Send delivers one message; non-2xx API responses are errors.
func (s *Sendgrid) Send(_ context.Context, to, subject, body string) error {
	msg := sgmail.NewSingleEmail(s.from, subject, sgmail.NewEmail("", to), body, "")
	resp, err := s.client.Send(msg)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
