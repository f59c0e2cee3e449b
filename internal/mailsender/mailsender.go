package mailsender

import (
	"encoding/json"
	"fmt"

	"session_service/internal/models"

	"gopkg.in/gomail.v2"
)

type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type Mailer struct {
	from   string
	dialer Dialer
}

func New(host string, port int, username, password string) *Mailer {
	return NewWithDialer(username, gomail.NewDialer(host, port, username, password))
}

func NewWithDialer(from string, dialer Dialer) *Mailer {
	return &Mailer{
		from:   from,
		dialer: dialer,
	}
}

func (m *Mailer) Send(msg models.Message) error {
	const op = "mailsender.Send"

	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.Email)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/html", msg.Body)

	if err := m.dialer.DialAndSend(gm); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// HandleDelivery decodes a queued message and sends it.
func (m *Mailer) HandleDelivery(body []byte) error {
	const op = "mailsender.HandleDelivery"

	var msg models.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if msg.Email == "" {
		return fmt.Errorf("%s: empty recipient", op)
	}

	return m.Send(msg)
}
