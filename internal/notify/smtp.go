package notify

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/suspectsources/internal/models"
	"gopkg.in/gomail.v2"
)

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPNotifier sends plain-text mail through gomail.
type SMTPNotifier struct {
	from   string
	sender sender
}

func NewSMTPNotifier(host string, port int, username, password, from string) *SMTPNotifier {
	if from == "" {
		from = username
	}
	return &SMTPNotifier{from: from, sender: gomail.NewDialer(host, port, username, password)}
}

func (n *SMTPNotifier) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := n.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (n *SMTPNotifier) SendCredentials(ctx context.Context, to, username, password string) error {
	body := fmt.Sprintf("An account has been created for you.\n\n"+
		"Username: %s\nPassword: %s\n\n"+
		"You will be asked to change the password at first login.\n", username, password)
	return n.send(ctx, to, "Your account", body)
}

func (n *SMTPNotifier) SendPasswordChanged(ctx context.Context, to, username string) error {
	body := fmt.Sprintf("The password of account %s was changed.\n"+
		"If you did not do this, contact an administrator.\n", username)
	return n.send(ctx, to, "Password changed", body)
}

func (n *SMTPNotifier) SendNewSource(ctx context.Context, to string, s *models.Source) error {
	body := fmt.Sprintf("A new suspect source was registered.\n\n"+
		"Name: %s\nURL: %s\nThreat level: %d\nDescription: %s\n",
		s.Name, s.URL, s.ThreatLevel, s.Description)
	return n.send(ctx, to, "New suspect source", body)
}
