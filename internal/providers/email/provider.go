package email

import (
	"bytes"
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Message is a rendered HTML email.
type Message struct {
	To      []string
	Subject string
	HTML    string
}

// Template is an email whose body lives in templates/<TemplateName>.html.
type Template interface {
	TemplateName() string
	Subject() string
}

type Provider interface {
	Send(ctx context.Context, msg Message) error
	SendTemplate(ctx context.Context, to []string, tmpl Template) error
}

// Render executes tmpl into a message for to.
func Render(to []string, tmpl Template) (Message, error) {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, tmpl.TemplateName()+".html", tmpl); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", tmpl.TemplateName(), err)
	}
	return Message{To: to, Subject: tmpl.Subject(), HTML: body.String()}, nil
}

// disabledProvider is used when SMTP is not configured. Templates are still
// rendered so a broken template fails in development too.
type disabledProvider struct {
	log *zap.Logger
}

func (p *disabledProvider) Send(_ context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	p.log.Debug("email dropped", zap.String("subject", msg.Subject), zap.Int("recipients", len(msg.To)))
	return nil
}

func (p *disabledProvider) SendTemplate(ctx context.Context, to []string, tmpl Template) error {
	msg, err := Render(to, tmpl)
	if err != nil {
		return err
	}
	return p.Send(ctx, msg)
}
