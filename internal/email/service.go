package email

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// TemplateElement is used by a renderer to identify the different parts of an email template.
type TemplateElement string

const (
	ElementSubject  TemplateElement = "subject"
	ElementHTMLBody TemplateElement = "html_body"
	ElementTextBody TemplateElement = "text_body"
)

// Elements lists all template elements that make up a message.
func Elements() []TemplateElement {
	return []TemplateElement{ElementSubject, ElementHTMLBody, ElementTextBody}
}

// Message is a rendered email message.
type Message struct {
	Subject  string
	HTMLBody string
	TextBody string
}

// Renderer is responsible for rendering email templates.
type Renderer interface {
	Render(w io.Writer, name string, element TemplateElement, data any) error
}

// Sender is responsible for actually sending an email.
type Sender interface {
	Send(ctx context.Context, from, recipient Address, msg Message) error
}

// Service renders email templates and hands the result to a sender.
type Service struct {
	renderer Renderer
	sender   Sender
	from     Address
}

func NewService(renderer Renderer, sender Sender, from Address) *Service {
	return &Service{
		renderer: renderer,
		sender:   sender,
		from:     from,
	}
}

// Send renders the template with the provided name and sends the
// resulting message to the recipient.
func (s *Service) Send(ctx context.Context, name string, recipient Address, data any) error {
	var msg Message

	targets := map[TemplateElement]*string{
		ElementSubject:  &msg.Subject,
		ElementHTMLBody: &msg.HTMLBody,
		ElementTextBody: &msg.TextBody,
	}

	for _, element := range Elements() {
		var sb strings.Builder
		if err := s.renderer.Render(&sb, name, element, data); err != nil {
			return fmt.Errorf("failed to render %s of email %q: %w", element, name, err)
		}

		*targets[element] = strings.TrimSpace(sb.String())
	}

	if err := s.sender.Send(ctx, s.from, recipient, msg); err != nil {
		return fmt.Errorf("failed to send email %q: %w", name, err)
	}

	return nil
}
