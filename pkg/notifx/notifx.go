package notifx

import (
	"context"
	"strings"
)

// EmailSender sends a single email. Providers implement it.
type EmailSender interface {
	SendEmail(ctx context.Context, msg EmailMessage, opts ...Option) error
}

// Client validates messages, renders templates and hands the result to
// a provider.
type Client struct {
	provider  EmailSender
	templates *TemplateRegistry
	from      string
	appURL    string
}

// NewClient creates a client with the built-in templates registered.
func NewClient(provider EmailSender, opts ...ClientOption) *Client {
	c := &Client{
		provider:  provider,
		templates: NewTemplateRegistry(),
	}
	for _, o := range opts {
		o(c)
	}
	for name, tmpl := range builtinTemplates {
		if err := c.templates.Register(name, tmpl); err != nil {
			panic(err)
		}
	}
	return c
}

func (c *Client) Templates() *TemplateRegistry {
	return c.templates
}

// SendEmail sends an email through the configured provider.
func (c *Client) SendEmail(ctx context.Context, msg EmailMessage, opts ...Option) error {
	if len(msg.To) == 0 {
		return notifxErrors.New(ErrInvalidMessage).WithDetail("reason", "no recipients")
	}
	for _, to := range msg.To {
		if !strings.Contains(to, "@") {
			return notifxErrors.New(ErrInvalidMessage).WithDetail("reason", "invalid recipient").WithDetail("to", to)
		}
	}
	if msg.Subject == "" {
		return notifxErrors.New(ErrInvalidMessage).WithDetail("reason", "empty subject")
	}
	if msg.From == "" {
		msg.From = c.from
	}
	return c.provider.SendEmail(ctx, msg, opts...)
}

// RegisterTemplate parses and stores a named template for later use.
func (c *Client) RegisterTemplate(name string, tmpl Template) error {
	return c.templates.Register(name, tmpl)
}

// SendTemplatedEmail renders the named template with data and sends it
// to the given recipients. data is extended with AppURL.
func (c *Client) SendTemplatedEmail(ctx context.Context, name string, to []string, data map[string]any, opts ...Option) error {
	vars := make(map[string]any, len(data)+1)
	for k, v := range data {
		vars[k] = v
	}
	if _, ok := vars["AppURL"]; !ok {
		vars["AppURL"] = c.appURL
	}

	rendered, err := c.templates.Render(name, vars)
	if err != nil {
		return err
	}

	return c.SendEmail(ctx, EmailMessage{
		To:       to,
		Subject:  rendered.Subject,
		TextBody: rendered.Text,
		HTMLBody: rendered.HTML,
	}, append([]Option{WithTags(map[string]string{"template": name})}, opts...)...)
}
