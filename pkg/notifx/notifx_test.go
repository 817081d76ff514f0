package notifx_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Abraxas-365/rentify/pkg/logx"
	"github.com/Abraxas-365/rentify/pkg/notifx"
	"github.com/Abraxas-365/rentify/pkg/notifx/notifxconsole"
)

func init() {
	logx.SetLevel(logx.LevelOff)
}

func newClient() (*notifx.Client, *notifxconsole.ConsoleProvider) {
	provider := notifxconsole.NewConsoleProvider()
	return notifx.NewClient(provider,
		notifx.WithDefaultFrom("noreply@rentify.test", "Rentify"),
		notifx.WithAppURL("https://rentify.test"),
	), provider
}

func TestClient_BuiltinTemplates(t *testing.T) {
	c, _ := newClient()
	want := []string{"password_reset", "rental_confirmation", "rental_reminder", "review_request", "welcome"}
	if got := strings.Join(c.Templates().Names(), ","); got != strings.Join(want, ",") {
		t.Fatalf("templates = %s", got)
	}
}

func TestClient_SendTemplatedEmail(t *testing.T) {
	c, provider := newClient()

	err := c.SendTemplatedEmail(context.Background(), notifx.TemplateReviewRequest, []string{"ana@example.com"}, map[string]any{
		"name":      "Ana",
		"itemTitle": "Camping tent",
		"rentalId":  "r-42",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	sent := provider.Sent()
	if len(sent) != 1 {
		t.Fatalf("sent %d messages", len(sent))
	}
	msg := sent[0]
	if msg.Subject != "How was Camping tent?" {
		t.Fatalf("subject = %q", msg.Subject)
	}
	if msg.From != "Rentify <noreply@rentify.test>" {
		t.Fatalf("from = %q", msg.From)
	}
	if !strings.Contains(msg.TextBody, "https://rentify.test/rentals/r-42/review") {
		t.Fatalf("text body missing link: %q", msg.TextBody)
	}
	if !strings.Contains(msg.HTMLBody, "Hi Ana") {
		t.Fatalf("html body missing name: %q", msg.HTMLBody)
	}
}

func TestClient_OptionalFieldsFallBack(t *testing.T) {
	c, provider := newClient()

	if err := c.SendTemplatedEmail(context.Background(), notifx.TemplateWelcome, []string{"x@example.com"}, nil); err != nil {
		t.Fatalf("send: %v", err)
	}
	msg := provider.Sent()[0]
	if msg.Subject != "Welcome to Rentify!" || !strings.HasPrefix(msg.TextBody, "Hi there,") {
		t.Fatalf("unexpected fallback rendering: %q / %q", msg.Subject, msg.TextBody)
	}
}

func TestClient_Validation(t *testing.T) {
	c, provider := newClient()
	ctx := context.Background()

	tests := map[string]notifx.EmailMessage{
		"no recipients":     {Subject: "x"},
		"invalid recipient": {To: []string{"nope"}, Subject: "x"},
		"empty subject":     {To: []string{"a@example.com"}},
	}
	for name, msg := range tests {
		t.Run(name, func(t *testing.T) {
			if err := c.SendEmail(ctx, msg); !errors.Is(err, notifx.ErrInvalidMessage) {
				t.Fatalf("expected INVALID_MESSAGE, got %v", err)
			}
		})
	}

	if err := c.SendTemplatedEmail(ctx, "missing", []string{"a@example.com"}, nil); !errors.Is(err, notifx.ErrTemplateNotFound) {
		t.Fatalf("expected TEMPLATE_NOT_FOUND, got %v", err)
	}
	if len(provider.Sent()) != 0 {
		t.Fatal("nothing should have been sent")
	}
}

func TestTemplateRegistry_RejectsBadTemplates(t *testing.T) {
	r := notifx.NewTemplateRegistry()
	if err := r.Register("blank", notifx.Template{Text: "body"}); !errors.Is(err, notifx.ErrTemplateParse) {
		t.Fatalf("blank subject: got %v", err)
	}
	if err := r.Register("broken", notifx.Template{Subject: "{{.x"}); !errors.Is(err, notifx.ErrTemplateParse) {
		t.Fatalf("broken subject: got %v", err)
	}
}
