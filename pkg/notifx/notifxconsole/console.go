package notifxconsole

import (
	"context"
	"strings"
	"sync"

	"github.com/Abraxas-365/rentify/pkg/logx"
	"github.com/Abraxas-365/rentify/pkg/notifx"
)

// ConsoleProvider logs emails through logx instead of delivering them.
// It keeps the sent messages so tests and local runs can inspect them.
type ConsoleProvider struct {
	mu   sync.Mutex
	sent []notifx.EmailMessage
}

func NewConsoleProvider() *ConsoleProvider {
	return &ConsoleProvider{}
}

func (p *ConsoleProvider) SendEmail(_ context.Context, msg notifx.EmailMessage, opts ...notifx.Option) error {
	so := notifx.ApplySendOptions(opts)

	p.mu.Lock()
	p.sent = append(p.sent, msg)
	p.mu.Unlock()

	logx.WithFields(logx.Fields{
		"from":     msg.From,
		"to":       strings.Join(msg.To, ", "),
		"subject":  msg.Subject,
		"template": so.Tags["template"],
	}).Info("notifx/console: email sent (dev mode)")

	if msg.TextBody != "" {
		logx.Debugf("notifx/console: text body:\n%s", msg.TextBody)
	}
	return nil
}

// Sent returns a copy of every message sent so far.
func (p *ConsoleProvider) Sent() []notifx.EmailMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]notifx.EmailMessage, len(p.sent))
	copy(out, p.sent)
	return out
}
