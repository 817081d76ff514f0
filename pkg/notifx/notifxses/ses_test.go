package notifxses_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Abraxas-365/rentify/pkg/notifx"
	"github.com/Abraxas-365/rentify/pkg/notifx/notifxses"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
)

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("m-1")}, nil
}

func TestSESProvider_BuildsInput(t *testing.T) {
	fake := &fakeSES{}
	p := notifxses.NewSESProvider(fake, "noreply@rentify.test", "default-set")

	err := p.SendEmail(context.Background(), notifx.EmailMessage{
		To:       []string{"ana@example.com"},
		Subject:  "Hello",
		TextBody: "plain",
	}, notifx.WithConfigID("transactional"), notifx.WithTags(map[string]string{"template": "welcome"}))
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	in := fake.input
	if aws.ToString(in.Source) != "noreply@rentify.test" {
		t.Fatalf("source = %q", aws.ToString(in.Source))
	}
	if in.Message.Body.Html != nil || aws.ToString(in.Message.Body.Text.Data) != "plain" {
		t.Fatalf("unexpected body: %+v", in.Message.Body)
	}
	if aws.ToString(in.ConfigurationSetName) != "transactional" {
		t.Fatalf("configuration set = %q", aws.ToString(in.ConfigurationSetName))
	}
	if len(in.Tags) != 1 || aws.ToString(in.Tags[0].Value) != "welcome" {
		t.Fatalf("unexpected tags: %+v", in.Tags)
	}
}

func TestSESProvider_DefaultConfigurationSet(t *testing.T) {
	fake := &fakeSES{}
	p := notifxses.NewSESProvider(fake, "noreply@rentify.test", "default-set")

	if err := p.SendEmail(context.Background(), notifx.EmailMessage{To: []string{"a@b.c"}, Subject: "x", HTMLBody: "<p>x</p>"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if aws.ToString(fake.input.ConfigurationSetName) != "default-set" {
		t.Fatalf("configuration set = %q", aws.ToString(fake.input.ConfigurationSetName))
	}
	if fake.input.Message.Body.Text != nil {
		t.Fatal("text part should be omitted")
	}
}

func TestSESProvider_WrapsFailure(t *testing.T) {
	p := notifxses.NewSESProvider(&fakeSES{err: errors.New("throttled")}, "noreply@rentify.test", "")

	err := p.SendEmail(context.Background(), notifx.EmailMessage{To: []string{"a@b.c"}, Subject: "x"})
	if !errors.Is(err, notifxses.ErrSendFailed) {
		t.Fatalf("expected SEND_FAILED, got %v", err)
	}
}
