package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
)

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func testNotifier(api API) *SESNotifier {
	return NewWithAPI(api, Config{
		Sender:    "reports@example.com",
		Recipient: "team@example.com",
	})
}

func TestSend(t *testing.T) {
	api := &fakeSES{}
	n := testNotifier(api)

	err := n.Send(context.Background(), "Top 15 S3 Cost Report - 2026-08-24-01-00",
		"text body", "<html>body</html>")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	in := api.input
	if in == nil {
		t.Fatal("SendEmail not called")
	}
	if got := aws.ToString(in.Source); got != "reports@example.com" {
		t.Errorf("source = %q", got)
	}
	if len(in.Destination.ToAddresses) != 1 || in.Destination.ToAddresses[0] != "team@example.com" {
		t.Errorf("to = %v", in.Destination.ToAddresses)
	}

	subject := in.Message.Subject
	if got := aws.ToString(subject.Data); got != "Top 15 S3 Cost Report - 2026-08-24-01-00" {
		t.Errorf("subject = %q", got)
	}
	if got := aws.ToString(subject.Charset); got != "UTF-8" {
		t.Errorf("subject charset = %q", got)
	}
	if got := aws.ToString(in.Message.Body.Text.Data); got != "text body" {
		t.Errorf("text body = %q", got)
	}
	if got := aws.ToString(in.Message.Body.Html.Data); got != "<html>body</html>" {
		t.Errorf("html body = %q", got)
	}
	if got := aws.ToString(in.Message.Body.Html.Charset); got != "UTF-8" {
		t.Errorf("html charset = %q", got)
	}
}

func TestSendError(t *testing.T) {
	api := &fakeSES{err: errors.New("Email address is not verified")}
	n := testNotifier(api)

	err := n.Send(context.Background(), "s", "t", "h")
	if err == nil || !strings.Contains(err.Error(), "send email") {
		t.Errorf("err = %v, want send email wrap", err)
	}
}

func TestNewRequiresAddresses(t *testing.T) {
	if _, err := New(context.Background(), Config{Recipient: "a@b.c"}); err == nil {
		t.Error("expected error for missing sender")
	}
	if _, err := New(context.Background(), Config{Sender: "a@b.c"}); err == nil {
		t.Error("expected error for missing recipient")
	}
}
