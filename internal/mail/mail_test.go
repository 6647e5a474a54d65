package mail

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devtrack/internal/config"
	"devtrack/internal/logging"
)

func TestRenderTaskAssignment(t *testing.T) {
	due := time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC)

	subject, html, err := RenderTaskAssignment(TaskAssignment{
		AssigneeName:  "Bob Smith",
		Title:         "Write docs",
		Description:   "Explain the <API>",
		DueDate:       &due,
		ProjectID:     "5f0c",
		ProjectName:   "Backend",
		WorkspaceID:   "org_1",
		WorkspaceName: "Acme",
		Origin:        "https://app.example.com/",
	})
	require.NoError(t, err)

	assert.Equal(t, "New Task Assignment: Write docs", subject)
	assert.Contains(t, html, "Write docs")
	assert.Contains(t, html, `href="https://app.example.com/workspace/org_1/project/5f0c"`)
	assert.Contains(t, html, "Mar 14, 2026")
	assert.Contains(t, html, "Explain the &lt;API&gt;")
}

func TestRenderTaskAssignment_OptionalFields(t *testing.T) {
	_, html, err := RenderTaskAssignment(TaskAssignment{Title: "Triage", WorkspaceID: "org_1", ProjectID: "p1"})
	require.NoError(t, err)
	assert.NotContains(t, html, "Due Date")
	assert.Contains(t, html, "/workspace/org_1/project/p1")
}

func TestTaskLink(t *testing.T) {
	assert.Equal(t, "http://localhost:5173/workspace/w/project/p", TaskLink("http://localhost:5173", "w", "p"))
	assert.Equal(t, "/workspace/w/project/p", TaskLink("", "w", "p"))
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	out   *sesv2.SendEmailOutput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = in
	return f.out, f.err
}

func TestSESSender_Send(t *testing.T) {
	fake := &fakeSES{out: &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}}
	sender := NewSESSenderWithClient(fake)

	err := sender.Send(context.Background(), Message{
		From:    "noreply@devtrack.test",
		To:      []string{"bob@example.com"},
		Subject: "New Task Assignment: Write docs",
		HTML:    "<p>hi</p>",
	})
	require.NoError(t, err)

	require.NotNil(t, fake.input)
	assert.Equal(t, "noreply@devtrack.test", aws.ToString(fake.input.FromEmailAddress))
	assert.Equal(t, []string{"bob@example.com"}, fake.input.Destination.ToAddresses)
	assert.Equal(t, "New Task Assignment: Write docs", aws.ToString(fake.input.Content.Simple.Subject.Data))
	assert.Equal(t, "<p>hi</p>", aws.ToString(fake.input.Content.Simple.Body.Html.Data))
}

func TestSESSender_Errors(t *testing.T) {
	transportErr := errors.New("throttled")
	sender := NewSESSenderWithClient(&fakeSES{err: transportErr})

	msg := Message{From: "noreply@devtrack.test", To: []string{"bob@example.com"}}
	assert.ErrorIs(t, sender.Send(context.Background(), msg), transportErr)

	assert.ErrorIs(t, sender.Send(context.Background(), Message{From: "noreply@devtrack.test"}), ErrNoRecipient)

	empty := NewSESSenderWithClient(&fakeSES{out: &sesv2.SendEmailOutput{}})
	assert.Error(t, empty.Send(context.Background(), msg))
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	err := NewLogSender(logger).Send(context.Background(), Message{
		From:    "noreply@devtrack.test",
		To:      []string{"bob@example.com"},
		Subject: "hello",
	})
	require.NoError(t, err)
	assert.True(t, strings.Contains(buf.String(), "bob@example.com"))
}

func TestBuildMsg(t *testing.T) {
	_, err := buildMsg(Message{From: "not an address", To: []string{"bob@example.com"}})
	assert.Error(t, err)

	m, err := buildMsg(Message{From: "noreply@devtrack.test", To: []string{"bob@example.com"}, Subject: "s", HTML: "<b>x</b>"})
	require.NoError(t, err)
	assert.Equal(t, []string{"s"}, m.GetGenHeader("Subject"))
}

func TestNewSender(t *testing.T) {
	logger := logging.Discard()

	s, err := NewSender(context.Background(), config.MailConfig{Transport: config.MailTransportLog}, logger)
	require.NoError(t, err)
	assert.IsType(t, &LogSender{}, s)

	s, err = NewSender(context.Background(), config.MailConfig{
		Transport: config.MailTransportSMTP,
		SMTPHost:  "smtp.example.com",
		SMTPPort:  587,
		SMTPUser:  "user",
		SMTPPass:  "pass",
	}, logger)
	require.NoError(t, err)
	assert.IsType(t, &SMTPSender{}, s)

	s, err = NewSender(context.Background(), config.MailConfig{
		Transport:          config.MailTransportSES,
		AWSRegion:          "eu-central-1",
		AWSAccessKeyID:     "AKIA",
		AWSSecretAccessKey: "secret",
	}, logger)
	require.NoError(t, err)
	assert.IsType(t, &SESSender{}, s)

	_, err = NewSender(context.Background(), config.MailConfig{Transport: "pigeon"}, logger)
	assert.Error(t, err)
}
