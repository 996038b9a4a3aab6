package mail

import (
	"context"
	"strings"
	"testing"
)

func TestBuildMessageMultipart(t *testing.T) {
	t.Parallel()

	msg := buildMessage("noreply@example.com", "user@example.com", "Verify your email",
		"<p>Hello</p>", "Hello")

	for _, want := range []string{
		"From: noreply@example.com",
		"To: user@example.com",
		"Subject: Verify your email",
		"multipart/alternative",
		"text/plain; charset=UTF-8",
		"text/html; charset=UTF-8",
		"<p>Hello</p>",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q", want)
		}
	}
	if !strings.HasSuffix(strings.TrimRight(msg, "\r\n"), "--"+multipartBoundary+"--") {
		t.Error("multipart message not terminated with closing boundary")
	}
}

func TestBuildMessageSinglePart(t *testing.T) {
	t.Parallel()

	textOnly := buildMessage("a@example.com", "b@example.com", "Hi", "", "plain body")
	if strings.Contains(textOnly, "multipart") {
		t.Error("text-only message should not be multipart")
	}
	if !strings.Contains(textOnly, "text/plain") || !strings.Contains(textOnly, "plain body") {
		t.Error("text-only message missing plain part")
	}

	htmlOnly := buildMessage("a@example.com", "b@example.com", "Hi", "<b>hi</b>", "")
	if !strings.Contains(htmlOnly, "text/html") || !strings.Contains(htmlOnly, "<b>hi</b>") {
		t.Error("html-only message missing html part")
	}
}

func TestSubjectHeaderInjectionStripped(t *testing.T) {
	t.Parallel()

	msg := buildMessage("a@example.com", "b@example.com", "Hi\r\nBcc: victim@example.com", "", "body")
	if strings.Contains(msg, "\r\nBcc:") {
		t.Error("CRLF in subject was not stripped")
	}
	if !strings.Contains(msg, "Subject: HiBcc: victim@example.com") {
		t.Errorf("unexpected subject folding: %q", msg)
	}
}

func TestSendRejectsEmptyBody(t *testing.T) {
	t.Parallel()

	m := NewSMTPMailer(SMTPConfig{Host: "localhost", Port: "2525", FromAddress: "a@example.com"})
	if err := m.Send(context.Background(), "b@example.com", "subject", "", ""); err == nil {
		t.Fatal("expected error for empty body")
	}
}
