package smtp

import (
	"strings"
	"testing"
)

func TestBuildMessageMultipart(t *testing.T) {
	body, headers := buildMessage(
		"locker@example.com",
		"alice@example.com",
		"Your Secret is Ready",
		nil,
		nil,
		"plain text body",
		"<p>html body</p>",
	)

	for _, want := range []string{
		"From: locker@example.com",
		"To: alice@example.com",
		"Subject: Your Secret is Ready",
		"MIME-Version: 1.0",
		"multipart/alternative; boundary=",
	} {
		if !strings.Contains(headers, want) {
			t.Fatalf("headers missing %q:\n%s", want, headers)
		}
	}
	if !strings.Contains(body, "plain text body") {
		t.Fatal("body missing text part")
	}
	if !strings.Contains(body, "<p>html body</p>") {
		t.Fatal("body missing html part")
	}
	if !strings.Contains(body, "Content-Type: text/html; charset=UTF-8") {
		t.Fatal("body missing html content type")
	}
}

func TestBuildMessagePlainOnly(t *testing.T) {
	body, headers := buildMessage("a@example.com", "b@example.com", "s", nil, nil, "text", "")
	if body != "text" {
		t.Fatalf("expected plain body, got %q", body)
	}
	if !strings.Contains(headers, "Content-Type: text/plain; charset=UTF-8") {
		t.Fatalf("expected plain content type:\n%s", headers)
	}
}

func TestBuildMessageHeaderOverrides(t *testing.T) {
	_, headers := buildMessage("a@example.com", "b@example.com", "s",
		map[string]string{"X-Priority": "1", "X-Empty": ""},
		map[string]string{"X-Mailer": "locker"},
		"text", "")
	if !strings.Contains(headers, "X-Priority: 1") {
		t.Fatal("message header not applied")
	}
	if !strings.Contains(headers, "X-Mailer: locker") {
		t.Fatal("config header not applied")
	}
	if strings.Contains(headers, "X-Empty") {
		t.Fatal("empty header should be skipped")
	}
}

func TestHTMLToText(t *testing.T) {
	text := htmlToText("<p>You can retrieve your secret using the link below:</p>")
	if strings.Contains(text, "<p>") {
		t.Fatalf("expected tags stripped, got %q", text)
	}
	if !strings.Contains(text, "retrieve your secret") {
		t.Fatalf("expected content preserved, got %q", text)
	}
}
