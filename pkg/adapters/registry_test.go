package adapters

import (
	"context"
	"errors"
	"testing"
)

type stubMessenger struct {
	name     string
	channels []string
}

func (s *stubMessenger) Name() string { return s.name }
func (s *stubMessenger) Capabilities() Capability {
	return Capability{Name: s.name, Channels: s.channels}
}
func (s *stubMessenger) Send(ctx context.Context, msg Message) error { return nil }

func TestRegistryRouteByChannel(t *testing.T) {
	console := &stubMessenger{name: "console", channels: []string{"email"}}
	reg := NewRegistry(console)

	got, err := reg.Route("email")
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if got.Name() != "console" {
		t.Fatalf("expected console, got %s", got.Name())
	}
}

func TestRegistryRouteByProvider(t *testing.T) {
	console := &stubMessenger{name: "console", channels: []string{"email"}}
	smtp := &stubMessenger{name: "smtp", channels: []string{"email"}}
	reg := NewRegistry(console, smtp)

	got, err := reg.Route("email:smtp")
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if got.Name() != "smtp" {
		t.Fatalf("expected smtp, got %s", got.Name())
	}
}

func TestRegistryRouteUnknown(t *testing.T) {
	reg := NewRegistry(&stubMessenger{name: "console", channels: []string{"email"}})

	if _, err := reg.Route("sms"); !errors.Is(err, ErrAdapterNotFound) {
		t.Fatalf("expected ErrAdapterNotFound, got %v", err)
	}
	if _, err := reg.Route("email:sendgrid"); !errors.Is(err, ErrAdapterNotFound) {
		t.Fatalf("expected ErrAdapterNotFound for unknown provider, got %v", err)
	}
}

func TestParseChannel(t *testing.T) {
	cases := []struct {
		in       string
		channel  string
		provider string
	}{
		{"email", "email", ""},
		{"Email:SMTP", "email", "smtp"},
		{" email:aws_ses ", "email", "aws_ses"},
	}
	for _, tc := range cases {
		ch, provider := ParseChannel(tc.in)
		if ch != tc.channel || provider != tc.provider {
			t.Fatalf("ParseChannel(%q) = (%q, %q), want (%q, %q)", tc.in, ch, provider, tc.channel, tc.provider)
		}
	}
}
