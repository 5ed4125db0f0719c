// Package smtp delivers email using an SMTP server with optional TLS/STARTTLS.
package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/mail"
	gosmtp "net/smtp"
	"strings"
	"time"

	"github.com/jaytaylor/html2text"

	"github.com/sjkp/locker/pkg/adapters"
	"github.com/sjkp/locker/pkg/interfaces/logger"
)

// Adapter delivers email over SMTP.
type Adapter struct {
	name string
	base adapters.BaseAdapter
	caps adapters.Capability
	cfg  Config
}

type Option func(*Adapter)

// Config captures connection/auth options for SMTP.
type Config struct {
	Host          string
	Port          int
	Username      string
	Password      string
	From          string
	UseTLS        bool
	UseStartTLS   bool
	SkipTLSVerify bool
	Timeout       time.Duration
	AuthDisabled  bool
	Headers       map[string]string
}

// WithName overrides the provider name (defaults to smtp).
func WithName(name string) Option {
	return func(a *Adapter) {
		if name != "" {
			a.name = name
		}
	}
}

// WithConfig sets the adapter configuration.
func WithConfig(cfg Config) Option {
	return func(a *Adapter) {
		a.cfg = cfg
	}
}

// WithCredentials configures username/password auth.
func WithCredentials(username, password string) Option {
	return func(a *Adapter) {
		a.cfg.Username = username
		a.cfg.Password = password
	}
}

// WithHostPort sets host and port.
func WithHostPort(host string, port int) Option {
	return func(a *Adapter) {
		if host != "" {
			a.cfg.Host = host
		}
		if port > 0 {
			a.cfg.Port = port
		}
	}
}

// WithFrom sets the default From address.
func WithFrom(from string) Option {
	return func(a *Adapter) {
		if from != "" {
			a.cfg.From = from
		}
	}
}

// WithTLS toggles implicit TLS.
func WithTLS(enabled bool) Option {
	return func(a *Adapter) {
		a.cfg.UseTLS = enabled
	}
}

// WithStartTLS toggles STARTTLS upgrade (defaults to true when not using implicit TLS).
func WithStartTLS(enabled bool) Option {
	return func(a *Adapter) {
		a.cfg.UseStartTLS = enabled
	}
}

func New(l logger.Logger, opts ...Option) *Adapter {
	adapter := &Adapter{
		name: "smtp",
		base: adapters.NewBaseAdapter(l),
		caps: adapters.Capability{
			Name:     "smtp",
			Channels: []string{"email"},
			Formats:  []string{"text/plain", "text/html"},
		},
		cfg: Config{
			Port:        587,
			UseStartTLS: true,
			Timeout:     10 * time.Second,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(adapter)
		}
	}
	return adapter
}

func (a *Adapter) Name() string { return a.name }

func (a *Adapter) Capabilities() adapters.Capability { return a.caps }

func (a *Adapter) Send(ctx context.Context, msg adapters.Message) error {
	if strings.TrimSpace(a.cfg.Host) == "" {
		return fmt.Errorf("smtp: host is required")
	}
	if a.cfg.Port == 0 {
		a.cfg.Port = 587
	}

	from := firstNonEmpty(stringValue(msg.Metadata, "from"), a.cfg.From)
	if from == "" {
		return fmt.Errorf("smtp: from address is required")
	}
	fromAddr, err := mail.ParseAddress(from)
	if err != nil {
		return fmt.Errorf("smtp: invalid from address: %w", err)
	}
	toAddr, err := mail.ParseAddress(msg.To)
	if err != nil {
		return fmt.Errorf("smtp: invalid to address: %w", err)
	}

	htmlBody := firstNonEmpty(stringValue(msg.Metadata, "html_body"), msg.Body)
	textBody := stringValue(msg.Metadata, "text_body")
	if strings.TrimSpace(textBody) == "" {
		textBody = htmlToText(htmlBody)
	}

	body, headers := buildMessage(fromAddr.String(), toAddr.String(), msg.Subject, msg.Headers, a.cfg.Headers, textBody, htmlBody)

	addr := fmt.Sprintf("%s:%d", a.cfg.Host, a.cfg.Port)
	dialer := &net.Dialer{Timeout: a.cfg.Timeout}
	tlsCfg := &tls.Config{
		ServerName:         a.cfg.Host,
		InsecureSkipVerify: a.cfg.SkipTLSVerify,
	}

	client, conn, err := a.newClient(ctx, dialer, addr, tlsCfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Quit()
		_ = conn.Close()
	}()

	if a.cfg.UseStartTLS && !a.cfg.UseTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsCfg); err != nil {
				return fmt.Errorf("smtp: starttls failed: %w", err)
			}
		}
	}

	if !a.cfg.AuthDisabled && a.cfg.Username != "" {
		auth := gosmtp.PlainAuth("", a.cfg.Username, a.cfg.Password, a.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp: auth failed: %w", err)
		}
	}

	if err := client.Mail(fromAddr.Address); err != nil {
		return fmt.Errorf("smtp: mail from failed: %w", err)
	}
	if err := client.Rcpt(toAddr.Address); err != nil {
		return fmt.Errorf("smtp: rcpt to failed: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp: open data: %w", err)
	}
	if _, err := w.Write([]byte(headers + "\r\n\r\n" + body)); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp: write data: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp: close data: %w", err)
	}

	a.base.LogSuccess(a.name, msg)
	return nil
}

func (a *Adapter) newClient(ctx context.Context, dialer *net.Dialer, addr string, tlsCfg *tls.Config) (*gosmtp.Client, net.Conn, error) {
	if a.cfg.UseTLS {
		conn, err := tls.DialWithDialer(dialer, "tcp", addr, tlsCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("smtp: tls dial failed: %w", err)
		}
		client, err := gosmtp.NewClient(conn, a.cfg.Host)
		if err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("smtp: new client failed: %w", err)
		}
		return client, conn, nil
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("smtp: dial failed: %w", err)
	}
	client, err := gosmtp.NewClient(conn, a.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("smtp: new client failed: %w", err)
	}
	return client, conn, nil
}

func buildMessage(from, to, subject string, msgHeaders, cfgHeaders map[string]string, textBody, htmlBody string) (string, string) {
	headers := map[string]string{
		"From":         from,
		"To":           to,
		"Subject":      subject,
		"MIME-Version": "1.0",
	}
	for k, v := range cfgHeaders {
		headers[k] = v
	}
	for k, v := range msgHeaders {
		if v == "" {
			continue
		}
		headers[k] = v
	}

	if htmlBody != "" {
		boundary := fmt.Sprintf("mixed-%d", time.Now().UnixNano())
		headers["Content-Type"] = fmt.Sprintf("multipart/alternative; boundary=%s", boundary)

		var sb strings.Builder
		sb.WriteString("--" + boundary + "\r\n")
		sb.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		sb.WriteString(textBody + "\r\n")
		sb.WriteString("--" + boundary + "\r\n")
		sb.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
		sb.WriteString(htmlBody + "\r\n")
		sb.WriteString("--" + boundary + "--")
		return sb.String(), formatHeaders(headers)
	}

	headers["Content-Type"] = "text/plain; charset=UTF-8"
	return textBody, formatHeaders(headers)
}

func formatHeaders(headers map[string]string) string {
	var lines []string
	for k, v := range headers {
		lines = append(lines, fmt.Sprintf("%s: %s", k, v))
	}
	return strings.Join(lines, "\r\n")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func stringValue(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	raw, ok := meta[key]
	if !ok {
		return ""
	}
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func stripHTML(html string) string {
	// Minimal fallback: drop tags.
	out := strings.Builder{}
	inTag := false
	for _, r := range html {
		switch r {
		case '<':
			inTag = true
		case '>':
			inTag = false
		default:
			if !inTag {
				out.WriteRune(r)
			}
		}
	}
	return strings.TrimSpace(out.String())
}

func htmlToText(html string) string {
	plain, err := html2text.FromString(html, html2text.Options{PrettyTables: true})
	if err == nil {
		if trimmed := strings.TrimSpace(plain); trimmed != "" {
			return trimmed
		}
	}
	return stripHTML(html)
}
