// Package notifier renders retrieval notifications and routes them through the
// adapter registry.
package notifier

import (
	"context"
	"errors"

	gotemplate "github.com/goliatone/go-template"
	"github.com/google/uuid"

	"github.com/sjkp/locker/pkg/adapters"
	"github.com/sjkp/locker/pkg/interfaces/logger"
	"github.com/sjkp/locker/pkg/links"
)

// bodyTemplate produces the notification HTML. link and qrcode carry URL and
// data-URI content that must not be entity-escaped.
const bodyTemplate = `<p>You can retrieve your secret using the link below:</p>
<a href="{{ link|safe }}">{{ link|safe }}</a>
<p>Or scan the QR code:</p>
<img src="{{ qrcode|safe }}" alt="QR Code" />`

var (
	ErrMissingRegistry  = errors.New("notifier: adapter registry is required")
	ErrMissingRecipient = errors.New("notifier: recipient is required")
)

// Config holds delivery defaults applied to every notification.
type Config struct {
	From    string
	Channel string
	Subject string
}

// Dependencies bundles the collaborators required by the manager.
type Dependencies struct {
	Registry *adapters.Registry
	Logger   logger.Logger
	Config   Config
}

// Manager renders the retrieval message and sends it through the registry.
type Manager struct {
	registry *adapters.Registry
	engine   *gotemplate.Engine
	logger   logger.Logger
	config   Config
}

// New constructs the notification manager.
func New(deps Dependencies) (*Manager, error) {
	if deps.Registry == nil {
		return nil, ErrMissingRegistry
	}
	if deps.Logger == nil {
		deps.Logger = &logger.Nop{}
	}
	if deps.Config.Channel == "" {
		deps.Config.Channel = "email"
	}
	if deps.Config.Subject == "" {
		deps.Config.Subject = "Your Secret is Ready"
	}

	engine, err := gotemplate.NewRenderer(gotemplate.WithBaseDir("."))
	if err != nil {
		return nil, err
	}

	return &Manager{
		registry: deps.Registry,
		engine:   engine,
		logger:   deps.Logger,
		config:   deps.Config,
	}, nil
}

// Notify delivers the retrieval artifact to the recipient. Exactly one
// adapter send is attempted per call.
func (m *Manager) Notify(ctx context.Context, recipient string, artifact links.Artifact) error {
	if recipient == "" {
		return ErrMissingRecipient
	}

	html, err := m.engine.RenderString(bodyTemplate, map[string]any{
		"link":   artifact.URL,
		"qrcode": artifact.QRCode,
	})
	if err != nil {
		return err
	}

	msg := adapters.Message{
		ID:      uuid.NewString(),
		Channel: m.config.Channel,
		Subject: m.config.Subject,
		Body:    html,
		To:      recipient,
		Metadata: map[string]any{
			"html_body": html,
			"from":      m.config.From,
		},
	}

	messenger, err := m.registry.Route(msg.Channel)
	if err != nil {
		return err
	}
	if err := messenger.Send(ctx, msg); err != nil {
		return err
	}

	m.logger.Info("notification dispatched",
		logger.F("message_id", msg.ID),
		logger.F("channel", msg.Channel),
		logger.F("recipient", recipient),
	)
	return nil
}
