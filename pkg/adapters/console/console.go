// Package console provides a messenger that logs deliveries instead of
// sending them. Useful for local development and tests.
package console

import (
	"context"

	"github.com/sjkp/locker/pkg/adapters"
	"github.com/sjkp/locker/pkg/interfaces/logger"
)

// Adapter writes notifications to the configured logger for debugging.
type Adapter struct {
	name string
	base adapters.BaseAdapter
	caps adapters.Capability
}

type Option func(*Adapter)

// WithName overrides the adapter provider name (defaults to "console").
func WithName(name string) Option {
	return func(a *Adapter) {
		if name != "" {
			a.name = name
		}
	}
}

// New constructs a console adapter.
func New(l logger.Logger, opts ...Option) *Adapter {
	adapter := &Adapter{
		name: "console",
		base: adapters.NewBaseAdapter(l),
		caps: adapters.Capability{
			Name:     "console",
			Channels: []string{"email"},
			Formats:  []string{"text/plain", "text/html"},
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(adapter)
		}
	}
	return adapter
}

// Name implements adapters.Messenger.
func (a *Adapter) Name() string { return a.name }

// Capabilities implements adapters.Messenger.
func (a *Adapter) Capabilities() adapters.Capability { return a.caps }

// Send logs the rendered message to the configured logger.
func (a *Adapter) Send(ctx context.Context, msg adapters.Message) error {
	a.base.Logger().Info("console delivery",
		logger.F("to", msg.To),
		logger.F("subject", msg.Subject),
		logger.F("bytes", len(msg.Body)),
	)
	a.base.LogSuccess(a.name, msg)
	return nil
}
