// Package commands exposes go-command compatible handlers for host
// transports (HTTP webhook, CLI).
package commands

import (
	"context"
	"errors"
	"strings"

	command "github.com/goliatone/go-command"

	"github.com/sjkp/locker/internal/ingest"
	"github.com/sjkp/locker/pkg/interfaces/logger"
	"github.com/sjkp/locker/pkg/secrets"
)

// Catalog bundles the commands a host can invoke.
type Catalog struct {
	IngestEvent command.Commander[IngestEvent]
	SeedSecret  command.Commander[SeedSecret]
}

type secretWriter interface {
	Put(ctx context.Context, rec secrets.Record) error
}

// Dependencies wires services into the command catalog. Seeder is optional;
// without it SeedSecret refuses to run.
type Dependencies struct {
	Handler *ingest.Handler
	Seeder  secretWriter
	Logger  logger.Logger
}

// NewCatalog builds the command catalog using the supplied dependencies.
func NewCatalog(deps Dependencies) (*Catalog, error) {
	if deps.Handler == nil {
		return nil, errors.New("commands: ingest handler is required")
	}
	if deps.Logger == nil {
		deps.Logger = &logger.Nop{}
	}

	return &Catalog{
		IngestEvent: ingestEventCommand{handler: deps.Handler},
		SeedSecret:  seedSecretCommand{store: deps.Seeder},
	}, nil
}

// IngestEvent carries a raw secret-created event payload.
type IngestEvent struct {
	Payload []byte `json:"payload"`
}

type ingestEventCommand struct {
	handler *ingest.Handler
}

func (c ingestEventCommand) Execute(ctx context.Context, msg IngestEvent) error {
	if len(msg.Payload) == 0 {
		return errors.New("commands: event payload is required")
	}
	c.handler.Handle(ctx, msg.Payload)
	return nil
}

// SeedSecret stores a secret with its recipient metadata. Intended for local
// stores; vault-backed deployments manage secrets out of band.
type SeedSecret struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Recipient string `json:"recipient"`
}

type seedSecretCommand struct {
	store secretWriter
}

func (c seedSecretCommand) Execute(ctx context.Context, msg SeedSecret) error {
	if c.store == nil {
		return errors.New("commands: secret store is read-only")
	}
	if strings.TrimSpace(msg.Name) == "" {
		return errors.New("commands: secret name is required")
	}
	rec := secrets.Record{Name: msg.Name, Value: msg.Value}
	if msg.Recipient != "" {
		rec.Metadata = map[string]string{secrets.MetadataRecipientKey: msg.Recipient}
	}
	return c.store.Put(ctx, rec)
}
