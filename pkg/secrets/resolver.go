package secrets

import (
	"context"
	"errors"
	"strings"
)

// Resolver validates lookups against a Store. It performs no interpretation
// of metadata contents beyond what callers request via Recipient.
type Resolver struct {
	store Store
}

// NewResolver builds a resolver over the given store.
func NewResolver(store Store) (*Resolver, error) {
	if store == nil {
		return nil, errors.New("secrets: store is required")
	}
	return &Resolver{store: store}, nil
}

// Resolve fetches the named secret. An empty name fails with ErrEmptyName
// before the store is consulted.
func (r *Resolver) Resolve(ctx context.Context, name string) (Record, error) {
	if strings.TrimSpace(name) == "" {
		return Record{}, ErrEmptyName
	}
	return r.store.Get(ctx, name)
}

// Recipient extracts the notification recipient from a record's metadata.
// Absence is a hard error, not a default.
func Recipient(rec Record) (string, error) {
	if rec.Metadata == nil {
		return "", ErrMissingMetadata
	}
	recipient := strings.TrimSpace(rec.Metadata[MetadataRecipientKey])
	if recipient == "" {
		return "", ErrMissingRecipient
	}
	return recipient, nil
}
