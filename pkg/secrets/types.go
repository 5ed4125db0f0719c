package secrets

import "context"

// MetadataRecipientKey names the metadata tag that designates the
// notification recipient for a secret.
const MetadataRecipientKey = "recipientEmail"

// Record is a secret as stored in the backing vault. Value is sensitive and
// must never reach a log line; use MaskValue when diagnostics need a hint.
type Record struct {
	Name     string
	Value    string
	Metadata map[string]string
}

// Store fetches secrets from a backing vault. Implementations classify
// failures using the package sentinel errors so callers can pick a
// recovery policy without knowing the vault.
type Store interface {
	Get(ctx context.Context, name string) (Record, error)
}
