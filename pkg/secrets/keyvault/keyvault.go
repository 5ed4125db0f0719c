// Package keyvault implements secrets.Store on top of Azure Key Vault.
package keyvault

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	"github.com/sjkp/locker/pkg/interfaces/logger"
	"github.com/sjkp/locker/pkg/secrets"
)

// ClientAPI is the slice of the azsecrets client used by the store.
// It allows mock injection in tests.
type ClientAPI interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
}

// Config holds Key Vault connection and authentication settings.
type Config struct {
	VaultURL           string
	TenantID           string
	ClientID           string
	ClientSecret       string
	UseManagedIdentity bool
	UserAssignedID     string
}

// Store fetches secrets and their tags from a single Key Vault.
type Store struct {
	client   ClientAPI
	vaultURL string
	logger   logger.Logger
}

var _ secrets.Store = (*Store)(nil)

// Option configures the store.
type Option func(*Store)

// WithClient injects a custom Key Vault client (for testing).
func WithClient(client ClientAPI) Option {
	return func(s *Store) {
		if client != nil {
			s.client = client
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New builds a Key Vault store. When no client is injected, a real client is
// created using managed identity, service principal, or the default
// credential chain depending on the config.
func New(cfg Config, opts ...Option) (*Store, error) {
	if strings.TrimSpace(cfg.VaultURL) == "" {
		return nil, errors.New("keyvault: vault url is required")
	}
	if _, err := url.Parse(cfg.VaultURL); err != nil {
		return nil, fmt.Errorf("keyvault: invalid vault url: %w", err)
	}

	store := &Store{
		vaultURL: cfg.VaultURL,
		logger:   &logger.Nop{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}

	if store.client == nil {
		client, err := newClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("keyvault: create client: %w", err)
		}
		store.client = client
	}
	return store, nil
}

func newClient(cfg Config) (*azsecrets.Client, error) {
	var cred azcore.TokenCredential
	var err error

	switch {
	case cfg.UseManagedIdentity && cfg.UserAssignedID != "":
		cred, err = azidentity.NewManagedIdentityCredential(&azidentity.ManagedIdentityCredentialOptions{
			ID: azidentity.ClientID(cfg.UserAssignedID),
		})
	case cfg.UseManagedIdentity:
		cred, err = azidentity.NewManagedIdentityCredential(nil)
	case cfg.ClientSecret != "":
		cred, err = azidentity.NewClientSecretCredential(cfg.TenantID, cfg.ClientID, cfg.ClientSecret, nil)
	default:
		cred, err = azidentity.NewDefaultAzureCredential(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("create credential: %w", err)
	}
	return azsecrets.NewClient(cfg.VaultURL, cred, nil)
}

// Get fetches the latest version of the named secret. Vault tags become the
// record metadata as stored, without interpretation.
func (s *Store) Get(ctx context.Context, name string) (secrets.Record, error) {
	if strings.TrimSpace(name) == "" {
		return secrets.Record{}, secrets.ErrEmptyName
	}

	s.logger.Debug("fetching secret from key vault", logger.F("vault", s.vaultURL), logger.F("secret", name))

	resp, err := s.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		return secrets.Record{}, fmt.Errorf("keyvault: get %s: %w", name, classify(err))
	}
	if resp.Value == nil {
		return secrets.Record{}, fmt.Errorf("keyvault: get %s: %w", name, secrets.ErrEmptyValue)
	}

	metadata := make(map[string]string, len(resp.Tags))
	for key, value := range resp.Tags {
		if value != nil {
			metadata[key] = *value
		}
	}

	return secrets.Record{
		Name:     name,
		Value:    *resp.Value,
		Metadata: metadata,
	}, nil
}

// classify maps Azure SDK failures onto the secrets sentinel errors so
// callers never depend on transport details.
func classify(err error) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusNotFound:
			return secrets.ErrNotFound
		case http.StatusUnauthorized, http.StatusForbidden:
			return secrets.ErrUnauthorized
		}
		return fmt.Errorf("%w: %s", secrets.ErrUnavailable, respErr.ErrorCode)
	}
	// Fall back to string matching for wrapped or legacy SDK errors.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "SecretNotFound") || strings.Contains(msg, "404"):
		return secrets.ErrNotFound
	case strings.Contains(msg, "Forbidden") || strings.Contains(msg, "401") || strings.Contains(msg, "403"):
		return secrets.ErrUnauthorized
	}
	return fmt.Errorf("%w: %v", secrets.ErrUnavailable, err)
}
