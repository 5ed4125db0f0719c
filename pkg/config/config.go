// Package config captures service configuration knobs. Feature packages
// (store, notifier, web) pull from these nested structs.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"

	"github.com/goliatone/go-config/cfgx"
)

// Store kinds recognized by the service.
const (
	StoreKeyVault = "keyvault"
	StoreMemory   = "memory"
	StoreLocal    = "local"
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" json:"server"`
	Store     StoreConfig     `mapstructure:"store" json:"store"`
	Notifier  NotifierConfig  `mapstructure:"notifier" json:"notifier"`
	Storage   StorageConfig   `mapstructure:"storage" json:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" json:"telemetry"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr string `mapstructure:"addr" json:"addr"`
}

// StoreConfig selects and configures the secret store backend.
type StoreConfig struct {
	Kind               string `mapstructure:"kind" json:"kind"`
	VaultURL           string `mapstructure:"vault_url" json:"vault_url"`
	TenantID           string `mapstructure:"tenant_id" json:"tenant_id"`
	ClientID           string `mapstructure:"client_id" json:"client_id"`
	ClientSecret       string `mapstructure:"client_secret" json:"client_secret"`
	UseManagedIdentity bool   `mapstructure:"use_managed_identity" json:"use_managed_identity"`
	LocalKey           string `mapstructure:"local_key" json:"local_key"`
}

// NotifierConfig controls notification composition and transport.
type NotifierConfig struct {
	Channel      string     `mapstructure:"channel" json:"channel"`
	From         string     `mapstructure:"from" json:"from"`
	Subject      string     `mapstructure:"subject" json:"subject"`
	RetrievalURL string     `mapstructure:"retrieval_url" json:"retrieval_url"`
	SMTP         SMTPConfig `mapstructure:"smtp" json:"smtp"`
	SES          SESConfig  `mapstructure:"ses" json:"ses"`
}

// SMTPConfig holds SMTP transport settings.
type SMTPConfig struct {
	Host     string `mapstructure:"host" json:"host"`
	Port     int    `mapstructure:"port" json:"port"`
	Username string `mapstructure:"username" json:"username"`
	Password string `mapstructure:"password" json:"password"`
}

// SESConfig holds Amazon SES transport settings.
type SESConfig struct {
	Region string `mapstructure:"region" json:"region"`
}

// StorageConfig controls the delivery log database.
type StorageConfig struct {
	DeliveryLogDSN string `mapstructure:"delivery_log_dsn" json:"delivery_log_dsn"`
}

// TelemetryConfig toggles metric exposition.
type TelemetryConfig struct {
	Prometheus bool `mapstructure:"prometheus" json:"prometheus"`
}

// Defaults returns the baseline configuration.
func Defaults() Config {
	return Config{
		Server: ServerConfig{Addr: ":8080"},
		Store:  StoreConfig{Kind: StoreMemory},
		Notifier: NotifierConfig{
			Channel: "email",
			Subject: "Your Secret is Ready",
			SMTP:    SMTPConfig{Port: 587},
		},
		Telemetry: TelemetryConfig{Prometheus: true},
	}
}

// Validate ensures required fields are present. A missing retrieval URL is a
// startup failure, never an empty-prefix link.
func (c *Config) Validate() error {
	if c.Notifier.RetrievalURL == "" {
		return errors.New("notifier.retrieval_url is required")
	}
	switch c.Store.Kind {
	case StoreKeyVault:
		if c.Store.VaultURL == "" {
			return errors.New("store.vault_url is required for the keyvault store")
		}
	case StoreLocal:
		if c.Store.LocalKey == "" {
			return errors.New("store.local_key is required for the local store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store kind %q", c.Store.Kind)
	}
	if c.Notifier.SMTP.Port < 0 || c.Notifier.SMTP.Port > 65535 {
		return fmt.Errorf("notifier.smtp.port out of range: %d", c.Notifier.SMTP.Port)
	}
	return nil
}

// Load decodes arbitrary input (struct, map) using cfgx helpers, applies
// defaults, and validates.
func Load(input any, opts ...LoadOption) (Config, error) {
	settings := loadOptions{}
	for _, opt := range opts {
		opt(&settings)
	}

	cfg, err := cfgx.Build(input, settings.buildOpts...)
	if err != nil {
		return Config{}, err
	}

	if isZero(cfg) {
		if err := decodeFallback(input, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg = cfg.withDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadOption lets callers amend cfgx build options.
type LoadOption func(*loadOptions)

type loadOptions struct {
	buildOpts []cfgx.Option[Config]
}

// WithBuildOptions forwards cfgx options (hooks, preprocessors, etc.).
func WithBuildOptions(opts ...cfgx.Option[Config]) LoadOption {
	return func(lo *loadOptions) {
		lo.buildOpts = append(lo.buildOpts, opts...)
	}
}

// FromEnv reads the recognized environment variables into a config input map.
// Unset variables are omitted so defaults apply.
func FromEnv() map[string]any {
	out := map[string]any{}

	server := map[string]any{}
	setString(server, "addr", "LISTEN_ADDR")
	if len(server) > 0 {
		out["server"] = server
	}

	store := map[string]any{}
	setString(store, "kind", "STORE_KIND")
	setString(store, "vault_url", "KEYVAULT_URL")
	setString(store, "tenant_id", "AZURE_TENANT_ID")
	setString(store, "client_id", "AZURE_CLIENT_ID")
	setString(store, "client_secret", "AZURE_CLIENT_SECRET")
	setString(store, "local_key", "LOCAL_STORE_KEY")
	if len(store) > 0 {
		out["store"] = store
	}

	notifier := map[string]any{}
	setString(notifier, "channel", "NOTIFIER_CHANNEL")
	setString(notifier, "from", "EMAIL_USER")
	setString(notifier, "retrieval_url", "RETRIEVAL_URL")
	smtp := map[string]any{}
	setString(smtp, "host", "SMTP_HOST")
	setString(smtp, "username", "EMAIL_USER")
	setString(smtp, "password", "EMAIL_PASS")
	if port, ok := os.LookupEnv("SMTP_PORT"); ok {
		if n, err := strconv.Atoi(port); err == nil {
			smtp["port"] = n
		}
	}
	if len(smtp) > 0 {
		notifier["smtp"] = smtp
	}
	if len(notifier) > 0 {
		out["notifier"] = notifier
	}

	storage := map[string]any{}
	setString(storage, "delivery_log_dsn", "DELIVERY_LOG_DSN")
	if len(storage) > 0 {
		out["storage"] = storage
	}

	return out
}

func setString(dst map[string]any, key, env string) {
	if v, ok := os.LookupEnv(env); ok && v != "" {
		dst[key] = v
	}
}

func (c Config) withDefaults() Config {
	defaults := Defaults()

	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Store.Kind == "" {
		c.Store.Kind = defaults.Store.Kind
	}
	if c.Notifier.Channel == "" {
		c.Notifier.Channel = defaults.Notifier.Channel
	}
	if c.Notifier.Subject == "" {
		c.Notifier.Subject = defaults.Notifier.Subject
	}
	if c.Notifier.SMTP.Port == 0 {
		c.Notifier.SMTP.Port = defaults.Notifier.SMTP.Port
	}
	return c
}

func isZero(cfg Config) bool {
	return reflect.DeepEqual(cfg, Config{})
}

func decodeFallback(input any, cfg *Config) error {
	switch v := input.(type) {
	case nil:
		return nil
	case Config:
		*cfg = v
		return nil
	case *Config:
		if v != nil {
			*cfg = *v
		}
		return nil
	case map[string]any:
		return decodeMap(v, cfg)
	default:
		return fmt.Errorf("unsupported config input type: %T", input)
	}
}

func decodeMap(input map[string]any, cfg *Config) error {
	if input == nil {
		return nil
	}
	payload, err := json.Marshal(input)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, cfg)
}
