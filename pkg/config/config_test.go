package config

import (
	"strings"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(map[string]any{
		"notifier": map[string]any{"retrieval_url": "https://retrieve.example.com/retrieve"},
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("expected default addr, got %q", cfg.Server.Addr)
	}
	if cfg.Store.Kind != StoreMemory {
		t.Fatalf("expected default store kind, got %q", cfg.Store.Kind)
	}
	if cfg.Notifier.Subject != "Your Secret is Ready" {
		t.Fatalf("expected default subject, got %q", cfg.Notifier.Subject)
	}
	if cfg.Notifier.SMTP.Port != 587 {
		t.Fatalf("expected default smtp port, got %d", cfg.Notifier.SMTP.Port)
	}
}

func TestLoadRequiresRetrievalURL(t *testing.T) {
	_, err := Load(map[string]any{})
	if err == nil {
		t.Fatal("expected error for missing retrieval url")
	}
	if !strings.Contains(err.Error(), "retrieval_url") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestLoadKeyVaultRequiresVaultURL(t *testing.T) {
	_, err := Load(map[string]any{
		"store":    map[string]any{"kind": StoreKeyVault},
		"notifier": map[string]any{"retrieval_url": "https://retrieve.example.com"},
	})
	if err == nil {
		t.Fatal("expected error for missing vault url")
	}

	cfg, err := Load(map[string]any{
		"store": map[string]any{
			"kind":      StoreKeyVault,
			"vault_url": "https://example.vault.azure.net/",
		},
		"notifier": map[string]any{"retrieval_url": "https://retrieve.example.com"},
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.VaultURL != "https://example.vault.azure.net/" {
		t.Fatalf("unexpected vault url %q", cfg.Store.VaultURL)
	}
}

func TestLoadRejectsUnknownStoreKind(t *testing.T) {
	_, err := Load(map[string]any{
		"store":    map[string]any{"kind": "etcd"},
		"notifier": map[string]any{"retrieval_url": "https://retrieve.example.com"},
	})
	if err == nil {
		t.Fatal("expected error for unknown store kind")
	}
}

func TestLoadStructInput(t *testing.T) {
	input := Config{
		Notifier: NotifierConfig{RetrievalURL: "https://retrieve.example.com"},
	}
	cfg, err := Load(input)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Notifier.RetrievalURL != input.Notifier.RetrievalURL {
		t.Fatalf("unexpected retrieval url %q", cfg.Notifier.RetrievalURL)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("RETRIEVAL_URL", "https://retrieve.example.com/retrieve")
	t.Setenv("KEYVAULT_URL", "https://example.vault.azure.net/")
	t.Setenv("STORE_KIND", StoreKeyVault)
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("EMAIL_USER", "locker@example.com")
	t.Setenv("EMAIL_PASS", "hunter2")

	cfg, err := Load(FromEnv())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Kind != StoreKeyVault {
		t.Fatalf("unexpected store kind %q", cfg.Store.Kind)
	}
	if cfg.Store.VaultURL != "https://example.vault.azure.net/" {
		t.Fatalf("unexpected vault url %q", cfg.Store.VaultURL)
	}
	if cfg.Notifier.SMTP.Host != "smtp.example.com" || cfg.Notifier.SMTP.Port != 2525 {
		t.Fatalf("unexpected smtp config %+v", cfg.Notifier.SMTP)
	}
	if cfg.Notifier.From != "locker@example.com" {
		t.Fatalf("unexpected from %q", cfg.Notifier.From)
	}
	if cfg.Notifier.SMTP.Password != "hunter2" {
		t.Fatalf("unexpected password")
	}
}
