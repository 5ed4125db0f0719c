package commands

import (
	"context"
	"testing"

	"github.com/sjkp/locker/internal/ingest"
	"github.com/sjkp/locker/pkg/links"
	"github.com/sjkp/locker/pkg/secrets"
	"github.com/sjkp/locker/pkg/telemetry"
)

type nopNotifier struct{ calls int }

func (n *nopNotifier) Notify(ctx context.Context, recipient string, artifact links.Artifact) error {
	n.calls++
	return nil
}

func newCatalog(t *testing.T, store *secrets.MemoryStore, notifier ingest.Notifier) *Catalog {
	t.Helper()
	resolver, err := secrets.NewResolver(store)
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	builder, err := links.NewBuilder("https://retrieve.example.com/api/retrieve")
	if err != nil {
		t.Fatalf("builder: %v", err)
	}
	handler, err := ingest.New(ingest.Dependencies{
		Resolver:  resolver,
		Links:     builder,
		Notifier:  notifier,
		Telemetry: &telemetry.Nop{},
	})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	catalog, err := NewCatalog(Dependencies{Handler: handler, Seeder: store})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return catalog
}

func TestSeedThenIngest(t *testing.T) {
	store := secrets.NewMemoryStore()
	notifier := &nopNotifier{}
	catalog := newCatalog(t, store, notifier)
	ctx := context.Background()

	err := catalog.SeedSecret.Execute(ctx, SeedSecret{
		Name:      "db-password",
		Value:     "hunter2",
		Recipient: "alice@example.com",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	err = catalog.IngestEvent.Execute(ctx, IngestEvent{
		Payload: []byte(`{"data":{"objectName":"db-password"}}`),
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if notifier.calls != 1 {
		t.Fatalf("expected one notification, got %d", notifier.calls)
	}
}

func TestIngestRequiresPayload(t *testing.T) {
	catalog := newCatalog(t, secrets.NewMemoryStore(), &nopNotifier{})
	if err := catalog.IngestEvent.Execute(context.Background(), IngestEvent{}); err == nil {
		t.Fatal("expected error for empty payload")
	}
}

func TestSeedRequiresName(t *testing.T) {
	catalog := newCatalog(t, secrets.NewMemoryStore(), &nopNotifier{})
	err := catalog.SeedSecret.Execute(context.Background(), SeedSecret{Value: "v"})
	if err == nil {
		t.Fatal("expected error for missing name")
	}
}

func TestSeedWithoutSeederStore(t *testing.T) {
	store := secrets.NewMemoryStore()
	resolver, _ := secrets.NewResolver(store)
	builder, _ := links.NewBuilder("https://retrieve.example.com/api/retrieve")
	handler, err := ingest.New(ingest.Dependencies{
		Resolver: resolver,
		Links:    builder,
		Notifier: &nopNotifier{},
	})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	catalog, err := NewCatalog(Dependencies{Handler: handler})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if err := catalog.SeedSecret.Execute(context.Background(), SeedSecret{Name: "n"}); err == nil {
		t.Fatal("expected read-only error")
	}
}
