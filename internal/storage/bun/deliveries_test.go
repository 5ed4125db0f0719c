package bunrepo

import (
	"context"
	"testing"

	"github.com/sjkp/locker/internal/ingest"
)

func newLog(t *testing.T) *DeliveryLog {
	t.Helper()
	db, err := Open("file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	log := NewDeliveryLog(db)
	if err := log.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return log
}

func TestRecordAndRecent(t *testing.T) {
	log := newLog(t)
	ctx := context.Background()

	outcomes := []ingest.Delivery{
		{SecretName: "db-password", Recipient: "alice@example.com", Status: ingest.StatusNotified},
		{SecretName: "api-key", Status: ingest.StatusFailed, Reason: ingest.KindMissingRecipient},
	}
	for _, d := range outcomes {
		if err := log.Record(ctx, d); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	records, err := log.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	for _, rec := range records {
		if rec.ID.String() == "00000000-0000-0000-0000-000000000000" {
			t.Fatal("expected generated id")
		}
		if rec.CreatedAt.IsZero() {
			t.Fatal("expected created_at to be set")
		}
	}
}

func TestRecentHonorsLimit(t *testing.T) {
	log := newLog(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := log.Record(ctx, ingest.Delivery{SecretName: "s", Status: ingest.StatusNotified}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	records, err := log.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
}
