// Package bunrepo persists delivery outcomes with bun over SQLite.
package bunrepo

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/sjkp/locker/internal/ingest"
)

// DeliveryRecord is one processed event outcome.
type DeliveryRecord struct {
	bun.BaseModel `bun:"table:delivery_log,alias:dl"`

	ID         uuid.UUID `bun:"id,pk,type:uuid"`
	SecretName string    `bun:"secret_name,notnull"`
	Recipient  string    `bun:"recipient"`
	Status     string    `bun:"status,notnull"`
	Reason     string    `bun:"reason"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
}

// Open connects to the SQLite database at dsn (":memory:" works for tests).
func Open(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// DeliveryLog records processed outcomes. It satisfies ingest.DeliveryLog.
type DeliveryLog struct {
	db *bun.DB
}

var _ ingest.DeliveryLog = (*DeliveryLog)(nil)

func NewDeliveryLog(db *bun.DB) *DeliveryLog {
	return &DeliveryLog{db: db}
}

// Init creates the delivery_log table if needed.
func (l *DeliveryLog) Init(ctx context.Context) error {
	_, err := l.db.NewCreateTable().
		Model((*DeliveryRecord)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

// Record appends one outcome row.
func (l *DeliveryLog) Record(ctx context.Context, d ingest.Delivery) error {
	record := &DeliveryRecord{
		ID:         uuid.New(),
		SecretName: d.SecretName,
		Recipient:  d.Recipient,
		Status:     d.Status,
		Reason:     d.Reason,
		CreatedAt:  time.Now().UTC(),
	}
	_, err := l.db.NewInsert().Model(record).Exec(ctx)
	return err
}

// Recent returns the newest outcomes, most recent first.
func (l *DeliveryLog) Recent(ctx context.Context, limit int) ([]DeliveryRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []DeliveryRecord
	err := l.db.NewSelect().
		Model(&records).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}
