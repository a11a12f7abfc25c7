package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the notifications table. It is idempotent.
// seq keeps insertion order stable for rows created in the same microsecond.
const Schema = `
CREATE TABLE IF NOT EXISTS notifications (
	seq               BIGSERIAL,
	object_id         TEXT PRIMARY KEY,
	notification_id   TEXT NOT NULL,
	channel           TEXT NOT NULL,
	title             TEXT NOT NULL,
	body              TEXT,
	correlation_id    TEXT,
	action            TEXT NOT NULL,
	entity_id         TEXT,
	extras_json       TEXT NOT NULL DEFAULT '{}',
	raw_payload       TEXT,
	schema_version    INTEGER NOT NULL DEFAULT 1,
	created_at        TIMESTAMPTZ NOT NULL,
	delivered_at      TIMESTAMPTZ,
	read_at           TIMESTAMPTZ,
	consumed_at       TIMESTAMPTZ,
	state             TEXT NOT NULL,
	source            TEXT NOT NULL,
	presentation      TEXT NOT NULL,
	occurrence_count  INTEGER NOT NULL DEFAULT 1,
	legacy_type       TEXT,
	legacy_category   TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS ux_notifications_notification_id ON notifications (notification_id);
CREATE INDEX IF NOT EXISTS ix_notifications_created_at ON notifications (created_at, seq);
CREATE INDEX IF NOT EXISTS ix_notifications_channel ON notifications (channel);
`

// Migrate applies Schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply notifications schema: %w", err)
	}
	return nil
}
