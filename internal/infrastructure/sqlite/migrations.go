package sqlite

type migration struct {
	version int
	sql     string
}

// migrations must be sequential starting from 1. Each one records its own version.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
	object_id         TEXT PRIMARY KEY,
	notification_id   TEXT NOT NULL UNIQUE,
	channel           TEXT NOT NULL,
	title             TEXT NOT NULL,
	body              TEXT,
	correlation_id    TEXT,
	action            TEXT NOT NULL,
	entity_id         TEXT,
	extras_json       TEXT NOT NULL DEFAULT '{}',
	raw_payload       TEXT,
	schema_version    INTEGER NOT NULL DEFAULT 1,
	created_at        INTEGER NOT NULL,
	delivered_at      INTEGER,
	read_at           INTEGER,
	consumed_at       INTEGER,
	state             TEXT NOT NULL,
	source            TEXT NOT NULL,
	presentation      TEXT NOT NULL,
	occurrence_count  INTEGER NOT NULL DEFAULT 1,
	legacy_type       TEXT,
	legacy_category   TEXT
);

CREATE INDEX IF NOT EXISTS idx_notifications_created ON notifications(created_at);
CREATE INDEX IF NOT EXISTS idx_notifications_channel ON notifications(channel);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
