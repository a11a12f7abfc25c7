// Package sqlite is the embedded domain.Store, backed by modernc.org/sqlite through sqlx.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"vn.io.arda/notification-pipeline/internal/domain"
)

// Store implements domain.Store on a local SQLite file.
type Store struct {
	db *sqlx.DB
}

// Open opens (or creates) the database at path, enables WAL and applies pending migrations.
// Use ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// A single connection serialises writers and keeps ":memory:" databases alive.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	s := &Store{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) runMigrations() error {
	current := 0

	var tables int
	err := s.db.Get(&tables,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'")
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}
	if tables > 0 {
		if err := s.db.Get(&current, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}
	return nil
}

type row struct {
	ObjectID        string         `db:"object_id"`
	ID              string         `db:"notification_id"`
	Channel         string         `db:"channel"`
	Title           string         `db:"title"`
	Body            sql.NullString `db:"body"`
	CorrelationID   sql.NullString `db:"correlation_id"`
	Action          string         `db:"action"`
	EntityID        sql.NullString `db:"entity_id"`
	ExtrasJSON      string         `db:"extras_json"`
	RawPayload      sql.NullString `db:"raw_payload"`
	SchemaVersion   int            `db:"schema_version"`
	CreatedAt       int64          `db:"created_at"`
	DeliveredAt     sql.NullInt64  `db:"delivered_at"`
	ReadAt          sql.NullInt64  `db:"read_at"`
	ConsumedAt      sql.NullInt64  `db:"consumed_at"`
	State           string         `db:"state"`
	Source          string         `db:"source"`
	Presentation    string         `db:"presentation"`
	OccurrenceCount int            `db:"occurrence_count"`
	LegacyType      sql.NullString `db:"legacy_type"`
	LegacyCategory  sql.NullString `db:"legacy_category"`
}

const columns = `object_id, notification_id, channel, title, body, correlation_id, action,
	entity_id, extras_json, raw_payload, schema_version, created_at, delivered_at, read_at,
	consumed_at, state, source, presentation, occurrence_count, legacy_type, legacy_category`

func (s *Store) Insert(ctx context.Context, r *domain.Record) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO notifications (`+columns+`) VALUES (
			:object_id, :notification_id, :channel, :title, :body, :correlation_id, :action,
			:entity_id, :extras_json, :raw_payload, :schema_version, :created_at, :delivered_at,
			:read_at, :consumed_at, :state, :source, :presentation, :occurrence_count,
			:legacy_type, :legacy_category
		)`, toRow(r))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("inserting notification %s: %w", r.ID, err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, r *domain.Record) error {
	res, err := s.db.NamedExecContext(ctx, `
		UPDATE notifications SET
			channel = :channel, title = :title, body = :body, correlation_id = :correlation_id,
			action = :action, entity_id = :entity_id, extras_json = :extras_json,
			raw_payload = :raw_payload, schema_version = :schema_version,
			delivered_at = :delivered_at, read_at = :read_at, consumed_at = :consumed_at,
			state = :state, source = :source, presentation = :presentation,
			occurrence_count = :occurrence_count, legacy_type = :legacy_type,
			legacy_category = :legacy_category
		WHERE notification_id = :notification_id`, toRow(r))
	if err != nil {
		return fmt.Errorf("updating notification %s: %w", r.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating notification %s: %w", r.ID, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM notifications WHERE notification_id = ?", id); err != nil {
		return fmt.Errorf("deleting notification %s: %w", id, err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*domain.Record, error) {
	var rw row
	err := s.db.GetContext(ctx, &rw,
		"SELECT "+columns+" FROM notifications WHERE notification_id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting notification %s: %w", id, err)
	}
	return rw.toRecord(), nil
}

// ListOrdered returns every record by creation time; rowid breaks ties in insertion order.
func (s *Store) ListOrdered(ctx context.Context) ([]*domain.Record, error) {
	var rows []row
	err := s.db.SelectContext(ctx, &rows,
		"SELECT "+columns+" FROM notifications ORDER BY created_at ASC, rowid ASC")
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}

	out := make([]*domain.Record, len(rows))
	for i := range rows {
		out[i] = rows[i].toRecord()
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func toRow(r *domain.Record) row {
	return row{
		ObjectID:        r.ObjectID,
		ID:              r.ID,
		Channel:         r.Channel,
		Title:           r.Title,
		Body:            nullString(r.Body),
		CorrelationID:   nullString(r.CorrelationID),
		Action:          r.Action,
		EntityID:        nullString(r.EntityID),
		ExtrasJSON:      r.ExtrasJSON,
		RawPayload:      nullString(r.RawPayload),
		SchemaVersion:   r.SchemaVersion,
		CreatedAt:       r.TimestampCreated.UTC().UnixNano(),
		DeliveredAt:     nullTime(r.DeliveredAt),
		ReadAt:          nullTime(r.ReadAt),
		ConsumedAt:      nullTime(r.ConsumedAt),
		State:           string(r.State),
		Source:          string(r.Source),
		Presentation:    string(r.Presentation),
		OccurrenceCount: r.OccurrenceCount,
		LegacyType:      nullString(r.LegacyType),
		LegacyCategory:  nullString(r.LegacyCategory),
	}
}

func (rw row) toRecord() *domain.Record {
	return &domain.Record{
		ObjectID:         rw.ObjectID,
		ID:               rw.ID,
		Channel:          rw.Channel,
		Title:            rw.Title,
		Body:             stringPtr(rw.Body),
		CorrelationID:    stringPtr(rw.CorrelationID),
		Action:           rw.Action,
		EntityID:         stringPtr(rw.EntityID),
		ExtrasJSON:       rw.ExtrasJSON,
		RawPayload:       stringPtr(rw.RawPayload),
		SchemaVersion:    rw.SchemaVersion,
		TimestampCreated: time.Unix(0, rw.CreatedAt).UTC(),
		DeliveredAt:      timePtr(rw.DeliveredAt),
		ReadAt:           timePtr(rw.ReadAt),
		ConsumedAt:       timePtr(rw.ConsumedAt),
		State:            domain.State(rw.State),
		Source:           domain.Source(rw.Source),
		Presentation:     domain.Presentation(rw.Presentation),
		OccurrenceCount:  rw.OccurrenceCount,
		LegacyType:       stringPtr(rw.LegacyType),
		LegacyCategory:   stringPtr(rw.LegacyCategory),
	}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UTC().UnixNano(), Valid: true}
}

func timePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(0, n.Int64).UTC()
	return &t
}
