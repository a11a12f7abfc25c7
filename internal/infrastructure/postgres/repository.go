package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"vn.io.arda/notification-pipeline/internal/domain"
)

const uniqueViolation = "23505"

// Repository is the PostgreSQL implementation of domain.Store.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new postgres Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectColumns = `
	object_id, notification_id, channel, title, body, correlation_id, action, entity_id,
	extras_json, raw_payload, schema_version, created_at, delivered_at, read_at, consumed_at,
	state, source, presentation, occurrence_count, legacy_type, legacy_category`

// Insert stores a new record. The unique index on notification_id turns a concurrent
// insert of the same Id into domain.ErrDuplicate.
func (r *Repository) Insert(ctx context.Context, n *domain.Record) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (`+selectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`,
		n.ObjectID, n.ID, n.Channel, n.Title, n.Body, n.CorrelationID, n.Action, n.EntityID,
		n.ExtrasJSON, n.RawPayload, n.SchemaVersion, n.TimestampCreated, n.DeliveredAt, n.ReadAt,
		n.ConsumedAt, string(n.State), string(n.Source), string(n.Presentation), n.OccurrenceCount,
		n.LegacyType, n.LegacyCategory,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// Update overwrites every mutable column of the record with the same Id.
func (r *Repository) Update(ctx context.Context, n *domain.Record) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications SET
			channel = $2, title = $3, body = $4, correlation_id = $5, action = $6, entity_id = $7,
			extras_json = $8, raw_payload = $9, schema_version = $10, delivered_at = $11,
			read_at = $12, consumed_at = $13, state = $14, source = $15, presentation = $16,
			occurrence_count = $17, legacy_type = $18, legacy_category = $19
		WHERE notification_id = $1
	`,
		n.ID, n.Channel, n.Title, n.Body, n.CorrelationID, n.Action, n.EntityID,
		n.ExtrasJSON, n.RawPayload, n.SchemaVersion, n.DeliveredAt,
		n.ReadAt, n.ConsumedAt, string(n.State), string(n.Source), string(n.Presentation),
		n.OccurrenceCount, n.LegacyType, n.LegacyCategory,
	)
	if err != nil {
		return fmt.Errorf("update notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a notification. Missing rows are not an error.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE notification_id = $1`, id); err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}

// FindByID fetches a single notification by content Id.
func (r *Repository) FindByID(ctx context.Context, id string) (*domain.Record, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM notifications WHERE notification_id = $1`, id)
	n, err := scanNotification(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return n, err
}

// ListOrdered returns every notification, oldest first.
func (r *Repository) ListOrdered(ctx context.Context) ([]*domain.Record, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+selectColumns+` FROM notifications ORDER BY created_at ASC, seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var results []*domain.Record
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, n)
	}
	return results, rows.Err()
}

// Ping checks the pool can reach the database.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanNotification(row scannable) (*domain.Record, error) {
	var n domain.Record
	var state, source, presentation string

	err := row.Scan(
		&n.ObjectID, &n.ID, &n.Channel, &n.Title, &n.Body, &n.CorrelationID, &n.Action, &n.EntityID,
		&n.ExtrasJSON, &n.RawPayload, &n.SchemaVersion, &n.TimestampCreated, &n.DeliveredAt, &n.ReadAt,
		&n.ConsumedAt, &state, &source, &presentation, &n.OccurrenceCount, &n.LegacyType, &n.LegacyCategory,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan notification: %w", err)
	}

	n.State = domain.State(state)
	n.Source = domain.Source(source)
	n.Presentation = domain.Presentation(presentation)
	n.TimestampCreated = n.TimestampCreated.UTC()
	return &n, nil
}
