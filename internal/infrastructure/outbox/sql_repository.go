package outbox

import (
	"context"
	"database/sql"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/event"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// SQLRepository stores the outbox in the outbox_events table. The SQL is
// portable across the sqlite and mysql drivers.
type SQLRepository struct {
	db DBTX
}

func NewSQLRepository(db DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Save(ctx context.Context, evt OutboxEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO outbox_events (id, event_type, payload, published, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		evt.ID,
		string(evt.Type),
		evt.Payload,
		0,
		evt.CreatedAt,
	)
	return err
}

func (r *SQLRepository) FindUnpublished(ctx context.Context, limit int) ([]OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, event_type, payload, published, created_at
		FROM outbox_events
		WHERE published = 0
		ORDER BY created_at, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []OutboxEvent

	for rows.Next() {
		var evt OutboxEvent
		var published int

		if err := rows.Scan(
			&evt.ID,
			&evt.Type,
			&evt.Payload,
			&published,
			&evt.CreatedAt,
		); err != nil {
			return nil, err
		}

		evt.Published = published == 1
		events = append(events, evt)
	}

	return events, rows.Err()
}

func (r *SQLRepository) MarkPublished(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE outbox_events
		SET published = 1
		WHERE id = ?
	`, id)

	return err
}

func (r *SQLRepository) CountUnpublished(ctx context.Context) (map[event.Type]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT event_type, COUNT(*)
		FROM outbox_events
		WHERE published = 0
		GROUP BY event_type
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	backlog := make(map[event.Type]int)
	for rows.Next() {
		var (
			typ   event.Type
			count int
		)
		if err := rows.Scan(&typ, &count); err != nil {
			return nil, err
		}
		backlog[typ] = count
	}
	return backlog, rows.Err()
}
