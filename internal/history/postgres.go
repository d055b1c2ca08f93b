package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"dal/pkg/schema"
)

const createHistoryTable = `
CREATE TABLE IF NOT EXISTS analysis_history (
	id             VARCHAR PRIMARY KEY,
	user_id        VARCHAR NOT NULL,
	original_text  TEXT NOT NULL,
	suggestions    JSONB NOT NULL,
	title          TEXT,
	accepted_count INTEGER NOT NULL DEFAULT 0,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS analysis_history_user_created_idx
	ON analysis_history (user_id, created_at DESC);
`

// PostgresStore keeps history in the analysis_history table.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenPostgres opens databaseURL with the pgx driver and pings it.
func OpenPostgres(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxIdleConns(5)
	db.SetMaxOpenConns(10)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

// NewPostgresStore wraps db. Call Migrate before first use.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// Migrate creates the history table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createHistoryTable); err != nil {
		return fmt.Errorf("create analysis_history: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, req schema.HistoryRequest) (schema.HistoryRecord, error) {
	rec, err := newRecord(req, uuid.NewString(), s.now().UTC())
	if err != nil {
		return schema.HistoryRecord{}, err
	}
	suggestions, err := json.Marshal(rec.Suggestions)
	if err != nil {
		return schema.HistoryRecord{}, fmt.Errorf("marshal suggestions: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return schema.HistoryRecord{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO analysis_history (id, user_id, original_text, suggestions, title, accepted_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	`, rec.ID, rec.User, rec.Text, string(suggestions), rec.Title, rec.AcceptedCount, rec.CreatedAt); err != nil {
		return schema.HistoryRecord{}, fmt.Errorf("insert history record: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM analysis_history
		WHERE user_id = $1 AND id NOT IN (
			SELECT id FROM analysis_history WHERE user_id = $1
			ORDER BY created_at DESC, id DESC LIMIT $2
		)
	`, rec.User, schema.HistoryLimit); err != nil {
		return schema.HistoryRecord{}, fmt.Errorf("prune history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return schema.HistoryRecord{}, fmt.Errorf("commit: %w", err)
	}
	return cloneRecord(rec), nil
}

func (s *PostgresStore) Update(ctx context.Context, user, id string, suggestions []schema.Suggestion, acceptedCount int) error {
	if suggestions == nil {
		suggestions = []schema.Suggestion{}
	}
	data, err := json.Marshal(suggestions)
	if err != nil {
		return fmt.Errorf("marshal suggestions: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE analysis_history SET suggestions = $3, accepted_count = $4, updated_at = $5
		WHERE id = $1 AND user_id = $2
	`, id, user, string(data), acceptedCount, s.now().UTC())
	if err != nil {
		return fmt.Errorf("update history record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update history record: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const selectHistory = `
	SELECT id, user_id, original_text, suggestions, COALESCE(title, ''), accepted_count, created_at, updated_at
	FROM analysis_history`

func (s *PostgresStore) List(ctx context.Context, user string) ([]schema.HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectHistory+`
		WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2
	`, user, schema.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	out := []schema.HistoryRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, user, id string) (schema.HistoryRecord, error) {
	row := s.db.QueryRowContext(ctx, selectHistory+` WHERE id = $1 AND user_id = $2`, id, user)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return schema.HistoryRecord{}, ErrNotFound
	}
	return rec, err
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (schema.HistoryRecord, error) {
	var (
		rec         schema.HistoryRecord
		suggestions []byte
	)
	if err := row.Scan(&rec.ID, &rec.User, &rec.Text, &suggestions, &rec.Title, &rec.AcceptedCount, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return schema.HistoryRecord{}, err
		}
		return schema.HistoryRecord{}, fmt.Errorf("scan history record: %w", err)
	}
	if err := json.Unmarshal(suggestions, &rec.Suggestions); err != nil {
		return schema.HistoryRecord{}, fmt.Errorf("unmarshal suggestions: %w", err)
	}
	return rec, nil
}
