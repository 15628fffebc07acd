//go:build sqlite
// +build sqlite

package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"daypack/internal/engine"
	logx "daypack/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) PutRecurring(ctx context.Context, r Recurring) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("recurring id required")
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recurring(id, user_id, title, priority, minutes, days, created_at)
		 VALUES(?,?,?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET
		   user_id=excluded.user_id, title=excluded.title, priority=excluded.priority,
		   minutes=excluded.minutes, days=excluded.days`,
		r.ID, r.UserID, r.Title, r.Priority.String(), r.Minutes, r.Days, r.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

func (s *sqliteStore) PutObjective(ctx context.Context, o Objective) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if strings.TrimSpace(o.ID) == "" {
		return errors.New("objective id required")
	}
	if o.Status == "" {
		o.Status = engine.StatusNotStarted
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO objectives(id, user_id, title, priority, minutes, status, created_at)
		 VALUES(?,?,?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET
		   user_id=excluded.user_id, title=excluded.title, priority=excluded.priority,
		   minutes=excluded.minutes, status=excluded.status`,
		o.ID, o.UserID, o.Title, o.Priority.String(), o.Minutes, string(o.Status), o.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

func (s *sqliteStore) UnmetRecurring(ctx context.Context, userID string, day time.Time) ([]Recurring, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.user_id, r.title, r.priority, r.minutes, r.days, r.created_at
		   FROM recurring r
		  WHERE r.user_id = ?
		    AND NOT EXISTS (
		      SELECT 1 FROM recurring_done d WHERE d.recurring_id = r.id AND d.day = ?
		    )
		  ORDER BY r.created_at`,
		userID, day.Format(DayKey),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Recurring
	for rows.Next() {
		var r Recurring
		var prio, created string
		if err := rows.Scan(&r.ID, &r.UserID, &r.Title, &prio, &r.Minutes, &r.Days, &created); err != nil {
			return nil, err
		}
		r.Priority = engine.ParsePriority(prio)
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		// Weekday selection is evaluated here, not in SQL.
		if r.FiresOn(day) {
			out = append(out, r)
		}
	}
	return out, rows.Err()
}

func (s *sqliteStore) OpenObjectives(ctx context.Context, userID string) ([]Objective, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, priority, minutes, status, created_at
		   FROM objectives
		  WHERE user_id = ? AND status != ?
		  ORDER BY created_at`,
		userID, string(engine.StatusCompleted),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Objective
	for rows.Next() {
		var o Objective
		var prio, status, created string
		if err := rows.Scan(&o.ID, &o.UserID, &o.Title, &prio, &o.Minutes, &status, &created); err != nil {
			return nil, err
		}
		o.Priority = engine.ParsePriority(prio)
		o.Status = engine.Status(status)
		o.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *sqliteStore) MarkRecurringDone(ctx context.Context, id, userID string, day time.Time) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM recurring WHERE id = ? AND user_id = ?`, id, userID,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	// INSERT OR IGNORE keeps repeated marks idempotent.
	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO recurring_done(recurring_id, day) VALUES(?,?)`,
		id, day.Format(DayKey),
	)
	return err
}

func (s *sqliteStore) SetObjectiveStatus(ctx context.Context, id, userID string, status engine.Status) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	// Completed objectives never regress.
	res, err := s.db.ExecContext(ctx,
		`UPDATE objectives SET status = ?
		  WHERE id = ? AND user_id = ? AND status != ?`,
		string(status), id, userID, string(engine.StatusCompleted),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		err := s.db.QueryRowContext(ctx,
			`SELECT 1 FROM objectives WHERE id = ? AND user_id = ?`, id, userID,
		).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
