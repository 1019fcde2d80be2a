// Package store keeps a history of planned routes in SQLite.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// ErrNotFound is returned when a requested plan does not exist.
var ErrNotFound = errors.New("plan not found")

// Plan is a saved planning result.
type Plan struct {
	ID        string
	CreatedAt time.Time
	Tickets   []string // raw ticket lines, may be empty when places were given directly
	Required  []string
	Sweep     string
	Edges     []Edge // nil in List results
	Distance  uint32
	Budget    int
}

// Edge is one connection of a saved route.
type Edge struct {
	From   string
	To     string
	Trains uint32
}

// Store is a SQLite-backed plan history.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at path and applies the schema.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps per-connection pragmas and ":memory:" databases consistent.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// HealthCheck verifies the database connection is alive.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Save stores p, assigning its ID and creation time.
func (s *Store) Save(ctx context.Context, p *Plan) (*Plan, error) {
	saved := *p
	saved.ID = uuid.NewString()
	saved.CreatedAt = time.Now().UTC()

	tickets, err := json.Marshal(nonNil(saved.Tickets))
	if err != nil {
		return nil, fmt.Errorf("failed to encode tickets: %w", err)
	}
	required, err := json.Marshal(nonNil(saved.Required))
	if err != nil {
		return nil, fmt.Errorf("failed to encode required places: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO plans (id, created_at, tickets, required, sweep, distance, budget) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		saved.ID, saved.CreatedAt.UnixNano(), string(tickets), string(required), saved.Sweep, saved.Distance, saved.Budget)
	if err != nil {
		return nil, fmt.Errorf("failed to create plan: %w", err)
	}

	for i, e := range saved.Edges {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO plan_edges (plan_id, seq, place_a, place_b, trains) VALUES (?, ?, ?, ?, ?)`,
			saved.ID, i, e.From, e.To, e.Trains)
		if err != nil {
			return nil, fmt.Errorf("failed to create plan edge: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit plan: %w", err)
	}
	return &saved, nil
}

// Get returns the plan with the given ID, including its edges.
func (s *Store) Get(ctx context.Context, id string) (*Plan, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, tickets, required, sweep, distance, budget FROM plans WHERE id = ?`, id)
	p, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT place_a, place_b, trains FROM plan_edges WHERE plan_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query plan edges: %w", err)
	}
	defer rows.Close()

	p.Edges = []Edge{}
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.From, &e.To, &e.Trains); err != nil {
			return nil, fmt.Errorf("failed to scan plan edge: %w", err)
		}
		p.Edges = append(p.Edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return p, nil
}

// List returns plans newest first, without edges, and the total plan count.
func (s *Store) List(ctx context.Context, limit, offset int) ([]Plan, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM plans`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count plans: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, tickets, required, sweep, distance, budget
		 FROM plans ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query plans: %w", err)
	}
	defer rows.Close()

	plans := []Plan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("row iteration error: %w", err)
	}
	return plans, total, nil
}

// Delete removes a plan and its edges.
func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM plan_edges WHERE plan_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete plan edges: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM plans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlan(sc scanner) (*Plan, error) {
	var (
		p                 Plan
		created           int64
		tickets, required string
	)
	if err := sc.Scan(&p.ID, &created, &tickets, &required, &p.Sweep, &p.Distance, &p.Budget); err != nil {
		return nil, err
	}
	p.CreatedAt = time.Unix(0, created).UTC()
	if err := json.Unmarshal([]byte(tickets), &p.Tickets); err != nil {
		return nil, fmt.Errorf("decode tickets: %w", err)
	}
	if err := json.Unmarshal([]byte(required), &p.Required); err != nil {
		return nil, fmt.Errorf("decode required places: %w", err)
	}
	return &p, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
