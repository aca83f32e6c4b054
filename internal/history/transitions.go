package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const transitionColumns = "id, job_id, session_id, source_path, state, outcome, detail, output_path, exit_code, attempt, preset_version, created_at"

const defaultListLimit = 50

// Transition is one recorded state change of a job.
type Transition struct {
	ID            int64
	JobID         string
	SessionID     string
	SourcePath    string
	State         string
	Outcome       string
	Detail        string
	OutputPath    string
	ExitCode      *int
	Attempt       int
	PresetVersion string
	CreatedAt     time.Time
}

// Recorder is the subset of Store the workflow writes through.
type Recorder interface {
	Record(ctx context.Context, t Transition) error
}

// Record appends a transition. CreatedAt defaults to now.
func (s *Store) Record(ctx context.Context, t Transition) error {
	if s == nil || s.db == nil {
		return errors.New("history store is not open")
	}
	if strings.TrimSpace(t.JobID) == "" {
		return errors.New("transition job id is required")
	}
	if strings.TrimSpace(t.State) == "" {
		return errors.New("transition state is required")
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	if t.Attempt <= 0 {
		t.Attempt = 1
	}
	_, err := s.exec(
		ctx,
		`INSERT INTO transitions (
            job_id, session_id, source_path, state, outcome, detail,
            output_path, exit_code, attempt, preset_version, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.JobID,
		nullableString(t.SessionID),
		t.SourcePath,
		t.State,
		nullableString(t.Outcome),
		nullableString(t.Detail),
		nullableString(t.OutputPath),
		nullableInt(t.ExitCode),
		t.Attempt,
		nullableString(t.PresetVersion),
		t.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}
	return nil
}

// Recent returns the newest transitions first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Transition, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctxOrBackground(ctx),
		`SELECT `+transitionColumns+` FROM transitions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

// ForJob returns the transitions of one job in the order they happened.
func (s *Store) ForJob(ctx context.Context, jobID string) ([]Transition, error) {
	rows, err := s.db.QueryContext(ctxOrBackground(ctx),
		`SELECT `+transitionColumns+` FROM transitions WHERE job_id = ? ORDER BY id ASC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("query job transitions: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

// OutcomeCounts tallies terminal outcomes across all recorded jobs.
func (s *Store) OutcomeCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctxOrBackground(ctx),
		`SELECT outcome, COUNT(1) FROM transitions WHERE outcome IS NOT NULL GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("query outcome counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			outcome string
			count   int
		)
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("scan outcome count: %w", err)
		}
		counts[outcome] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcome counts: %w", err)
	}
	return counts, nil
}

func collect(rows *sql.Rows) ([]Transition, error) {
	var out []Transition
	for rows.Next() {
		t, err := scanTransition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transitions: %w", err)
	}
	return out, nil
}
