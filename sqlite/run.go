package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fwojciec/wikidigest"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ wikidigest.RunService = (*RunService)(nil)

// RunService implements wikidigest.RunService using SQLite. Stats and page
// results are stored as JSON columns.
type RunService struct {
	db *DB
}

// NewRunService creates a new RunService.
func NewRunService(db *DB) *RunService {
	return &RunService{db: db}
}

// CreateRun stores a finished run and assigns its ID.
func (s *RunService) CreateRun(ctx context.Context, run *wikidigest.RunSummary) error {
	if run.StartedAt.IsZero() {
		return wikidigest.Errorf(wikidigest.EINVALID, "run start time required")
	}

	stats, err := json.Marshal(run.Stats)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	results := run.Results
	if results == nil {
		results = []*wikidigest.PageResult{}
	}
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}

	run.ID = uuid.New().String()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, pages_processed, pages_with_changes, pages_successful, stats, results)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, formatTime(run.StartedAt), formatTime(run.FinishedAt),
		run.PagesProcessed, run.PagesWithChanges, run.PagesSuccessful, string(stats), string(resultsJSON))

	return err
}

// FindRunByID retrieves one run with its page results.
func (s *RunService) FindRunByID(ctx context.Context, id string) (*wikidigest.RunSummary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, pages_processed, pages_with_changes, pages_successful, stats, results
		FROM runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wikidigest.Errorf(wikidigest.ENOTFOUND, "run not found")
	}
	return run, err
}

// FindRuns retrieves runs newest first.
func (s *RunService) FindRuns(ctx context.Context, filter wikidigest.RunFilter) ([]*wikidigest.RunSummary, error) {
	var query strings.Builder
	var args []any

	query.WriteString(`SELECT id, started_at, finished_at, pages_processed, pages_with_changes, pages_successful, stats, results
		FROM runs ORDER BY started_at DESC`)
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*wikidigest.RunSummary
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(row scanner) (*wikidigest.RunSummary, error) {
	var run wikidigest.RunSummary
	var startedAt, finishedAt, stats, results string

	if err := row.Scan(&run.ID, &startedAt, &finishedAt, &run.PagesProcessed, &run.PagesWithChanges,
		&run.PagesSuccessful, &stats, &results); err != nil {
		return nil, err
	}

	var err error
	if run.StartedAt, err = parseTime(startedAt, "started_at"); err != nil {
		return nil, err
	}
	if run.FinishedAt, err = parseTime(finishedAt, "finished_at"); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(stats), &run.Stats); err != nil {
		return nil, fmt.Errorf("failed to parse stats: %w", err)
	}
	if err := json.Unmarshal([]byte(results), &run.Results); err != nil {
		return nil, fmt.Errorf("failed to parse results: %w", err)
	}
	return &run, nil
}
