package stage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/gridsight/heatgrid-cli/internal/store"
)

// RunEntry is one row of the stage_runs ledger.
type RunEntry struct {
	ID          string     `json:"id"`
	Stage       string     `json:"stage"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	RowsWritten int64      `json:"rows_written"`
	Error       string     `json:"error,omitempty"`
}

// RunLog records stage outcomes in the stage_runs table so operators can
// spot cardinality regressions without inspecting the derived tables.
type RunLog struct {
	st *store.Store
}

// NewRunLog creates a RunLog backed by the given store.
func NewRunLog(st *store.Store) *RunLog {
	return &RunLog{st: st}
}

// Start records the beginning of a stage run and returns its ID.
func (r *RunLog) Start(ctx context.Context, stage string) (string, error) {
	id := uuid.New().String()
	_, err := r.st.DB().ExecContext(ctx,
		`INSERT INTO stage_runs (id, stage, status, started_at) VALUES (?, ?, 'running', ?)`,
		id, stage, time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrapf(err, "runlog: start %s", stage)
	}
	return id, nil
}

// Complete marks a stage run as successful with its output row count.
func (r *RunLog) Complete(ctx context.Context, id string, rows int64) error {
	_, err := r.st.DB().ExecContext(ctx,
		`UPDATE stage_runs SET status = 'complete', completed_at = ?, rows_written = ? WHERE id = ?`,
		time.Now().UTC(), rows, id,
	)
	return eris.Wrapf(err, "runlog: complete %s", id)
}

// Fail marks a stage run as failed with an error message.
func (r *RunLog) Fail(ctx context.Context, id string, errMsg string) error {
	_, err := r.st.DB().ExecContext(ctx,
		`UPDATE stage_runs SET status = 'failed', completed_at = ?, error = ? WHERE id = ?`,
		time.Now().UTC(), errMsg, id,
	)
	return eris.Wrapf(err, "runlog: fail %s", id)
}

// ListAll returns all ledger entries, most recent first.
func (r *RunLog) ListAll(ctx context.Context) ([]RunEntry, error) {
	rows, err := r.st.DB().QueryContext(ctx,
		`SELECT id, stage, status, started_at, completed_at, rows_written, error
		 FROM stage_runs ORDER BY started_at DESC, id`)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: list")
	}
	defer rows.Close()

	var entries []RunEntry
	for rows.Next() {
		var (
			e           RunEntry
			completedAt *time.Time
			errStr      *string
		)
		if err := rows.Scan(&e.ID, &e.Stage, &e.Status, &e.StartedAt, &completedAt, &e.RowsWritten, &errStr); err != nil {
			return nil, eris.Wrap(err, "runlog: scan entry")
		}
		e.CompletedAt = completedAt
		if errStr != nil {
			e.Error = *errStr
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "runlog: iterate")
}
