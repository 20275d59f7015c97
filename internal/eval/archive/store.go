// Package archive persists finished sweeps to PostgreSQL so that runs over
// the same collection can be compared later.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval/sweep"
	"github.com/Adithya-Monish-Kumar-K/npleval/pkg/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS eval_runs (
    run_id      UUID PRIMARY KEY,
    family      TEXT NOT NULL,
    metric      TEXT NOT NULL,
    cut         INTEGER NOT NULL,
    train_range TEXT NOT NULL,
    test_range  TEXT NOT NULL,
    selected    DOUBLE PRECISION NOT NULL,
    test_mean   DOUBLE PRECISION NOT NULL,
    data        JSONB NOT NULL,
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS eval_run_candidates (
    run_id    UUID NOT NULL REFERENCES eval_runs (run_id) ON DELETE CASCADE,
    position  INTEGER NOT NULL,
    candidate DOUBLE PRECISION NOT NULL,
    mean      DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (run_id, position)
);`

// Record is the JSON document stored with every run.
type Record struct {
	IndexID    string            `json:"indexId,omitempty"`
	Ordinals   []int             `json:"trainOrdinals"`
	Candidates []CandidateRecord `json:"candidates"`
	Test       CandidateRecord   `json:"test"`
}

type CandidateRecord struct {
	Candidate float64   `json:"candidate"`
	Model     string    `json:"model"`
	Scores    []float64 `json:"scores"`
	Mean      float64   `json:"mean"`
}

// RunSummary is one row of eval_runs without the JSON document.
type RunSummary struct {
	RunID      string
	Family     string
	Metric     string
	Cut        int
	TrainRange string
	TestRange  string
	Selected   float64
	TestMean   float64
	FinishedAt time.Time
}

// Store implements sweep.Reporter on top of PostgreSQL.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "run-archive"),
	}
}

// EnsureSchema creates the archive tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating archive schema: %w", err)
	}
	return nil
}

// Report stores res and its per-candidate means in one transaction.
func (s *Store) Report(ctx context.Context, res *sweep.Result) error {
	data, err := json.Marshal(newRecord(res))
	if err != nil {
		return fmt.Errorf("marshaling run record: %w", err)
	}
	cfg := res.Config
	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO eval_runs (run_id, family, metric, cut, train_range, test_range, selected, test_mean, data, started_at, finished_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			res.RunID, string(cfg.Family), string(cfg.Metric), cfg.Cut,
			cfg.TrainRange.String(), cfg.TestRange.String(),
			res.SelectedCandidate(), res.Test.Mean, data,
			res.StartedAt, res.FinishedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting run: %w", err)
		}
		for i, cr := range res.Training {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO eval_run_candidates (run_id, position, candidate, mean) VALUES ($1, $2, $3, $4)`,
				res.RunID, i, cr.Candidate, cr.Mean,
			); err != nil {
				return fmt.Errorf("inserting candidate %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("archiving run %s: %w", res.RunID, err)
	}
	s.logger.Info("run archived",
		"run_id", res.RunID,
		"family", string(cfg.Family),
		"selected", res.SelectedCandidate(),
		"test_mean", res.Test.Mean,
	)
	return nil
}

// Recent lists the latest runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT run_id, family, metric, cut, train_range, test_range, selected, test_mean, finished_at
		 FROM eval_runs ORDER BY finished_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()
	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.Family, &r.Metric, &r.Cut, &r.TrainRange, &r.TestRange,
			&r.Selected, &r.TestMean, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return out, nil
}

// Load returns the stored record of a run, or nil, nil when it does not
// exist.
func (s *Store) Load(ctx context.Context, runID string) (*Record, error) {
	var data []byte
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT data FROM eval_runs WHERE run_id = $1`, runID,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying run %s: %w", runID, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshaling run %s: %w", runID, err)
	}
	return &rec, nil
}

func newRecord(res *sweep.Result) Record {
	rec := Record{IndexID: res.Config.IndexID}
	for _, cr := range res.Training {
		rec.Candidates = append(rec.Candidates, candidateRecord(cr))
	}
	if len(res.Training) > 0 {
		rec.Ordinals = res.Training[0].Ordinals
	}
	rec.Test = candidateRecord(res.Test)
	return rec
}

func candidateRecord(cr sweep.CandidateResult) CandidateRecord {
	return CandidateRecord{
		Candidate: cr.Candidate,
		Model:     cr.Model.String(),
		Scores:    cr.Scores,
		Mean:      cr.Mean,
	}
}
