package archive

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval/metrics"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval/sweep"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval/testset"
	"github.com/Adithya-Monish-Kumar-K/npleval/pkg/postgres"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *Store) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock, NewStore(postgres.Wrap(db))
}

func sampleResult() *sweep.Result {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &sweep.Result{
		RunID: "7f1c2a4e-0000-4000-8000-000000000001",
		Config: sweep.Config{
			Family:     eval.FamilyDirichlet,
			Metric:     metrics.AveragePrecision,
			Cut:        10,
			TrainRange: testset.Span(1, 2),
			TestRange:  testset.Span(3, 3),
		},
		Training: []sweep.CandidateResult{
			{Candidate: 0, Model: eval.Model{Family: eval.FamilyDirichlet}, Ordinals: []int{1, 2}, Scores: []float64{0.1, 0.2}, Mean: 0.15},
			{Candidate: 200, Model: eval.Model{Family: eval.FamilyDirichlet, Param: 200}, Ordinals: []int{1, 2}, Scores: []float64{0.3, 0.5}, Mean: 0.4},
		},
		Selected:   1,
		Test:       sweep.CandidateResult{Candidate: 200, Model: eval.Model{Family: eval.FamilyDirichlet, Param: 200}, Ordinals: []int{3}, Scores: []float64{0.6}, Mean: 0.6},
		StartedAt:  now,
		FinishedAt: now.Add(time.Minute),
	}
}

func TestReport(t *testing.T) {
	_, mock, store := setupMockDB(t)
	res := sampleResult()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO eval_runs").
		WithArgs(res.RunID, "dir", "MAP", 10, "1-2", "3", 200.0, 0.6,
			sqlmock.AnyArg(), res.StartedAt, res.FinishedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO eval_run_candidates").
		WithArgs(res.RunID, 0, 0.0, 0.15).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO eval_run_candidates").
		WithArgs(res.RunID, 1, 200.0, 0.4).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, store.Report(context.Background(), res))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRollsBackOnError(t *testing.T) {
	_, mock, store := setupMockDB(t)
	res := sampleResult()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO eval_runs").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO eval_run_candidates").WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err := store.Report(context.Background(), res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "constraint violation")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	_, mock, store := setupMockDB(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS eval_runs").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecent(t *testing.T) {
	_, mock, store := setupMockDB(t)
	finished := time.Date(2024, 5, 1, 12, 1, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"run_id", "family", "metric", "cut", "train_range", "test_range", "selected", "test_mean", "finished_at"}).
		AddRow("r1", "jm", "P", 10, "1-30", "31-93", 0.7, 0.21, finished)
	mock.ExpectQuery("SELECT (.+) FROM eval_runs ORDER BY finished_at DESC").
		WithArgs(5).
		WillReturnRows(rows)

	got, err := store.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, RunSummary{
		RunID: "r1", Family: "jm", Metric: "P", Cut: 10,
		TrainRange: "1-30", TestRange: "31-93",
		Selected: 0.7, TestMean: 0.21, FinishedAt: finished,
	}, got[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad(t *testing.T) {
	_, mock, store := setupMockDB(t)
	mock.ExpectQuery("SELECT data FROM eval_runs WHERE run_id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	rec, err := store.Load(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, rec)

	mock.ExpectQuery("SELECT data FROM eval_runs WHERE run_id").
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).
			AddRow([]byte(`{"trainOrdinals":[1,2],"candidates":[{"candidate":0,"model":"dir(0)","scores":[0.1,0.2],"mean":0.15}],"test":{"candidate":0,"model":"dir(0)","scores":[0.3],"mean":0.3}}`)))
	rec, err = store.Load(context.Background(), "r1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, []int{1, 2}, rec.Ordinals)
	assert.Equal(t, 0.3, rec.Test.Mean)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewRecord(t *testing.T) {
	rec := newRecord(sampleResult())
	require.Len(t, rec.Candidates, 2)
	assert.Equal(t, "dir(200)", rec.Candidates[1].Model)
	assert.Equal(t, []int{1, 2}, rec.Ordinals)
	assert.Equal(t, 0.6, rec.Test.Mean)
}
