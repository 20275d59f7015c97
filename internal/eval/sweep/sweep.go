// Package sweep tunes a similarity parameter: every grid candidate is
// scored on a training range, the best is selected and then scored once on
// a held-out test range.
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval/evaluate"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval/metrics"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval/testset"
	apperrors "github.com/Adithya-Monish-Kumar-K/npleval/pkg/errors"
	pkgmetrics "github.com/Adithya-Monish-Kumar-K/npleval/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/npleval/pkg/tracing"
)

// State is the phase a Controller is in.
type State int

const (
	Idle State = iota
	Training
	Selecting
	Testing
	Reporting
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Training:
		return "training"
	case Selecting:
		return "selecting"
	case Testing:
		return "testing"
	case Reporting:
		return "reporting"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// DefaultTestDepth is how many hits are ranked per test query.
const DefaultTestDepth = 100

// Config describes one sweep.
type Config struct {
	Family     eval.Family
	Metric     metrics.Metric
	Cut        int
	TestDepth  int
	TrainRange testset.Range
	TestRange  testset.Range
	IndexID    string
}

func (c Config) Validate() error {
	if _, err := Grid(c.Family); err != nil {
		return err
	}
	if _, err := metrics.ParseMetric(string(c.Metric)); err != nil {
		return err
	}
	if c.Cut <= 0 {
		return apperrors.Usagef("cut must be positive, got %d", c.Cut)
	}
	if c.TestDepth < 0 {
		return apperrors.Usagef("test depth must not be negative, got %d", c.TestDepth)
	}
	if c.TrainRange.Overlaps(c.TestRange) {
		return apperrors.Usagef("training range %s overlaps test range %s", c.TrainRange, c.TestRange)
	}
	return nil
}

// CandidateResult is the score of one candidate on one range. It is not
// modified after the phase that produced it.
type CandidateResult struct {
	Candidate float64
	Model     eval.Model
	Ordinals  []int
	Scores    []float64
	Mean      float64
}

// Result is everything a finished sweep produced.
type Result struct {
	RunID      string
	Config     Config
	Training   []CandidateResult
	Selected   int
	Test       CandidateResult
	StartedAt  time.Time
	FinishedAt time.Time
}

// SelectedCandidate is the parameter value chosen on the training range.
func (r *Result) SelectedCandidate() float64 {
	return r.Training[r.Selected].Candidate
}

// Reporter receives a finished sweep.
type Reporter interface {
	Report(ctx context.Context, res *Result) error
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, res *Result) error

func (f ReporterFunc) Report(ctx context.Context, res *Result) error { return f(ctx, res) }

type Controller struct {
	evaluator *evaluate.Evaluator
	reporters []Reporter
	metrics   *pkgmetrics.Metrics
	logger    *slog.Logger

	mu      sync.Mutex
	state   State
	history []State
}

func NewController(ev *evaluate.Evaluator, m *pkgmetrics.Metrics, reporters ...Reporter) *Controller {
	return &Controller{
		evaluator: ev,
		reporters: reporters,
		metrics:   m,
		logger:    slog.Default().With("component", "sweep"),
		state:     Idle,
		history:   []State{Idle},
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// History returns every state the controller has been in, in order.
func (c *Controller) History() []State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]State(nil), c.history...)
}

func (c *Controller) transition(to State) {
	c.mu.Lock()
	from := c.state
	c.state = to
	c.history = append(c.history, to)
	c.mu.Unlock()
	c.logger.Info("sweep state changed", "from", from.String(), "to", to.String())
}

func (c *Controller) fail(err error) error {
	c.transition(Failed)
	return err
}

// Run executes the sweep. Any error moves the controller to Failed and is
// returned without partial results. A Controller runs once.
func (c *Controller) Run(ctx context.Context, cfg Config, train, test *testset.TestSet) (*Result, error) {
	if s := c.State(); s != Idle {
		return nil, fmt.Errorf("sweep controller already used (state %s)", s)
	}
	if err := cfg.Validate(); err != nil {
		return nil, c.fail(err)
	}
	if cfg.TestDepth == 0 {
		cfg.TestDepth = DefaultTestDepth
	}
	grid, _ := Grid(cfg.Family)
	res := &Result{
		RunID:     uuid.NewString(),
		Config:    cfg,
		StartedAt: time.Now().UTC(),
	}

	ctx, trace := tracing.StartTrace(ctx, "sweep", res.RunID)
	defer func() {
		trace.Finish()
		trace.Log(ctx, c.logger, slog.LevelDebug)
	}()

	c.transition(Training)
	phaseCtx, phase := tracing.Start(ctx, "training")
	for _, candidate := range grid {
		cr, err := c.score(phaseCtx, cfg, candidate, train, cfg.Cut, "training")
		if err != nil {
			return nil, c.fail(fmt.Errorf("training candidate %v: %w", candidate, err))
		}
		res.Training = append(res.Training, cr)
		if c.metrics != nil {
			c.metrics.CandidateMean.WithLabelValues(string(cfg.Family), string(cfg.Metric), pkgmetrics.FormatCandidate(candidate)).Set(cr.Mean)
		}
		c.logger.Info("candidate scored",
			"family", string(cfg.Family),
			"candidate", candidate,
			"metric", cfg.Metric.Label(cfg.Cut),
			"mean", cr.Mean,
		)
	}

	phase.Finish()

	c.transition(Selecting)
	res.Selected = selectBest(res.Training)
	chosen := res.SelectedCandidate()
	c.logger.Info("candidate selected",
		"family", string(cfg.Family),
		"candidate", chosen,
		"training_mean", res.Training[res.Selected].Mean,
	)

	c.transition(Testing)
	phaseCtx, phase = tracing.Start(ctx, "testing")
	tr, err := c.score(phaseCtx, cfg, chosen, test, cfg.TestDepth, "test")
	if err != nil {
		return nil, c.fail(fmt.Errorf("testing candidate %v: %w", chosen, err))
	}
	phase.Finish()
	res.Test = tr
	res.FinishedAt = time.Now().UTC()
	if c.metrics != nil {
		c.metrics.SelectedParameter.WithLabelValues(string(cfg.Family), string(cfg.Metric)).Set(chosen)
		c.metrics.TestMean.WithLabelValues(string(cfg.Family), string(cfg.Metric)).Set(tr.Mean)
	}

	c.transition(Reporting)
	_, phase = tracing.Start(ctx, "reporting")
	defer phase.Finish()
	for _, r := range c.reporters {
		if err := r.Report(ctx, res); err != nil {
			return nil, c.fail(fmt.Errorf("reporting sweep: %w", err))
		}
	}
	c.transition(Done)
	return res, nil
}

func (c *Controller) score(ctx context.Context, cfg Config, candidate float64, ts *testset.TestSet, depth int, phase string) (CandidateResult, error) {
	ctx, span := tracing.Start(ctx, "candidate")
	defer span.Finish()
	model := ModelFor(cfg.Family, candidate)
	out, err := c.evaluator.Evaluate(ctx, model, ts, evaluate.Options{
		Cut:   cfg.Cut,
		Depth: depth,
		Phase: phase,
	})
	if err != nil {
		return CandidateResult{}, err
	}
	scores := out.Series(cfg.Metric)
	mean := metrics.Mean(scores)
	span.SetAttrs("model", model.String(), "queries", len(scores), "mean", mean)
	return CandidateResult{
		Candidate: candidate,
		Model:     model,
		Ordinals:  ts.Ordinals(),
		Scores:    scores,
		Mean:      mean,
	}, nil
}

// selectBest returns the index of the greatest mean; the earliest candidate
// wins ties.
func selectBest(results []CandidateResult) int {
	best := 0
	for i := 1; i < len(results); i++ {
		if results[i].Mean > results[best].Mean {
			best = i
		}
	}
	return best
}
