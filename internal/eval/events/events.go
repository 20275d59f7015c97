// Package events announces finished sweeps on Kafka.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval/sweep"
	"github.com/Adithya-Monish-Kumar-K/npleval/pkg/kafka"
	pkgmetrics "github.com/Adithya-Monish-Kumar-K/npleval/pkg/metrics"
)

// EventRunCompleted is the type of every event published by Announcer.
const EventRunCompleted = "run_completed"

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// RunCompleted is the JSON payload of a finished sweep.
type RunCompleted struct {
	Type       string             `json:"type"`
	RunID      string             `json:"runId"`
	Family     string             `json:"family"`
	Metric     string             `json:"metric"`
	MetricKey  string             `json:"metricKey"`
	TrainRange string             `json:"trainRange"`
	TestRange  string             `json:"testRange"`
	Candidates map[string]float64 `json:"candidates"`
	Selected   float64            `json:"selected"`
	TestMean   float64            `json:"testMean"`
	IndexID    string             `json:"indexId,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
}

// Announcer implements sweep.Reporter.
type Announcer struct {
	pub Publisher
}

func NewAnnouncer(pub Publisher) *Announcer {
	return &Announcer{pub: pub}
}

func (a *Announcer) Report(ctx context.Context, res *sweep.Result) error {
	ev := NewRunCompleted(res)
	if err := a.pub.Publish(ctx, kafka.Event{Key: res.RunID, Value: ev}); err != nil {
		return fmt.Errorf("announcing run %s: %w", res.RunID, err)
	}
	return nil
}

func NewRunCompleted(res *sweep.Result) RunCompleted {
	cfg := res.Config
	ev := RunCompleted{
		Type:       EventRunCompleted,
		RunID:      res.RunID,
		Family:     string(cfg.Family),
		Metric:     string(cfg.Metric),
		MetricKey:  cfg.Metric.Token(cfg.Cut),
		TrainRange: cfg.TrainRange.String(),
		TestRange:  cfg.TestRange.String(),
		Candidates: make(map[string]float64, len(res.Training)),
		Selected:   res.SelectedCandidate(),
		TestMean:   res.Test.Mean,
		IndexID:    cfg.IndexID,
		Timestamp:  res.FinishedAt.UTC(),
	}
	for _, cr := range res.Training {
		ev.Candidates[pkgmetrics.FormatCandidate(cr.Candidate)] = cr.Mean
	}
	return ev
}
