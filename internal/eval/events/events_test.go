package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval/metrics"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval/sweep"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval/testset"
	"github.com/Adithya-Monish-Kumar-K/npleval/pkg/kafka"
)

type fakePublisher struct {
	events []kafka.Event
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, ev kafka.Event) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func sampleResult() *sweep.Result {
	return &sweep.Result{
		RunID: "run-1",
		Config: sweep.Config{
			Family:     eval.FamilyJM,
			Metric:     metrics.Precision,
			Cut:        10,
			TrainRange: testset.Span(1, 30),
			TestRange:  testset.Span(31, 93),
		},
		Training: []sweep.CandidateResult{
			{Candidate: 0.1, Mean: 0.2},
			{Candidate: 0.5, Mean: 0.3},
		},
		Selected:   1,
		Test:       sweep.CandidateResult{Candidate: 0.5, Mean: 0.25},
		FinishedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestAnnouncerPublishesKeyedEvent(t *testing.T) {
	pub := &fakePublisher{}
	require.NoError(t, NewAnnouncer(pub).Report(context.Background(), sampleResult()))

	require.Len(t, pub.events, 1)
	assert.Equal(t, "run-1", pub.events[0].Key)
	ev, ok := pub.events[0].Value.(RunCompleted)
	require.True(t, ok)
	assert.Equal(t, EventRunCompleted, ev.Type)
	assert.Equal(t, "jm", ev.Family)
	assert.Equal(t, "p10", ev.MetricKey)
	assert.Equal(t, "1-30", ev.TrainRange)
	assert.Equal(t, "31-93", ev.TestRange)
	assert.Equal(t, map[string]float64{"0.1": 0.2, "0.5": 0.3}, ev.Candidates)
	assert.Equal(t, 0.5, ev.Selected)
	assert.Equal(t, 0.25, ev.TestMean)
}

func TestAnnouncerWrapsPublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	err := NewAnnouncer(pub).Report(context.Background(), sampleResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}
