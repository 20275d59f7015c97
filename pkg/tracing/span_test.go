package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpanTree(t *testing.T) {
	ctx, root := StartTrace(context.Background(), "sweep", "run-1")
	phaseCtx, phase := Start(ctx, "training")
	_, candidate := Start(phaseCtx, "candidate")
	candidate.SetAttrs("candidate", 0.5, "mean", 0.25)
	candidate.Finish()
	phase.Finish()
	root.Finish()

	assert.Same(t, root, FromContext(ctx))
	require.Len(t, root.Children(), 1)
	require.Len(t, phase.Children(), 1)
	assert.Equal(t, "run-1", candidate.TraceID)
	assert.GreaterOrEqual(t, root.Duration(), phase.Duration())

	end := root.End
	root.Finish()
	assert.Equal(t, end, root.End)
}

func TestStartWithoutParent(t *testing.T) {
	_, span := Start(context.Background(), "orphan")
	assert.Empty(t, span.TraceID)
	assert.Zero(t, span.Duration())
}

func TestLogWritesDepthFirst(t *testing.T) {
	ctx, root := StartTrace(context.Background(), "sweep", "run-1")
	_, a := Start(ctx, "training")
	a.SetAttrs("candidates", 11)
	a.Finish()
	_, b := Start(ctx, "testing")
	b.Finish()
	root.Finish()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	root.Log(context.Background(), logger, slog.LevelDebug)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "span=sweep depth=0")
	assert.Contains(t, lines[1], "span=training depth=1 candidates=11")
	assert.Contains(t, lines[2], "span=testing depth=1")
	assert.Contains(t, lines[2], "trace_id=run-1")
}
