package metrics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/stagechain/internal/ctxlog"
	"github.com/vk/stagechain/internal/dag"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	p, err := dag.NewBuilder(dag.WithLogger(quiet)).
		Declare(0, func(context.Context) error { return nil }).
		Declare(1, func(context.Context) error { return errors.New("boom") }).
		Declare(2, func(context.Context) error { return nil }, 1).
		Build()
	require.NoError(t, err)

	ctx := ctxlog.WithLogger(context.Background(), quiet)
	require.Error(t, p.RunAll(ctx, dag.WithHooks(c.Hooks())))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.started))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.running))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.finished.WithLabelValues("succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.finished.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.finished.WithLabelValues("skipped")))

	count, err := testutil.GatherAndCount(reg, "stagechain_stages_finished_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	families, err := reg.Gather()
	require.NoError(t, err)
	var observed uint64
	for _, mf := range families {
		if mf.GetName() == "stagechain_stage_duration_seconds" {
			observed = mf.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	assert.EqualValues(t, 2, observed)
}

func TestNew_RegistersOncePerRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
	assert.NotPanics(t, func() { New(prometheus.NewRegistry()) })
}
