package dag

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exampleGraph is {0,1,2,3} with 2 waiting for 0 and 1, and 3 waiting for 0.
var exampleGraph = map[int][]int{
	0: nil,
	1: nil,
	2: {0, 1},
	3: {0},
}

func TestRunAll_EveryStageRunsOnce(t *testing.T) {
	tr := newTrace()
	p, err := Compile(stagesFor(tr, exampleGraph), quietLogger())
	require.NoError(t, err)

	require.NoError(t, p.RunAll(quietContext(t)))
	for id := range exampleGraph {
		assert.Equal(t, 1, tr.runCount(id), "stage %d", id)
	}
}

func TestRunAll_DependenciesFinishBeforeDependentsStart(t *testing.T) {
	graph := map[int][]int{
		0: nil,
		1: {0},
		2: {0},
		3: {1, 2},
		4: nil,
		5: {4, 3},
		6: {5, 0},
		7: {6, 6, 2},
	}

	for i := 0; i < 100; i++ {
		tr := newTrace()
		p, err := Compile(stagesFor(tr, graph), quietLogger())
		require.NoError(t, err)
		require.NoError(t, p.RunAll(quietContext(t), WithShuffledLaunch(uint64(i))))

		for id, deps := range graph {
			assert.Equal(t, 1, tr.runs[id])
			for _, d := range deps {
				assert.Less(t, tr.finished[d], tr.started[id], "run %d: stage %d started before %d finished", i, id, d)
			}
		}
	}
}

func TestRunAll_IndependentStagesOverlap(t *testing.T) {
	tr := newTrace()
	oneStarted := make(chan struct{})
	threeStarted := make(chan struct{})

	rendezvous := func(id int, mine, other chan struct{}) Work {
		traced := tr.work(id)
		return func(ctx context.Context) error {
			close(mine)
			select {
			case <-other:
			case <-time.After(2 * time.Second):
				return errors.New("stages 1 and 3 did not run concurrently")
			}
			return traced(ctx)
		}
	}

	stages := []Stage{
		{ID: 0, Work: tr.work(0)},
		{ID: 1, Work: rendezvous(1, oneStarted, threeStarted)},
		{ID: 2, Work: tr.work(2), DependsOn: []int{0, 1}},
		{ID: 3, Work: rendezvous(3, threeStarted, oneStarted), DependsOn: []int{0}},
	}
	p, err := Compile(stages, quietLogger())
	require.NoError(t, err)

	require.NoError(t, p.RunAll(quietContext(t)))
	assert.Less(t, tr.finished[0], tr.started[2])
	assert.Less(t, tr.finished[1], tr.started[2])
	assert.Less(t, tr.finished[0], tr.started[3])
}

func TestRunAll_IsolatedStage(t *testing.T) {
	var ran atomic.Bool
	p, err := Compile([]Stage{{ID: 0, Work: Func(func() { ran.Store(true) })}}, quietLogger())
	require.NoError(t, err)

	require.Len(t, p.armed, 1)
	assert.Equal(t, 0, p.armed[0].ready.Count())
	assert.Empty(t, p.armed[0].dependents)

	require.NoError(t, p.RunAll(quietContext(t)))
	assert.True(t, ran.Load())
}

func TestRunAll_UnbuiltPlan(t *testing.T) {
	t.Run("nil plan", func(t *testing.T) {
		var p *Plan
		assert.ErrorIs(t, p.RunAll(quietContext(t)), ErrNotBuilt)
	})

	t.Run("zero plan", func(t *testing.T) {
		x := (&Plan{}).Start(quietContext(t))
		select {
		case <-x.Done():
		default:
			t.Fatal("expected a finished execution")
		}
		assert.ErrorIs(t, x.Err(), ErrNotBuilt)
		assert.Empty(t, x.Reports())
	})
}

func TestRunAll_Rerun(t *testing.T) {
	tr := newTrace()
	p, err := Compile(stagesFor(tr, exampleGraph), quietLogger())
	require.NoError(t, err)

	ids := make(map[string]bool)
	for i := 0; i < 3; i++ {
		x := p.Start(quietContext(t))
		require.NoError(t, x.Wait())
		_, err := uuid.Parse(x.ID())
		require.NoError(t, err)
		ids[x.ID()] = true
	}

	assert.Len(t, ids, 3)
	for id := range exampleGraph {
		assert.Equal(t, 3, tr.runCount(id))
	}
}

func TestRunAll_FaultPropagation(t *testing.T) {
	boom := errors.New("boom")
	var ranDependent atomic.Bool
	var started, finished atomic.Int32

	stages := []Stage{
		{ID: 0, Name: "broken", Work: func(context.Context) error { return boom }},
		{ID: 1, Work: Func(func() { ranDependent.Store(true) }), DependsOn: []int{0}},
		{ID: 2, Work: Func(func() { ranDependent.Store(true) }), DependsOn: []int{1}},
		{ID: 3, Work: noop},
	}
	p, err := Compile(stages, quietLogger())
	require.NoError(t, err)

	hooks := Hooks{
		OnStart:  func(context.Context, StageEvent) { started.Add(1) },
		OnFinish: func(context.Context, StageEvent) { finished.Add(1) },
	}
	x := p.Start(quietContext(t), WithHooks(hooks))
	err = x.Wait()

	require.ErrorIs(t, err, boom)
	var fault *StageFault
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, 0, fault.ID)
	assert.Equal(t, "broken", fault.Name)
	assert.NotErrorIs(t, err, ErrDependencyFailed)
	assert.False(t, ranDependent.Load())

	var faults []*StageFault
	for f := range x.Faults() {
		faults = append(faults, f)
	}
	require.Len(t, faults, 1)
	assert.Equal(t, 0, faults[0].ID)

	statuses := map[int]Status{}
	for _, r := range x.Reports() {
		statuses[r.ID] = r.Status
	}
	assert.Equal(t, map[int]Status{
		0: StatusFailed,
		1: StatusSkipped,
		2: StatusSkipped,
		3: StatusSucceeded,
	}, statuses)

	skipped, ok := x.Report(2)
	require.True(t, ok)
	assert.ErrorIs(t, skipped.Err, ErrDependencyFailed)
	assert.ErrorIs(t, skipped.Err, boom)
	assert.Zero(t, skipped.Duration())

	assert.EqualValues(t, 2, started.Load())
	assert.EqualValues(t, 4, finished.Load())
}

func TestRunAll_FaultHang(t *testing.T) {
	boom := errors.New("boom")
	var ranDependent atomic.Bool

	stages := []Stage{
		{ID: 0, Work: func(context.Context) error { return boom }},
		{ID: 1, Work: Func(func() { ranDependent.Store(true) }), DependsOn: []int{0}},
		{ID: 2, Work: noop},
	}
	p, err := Compile(stages, quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(quietContext(t))
	defer cancel()
	x := p.Start(ctx, WithFaultPolicy(FaultHang))

	select {
	case f := <-x.Faults():
		require.NotNil(t, f)
		assert.Equal(t, 0, f.ID)
		assert.ErrorIs(t, f, boom)
	case <-time.After(2 * time.Second):
		t.Fatal("fault was not observable while the execution hangs")
	}

	select {
	case <-x.Done():
		t.Fatal("execution finished although a dependent is blocked")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Nil(t, x.Err())

	cancel()
	err = x.Wait()
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ranDependent.Load())

	r, ok := x.Report(1)
	require.True(t, ok)
	assert.Equal(t, StatusAbandoned, r.Status)
	r, ok = x.Report(2)
	require.True(t, ok)
	assert.Equal(t, StatusSucceeded, r.Status)
}

func TestRunAll_CancelWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(quietContext(t))
	defer cancel()

	stages := []Stage{
		{ID: 0, Work: func(context.Context) error {
			cancel()
			time.Sleep(100 * time.Millisecond)
			return nil
		}},
		{ID: 1, Work: noop, DependsOn: []int{0}},
	}
	p, err := Compile(stages, quietLogger())
	require.NoError(t, err)

	x := p.Start(ctx)
	err = x.Wait()
	require.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "stages 1 abandoned")

	r, _ := x.Report(0)
	assert.Equal(t, StatusSucceeded, r.Status)
	r, _ = x.Report(1)
	assert.Equal(t, StatusAbandoned, r.Status)
	assert.True(t, r.Status.Terminal())
}

func TestRunAll_PanicIsCaptured(t *testing.T) {
	stages := []Stage{
		{ID: 0, Work: Func(func() { panic("kaboom") })},
		{ID: 1, Work: noop, DependsOn: []int{0}},
	}
	p, err := Compile(stages, quietLogger())
	require.NoError(t, err)

	err = p.RunAll(quietContext(t))
	var perr *StagePanicError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 0, perr.ID)
	assert.Equal(t, "kaboom", perr.Value)
	assert.NotEmpty(t, perr.Stack)
}

func TestRunAll_WorkReceivesContext(t *testing.T) {
	type ctxKey struct{}
	ctx := context.WithValue(quietContext(t), ctxKey{}, "value")

	var got atomic.Value
	p, err := Compile([]Stage{{ID: 0, Work: func(ctx context.Context) error {
		got.Store(ctx.Value(ctxKey{}))
		return nil
	}}}, quietLogger())
	require.NoError(t, err)

	require.NoError(t, p.RunAll(ctx))
	assert.Equal(t, "value", got.Load())
}

func TestParseFaultPolicy(t *testing.T) {
	testCases := []struct {
		in      string
		want    FaultPolicy
		wantErr bool
	}{
		{in: "propagate", want: FaultPropagate},
		{in: "", want: FaultPropagate},
		{in: "HANG", want: FaultHang},
		{in: "retry", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseFaultPolicy(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, got, mustParse(t, got.String()))
		})
	}
}

func mustParse(t *testing.T, s string) FaultPolicy {
	t.Helper()
	p, err := ParseFaultPolicy(s)
	require.NoError(t, err)
	return p
}

func TestHooksMerge(t *testing.T) {
	var order []string
	a := Hooks{OnStart: func(context.Context, StageEvent) { order = append(order, "a") }}
	b := Hooks{
		OnStart:  func(context.Context, StageEvent) { order = append(order, "b") },
		OnFinish: func(context.Context, StageEvent) { order = append(order, "b-finish") },
	}

	merged := a.Merge(b)
	merged.start(context.Background(), StageEvent{})
	merged.finish(context.Background(), StageEvent{})
	assert.Equal(t, []string{"a", "b", "b-finish"}, order)
}
