package dag

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/vk/stagechain/internal/ctxlog"
)

// quietContext returns a context whose logger discards everything.
func quietContext(t *testing.T) context.Context {
	t.Helper()
	return ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func quietLogger() CompileOption {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func noop(context.Context) error { return nil }

// trace records a global sequence number for the start and end of every
// stage's work.
type trace struct {
	mu       sync.Mutex
	seq      int
	started  map[int]int
	finished map[int]int
	runs     map[int]int
}

func newTrace() *trace {
	return &trace{
		started:  make(map[int]int),
		finished: make(map[int]int),
		runs:     make(map[int]int),
	}
}

func (tr *trace) work(id int) Work {
	return func(context.Context) error {
		tr.mu.Lock()
		tr.seq++
		tr.started[id] = tr.seq
		tr.runs[id]++
		tr.mu.Unlock()

		tr.mu.Lock()
		tr.seq++
		tr.finished[id] = tr.seq
		tr.mu.Unlock()
		return nil
	}
}

func (tr *trace) runCount(id int) int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.runs[id]
}

// stagesFor builds traced stages from an id -> dependencies map.
func stagesFor(tr *trace, deps map[int][]int) []Stage {
	stages := make([]Stage, 0, len(deps))
	for id, d := range deps {
		stages = append(stages, Stage{ID: id, Work: tr.work(id), DependsOn: d})
	}
	return stages
}
