package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vk/stagechain/internal/dag"
	"github.com/vk/stagechain/internal/registry"
)

// ExecutionRecord holds the start and end times for a single stage's execution.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// Recorder is a shared, self-contained module for integration tests. Its
// "record" action stores when each stage ran, optionally sleeping first and
// optionally failing afterwards.
//
//	stage "a" {
//	  action = "record"
//	  arguments {
//	    key   = "a"
//	    sleep = "20ms"
//	    fail  = false
//	  }
//	}
type Recorder struct {
	mu      sync.Mutex
	records map[string]*ExecutionRecord
	order   []string
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{records: make(map[string]*ExecutionRecord)}
}

// Register registers the "record" action.
func (m *Recorder) Register(r *registry.Registry) {
	r.RegisterAction("record", m.newWork)
}

func (m *Recorder) newWork(args registry.Args, _ registry.Env) (dag.Work, error) {
	if err := args.Allow("key", "sleep", "fail"); err != nil {
		return nil, err
	}
	key, err := args.String("key")
	if err != nil {
		return nil, err
	}
	pause, err := args.OptionalString("sleep", "0s")
	if err != nil {
		return nil, err
	}
	d, err := time.ParseDuration(pause)
	if err != nil {
		return nil, err
	}
	shouldFail, err := args.Bool("fail", false)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) error {
		start := time.Now()
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
		end := time.Now()

		m.mu.Lock()
		m.records[key] = &ExecutionRecord{Start: start, End: end}
		m.order = append(m.order, key)
		m.mu.Unlock()

		if shouldFail {
			return errors.New("recorded failure: " + key)
		}
		return nil
	}, nil
}

// Record returns the record stored under key.
func (m *Recorder) Record(key string) (*ExecutionRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	return rec, ok
}

// Order returns the keys in completion order.
func (m *Recorder) Order() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}
