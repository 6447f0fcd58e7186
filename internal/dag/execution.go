package dag

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Status is the lifecycle state of a stage within one execution.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusAbandoned Status = "abandoned"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusSkipped, StatusAbandoned:
		return true
	default:
		return false
	}
}

// Report is the outcome of one stage in one execution.
type Report struct {
	ID         int
	Name       string
	Status     Status
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration is the wall time the stage's work took. It is zero for stages
// whose work never ran.
func (r Report) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Execution is a handle to a running or finished plan execution.
type Execution struct {
	id    string
	index map[int]int

	done   chan struct{}
	faults chan *StageFault

	// mu guards every field below.
	mu        sync.Mutex
	reports   []Report
	failed    []*StageFault
	abandoned []int
	cause     error
	err       error
}

func newExecution(id string, p *Plan, n int) *Execution {
	x := &Execution{
		id:      id,
		index:   p.index,
		done:    make(chan struct{}),
		faults:  make(chan *StageFault, n),
		reports: make([]Report, n),
	}
	for pos, s := range p.stages {
		x.reports[pos] = Report{ID: s.ID, Name: s.Name, Status: StatusPending}
	}
	return x
}

func finishedExecution(id string, err error) *Execution {
	x := &Execution{
		id:     id,
		done:   make(chan struct{}),
		faults: make(chan *StageFault),
		err:    err,
	}
	close(x.faults)
	close(x.done)
	return x
}

// ID returns the unique identifier of this execution.
func (x *Execution) ID() string {
	return x.id
}

// Done returns a channel that is closed once every runner has returned.
func (x *Execution) Done() <-chan struct{} {
	return x.done
}

// Wait blocks until the execution finishes and returns its error.
func (x *Execution) Wait() error {
	<-x.done
	return x.Err()
}

// Err returns the execution error once finished, nil before that.
func (x *Execution) Err() error {
	select {
	case <-x.done:
	default:
		return nil
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.err
}

// Faults delivers every stage fault as it happens. The channel is buffered
// to hold all faults and is closed when the execution finishes.
func (x *Execution) Faults() <-chan *StageFault {
	return x.faults
}

// Report returns the current outcome of the given stage.
func (x *Execution) Report(id int) (Report, bool) {
	pos, ok := x.index[id]
	if !ok {
		return Report{}, false
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.reports[pos], true
}

// Reports returns a snapshot of all stage outcomes ordered by identifier.
func (x *Execution) Reports() []Report {
	x.mu.Lock()
	defer x.mu.Unlock()
	return slices.Clone(x.reports)
}

func (x *Execution) event(pos int) StageEvent {
	r := x.reports[pos]
	return StageEvent{
		RunID:     x.id,
		ID:        r.ID,
		Name:      r.Name,
		Status:    r.Status,
		Err:       r.Err,
		StartedAt: r.StartedAt,
		Duration:  r.Duration(),
	}
}

func (x *Execution) begin(pos int) StageEvent {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.reports[pos].Status = StatusRunning
	x.reports[pos].StartedAt = time.Now()
	return x.event(pos)
}

func (x *Execution) succeed(pos int) StageEvent {
	return x.settle(pos, StatusSucceeded, nil)
}

func (x *Execution) fail(pos int, fault *StageFault) StageEvent {
	ev := x.settle(pos, StatusFailed, fault)
	x.mu.Lock()
	x.failed = append(x.failed, fault)
	x.mu.Unlock()
	// Buffered for every stage, never blocks.
	x.faults <- fault
	return ev
}

func (x *Execution) skip(pos int, err error) StageEvent {
	return x.settle(pos, StatusSkipped, err)
}

func (x *Execution) abandon(pos int, err error) StageEvent {
	x.mu.Lock()
	x.abandoned = append(x.abandoned, x.reports[pos].ID)
	if x.cause == nil {
		x.cause = err
	}
	x.mu.Unlock()
	return x.settle(pos, StatusAbandoned, err)
}

func (x *Execution) settle(pos int, status Status, err error) StageEvent {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.reports[pos].Status = status
	x.reports[pos].Err = err
	x.reports[pos].FinishedAt = time.Now()
	return x.event(pos)
}

// finish computes the execution error and releases waiters. It must be
// called once, after every runner has returned.
func (x *Execution) finish() {
	x.mu.Lock()
	var errs []error
	ids := make([]int, 0, len(x.failed))
	for _, f := range x.failed {
		ids = append(ids, f.ID)
		errs = append(errs, f)
	}
	slices.Sort(ids)
	slices.Sort(x.abandoned)

	var abandonErr error
	if len(x.abandoned) > 0 {
		abandonErr = fmt.Errorf("dag: stages %s abandoned: %w", joinInts(x.abandoned, ", "), x.cause)
		errs = append(errs, abandonErr)
	}

	switch {
	case len(ids) > 0:
		x.err = fmt.Errorf("dag: execution failed for stages %s: %w", joinInts(ids, ", "), errors.Join(errs...))
	case abandonErr != nil:
		x.err = abandonErr
	}
	x.mu.Unlock()

	close(x.faults)
	close(x.done)
}
