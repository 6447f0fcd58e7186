package dag

import (
	"context"
	"strconv"
)

// Work is the unit of computation carried by a stage. It runs synchronously
// on the stage's runner goroutine and receives the execution context.
type Work func(ctx context.Context) error

// Func adapts an action that takes no arguments and cannot fail.
func Func(fn func()) Work {
	if fn == nil {
		return nil
	}
	return func(context.Context) error {
		fn()
		return nil
	}
}

// Stage is a single declared unit of work.
type Stage struct {
	// ID is the caller-assigned identifier. It must be unique within a plan.
	ID int
	// Name is an optional label used in logs, metrics and exported graphs.
	Name string
	// Work is the computation to run. Stages with nil work are dropped.
	Work Work
	// DependsOn lists the identifiers of stages that must finish first.
	DependsOn []int
}

// Label returns the stage name, or its identifier when no name is set.
func (s Stage) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return strconv.Itoa(s.ID)
}

func (s Stage) clone() Stage {
	s.DependsOn = append([]int(nil), s.DependsOn...)
	return s
}
