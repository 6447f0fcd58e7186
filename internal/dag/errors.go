package dag

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrBrokenSequence reports that the declared identifiers do not form a
	// contiguous range.
	ErrBrokenSequence = errors.New("dag: broken identifier sequence")
	// ErrDuplicateIDs reports that an identifier was declared more than once.
	ErrDuplicateIDs = errors.New("dag: duplicate identifiers")
	// ErrUnknownDependency reports a dependency on a stage that was never declared.
	ErrUnknownDependency = errors.New("dag: unknown dependency")
	// ErrCyclicDependency reports a dependency cycle.
	ErrCyclicDependency = errors.New("dag: cyclic dependency")
	// ErrNotBuilt is returned when execution is requested before a successful build.
	ErrNotBuilt = errors.New("dag: execution sequence wasn't built")
	// ErrMixedModes reports that manual and sequential declarations were
	// mixed on one builder.
	ErrMixedModes = errors.New("dag: manual and sequential declarations mixed")
	// ErrDependencyFailed marks a stage that was skipped because one of its
	// dependencies failed.
	ErrDependencyFailed = errors.New("dag: dependency failed")
	// ErrNilWriter indicates that a nil writer was provided to an exporter.
	ErrNilWriter = errors.New("dag: nil writer")
)

// Duplicate names an identifier that was declared more than once.
type Duplicate struct {
	ID    int
	Count int
}

// DanglingRef is a dependency on an identifier that no stage declares.
type DanglingRef struct {
	Stage      int
	Dependency int
}

// BuildError collects every validation failure found while compiling a plan.
// Missing, Duplicates and Unknown are reported together; Cycle is only
// populated when the other checks pass.
type BuildError struct {
	// Missing lists the identifiers absent from the declared range,
	// ascending. Very large gaps are truncated; see MissingCount.
	Missing []int
	// MissingCount is the number of absent identifiers, listed or not.
	MissingCount uint64
	// Duplicates lists each repeated identifier with its occurrence count.
	Duplicates []Duplicate
	// Unknown lists every reference to an undeclared stage.
	Unknown []DanglingRef
	// Cycle is one dependency cycle, starting and ending with the same id.
	Cycle []int
}

func (e *BuildError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		listed := "missing identifiers: " + joinInts(e.Missing, ", ")
		if e.MissingCount > uint64(len(e.Missing)) {
			listed += fmt.Sprintf(", ... (%d in total)", e.MissingCount)
		}
		parts = append(parts, listed)
	}
	if len(e.Duplicates) > 0 {
		dups := make([]string, len(e.Duplicates))
		for i, d := range e.Duplicates {
			dups[i] = fmt.Sprintf("%d (occurrences: %d)", d.ID, d.Count)
		}
		parts = append(parts, "duplicate identifiers: "+strings.Join(dups, ", "))
	}
	if len(e.Unknown) > 0 {
		refs := make([]string, len(e.Unknown))
		for i, r := range e.Unknown {
			refs[i] = fmt.Sprintf("%d -> %d", r.Stage, r.Dependency)
		}
		parts = append(parts, "unknown dependencies: "+strings.Join(refs, ", "))
	}
	if len(e.Cycle) > 0 {
		parts = append(parts, "cycle: "+joinInts(e.Cycle, " -> "))
	}
	if len(parts) == 0 {
		return "dag: invalid stage set"
	}
	return "dag: invalid stage set: " + strings.Join(parts, "; ")
}

// Unwrap exposes the sentinel for every failed check.
func (e *BuildError) Unwrap() []error {
	var errs []error
	if len(e.Missing) > 0 {
		errs = append(errs, ErrBrokenSequence)
	}
	if len(e.Duplicates) > 0 {
		errs = append(errs, ErrDuplicateIDs)
	}
	if len(e.Unknown) > 0 {
		errs = append(errs, ErrUnknownDependency)
	}
	if len(e.Cycle) > 0 {
		errs = append(errs, ErrCyclicDependency)
	}
	return errs
}

func (e *BuildError) empty() bool {
	return len(e.Missing) == 0 && len(e.Duplicates) == 0 && len(e.Unknown) == 0 && len(e.Cycle) == 0
}

// StageFault is the failure of a single stage's work during an execution.
type StageFault struct {
	ID   int
	Name string
	Err  error
}

func (f *StageFault) Error() string {
	if f.Name != "" {
		return fmt.Sprintf("stage %d (%s) failed: %v", f.ID, f.Name, f.Err)
	}
	return fmt.Sprintf("stage %d failed: %v", f.ID, f.Err)
}

func (f *StageFault) Unwrap() error {
	return f.Err
}

// StagePanicError wraps a panic recovered from a stage's work.
type StagePanicError struct {
	ID    int
	Value any
	Stack []byte
}

func (e *StagePanicError) Error() string {
	return fmt.Sprintf("dag: stage %d panicked: %v", e.ID, e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *StagePanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func joinInts(ids []int, sep string) string {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = strconv.Itoa(id)
	}
	return strings.Join(s, sep)
}
