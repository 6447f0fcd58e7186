// Package dag is the scheduling core of stagechain. It takes a fixed set of
// integer-identified stages with explicit dependencies, validates them into an
// immutable Plan, and executes every stage on its own goroutine while
// respecting the declared ordering.
//
// The package works in two phases. Compile (or a Builder) turns declarations
// into a Plan, rejecting broken identifier sequences, duplicates, references
// to undeclared stages and dependency cycles. Start and RunAll then launch one
// runner per stage. Each runner blocks on a counting latch sized to its number
// of dependencies, runs its work, and signals the latches of its dependents.
// There is no coordinator after launch.
package dag
