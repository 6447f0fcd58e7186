// Package registry provides the glue between chain definitions and Go code.
//
// Modules register named action factories. When a chain is built, every
// stage's action name is resolved here and its factory turns the stage's
// arguments into a dag.Work. Factories validate their arguments up front so
// that a malformed chain fails before any stage runs.
package registry
