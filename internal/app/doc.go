// Package app contains the core application logic. It loads a chain
// definition, resolves its actions, compiles it into a dag.Plan and executes
// it, decoupled from any specific entrypoint like a CLI.
package app
