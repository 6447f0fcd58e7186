// Package config defines the format-agnostic model of a chain definition and
// the Loader interface implemented by the format-specific adapters.
//
// A Chain is what the app turns into a dag.Plan: every Stage names an action
// from the registry, its arguments, and the identifiers it depends on.
// Concrete loaders for HCL and YAML live in separate packages.
package config
