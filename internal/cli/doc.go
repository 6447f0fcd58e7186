// Package cli parses command-line arguments into an app.Config and reports
// invalid input as an ExitError carrying the process exit code.
package cli
