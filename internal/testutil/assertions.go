package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertStageRan checks the log output within a HarnessResult to confirm that
// the named stage finished successfully. It expects text-formatted logs.
func AssertStageRan(t *testing.T, result *HarnessResult, stageName string) {
	t.Helper()
	require.True(t, hasLogLine(result.LogOutput, "Stage finished", "stage_name="+stageName+" "),
		"expected a finish log line for stage '%s'", stageName)
}

// AssertStageSkipped confirms that the named stage was skipped.
func AssertStageSkipped(t *testing.T, result *HarnessResult, stageName string) {
	t.Helper()
	require.True(t, hasLogLine(result.LogOutput, "Skipping stage", "stage_name="+stageName+" "),
		"expected a skip log line for stage '%s'", stageName)
}

func hasLogLine(output string, substrings ...string) bool {
	for _, line := range strings.Split(output, "\n") {
		matched := true
		for _, s := range substrings {
			if !strings.Contains(line, s) {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}
