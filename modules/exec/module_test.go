package exec

import (
	"bytes"
	"context"
	osexec "os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/stagechain/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := osexec.LookPath("sh"); err != nil {
		t.Skip("sh is not available")
	}
}

func TestExec(t *testing.T) {
	requireShell(t)

	t.Run("captures output", func(t *testing.T) {
		var out bytes.Buffer
		work, err := NewExec(registry.Args{
			"command": cty.StringVal("sh"),
			"args":    cty.TupleVal([]cty.Value{cty.StringVal("-c"), cty.StringVal("echo ok")}),
		}, registry.Env{Out: &out})
		require.NoError(t, err)
		require.NoError(t, work(context.Background()))
		assert.Equal(t, "ok\n", out.String())
	})

	t.Run("non-zero exit fails the stage", func(t *testing.T) {
		var out bytes.Buffer
		work, err := NewExec(registry.Args{
			"command": cty.StringVal("sh"),
			"args":    cty.TupleVal([]cty.Value{cty.StringVal("-c"), cty.StringVal("exit 3")}),
		}, registry.Env{Out: &out})
		require.NoError(t, err)

		err = work(context.Background())
		require.Error(t, err)
		var exitErr *osexec.ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 3, exitErr.ExitCode())
	})

	t.Run("command is required", func(t *testing.T) {
		_, err := NewExec(registry.Args{}, registry.Env{})
		assert.ErrorContains(t, err, "command")
	})
}
