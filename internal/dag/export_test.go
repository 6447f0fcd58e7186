package dag

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportDOT(t *testing.T) {
	p, err := Compile([]Stage{
		{ID: 2, Name: `say "hi"`, Work: noop, DependsOn: []int{0, 1}},
		{ID: 0, Name: "fetch", Work: noop},
		{ID: 1, Work: noop, DependsOn: []int{0}},
	}, quietLogger())
	require.NoError(t, err)

	t.Run("default options", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, p.ExportDOT(&buf))

		expected := `digraph "stagechain" {
    rankdir=LR;
    "0" [label="fetch"];
    "1";
    "2" [label="say \"hi\""];
    "0" -> "1";
    "0" -> "2";
    "1" -> "2";
}
`
		assert.Equal(t, expected, buf.String())
	})

	t.Run("custom name and direction", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, p.ExportDOT(&buf, DOTWithGraphName("build"), DOTWithRankDir("TB")))
		assert.Contains(t, buf.String(), `digraph "build" {`)
		assert.Contains(t, buf.String(), "rankdir=TB;")
	})

	t.Run("nil writer", func(t *testing.T) {
		assert.ErrorIs(t, p.ExportDOT(nil), ErrNilWriter)
	})

	t.Run("unbuilt plan", func(t *testing.T) {
		var buf bytes.Buffer
		assert.ErrorIs(t, (&Plan{}).ExportDOT(&buf), ErrNotBuilt)
		assert.Empty(t, buf.String())
	})
}
