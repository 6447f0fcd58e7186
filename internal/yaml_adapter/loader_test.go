package yaml_adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func writeYAML(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, "a.yaml", `stages:
  - name: fetch
    id: 0
    action: print
    arguments:
      message: hello
  - name: build
    id: 1
    action: exec
    depends_on: [0]
    arguments:
      command: go
      args: [build, ./...]
      verbose: true
      retries: 2
`)
	writeYAML(t, dir, "b.yml", `stages:
  - action: sleep
    id: 2
    depends_on: [0, 1]
    arguments:
      duration: 10ms
`)
	writeYAML(t, dir, "ignored.hcl", `stage "x" {}`)

	chain, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, chain.Stages, 3)

	fetch := chain.Stages[0]
	assert.Equal(t, "fetch", fetch.Name)
	require.NotNil(t, fetch.ID)
	assert.Equal(t, 0, *fetch.ID)
	assert.Equal(t, cty.StringVal("hello"), fetch.Arguments["message"])
	assert.Equal(t, filepath.Join(dir, "a.yaml")+":2", fetch.Source)
	assert.Equal(t, filepath.Join(dir, "a.yaml"), fetch.File)

	build := chain.Stages[1]
	assert.Equal(t, []int{0}, build.DependsOn)
	assert.True(t, build.Arguments["args"].Equals(
		cty.TupleVal([]cty.Value{cty.StringVal("build"), cty.StringVal("./...")}),
	).True())
	assert.Equal(t, cty.True, build.Arguments["verbose"])
	assert.True(t, build.Arguments["retries"].Equals(cty.NumberIntVal(2)).True())

	sleep := chain.Stages[2]
	assert.Equal(t, "stage@2", sleep.Name)
	assert.Equal(t, []int{0, 1}, sleep.DependsOn)
}

func TestLoader_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		errText string
	}{
		{
			name:    "malformed yaml",
			content: "stages: [",
			errText: "failed to decode YAML file",
		},
		{
			name: "unknown field",
			content: `stages:
  - action: print
    retries: 3
`,
			errText: `unknown stage field "retries"`,
		},
		{
			name: "missing action",
			content: `stages:
  - name: lonely
`,
			errText: `stage "lonely" has no action`,
		},
		{
			name: "stage is not a mapping",
			content: `stages:
  - print
`,
			errText: "stage must be a mapping",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeYAML(t, t.TempDir(), "bad.yaml", tc.content)
			_, err := NewLoader().Load(context.Background(), path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errText)
		})
	}
}

func TestToCtyValue(t *testing.T) {
	val, err := toCtyValue(map[string]any{
		"list":  []any{1, "two", nil},
		"empty": map[string]any{},
		"float": 1.5,
	})
	require.NoError(t, err)
	assert.True(t, val.Type().IsObjectType())
	assert.Equal(t, 3, val.GetAttr("list").LengthInt())
	assert.True(t, val.GetAttr("list").Index(cty.NumberIntVal(2)).IsNull())
	assert.Equal(t, cty.EmptyObjectVal, val.GetAttr("empty"))

	_, err = toCtyValue(struct{}{})
	assert.Error(t, err)
}
