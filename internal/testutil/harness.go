package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/stagechain/internal/app"
	"github.com/vk/stagechain/internal/config"
	"github.com/vk/stagechain/internal/hcl_adapter"
	"github.com/vk/stagechain/internal/registry"
	"github.com/vk/stagechain/internal/yaml_adapter"
	"github.com/vk/stagechain/modules/fail"
	"github.com/vk/stagechain/modules/print"
	"github.com/vk/stagechain/modules/sleep"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput string
	Err       error
	App       *app.App
	Dir       string
}

// RunChain writes files into a temporary directory and runs the app against
// it with a background context. See RunChainWithContext.
func RunChain(t *testing.T, files map[string]string, mutate func(*app.Config), modules ...registry.Module) *HarnessResult {
	t.Helper()
	return RunChainWithContext(context.Background(), t, files, mutate, modules...)
}

// RunChainWithContext writes files (relative paths to contents) into a
// temporary directory and runs the app against it. mutate may adjust the
// configuration before the app is created. The print, sleep and fail actions
// are always registered in addition to modules.
func RunChainWithContext(ctx context.Context, t *testing.T, files map[string]string, mutate func(*app.Config), modules ...registry.Module) *HarnessResult {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}

	raw := app.Config{
		ChainPath: dir,
		LogLevel:  "debug",
		LogFormat: "text",
	}
	if mutate != nil {
		mutate(&raw)
	}
	cfg, err := app.NewConfig(raw)
	require.NoError(t, err)

	all := append([]registry.Module{&print.Module{}, &sleep.Module{}, &fail.Module{}}, modules...)
	loader := config.Combine(hcl_adapter.NewLoader(), yaml_adapter.NewLoader())

	logBuffer := &SafeBuffer{}
	testApp := app.NewApp(logBuffer, cfg, loader, all...)
	runErr := testApp.Run(ctx)

	if os.Getenv("STAGECHAIN_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}

	return &HarnessResult{
		LogOutput: logBuffer.String(),
		Err:       runErr,
		App:       testApp,
		Dir:       dir,
	}
}
