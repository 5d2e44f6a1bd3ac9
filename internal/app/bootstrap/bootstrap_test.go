package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	cfgpkg "github.com/taoyao-code/hmi-link/internal/config"
	"github.com/taoyao-code/hmi-link/internal/transport"
)

func testConfig(t *testing.T) *cfgpkg.Config {
	t.Helper()
	testChdir(t, t.TempDir())
	cfg, err := cfgpkg.Load("", nil)
	require.NoError(t, err)

	cfg.Transport.Kind = transport.KindLoopback
	cfg.Settings.Backend = "memory"
	cfg.Redis.Enabled = false
	cfg.Dashboard.HTTPAddr = "127.0.0.1:0"
	cfg.Harness.HTTPAddr = "127.0.0.1:0"
	cfg.Dashboard.Link.ShutdownTimeout = 50 * time.Millisecond
	cfg.Harness.Link.ShutdownTimeout = 50 * time.Millisecond
	cfg.Harness.Scenario = ""
	return cfg
}

func runUntilCancelled(t *testing.T, run func(ctx context.Context) error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
}

func TestRunDashboard_LoopbackShutdown(t *testing.T) {
	cfg := testConfig(t)
	log := zaptest.NewLogger(t)
	runUntilCancelled(t, func(ctx context.Context) error { return runDashboard(ctx, cfg, log) })
}

func TestRunHarness_LoopbackShutdown(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`name: smoke
steps:
  - kind: rpm
    value: 800
    step: 100
    repeat: 3
`), 0o644))
	cfg.Harness.Scenario = path
	cfg.Harness.RatePerSec = 100

	log := zaptest.NewLogger(t)
	runUntilCancelled(t, func(ctx context.Context) error { return runHarness(ctx, cfg, log) })
}

func TestRunHarness_BadScenario(t *testing.T) {
	cfg := testConfig(t)
	cfg.Harness.Scenario = filepath.Join(t.TempDir(), "nope.yaml")

	err := runHarness(context.Background(), cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestRunDashboard_UnsupportedSettingsBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Settings.Backend = "etcd"

	err := runDashboard(context.Background(), cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
}
