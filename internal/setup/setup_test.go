package setup

import (
	"path/filepath"
	"testing"

	"github.com/itchan-dev/worklog/internal/config"
	"github.com/itchan-dev/worklog/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupDependencies(t *testing.T) {
	t.Cleanup(func() { logger.Initialize("info", false) })

	cfg := config.Default()
	cfg.Public.Root = filepath.Join(t.TempDir(), "data")
	reg := prometheus.NewRegistry()

	deps, err := SetupDependencies(cfg, reg)
	require.NoError(t, err)

	assert.Equal(t, cfg.Public.Root, deps.Storage.Root())
	assert.Equal(t, filepath.Join(cfg.Public.Root, "Logs"), filepath.Dir(deps.LogFile.Path))
	assert.NotNil(t, deps.WorkLog)

	// the pipeline counters are registered with the given registry
	deps.Pipeline.Metrics().Operations.WithLabelValues("decode").Inc()
	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "worklog_image_pipeline_operations_total")

	t.Run("log records reach the dated file buffer", func(t *testing.T) {
		_, err := deps.WorkLog.CreateTopic("setup check")
		require.NoError(t, err)
		assert.Positive(t, deps.LogFile.Pending())
		require.NoError(t, deps.LogFile.Flush())
		assert.FileExists(t, deps.LogFile.Path)
	})
}

func TestSetupDependencies_DefaultRootIsExecutableDir(t *testing.T) {
	t.Cleanup(func() { logger.Initialize("info", false) })

	deps, err := SetupDependencies(config.Default(), nil)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(deps.Storage.Root()))
}
