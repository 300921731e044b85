package setup

import (
	"fmt"
	"time"

	"github.com/itchan-dev/worklog/internal/config"
	"github.com/itchan-dev/worklog/internal/logger"
	"github.com/itchan-dev/worklog/internal/markdown"
	"github.com/itchan-dev/worklog/internal/media"
	"github.com/itchan-dev/worklog/internal/service"
	"github.com/itchan-dev/worklog/internal/storage/fs"
	"github.com/prometheus/client_golang/prometheus"
)

// Dependencies struct to hold all initialized dependencies.
type Dependencies struct {
	Storage  *fs.Storage
	Pipeline *media.Pipeline
	WorkLog  service.WorkLogService
	LogFile  *logger.FileBuffer
}

// SetupDependencies initializes all dependencies required for the application.
// An empty root in the config means the directory of the running binary.
func SetupDependencies(cfg *config.Config, registerer prometheus.Registerer) (*Dependencies, error) {
	root := cfg.Public.Root
	if root == "" {
		var err error
		if root, err = fs.ExecutableRoot(); err != nil {
			return nil, err
		}
	}

	pipeline := media.New(cfg.Public.Image, registerer)
	storage, err := fs.New(root, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	logFile := logger.NewFileBuffer(storage.MapPath(fs.LogsDir), time.Now())
	logger.Initialize(cfg.Public.LogLevel, cfg.Public.LogJSON, logFile)

	return &Dependencies{
		Storage:  storage,
		Pipeline: pipeline,
		WorkLog:  service.NewWorkLog(storage, markdown.New()),
		LogFile:  logFile,
	}, nil
}
