package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/skyqueue/obs-scheduler/internal/config"
	"github.com/skyqueue/obs-scheduler/pkg/core/priority"
	"github.com/skyqueue/obs-scheduler/pkg/db"
	"github.com/skyqueue/obs-scheduler/pkg/metrics"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Cfg      *config.Config
	Database db.Database
	Table    *priority.Table
	Metrics  *metrics.Recorder
	Logger   *zap.Logger
	Ctx      context.Context
}
