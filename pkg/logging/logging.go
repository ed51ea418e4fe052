package logging

import (
	"encoding/json"

	"github.com/Gobusters/ectologger"
	"go.uber.org/zap"
)

// New builds the application logger. Log entries are serialized and written
// through a zap core so output is line-delimited JSON in production and
// human-readable in development.
func New(appName string, pretty bool) (ectologger.Logger, func()) {
	var zl *zap.Logger
	var err error
	if pretty {
		zl, err = zap.NewDevelopment()
	} else {
		zl, err = zap.NewProduction()
	}
	if err != nil {
		zl = zap.NewNop()
	}
	zl = zl.Named(appName)

	logger := ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
		entry, err := json.Marshal(msg)
		if err != nil {
			zl.Warn("failed to serialize log entry", zap.Error(err))
			return
		}
		zl.Info(string(entry))
	})

	flush := func() {
		_ = zl.Sync()
	}

	return logger, flush
}

// NewNop returns a logger that discards everything. Used in tests.
func NewNop() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}
