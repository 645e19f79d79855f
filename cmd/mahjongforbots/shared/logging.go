package shared

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// SetupLogger creates the process logger writing to stderr at level.
func SetupLogger(level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	}), nil
}

// SetupStructuredLogger is SetupLogger with JSON output.
func SetupStructuredLogger(level string) (*log.Logger, error) {
	logger, err := SetupLogger(level)
	if err != nil {
		return nil, err
	}
	logger.SetFormatter(log.JSONFormatter)
	logger.SetTimeFormat(time.RFC3339Nano)
	return logger, nil
}
