package server

import (
	"os"

	plog "github.com/phuslu/log"

	"github.com/cogentx/cogentx/internal/common"
)

// newAccessLogger builds the request access logger. Access lines go to
// their own sink (file or stderr) so they never interleave with the
// application log.
func newAccessLogger(cfg common.LoggingConfig) *plog.Logger {
	logger := &plog.Logger{
		Level:      plog.InfoLevel,
		TimeFormat: cfg.TimeFormat,
	}

	if cfg.AccessLog != "" {
		logger.Writer = &plog.FileWriter{
			Filename:   cfg.AccessLog,
			MaxSize:    50 << 20,
			MaxBackups: 3,
			LocalTime:  true,
		}
	} else {
		logger.Writer = &plog.IOWriter{Writer: os.Stderr}
	}

	return logger
}
