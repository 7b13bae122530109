package utils

import (
	"os"

	"github.com/mpapenbr/racestore/log"
	"github.com/mpapenbr/racestore/pkg/config"
)

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

// SetupLogging installs the default logger according to the configured
// format, level and filter. The returned logger is meant for sql statements.
func SetupLogging() (sqlLogger *log.Logger, err error) {
	var logger *log.Logger
	switch config.LogFormat {
	case "json":
		logger = log.New(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
		sqlLogger = log.New(
			os.Stderr,
			parseLogLevel(config.SQLLogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	default:
		logger = log.DevLogger(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
		sqlLogger = log.DevLogger(
			os.Stderr,
			parseLogLevel(config.SQLLogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	}
	if logger, err = logger.WithFilter(config.LogFilter); err != nil {
		return nil, err
	}
	if sqlLogger, err = sqlLogger.WithFilter(config.LogFilter); err != nil {
		return nil, err
	}
	log.ResetDefault(logger)
	return sqlLogger.Named("sql"), nil
}
