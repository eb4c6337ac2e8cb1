package config

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger: development output for "debug",
// production JSON at the given level otherwise.
func NewLogger(level string) *zap.Logger {
	if level == "debug" {
		log, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
		return log
	}

	zcfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)

	log, err := zcfg.Build()
	if err != nil {
		panic(err)
	}
	return log
}
