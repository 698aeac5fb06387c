package logger

import (
	"go.uber.org/zap"
)

// Log is a no-op until Init or InitDevelopment runs, so packages can log from tests.
var Log = zap.NewNop().Sugar()

func Init() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize zap logger: " + err.Error())
	}
	Log = logger.Sugar()
}

// InitDevelopment switches to the human readable console encoder used by the watcher client.
func InitDevelopment() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("failed to initialize zap logger: " + err.Error())
	}
	Log = logger.Sugar()
}

// Sync flushes buffered entries, ignoring the EINVAL stderr returns on some platforms.
func Sync() {
	_ = Log.Sync()
}
