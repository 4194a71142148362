package log

import "go.uber.org/zap"

// Logger is replaced by EnsureLogger; until then it discards everything so
// packages can log from tests without setup.
var Logger = zap.NewNop()

func EnsureLogger(development bool) {
	var err error
	if development {
		Logger, err = zap.NewDevelopment()
	} else {
		Logger, err = zap.NewProduction()
	}
	if err != nil {
		Logger = zap.NewNop()
	}
}

func Sync() {
	_ = Logger.Sync()
}
