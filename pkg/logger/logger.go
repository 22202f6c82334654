package logger

import (
	"go.uber.org/zap"
)

// Log is the sugared logger shared by every camera-hal package. It defaults
// to a no-op logger so the library can run without initialization; binaries
// call InitLogger to enable output.
var Log = zap.NewNop().Sugar()

// InitLogger builds the global logger. In development mode DPanic-level
// entries panic, which surfaces platform-contract violations immediately
// instead of only logging them.
func InitLogger(development bool) error {
	var logger *zap.Logger
	var err error

	if development {
		config := zap.NewDevelopmentConfig()
		config.Sampling = &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		}
		logger, err = config.Build()
	} else {
		config := zap.NewProductionConfig()
		config.Sampling = &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		}
		logger, err = config.Build()
	}

	if err != nil {
		return err
	}

	Log = logger.Sugar()
	return nil
}

func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}

func WithFields(fields map[string]interface{}) *zap.SugaredLogger {
	if Log == nil {
		return nil
	}

	keyValuePairs := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		keyValuePairs = append(keyValuePairs, k, v)
	}

	return Log.With(keyValuePairs...)
}
