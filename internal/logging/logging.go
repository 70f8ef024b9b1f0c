// Package logging builds the service logger: a zap core with an ectologger
// front so the rest of the codebase only ever sees ectologger.Logger.
package logging

import (
	"encoding/json"

	"github.com/Gobusters/ectologger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns an ectologger.Logger that writes through zap. The zap logger is
// returned as well so main can flush it on shutdown.
func New(level string, pretty bool) (ectologger.Logger, *zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	if pretty {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zapConfig.Level = zap.NewAtomicLevelAt(parseLevel(level))
	zapConfig.DisableCaller = true
	zapConfig.DisableStacktrace = true

	zapLogger, err := zapConfig.Build()
	if err != nil {
		return nil, nil, err
	}

	return ectologger.NewEctoLogger(sink(zapLogger)), zapLogger, nil
}

func parseLevel(level string) zapcore.Level {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return parsed
}

// sink adapts ecto log messages onto zap. Messages are flattened through JSON
// so every field the logger accumulated survives the hop.
func sink(zapLogger *zap.Logger) func(ectologger.EctoLogMessage) {
	return func(msg ectologger.EctoLogMessage) {
		data, err := json.Marshal(msg)
		if err != nil {
			zapLogger.Error("failed to encode log message", zap.Error(err))
			return
		}

		var flat map[string]any
		if err := json.Unmarshal(data, &flat); err != nil {
			zapLogger.Info(string(data))
			return
		}

		text, _ := flat["message"].(string)
		level, _ := flat["level"].(string)
		delete(flat, "message")
		delete(flat, "level")

		fields := make([]zap.Field, 0, len(flat))
		for key, value := range flat {
			fields = append(fields, zap.Any(key, value))
		}

		switch level {
		case "debug":
			zapLogger.Debug(text, fields...)
		case "warn", "warning":
			zapLogger.Warn(text, fields...)
		case "error", "fatal", "panic":
			zapLogger.Error(text, fields...)
		default:
			zapLogger.Info(text, fields...)
		}
	}
}
