package minijwt

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log levels and formats accepted by LogConfig.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"

	FormatJSON    = "json"
	FormatConsole = "console"
)

// LogConfig configures the logger built by NewLogger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" json:"format" validate:"omitempty,oneof=json console"`
}

// NewLogger builds a zap logger writing to stdout.
func NewLogger(cfg LogConfig) *zap.Logger {
	return newLogger(cfg, zapcore.AddSync(os.Stdout))
}

func newLogger(cfg LogConfig, out zapcore.WriteSyncer) *zap.Logger {
	core := zapcore.NewCore(buildEncoder(cfg.Format), zapcore.Lock(out), parseLevel(cfg.Level))
	return zap.New(core, zap.AddCaller()).Named("minijwt")
}

func buildEncoder(format string) zapcore.Encoder {
	if strings.ToLower(format) == FormatConsole {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	}

	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "time"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(ec)
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn, "warning":
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// tokenRef identifies a token in logs without revealing it.
func tokenRef(signature string) zap.Field {
	if len(signature) > 8 {
		signature = signature[:8]
	}
	return zap.String("token_ref", signature)
}
