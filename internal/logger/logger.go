package logger

import (
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"docrepo/internal/config"
)

// New builds the application logger from cfg. Output always goes to stdout; when cfg.File is
// set a rotating file sink is added. The returned func flushes buffered entries.
func New(cfg config.LogConfig) (*zap.Logger, func()) {
	var lvl zapcore.Level
	if err := lvl.Set(cfg.Level); err != nil {
		lvl = zapcore.InfoLevel
	}

	var enc zapcore.Encoder
	if cfg.JSON {
		ec := zap.NewProductionEncoderConfig()
		ec.TimeKey = "ts"
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		ec.EncodeCaller = zapcore.ShortCallerEncoder
		enc = zapcore.NewJSONEncoder(ec)
	} else {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.EncodeCaller = zapcore.ShortCallerEncoder
		enc = zapcore.NewConsoleEncoder(ec)
	}

	cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.AddSync(os.Stdout), lvl)}
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    max(1, cfg.MaxSizeMB),
			MaxBackups: max(0, cfg.MaxBackups),
			MaxAge:     max(0, cfg.MaxAgeDays),
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(enc, rotWriter{rotator}, lvl))
	}

	core := zapcore.NewSamplerWithOptions(zapcore.NewTee(cores...), time.Second, 100, 100)
	l := zap.New(core, zap.AddCaller())
	return l, func() { _ = l.Sync() }
}

// rotWriter adapts lumberjack to zapcore.WriteSyncer; lumberjack writes are unbuffered.
type rotWriter struct{ *lumberjack.Logger }

func (w rotWriter) Sync() error { return nil }
