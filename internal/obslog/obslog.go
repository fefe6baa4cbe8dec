// Package obslog wraps zap for this engine's diagnostic output: the
// interpreter's hot-block/JIT trace lines and the CLI's --trace program
// dump (the CLI's top-level failure line is written to stderr directly,
// not through this logger). KTStephano-GVM prints these with bare fmt.Println;
// this repo routes the same messages through a zap.SugaredLogger so
// the --log-json flag gets a real structured encoder for free.
package obslog

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a SugaredLogger writing to stderr. json selects zap's JSON
// encoder (--log-json); otherwise a human console encoder is used,
// matching the teacher's plain-text default.
func New(json bool, debug bool) *zap.SugaredLogger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if json {
		encoder = zapcore.NewJSONEncoder(cfg)
	} else {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(cfg)
	}

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)
	return zap.New(core).Sugar()
}

// Nop returns a logger that discards everything, for use in tests.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
