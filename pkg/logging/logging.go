package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"logur.dev/logur"
)

var (
	EnvDebug = "debug"
	EnvProd  = "prod"
)

var Prod = zap.NewProductionConfig()
var Dev = zap.NewDevelopmentConfig()

func init() {
	Prod.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zap.ReplaceGlobals(Create("", Dev).Desugar())
}

func Create(name string, cfg zap.Config) *zap.SugaredLogger {
	l, err := cfg.Build()
	if err != nil {
		l = zap.NewNop()
	}
	return l.Named(name).Sugar()
}

// WithFile returns a copy of cfg that additionally writes to path.
// An empty path leaves cfg untouched.
func WithFile(cfg zap.Config, path string) zap.Config {
	if path == "" {
		return cfg
	}
	out := make([]string, 0, len(cfg.OutputPaths)+1)
	out = append(out, cfg.OutputPaths...)
	cfg.OutputPaths = append(out, path)
	errOut := make([]string, 0, len(cfg.ErrorOutputPaths)+1)
	errOut = append(errOut, cfg.ErrorOutputPaths...)
	cfg.ErrorOutputPaths = append(errOut, path)
	return cfg
}

type KVLogger interface {
	Debug(msg string, keyvals ...interface{})
	Info(msg string, keyvals ...interface{})
	Warn(msg string, keyvals ...interface{})
	Error(msg string, keyvals ...interface{})
	With(keyvals ...interface{}) KVLogger
}

type NoopKVLogger struct {
	logur.NoopKVLogger
}

func (l NoopKVLogger) With(keyvals ...interface{}) KVLogger {
	return l
}

// AddLogRef tags l with a short request reference.
func AddLogRef(l KVLogger, ref string) KVLogger {
	if len(ref) > 10 {
		return l.With("ref", ref[len(ref)-10:])
	}
	return l.With("ref", ref)
}
