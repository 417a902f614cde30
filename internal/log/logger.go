package log

import (
	"encoding/json"
	//nolint:depguard
	stdlog "log"
	"os"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

type Config struct {
	// ConfigFile points to a JSON encoded zap.Config. Empty means console output.
	ConfigFile string `mapstructure:"config_file"`
	Level      string `mapstructure:"level"`
	Color      bool   `mapstructure:"color"`
}

func Setup(v *viper.Viper, prefix string) {
	p := func(key string) string { return prefix + "." + key }

	v.SetDefault(p("config_file"), "")
	v.SetDefault(p("level"), "info")
	v.SetDefault(p("color"), true)
}

// Fatal is only meant for startup failures before a Logger exists.
func Fatal(v ...any) {
	stdlog.Fatal(v...)
}

type Logger struct {
	*zap.Logger
	names []string
	build func(names []string) *zap.Logger
}

// Module derives a child logger. Its level can be tuned through
// LOG_LEVEL__<PARENT>__<NAME> env keys.
func (l *Logger) Module(name string) *Logger {
	names := append(append([]string{}, l.names...), name)
	return &Logger{
		Logger: l.build(names),
		names:  names,
		build:  l.build,
	}
}

func New(cfg *Config) (*Logger, error) {
	if cfg == nil || cfg.ConfigFile == "" {
		return newConsole(cfg), nil
	}
	return fromFile(cfg.ConfigFile)
}

func fromFile(path string) (*Logger, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var zcfg zap.Config
	if err := json.Unmarshal(bs, &zcfg); err != nil {
		return nil, err
	}
	base, err := zcfg.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{
		Logger: base.Named("bedrud"),
		build: func(names []string) *zap.Logger {
			return base.Named(strings.Join(names, "."))
		},
	}, nil
}

func newConsole(cfg *Config) *Logger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.FunctionKey = zapcore.OmitKey
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	if cfg != nil && cfg.Color {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	encCfg.EncodeName = func(name string, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString("[" + name + "]")
	}

	encoder := zapcore.NewConsoleEncoder(encCfg)
	out := zapcore.Lock(os.Stderr)

	rootLevel := zapcore.InfoLevel
	if cfg != nil {
		if lv, ok := parseLevel(cfg.Level); ok {
			rootLevel = lv
		}
	}
	rootLevel = resolveLevel(nil, rootLevel)

	mk := func(lv zapcore.Level) *zap.Logger {
		return zap.New(
			zapcore.NewCore(encoder, out, zap.NewAtomicLevelAt(lv)),
			zap.AddStacktrace(zapcore.FatalLevel),
		)
	}

	return &Logger{
		Logger: mk(rootLevel).Named("bedrud"),
		build: func(names []string) *zap.Logger {
			return mk(resolveLevel(names, rootLevel)).Named(strings.Join(names, "."))
		},
	}
}

func NewTest(t *testing.T) *Logger {
	base := zaptest.NewLogger(t)
	return &Logger{
		Logger: base,
		build: func(names []string) *zap.Logger {
			return base.Named(strings.Join(names, "."))
		},
	}
}

func NewNop() *Logger {
	base := zap.NewNop()
	return &Logger{
		Logger: base,
		build:  func([]string) *zap.Logger { return base },
	}
}
