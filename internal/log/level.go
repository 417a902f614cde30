package log

import (
	"os"
	"strings"

	"github.com/iancoleman/strcase"
	"go.uber.org/zap/zapcore"
)

const levelEnvKey = "LOG_LEVEL"

var lookupEnv = func(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func parseLevel(s string) (zapcore.Level, bool) {
	var lvl zapcore.Level
	if err := lvl.Set(strings.ToLower(strings.TrimSpace(s))); err != nil {
		return zapcore.InfoLevel, false
	}
	return lvl, true
}

// levelKeys lists env keys from most to least specific, e.g. for
// ["InstanceMgr", "Rebuild"]:
//
//	LOG_LEVEL__INSTANCE_MGR__REBUILD, LOG_LEVEL__INSTANCE_MGR, LOG_LEVEL
func levelKeys(names []string) []string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = strcase.ToScreamingSnake(n)
	}

	keys := make([]string, 0, len(parts)+1)
	for i := len(parts); i > 0; i-- {
		keys = append(keys, levelEnvKey+"__"+strings.Join(parts[:i], "__"))
	}
	return append(keys, levelEnvKey)
}

func resolveLevel(names []string, fallback zapcore.Level) zapcore.Level {
	for _, k := range levelKeys(names) {
		v, ok := lookupEnv(k)
		if !ok {
			continue
		}
		if lv, ok := parseLevel(v); ok {
			return lv
		}
	}
	return fallback
}
