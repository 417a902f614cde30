package config

import (
	"time"

	"github.com/spf13/viper"
)

type App struct {
	DataDir         string        `mapstructure:"data_dir"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func Setup(v *viper.Viper, prefix string) {
	p := func(key string) string { return prefix + "." + key }

	v.SetDefault(p("data_dir"), "")
	v.SetDefault(p("shutdown_timeout"), "5s")
}
