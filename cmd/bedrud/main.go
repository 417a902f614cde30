package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/imtaco/bedrud-client/instances/manager"
	"github.com/imtaco/bedrud-client/instances/store"
	"github.com/imtaco/bedrud-client/internal/config"
	"github.com/imtaco/bedrud-client/internal/httputil"
	"github.com/imtaco/bedrud-client/internal/kv"
	"github.com/imtaco/bedrud-client/internal/log"
	"github.com/imtaco/bedrud-client/internal/otel"
	intredis "github.com/imtaco/bedrud-client/internal/redis"
	"github.com/imtaco/bedrud-client/internal/workflow"
)

type Config struct {
	App   config.App            `mapstructure:"app"`
	Log   log.Config            `mapstructure:"log"`
	HTTP  httputil.ClientConfig `mapstructure:"http"`
	Store kv.Config             `mapstructure:"store"`
	Redis intredis.Config       `mapstructure:"redis"`
	Otel  otel.Config           `mapstructure:"otel"`
}

func newFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("bedrud", pflag.ExitOnError)
	flags.String("config", "", "config file (yaml, json or toml)")
	flags.String("app.data_dir", "", "directory holding the file store")
	flags.String("store.backend", kv.BackendFile, "store backend: file, memory or redis")
	flags.String("log.level", "warn", "log level")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: bedrud [flags] <command> [args]\n\ncommands:\n%s\nflags:\n", commandHelp())
		flags.PrintDefaults()
	}
	return flags
}

func loadConfig(flags *pflag.FlagSet) (*Config, error) {
	return config.Load(&Config{}, flags, func(v *viper.Viper) {
		config.Setup(v, "app")
		log.Setup(v, "log")
		httputil.Setup(v, "http")
		kv.Setup(v, "store")
		intredis.Setup(v, "redis")
		otel.Setup(v, "otel")

		// a CLI should stay quiet unless asked
		v.SetDefault("log.level", "warn")
	})
}

func dataDir(cfg *config.App) (string, error) {
	if cfg.DataDir != "" {
		return cfg.DataDir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, "bedrud")
	return dir, os.MkdirAll(dir, 0o700)
}

func main() {
	flags := newFlags()
	_ = flags.Parse(os.Args[1:])
	if flags.NArg() == 0 {
		flags.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	logger, err := log.New(&cfg.Log)
	if err != nil {
		log.Fatal("Failed to create logger: ", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	otelShutdown, err := otel.Init(ctx, &cfg.Otel, logger.Module("Otel"))
	if err != nil {
		logger.Fatal("Failed to initialize OTEL provider", log.Error(err))
	}

	var redisClient redis.UniversalClient
	if cfg.Store.Backend == kv.BackendRedis {
		c := intredis.NewClient(&cfg.Redis)
		if err := intredis.Ping(ctx, c, cfg.Redis.DialTimeout); err != nil {
			logger.Fatal("Failed to reach redis", log.String("addr", cfg.Redis.Addr), log.Error(err))
		}
		redisClient = c
	}

	dir, err := dataDir(&cfg.App)
	if err != nil {
		logger.Fatal("Failed to prepare data dir", log.Error(err))
	}
	kvStore, err := kv.Open(&cfg.Store, dir, redisClient, logger.Module("KV"))
	if err != nil {
		logger.Fatal("Failed to open store", log.Error(err))
	}

	clock := clockwork.NewRealClock()
	instStore := store.New(ctx, kvStore, clock, logger.Module("InstanceStore"))
	instMgr := manager.New(manager.Options{
		Store: instStore,
		KV:    kvStore,
		HTTP:  &cfg.HTTP,
		Clock: clock,
	}, logger.Module("InstanceMgr"))

	app := &cli{mgr: instMgr, out: os.Stdout}

	cleanup := func(ctx context.Context) {
		instMgr.Close()
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Error("Failed to close redis client", log.Error(err))
			}
		}
		if err := otelShutdown(ctx); err != nil {
			logger.Error("Failed to shutdown OTEL", log.Error(err))
		}
	}

	err = workflow.Run(ctx, logger.Module("CleanUp"), func(ctx context.Context) error {
		return app.run(ctx, flags.Args())
	}, cleanup, cfg.App.ShutdownTimeout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
