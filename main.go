package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go-url-registry/config"
	"go-url-registry/server"
	"go.uber.org/zap"
)

// newLogger builds a JSON production logger, or a development logger when
// level is "debug".
func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}

	zapCfg := zap.NewProductionConfig()
	if err := zapCfg.Level.UnmarshalText([]byte(level)); err != nil {
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return zapCfg.Build()
}

func main() {
	storageDriver := flag.String("storage", "", "Storage driver override: memory, sql or redis")
	addr := flag.String("addr", "", "Listen address override, e.g. :8080")
	envFile := flag.String("env-file", ".env", "Optional dotenv file to load")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	if *storageDriver != "" {
		cfg.StorageDriver = *storageDriver
	}
	if *addr != "" {
		cfg.ServerAddr = *addr
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		panic("Failed to initialize zap logger: " + err.Error())
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting URL registry application...",
		zap.String("storage", cfg.StorageDriver),
		zap.String("address", cfg.ServerAddr))
	if err := server.Run(ctx, logger, cfg); err != nil {
		logger.Fatal("Application error", zap.Error(err))
	}
	logger.Info("URL registry application stopped.")
}
