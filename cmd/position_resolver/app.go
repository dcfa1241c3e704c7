package main

import (
	"fmt"

	"position_resolver/internal/app/port"
	"position_resolver/internal/app/service"
	"position_resolver/internal/config"
	"position_resolver/internal/infrastructure/multicall"
	"position_resolver/internal/infrastructure/network/client"
	networkdefinition "position_resolver/internal/infrastructure/network/definition"
	"position_resolver/internal/pkg/logger"
	"position_resolver/internal/pkg/metrics"

	"go.uber.org/zap"
)

// application holds the wired components shared by all subcommands.
type application struct {
	cfg          *config.Config
	zapLogger    *zap.Logger
	logger       port.Logger
	connProvider port.ConnectionProvider
	resolver     *service.PositionService
}

func newApplication(configPath string) (*application, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	zapLogger, err := logger.Init(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	zapLogger.Info("Configuration loaded", zap.String("path", configPath))

	metrics.MustRegisterMetrics()

	appLogger := logger.NewSlogAdapter()
	netProvider := networkdefinition.NewNetworkDefinitionProvider(appLogger, cfg.Networks)
	connProvider := client.NewEVMClientProvider(client.OptionsFromConfig(cfg.RpcClient), appLogger)
	executor := multicall.NewExecutor(appLogger, cfg.Resolver.ChunkParallelism, cfg.Resolver.RetryDelay())
	scanner := service.NewRegistryScanner(appLogger)

	return &application{
		cfg:          cfg,
		zapLogger:    zapLogger,
		logger:       appLogger,
		connProvider: connProvider,
		resolver:     service.NewPositionService(netProvider, connProvider, scanner, executor, appLogger, cfg.Resolver),
	}, nil
}

// Close tears down every memoized connection and flushes the logger.
func (a *application) Close() {
	a.connProvider.Close()
	_ = a.zapLogger.Sync()
}
