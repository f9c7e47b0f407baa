package cmd

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/interchainlabs/eureka-relayer/internal/app"
	"github.com/interchainlabs/eureka-relayer/internal/config"
	"github.com/interchainlabs/eureka-relayer/internal/relay"
)

const mainContext = "main"

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the relayer main app",
	RunE: func(cmd *cobra.Command, args []string) error {
		return startRelayer()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}

func startRelayer() error {
	loggerCfg, err := config.NewLoggerConfig()
	if err != nil {
		log.Fatalf("couldn't initialize logger config: %s", err)
	}
	rootLogger, err := loggerCfg.Build()
	if err != nil {
		log.Fatalf("couldn't initialize logger: %s", err)
	}
	defer rootLogger.Sync() //nolint:errcheck
	logger := rootLogger.Named(mainContext)
	logger.Info("eureka-relayer starts...")

	cfg, err := config.NewEurekaRelayerConfig()
	if err != nil {
		logger.Fatal("cannot initialize relayer config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The storage is shared between both relay directions because of the
	// LevelDB single process restriction.
	st, err := app.NewDefaultStorage(cfg, logger)
	if err != nil {
		logger.Fatal("failed to create NewDefaultStorage", zap.Error(err))
	}
	defer func(st relay.Storage) {
		if err := st.Close(); err != nil {
			logger.Error("failed to close storage", zap.Error(err))
		}
	}(st)

	deps, err := app.NewDefaultDependencyContainer(ctx, cfg, rootLogger)
	if err != nil {
		logger.Fatal("failed to initialize dependency container", zap.Error(err))
	}

	rt, err := app.NewDefaultRouter(cfg, deps, st, rootLogger)
	if err != nil {
		logger.Fatal("failed to build router", zap.Error(err))
	}
	srv := app.NewDefaultServer(cfg, rt, rootLogger)

	return app.Run(ctx, rt, srv, logger)
}
