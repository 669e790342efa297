package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/therealutkarshpriyadarshi/lvq/pkg/api/rest"
	"github.com/therealutkarshpriyadarshi/lvq/pkg/config"
	"github.com/therealutkarshpriyadarshi/lvq/pkg/observability"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version and exit")
		configFile  = flag.String("config", "", "path to JSON configuration file (optional)")
		host        = flag.String("host", "", "server host (overrides config/env)")
		port        = flag.Int("port", 0, "server port (overrides config/env)")
		dataDir     = flag.String("data-dir", "", "data directory (overrides config/env)")
		verbose     = flag.Bool("verbose", false, "enable debug logging")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("lvq-server v%s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	logger := observability.NewDefaultLogger()
	if *verbose {
		logger.SetLevel(observability.DEBUG)
	}

	cfg := loadConfig(logger, *configFile)
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *dataDir != "" {
		cfg.Engine.DataDir = *dataDir
	}

	if err := cfg.Validate(); err != nil {
		logger.Errorf("invalid configuration: %v", err)
		os.Exit(1)
	}

	server, err := rest.NewServer(cfg, logger)
	if err != nil {
		logger.Errorf("failed to create server: %v", err)
		os.Exit(1)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	logger.Infof("lvq-server v%s ready on %s (data dir: %s)", version, cfg.Server.Address(), cfg.Engine.DataDir)
	select {
	case sig := <-sigChan:
		logger.Infof("received signal: %v", sig)
	case err := <-errChan:
		logger.Errorf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("error during shutdown: %v", err)
	}
	logger.Info("server stopped")
}

func loadConfig(logger *observability.Logger, configFile string) *config.Config {
	if configFile != "" {
		cfg, err := config.LoadFromFile(configFile)
		if err != nil {
			logger.Errorf("failed to load config file: %v", err)
			os.Exit(1)
		}
		return cfg
	}
	return config.LoadFromEnv()
}
