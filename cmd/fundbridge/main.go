package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fundbridge/fundbridge/internal/app"
	"github.com/fundbridge/fundbridge/internal/config"

	log "github.com/sirupsen/logrus"
)

// main runs the CLI entrypoint and exits on unrecoverable command errors.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if errRun := run(ctx, os.Args[1:]); errRun != nil {
		log.WithError(errRun).Error("command failed")
		os.Exit(1)
	}
}

// run parses flags, loads config, and starts the API server.
func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fundbridge", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file path (or env CONFIG_PATH)")
	port := fs.Int("port", 8080, "server port")
	migrateOnly := fs.Bool("migrate", false, "run database migrations and exit")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}

	if errValidate := validatePort(*port); errValidate != nil {
		return errValidate
	}

	configPath := config.ResolveConfigPath(*cfgPath)
	if strings.TrimSpace(*cfgPath) == "" {
		configPath = config.ResolveConfigPath(os.Getenv(config.EnvConfigPath))
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Port <= 0 {
		cfg.Port = *port
	}

	if *migrateOnly {
		return app.Migrate(ctx, cfg)
	}
	return app.RunServer(ctx, cfg)
}

func validatePort(port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port: %d", port)
	}
	return nil
}
