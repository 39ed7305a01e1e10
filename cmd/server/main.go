// Command server runs the travel catalog API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	broccoli "github.com/Vinicius-jafe/bookish-broccoli"
)

func defaultConfigDir() string {
	if dir := os.Getenv("CONFIG_DIR"); dir != "" {
		return dir
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "data"
	}
	return filepath.Join(base, "bookish-broccoli")
}

func main() {
	configDir := flag.String("config", defaultConfigDir(), "configuration directory (config.yaml, .env, default database and uploads)")
	flag.Parse()

	cfg, err := broccoli.LoadConfig(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	logger := broccoli.NewLogger(os.Stderr, cfg.Production())

	app, err := broccoli.New(
		broccoli.WithLogger(logger),
		broccoli.WithConfig(cfg),
		broccoli.WithDatabase(),
		broccoli.WithStorage(),
		broccoli.WithAuth(),
		broccoli.WithHooks(),
	)
	if err != nil {
		logger.Error("starting catalog", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		logger.Error("catalog server stopped", "error", err)
		app.Close()
		os.Exit(1)
	}
}
