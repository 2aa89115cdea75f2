package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sandeepkv93/siteops-service/internal/config"
	"github.com/sandeepkv93/siteops-service/internal/di"
)

func main() {
	envFile := flag.String("env-file", ".env", "optional dotenv file applied before reading the environment")
	flag.Parse()

	if err := run(*envFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(envFile string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := di.InitializeApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	if err := a.Run(ctx); err != nil {
		a.Logger.Error("server stopped with error", "error", err)
		return err
	}
	slog.Info("server stopped")
	return nil
}
