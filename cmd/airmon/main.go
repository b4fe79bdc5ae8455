package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"airmon/internal/app"
	"airmon/internal/config"
	"airmon/internal/logging"
)

const (
	appName = "airmon"
	// Default version is "dev" if not set with -ldflags "-X main.version=..."
	version = "dev"
)

func main() {
	// A missing .env is fine; the environment still applies.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	city := flag.String("city", "", "city to search air-quality stations for")
	params := flag.String("params", "", "comma-separated parameter names to plot (default: all)")
	out := flag.String("out", "chart.png", "chart PNG output path")
	save := flag.Bool("save", false, "archive a snapshot of the fetched data")
	load := flag.String("load", "", "replay an archived snapshot file instead of fetching")
	listSaved := flag.Bool("list-saved", false, "list archived snapshots and exit")
	flag.Parse()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg, version, appName)
	slog.SetDefault(logger)

	slog.Info("starting",
		"app", appName,
		"version", version,
		"env", cfg.AppEnv,
		"log_level", cfg.LogLevel.String(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(cfg, logger)
	defer a.Close()

	opts := app.Options{
		City:      *city,
		Params:    splitParams(*params),
		OutPath:   *out,
		Save:      *save,
		LoadPath:  *load,
		ListSaved: *listSaved,
	}
	if err := a.Run(ctx, opts); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run failed", "err", err)
		a.Close()
		os.Exit(1)
	}
}

func splitParams(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
