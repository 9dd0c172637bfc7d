// Command compare builds the context of two places against the live
// providers and prints their comparison as JSON.
//
// Usage:
//
//	go run ./cmd/compare \
//	  -base "Puerta del Sol, Madrid" \
//	  -target "Plaza de Cataluna, Barcelona" \
//	  -radius 1000
//
// Providers and timeouts are configured through the same environment
// variables as the service.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/couchcryptid/geocontext-service/internal/app"
	"github.com/couchcryptid/geocontext-service/internal/config"
	"github.com/couchcryptid/geocontext-service/internal/observability"
	"github.com/couchcryptid/geocontext-service/internal/pipeline"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "compare:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("compare", flag.ContinueOnError)
	base := fs.String("base", "", "address of the base place")
	target := fs.String("target", "", "address of the place to compare against")
	radius := fs.Int("radius", 0, "search radius in meters (default DEFAULT_RADIUS_M)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*base) == "" || strings.TrimSpace(*target) == "" {
		fs.Usage()
		return errors.New("-base and -target are required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// Logs go to stderr so stdout stays valid JSON.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	components := app.New(cfg, logger, observability.NewMetricsForTesting())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := components.Pipeline.Compare(ctx,
		pipeline.Request{Address: *base, RadiusM: *radius},
		pipeline.Request{Address: *target, RadiusM: *radius},
	)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
