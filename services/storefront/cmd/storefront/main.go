package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	pkgconfig "github.com/utafrali/agrostore/pkg/config"
	"github.com/utafrali/agrostore/pkg/logger"
	"github.com/utafrali/agrostore/services/storefront/internal/app"
	"github.com/utafrali/agrostore/services/storefront/internal/config"
)

func main() {
	if _, err := pkgconfig.LoadDotEnv(); err != nil {
		slog.Warn("failed to load .env", slog.String("error", err.Error()))
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.NewWithOptions(logger.Options{
		Service: "storefront",
		Level:   cfg.LogLevel,
		Format:  logger.Format(cfg.LogFormat),
		Writer:  os.Stderr,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize storefront", slog.String("error", err.Error()))
		os.Exit(1)
	}

	code := finish(application, run(ctx, application, os.Args[1:], os.Stdout), os.Stderr)
	cancel()
	os.Exit(code)
}

type closer interface {
	Close(ctx context.Context) error
}

// finish flushes c, even when the command was interrupted, and maps runErr
// to an exit status. A close failure is logged by the app and does not
// change the status.
func finish(c closer, runErr error, stderr io.Writer) int {
	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = c.Close(closeCtx)

	if runErr == nil {
		return 0
	}
	fmt.Fprintln(stderr, "error:", runErr)
	if errors.Is(runErr, errUsage) {
		fmt.Fprint(stderr, usage)
		return 2
	}
	return 1
}
