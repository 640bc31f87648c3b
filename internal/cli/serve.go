package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/patriline/pkg/api"
	"github.com/matzehuels/patriline/pkg/cache"
	"github.com/matzehuels/patriline/pkg/pipeline"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr      string
	redisAddr string
	noCache   bool
}

func newServeCmd() *cobra.Command {
	var o serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the simulation pipeline over HTTP",
		Long: `Serve exposes the pipeline as a JSON API. Results are cached in the
local file cache by default; pass --redis to share the cache between
instances.`,
		Example: `  patriline serve --addr :8080
  patriline serve --addr :8080 --redis localhost:6379`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), o)
		},
	}

	cmd.Flags().StringVar(&o.addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&o.redisAddr, "redis", "", "redis address for a shared cache")
	cmd.Flags().BoolVar(&o.noCache, "no-cache", false, "disable the result cache")

	return cmd
}

func runServe(ctx context.Context, o serveOpts) error {
	logger := loggerFromContext(ctx)

	var resultCache cache.Cache
	var err error
	switch {
	case o.noCache:
		resultCache = cache.NewNullCache()
	case o.redisAddr != "":
		resultCache, err = cache.NewRedisCache(ctx, cache.RedisConfig{Addr: o.redisAddr})
		if err != nil {
			return err
		}
		logger.Info("using redis cache", "addr", o.redisAddr)
	default:
		resultCache, err = openCache(false)
		if err != nil {
			return err
		}
	}

	runner := pipeline.NewRunner(resultCache, nil, logger)
	defer runner.Close()

	server := &http.Server{
		Addr:              o.addr,
		Handler:           api.NewServer(runner, logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", o.addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
