package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"

	"github.com/nyc-design/neil-logger/pkg/api"
	"github.com/nyc-design/neil-logger/pkg/storage"
)

// ServeCommand creates the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve stored run and error documents as JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "port",
				Usage: "Port to listen on",
				Value: "8080",
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to bind to",
				Value: "localhost",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return serve(ctx, c, net.JoinHostPort(c.String("host"), c.String("port")))
		},
	}
}

func serve(ctx context.Context, c *cli.Command, addr string) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	reader, closeStore, err := openReader(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	srv := &http.Server{
		Addr: addr,
		Handler: newServeMux(reader, api.Config{
			LogCollection:   cfg.Store.LogCollection,
			ErrorCollection: cfg.Store.ErrorCollection,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	fmt.Printf("Serving documents on http://%s/api/runs\n", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
		fmt.Println("\nShutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func newServeMux(reader storage.Reader, cfg api.Config) http.Handler {
	mux := http.NewServeMux()
	api.NewServer(reader, cfg).RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	return api.CorsMiddleware(mux)
}
