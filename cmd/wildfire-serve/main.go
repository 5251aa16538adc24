// Command wildfire-serve runs a wildfire world in real time and exposes it over
// HTTP: a JSON control API, PNG frames, a websocket tick stream and Prometheus
// metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"wildfire/internal/app"
	"wildfire/internal/logging"
	"wildfire/internal/observability"
	"wildfire/internal/sims/wildfire"
	"wildfire/internal/stream"
)

func main() {
	cfg := app.NewConfig()
	cfg.Bind(flag.CommandLine)
	addr := flag.String("addr", ":8080", "HTTP address to listen on")
	autoReset := flag.Bool("auto-reset", true, "start the next seed once a fire is depleted")
	paused := flag.Bool("paused", false, "start with the clock stopped")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, *addr, *autoReset, *paused, log); err != nil {
		log.Error(context.Background(), "server failed", logging.Err(err))
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *app.Config, addr string, autoReset, paused bool, log logging.Logger) error {
	worldCfg, err := cfg.World()
	if err != nil {
		return err
	}
	world, err := wildfire.NewWithConfig(worldCfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector, err := observability.NewWildfireCollector(reg)
	if err != nil {
		return err
	}

	srv := stream.NewServer(world, stream.Options{
		TPS:       cfg.TPS,
		Scale:     cfg.Scale,
		AutoReset: autoReset,
		Logger:    log,
		Collector: collector,
	})
	if paused {
		srv.Pause()
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	httpSrv := &http.Server{
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	loopDone := make(chan error, 1)
	go func() { loopDone <- srv.Run(ctx) }()

	serveErr := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	log.Info(ctx, "serving wildfire",
		logging.String("addr", lis.Addr().String()),
		logging.Int("width", worldCfg.Width),
		logging.Int("height", worldCfg.Height),
		logging.Int64("seed", worldCfg.Seed),
		logging.String("strategy", string(world.Strategy())),
		logging.Int("tps", cfg.TPS),
	)

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	log.Info(context.Background(), "shutting down wildfire server")
	cancel()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn(shutdownCtx, "http shutdown", logging.Err(err))
	}
	return <-loopDone
}
