package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"bookfinder/internal/config"
	"bookfinder/internal/delivery"
	"bookfinder/internal/logger"
	"bookfinder/internal/openlibrary"
	"bookfinder/internal/search"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Get()
	closer, err := logger.Setup(logger.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON, Path: cfg.Log.Path})
	if err != nil {
		logrus.Fatalf("logger: %v", err)
	}
	defer closer.Close()

	if err := run(cfg); err != nil {
		logrus.WithError(err).Fatal("web-adapter stopped")
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logrus.StandardLogger()
	client := openlibrary.New(cfg.OpenLibrary, log)
	srv := &delivery.Server{
		Log:      log,
		Service:  search.NewService(client, cfg.Search.PageSize),
		Debounce: cfg.Search.Debounce,
		Metrics:  cfg.Metrics.Enabled,
	}

	httpSrv := &http.Server{
		Addr:              cfg.WebAdapter.Address(),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	grpcSrv, health := delivery.NewHealthServer()
	lis, err := net.Listen("tcp", cfg.Health.Address())
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", httpSrv.Addr).Infof("web-adapter listening on %s", cfg.WebAdapter.FullURL())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.WithField("addr", lis.Addr().String()).Info("grpc health listening")
		return grpcSrv.Serve(lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		health.Shutdown()

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := httpSrv.Shutdown(sctx)
		grpcSrv.GracefulStop()
		return err
	})
	return g.Wait()
}
