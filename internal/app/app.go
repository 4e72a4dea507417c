// Package app wires configuration, persistence, the broker and the outer
// surfaces into a running process.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/nsridhar76/go-orderevents/internal/adapter/postgres"
	eventrepo "github.com/nsridhar76/go-orderevents/internal/adapter/postgres/eventstore"
	orderrepo "github.com/nsridhar76/go-orderevents/internal/adapter/postgres/order"
	"github.com/nsridhar76/go-orderevents/internal/auth"
	"github.com/nsridhar76/go-orderevents/internal/config"
	"github.com/nsridhar76/go-orderevents/internal/domain"
	"github.com/nsridhar76/go-orderevents/internal/messaging"
	"github.com/nsridhar76/go-orderevents/internal/service/eventstore"
	"github.com/nsridhar76/go-orderevents/internal/service/order"
	"github.com/nsridhar76/go-orderevents/internal/transport/grpcadmin"
	"github.com/nsridhar76/go-orderevents/internal/transport/rest"
)

// Run serves HTTP, gRPC and the order pipeline until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("broker", cfg.Broker.Driver),
		slog.Int("retry_max_attempts", cfg.Retry.MaxAttempts),
		slog.Duration("retry_backoff", cfg.Retry.Backoff),
	)

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, cfg.Database.DSN, logger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	transport, err := NewTransport(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := transport.Close(); err != nil {
			logger.Warn("close broker", slog.String("error", err.Error()))
		}
	}()

	events := eventstore.NewService(logger, eventrepo.New(pool))
	producer := messaging.NewProducer(logger, transport.Publisher)
	orders := order.NewService(logger, orderrepo.New(pool), producer)
	jwtMgr := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)

	g, gctx := errgroup.WithContext(ctx)

	if transport.Subscriber != nil {
		pipeline, err := messaging.NewPipeline(logger, transport.Subscriber, producer, events, cfg.Retry.Policy())
		if err != nil {
			return err
		}
		g.Go(func() error { return pipeline.Run(gctx) })
	} else {
		logger.Warn("broker driver has no subscriber, order consumers are not started")
	}

	httpSrv := newHTTPServer(cfg.Server, logger, jwtMgr, cfg.Auth.AdminRole, pool, orders, events)
	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	var grpcSrv *grpcadmin.Server
	if cfg.GRPC.Enabled {
		grpcSrv = grpcadmin.NewServer(logger, jwtMgr, cfg.Auth.AdminRole, events)
		lis, err := net.Listen("tcp", net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.GRPC.Port)))
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		g.Go(func() error {
			logger.Info("grpc server listening", slog.String("addr", lis.Addr().String()))
			return grpcSrv.Serve(lis)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		if grpcSrv != nil {
			grpcSrv.Shutdown()
		}
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("stopped")
	return nil
}

func newHTTPServer(
	cfg config.ServerConfig,
	logger *slog.Logger,
	jwtMgr *auth.JWTManager,
	adminRole string,
	pool *pgxpool.Pool,
	orders *order.Service,
	events *eventstore.Service,
) *http.Server {
	handler := rest.NewRouter(logger, jwtMgr, adminRole, rest.Handlers{
		Health: rest.NewHealthHandler(pool, Version),
		Orders: rest.NewOrderHandler(orders, adminRole, logger),
		Events: rest.NewEventHandler(events, logger),
	})

	return &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Publish sends one message through the configured broker.
func Publish(ctx context.Context, cfg *config.Config, logger *slog.Logger, topic, payload string) error {
	transport, err := NewTransport(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer transport.Close() //nolint:errcheck

	return messaging.NewProducer(logger, transport.Publisher).Publish(ctx, domain.Topic(topic), payload)
}
