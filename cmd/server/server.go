package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KirkDiggler/rpg-toolkit/events"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpc_logging "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"

	"github.com/forgekeep/encounter-api/internal/clients/external"
	"github.com/forgekeep/encounter-api/internal/orchestrators/encounter"
	"github.com/forgekeep/encounter-api/internal/pkg/idgen"
	redisclient "github.com/forgekeep/encounter-api/internal/redis"
	"github.com/forgekeep/encounter-api/internal/repositories/encounters"
)

var (
	grpcPort  int
	redisAddr string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the gRPC server",
	Long:  `Start the encounter API gRPC server with all configured services.`,
	RunE:  runServer,
}

func init() {
	serverCmd.Flags().IntVar(&grpcPort, "port", 50051, "gRPC server port")
	serverCmd.Flags().StringVar(&redisAddr, "redis-addr", envOr("REDIS_ADDR", "localhost:6379"), "Redis address")
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Received shutdown signal, gracefully stopping...")
		cancel()
	}()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", grpcPort))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpc_logging.UnaryServerInterceptor(grpc_logging.LoggerFunc(logFunc)),
			grpc_recovery.UnaryServerInterceptor(),
		),
		grpc.ChainStreamInterceptor(
			grpc_logging.StreamServerInterceptor(grpc_logging.LoggerFunc(logFunc)),
			grpc_recovery.StreamServerInterceptor(),
		),
	)

	svc, err := buildEncounterService(redisAddr)
	if err != nil {
		return fmt.Errorf("failed to wire encounter service: %w", err)
	}

	// Readiness probe against the SRD API; the service degrades to
	// caller-supplied stat blocks when the API is unreachable
	if _, err := svc.ListDamageTypes(ctx, &encounter.ListDamageTypesInput{}); err != nil {
		slog.WarnContext(ctx, "SRD API unreachable at startup", "error", err)
	}

	// TODO: register the encounter service here once its proto surface lands

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	reflection.Register(srv)

	errChan := make(chan error, 1)
	go func() {
		slog.Info("gRPC server starting", "port", grpcPort, "redis", redisAddr)
		if err := srv.Serve(lis); err != nil {
			errChan <- fmt.Errorf("failed to serve: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down gRPC server...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		stopped := make(chan struct{})
		go func() {
			srv.GracefulStop()
			close(stopped)
		}()

		select {
		case <-shutdownCtx.Done():
			slog.Warn("Graceful shutdown timeout exceeded, forcing stop")
			srv.Stop()
		case <-stopped:
			slog.Info("Server stopped gracefully")
		}

		return nil
	case err := <-errChan:
		return err
	}
}

// buildEncounterService wires the full dependency graph behind the Service
// interface: Redis-backed repository, SRD client, event bus and orchestrator.
func buildEncounterService(redisAddr string) (encounter.Service, error) {
	redisClient, err := redisclient.NewClient(redisAddr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}

	repo, err := encounters.NewRedis(&encounters.RedisConfig{
		Client: redisClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create encounter repository: %w", err)
	}

	externalClient, err := external.New(&external.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create external client: %w", err)
	}

	return encounter.New(&encounter.Config{
		Repository:             repo,
		ExternalClient:         externalClient,
		EventBus:               events.NewBus(),
		IDGenerator:            idgen.NewUUID("enc"),
		ParticipantIDGenerator: idgen.NewUUID("part"),
	})
}

func logFunc(ctx context.Context, level grpc_logging.Level, msg string, fields ...any) {
	var lvl slog.Level
	switch level {
	case grpc_logging.LevelDebug:
		lvl = slog.LevelDebug
	case grpc_logging.LevelWarn:
		lvl = slog.LevelWarn
	case grpc_logging.LevelError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.Log(ctx, lvl, msg, fields...)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
