package main

import (
	"chat-relay/auth"
	"chat-relay/infrastructure/api"
	"chat-relay/infrastructure/grpc/server"
	"chat-relay/infrastructure/ws"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"chat-relay/storage"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until a signal arrives, so that the
// deferred cleanups (BadgerDB above all) always run before the process exits.
func run() error {
	// 1. Configuration & Logger
	// A missing .env is fine, the environment alone may be enough
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Stores & services
	monitoring := observability.NewMonitoringManager(log)
	messageRepository := repositories.NewMessageRepository(db, log, config.LimitMessages)
	userRepository := repositories.NewUserRepository(db)
	fileStore := storage.NewDiskStore(config.UploadsDir, log)
	issuer := auth.NewTokenIssuer(config.JWTSecret, config.AuthTokenDuration)
	authService := services.NewAuthService(userRepository, issuer)
	chatService := services.NewChatService(messageRepository, userRepository)

	// 4. Relay core
	sup := workers.NewSupervisor(log, config.RestartInterval)
	registry := runtime.NewRegistry()
	router := runtime.NewRouter(log, registry, messageRepository, fileStore, monitoring,
		config.PersistTimeout, config.DeliveryTimeout)
	presence := runtime.NewPresenceBroadcaster(log, registry, monitoring, config.DeliveryTimeout)
	orchestrator := runtime.NewOrchestrator(log, runtime.Config{
		PingInterval:    config.PingInterval,
		PongTimeout:     config.PongTimeout,
		BufferSize:      config.ConnectionBufferSize,
		RequireIdentity: config.RequireIdentity,
	}, sup, registry, router, presence, auth.NewResolver(issuer), monitoring)

	// 5. Outer surfaces
	wsHandler := ws.NewHandler(log, orchestrator, config.ClientURL, config.WriteTimeout, config.MaxFrameBytes)
	apiServer := api.NewServer(log, api.Config{
		ClientURL:     config.ClientURL,
		UploadsDir:    config.UploadsDir,
		TokenDuration: config.AuthTokenDuration,
		SecureCookie:  config.SecureCookie,
	}, authService, chatService, monitoring, wsHandler)

	sup.Add(
		api.NewHTTPWorker(log, fmt.Sprintf("%s:%d", config.Host, config.Port), apiServer.Routes()),
		server.NewHealthWorker(log, fmt.Sprintf("%s:%d", config.Host, config.HealthPort)),
		workers.NewStatsWorker(log, monitoring, config.StatsInterval),
	)

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 7. Run until stopped; the supervisor waits for every session to unwind
	go func() {
		<-ctx.Done()
		log.Info("Shutting down gracefully...")
		orchestrator.CloseAll()
	}()
	sup.Run(ctx)

	log.Info("Program stopped cleanly")
	return nil
}
