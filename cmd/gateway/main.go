package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/goevery/gateway/internal/auth"
	"github.com/goevery/gateway/internal/broadcaster"
	"github.com/goevery/gateway/internal/dispatcher"
	"github.com/goevery/gateway/internal/eventbus"
	"github.com/goevery/gateway/internal/eventbus/memorybus"
	"github.com/goevery/gateway/internal/eventbus/natsbus"
	"github.com/goevery/gateway/internal/eventbus/redisbus"
	"github.com/goevery/gateway/internal/handler"
	"github.com/goevery/gateway/internal/server"
	"github.com/goevery/gateway/internal/store"
	"github.com/goevery/gateway/internal/store/memory"
	"github.com/goevery/gateway/internal/store/mongodb"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

type App struct {
	logger          *zap.Logger
	settings        Settings
	bus             eventbus.Bus
	closeStore      func(ctx context.Context) error
	dispatcher      *dispatcher.Dispatcher
	websocketServer *server.WebSocketServer
	restServer      *server.RESTServer
}

func NewApp(ctx context.Context, logger *zap.Logger, settings Settings) (*App, error) {
	dataStore, closeStore, err := openStore(ctx, logger, settings)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	bus, err := openEventBus(logger, settings)
	if err != nil {
		closeStore(ctx)

		return nil, fmt.Errorf("open event bus: %w", err)
	}

	originChecker := server.NewOriginChecker(settings.AllowedOriginList())
	websocketUpgrader := &websocket.Upgrader{
		ReadBufferSize:    1024,
		WriteBufferSize:   1024,
		CheckOrigin:       originChecker.Check,
		EnableCompression: true,
	}

	authenticator := auth.NewAuthenticator(settings.JWTSecret, settings.APIKeyList())
	registry := broadcaster.NewInMemoryRegistry(logger)
	validator := handler.NewRequestValidator()

	heartbeatHandler := handler.NewHeartbeatHandler()
	joinHandler := handler.NewJoinHandler(logger, validator, registry)
	leaveHandler := handler.NewLeaveHandler(logger, validator, registry)
	typingHandler := handler.NewTypingHandler(validator, registry)
	presenceHandler := handler.NewPresenceHandler(validator, registry, dataStore, dataStore)
	createMessageHandler := handler.NewCreateMessageHandler(logger)
	publishHandler := handler.NewPublishHandler(validator, bus)

	router := server.NewRouter(
		logger,
		heartbeatHandler,
		joinHandler,
		leaveHandler,
		typingHandler,
		presenceHandler,
		createMessageHandler,
	)

	websocketServer := server.NewWebSocketServer(
		logger,
		websocketUpgrader,
		authenticator,
		registry,
		router,
		server.WebSocketSettings{
			PingInterval:   settings.PingInterval(),
			PingTimeout:    settings.PingTimeout(),
			SendBufferSize: settings.SendBufferSize,
		},
	)
	restServer := server.NewRESTServer(
		logger,
		authenticator,
		publishHandler,
		presenceHandler,
	)

	return &App{
		logger,
		settings,
		bus,
		closeStore,
		dispatcher.NewDispatcher(logger, registry, dataStore),
		websocketServer,
		restServer,
	}, nil
}

func openStore(ctx context.Context, logger *zap.Logger, settings Settings) (store.Store, func(ctx context.Context) error, error) {
	switch settings.Store {
	case "memory":
		logger.Warn("using in-memory store, presence queries will see no groups or friends")

		return memory.NewStore(), func(context.Context) error { return nil }, nil
	case "mongodb":
		client, err := mongo.Connect(options.Client().ApplyURI(settings.MongoDBURI))
		if err != nil {
			return nil, nil, err
		}

		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		if err := client.Ping(pingCtx, nil); err != nil {
			client.Disconnect(ctx)

			return nil, nil, err
		}

		mongoStore := mongodb.NewStore(client, settings.MongoDBDatabase)
		if err := mongoStore.Setup(pingCtx); err != nil {
			client.Disconnect(ctx)

			return nil, nil, err
		}

		logger.Info("connected to mongodb", zap.String("database", settings.MongoDBDatabase))

		return mongoStore, client.Disconnect, nil
	default:
		return nil, nil, fmt.Errorf("unknown store: %s", settings.Store)
	}
}

func openEventBus(logger *zap.Logger, settings Settings) (eventbus.Bus, error) {
	switch settings.EventBus {
	case "memory":
		return memorybus.NewBus(settings.SendBufferSize), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     settings.RedisAddr,
			Password: settings.RedisPassword,
			DB:       settings.RedisDB,
		})

		logger.Info("using redis event bus", zap.String("address", settings.RedisAddr))

		return redisbus.NewBus(logger, client, settings.RedisPrefix), nil
	case "nats":
		conn, err := natsbus.Connect(settings.NatsURL, "gateway")
		if err != nil {
			return nil, err
		}

		logger.Info("using nats event bus", zap.String("url", settings.NatsURL))

		return natsbus.NewBus(logger, conn, settings.NatsSubjectPrefix), nil
	default:
		return nil, fmt.Errorf("unknown event bus: %s", settings.EventBus)
	}
}

func (a *App) run(ctx context.Context) {
	notifyCtx, notifyCtxCancel := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer notifyCtxCancel()

	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)

		err := a.dispatcher.Run(notifyCtx, a.bus)
		if err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("event dispatcher stopped", zap.Error(err))
		}
	}()

	a.startHttpServer(notifyCtx)

	if err := a.bus.Close(); err != nil {
		a.logger.Warn("failed to close event bus", zap.Error(err))
	}

	<-dispatcherDone

	closeCtx, closeCtxCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer closeCtxCancel()

	if err := a.closeStore(closeCtx); err != nil {
		a.logger.Warn("failed to close store", zap.Error(err))
	}
}

func (a *App) startHttpServer(ctx context.Context) {
	address := fmt.Sprintf("0.0.0.0:%d", a.settings.Port)

	router := mux.NewRouter().
		PathPrefix(a.settings.BasePath).
		Subrouter()

	a.websocketServer.Register(router)
	a.restServer.Register(router)

	httpServer := &http.Server{
		Addr:    address,
		Handler: router,
	}

	a.logger.Info("starting http server",
		zap.String("address", address),
		zap.String("basePath", a.settings.BasePath))

	go func() {
		err := httpServer.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("failed to start http server",
				zap.Error(err))
		}
	}()

	<-ctx.Done()

	a.logger.Info("stopping http server")

	shutdownCtx, shutdownCtxCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCtxCancel()

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Error("http server shutdown failed",
			zap.Error(err))
	}

	a.logger.Info("http server stopped")
}

func main() {
	ctx := context.Background()

	bootstrapLogger, _ := zap.NewDevelopment()

	var settings Settings
	_, err := env.UnmarshalFromEnviron(&settings)
	if err != nil {
		bootstrapLogger.Fatal("failed to parse settings from environment", zap.Error(err))
	}

	logger, err := buildZapLogger(settings.LogEncoding, settings.LogLevel)
	if err != nil {
		bootstrapLogger.Fatal("failed to build logger", zap.Error(err))
	}
	defer logger.Sync()

	app, err := NewApp(ctx, logger, settings)
	if err != nil {
		logger.Fatal("failed to setup", zap.Error(err))
	}

	app.run(ctx)
}
