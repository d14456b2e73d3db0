package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"go.uber.org/zap"

	"github.com/arkvault/userstore/internal/api"
	"github.com/arkvault/userstore/internal/app/service"
	"github.com/arkvault/userstore/internal/domain/user"
	"github.com/arkvault/userstore/internal/store"
	"github.com/arkvault/userstore/pkg/config"
	"github.com/arkvault/userstore/pkg/mongox"
	"github.com/arkvault/userstore/pkg/redisx"
)

func main() {
	cfg, log, err := config.Initialize()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting user store server",
		zap.String("version", "0.1.0"),
		zap.String("environment", cfg.Server.Environment),
	)

	redisClient, err := redisx.NewClient(cfg.Redis.URL, log)
	if err != nil {
		log.Fatal("Failed to initialize Redis client", zap.Error(err))
	}
	defer redisClient.Close()

	mongoClient, err := mongox.NewClient(cfg.Mongo.URI, cfg.Mongo.ConnectTimeout, log)
	if err != nil {
		log.Fatal("Failed to initialize MongoDB client", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Close(ctx)
	}()

	repo := user.NewMongoRepository(mongoClient.Database(cfg.Mongo.Database), cfg.Mongo.Collection)

	{
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := repo.EnsureIndexes(ctx); err != nil {
			cancel()
			log.Fatal("Failed to ensure MongoDB indexes", zap.Error(err))
		}
		cancel()
	}

	eventBus, err := newEventBus(redisClient)
	if err != nil {
		log.Fatal("Failed to create event bus", zap.Error(err))
	}

	userStore := store.NewStore(repo, eventBus, log)
	defer userStore.Close()

	tokens := user.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTExpiration)

	signIn := service.NewSignInService(log, repo, tokens, service.SignInPolicy{
		MaxAccessFailed: cfg.Auth.MaxAccessFailed,
		LockoutDuration: cfg.Auth.LockoutDuration,
		AttemptInterval: cfg.Auth.SignInInterval,
		AttemptBurst:    cfg.Auth.SignInBurst,
	})

	serverConfig := api.ServerConfig{
		Port:         cfg.Server.Port,
		Host:         cfg.Server.Host,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	apiServer := api.NewServer(serverConfig, log, signIn, map[string]api.HealthChecker{
		"redis": redisClient,
		"mongo": mongoClient,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("Shutting down server...")
		cancel()
	}()

	if err := apiServer.Start(ctx); err != nil {
		log.Error("Server error", zap.Error(err))
		os.Exit(1)
	}

	log.Info("Server gracefully stopped")
}

// newEventBus builds a Redis Streams backed event bus for user domain events
func newEventBus(redisClient *redisx.Client) (*cqrs.EventBus, error) {
	watermillLogger := watermill.NewStdLogger(false, false)

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient.Client,
		},
		watermillLogger,
	)
	if err != nil {
		return nil, err
	}

	return cqrs.NewEventBusWithConfig(
		publisher,
		cqrs.EventBusConfig{
			GeneratePublishTopic: func(params cqrs.GenerateEventPublishTopicParams) (string, error) {
				return fmt.Sprintf("user-events.%s", params.EventName), nil
			},
			Marshaler: cqrs.JSONMarshaler{},
			Logger:    watermillLogger,
		},
	)
}
