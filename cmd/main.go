package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/classboard/board-stream/internal/api"
	"github.com/classboard/board-stream/internal/auth"
	"github.com/classboard/board-stream/internal/config"
	"github.com/classboard/board-stream/internal/events"
	"github.com/classboard/board-stream/internal/logger"
	"github.com/classboard/board-stream/internal/pubsub"
	"github.com/classboard/board-stream/internal/repository"
	"github.com/classboard/board-stream/internal/upload"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	zl, err := logger.New(cfg.App.Env != "production")
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	mc, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	cancel()
	if err != nil {
		zl.Fatal("mongo connect", zap.Error(err))
	}
	defer func() { _ = mc.Disconnect(context.Background()) }()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Pass,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	repo := repository.NewMongoRepository(mc.Database(cfg.Mongo.DB))
	feed := pubsub.NewFeed(rdb, repo, cfg.Redis.Prefix, zl)
	pres := pubsub.NewPresence(rdb, cfg.Redis.Prefix, zl)

	pub := events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.TopicMessageEvents, cfg.Kafka.TopicBroadcasts)
	defer func() { _ = pub.Close() }()

	store, err := upload.NewS3Store(context.Background(), cfg.S3.Region, cfg.S3.Bucket)
	if err != nil {
		zl.Fatal("s3 init", zap.Error(err))
	}

	jv, err := auth.NewValidator(cfg.JWT.Alg, cfg.JWT.PublicKeyPath, cfg.JWT.HSSecret)
	if err != nil {
		zl.Fatal("jwt init", zap.Error(err))
	}

	h := api.NewHandlers(repo, feed, pres, pub, store, zl)
	wsh := api.NewWSHandler(repo, feed, pres, pub, store, cfg, zl)
	app := api.NewServer(cfg, jv, h, wsh, zl)

	go func() {
		if err := app.Listen(fmt.Sprintf(":%d", cfg.App.Port)); err != nil {
			zl.Fatal("server listen", zap.Error(err))
		}
	}()
	zl.Info("board-stream started", zap.Int("port", cfg.App.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = app.ShutdownWithContext(shutdownCtx)
	zl.Info("board-stream stopped")
}
