package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"chat_relay_service/internal/relay/app"
	"chat_relay_service/internal/relay/domain"
	"chat_relay_service/internal/relay/repository"
	"chat_relay_service/internal/relay/router"
	"chat_relay_service/pkg/config"
	"chat_relay_service/pkg/database"
	"chat_relay_service/pkg/logger"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.RelayService, config.EnvConfig.RelayServiceLogPath)
	cfg := config.LoadConfig[config.Relay](config.EnvConfig.RelayService, config.EnvConfig.RelayServiceYAMLPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Mongo holds messages and rooms
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.MongoSQL.User, cfg.MongoSQL.Password, cfg.MongoSQL.Host, cfg.MongoSQL.Port)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.MongoSQL.RetryCount,
			RetryInterval: time.Duration(cfg.MongoSQL.RetryInterval),
		},
		cfg.MongoSQL.Database)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to mongoDB database after retries",
			zap.String("address", fmt.Sprintf("[%s]", uri)),
			zap.Error(err),
		)
	}
	defer mongo.Close(ctx)

	// Redis holds live sessions
	redisClient, err := database.NewRedisClient(cfg.Redis.Addr, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
	}

	msgStore := repository.NewMongoMessageStore(mongo.Database)
	roomStore := repository.NewMongoRoomStore(mongo.Database)
	sessionStore := repository.NewRedisSessionStore(
		database.NewRedisRepository[domain.Session](redisClient),
		cfg.SessionTTL,
	)

	// Contacts live in postgres, only needed for the contacts presence scope
	var contactStore repository.ContactStore
	scope := domain.PresenceScope(cfg.Presence.Scope)
	if scope == domain.PresenceScopeContacts {
		pgURI := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
			cfg.PostgreSQL.User, cfg.PostgreSQL.Password, cfg.PostgreSQL.Host, cfg.PostgreSQL.Port, cfg.PostgreSQL.Database)
		pool, err := database.NewDatabaseConnection(database.Connection{
			ConnectStr:    pgURI,
			RetryCount:    cfg.PostgreSQL.RetryCount,
			RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
		})
		if err != nil {
			logger.Log.Fatal(fmt.Sprintf("connect postgres err : %v", err))
		}
		defer pool.Close()
		contactStore = repository.NewContactStore(pool)
	}

	// Kafka side channel is optional; the relay runs without it
	var archive repository.MessageArchive
	if len(cfg.Kafka.Brokers) > 0 {
		writer, err := database.NewKafkaWriterWithRetry(database.KafkaConnection{
			Brokers:       cfg.Kafka.Brokers,
			Topic:         cfg.Kafka.Topic,
			RetryCount:    cfg.Kafka.RetryCount,
			RetryInterval: time.Duration(cfg.Kafka.RetryInterval),
		})
		if err != nil {
			logger.Log.Warn("message archive disabled", zap.Error(err))
		} else {
			defer writer.Close()
			archive = repository.NewKafkaMessageArchive(writer)
		}
	}

	presence := app.NewPresenceTracker(scope, contactStore)
	relay := app.NewRelay(msgStore, archive, presence)
	go relay.Run(ctx)

	gateway := app.NewGatewayHandler(relay, sessionStore)
	api := app.NewHTTPHandler(msgStore, roomStore)

	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.RelayServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	router.RegisterRoutes(r, gateway, api)

	port := ":" + cfg.Port
	log.Printf("Relay Service listening on %s", port)
	if err := r.Listen(port); err != nil {
		log.Fatalf("Failed to start Fiber: %v", err)
	}
}
