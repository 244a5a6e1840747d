/**
 * @description
 * This is the main entry point for the bridge-service. It is responsible for
 * initializing all components of the service, including configuration, database
 * connection, external API clients, the message broker, the conversation engine,
 * the transfer orchestrator, and the HTTP server. It wires everything together
 * and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/redis/go-redis/v9: Redis client for the event rate limiter.
 * - internal/api, internal/config, internal/engine, internal/orchestrator,
 *   internal/session, internal/store: Internal packages for the service.
 * - pkg/botclient, pkg/chainrpc, pkg/priceclient, pkg/rabbitmq, pkg/routerclient,
 *   pkg/walletclient: Clients for external collaborators.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/refuelhq/bridge-service/internal/api"
	"github.com/refuelhq/bridge-service/internal/config"
	"github.com/refuelhq/bridge-service/internal/domain"
	"github.com/refuelhq/bridge-service/internal/engine"
	"github.com/refuelhq/bridge-service/internal/orchestrator"
	"github.com/refuelhq/bridge-service/internal/session"
	"github.com/refuelhq/bridge-service/internal/store"
	"github.com/refuelhq/bridge-service/pkg/botclient"
	"github.com/refuelhq/bridge-service/pkg/chainrpc"
	"github.com/refuelhq/bridge-service/pkg/priceclient"
	rmrabbit "github.com/refuelhq/bridge-service/pkg/rabbitmq"
	"github.com/refuelhq/bridge-service/pkg/routerclient"
	"github.com/refuelhq/bridge-service/pkg/walletclient"
)

func main() {
	// Load an optional .env file before reading the environment.
	_ = godotenv.Load()

	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.InternalAPIKey) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"internal api key must be configured\" env=INTERNAL_API_KEY")
	}
	if strings.TrimSpace(cfg.OperatorJWTSecret) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"operator jwt secret must be configured\" env=OPERATOR_JWT_SECRET")
	}
	if strings.TrimSpace(cfg.WalletAPIBaseURL) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"wallet api base url must be configured\" env=WALLET_API_BASE_URL")
	}
	if strings.TrimSpace(cfg.RouterAPIBaseURL) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"router api base url must be configured\" env=ROUTER_API_BASE_URL")
	}
	if strings.TrimSpace(cfg.ChainGatewayBaseURL) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"chain gateway base url must be configured\" env=CHAIN_GATEWAY_BASE_URL")
	}

	log.Printf("level=info component=bootstrap msg=\"starting bridge-service\" port=%s", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database. A missing database
	// degrades the service to a ledger-less mode rather than preventing boot.
	var repository store.Repository
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"database url missing; transfer history disabled\" env=DATABASE_URL")
	} else {
		poolConfig, parseErr := pgxpool.ParseConfig(cfg.DatabaseURL)
		if parseErr != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", parseErr)
		}

		poolConfig.MaxConns = 50
		poolConfig.MinConns = 5
		poolConfig.MaxConnLifetime = 30 * time.Minute
		poolConfig.MaxConnIdleTime = 5 * time.Minute

		// Disable prepared statement caching to prevent conflicts
		poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

		dbpool, poolErr := pgxpool.NewWithConfig(context.Background(), poolConfig)
		if poolErr != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", poolErr)
		}
		defer dbpool.Close()
		log.Println("level=info component=bootstrap msg=\"database connected\"")

		repository = store.NewPostgresRepository(dbpool)
	}

	// Initialize the RabbitMQ producer to publish outcome events.
	// This service only needs to publish, so we use a producer.
	var producer rmrabbit.Publisher
	rabbitProducer, err := rmrabbit.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		producer = &rmrabbit.EventProducerFallback{}
	} else {
		defer rabbitProducer.Close()
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
		producer = rabbitProducer
	}

	// Initialize the clients for the external collaborators.
	walletClient := walletclient.NewClient(cfg.WalletAPIBaseURL, cfg.WalletAPIKey)
	priceClient := priceclient.NewClient(cfg.PriceAPIBaseURL)
	routerClient := routerclient.NewClient(cfg.RouterAPIBaseURL, cfg.RouterAPIKey)

	// One ledger gateway per supported network, all behind the same base URL.
	gateways := make(map[domain.Network]orchestrator.LedgerGateway, len(domain.SupportedNetworks))
	for _, network := range domain.SupportedNetworks {
		gateways[network] = chainrpc.NewClient(string(network), cfg.ChainGatewayBaseURL, cfg.ChainGatewayAPIKey)
	}

	var redisClient *redis.Client
	if cfg.EventRateLimitPerMinute > 0 {
		if strings.TrimSpace(cfg.RedisURL) == "" {
			log.Println("level=warn component=bootstrap msg=\"redis url missing; event rate limiting disabled\" env=REDIS_URL")
		} else {
			redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
			if parseErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; event rate limiting disabled\" err=%v", parseErr)
			} else {
				redisClient = redis.NewClient(redisOptions)
				pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancelPing()
				if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
					log.Printf("level=warn component=bootstrap msg=\"redis ping failed; event rate limiting disabled\" err=%v", pingErr)
					redisClient.Close()
					redisClient = nil
				} else {
					defer redisClient.Close()
					log.Println("level=info component=bootstrap msg=\"redis connected\"")
				}
			}
		}
	}
	var limiter *api.RedisRateLimiter
	if redisClient != nil {
		limiter = api.NewRedisRateLimiter(redisClient, cfg.RedisRateLimitPrefix)
	}

	// Initialize the transfer orchestrator with its dependencies.
	transferOrchestrator := orchestrator.New(
		walletClient,
		priceClient,
		gateways,
		routerClient,
		repository,
		producer,
		time.Duration(cfg.CompletionTimeoutMinutes)*time.Minute,
		time.Duration(cfg.SettlementPollSeconds)*time.Second,
	)

	// Outbound notifications go to the chat front-end when configured, otherwise
	// to the service log.
	var notifier engine.Notifier
	if cfg.BotCallbackURL == "" {
		log.Println("level=warn component=bootstrap msg=\"bot callback url missing; outcome notifications will only be logged\" env=BOT_CALLBACK_URL")
		notifier = engine.NotifierFunc(func(ctx context.Context, userID domain.UserID, reply domain.Reply) {
			log.Printf("level=info component=notifier msg=\"outbound message\" user_id=%s text=%q", userID, reply.Text)
		})
	} else {
		pushClient := botclient.NewClient(cfg.BotCallbackURL, cfg.BotCallbackAPIKey)
		notifier = engine.NotifierFunc(func(ctx context.Context, userID domain.UserID, reply domain.Reply) {
			if pushErr := pushClient.Push(ctx, string(userID), reply.Text, reply.ChainOptions); pushErr != nil {
				log.Printf("level=error component=notifier msg=\"push to front-end failed\" user_id=%s err=%v", userID, pushErr)
			}
		})
	}

	// Initialize the conversation engine.
	conversationEngine := engine.New(
		session.NewMemoryStore(),
		transferOrchestrator,
		notifier,
		decimal.NewFromFloat(cfg.MinTransferUSD),
		time.Duration(cfg.TransferRunTimeoutMinutes)*time.Minute,
	)

	// Initialize the API handlers and set up the HTTP router.
	handlers := api.NewHandlers(
		conversationEngine,
		transferOrchestrator,
		walletClient,
		repository,
		limiter,
		cfg.EventRateLimitPerMinute,
	)
	router := api.Routes(handlers, cfg.InternalAPIKey, cfg.OperatorJWTSecret)

	// Start the HTTP server, binding to all interfaces.
	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
