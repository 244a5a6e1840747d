/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the bridge-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort                string  `mapstructure:"SERVER_PORT"`
	DatabaseURL               string  `mapstructure:"DATABASE_URL"`
	RedisURL                  string  `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix      string  `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL               string  `mapstructure:"RABBITMQ_URL"`
	WalletAPIBaseURL          string  `mapstructure:"WALLET_API_BASE_URL"`
	WalletAPIKey              string  `mapstructure:"WALLET_API_KEY"`
	PriceAPIBaseURL           string  `mapstructure:"PRICE_API_BASE_URL"`
	RouterAPIBaseURL          string  `mapstructure:"ROUTER_API_BASE_URL"`
	RouterAPIKey              string  `mapstructure:"ROUTER_API_KEY"`
	ChainGatewayBaseURL       string  `mapstructure:"CHAIN_GATEWAY_BASE_URL"`
	ChainGatewayAPIKey        string  `mapstructure:"CHAIN_GATEWAY_API_KEY"`
	BotCallbackURL            string  `mapstructure:"BOT_CALLBACK_URL"`
	BotCallbackAPIKey         string  `mapstructure:"BOT_CALLBACK_API_KEY"`
	InternalAPIKey            string  `mapstructure:"INTERNAL_API_KEY"`
	OperatorJWTSecret         string  `mapstructure:"OPERATOR_JWT_SECRET"`
	MinTransferUSD            float64 `mapstructure:"MIN_TRANSFER_USD"`
	CompletionTimeoutMinutes  int     `mapstructure:"BRIDGE_COMPLETION_TIMEOUT_MINUTES"`
	SettlementPollSeconds     int     `mapstructure:"SETTLEMENT_POLL_SECONDS"`
	EventRateLimitPerMinute   int     `mapstructure:"EVENT_RATE_LIMIT_PER_MINUTE"`
	TransferRunTimeoutMinutes int     `mapstructure:"TRANSFER_RUN_TIMEOUT_MINUTES"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "refuel:rate_limit")
	viper.SetDefault("PRICE_API_BASE_URL", "https://api.coingecko.com")
	viper.SetDefault("MIN_TRANSFER_USD", 2.0)
	viper.SetDefault("BRIDGE_COMPLETION_TIMEOUT_MINUTES", 15)
	viper.SetDefault("SETTLEMENT_POLL_SECONDS", 10)
	viper.SetDefault("EVENT_RATE_LIMIT_PER_MINUTE", 60)
	viper.SetDefault("TRANSFER_RUN_TIMEOUT_MINUTES", 20)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "BRIDGE_REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("WALLET_API_BASE_URL")
	_ = viper.BindEnv("WALLET_API_KEY")
	_ = viper.BindEnv("PRICE_API_BASE_URL")
	_ = viper.BindEnv("ROUTER_API_BASE_URL")
	_ = viper.BindEnv("ROUTER_API_KEY")
	_ = viper.BindEnv("CHAIN_GATEWAY_BASE_URL")
	_ = viper.BindEnv("CHAIN_GATEWAY_API_KEY")
	_ = viper.BindEnv("BOT_CALLBACK_URL")
	_ = viper.BindEnv("BOT_CALLBACK_API_KEY")
	_ = viper.BindEnv("INTERNAL_API_KEY", "INTERNAL_API_KEY", "BRIDGE_SERVICE_INTERNAL_API_KEY")
	_ = viper.BindEnv("OPERATOR_JWT_SECRET")
	_ = viper.BindEnv("MIN_TRANSFER_USD")
	_ = viper.BindEnv("BRIDGE_COMPLETION_TIMEOUT_MINUTES")
	_ = viper.BindEnv("SETTLEMENT_POLL_SECONDS")
	_ = viper.BindEnv("EVENT_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("TRANSFER_RUN_TIMEOUT_MINUTES")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	if strings.TrimSpace(config.InternalAPIKey) == "" {
		config.InternalAPIKey = strings.TrimSpace(os.Getenv("BRIDGE_SERVICE_INTERNAL_API_KEY"))
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "refuel:rate_limit"
	}
	config.WalletAPIBaseURL = strings.TrimSpace(config.WalletAPIBaseURL)
	config.RouterAPIBaseURL = strings.TrimSpace(config.RouterAPIBaseURL)
	config.ChainGatewayBaseURL = strings.TrimSpace(config.ChainGatewayBaseURL)
	config.BotCallbackURL = strings.TrimSpace(config.BotCallbackURL)

	if config.MinTransferUSD < 0 {
		log.Printf("level=warn component=config msg=\"negative minimum transfer configured; coercing to zero\" min_usd=%f", config.MinTransferUSD)
		config.MinTransferUSD = 0
	}
	if config.CompletionTimeoutMinutes <= 0 {
		config.CompletionTimeoutMinutes = 15
	}
	if config.SettlementPollSeconds <= 0 {
		config.SettlementPollSeconds = 10
	}
	if config.EventRateLimitPerMinute <= 0 {
		config.EventRateLimitPerMinute = 60
	}
	if config.TransferRunTimeoutMinutes <= 0 {
		config.TransferRunTimeoutMinutes = 20
	}

	return
}
