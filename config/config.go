package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/bellodavid/external-payment/account"
	"github.com/bellodavid/external-payment/metrics"
	"github.com/bellodavid/external-payment/quote"
	"github.com/bellodavid/external-payment/store"
	"github.com/bellodavid/external-payment/verification"
)

const ServerStartPort = ":8080"

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Quote        QuoteConfig        `mapstructure:"quote"`
	Account      AccountConfig      `mapstructure:"account"`
	Verification VerificationConfig `mapstructure:"verification"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Checkout     CheckoutConfig     `mapstructure:"checkout"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type QuoteConfig struct {
	BaseURL string `mapstructure:"base_url"`
	AssetID string `mapstructure:"asset_id"`
}

type AccountConfig struct {
	SignUpURL string `mapstructure:"sign_up_url"`
}

type VerificationConfig struct {
	URL             string  `mapstructure:"url"`
	Mock            bool    `mapstructure:"mock"`
	MockSuccessRate float64 `mapstructure:"mock_success_rate"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
}

type CheckoutConfig struct {
	SessionTTLSeconds  int `mapstructure:"session_ttl_seconds"`
	RedirectDelayMS    int `mapstructure:"redirect_delay_ms"`
	ProvisionWorkers   int `mapstructure:"provision_workers"`
	ProvisionQueueSize int `mapstructure:"provision_queue_size"`
	ReceiptTTLHours    int `mapstructure:"receipt_ttl_hours"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func setDefaults() {
	viper.SetDefault("server.addr", ServerStartPort)
	viper.SetDefault("quote.base_url", "https://api.coingecko.com/api/v3")
	viper.SetDefault("quote.asset_id", "tether")
	viper.SetDefault("account.sign_up_url", "https://app.bananacrystal.com/api/users/sign_up")
	viper.SetDefault("verification.mock", true)
	viper.SetDefault("verification.mock_success_rate", 0.8)
	viper.SetDefault("checkout.session_ttl_seconds", 1800)
	viper.SetDefault("checkout.redirect_delay_ms", 3000)
	viper.SetDefault("checkout.provision_workers", 2)
	viper.SetDefault("checkout.provision_queue_size", 64)
	viper.SetDefault("checkout.receipt_ttl_hours", 0)
	viper.SetDefault("metrics.enabled", false)
}

func ProvideApplicationConfig() (*Config, error) {

	viper.SetConfigFile("./config.yaml")
	viper.SetConfigType("yaml")
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// the defaults cover a full mock setup, so a missing file is fine
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func NewLogger() *zap.Logger {

	logger, _ := zap.NewProduction()
	return logger
}

func ProvideQuoteService(config *Config, logger *zap.Logger) quote.Service {
	return quote.NewService(config.Quote.BaseURL, config.Quote.AssetID, logger)
}

func ProvideAccountClient(config *Config, logger *zap.Logger) *account.Client {
	return account.NewClient(config.Account.SignUpURL, logger)
}

func ProvideVerifier(config *Config, logger *zap.Logger) verification.Verifier {
	if config.Verification.Mock {
		return verification.NewMock(config.Verification.MockSuccessRate)
	}
	return verification.NewHTTPVerifier(config.Verification.URL, logger)
}

func ProvideReceiptStore(config *Config) store.ReceiptStore {
	if config.Redis.Addr == "" {
		return store.NewMemoryStore()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
	})
	return store.NewRedisStore(client, time.Duration(config.Checkout.ReceiptTTLHours)*time.Hour)
}

func ProvideMetricsRecorder(config *Config) metrics.Recorder {
	if config.Metrics.Enabled {
		return metrics.NewPrometheusRecorder()
	}
	return metrics.NoopRecorder{}
}
