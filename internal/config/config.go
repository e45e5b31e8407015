package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix = "RHYMIST"

	defaultHTTPAddress     = "0.0.0.0:8080"
	defaultDatabasePath    = "rhymist.db"
	defaultLogLevel        = "info"
	defaultImagesDir       = "storage/images"
	defaultOpenAIBaseURL   = "https://api.openai.com"
	defaultChatModel       = "gpt-4"
	defaultImageModel      = "dall-e-3"
	defaultImageSize       = "1024x1024"
	defaultImageLimit      = 35
	defaultAdminImageLimit = 150
	defaultPaymentAmount   = 200
	defaultPaymentCurrency = "usd"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress     string
	DatabasePath    string
	LogLevel        string
	ImagesDir       string
	AdminPassphrase string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	ChatModel       string
	ImageModel      string
	ImageSize       string
	StripeSecretKey string
	ImageLimit      int
	AdminImageLimit int
	PaymentAmount   int64
	PaymentCurrency string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("images.dir", defaultImagesDir)
	configViper.SetDefault("openai.base_url", defaultOpenAIBaseURL)
	configViper.SetDefault("openai.chat_model", defaultChatModel)
	configViper.SetDefault("openai.image_model", defaultImageModel)
	configViper.SetDefault("openai.image_size", defaultImageSize)
	configViper.SetDefault("quota.image_limit", defaultImageLimit)
	configViper.SetDefault("quota.admin_image_limit", defaultAdminImageLimit)
	configViper.SetDefault("payment.amount_cents", defaultPaymentAmount)
	configViper.SetDefault("payment.currency", defaultPaymentCurrency)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:     configViper.GetString("http.address"),
		DatabasePath:    configViper.GetString("database.path"),
		LogLevel:        configViper.GetString("log.level"),
		ImagesDir:       configViper.GetString("images.dir"),
		AdminPassphrase: configViper.GetString("admin.passphrase"),
		OpenAIAPIKey:    configViper.GetString("openai.api_key"),
		OpenAIBaseURL:   configViper.GetString("openai.base_url"),
		ChatModel:       configViper.GetString("openai.chat_model"),
		ImageModel:      configViper.GetString("openai.image_model"),
		ImageSize:       configViper.GetString("openai.image_size"),
		StripeSecretKey: configViper.GetString("stripe.secret_key"),
		ImageLimit:      configViper.GetInt("quota.image_limit"),
		AdminImageLimit: configViper.GetInt("quota.admin_image_limit"),
		PaymentAmount:   configViper.GetInt64("payment.amount_cents"),
		PaymentCurrency: configViper.GetString("payment.currency"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.ImagesDir) == "" {
		return fmt.Errorf("images.dir is required")
	}
	if strings.TrimSpace(c.AdminPassphrase) == "" {
		return fmt.Errorf("admin.passphrase is required")
	}
	if c.ImageLimit <= 0 {
		return fmt.Errorf("quota.image_limit must be positive")
	}
	if c.AdminImageLimit < c.ImageLimit {
		return fmt.Errorf("quota.admin_image_limit must not be below quota.image_limit")
	}
	if c.PaymentAmount <= 0 {
		return fmt.Errorf("payment.amount_cents must be positive")
	}
	return nil
}
