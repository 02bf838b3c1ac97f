package config

import (
	"errors"

	"github.com/spf13/viper"
)

// Config holds everything the API needs at startup, loaded from a .env file
// or plain environment variables.
type Config struct {
	ServerPort   string `mapstructure:"SERVER_PORT"`
	ClientOrigin string `mapstructure:"CLIENT_ORIGIN"`
	JWTSecret    string `mapstructure:"JWT_SECRET"`

	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`
	AMQPURL       string `mapstructure:"AMQP_URL"`

	GeocodeAPIKey string `mapstructure:"GEOCODE_API_KEY"`

	AWSRegion         string `mapstructure:"AWS_REGION"`
	EmailFrom         string `mapstructure:"EMAIL_FROM"`
	DispatchDeskEmail string `mapstructure:"DISPATCH_DESK_EMAIL"`
}

// LoadConfig reads configuration from <path>/.env if present, falling back
// to the process environment.
func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("MONGO_DATABASE", "carcare")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	return cfg, nil
}
