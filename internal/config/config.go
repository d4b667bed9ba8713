/**
 * @description
 * This file handles the configuration management for the subscription-service.
 * It uses the 'viper' library to load configuration from environment variables,
 * providing a centralized and consistent way to manage application settings.
 *
 * The webhook secret and JWT secret are injected here rather than read from
 * ambient state by the handlers, and their absence fails startup.
 */
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	ServerPort          string `mapstructure:"SERVER_PORT"`
	DatabaseURL         string `mapstructure:"DATABASE_URL"`
	WebhookSecret       string `mapstructure:"REVENUECAT_WEBHOOK_SECRET"`
	JWTSecret           string `mapstructure:"JWT_SECRET"`
	RabbitMQURL         string `mapstructure:"RABBITMQ_URL"`
	SnapshotJobSchedule string `mapstructure:"SNAPSHOT_JOB_SCHEDULE"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (Config, error) {
	viper.SetDefault("SERVER_PORT", "8086")
	viper.SetDefault("SNAPSHOT_JOB_SCHEDULE", "0 3 * * *") // At 03:00 every day.
	viper.AutomaticEnv()

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REVENUECAT_WEBHOOK_SECRET")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("SNAPSHOT_JOB_SCHEDULE")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return Config{}, err
	}

	if config.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if config.WebhookSecret == "" {
		return Config{}, fmt.Errorf("REVENUECAT_WEBHOOK_SECRET is required")
	}
	if config.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}

	return config, nil
}
