/**
 * @description
 * This file handles the configuration management for the membership service.
 * It uses the 'viper' library to load configuration from environment
 * variables, providing a centralized and consistent way to manage
 * application settings.
 */

package config

import (
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	ServerPort  string `mapstructure:"SERVER_PORT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// Supabase-style HS256 signing secret for access tokens.
	JWTSecret string `mapstructure:"JWT_SECRET"`

	// RabbitMQ broker for outbound notification events. Optional; the
	// service runs with a no-op producer when unset or unreachable.
	RabbitMQURL string `mapstructure:"RABBITMQ_URL"`

	// Redis for the registration rate limiter. Optional.
	RedisURL string `mapstructure:"REDIS_URL"`

	// Object storage for member photos.
	OSSEndpoint        string `mapstructure:"OSS_ENDPOINT"`
	OSSAccessKeyID     string `mapstructure:"OSS_ACCESS_KEY_ID"`
	OSSAccessKeySecret string `mapstructure:"OSS_ACCESS_KEY_SECRET"`
	OSSBucket          string `mapstructure:"OSS_BUCKET"`

	// Listing page size. One documented default instead of a hidden literal.
	MemberPageSize int `mapstructure:"MEMBER_PAGE_SIZE"`

	// Renewal reminder job.
	ReminderSchedule string `mapstructure:"REMINDER_SCHEDULE"`
	ReminderDays     int    `mapstructure:"REMINDER_DAYS"`

	// Per-caller registration rate limit (requests per minute).
	RegisterRateLimit int `mapstructure:"REGISTER_RATE_LIMIT"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (config Config, err error) {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("MEMBER_PAGE_SIZE", 20)
	viper.SetDefault("REMINDER_SCHEDULE", "0 9 * * *")
	viper.SetDefault("REMINDER_DAYS", 7)
	viper.SetDefault("REGISTER_RATE_LIMIT", 30)
	viper.SetDefault("OSS_BUCKET", "member-photos")
	viper.AutomaticEnv()

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("OSS_ENDPOINT")
	_ = viper.BindEnv("OSS_ACCESS_KEY_ID")
	_ = viper.BindEnv("OSS_ACCESS_KEY_SECRET")
	_ = viper.BindEnv("OSS_BUCKET")
	_ = viper.BindEnv("MEMBER_PAGE_SIZE")
	_ = viper.BindEnv("REMINDER_SCHEDULE")
	_ = viper.BindEnv("REMINDER_DAYS")
	_ = viper.BindEnv("REGISTER_RATE_LIMIT")

	err = viper.Unmarshal(&config)
	return
}
