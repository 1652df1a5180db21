// Package config provides configuration management for the application.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// ErrNoCredentials is returned when no YouTube API keys are configured.
var ErrNoCredentials = errors.New("no YouTube API keys configured")

// ErrNoOperatorSecret is returned when the trigger-endpoint secret is missing.
var ErrNoOperatorSecret = errors.New("operator secret is not configured")

// Config holds all configuration for the application.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RabbitMQ  RabbitMQConfig
	YouTube   YouTubeConfig
	Discovery DiscoveryConfig
	Shorts    ShortsConfig
	Windows   WindowsConfig
	Query     QueryConfig
	Operator  OperatorConfig
	Logging   LoggingConfig
	Metrics   MetricsConfig
	Worker    WorkerConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

// DatabaseConfig contains database connection configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type DatabaseConfig struct {
	Host           string
	Name           string
	User           string
	Password       string
	Port           int
	SSLMode        string
	MaxConnections int
	MinConnections int
	MaxIdleTime    time.Duration
	MaxLifetime    time.Duration
}

// URL builds a postgres connection URL from the individual fields.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// RedisConfig contains the task queue backend configuration.
type RedisConfig struct {
	URL string
}

// RabbitMQConfig contains RabbitMQ connection and queue configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RabbitMQConfig struct {
	Enabled    bool
	Host       string
	User       string
	Password   string
	Exchange   string
	Queue      string
	RoutingKey string
	Port       int
}

// YouTubeConfig contains YouTube Data API credentials and call behavior.
type YouTubeConfig struct {
	APIKeys     []string
	CallTimeout time.Duration
}

// DiscoveryConfig bounds the per-run API cost of both seeding strategies.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type DiscoveryConfig struct {
	Regions               []string
	MostPopularPerRegion  int
	MaxChannelsPerRun     int
	UploadsPerChannel     int
	SearchPerRegion       int
	SearchLookbackMinDays int
	SearchLookbackMaxDays int
	NoveltyWindow         time.Duration
	ChannelConcurrency    int
}

// ShortsConfig is the inclusive duration band that classifies a video as a short.
type ShortsConfig struct {
	MinSeconds int
	MaxSeconds int
}

// WindowsConfig holds the time windows for eligibility and metrics aggregation.
type WindowsConfig struct {
	ShortActivityDays int
	LongAbsenceDays   int
	RecentDays        int
}

// QueryConfig bounds the ranking query surface.
type QueryConfig struct {
	MaxResults int
}

// OperatorConfig protects the trigger endpoints.
type OperatorConfig struct {
	Secret string
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string
	File  string
}

// MetricsConfig toggles Prometheus instrumentation.
type MetricsConfig struct {
	Enabled bool
}

// WorkerConfig drives the scheduled-run worker. Schedules are cron expressions; an
// empty schedule disables that entry.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type WorkerConfig struct {
	Concurrency       int
	ChartSchedule     string
	SearchSchedule    string
	SearchNovelty     bool
	RecomputeSchedule string
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set defaults
	setDefaults()

	// Read environment variables
	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")

	// Try to read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the parts of the configuration that cannot fall back to a default.
func (c *Config) Validate() error {
	if len(c.YouTube.APIKeys) == 0 {
		return ErrNoCredentials
	}
	if c.Operator.Secret == "" {
		return ErrNoOperatorSecret
	}
	if c.Shorts.MinSeconds < 0 || c.Shorts.MaxSeconds < c.Shorts.MinSeconds {
		return fmt.Errorf("invalid shorts duration band [%d,%d]", c.Shorts.MinSeconds, c.Shorts.MaxSeconds)
	}
	if c.Discovery.SearchLookbackMaxDays < c.Discovery.SearchLookbackMinDays {
		return fmt.Errorf("invalid search lookback range [%d,%d]",
			c.Discovery.SearchLookbackMinDays, c.Discovery.SearchLookbackMaxDays)
	}
	return nil
}

func setDefaults() {
	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.shutdowntimeout", 30*time.Second)

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "shortsradar")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxconnections", 10)
	viper.SetDefault("database.minconnections", 5)
	viper.SetDefault("database.maxidletime", 10*time.Minute)
	viper.SetDefault("database.maxlifetime", 1*time.Hour)

	// Redis (asynq)
	viper.SetDefault("redis.url", "localhost:6379")

	// RabbitMQ
	viper.SetDefault("rabbitmq.enabled", false)
	viper.SetDefault("rabbitmq.host", "localhost")
	viper.SetDefault("rabbitmq.port", 5672)
	viper.SetDefault("rabbitmq.user", "guest")
	viper.SetDefault("rabbitmq.password", "guest")
	viper.SetDefault("rabbitmq.exchange", "shortsradar.runs")
	viper.SetDefault("rabbitmq.queue", "shortsradar.runs.completed")
	viper.SetDefault("rabbitmq.routingkey", "run.completed")

	// YouTube API
	viper.SetDefault("youtube.apikeys", []string{})
	viper.SetDefault("youtube.calltimeout", 15*time.Second)

	// Discovery
	viper.SetDefault("discovery.regions", []string{"US", "GB", "CA", "AU"})
	viper.SetDefault("discovery.mostpopularperregion", 25)
	viper.SetDefault("discovery.maxchannelsperrun", 80)
	viper.SetDefault("discovery.uploadsperchannel", 25)
	viper.SetDefault("discovery.searchperregion", 50)
	viper.SetDefault("discovery.searchlookbackmindays", 3)
	viper.SetDefault("discovery.searchlookbackmaxdays", 10)
	viper.SetDefault("discovery.noveltywindow", 14*24*time.Hour)
	viper.SetDefault("discovery.channelconcurrency", 4)

	// Shorts duration band (inclusive seconds)
	viper.SetDefault("shorts.minseconds", 10)
	viper.SetDefault("shorts.maxseconds", 40)

	// Time windows
	viper.SetDefault("windows.shortactivitydays", 14)
	viper.SetDefault("windows.longabsencedays", 150)
	viper.SetDefault("windows.recentdays", 14)

	// Query surface
	viper.SetDefault("query.maxresults", 200)

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")

	// Metrics
	viper.SetDefault("metrics.enabled", true)

	// Worker
	viper.SetDefault("worker.concurrency", 2)
	viper.SetDefault("worker.chartschedule", "0 */6 * * *")
	viper.SetDefault("worker.searchschedule", "30 */3 * * *")
	viper.SetDefault("worker.searchnovelty", false)
	viper.SetDefault("worker.recomputeschedule", "15 * * * *")
}
