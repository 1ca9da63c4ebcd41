package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	NodeID                 string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	JWTSecret              string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	UploadMaxMB            int
	PresenceHeartbeat      time.Duration
	TypingTTL              time.Duration
	SSEKeepAlive           time.Duration
	ChannelBase            string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CAMPUS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "CampusConnect API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cloudinary.folder", "campus/uploads")
	v.SetDefault("upload.max_mb", 5)
	v.SetDefault("presence.heartbeat", "25s")
	v.SetDefault("typing.ttl", "3s")
	v.SetDefault("sse.keepalive", "30s")
	v.SetDefault("channel.base", "campus")

	heartbeat, err := parseDurationSetting(v, "presence.heartbeat", 25*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid presence heartbeat: %w", err)
	}
	typingTTL, err := parseDurationSetting(v, "typing.ttl", 3*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid typing ttl: %w", err)
	}
	keepAlive, err := parseDurationSetting(v, "sse.keepalive", 30*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid sse keepalive: %w", err)
	}

	nodeID := strings.TrimSpace(v.GetString("node.id"))
	if nodeID == "" {
		nodeID = uuid.NewString()
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		NodeID:                 nodeID,
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		UploadMaxMB:            v.GetInt("upload.max_mb"),
		PresenceHeartbeat:      heartbeat,
		TypingTTL:              typingTTL,
		SSEKeepAlive:           keepAlive,
		ChannelBase:            v.GetString("channel.base"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.UploadMaxMB <= 0 {
		cfg.UploadMaxMB = 5
	}

	return cfg, nil
}

func parseDurationSetting(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if parsed <= 0 {
		return fallback, nil
	}
	return parsed, nil
}
