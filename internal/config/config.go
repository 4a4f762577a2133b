// README: Config loader with env defaults; optional backends stay empty.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTP struct {
		Addr string
	}
	DB struct {
		// DSN empty means the in-memory stores (local development).
		DSN string
	}
	Redis struct {
		Addr     string
		Password string
	}
	Kafka struct {
		Brokers []string
		Topic   string
	}
	MQTT struct {
		Broker string
		Topic  string
	}
	Maps struct {
		APIKey string
	}
	Firebase struct {
		ProjectID       string
		CredentialsFile string
	}
	Trip struct {
		SearchWindow  time.Duration
		SweepInterval time.Duration
	}
	Log struct {
		Level  string
		Format string
	}
}

func Load() (Config, error) {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	var cfg Config
	cfg.HTTP.Addr = envOrDefault("RUMBO_HTTP_ADDR", ":8080")
	cfg.DB.DSN = os.Getenv("RUMBO_DB_DSN")
	cfg.Redis.Addr = os.Getenv("RUMBO_REDIS_ADDR")
	cfg.Redis.Password = os.Getenv("RUMBO_REDIS_PASSWORD")
	if brokers := os.Getenv("RUMBO_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = splitAndTrim(brokers)
	}
	cfg.Kafka.Topic = envOrDefault("RUMBO_KAFKA_TOPIC", "trip-events")
	cfg.MQTT.Broker = os.Getenv("RUMBO_MQTT_BROKER")
	cfg.MQTT.Topic = envOrDefault("RUMBO_MQTT_TOPIC", "rumbo/drivers/+/location")
	cfg.Maps.APIKey = os.Getenv("RUMBO_MAPS_API_KEY")
	cfg.Firebase.ProjectID = os.Getenv("RUMBO_FIREBASE_PROJECT_ID")
	cfg.Firebase.CredentialsFile = os.Getenv("RUMBO_FIREBASE_CREDENTIALS")
	cfg.Trip.SearchWindow = envOrDefaultDuration("RUMBO_TRIP_SEARCH_WINDOW", 5*time.Minute)
	cfg.Trip.SweepInterval = envOrDefaultDuration("RUMBO_TRIP_SWEEP_INTERVAL", 30*time.Second)
	cfg.Log.Level = envOrDefault("RUMBO_LOG_LEVEL", "info")
	cfg.Log.Format = envOrDefault("RUMBO_LOG_FORMAT", "text")
	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
