package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	StationID string
	LogLevel  string
	HTTP      HTTPConfig
	Insight   InsightConfig
	Kafka     KafkaConfig
	Redis     RedisConfig
	MQTT      MQTTConfig
	Database  DatabaseConfig
	Influx    InfluxConfig
	SMTP      SMTPConfig
	Notify    NotifyConfig
	Archiver  ArchiverConfig
}

type HTTPConfig struct {
	Port            int
	ShutdownTimeout time.Duration
	MaxWSClients    int
	WSInactivity    time.Duration
}

// InsightConfig configures the chat-completion endpoint. APIKey is only ever
// read on the server; it is never sent to dashboard clients.
type InsightConfig struct {
	URL             string
	APIKey          string
	Model           string
	Timeout         time.Duration // zero means no client-side timeout
	BreakerFailures int
	BreakerOpenFor  time.Duration
}

type KafkaConfig struct {
	Enabled       bool
	Brokers       []string
	TopicReadings string
	TopicAlerts   string
}

type RedisConfig struct {
	Enabled     bool
	Addr        string
	Password    string
	DB          int
	SnapshotTTL time.Duration
}

type MQTTConfig struct {
	Enabled  bool
	Broker   string
	ClientID string
	Topic    string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

type NotifyConfig struct {
	MinSeverity string
}

type ArchiverConfig struct {
	BatchSize     int
	FlushInterval time.Duration
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	stationID := getEnv("STATION_ID", "station-1")

	config := &Config{
		StationID: stationID,
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		HTTP: HTTPConfig{
			Port:            getEnvAsInt("HTTP_PORT", 8080),
			ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 15*time.Second),
			MaxWSClients:    getEnvAsInt("WS_MAX_CLIENTS", 500),
			WSInactivity:    getEnvAsDuration("WS_INACTIVITY_TIMEOUT", 2*time.Minute),
		},
		Insight: InsightConfig{
			URL:             getEnv("INSIGHT_API_URL", "https://api.perplexity.ai/chat/completions"),
			APIKey:          getEnv("INSIGHT_API_KEY", ""),
			Model:           getEnv("INSIGHT_MODEL", "llama-3.1-sonar-small-128k-online"),
			Timeout:         getEnvAsDuration("INSIGHT_HTTP_TIMEOUT", 0),
			BreakerFailures: getEnvAsInt("INSIGHT_BREAKER_FAILURES", 5),
			BreakerOpenFor:  getEnvAsDuration("INSIGHT_BREAKER_OPEN_FOR", 30*time.Second),
		},
		Kafka: KafkaConfig{
			Enabled:       getEnvAsBool("KAFKA_ENABLED", false),
			Brokers:       strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TopicReadings: getEnv("KAFKA_TOPIC_READINGS", "water.readings"),
			TopicAlerts:   getEnv("KAFKA_TOPIC_ALERTS", "water.alerts"),
		},
		Redis: RedisConfig{
			Enabled:     getEnvAsBool("REDIS_ENABLED", false),
			Addr:        getEnv("REDIS_ADDR", "localhost:6379"),
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          getEnvAsInt("REDIS_DB", 0),
			SnapshotTTL: getEnvAsDuration("REDIS_SNAPSHOT_TTL", 10*time.Minute),
		},
		MQTT: MQTTConfig{
			Enabled:  getEnvAsBool("MQTT_ENABLED", false),
			Broker:   getEnv("MQTT_BROKER", "tcp://localhost:1883"),
			ClientID: getEnv("MQTT_CLIENT_ID", "water-monitor-"+stationID),
			Topic:    getEnv("MQTT_TOPIC", "water/"+stationID+"/reading"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "water_user"),
			Password: getEnv("DB_PASSWORD", "water_pass"),
			DBName:   getEnv("DB_NAME", "water_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Influx: InfluxConfig{
			URL:    getEnv("INFLUX_URL", "http://localhost:8086"),
			Token:  getEnv("INFLUX_TOKEN", ""),
			Org:    getEnv("INFLUX_ORG", "water"),
			Bucket: getEnv("INFLUX_BUCKET", "readings"),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "water-monitor@example.com"),
			To:       getEnv("SMTP_TO", "admin@example.com"),
		},
		Notify: NotifyConfig{
			MinSeverity: strings.ToLower(getEnv("NOTIFY_MIN_SEVERITY", "high")),
		},
		Archiver: ArchiverConfig{
			BatchSize:     getEnvAsInt("ARCHIVER_BATCH_SIZE", 100),
			FlushInterval: getEnvAsDuration("ARCHIVER_FLUSH_INTERVAL", 5*time.Second),
		},
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.StationID == "" {
		return fmt.Errorf("STATION_ID must not be empty")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP_PORT: %d", c.HTTP.Port)
	}
	switch c.Notify.MinSeverity {
	case "low", "medium", "high":
	default:
		return fmt.Errorf("invalid NOTIFY_MIN_SEVERITY: %q", c.Notify.MinSeverity)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
