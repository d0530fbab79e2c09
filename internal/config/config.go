package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// Sensor API polling.
	SensorAPIURL string
	// SensorName selects one entry of the API response; "*" selects the first.
	SensorName   string
	PollInterval time.Duration
	FetchTimeout time.Duration

	ThresholdLow      float64
	ThresholdHigh     float64
	ReferencePressure float64
	Location          *time.Location

	SQLiteDriver          string
	SQLiteDSN             string
	SQLitePath            string
	SQLiteMaxOpenConns    int
	SQLiteMaxIdleConns    int
	SQLiteConnMaxLifetime time.Duration
	SQLiteLogQueries      bool

	// MQTT publishing is disabled when MQTTBroker is empty.
	MQTTBroker      string
	MQTTPort        int
	MQTTClientID    string
	MQTTTopicPrefix string
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(envOr("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	httpAddr := envOr("HTTP_ADDR", ":8080")

	sensorAPIURL := envOr("SENSOR_API_URL", "http://localhost:3000/api/sensor")
	u, err := url.Parse(sensorAPIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Config{}, fmt.Errorf("invalid SENSOR_API_URL %q (expected http or https URL)", sensorAPIURL)
	}

	sensorName := envOr("SENSOR_NAME", "FSR1")

	pollInterval, err := parseDuration("POLL_INTERVAL", "0s")
	if err != nil {
		return Config{}, err
	}
	if pollInterval < 0 {
		return Config{}, fmt.Errorf("POLL_INTERVAL must not be negative, got %v", pollInterval)
	}

	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "10s")
	if err != nil {
		return Config{}, err
	}
	if fetchTimeout <= 0 {
		return Config{}, fmt.Errorf("FETCH_TIMEOUT must be positive, got %v", fetchTimeout)
	}

	thresholdLow, err := parseFloat("THRESHOLD_LOW", "96")
	if err != nil {
		return Config{}, err
	}
	thresholdHigh, err := parseFloat("THRESHOLD_HIGH", "192")
	if err != nil {
		return Config{}, err
	}
	if thresholdLow > thresholdHigh {
		return Config{}, fmt.Errorf("THRESHOLD_LOW (%v) must be <= THRESHOLD_HIGH (%v)", thresholdLow, thresholdHigh)
	}

	referencePressure, err := parseFloat("REFERENCE_PRESSURE", "500")
	if err != nil {
		return Config{}, err
	}

	tz := envOr("TIMEZONE", "Local")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Config{}, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}

	driver := envOr("DB_DRIVER", "sqlite3")
	dsn := strings.TrimSpace(os.Getenv("SQLITE_DSN"))
	path := envOr("SQLITE_PATH", "data/pressuredash.db")

	maxOpenConns, err := parseInt("DB_MAX_OPEN_CONNS", "1")
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := parseInt("DB_MAX_IDLE_CONNS", "1")
	if err != nil {
		return Config{}, err
	}
	connMaxLifetime, err := parseDuration("DB_CONN_MAX_LIFETIME", "0s")
	if err != nil {
		return Config{}, err
	}

	logSQLStr := envOr("DB_LOG_SQL", "false")
	logSQL, err := strconv.ParseBool(logSQLStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_LOG_SQL %q: %w", logSQLStr, err)
	}

	mqttBroker := strings.TrimSpace(os.Getenv("MQTT_BROKER"))
	mqttPort, err := parseInt("MQTT_PORT", "1883")
	if err != nil {
		return Config{}, err
	}
	if mqttPort <= 0 || mqttPort > 65535 {
		return Config{}, fmt.Errorf("MQTT_PORT out of range: %d", mqttPort)
	}
	mqttClientID := envOr("MQTT_CLIENT_ID", "pressuredash")
	mqttTopicPrefix := strings.Trim(envOr("MQTT_TOPIC_PREFIX", "sensors"), "/")

	return Config{
		AppEnv:                appEnv,
		LogLevel:              level,
		HTTPAddr:              httpAddr,
		SensorAPIURL:          sensorAPIURL,
		SensorName:            sensorName,
		PollInterval:          pollInterval,
		FetchTimeout:          fetchTimeout,
		ThresholdLow:          thresholdLow,
		ThresholdHigh:         thresholdHigh,
		ReferencePressure:     referencePressure,
		Location:              loc,
		SQLiteDriver:          driver,
		SQLiteDSN:             dsn,
		SQLitePath:            path,
		SQLiteMaxOpenConns:    maxOpenConns,
		SQLiteMaxIdleConns:    maxIdleConns,
		SQLiteConnMaxLifetime: connMaxLifetime,
		SQLiteLogQueries:      logSQL,
		MQTTBroker:            mqttBroker,
		MQTTPort:              mqttPort,
		MQTTClientID:          mqttClientID,
		MQTTTopicPrefix:       mqttTopicPrefix,
	}, nil
}

// MQTTEnabled reports whether stats should be published over MQTT.
func (c Config) MQTTEnabled() bool {
	return c.MQTTBroker != ""
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func parseDuration(key, def string) (time.Duration, error) {
	s := envOr(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func parseInt(key, def string) (int, error) {
	s := envOr(key, def)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func parseFloat(key, def string) (float64, error) {
	s := envOr(key, def)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return f, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
