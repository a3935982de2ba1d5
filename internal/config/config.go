package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Drivers de almacenamiento soportados.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongoDB  = "mongodb"
	DriverFile     = "file"
	DriverMemory   = "memory"
)

const defaultConfigPath = "neuroassist.toml"

type Config struct {
	StoreDriver  string
	SQLitePath   string
	PostgresURL  string
	MongoURI     string
	MongoDB      string
	JSONPath     string
	StoreTimeout time.Duration

	RedisAddr string
	CacheTTL  time.Duration

	UseKafka     bool
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	ClickHouseAddr string
	ClickHouseDB   string

	OutboxPeriod time.Duration
	OutboxLimit  int

	HTTPPort    string
	RefreshCron string
	LogLevel    string
}

// fileConfig es el formato del fichero TOML. Las duraciones van como texto ("5s").
type fileConfig struct {
	Store struct {
		Driver      string `toml:"driver"`
		SQLitePath  string `toml:"sqlite_path"`
		PostgresURL string `toml:"postgres_url"`
		MongoURI    string `toml:"mongo_uri"`
		MongoDB     string `toml:"mongo_db"`
		JSONPath    string `toml:"json_path"`
		Timeout     string `toml:"timeout"`
	} `toml:"store"`
	Cache struct {
		RedisAddr string `toml:"redis_addr"`
		TTL       string `toml:"ttl"`
	} `toml:"cache"`
	Kafka struct {
		Enabled *bool    `toml:"enabled"`
		Brokers []string `toml:"brokers"`
		Topic   string   `toml:"topic"`
		GroupID string   `toml:"group_id"`
	} `toml:"kafka"`
	ClickHouse struct {
		Addr     string `toml:"addr"`
		Database string `toml:"database"`
	} `toml:"clickhouse"`
	Outbox struct {
		Period string `toml:"period"`
		Limit  int    `toml:"limit"`
	} `toml:"outbox"`
	HTTP struct {
		Port string `toml:"port"`
	} `toml:"http"`
	Scheduler struct {
		RefreshCron string `toml:"refresh_cron"`
	} `toml:"scheduler"`
	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`
}

func defaults() *Config {
	return &Config{
		StoreDriver:  DriverSQLite,
		SQLitePath:   "./neuroassist.db",
		MongoDB:      "neuroassist",
		JSONPath:     "./tasks.json",
		StoreTimeout: 5 * time.Second,
		RedisAddr:    "localhost:6379",
		CacheTTL:     5 * time.Minute,
		KafkaBrokers: []string{"localhost:9092"},
		KafkaTopic:   "task-events",
		KafkaGroupID: "neuroassist-sync",
		ClickHouseDB: "default",
		OutboxPeriod: 1 * time.Second,
		OutboxLimit:  10,
		HTTPPort:     "8080",
		RefreshCron:  "0 0 * * *",
		LogLevel:     "info",
	}
}

// LoadConfig aplica, en este orden: valores por defecto, fichero TOML y variables de entorno.
// El fichero es opcional salvo que se indique explícitamente con NEUROASSIST_CONFIG.
func LoadConfig() (*Config, error) {
	cfg := defaults()

	path := os.Getenv("NEUROASSIST_CONFIG")
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}
	if err := cfg.applyFile(path); err != nil {
		if !(errors.Is(err, os.ErrNotExist) && !explicit) {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var f fileConfig
	if err := toml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	setString(&c.StoreDriver, f.Store.Driver)
	setString(&c.SQLitePath, f.Store.SQLitePath)
	setString(&c.PostgresURL, f.Store.PostgresURL)
	setString(&c.MongoURI, f.Store.MongoURI)
	setString(&c.MongoDB, f.Store.MongoDB)
	setString(&c.JSONPath, f.Store.JSONPath)
	setString(&c.RedisAddr, f.Cache.RedisAddr)
	setString(&c.KafkaTopic, f.Kafka.Topic)
	setString(&c.KafkaGroupID, f.Kafka.GroupID)
	setString(&c.ClickHouseAddr, f.ClickHouse.Addr)
	setString(&c.ClickHouseDB, f.ClickHouse.Database)
	setString(&c.HTTPPort, f.HTTP.Port)
	setString(&c.RefreshCron, f.Scheduler.RefreshCron)
	setString(&c.LogLevel, f.Log.Level)

	if f.Kafka.Enabled != nil {
		c.UseKafka = *f.Kafka.Enabled
	}
	if len(f.Kafka.Brokers) > 0 {
		c.KafkaBrokers = f.Kafka.Brokers
	}
	if f.Outbox.Limit > 0 {
		c.OutboxLimit = f.Outbox.Limit
	}

	for _, d := range []struct {
		dst *time.Duration
		raw string
		key string
	}{
		{&c.StoreTimeout, f.Store.Timeout, "store.timeout"},
		{&c.CacheTTL, f.Cache.TTL, "cache.ttl"},
		{&c.OutboxPeriod, f.Outbox.Period, "outbox.period"},
	} {
		if err := setDuration(d.dst, d.raw, d.key); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) applyEnv() error {
	getEnv := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}

	c.StoreDriver = getEnv("STORE_DRIVER", c.StoreDriver)
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)
	c.PostgresURL = getEnv("POSTGRES_URL", c.PostgresURL)
	c.MongoURI = getEnv("MONGO_URI", c.MongoURI)
	c.MongoDB = getEnv("MONGO_DB", c.MongoDB)
	c.JSONPath = getEnv("JSON_PATH", c.JSONPath)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.KafkaTopic = getEnv("KAFKA_TOPIC", c.KafkaTopic)
	c.KafkaGroupID = getEnv("KAFKA_GROUP_ID", c.KafkaGroupID)
	c.ClickHouseAddr = getEnv("CLICKHOUSE_ADDR", c.ClickHouseAddr)
	c.ClickHouseDB = getEnv("CLICKHOUSE_DB", c.ClickHouseDB)
	c.HTTPPort = getEnv("HTTP_PORT", c.HTTPPort)
	c.RefreshCron = getEnv("REFRESH_CRON", c.RefreshCron)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.KafkaBrokers = strings.Split(v, ",")
	}
	if v := os.Getenv("USE_KAFKA"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid USE_KAFKA %q: %w", v, err)
		}
		c.UseKafka = b
	}
	if v := os.Getenv("OUTBOX_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid OUTBOX_LIMIT %q: %w", v, err)
		}
		c.OutboxLimit = n
	}

	for _, d := range []struct {
		dst *time.Duration
		key string
	}{
		{&c.StoreTimeout, "STORE_TIMEOUT"},
		{&c.CacheTTL, "CACHE_TTL"},
		{&c.OutboxPeriod, "OUTBOX_PERIOD"},
	} {
		if err := setDuration(d.dst, os.Getenv(d.key), d.key); err != nil {
			return err
		}
	}
	return nil
}

// Validate comprueba las combinaciones que harían fallar el arranque más tarde.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverSQLite, DriverFile, DriverMemory:
	case DriverPostgres:
		if c.PostgresURL == "" {
			return errors.New("postgres driver requires POSTGRES_URL")
		}
	case DriverMongoDB:
		if c.MongoURI == "" {
			return errors.New("mongodb driver requires MONGO_URI")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if c.OutboxLimit <= 0 {
		return fmt.Errorf("outbox limit must be positive, got %d", c.OutboxLimit)
	}
	if c.StoreTimeout <= 0 || c.OutboxPeriod <= 0 {
		return errors.New("store timeout and outbox period must be positive")
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, raw, key string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration for %s %q: %w", key, raw, err)
	}
	*dst = d
	return nil
}
