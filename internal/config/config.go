package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type AppConfig struct {
	API       *APIConfig       `mapstructure:"api"`
	Gin       *GinConfig       `mapstructure:"gin"`
	Postgres  *PostgresConfig  `mapstructure:"postgres"`
	Redis     *RedisConfig     `mapstructure:"redis"`
	Kafka     *KafkaConfig     `mapstructure:"kafka"`
	Ticket    *TicketConfig    `mapstructure:"ticket"`
	Scheduler *SchedulerConfig `mapstructure:"scheduler"`
}

type APIConfig struct {
	Environment        string   `mapstructure:"environment"`
	Port               string   `mapstructure:"port"`
	BaseURL            string   `mapstructure:"base_url"`
	AllowedCORSDomains []string `mapstructure:"allowed_cors_domains"`
	JWTSigningKey      string   `mapstructure:"jwt_signing_key"`
}

type GinConfig struct {
	Mode string `mapstructure:"mode"`
}

type PostgresConfig struct {
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DB           string `mapstructure:"db"`
	SSLMode      string `mapstructure:"ssl_mode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DB, c.SSLMode)
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type TicketConfig struct {
	ValidityDays       int `mapstructure:"validity_days"`
	RenewalWindowDays  int `mapstructure:"renewal_window_days"`
	FallbackOffsetDays int `mapstructure:"fallback_offset_days"`
	NumberAttempts     int `mapstructure:"number_attempts"`
}

type SchedulerConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	RunAt    string `mapstructure:"run_at"`
	TimeZone string `mapstructure:"time_zone"`
}

func (c *SchedulerConfig) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.Local, nil
	}

	return time.LoadLocation(c.TimeZone)
}

var ErrInvalidRunAt = errors.New("scheduler.run_at must be HH:MM")

// ParseRunAt splits the scheduler's HH:MM setting.
func (c *SchedulerConfig) ParseRunAt() (hour, minute int, err error) {
	t, err := time.Parse("15:04", c.RunAt)
	if err != nil {
		return 0, 0, ErrInvalidRunAt
	}

	return t.Hour(), t.Minute(), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.environment", "development")
	v.SetDefault("api.port", "8080")
	v.SetDefault("api.base_url", "localhost:8080")
	v.SetDefault("api.allowed_cors_domains", []string{"http://localhost:3000"})
	v.SetDefault("api.jwt_signing_key", "")
	v.SetDefault("gin.mode", "debug")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.db", "fuelticket")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_open_conns", 20)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", 10*time.Minute)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "fuelticket.events")
	v.SetDefault("ticket.validity_days", 5)
	v.SetDefault("ticket.renewal_window_days", 7)
	v.SetDefault("ticket.fallback_offset_days", 7)
	v.SetDefault("ticket.number_attempts", 10)
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.run_at", "00:00")
	v.SetDefault("scheduler.time_zone", "")
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	return v
}

func decode(v *viper.Viper) (*AppConfig, error) {
	conf := &AppConfig{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("v.Unmarshal -> %w", err)
	}

	if _, _, err := conf.Scheduler.ParseRunAt(); err != nil {
		return nil, err
	}

	return conf, nil
}

// Load reads the YAML file at path, overlaid with environment variables such
// as API_PORT or POSTGRES_HOST. A missing file falls back to defaults.
func Load(path string) (*AppConfig, error) {
	conf, _, err := load(path)

	return conf, err
}

func load(path string) (*AppConfig, *viper.Viper, error) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("v.ReadInConfig -> %w", err)
		}
	}

	conf, err := decode(v)
	if err != nil {
		return nil, nil, err
	}

	return conf, v, nil
}

// Watch loads the configuration and calls onChange with the reloaded
// configuration every time the file is written.
func Watch(path string, onChange func(*AppConfig)) (*AppConfig, error) {
	conf, v, err := load(path)
	if err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		reloaded, err := decode(v)
		if err != nil {
			zap.L().Error("config reload failed", zap.String("file", e.Name), zap.Error(err))
			return
		}

		zap.L().Info("config reloaded", zap.String("file", e.Name))
		onChange(reloaded)
	})
	v.WatchConfig()

	return conf, nil
}
