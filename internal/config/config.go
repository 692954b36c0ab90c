// Package config loads calbot configuration from the environment and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Bot       BotConfig       `mapstructure:"bot"`
	Nutrition NutritionConfig `mapstructure:"nutrition"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Tracker   TrackerConfig   `mapstructure:"tracker"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
}

type ServerConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Port      int    `mapstructure:"port"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite | postgres
	Path   string `mapstructure:"path"`   // sqlite file, ":memory:" allowed
	DSN    string `mapstructure:"dsn"`    // postgres
}

type BotConfig struct {
	Token         string        `mapstructure:"token"`
	Debug         bool          `mapstructure:"debug"`
	WebhookURL    string        `mapstructure:"webhook_url"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	PollTimeout   int           `mapstructure:"poll_timeout"`
	SendRate      float64       `mapstructure:"send_rate"`
	StateTTL      time.Duration `mapstructure:"state_ttl"`
}

type NutritionConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	CacheDriver string        `mapstructure:"cache_driver"` // memory | redis
}

type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type StorageConfig struct {
	S3Bucket  string `mapstructure:"s3_bucket"`
	S3Region  string `mapstructure:"s3_region"`
	S3Prefix  string `mapstructure:"s3_prefix"`
	PublicURL string `mapstructure:"public_url"`
}

type TrackerConfig struct {
	Timezone      string `mapstructure:"timezone"`
	DefaultTarget int    `mapstructure:"default_target"`
	MinTarget     int    `mapstructure:"min_target"`
	MaxTarget     int    `mapstructure:"max_target"`
}

type SchedulerConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	SummaryCron  string `mapstructure:"summary_cron"`
	ReminderCron string `mapstructure:"reminder_cron"`
	Workers      int    `mapstructure:"workers"`
}

// Load reads configuration. A .env file in the working directory is loaded
// first when present; a missing config file is not an error.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("CALBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Well-known names used by the deployment scripts.
	_ = v.BindEnv("bot.token", "CALBOT_BOT_TOKEN", "TELEGRAM_BOT_TOKEN")
	_ = v.BindEnv("nutrition.api_key", "CALBOT_NUTRITION_API_KEY", "FOOD_API_KEY")
	_ = v.BindEnv("database.dsn", "CALBOT_DATABASE_DSN", "POSTGRES_URL")
	_ = v.BindEnv("server.port", "CALBOT_SERVER_PORT", "PORT")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every key, including the ones whose default is the
// zero value: AutomaticEnv only overrides keys viper already knows.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "calbot")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	v.SetDefault("server.enabled", true)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.jwt_secret", "")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/calories.db")
	v.SetDefault("database.dsn", "")

	v.SetDefault("bot.token", "")
	v.SetDefault("bot.debug", false)
	v.SetDefault("bot.webhook_url", "")
	v.SetDefault("bot.webhook_secret", "")
	v.SetDefault("bot.poll_timeout", 60)
	v.SetDefault("bot.send_rate", 25.0)
	v.SetDefault("bot.state_ttl", "10m")

	v.SetDefault("nutrition.api_key", "")
	v.SetDefault("nutrition.base_url", "https://api.calorieninjas.com/v1/nutrition")
	v.SetDefault("nutrition.timeout", "5s")
	v.SetDefault("nutrition.cache_ttl", "1h")
	v.SetDefault("nutrition.cache_driver", "memory")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "calbot:food:")

	v.SetDefault("storage.s3_bucket", "")
	v.SetDefault("storage.s3_region", "")
	v.SetDefault("storage.s3_prefix", "meal-photos")
	v.SetDefault("storage.public_url", "")

	v.SetDefault("tracker.timezone", "UTC")
	v.SetDefault("tracker.default_target", 2000)
	v.SetDefault("tracker.min_target", 500)
	v.SetDefault("tracker.max_target", 5000)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.summary_cron", "0 0 * * *")
	v.SetDefault("scheduler.reminder_cron", "0 23 * * *")
	v.SetDefault("scheduler.workers", 4)
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn (POSTGRES_URL) is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}

	switch c.Nutrition.CacheDriver {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported nutrition.cache_driver %q", c.Nutrition.CacheDriver)
	}

	if c.Nutrition.Timeout <= 0 {
		return fmt.Errorf("nutrition.timeout must be positive")
	}

	if _, err := time.LoadLocation(c.Tracker.Timezone); err != nil {
		return fmt.Errorf("tracker.timezone: %w", err)
	}

	if c.Tracker.MinTarget <= 0 || c.Tracker.MinTarget > c.Tracker.MaxTarget {
		return fmt.Errorf("tracker.min_target must be positive and not above tracker.max_target")
	}
	if c.Tracker.DefaultTarget < c.Tracker.MinTarget || c.Tracker.DefaultTarget > c.Tracker.MaxTarget {
		return fmt.Errorf("tracker.default_target must be within [%d, %d]", c.Tracker.MinTarget, c.Tracker.MaxTarget)
	}

	if c.Scheduler.Workers < 1 {
		return fmt.Errorf("scheduler.workers must be at least 1")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	return nil
}

// Location returns the tracker timezone. Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Tracker.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}
