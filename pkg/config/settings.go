package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Settings struct {
	Redis           RedisSettings    `mapstructure:"redis"`
	Worker          WorkerSettings   `mapstructure:"worker"`
	Archive         ArchiveSettings  `mapstructure:"archive"`
	Notifier        NotifierSettings `mapstructure:"notifier"`
	RetentionWindow time.Duration    `mapstructure:"retention_window"`
	MetricsAddr     string           `mapstructure:"metrics_addr"`
	Observability   Observability    `mapstructure:"observability"`
}

func (c *Settings) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

func LoadFromFile(filePath string) (*Settings, error) {

	env := getEnvWithDefaultLookup("ENVIRONMENT", "development")

	cfg := &Settings{}
	viper.SetConfigType("yaml")
	viper.SetConfigName("hookrelay")
	viper.AddConfigPath(filePath) // path to config
	viper.AddConfigPath(".")      // current directory

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("No config file found or read error: %v (will rely on env)", err)
	}

	err := mergeConfig(filePath, "hookrelay."+env)
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Printf("Error merging %s config: %s\n", env, err)
			os.Exit(1)
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := cfg.LoadFromEnv(); err != nil {
		log.Fatalf("Failed to load from env: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	return cfg, nil
}

func (c *Settings) LoadFromEnv() error {
	viper.AutomaticEnv()
	viper.SetEnvPrefix("HOOKRELAY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // env vars like HOOKRELAY_REDIS_ADDR

	// Bind environment variables explicitly to ensure they map correctly
	viper.BindEnv("redis.addr")
	viper.BindEnv("redis.password")
	viper.BindEnv("redis.db")
	viper.BindEnv("redis.connect_timeout")
	viper.BindEnv("redis.command_timeout")
	viper.BindEnv("worker.concurrency")
	viper.BindEnv("worker.max_attempts")
	viper.BindEnv("worker.backoff_base")
	viper.BindEnv("worker.backoff_max")
	viper.BindEnv("worker.delivery_timeout")
	viper.BindEnv("worker.promote_interval")
	viper.BindEnv("archive.type")
	viper.BindEnv("archive.dsn")
	viper.BindEnv("archive.uri")
	viper.BindEnv("archive.database")
	viper.BindEnv("archive.collection")
	viper.BindEnv("notifier.type")
	viper.BindEnv("notifier.url")
	viper.BindEnv("notifier.exchange")
	viper.BindEnv("notifier.topic")
	viper.BindEnv("notifier.projectID")
	viper.BindEnv("retention_window")
	viper.BindEnv("metrics_addr")
	viper.BindEnv("observability.service_name")
	viper.BindEnv("observability.tracing_url")

	if err := viper.Unmarshal(&c); err != nil {
		return err
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("worker.concurrency", 5)
	viper.SetDefault("worker.max_attempts", 3)
	viper.SetDefault("worker.backoff_base", "2s")
	viper.SetDefault("worker.backoff_max", "5m")
	viper.SetDefault("worker.delivery_timeout", "10s")
	viper.SetDefault("worker.promote_interval", "1s")
	viper.SetDefault("redis.connect_timeout", "5s")
	viper.SetDefault("redis.command_timeout", "3s")
	viper.SetDefault("retention_window", "24h")
	viper.SetDefault("metrics_addr", ":9100")
}

func mergeConfig(path string, name string) error {
	viper.SetConfigName(name)
	viper.AddConfigPath(path)
	err := viper.MergeInConfig()
	if err != nil {
		return err
	}
	return nil
}

func getEnvWithDefaultLookup(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}
