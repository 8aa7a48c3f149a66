package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// StaticAssignee is one config-declared holder of a position, used when no
// directory service is wired.
type StaticAssignee struct {
	UserID      string `mapstructure:"user_id"`
	DisplayName string `mapstructure:"display_name"`
}

// Config holds the configuration for the service.
type Config struct {
	Server struct {
		Addr string `mapstructure:"addr"`
		Env  string `mapstructure:"env"`
	} `mapstructure:"server"`
	DB struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"db"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
	Directory struct {
		URL            string                      `mapstructure:"url"`
		TimeoutSeconds int                         `mapstructure:"timeout_seconds"`
		Static         map[string][]StaticAssignee `mapstructure:"static"`
	} `mapstructure:"directory"`
	Engine struct {
		StrictEntityCheck bool `mapstructure:"strict_entity_check"`
	} `mapstructure:"engine"`
}

// Load reads config.yaml from the working directory (or ./config) and lets
// STAGEFLOW_* environment variables override any key.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.SetEnvPrefix("STAGEFLOW")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.env", "production")
	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", 5432)
	viper.SetDefault("db.sslmode", "disable")
	viper.SetDefault("directory.timeout_seconds", 5)
	viper.SetDefault("engine.strict_entity_check", false)

	if err := viper.ReadInConfig(); err != nil {
		// Missing file is fine; env vars and defaults still apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// DSN renders the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		c.DB.Host, c.DB.User, c.DB.Password, c.DB.Name, c.DB.Port, c.DB.SSLMode)
}
