package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultConfigPath    = "config.toml"
	DefaultHTTPAddr      = ":5001"
	DefaultJWTExpiresIn  = "24h"
	DefaultPGHost        = "127.0.0.1"
	DefaultPGPort        = 5432
	DefaultPGUser        = "postgres"
	DefaultPGDatabase    = "inteltrace"
	DefaultPGSSLMode     = "disable"
	DefaultUploadsDir    = "uploads"
	DefaultMaxUploadSize = 10 * 1024 * 1024
	DefaultAnalysisDelay = "2500ms"
)

type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Admin    AdminConfig    `toml:"admin"`
	Auth     AuthConfig     `toml:"auth"`
	Postgres PostgresConfig `toml:"postgres"`
	Uploads  UploadsConfig  `toml:"uploads"`
	Analysis AnalysisConfig `toml:"analysis"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type AdminConfig struct {
	Username    string `toml:"username"`
	Password    string `toml:"password"`
	DisplayName string `toml:"display_name"`
}

type AuthConfig struct {
	JWTSecret    string `toml:"jwt_secret"`
	JWTExpiresIn string `toml:"jwt_expires_in"`
}

type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

type UploadsConfig struct {
	Dir      string `toml:"dir"`
	MaxBytes int64  `toml:"max_bytes"`
}

type AnalysisConfig struct {
	Delay string `toml:"delay"`
}

// DelayDuration parses the configured analysis delay, falling back to the
// default when unset or unparseable.
func (c AnalysisConfig) DelayDuration() time.Duration {
	if d, err := time.ParseDuration(c.Delay); err == nil && d >= 0 {
		return d
	}
	d, _ := time.ParseDuration(DefaultAnalysisDelay)
	return d
}

// ExpiresDuration parses the configured JWT lifetime.
func (c AuthConfig) ExpiresDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.JWTExpiresIn)
	if err != nil {
		return 0, fmt.Errorf("parse jwt_expires_in: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("jwt_expires_in must be positive")
	}
	return d, nil
}

func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Admin: AdminConfig{
			Username:    "analyst",
			Password:    "change-your-password-here",
			DisplayName: "Analyst",
		},
		Auth: AuthConfig{
			JWTExpiresIn: DefaultJWTExpiresIn,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Uploads: UploadsConfig{
			Dir:      DefaultUploadsDir,
			MaxBytes: DefaultMaxUploadSize,
		},
		Analysis: AnalysisConfig{
			Delay: DefaultAnalysisDelay,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}
