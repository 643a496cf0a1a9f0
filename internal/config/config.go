package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "VIBEHUB"

type Config struct {
	ServerAddr         string
	DatabaseDSN        string
	SigningKey         []byte
	AllowedOrigins     []string
	UploadDir          string
	TokenTTL           time.Duration
	GuestSweepInterval time.Duration
	GuestIdleTimeout   time.Duration
	MaxUploadBytes     int64
	AuthRateLimit      float64
	AuthRateBurst      int
	LogLevel           logrus.Level
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	if base64Secret == "" {
		return nil, errors.New("empty secret")
	}
	return base64.StdEncoding.DecodeString(base64Secret)
}

// NewConfig validates the required settings and fills the rest with
// defaults.
func NewConfig(serverAddr, databaseDSN, base64Secret string, allowedOrigins []string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if databaseDSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}
	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}

	// Decode the base64 encoded signing secret
	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	return &Config{
		ServerAddr:         serverAddr,
		DatabaseDSN:        databaseDSN,
		SigningKey:         signingKey,
		AllowedOrigins:     allowedOrigins,
		UploadDir:          "./uploads",
		TokenTTL:           24 * time.Hour,
		GuestSweepInterval: time.Minute,
		GuestIdleTimeout:   30 * time.Minute,
		MaxUploadBytes:     50 << 20,
		AuthRateLimit:      1,
		AuthRateBurst:      5,
		LogLevel:           logrus.InfoLevel,
	}, nil
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("vibehub", pflag.ContinueOnError)
	fs.String("config", "", "optional config file (yaml, json or toml)")
	fs.String("addr", ":8000", "address the HTTP server listens on")
	fs.String("dsn", "", "Postgres connection string")
	fs.String("signing-key", "", "base64 encoded key used to sign session tokens")
	fs.StringSlice("allowed-origins", []string{"http://localhost:3000"}, "origins allowed by CORS and the websocket upgrader")
	fs.String("upload-dir", "./uploads", "directory holding uploaded music files")
	fs.Duration("token-ttl", 24*time.Hour, "lifetime of session tokens")
	fs.Duration("guest-sweep-interval", time.Minute, "how often idle guests are purged")
	fs.Duration("guest-idle-timeout", 30*time.Minute, "idle time after which a guest is purged")
	fs.Int64("max-upload-bytes", 50<<20, "maximum size of a music upload request")
	fs.Float64("auth-rate-limit", 1, "requests per second allowed per client on login, register and guest creation")
	fs.Int("auth-rate-burst", 5, "burst size for the auth rate limiter")
	fs.String("log-level", "info", "log level")
	return fs
}

// Load reads settings from flags, VIBEHUB_* environment variables and an
// optional config file. Flags set on the command line win over the
// environment, which wins over the file.
func Load(args []string) (*Config, error) {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg, err := NewConfig(
		v.GetString("addr"),
		v.GetString("dsn"),
		v.GetString("signing-key"),
		splitList(v.GetStringSlice("allowed-origins")),
	)
	if err != nil {
		return nil, err
	}

	cfg.UploadDir = v.GetString("upload-dir")
	cfg.TokenTTL = v.GetDuration("token-ttl")
	cfg.GuestSweepInterval = v.GetDuration("guest-sweep-interval")
	cfg.GuestIdleTimeout = v.GetDuration("guest-idle-timeout")
	cfg.MaxUploadBytes = v.GetInt64("max-upload-bytes")
	cfg.AuthRateLimit = v.GetFloat64("auth-rate-limit")
	cfg.AuthRateBurst = v.GetInt("auth-rate-burst")

	cfg.LogLevel, err = logrus.ParseLevel(v.GetString("log-level"))
	if err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.UploadDir == "":
		return fmt.Errorf("upload directory cannot be empty")
	case c.TokenTTL <= 0:
		return fmt.Errorf("token ttl must be positive")
	case c.GuestSweepInterval <= 0:
		return fmt.Errorf("guest sweep interval must be positive")
	case c.GuestIdleTimeout <= 0:
		return fmt.Errorf("guest idle timeout must be positive")
	case c.MaxUploadBytes <= 0:
		return fmt.Errorf("max upload bytes must be positive")
	case c.AuthRateLimit <= 0 || c.AuthRateBurst < 1:
		return fmt.Errorf("auth rate limit and burst must be positive")
	}
	return nil
}

// splitList accepts both repeated values and a single comma separated
// value, which is how lists arrive from the environment.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
