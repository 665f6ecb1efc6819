package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode           string         `mapstructure:"mode"`
	Port           int            `mapstructure:"port"`
	LogLevel       string         `mapstructure:"log_level"`
	ReadLimit      int64          `mapstructure:"read_limit"`
	PingPeriod     time.Duration  `mapstructure:"ping_period"`
	Secret         string         `mapstructure:"secret"`
	AllowedOrigins []string       `mapstructure:"allowed_origins"`
	Signal         SignalConfig   `mapstructure:"signal"`
	Auth           AuthConfig     `mapstructure:"auth"`
	Meetings       MeetingsConfig `mapstructure:"meetings"`
	Chat           ChatConfig     `mapstructure:"chat"`
}

type SignalConfig struct {
	SendBuffer   int    `mapstructure:"send_buffer"`
	Backpressure string `mapstructure:"backpressure"`
}

type AuthConfig struct {
	JWTSecret    string        `mapstructure:"jwt_secret"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
	RequireToken bool          `mapstructure:"require_token"`
}

type MeetingsConfig struct {
	AutoCreate bool `mapstructure:"auto_create"`
}

type ChatConfig struct {
	MaxLength    int           `mapstructure:"max_length"`
	RateLimit    int           `mapstructure:"rate_limit"`
	RateInterval time.Duration `mapstructure:"rate_interval"`
}

// Load reads config/config.<CONFIG_ENV>.yaml, dev by default.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

// LoadFile reads one YAML file on top of the defaults. A missing file is not
// an error. MEET_* environment variables override both, e.g. MEET_AUTH_JWT_SECRET.
func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix("MEET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Bool("auto_create", cfg.Meetings.AutoCreate).Msg("config ready")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("read_limit", 65536)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "change-me")
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("signal.send_buffer", 64)
	v.SetDefault("signal.backpressure", "drop")
	v.SetDefault("auth.jwt_secret", "change-me")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.require_token", false)
	v.SetDefault("meetings.auto_create", false)
	v.SetDefault("chat.max_length", 2000)
	v.SetDefault("chat.rate_limit", 10)
	v.SetDefault("chat.rate_interval", "10s")
}

func (c *Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("invalid port %d", c.Port)
	case c.Signal.SendBuffer <= 0:
		return fmt.Errorf("signal.send_buffer must be positive, got %d", c.Signal.SendBuffer)
	case c.PingPeriod <= 0:
		return fmt.Errorf("ping_period must be positive, got %s", c.PingPeriod)
	case c.ReadLimit <= 0:
		return fmt.Errorf("read_limit must be positive, got %d", c.ReadLimit)
	case c.Auth.JWTSecret == "":
		return errors.New("auth.jwt_secret is empty")
	}
	return nil
}
