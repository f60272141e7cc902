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
	Mode           string        `mapstructure:"mode"`
	Port           int           `mapstructure:"port"`
	StaticPath     string        `mapstructure:"static_path"`
	ReadLimit      int64         `mapstructure:"read_limit"`
	PingPeriod     time.Duration `mapstructure:"ping_period"`
	Secret         string        `mapstructure:"secret"`
	LogLevel       string        `mapstructure:"log_level"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	SendBuffer     int           `mapstructure:"send_buffer"`

	ChatRateLimit    int           `mapstructure:"chat_rate_limit"`
	ChatRateInterval time.Duration `mapstructure:"chat_rate_interval"`

	Peer PeerConfig `mapstructure:"peer"`
}

// PeerConfig drives cmd/peer.
type PeerConfig struct {
	ServerURL            string        `mapstructure:"server_url"`
	Username             string        `mapstructure:"username"`
	Room                 string        `mapstructure:"room"`
	ICEServers           []string      `mapstructure:"ice_servers"`
	ChannelLabel         string        `mapstructure:"channel_label"`
	HandshakeTimeout     time.Duration `mapstructure:"handshake_timeout"`
	MaxPendingCandidates int           `mapstructure:"max_pending_candidates"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
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
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("static", cfg.StaticPath).Msg("config ready")
	return &cfg, nil
}

// setDefaults also registers every key, which AutomaticEnv needs to see
// nested values during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "change-me")
	v.SetDefault("log_level", "info")
	v.SetDefault("allowed_origins", []string{"*"})
	v.SetDefault("send_buffer", 32)
	v.SetDefault("chat_rate_limit", 5)
	v.SetDefault("chat_rate_interval", "3s")

	v.SetDefault("peer.server_url", "ws://localhost:8080/api/ws/signal")
	v.SetDefault("peer.username", "")
	v.SetDefault("peer.room", "main")
	v.SetDefault("peer.ice_servers", []string{"stun:stun.l.google.com:19302"})
	v.SetDefault("peer.channel_label", "chat")
	v.SetDefault("peer.handshake_timeout", "30s")
	v.SetDefault("peer.max_pending_candidates", 64)
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.SendBuffer <= 0 {
		errs = append(errs, errors.New("send_buffer must be positive"))
	}
	if c.ChatRateLimit <= 0 || c.ChatRateInterval <= 0 {
		errs = append(errs, errors.New("chat rate limit and interval must be positive"))
	}
	if c.Peer.ChannelLabel == "" {
		errs = append(errs, errors.New("peer.channel_label is empty"))
	}
	if c.Peer.MaxPendingCandidates <= 0 {
		errs = append(errs, errors.New("peer.max_pending_candidates must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
