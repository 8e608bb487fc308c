package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/dkeye/Huddle/internal/adapters/capture"
	"github.com/dkeye/Huddle/internal/adapters/rtc"
	"github.com/dkeye/Huddle/internal/adapters/signal"
	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/app/orch"
	"github.com/dkeye/Huddle/internal/app/peer"
	"github.com/dkeye/Huddle/internal/core"
)

type Config struct {
	Mode       string `mapstructure:"mode"`
	LogLevel   string `mapstructure:"log_level"`
	StatusAddr string `mapstructure:"status_addr"`

	SignalURL    string        `mapstructure:"signal_url"`
	Codec        string        `mapstructure:"codec"`
	SendPolicy   string        `mapstructure:"send_policy"`
	SendQueue    int           `mapstructure:"send_queue"`
	ReadLimit    int64         `mapstructure:"read_limit"`
	PingPeriod   time.Duration `mapstructure:"ping_period"`
	PongWait     time.Duration `mapstructure:"pong_wait"`
	WriteWait    time.Duration `mapstructure:"write_wait"`
	RedialDelay  time.Duration `mapstructure:"redial_delay"`
	RateLimit    int           `mapstructure:"rate_limit"`
	RateInterval time.Duration `mapstructure:"rate_interval"`

	STUNServers    []string `mapstructure:"stun_servers"`
	TURNServers    []string `mapstructure:"turn_servers"`
	TURNUsername   string   `mapstructure:"turn_username"`
	TURNCredential string   `mapstructure:"turn_credential"`
	ForceRelay     bool     `mapstructure:"force_relay"`

	HandshakeTimeout  time.Duration `mapstructure:"handshake_timeout"`
	MaxPendingSignals int           `mapstructure:"max_pending_signals"`
	SyncDebounce      time.Duration `mapstructure:"sync_debounce"`

	Audio  bool `mapstructure:"audio"`
	Video  bool `mapstructure:"video"`
	Screen bool `mapstructure:"screen"`
}

// Load reads config/config.<CONFIG_ENV>.yaml, then HUDDLE_* environment
// variables, optionally seeded from a .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("module", "config").Msg(".env not loaded")
	}

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

	v.SetEnvPrefix("huddle")
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
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Str("signal", cfg.SignalURL).Str("codec", cfg.Codec).Msg("config ready")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("log_level", "info")
	v.SetDefault("status_addr", "")
	v.SetDefault("signal_url", "ws://localhost:8080/api/ws/signal")
	v.SetDefault("codec", "json")
	v.SetDefault("send_policy", "queue")
	v.SetDefault("send_queue", 256)
	v.SetDefault("read_limit", 65536)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_wait", "10s")
	v.SetDefault("redial_delay", "1s")
	v.SetDefault("rate_limit", 20)
	v.SetDefault("rate_interval", "10s")
	v.SetDefault("stun_servers", []string{rtc.DefaultSTUN})
	v.SetDefault("handshake_timeout", peer.DefaultHandshakeTimeout.String())
	v.SetDefault("max_pending_signals", peer.DefaultMaxPendingSignals)
	v.SetDefault("sync_debounce", "0s")
	v.SetDefault("audio", true)
	v.SetDefault("video", true)
	v.SetDefault("screen", false)
}

func (c *Config) Validate() error {
	if c.SignalURL == "" {
		return errors.New("signal_url is required")
	}
	if _, err := core.CodecByName(c.Codec); err != nil {
		return err
	}
	if _, err := app.ParseSendPolicy(c.SendPolicy); err != nil {
		return err
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.ForceRelay && len(c.TURNServers) == 0 {
		return errors.New("force_relay needs at least one turn server")
	}
	return nil
}

func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

func (c *Config) Signal() signal.Options {
	codec, _ := core.CodecByName(c.Codec)
	policy, _ := app.ParseSendPolicy(c.SendPolicy)
	return signal.Options{
		URL:          c.SignalURL,
		Codec:        codec,
		Policy:       policy,
		QueueSize:    c.SendQueue,
		WriteWait:    c.WriteWait,
		PongWait:     c.PongWait,
		PingPeriod:   c.PingPeriod,
		ReadLimit:    c.ReadLimit,
		RedialDelay:  c.RedialDelay,
		RateLimit:    c.RateLimit,
		RateInterval: c.RateInterval,
	}
}

func (c *Config) RTC() rtc.Config {
	return rtc.Config{
		STUNServers:    c.STUNServers,
		TURNServers:    c.TURNServers,
		TURNUsername:   c.TURNUsername,
		TURNCredential: c.TURNCredential,
		ForceRelay:     c.ForceRelay,
	}
}

func (c *Config) Peer() peer.Config {
	return peer.Config{HandshakeTimeout: c.HandshakeTimeout, MaxPendingSignals: c.MaxPendingSignals}
}

func (c *Config) Orch() orch.Config {
	return orch.Config{SyncDelay: c.SyncDebounce}
}

func (c *Config) Capture() capture.Options {
	return capture.Options{Audio: c.Audio, Video: c.Video, Screen: c.Screen, Pump: c.Audio}
}
