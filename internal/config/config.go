package config

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type AgentConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	RelayURL        string        `mapstructure:"relay_url"`
	DeviceName      string        `mapstructure:"device_name"`
	LibraryPath     string        `mapstructure:"library_path"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	ActivationGrace time.Duration `mapstructure:"activation_grace"`
}

type RelayConfig struct {
	Port          int           `mapstructure:"port"`
	ReadLimit     int64         `mapstructure:"read_limit"`
	PingPeriod    time.Duration `mapstructure:"ping_period"`
	ActivateLimit int           `mapstructure:"activate_limit"`
	ActivateEvery time.Duration `mapstructure:"activate_every"`
}

type Config struct {
	Mode   string      `mapstructure:"mode"`
	Secret string      `mapstructure:"secret"`
	Agent  AgentConfig `mapstructure:"agent"`
	Relay  RelayConfig `mapstructure:"relay"`
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

	v.SetDefault("mode", "release")
	v.SetDefault("agent.listen_addr", "127.0.0.1:8090")
	v.SetDefault("agent.relay_url", "ws://localhost:8080/ws/group")
	v.SetDefault("agent.device_name", "layover")
	v.SetDefault("agent.library_path", "layover.db")
	v.SetDefault("agent.poll_interval", "1s")
	v.SetDefault("agent.activation_grace", "500ms")
	v.SetDefault("relay.port", 8080)
	v.SetDefault("relay.read_limit", 32768)
	v.SetDefault("relay.ping_period", "54s")
	v.SetDefault("relay.activate_limit", 5)
	v.SetDefault("relay.activate_every", "1m")

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
