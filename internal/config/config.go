package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode             string        `mapstructure:"mode"`
	Port             int           `mapstructure:"port"`
	Secret           string        `mapstructure:"secret"`
	PingPeriod       time.Duration `mapstructure:"ping_period"`
	RotationInterval time.Duration `mapstructure:"rotation_interval"`
	WellKnownURL     string        `mapstructure:"well_known_url"`
	LocalUser        string        `mapstructure:"local_user"`
	LocalDevice      string        `mapstructure:"local_device"`
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
	v.SetDefault("port", 8080)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("rotation_interval", "5m")
	v.SetDefault("well_known_url", "")
	v.SetDefault("local_user", "@local:dev")
	v.SetDefault("local_device", "DEV0")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Rotation: %s\n", cfg.Mode, cfg.Port, cfg.RotationInterval)
	return &cfg, nil
}
