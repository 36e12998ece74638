package config

import (
	yamlenv "github.com/ifuryst/go-yaml-env"

	"github.com/Kwesisbits/AI-Powered-Content-Posting-Agent/pkg/logger"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Logger    logger.Config   `yaml:"logger"`
	Auth      AuthConfig      `yaml:"auth"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	Generator GeneratorConfig `yaml:"generator"`
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	Host     string `yaml:"host"`
	Mode     string `yaml:"mode"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
	TimeZone string `yaml:"timezone"`
}

type AuthConfig struct {
	TOTPSecret string `yaml:"totp_secret"`
}

// DispatchConfig tunes the scheduled publication processor.
type DispatchConfig struct {
	// BlockBackoff is how far a gate-blocked publication is pushed forward.
	BlockBackoff string `yaml:"block_backoff"`
	// MaxDeferrals bounds how often a publication may be pushed forward
	// before it is failed instead of rescheduled again.
	MaxDeferrals int `yaml:"max_deferrals"`
	// PublishTimeout bounds a single external publish attempt.
	PublishTimeout string `yaml:"publish_timeout"`
	// SweepInterval is how often pending publications are re-enqueued.
	SweepInterval string `yaml:"sweep_interval"`
	// StatsInterval is how often the daily stats rollup runs.
	StatsInterval string `yaml:"stats_interval"`
}

type GeneratorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Author  string `yaml:"author"`
}

func LoadConfig(configPath string) (*Config, error) {
	cfg, err := yamlenv.LoadConfig[Config](configPath)
	if err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)

	return cfg, nil
}

// ApplyDefaults fills unset fields with working defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5560
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "debug"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.TimeZone == "" {
		cfg.Database.TimeZone = "UTC"
	}
	if cfg.Dispatch.BlockBackoff == "" {
		cfg.Dispatch.BlockBackoff = "5m"
	}
	if cfg.Dispatch.MaxDeferrals == 0 {
		cfg.Dispatch.MaxDeferrals = 72
	}
	if cfg.Dispatch.PublishTimeout == "" {
		cfg.Dispatch.PublishTimeout = "30s"
	}
	if cfg.Dispatch.SweepInterval == "" {
		cfg.Dispatch.SweepInterval = "1m"
	}
	if cfg.Dispatch.StatsInterval == "" {
		cfg.Dispatch.StatsInterval = "15m"
	}
	if cfg.Generator.Author == "" {
		cfg.Generator.Author = "content-agent"
	}
}
