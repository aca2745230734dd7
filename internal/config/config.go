package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
	Account struct {
		Value float64 `yaml:"value"`
	} `yaml:"account"`
	Sizing struct {
		MinContracts int `yaml:"min_contracts"`
		MaxContracts int `yaml:"max_contracts"`
	} `yaml:"sizing"`
	Telegram struct {
		Token  string `yaml:"token"`
		ChatID string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		MonitorSpec string `yaml:"monitor_spec"`
		ScanSpec    string `yaml:"scan_spec"`
	} `yaml:"schedule"`
	Scanner struct {
		Feeds []string `yaml:"feeds"`
	} `yaml:"scanner"`
}

// Load reads secrets from envFile (missing file is fine), then decodes the
// YAML at path with ${VAR} references expanded from the environment.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "alerts.db"
	}
	if c.Sizing.MinContracts == 0 {
		c.Sizing.MinContracts = 1
	}
	if c.Sizing.MaxContracts == 0 {
		c.Sizing.MaxContracts = 10
	}
	if c.Schedule.MonitorSpec == "" {
		c.Schedule.MonitorSpec = "*/30 * * * * *"
	}
	if c.Schedule.ScanSpec == "" {
		c.Schedule.ScanSpec = "0 */5 * * * *"
	}
}

func (c *Config) validate() error {
	if c.Account.Value <= 0 {
		return fmt.Errorf("account.value must be positive, got %v", c.Account.Value)
	}
	if c.Sizing.MinContracts < 1 || c.Sizing.MaxContracts < c.Sizing.MinContracts {
		return fmt.Errorf("invalid sizing bounds %d..%d", c.Sizing.MinContracts, c.Sizing.MaxContracts)
	}
	return nil
}
