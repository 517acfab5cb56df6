package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultServer is used by client commands when nothing is configured
const DefaultServer = "http://localhost:8080"

// ClientConfig is what the CLI remembers between invocations
type ClientConfig struct {
	Server   string `mapstructure:"server" yaml:"server"`
	Token    string `mapstructure:"token" yaml:"token,omitempty"`
	Email    string `mapstructure:"email" yaml:"email,omitempty"`
	Insecure bool   `mapstructure:"insecure" yaml:"insecure,omitempty"`
	CAFile   string `mapstructure:"ca_file" yaml:"ca_file,omitempty"`
}

// ClientConfigPath returns $HOME/.grain/config.yaml
func ClientConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to find home directory: %w", err)
	}
	return filepath.Join(home, ".grain", "config.yaml"), nil
}

// LoadClient reads the client config. GRAIN_SERVER and GRAIN_TOKEN override the file.
func LoadClient(path string) (*ClientConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("server", DefaultServer)
	v.SetDefault("token", "")
	v.SetDefault("email", "")
	v.SetDefault("insecure", false)
	v.SetDefault("ca_file", "")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	cfg.Server = strings.TrimRight(cfg.Server, "/")
	return &cfg, nil
}

// SaveClient writes the client config with mode 0600
func SaveClient(path string, cfg *ClientConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode client config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
