package config

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`
	Mode    string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Path    string `mapstructure:"path"`
	LogMode bool   `mapstructure:"log_mode"`
}

type SecurityConfig struct {
	// Passphrase feeds the scrypt key derivation for field encryption.
	// Changing it makes old ciphertext unreadable; rows then come back
	// as raw hex instead of failing.
	Passphrase     string   `mapstructure:"passphrase"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type BackupConfig struct {
	Dir string `mapstructure:"dir"`
}

type AppSubConfig struct {
	PageSize int `mapstructure:"page_size"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Security SecurityConfig `mapstructure:"security"`
	Backup   BackupConfig   `mapstructure:"backup"`
	App      AppSubConfig   `mapstructure:"app"`
}

var (
	appConfig *Config
	once      sync.Once
)

// Load loads configuration from given file path (e.g. "config.yaml").
// If path is empty, it defaults to "config.yaml" in current working directory.
func Load(path string) (*Config, error) {
	var err error
	once.Do(func() {
		v := viper.New()

		if path == "" {
			v.SetConfigName("config")
			v.SetConfigType("yaml")
			v.AddConfigPath(".")
		} else {
			v.SetConfigFile(path)
		}

		// environment overrides, e.g. ESSAR_SERVER_PORT=9000
		v.SetEnvPrefix("ESSAR")
		v.AutomaticEnv()

		v.SetDefault("server.address", "127.0.0.1")
		v.SetDefault("server.port", 8732)
		v.SetDefault("database.path", "data/travel-agency.db")
		v.SetDefault("security.passphrase", "essar-travel-billing-default-key-2024")
		v.SetDefault("security.allowed_origins", []string{"http://localhost:5173"})
		v.SetDefault("backup.dir", "backups")
		v.SetDefault("app.page_size", 100)

		// a missing config file is fine, defaults and env cover everything
		if err = v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) || errors.As(err, &viper.ConfigFileNotFoundError{}) {
				err = nil
			} else {
				err = fmt.Errorf("read config: %w", err)
				return
			}
		}

		var c Config
		if err = v.Unmarshal(&c); err != nil {
			err = fmt.Errorf("unmarshal config: %w", err)
			return
		}

		appConfig = &c
	})

	if err != nil {
		return nil, err
	}
	return appConfig, nil
}

// Get returns the loaded global configuration.
// Call Load() once at application startup.
func Get() *Config {
	return appConfig
}
