package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/ini.v1"
)

// Config wraps viper and provides typed accessors. Values are fixed at
// Load time; components receive the loaded Config in their
// constructors and never re-read the environment.
type Config struct {
	v *viper.Viper
}

// Load reads an INI config file, applies defaults and environment
// overrides (prefix SONGBOT).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SONGBOT")
	v.AutomaticEnv()

	setDefaults(v)

	if strings.EqualFold(filepath.Ext(path), ".ini") {
		if err := loadINI(v, path); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		return &Config{v: v}, nil
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	return &Config{v: v}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("Language", "en")
	v.SetDefault("LangDir", "./langs")
	v.SetDefault("BotAPI", "https://api.telegram.org")
	v.SetDefault("BotDebug", false)
	v.SetDefault("LogChannelID", 0)
	v.SetDefault("AdminContact", "")
	v.SetDefault("AdminID", 0)
	v.SetDefault("APIHost", "")
	v.SetDefault("APIPath", "/song")
	v.SetDefault("DefaultBitrate", 320)
	v.SetDefault("MusicPageHost", "https://music.163.com")
	v.SetDefault("CacheEnabled", true)
	v.SetDefault("Database", "cache.db")
	v.SetDefault("DBMaxOpenConns", 1)
	v.SetDefault("DBMaxIdleConns", 1)
	v.SetDefault("DBConnMaxLifetimeSec", 3600)
	v.SetDefault("CacheDir", "./cache")
	v.SetDefault("DownloadTimeout", 60)
	v.SetDefault("WorkerPoolSize", 4)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFormat", "text")
	v.SetDefault("LogSource", false)
	v.SetDefault("RateLimitPerSecond", 1.0)
	v.SetDefault("RateLimitBurst", 3)
	v.SetDefault("WebhookHost", "")
	v.SetDefault("WebhookPort", 8443)
	v.SetDefault("WebhookCert", "")
	v.SetDefault("WebhookKey", "")
}

// GetString returns a string value.
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt returns an int value.
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetInt64 returns an int64 value.
func (c *Config) GetInt64(key string) int64 {
	return c.v.GetInt64(key)
}

// GetFloat64 returns a float64 value.
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool returns a bool value.
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

func loadINI(v *viper.Viper, path string) error {
	cfg, err := ini.Load(path)
	if err != nil {
		return err
	}

	for _, key := range cfg.Section("").Keys() {
		v.Set(key.Name(), key.Value())
	}

	return nil
}
