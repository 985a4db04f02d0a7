package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "MPSTREAM"

type Config struct {
	Log            Log  `mapstructure:"log" yaml:"log"`
	HTTP           HTTP `mapstructure:"http" yaml:"http"`
	S3             S3   `mapstructure:"s3" yaml:"s3"`
	OSS            OSS  `mapstructure:"oss" yaml:"oss"`
	ReverseStreams bool `mapstructure:"reverse_streams" yaml:"reverse_streams"`
	EscapeQuotes   bool `mapstructure:"escape_quotes" yaml:"escape_quotes"`
}

type Log struct {
	Level      string `mapstructure:"level" yaml:"level"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
}

type HTTP struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Headers []string      `mapstructure:"headers" yaml:"headers"`
}

type S3 struct {
	Region string `mapstructure:"region" yaml:"region"`
}

type OSS struct {
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint"`
	Region          string `mapstructure:"region" yaml:"region"`
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret" yaml:"access_key_secret"`
}

// SetDefaults registers defaults and environment lookup on v. Call it before
// binding flags.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("http.timeout", "0s")
	v.SetDefault("http.headers", []string{})
	v.SetDefault("s3.region", "")
	v.SetDefault("oss.endpoint", "")
	v.SetDefault("oss.region", "")
	v.SetDefault("oss.access_key_id", "")
	v.SetDefault("oss.access_key_secret", "")
	v.SetDefault("reverse_streams", false)
	v.SetDefault("escape_quotes", false)

	v.SetConfigName("mpstream")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/mpstream")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads the config file, if any, and decodes v. file overrides the
// search path.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Verify() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("config: http.timeout must not be negative")
	}
	for _, h := range c.HTTP.Headers {
		if _, _, ok := strings.Cut(h, ":"); !ok {
			return fmt.Errorf("config: http.headers: %q is not in Key: Value form", h)
		}
	}
	return nil
}

// YAML renders c with secrets masked.
func (c Config) YAML() ([]byte, error) {
	if c.OSS.AccessKeySecret != "" {
		c.OSS.AccessKeySecret = "******"
	}
	return yaml.Marshal(c)
}
