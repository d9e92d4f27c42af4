package client

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type SyndicationConfig struct {
	Feed       string `mapstructure:"feed"`
	Visibility string `mapstructure:"visibility"`
	Schedule   string `mapstructure:"schedule"` // cron spec
}

type NodeConfig struct {
	Host           string `mapstructure:"host"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	KeyID          string `mapstructure:"key_id"`
	PrivateKeyFile string `mapstructure:"private_key_file"`
}

type Config struct {
	URL             string            `mapstructure:"url"` // home node
	Host            string            `mapstructure:"host"`
	Database        string            `mapstructure:"database"`
	AuthScheme      string            `mapstructure:"auth_scheme"`
	TimeoutSeconds  int               `mapstructure:"timeout_seconds"`
	RatePerSecond   float64           `mapstructure:"rate_per_second"`
	Burst           int               `mapstructure:"burst"`
	CacheTTLSeconds int               `mapstructure:"cache_ttl_seconds"`
	Trace           bool              `mapstructure:"trace"`
	Syndication     SyndicationConfig `mapstructure:"syndication"`
	Nodes           []NodeConfig      `mapstructure:"nodes"`
}

// PublicHost is the home node's host name
func (c Config) PublicHost() string {
	if c.Host != "" {
		return c.Host
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return ""
	}
	return u.Host
}

func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("url", "http://localhost:8000")
	v.SetDefault("database", "distrolace.db")
	v.SetDefault("auth_scheme", "Token")
	v.SetDefault("timeout_seconds", 15)
	v.SetDefault("rate_per_second", 10)
	v.SetDefault("burst", 5)
	v.SetDefault("cache_ttl_seconds", 60)
	v.SetDefault("syndication.visibility", "PUBLIC")
	v.SetDefault("syndication.schedule", "@every 15m")
	v.SetEnvPrefix("distrolace")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (config Config, err error) {
	if err := v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("decoding config: %w", err)
	}
	return config, nil
}

// ReadConfig parses a JSON config
func ReadConfig(b []byte) (Config, error) {
	v := newViper()
	v.SetConfigType("json")
	if err := v.ReadConfig(bytes.NewReader(b)); err != nil {
		return Config{}, err
	}
	return unmarshal(v)
}

// LoadConfig reads a config file in any format viper knows by its extension
func LoadConfig(filename string) (Config, error) {
	v := newViper()
	v.SetConfigFile(filename)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading %s: %w", filename, err)
	}
	return unmarshal(v)
}

// DefaultConfig is the configuration used without a config file
func DefaultConfig() Config {
	config, _ := unmarshal(newViper())
	return config
}
