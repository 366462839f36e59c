package config

import (
	"os"
	"time"

	"github.com/go-yaml/yaml"
)

type Config struct {
	Server   Server   `yaml:"server"`
	Auth     Auth     `yaml:"auth"`
	Upload   Upload   `yaml:"upload"`
	Security Security `yaml:"security"`
	Listing  Listing  `yaml:"listing"`
}

type Server struct {
	ListenAddr    string `yaml:"listenAddr"`
	ServiceName   string `yaml:"serviceName"`
	PostgresDsn   string `yaml:"postgresDsn"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`
	MemcachedAddr string `yaml:"memcachedAddr"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
	ViewWindow    string `yaml:"viewWindow"`
	TagCacheTTL   string `yaml:"tagCacheTTL"`
}

type Auth struct {
	ServiceURL string `yaml:"serviceURL"`
	Timeout    string `yaml:"timeout"`
	CacheTTL   string `yaml:"cacheTTL"`
}

type Upload struct {
	BasePath          string   `yaml:"basePath"`
	PublicPrefix      string   `yaml:"publicPrefix"`
	MaxSize           int64    `yaml:"maxSize"`
	AllowedExtensions []string `yaml:"allowedExtensions"`
}

type Security struct {
	BcryptCost int `yaml:"bcryptCost"`
}

type Listing struct {
	DefaultPageSize int `yaml:"defaultPageSize"`
	MaxPageSize     int `yaml:"maxPageSize"`
}

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, err
	}

	config.applyDefaults()
	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8000"
	}
	if c.Server.ServiceName == "" {
		c.Server.ServiceName = "community"
	}
	if c.Server.ViewWindow == "" {
		c.Server.ViewWindow = "10m"
	}
	if c.Server.TagCacheTTL == "" {
		c.Server.TagCacheTTL = "5m"
	}
	if c.Auth.Timeout == "" {
		c.Auth.Timeout = "3s"
	}
	if c.Auth.CacheTTL == "" {
		c.Auth.CacheTTL = "1m"
	}
	if c.Upload.BasePath == "" {
		c.Upload.BasePath = "uploads"
	}
	if c.Upload.PublicPrefix == "" {
		c.Upload.PublicPrefix = "/uploads"
	}
	if c.Upload.MaxSize == 0 {
		c.Upload.MaxSize = 10 << 20
	}
	if c.Security.BcryptCost == 0 {
		c.Security.BcryptCost = 10
	}
	if c.Listing.DefaultPageSize == 0 {
		c.Listing.DefaultPageSize = 20
	}
	if c.Listing.MaxPageSize == 0 {
		c.Listing.MaxPageSize = 100
	}
}

// Duration parses a duration setting, returning fallback when it is invalid.
func Duration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
