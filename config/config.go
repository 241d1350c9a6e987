package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Minio      MinioConfig      `yaml:"minio"`
	Docparse   DocparseConfig   `yaml:"docparse"`
	Scrape     ScrapeConfig     `yaml:"scrape"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Batch      BatchConfig      `yaml:"batch"`
	Log        LogConfig        `yaml:"log"`
	Auth       AuthConfig       `yaml:"auth"`
	Users      []User           `yaml:"users"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type MinioConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Bucket     string `yaml:"bucket"`
	UseSSL     bool   `yaml:"use_ssl"`
	ExpireDays int    `yaml:"expire_days"`
}

// DocparseConfig describes the external document text-extraction service.
type DocparseConfig struct {
	APIURL         string `yaml:"api_url"`
	APIToken       string `yaml:"api_token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// ScrapeConfig describes the external web-content fetch service. When
// APIURL is empty, pages are fetched and reduced to text directly.
type ScrapeConfig struct {
	APIURL         string `yaml:"api_url"`
	APIToken       string `yaml:"api_token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// ExtractionConfig describes the property-extraction (AI) service.
type ExtractionConfig struct {
	APIURL         string `yaml:"api_url"`
	APIToken       string `yaml:"api_token"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// BatchConfig bounds batch processing and stored state.
type BatchConfig struct {
	MaxFilesPerItem    int `yaml:"max_files_per_item"`
	MaxLibraryFiles    int `yaml:"max_library_files"`
	DefaultParallelism int `yaml:"default_parallelism"`
	MaxParallelism     int `yaml:"max_parallelism"`
	MaxRuns            int `yaml:"max_runs"` // Maximum batch runs to keep, 0 = unlimited
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

type User struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Tenant   string `yaml:"tenant"`
}

var GlobalConfig *Config

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Minio.ExpireDays == 0 {
		cfg.Minio.ExpireDays = 7
	}
	if cfg.Auth.TokenExpireHours == 0 {
		cfg.Auth.TokenExpireHours = 24
	}
	if cfg.Docparse.TimeoutSeconds == 0 {
		cfg.Docparse.TimeoutSeconds = 60
	}
	if cfg.Scrape.TimeoutSeconds == 0 {
		cfg.Scrape.TimeoutSeconds = 30
	}
	if cfg.Extraction.TimeoutSeconds == 0 {
		cfg.Extraction.TimeoutSeconds = 120
	}
	if cfg.Batch.MaxFilesPerItem == 0 {
		cfg.Batch.MaxFilesPerItem = 10
	}
	if cfg.Batch.MaxLibraryFiles == 0 {
		cfg.Batch.MaxLibraryFiles = 200
	}
	if cfg.Batch.DefaultParallelism == 0 {
		cfg.Batch.DefaultParallelism = 3
	}
	if cfg.Batch.MaxParallelism == 0 {
		cfg.Batch.MaxParallelism = 10
	}
	if cfg.Batch.MaxRuns == 0 {
		cfg.Batch.MaxRuns = 50
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	GlobalConfig = &cfg
	return &cfg, nil
}

// FindUser finds a user by username
func (c *Config) FindUser(username string) *User {
	for i := range c.Users {
		if c.Users[i].Username == username {
			return &c.Users[i]
		}
	}
	return nil
}
