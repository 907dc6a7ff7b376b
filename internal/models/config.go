package models

import (
	"os"

	"gopkg.in/yaml.v2"
)

type Config struct {
	ServerAddr     string `yaml:"server_addr"`
	DatabaseURL    string `yaml:"database_url"`
	UploadRoot     string `yaml:"upload_root"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	KafkaBroker    string `yaml:"kafka_broker"`
	KafkaTopic     string `yaml:"kafka_topic"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = 32 << 20 // 32 MiB upload ceiling unless configured
	}
	return &cfg, nil
}
