package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	ScanTrack ScanTrackConfig `yaml:"scantrack"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host                  string `yaml:"host"`
	Port                  int    `yaml:"port"`
	ScanRecordedTopicName string `yaml:"scan_recorded_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type ScanTrackConfig struct {
	HTTPAddr string `yaml:"http_addr"`

	// BaseURL — внешний origin, из которого собираются tracking-ссылки для QR.
	BaseURL string `yaml:"base_url"`

	// Storage: "memory" (по умолчанию) или "postgres".
	Storage string `yaml:"storage"`

	// AnalyticsCacheTTLSeconds: nil — значение по умолчанию,
	// явный 0 выключает кэш аналитики.
	AnalyticsCacheTTLSeconds *int  `yaml:"analytics_cache_ttl_seconds"`
	ScanRateLimitPerMinute   int64 `yaml:"scan_rate_limit_per_minute"`

	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`

	WorkerHTTPAddr             string `yaml:"worker_http_addr"`
	WorkerFlushIntervalSeconds int    `yaml:"worker_flush_interval_seconds"`
	WorkerBatchSize            int    `yaml:"worker_batch_size"`

	// GeoProviderMode: "noop" (по умолчанию) | "ipapi".
	GeoProviderMode    string `yaml:"geo_provider_mode"`
	GeoProviderBaseURL string `yaml:"geo_provider_base_url"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
