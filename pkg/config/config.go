package config

import "time"

// Relay definition relay_service YAML structure
type Relay struct {
	Port       string         `mapstructure:"port"`
	SessionTTL time.Duration  `mapstructure:"session_ttl"`
	MongoSQL   DatabaseConfig `mapstructure:"mongo"`
	PostgreSQL DatabaseConfig `mapstructure:"pg"`
	Redis      RedisConfig    `mapstructure:"redis"`
	Kafka      KafkaConfig    `mapstructure:"kafka"`
	Presence   PresenceConfig `mapstructure:"presence"`
}

// PresenceConfig controls how online/offline transitions are broadcast.
// Scope is "rooms" (members of the rooms the user belongs to) or
// "contacts" (every live connection of the user's contacts).
type PresenceConfig struct {
	Scope string `mapstructure:"scope"`
}

// KafkaConfig definition message archive stream setting
type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	RetryInterval int      `mapstructure:"retry_interval"`
	RetryCount    int      `mapstructure:"retry_count"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	Addr    string `mapstructure:"addr"`
	RedisDB int    `mapstructure:"redis_db"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}
