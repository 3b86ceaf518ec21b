package config

import (
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	Env  string `mapstructure:"env"`
	Port int    `mapstructure:"port"`
}

type MongoConfig struct {
	URI string `mapstructure:"uri"`
	DB  string `mapstructure:"db"`
}

type RedisConfig struct {
	Addr   string `mapstructure:"addr"`
	Pass   string `mapstructure:"password"`
	DB     int    `mapstructure:"db"`
	Prefix string `mapstructure:"prefix"`
}

type KafkaConfig struct {
	Brokers            []string `mapstructure:"brokers"`
	TopicMessageEvents string   `mapstructure:"topic_message_events"`
	TopicBroadcasts    string   `mapstructure:"topic_broadcasts"`
}

type S3Config struct {
	Region string `mapstructure:"region"`
	Bucket string `mapstructure:"bucket"`
}

type JWTConfig struct {
	Alg           string `mapstructure:"alg"`
	PublicKeyPath string `mapstructure:"public_key_path"`
	HSSecret      string `mapstructure:"hs_secret"`
}

type WSConfig struct {
	PingIntervalSeconds  int   `mapstructure:"ping_interval_seconds"`
	WriteDeadlineSeconds int   `mapstructure:"write_deadline_seconds"`
	MaxMessageSizeBytes  int64 `mapstructure:"max_message_size_bytes"`
}

type UploadConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

type Config struct {
	App        AppConfig    `mapstructure:"app"`
	Mongo      MongoConfig  `mapstructure:"mongo"`
	Redis      RedisConfig  `mapstructure:"redis"`
	Kafka      KafkaConfig  `mapstructure:"kafka"`
	S3         S3Config     `mapstructure:"s3"`
	JWT        JWTConfig    `mapstructure:"jwt"`
	WS         WSConfig     `mapstructure:"ws"`
	Upload     UploadConfig `mapstructure:"upload"`
	RatePerMin int          `mapstructure:"rate_limit_per_min"`

	// derived
	PingInterval  time.Duration
	WriteDeadline time.Duration
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	if c.App.Port == 0 {
		c.App.Port = 8086
	}
	if c.WS.PingIntervalSeconds == 0 {
		c.WS.PingIntervalSeconds = 25
	}
	if c.WS.WriteDeadlineSeconds == 0 {
		c.WS.WriteDeadlineSeconds = 10
	}
	if c.WS.MaxMessageSizeBytes == 0 {
		c.WS.MaxMessageSizeBytes = 65536
	}
	if c.Upload.Concurrency == 0 {
		c.Upload.Concurrency = 3
	}
	if c.RatePerMin == 0 {
		c.RatePerMin = 120
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "board"
	}
	c.PingInterval = time.Duration(c.WS.PingIntervalSeconds) * time.Second
	c.WriteDeadline = time.Duration(c.WS.WriteDeadlineSeconds) * time.Second
	return &c, nil
}
