package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Admin    AdminConfig    `mapstructure:"admin"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Bidding  BiddingConfig  `mapstructure:"bidding"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Identity IdentityConfig `mapstructure:"identity"`
	Closer   CloserConfig   `mapstructure:"closer"`
	Leader   LeaderConfig   `mapstructure:"leader"`
	Instance InstanceConfig `mapstructure:"instance"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// AdminConfig is the internal-only listener for administrative operations.
// Administrator authentication happens upstream (network boundary), not here.
type AdminConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type MySQLConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type BiddingConfig struct {
	IncrementCents int64         `mapstructure:"increment_cents"`
	OutbidThrottle time.Duration `mapstructure:"outbid_throttle"`
}

type NotifyConfig struct {
	QueueSize   int           `mapstructure:"queue_size"`
	Workers     int           `mapstructure:"workers"`
	TaskTimeout time.Duration `mapstructure:"task_timeout"`
	Channel     string        `mapstructure:"channel"`
	EventChan   string        `mapstructure:"event_channel"`
	AdminEmails []string      `mapstructure:"admin_emails"`
}

type IdentityConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type CloserConfig struct {
	Schedule string `mapstructure:"schedule"`
}

type LeaderConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type InstanceConfig struct {
	ID string `mapstructure:"id"`
}

func Load() (*Config, error) {
	// Set default values
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("admin.host", "127.0.0.1")
	viper.SetDefault("admin.port", 8081)
	viper.SetDefault("mysql.dsn", "auction_user:auction_pass@tcp(localhost:3306)/auction_db?parseTime=true")
	viper.SetDefault("mysql.max_open_conns", 25)
	viper.SetDefault("mysql.max_idle_conns", 10)
	viper.SetDefault("mysql.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("bidding.increment_cents", 500)
	viper.SetDefault("bidding.outbid_throttle", 30*time.Minute)
	viper.SetDefault("notify.queue_size", 256)
	viper.SetDefault("notify.workers", 4)
	viper.SetDefault("notify.task_timeout", 10*time.Second)
	viper.SetDefault("notify.channel", "notifications")
	viper.SetDefault("notify.event_channel", "bid_events")
	viper.SetDefault("notify.admin_emails", []string{})
	viper.SetDefault("identity.base_url", "http://localhost:8090")
	viper.SetDefault("identity.timeout", 5*time.Second)
	viper.SetDefault("closer.schedule", "@every 1m")
	viper.SetDefault("leader.ttl", 30*time.Second)
	viper.SetDefault("instance.id", "auction-engine-1")

	// Configuration file settings
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/silent-auction/")

	// Environment variable support
	viper.AutomaticEnv()

	viper.BindEnv("server.host", "SERVER_HOST")
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("admin.host", "ADMIN_HOST")
	viper.BindEnv("admin.port", "ADMIN_PORT")
	viper.BindEnv("mysql.dsn", "MYSQL_DSN")
	viper.BindEnv("mysql.max_open_conns", "MYSQL_MAX_OPEN_CONNS")
	viper.BindEnv("mysql.max_idle_conns", "MYSQL_MAX_IDLE_CONNS")
	viper.BindEnv("mysql.conn_max_lifetime", "MYSQL_CONN_MAX_LIFETIME")
	viper.BindEnv("redis.address", "REDIS_ADDRESS")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")
	viper.BindEnv("bidding.increment_cents", "BIDDING_INCREMENT_CENTS")
	viper.BindEnv("bidding.outbid_throttle", "BIDDING_OUTBID_THROTTLE")
	viper.BindEnv("notify.queue_size", "NOTIFY_QUEUE_SIZE")
	viper.BindEnv("notify.workers", "NOTIFY_WORKERS")
	viper.BindEnv("notify.admin_emails", "NOTIFY_ADMIN_EMAILS")
	viper.BindEnv("identity.base_url", "IDENTITY_BASE_URL")
	viper.BindEnv("identity.timeout", "IDENTITY_TIMEOUT")
	viper.BindEnv("closer.schedule", "CLOSER_SCHEDULE")
	viper.BindEnv("leader.ttl", "LEADER_TTL")
	viper.BindEnv("instance.id", "INSTANCE_ID")

	// Read configuration file (optional - defaults/env vars apply if absent)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
