package database

import (
	"context"
	"net"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
	"github.com/tiptop/backend/internal/logger"
	"go.uber.org/zap"
)

// RedisConfig holds the redis settings used for sessions, the token
// blacklist and reset rate limits.
type RedisConfig struct {
	Host        string
	Port        string
	Password    string
	DB          int
	PingTimeout time.Duration
}

func GetRedisConfig() *RedisConfig {
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", "6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.ping_timeout", 3*time.Second)

	return &RedisConfig{
		Host:        viper.GetString("redis.host"),
		Port:        viper.GetString("redis.port"),
		Password:    viper.GetString("redis.password"),
		DB:          viper.GetInt("redis.db"),
		PingTimeout: viper.GetDuration("redis.ping_timeout"),
	}
}

func (c *RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// ConnectRedis returns a client that answered PING within the timeout.
func ConnectRedis(config *RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     config.Addr(),
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), config.PingTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// InitRedis returns nil when redis is unreachable so callers can fall back to
// in-process state.
func InitRedis() *redis.Client {
	config := GetRedisConfig()

	rdb, err := ConnectRedis(config)
	if err != nil {
		logger.Log.Warn("Redis connection failed, continuing without Redis",
			zap.String("addr", config.Addr()),
			zap.Error(err))
		return nil
	}

	logger.Log.Info("Redis connection established", zap.String("addr", config.Addr()), zap.Int("db", config.DB))
	return rdb
}
