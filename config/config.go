// config/config.go
package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Configuration stores all the configurations
type Configuration struct {
	Server        ServerConfiguration
	Postgres      PostgresConfiguration
	Redis         RedisConfiguration
	Elasticsearch ElasticsearchConfiguration
}

// ServerConfiguration stores the port and other web server settings
type ServerConfiguration struct {
	Port string
}

// PostgresConfiguration stores data for the relational store connection
type PostgresConfiguration struct {
	DSN string
}

// RedisConfiguration stores data for Redis connection
type RedisConfiguration struct {
	Addr            string
	DefaultCacheTTL string
}

// ElasticsearchConfiguration stores data for the audit sink connection
type ElasticsearchConfiguration struct {
	URL string
}

var config *Configuration

func InitConfig() error {
	viper.AddConfigPath("config") // path to look for the config file in
	viper.SetConfigName("config") // name of the config file (without extension)
	viper.SetConfigType("yaml")   // REQUIRED if the config file does not have the extension in the name

	viper.AutomaticEnv() // read in environment variables that match

	// Set default configurations
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("postgres.dsn", "postgres://localhost:5432/mylab?sslmode=disable")
	viper.SetDefault("postgres.queryTimeout", "5s")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.defaultCacheTTL", "10m")
	viper.SetDefault("elasticsearch.url", "http://localhost:9200")
	viper.SetDefault("log.dir", "logging")

	// Download token settings
	viper.SetDefault("token.defaultTTLMinutes", 15)
	viper.SetDefault("token.maxTTLMinutes", 120)
	viper.SetDefault("token.cleanupInterval", "1h")
	viper.SetDefault("token.cleanupGraceHours", 24)

	// Grants expiring within this buffer are treated as already expired.
	viper.SetDefault("grant.expiryBufferSeconds", 30)

	// Rate limit policies
	viper.SetDefault("ratelimit.general.maxRequests", 100)
	viper.SetDefault("ratelimit.general.window", "15m")
	viper.SetDefault("ratelimit.download.maxRequests", 100)
	viper.SetDefault("ratelimit.download.window", "1h")
	viper.SetDefault("ratelimit.query.maxRequests", 10)
	viper.SetDefault("ratelimit.query.window", "1m")

	// Daily per-actor download byte quota (5 GiB)
	viper.SetDefault("quota.dailyDownloadBytes", int64(5)<<30)

	viper.SetDefault("storage.fileRoot", "/var/lib/mylab/files")
	viper.SetDefault("auth.jwt.secret", "")

	// Attempt to read the config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found. Using default settings and environment variables.")
		} else {
			return err
		}
	}

	// Unmarshal the configuration into the Configuration struct
	err := viper.Unmarshal(&config)
	if err != nil {
		return err
	}

	return nil
}

// GetConfig returns the loaded configuration
func GetConfig() *Configuration {
	return config
}

// GetString retrieves a string value from the configuration
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt retrieves an integer value from the configuration
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetInt64 retrieves a 64-bit integer value from the configuration
func GetInt64(key string) int64 {
	return viper.GetInt64(key)
}

// GetBool retrieves a boolean value from the configuration
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration retrieves a duration value from the configuration
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}
