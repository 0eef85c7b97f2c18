// Package configpkg provides parsing functionality for environment variables.
package configpkg

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"
)

// Supported token types.
const (
	TokenTypePaseto = "paseto"
	TokenTypeJWT    = "jwt"
)

// Config stores all configuration of the application.
//
// The values are read by viper from a config file or environment variables.
type Config struct {
	DBDriver            string        `mapstructure:"DB_DRIVER"`
	DBSource            string        `mapstructure:"DB_SOURCE"`
	DBConnectTimeout    time.Duration `mapstructure:"DB_CONNECT_TIMEOUT"`
	ServerAddress       string        `mapstructure:"SERVER_ADDRESS"`
	TokenSymmetricKey   string        `mapstructure:"TOKEN_SYMMETRIC_KEY"`
	TokenType           string        `mapstructure:"TOKEN_TYPE"`
	AccessTokenDuration time.Duration `mapstructure:"ACCESS_TOKEN_DURATION"`
	RedisAddress        string        `mapstructure:"REDIS_ADDRESS"`
	RateCacheTTL        time.Duration `mapstructure:"RATE_CACHE_TTL"`
	Environement        string        `mapstructure:"GO_ENV"`
	LogLevel            string        `mapstructure:"LOG_LEVEL"`
}

var logLevels = []any{"trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"}

var errRedisTTL = errors.New("must be positive when REDIS_ADDRESS is set")

// Validate checks that the loaded values can be used to start the application.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.DBDriver, validation.Required),
		validation.Field(&c.DBSource, validation.Required),
		validation.Field(&c.ServerAddress, validation.Required),
		validation.Field(&c.TokenSymmetricKey, validation.Required, validation.Length(32, 32)),
		validation.Field(&c.TokenType, validation.In(TokenTypePaseto, TokenTypeJWT)),
		validation.Field(&c.AccessTokenDuration, validation.Required),
		validation.Field(&c.LogLevel, validation.In(logLevels...)),
		validation.Field(&c.RateCacheTTL, validation.When(c.RedisAddress != "",
			validation.By(func(any) error {
				if c.RateCacheTTL <= 0 {
					return errRedisTTL
				}
				return nil
			}))),
	)
}

// Load reads configuration from file or environment variables.
func Load(path string) (Config, error) {
	var c Config

	viper.AddConfigPath(path)
	viper.SetConfigName("app")
	viper.SetConfigType("env")

	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DB_CONNECT_TIMEOUT", 30*time.Second)
	viper.SetDefault("TOKEN_TYPE", TokenTypePaseto)
	viper.SetDefault("ACCESS_TOKEN_DURATION", 15*time.Minute)
	viper.SetDefault("RATE_CACHE_TTL", time.Minute)
	viper.SetDefault("LOG_LEVEL", "info")

	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err != nil {
		return c, err
	}

	err = viper.Unmarshal(&c)
	if err != nil {
		return c, err
	}

	if err := c.Validate(); err != nil {
		return c, err
	}

	return c, nil
}
