package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Relay         RelayConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.DB.DSN == "" {
		return nil, fmt.Errorf("RIDEPOOL_DB_DSN is required")
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = "sqlite"
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"RIDEPOOL_APP_ENV" required:"true"`
	Port         string `envconfig:"RIDEPOOL_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"RIDEPOOL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RIDEPOOL_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"RIDEPOOL_DB_DSN"`
	Driver string `envconfig:"RIDEPOOL_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"RIDEPOOL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RIDEPOOL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RIDEPOOL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RIDEPOOL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RIDEPOOL_REDIS_URL"`
	Address      string        `envconfig:"RIDEPOOL_REDIS_ADDR"`
	Password     string        `envconfig:"RIDEPOOL_REDIS_PASSWORD"`
	DB           int           `envconfig:"RIDEPOOL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RIDEPOOL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RIDEPOOL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RIDEPOOL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RIDEPOOL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RIDEPOOL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"RIDEPOOL_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"RIDEPOOL_JWT_ISSUER" default:"ridepool"`
	ExpirationMinutes int    `envconfig:"RIDEPOOL_JWT_EXPIRATION_MINUTES" default:"60"`
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"RIDEPOOL_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"RIDEPOOL_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"RIDEPOOL_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"RIDEPOOL_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"RIDEPOOL_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow       time.Duration `envconfig:"RIDEPOOL_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginUserLimit    int           `envconfig:"RIDEPOOL_AUTH_RATE_LIMIT_LOGIN_USER_LIMIT" default:"5"`
	LoginIPLimit      int           `envconfig:"RIDEPOOL_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow    time.Duration `envconfig:"RIDEPOOL_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterUserLimit int           `envconfig:"RIDEPOOL_AUTH_RATE_LIMIT_REGISTER_USER_LIMIT" default:"3"`
	RegisterIPLimit   int           `envconfig:"RIDEPOOL_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"RIDEPOOL_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"RIDEPOOL_AUTO_MIGRATE" default:"false"`
}

type RelayConfig struct {
	SendBufferSize  int           `envconfig:"RIDEPOOL_RELAY_SEND_BUFFER" default:"256"`
	MaxMessageBytes int64         `envconfig:"RIDEPOOL_RELAY_MAX_MESSAGE_BYTES" default:"8192"`
	PingInterval    time.Duration `envconfig:"RIDEPOOL_RELAY_PING_INTERVAL" default:"30s"`
	PongWait        time.Duration `envconfig:"RIDEPOOL_RELAY_PONG_WAIT" default:"60s"`
	WriteWait       time.Duration `envconfig:"RIDEPOOL_RELAY_WRITE_WAIT" default:"10s"`
}
