package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Payment     PaymentConfig     `mapstructure:"payment"`
	Reservation ReservationConfig `mapstructure:"reservation"`
	Mint        MintConfig        `mapstructure:"mint"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s timezone=UTC",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address.
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type AuthConfig struct {
	// JWTSecret signs and verifies buyer bearer tokens (HS256).
	JWTSecret string `mapstructure:"jwt_secret"`
	// CallbackToken guards the internal mint-callback endpoint.
	CallbackToken string `mapstructure:"callback_token"`
}

type PaymentConfig struct {
	// HashSecret is the shared secret for the gateway's HMAC-SHA512 signature.
	HashSecret string `mapstructure:"hash_secret"`
}

type ReservationConfig struct {
	// TTL is how long a pending order holds its inventory.
	TTL time.Duration `mapstructure:"ttl"`
	// MaxRetries bounds the transaction retry loop on write conflicts.
	MaxRetries int `mapstructure:"max_retries"`
	// RetryBaseDelay is the first backoff step; doubles each attempt.
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
	// ReapInterval is the expiry reaper's tick.
	ReapInterval time.Duration `mapstructure:"reap_interval"`
}

type MintConfig struct {
	// WorkerURL is the external minting worker endpoint.
	WorkerURL string `mapstructure:"worker_url"`
	// RequestTimeout bounds a single dispatch HTTP call.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// ReconcileInterval is the unminted-ticket reconciler's tick.
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval"`
	// ReconcileAfter is how long a paid order may stay unminted before
	// the reconciler re-publishes its job.
	ReconcileAfter time.Duration `mapstructure:"reconcile_after"`
}

// Load reads configuration from environment variables (TIXGATE_ prefix,
// e.g. TIXGATE_DATABASE_HOST) with defaults suitable for local development.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("tixgate")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// LoadTest returns the configuration used by integration tests: a throwaway
// database on 5433 and redis DB 1 on 6380.
func LoadTest() *Config {
	return &Config{
		Server:   ServerConfig{Host: "localhost", Port: 8081},
		Database: DatabaseConfig{Host: "localhost", Port: 5433, User: "postgres", Password: "postgres", DBName: "test_db", SSLMode: "disable", MaxConns: 5, MinConns: 1},
		Redis:    RedisConfig{Host: "localhost", Port: 6380, DB: 1},
		Auth:     AuthConfig{JWTSecret: "test-secret", CallbackToken: "test-callback-token"},
		Payment:  PaymentConfig{HashSecret: "test-hash-secret"},
		Reservation: ReservationConfig{
			TTL:            15 * time.Minute,
			MaxRetries:     3,
			RetryBaseDelay: 10 * time.Millisecond,
			ReapInterval:   time.Second,
		},
		Mint: MintConfig{
			WorkerURL:         "http://localhost:9090/mint",
			RequestTimeout:    time.Second,
			ReconcileInterval: time.Second,
			ReconcileAfter:    time.Minute,
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.min_conns", 5)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.jwt_secret", "dev-secret")
	v.SetDefault("auth.callback_token", "dev-callback-token")

	v.SetDefault("payment.hash_secret", "dev-hash-secret")

	v.SetDefault("reservation.ttl", 15*time.Minute)
	v.SetDefault("reservation.max_retries", 3)
	v.SetDefault("reservation.retry_base_delay", 50*time.Millisecond)
	v.SetDefault("reservation.reap_interval", 30*time.Second)

	v.SetDefault("mint.worker_url", "http://localhost:9090/mint")
	v.SetDefault("mint.request_timeout", 10*time.Second)
	v.SetDefault("mint.reconcile_interval", 5*time.Minute)
	v.SetDefault("mint.reconcile_after", 10*time.Minute)
}
