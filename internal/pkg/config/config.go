package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sethvargo/go-envconfig"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	JWT       JWTConfig
	Password  PasswordConfig
	Bootstrap BootstrapConfig
	Login     LoginConfig
	Mongo     MongoConfig
	Redis     RedisConfig
}

// JWTConfig is the token signing configuration. It is read once at startup
// and never changes afterwards.
type JWTConfig struct {
	Secret     string `env:"JWT_SECRET"`
	Algorithm  string `env:"JWT_ALGORITHM,   default=HS256"`
	ExpireDays int    `env:"JWT_EXPIRE_DAYS, default=7"`
}

// TTL is the lifetime of a freshly issued token.
func (c JWTConfig) TTL() time.Duration {
	return time.Duration(c.ExpireDays) * 24 * time.Hour
}

type PasswordConfig struct {
	BcryptCost int `env:"BCRYPT_COST, default=10"`
}

// BootstrapConfig names the admin account created on a store with no admin.
// The default password must be rotated after first boot.
type BootstrapConfig struct {
	AdminUsername string `env:"BOOTSTRAP_ADMIN_USERNAME, default=admin"`
	AdminPassword string `env:"BOOTSTRAP_ADMIN_PASSWORD, default=admin"`
}

// LoginConfig controls failed-login throttling. MaxAttempts of 0 disables it.
type LoginConfig struct {
	MaxAttempts int           `env:"LOGIN_MAX_ATTEMPTS, default=5"`
	Window      time.Duration `env:"LOGIN_WINDOW,       default=15m"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=school_records"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// IsDevelopment reports whether human-friendly output should be used.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Validate checks the settings the auth core cannot run without.
func (c *Config) Validate() error {
	var errs []error

	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if _, ok := jwt.GetSigningMethod(c.JWT.Algorithm).(*jwt.SigningMethodHMAC); !ok {
		errs = append(errs, fmt.Errorf("JWT_ALGORITHM %q is not an HMAC algorithm (HS256, HS384, HS512)", c.JWT.Algorithm))
	}
	if c.JWT.ExpireDays <= 0 {
		errs = append(errs, fmt.Errorf("JWT_EXPIRE_DAYS must be positive, got %d", c.JWT.ExpireDays))
	}
	if c.Password.BcryptCost < bcrypt.MinCost || c.Password.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be within [%d, %d], got %d", bcrypt.MinCost, bcrypt.MaxCost, c.Password.BcryptCost))
	}
	if c.Login.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("LOGIN_MAX_ATTEMPTS must not be negative, got %d", c.Login.MaxAttempts))
	}
	if c.Login.MaxAttempts > 0 && c.Login.Window <= 0 {
		errs = append(errs, errors.New("LOGIN_WINDOW must be positive when throttling is enabled"))
	}

	return errors.Join(errs...)
}

// Load reads configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads configuration through lookuper and validates it.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
