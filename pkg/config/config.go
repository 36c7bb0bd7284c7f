package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

// minProdSecretLen is the shortest HS256 secret accepted outside dev.
const minProdSecretLen = 32

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Session       SessionConfig
	Loyalty       LoyaltyConfig
	FeatureFlags  FeatureFlagsConfig
}

// Load reads the process environment. Every invalid setting is reported at
// once so a bad deploy can be fixed in one pass.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.resolve(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c Config) Validate() error {
	var errs error
	if c.App.IsProd() && len(c.JWT.Secret) < minProdSecretLen {
		errs = multierr.Append(errs, fmt.Errorf("%s must be at least %d bytes in prod", EnvJWTSecret, minProdSecretLen))
	}
	if c.JWT.ExpirationMinutes <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s must be positive", EnvJWTExpMins))
	}
	if c.Redis.URL == "" && c.Redis.Address == "" {
		errs = multierr.Append(errs, fmt.Errorf("either %s or %s is required", EnvRedisURL, EnvRedisAddr))
	}
	if c.DB.TxRetries < 1 {
		errs = multierr.Append(errs, errors.New("TABLEBITE_DB_TX_RETRIES must be at least 1"))
	}
	return multierr.Append(errs, c.Loyalty.validate())
}

type AppConfig struct {
	Env          string `envconfig:"TABLEBITE_APP_ENV" required:"true"`
	Port         string `envconfig:"TABLEBITE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TABLEBITE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TABLEBITE_LOG_WARN_STACK" default:"false"`

	// Empty means the local dev origins.
	CORSOrigins []string `envconfig:"TABLEBITE_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

// DBConfig takes either a full DSN or its postgres parts. UseSQLite wins
// over both.
type DBConfig struct {
	DSN    string `envconfig:"TABLEBITE_DB_DSN"`
	Driver string `envconfig:"TABLEBITE_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"TABLEBITE_DB_HOST"`
	Port     int    `envconfig:"TABLEBITE_DB_PORT" default:"5432"`
	User     string `envconfig:"TABLEBITE_DB_USER"`
	Password string `envconfig:"TABLEBITE_DB_PASSWORD"`
	Name     string `envconfig:"TABLEBITE_DB_NAME"`
	SSLMode  string `envconfig:"TABLEBITE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TABLEBITE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TABLEBITE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TABLEBITE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TABLEBITE_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// LockTimeout bounds how long a transaction waits on a row lock.
	LockTimeout time.Duration `envconfig:"TABLEBITE_DB_LOCK_TIMEOUT" default:"5s"`
	TxRetries   int           `envconfig:"TABLEBITE_DB_TX_RETRIES" default:"3"`
}

func (db *DBConfig) resolve(useSQLite bool) error {
	switch {
	case useSQLite:
		db.Driver = DriverSQLite
		if db.DSN == "" {
			db.DSN = "file:tablebite.db?cache=shared"
		}
		return nil
	case db.DSN != "":
		return nil
	}

	var missing []string
	for env, value := range map[string]string{EnvDBHost: db.Host, EnvDBUser: db.User, EnvDBName: db.Name} {
		if value == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(sortedEnv(missing), ", "))
	}

	u := &url.URL{
		Scheme: DriverPostgres,
		User:   url.User(db.User),
		Host:   net.JoinHostPort(db.Host, strconv.Itoa(db.Port)),
		Path:   db.Name,
	}
	if db.Password != "" {
		u.User = url.UserPassword(db.User, db.Password)
	}
	if db.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {db.SSLMode}}.Encode()
	}
	db.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"TABLEBITE_REDIS_URL"`
	Address      string        `envconfig:"TABLEBITE_REDIS_ADDR"`
	Password     string        `envconfig:"TABLEBITE_REDIS_PASSWORD"`
	DB           int           `envconfig:"TABLEBITE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TABLEBITE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TABLEBITE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TABLEBITE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TABLEBITE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TABLEBITE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"TABLEBITE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"TABLEBITE_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"TABLEBITE_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"TABLEBITE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL is zero when refresh tokens are disabled.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(max(j.RefreshTokenTTLMinutes, 0)) * time.Minute
}

// PasswordConfig holds argon2id costs. Out of range values are clamped when
// hashing.
type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"TABLEBITE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"TABLEBITE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"TABLEBITE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"TABLEBITE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"TABLEBITE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow           time.Duration `envconfig:"TABLEBITE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginUsernameLimit    int           `envconfig:"TABLEBITE_AUTH_RATE_LIMIT_LOGIN_USERNAME_LIMIT" default:"5"`
	LoginIPLimit          int           `envconfig:"TABLEBITE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow        time.Duration `envconfig:"TABLEBITE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterUsernameLimit int           `envconfig:"TABLEBITE_AUTH_RATE_LIMIT_REGISTER_USERNAME_LIMIT" default:"3"`
	RegisterIPLimit       int           `envconfig:"TABLEBITE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// SessionConfig controls anonymous visitor sessions.
type SessionConfig struct {
	VisitorTTL time.Duration `envconfig:"TABLEBITE_SESSION_VISITOR_TTL" default:"336h"`
	Header     string        `envconfig:"TABLEBITE_SESSION_HEADER" default:"X-Session-Token"`
}

// LoyaltyConfig holds the points program constants. Rates are decimal
// strings such as "0.10".
type LoyaltyConfig struct {
	VIPThreshold    int           `envconfig:"TABLEBITE_LOYALTY_VIP_THRESHOLD" default:"500"`
	EarnRate        string        `envconfig:"TABLEBITE_LOYALTY_EARN_RATE" default:"0.10"`
	VIPDiscountRate string        `envconfig:"TABLEBITE_LOYALTY_VIP_DISCOUNT_RATE" default:"0.10"`
	StagedTTL       time.Duration `envconfig:"TABLEBITE_LOYALTY_STAGED_TTL" default:"72h"`
}

func (l LoyaltyConfig) validate() error {
	var errs error
	if l.VIPThreshold <= 0 {
		errs = multierr.Append(errs, errors.New("loyalty VIP threshold must be positive"))
	}
	if l.StagedTTL <= 0 {
		errs = multierr.Append(errs, errors.New("loyalty staged benefit TTL must be positive"))
	}
	for name, raw := range map[string]string{"earn rate": l.EarnRate, "VIP discount rate": l.VIPDiscountRate} {
		rate, err := decimal.NewFromString(raw)
		if err != nil || rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			errs = multierr.Append(errs, fmt.Errorf("loyalty %s %q must be a decimal in [0, 1)", name, raw))
		}
	}
	return errs
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"TABLEBITE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"TABLEBITE_AUTO_MIGRATE" default:"false"`
}
