package config

import "slices"

const EnvPrefix = "TABLEBITE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Names referenced in error messages and tests.
const (
	EnvAppEnv                 = "TABLEBITE_APP_ENV"
	EnvPort                   = "TABLEBITE_APP_PORT"
	EnvDBDSN                  = "TABLEBITE_DB_DSN"
	EnvDBHost                 = "TABLEBITE_DB_HOST"
	EnvDBUser                 = "TABLEBITE_DB_USER"
	EnvDBName                 = "TABLEBITE_DB_NAME"
	EnvRedisURL               = "TABLEBITE_REDIS_URL"
	EnvRedisAddr              = "TABLEBITE_REDIS_ADDR"
	EnvJWTSecret              = "TABLEBITE_JWT_SECRET"
	EnvJWTIssuer              = "TABLEBITE_JWT_ISSUER"
	EnvJWTExpMins             = "TABLEBITE_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "TABLEBITE_REFRESH_TOKEN_TTL_MINUTES"
	EnvUseSQLite              = "TABLEBITE_USE_SQLITE"
	EnvLoyaltyEarnRate        = "TABLEBITE_LOYALTY_EARN_RATE"
)

func sortedEnv(names []string) []string {
	slices.Sort(names)
	return names
}
