package config

// EnvPrefix is passed to envconfig.Process; individual fields carry full
// REVIBE_* names in their tags so the prefix only matters for untagged fields.
const EnvPrefix = "revibe"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

// Environment variable names referenced outside struct tags (DSN assembly,
// tests).
const (
	EnvAppEnv = "REVIBE_APP_ENV"
	EnvPort   = "REVIBE_APP_PORT"

	EnvDBDSN  = "REVIBE_DB_DSN"
	EnvDBHost = "REVIBE_DB_HOST"
	EnvDBUser = "REVIBE_DB_USER"
	EnvDBName = "REVIBE_DB_NAME"

	EnvRedisURL = "REVIBE_REDIS_URL"

	EnvJWTSecret              = "REVIBE_JWT_SECRET"
	EnvJWTIssuer              = "REVIBE_JWT_ISSUER"
	EnvJWTExpMins             = "REVIBE_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "REVIBE_REFRESH_TOKEN_TTL_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
