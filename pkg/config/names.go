package config

// EnvPrefix applies to any config field without an explicit envconfig tag.
const EnvPrefix = "HEALIOS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

// Environment variable names referenced outside struct tags.
const (
	EnvAppEnv   = "HEALIOS_APP_ENV"
	EnvPort     = "HEALIOS_APP_PORT"
	EnvDBDSN    = "HEALIOS_DB_DSN"
	EnvDBHost   = "HEALIOS_DB_HOST"
	EnvDBUser   = "HEALIOS_DB_USER"
	EnvDBName   = "HEALIOS_DB_NAME"
	EnvRedisURL = "HEALIOS_REDIS_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
