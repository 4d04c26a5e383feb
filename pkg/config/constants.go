package config

// EnvPrefix is empty because every variable carries the FEASTBOOK_ prefix in
// its envconfig tag already.
const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "FEASTBOOK_APP_ENV"
	EnvDBDSN  = "FEASTBOOK_DB_DSN"
	EnvDBHost = "FEASTBOOK_DB_HOST"
	EnvDBUser = "FEASTBOOK_DB_USER"
	EnvDBName = "FEASTBOOK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
