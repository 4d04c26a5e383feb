package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Media        MediaConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FEASTBOOK_APP_ENV" required:"true"`
	Port         string `envconfig:"FEASTBOOK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FEASTBOOK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FEASTBOOK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FEASTBOOK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"FEASTBOOK_DB_DSN"`
	Driver string `envconfig:"FEASTBOOK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FEASTBOOK_DB_HOST"`
	LegacyPort     int    `envconfig:"FEASTBOOK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FEASTBOOK_DB_USER"`
	LegacyPassword string `envconfig:"FEASTBOOK_DB_PASSWORD"`
	LegacyName     string `envconfig:"FEASTBOOK_DB_NAME"`
	LegacySSLMode  string `envconfig:"FEASTBOOK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FEASTBOOK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FEASTBOOK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FEASTBOOK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FEASTBOOK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FEASTBOOK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FEASTBOOK_REDIS_ADDR"`
	Password     string        `envconfig:"FEASTBOOK_REDIS_PASSWORD"`
	DB           int           `envconfig:"FEASTBOOK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FEASTBOOK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FEASTBOOK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FEASTBOOK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FEASTBOOK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FEASTBOOK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FEASTBOOK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FEASTBOOK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FEASTBOOK_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"FEASTBOOK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"FEASTBOOK_AUTO_MIGRATE" default:"false"`
}

// MediaConfig holds the storage layout and limits for the media engine.
// Directories per (context, category) are derived from StorageRoot; the
// engine never reads ambient globals for them.
type MediaConfig struct {
	StorageRoot        string        `envconfig:"FEASTBOOK_MEDIA_STORAGE_ROOT" default:"./data/media"`
	MaxUploadMB        int           `envconfig:"FEASTBOOK_MEDIA_MAX_UPLOAD_MB" default:"50"`
	MaxBatchFiles      int           `envconfig:"FEASTBOOK_MEDIA_MAX_BATCH_FILES" default:"10"`
	ReconcilerGrace    time.Duration `envconfig:"FEASTBOOK_MEDIA_RECONCILER_GRACE" default:"24h"`
	ReconcilerInterval time.Duration `envconfig:"FEASTBOOK_MEDIA_RECONCILER_INTERVAL" default:"6h"`
	IdempotencyTTL     time.Duration `envconfig:"FEASTBOOK_MEDIA_IDEMPOTENCY_TTL" default:"24h"`
}

// MaxUploadBytes converts the configured megabyte limit into bytes.
func (m MediaConfig) MaxUploadBytes() int64 {
	if m.MaxUploadMB <= 0 {
		return 0
	}
	return int64(m.MaxUploadMB) * 1024 * 1024
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
