package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Fees          FeesConfig
	Orders        OrdersConfig
	Storage       StorageConfig
	GCP           GCPConfig
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
	Env          string `envconfig:"REVIBE_APP_ENV" required:"true"`
	Port         string `envconfig:"REVIBE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"REVIBE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"REVIBE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"REVIBE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"REVIBE_DB_DSN"`
	Driver string `envconfig:"REVIBE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"REVIBE_DB_HOST"`
	LegacyPort     int    `envconfig:"REVIBE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"REVIBE_DB_USER"`
	LegacyPassword string `envconfig:"REVIBE_DB_PASSWORD"`
	LegacyName     string `envconfig:"REVIBE_DB_NAME"`
	LegacySSLMode  string `envconfig:"REVIBE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"REVIBE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"REVIBE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"REVIBE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"REVIBE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"REVIBE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"REVIBE_REDIS_ADDR"`
	Password     string        `envconfig:"REVIBE_REDIS_PASSWORD"`
	DB           int           `envconfig:"REVIBE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"REVIBE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"REVIBE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"REVIBE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REVIBE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"REVIBE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"REVIBE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"REVIBE_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"REVIBE_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"REVIBE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"REVIBE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"REVIBE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"REVIBE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"REVIBE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"REVIBE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"REVIBE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"REVIBE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"REVIBE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"REVIBE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"REVIBE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"REVIBE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"REVIBE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"REVIBE_AUTO_MIGRATE" default:"false"`
}

// FeesConfig carries the platform commission rate as a decimal string
// (e.g. "0.10" for 10%). Parsed once by fees.NewCalculator.
type FeesConfig struct {
	PlatformRate string `envconfig:"REVIBE_FEES_PLATFORM_RATE" default:"0.10"`
}

type OrdersConfig struct {
	NumberPrefix      string `envconfig:"REVIBE_ORDERS_NUMBER_PREFIX" default:"ORD"`
	NumberMaxAttempts int    `envconfig:"REVIBE_ORDERS_NUMBER_MAX_ATTEMPTS" default:"5"`
}

// StorageConfig names the physical GCS bucket. The logical buckets from the
// storage_buckets table become key prefixes inside it.
type StorageConfig struct {
	BucketName        string        `envconfig:"REVIBE_STORAGE_BUCKET_NAME" default:"revibe-storage-dev"`
	UploadURLExpiry   time.Duration `envconfig:"REVIBE_STORAGE_UPLOAD_URL_EXPIRY" default:"15m"`
	DownloadURLExpiry time.Duration `envconfig:"REVIBE_STORAGE_DOWNLOAD_URL_EXPIRY" default:"24h"`
}

type GCPConfig struct {
	CredentialsJSON        string `envconfig:"REVIBE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"REVIBE_GOOGLE_APPLICATION_CREDENTIALS"`
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
