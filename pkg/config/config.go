package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "cliphive"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvDBDSN  = "CLIPHIVE_DB_DSN"
	EnvDBHost = "CLIPHIVE_DB_HOST"
	EnvDBUser = "CLIPHIVE_DB_USER"
	EnvDBName = "CLIPHIVE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Policy       PolicyConfig
	Media        MediaConfig
	Thumbnail    ThumbnailConfig
	ObjectStore  ObjectStoreConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"CLIPHIVE_APP_ENV" required:"true"`
	Port         string `envconfig:"CLIPHIVE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CLIPHIVE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CLIPHIVE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CLIPHIVE_DB_DSN"`
	Driver string `envconfig:"CLIPHIVE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CLIPHIVE_DB_HOST"`
	LegacyPort     int    `envconfig:"CLIPHIVE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CLIPHIVE_DB_USER"`
	LegacyPassword string `envconfig:"CLIPHIVE_DB_PASSWORD"`
	LegacyName     string `envconfig:"CLIPHIVE_DB_NAME"`
	LegacySSLMode  string `envconfig:"CLIPHIVE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CLIPHIVE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CLIPHIVE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CLIPHIVE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CLIPHIVE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CLIPHIVE_REDIS_URL"`
	Address      string        `envconfig:"CLIPHIVE_REDIS_ADDR"`
	Password     string        `envconfig:"CLIPHIVE_REDIS_PASSWORD"`
	DB           int           `envconfig:"CLIPHIVE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CLIPHIVE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CLIPHIVE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CLIPHIVE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CLIPHIVE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CLIPHIVE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured at all.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"CLIPHIVE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CLIPHIVE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CLIPHIVE_JWT_EXPIRATION_MINUTES" default:"60"`
}

// PolicyConfig carries the upload constraint thresholds.
type PolicyConfig struct {
	MinDurationSeconds int64  `envconfig:"CLIPHIVE_POLICY_MIN_DURATION_SECONDS" default:"3"`
	MaxDurationSeconds int64  `envconfig:"CLIPHIVE_POLICY_MAX_DURATION_SECONDS" default:"60"`
	MaxFileSizeBytes   int64  `envconfig:"CLIPHIVE_POLICY_MAX_FILE_SIZE_BYTES" default:"104857600"`
	AllowedExtensions  string `envconfig:"CLIPHIVE_POLICY_ALLOWED_EXTENSIONS" default:"mp4,mov,m4v,webm"`
}

// AllowedExtensionList splits the configured extension allow-list.
func (p PolicyConfig) AllowedExtensionList() []string {
	parts := strings.Split(p.AllowedExtensions, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		ext := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(part, ".")))
		if ext != "" {
			out = append(out, ext)
		}
	}
	return out
}

type MediaConfig struct {
	TmpDir            string        `envconfig:"CLIPHIVE_MEDIA_TMP_DIR" default:"/tmp/cliphive"`
	MaxMultipartMemMB int           `envconfig:"CLIPHIVE_MEDIA_MAX_MULTIPART_MEM_MB" default:"32"`
	MaxRecordSeconds  int           `envconfig:"CLIPHIVE_MEDIA_MAX_RECORD_SECONDS" default:"60"`
	FFmpegPath        string        `envconfig:"CLIPHIVE_MEDIA_FFMPEG_PATH" default:"ffmpeg"`
	FFprobePath       string        `envconfig:"CLIPHIVE_MEDIA_FFPROBE_PATH" default:"ffprobe"`
	ProbeTimeout      time.Duration `envconfig:"CLIPHIVE_MEDIA_PROBE_TIMEOUT" default:"15s"`
}

type ThumbnailConfig struct {
	Quality int `envconfig:"CLIPHIVE_THUMBNAIL_QUALITY" default:"4"`
}

type ObjectStoreConfig struct {
	BaseURL         string        `envconfig:"CLIPHIVE_OBJSTORE_BASE_URL" required:"true"`
	PublicBaseURL   string        `envconfig:"CLIPHIVE_OBJSTORE_PUBLIC_BASE_URL"`
	VideoBucket     string        `envconfig:"CLIPHIVE_OBJSTORE_VIDEO_BUCKET" default:"videos"`
	ThumbnailBucket string        `envconfig:"CLIPHIVE_OBJSTORE_THUMBNAIL_BUCKET" default:"thumbnails"`
	RequestTimeout  time.Duration `envconfig:"CLIPHIVE_OBJSTORE_REQUEST_TIMEOUT" default:"60s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CLIPHIVE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CLIPHIVE_AUTO_MIGRATE" default:"false"`
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
