package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	RateLimit     RateLimitConfig
	Notifications NotificationConfig
	Cache         CacheConfig
	Policy        PolicyConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig configures bearer token verification. Tokens are issued elsewhere.
type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// RateLimitConfig bounds requests per user (or client IP) in a fixed window.
type RateLimitConfig struct {
	Enabled  bool
	Requests int
	Window   time.Duration
}

// NotificationConfig tunes the enrollment notification worker pool.
type NotificationConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// CacheConfig governs read-through caching of statistics and identity lookups.
type CacheConfig struct {
	StatisticsTTL time.Duration
	IdentityTTL   time.Duration
}

// PolicyConfig holds the tunable thresholds of the attendance and progress engines.
type PolicyConfig struct {
	ProgressAssignmentWeight  float64
	ProgressAttendanceWeight  float64
	AtRiskPercentage          float64
	AtRiskConsecutiveAbsences int
	StreakWindow              int
	RecentWindowDays          int
	LowAttendanceThreshold    float64
	RevalidateReactivation    bool
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() PolicyConfig {
	return PolicyConfig{
		ProgressAssignmentWeight:  0.6,
		ProgressAttendanceWeight:  0.4,
		AtRiskPercentage:          75,
		AtRiskConsecutiveAbsences: 3,
		StreakWindow:              30,
		RecentWindowDays:          30,
		LowAttendanceThreshold:    75,
	}
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.RateLimit = RateLimitConfig{
		Enabled:  v.GetBool("RATE_LIMIT_ENABLED"),
		Requests: v.GetInt("RATE_LIMIT_REQUESTS"),
		Window:   parseDuration(v.GetString("RATE_LIMIT_WINDOW"), time.Hour),
	}

	cfg.Notifications = NotificationConfig{
		Workers:    v.GetInt("NOTIFICATION_WORKERS"),
		BufferSize: v.GetInt("NOTIFICATION_BUFFER_SIZE"),
		MaxRetries: v.GetInt("NOTIFICATION_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("NOTIFICATION_RETRY_DELAY"), 5*time.Second),
	}

	cfg.Cache = CacheConfig{
		StatisticsTTL: parseDuration(v.GetString("STATISTICS_CACHE_TTL"), 5*time.Minute),
		IdentityTTL:   parseDuration(v.GetString("IDENTITY_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Policy = PolicyConfig{
		ProgressAssignmentWeight:  v.GetFloat64("POLICY_PROGRESS_ASSIGNMENT_WEIGHT"),
		ProgressAttendanceWeight:  v.GetFloat64("POLICY_PROGRESS_ATTENDANCE_WEIGHT"),
		AtRiskPercentage:          v.GetFloat64("POLICY_AT_RISK_PERCENTAGE"),
		AtRiskConsecutiveAbsences: v.GetInt("POLICY_AT_RISK_CONSECUTIVE_ABSENCES"),
		StreakWindow:              v.GetInt("POLICY_STREAK_WINDOW"),
		RecentWindowDays:          v.GetInt("POLICY_RECENT_WINDOW_DAYS"),
		LowAttendanceThreshold:    v.GetFloat64("POLICY_LOW_ATTENDANCE_THRESHOLD"),
		RevalidateReactivation:    v.GetBool("POLICY_REVALIDATE_REACTIVATION"),
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// weightTolerance absorbs float rounding in weight sums such as 0.7+0.3.
const weightTolerance = 1e-9

// Validate rejects policies the engines cannot evaluate.
func (p PolicyConfig) Validate() error {
	if p.ProgressAssignmentWeight < 0 || p.ProgressAttendanceWeight < 0 {
		return errors.New("progress weights must not be negative")
	}
	if p.ProgressAssignmentWeight+p.ProgressAttendanceWeight > 1+weightTolerance {
		return errors.New("progress weights must not sum to more than 1")
	}
	if p.StreakWindow <= 0 {
		return errors.New("streak window must be positive")
	}
	if p.RecentWindowDays <= 0 {
		return errors.New("recent window must be positive")
	}
	if p.AtRiskConsecutiveAbsences <= 0 {
		return errors.New("at-risk consecutive absences must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "school_core")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_REQUESTS", 1000)
	v.SetDefault("RATE_LIMIT_WINDOW", "1h")

	v.SetDefault("NOTIFICATION_WORKERS", 2)
	v.SetDefault("NOTIFICATION_BUFFER_SIZE", 256)
	v.SetDefault("NOTIFICATION_MAX_RETRIES", 3)
	v.SetDefault("NOTIFICATION_RETRY_DELAY", "5s")

	v.SetDefault("STATISTICS_CACHE_TTL", "5m")
	v.SetDefault("IDENTITY_CACHE_TTL", "10m")

	policy := DefaultPolicy()
	v.SetDefault("POLICY_PROGRESS_ASSIGNMENT_WEIGHT", policy.ProgressAssignmentWeight)
	v.SetDefault("POLICY_PROGRESS_ATTENDANCE_WEIGHT", policy.ProgressAttendanceWeight)
	v.SetDefault("POLICY_AT_RISK_PERCENTAGE", policy.AtRiskPercentage)
	v.SetDefault("POLICY_AT_RISK_CONSECUTIVE_ABSENCES", policy.AtRiskConsecutiveAbsences)
	v.SetDefault("POLICY_STREAK_WINDOW", policy.StreakWindow)
	v.SetDefault("POLICY_RECENT_WINDOW_DAYS", policy.RecentWindowDays)
	v.SetDefault("POLICY_LOW_ATTENDANCE_THRESHOLD", policy.LowAttendanceThreshold)
	v.SetDefault("POLICY_REVALIDATE_REACTIVATION", policy.RevalidateReactivation)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
