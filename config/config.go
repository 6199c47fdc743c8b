package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via config files or the environment.
type AppConfig struct {
	AppPort        string
	JWTSecret      string
	JWTExpireHours int
	DatabaseURI    string
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	// Redis for caching / dedup tracking
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// External manufacturing registry
	RegistryBaseURL    string
	RegistryTimeoutSec int
	// Reward policy
	ScanRewardPoints int
	// Advisory scan dedup tracker
	ScanCooldownSec     int
	ScanSessionTTLHours int
	// Scan flood controls
	ScanMaxPerIPPerDay      int
	ScanAttemptCooldownSec  int
	ScanRejectMaxPerIPPerHr int
	ScanTempBanMinutes      int
	// Rate limiting and CORS
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
// Precedence: config/config.json -> defaults -> environment variable overrides.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	_ = loadJSONConfig(filepath.Join("config", "config.json"), &cfg)
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads JSON file into cfg if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	dec := json.NewDecoder(f)
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case float64:
				return int(t)
			case int:
				return t
			case json.Number:
				i, _ := t.Int64()
				return int(i)
			}
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		if v, ok := m[key]; ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
		return false
	}
	getStringSlice := func(m map[string]any, key string) []string {
		if v, ok := m[key]; ok {
			if arr, ok := v.([]any); ok {
				res := make([]string, 0, len(arr))
				for _, it := range arr {
					if s, ok := it.(string); ok {
						res = append(res, s)
					}
				}
				return res
			}
		}
		return nil
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.JWTSecret = getString(app, "JWTSecret")
		if v := getInt(app, "JWTExpireHours"); v != 0 {
			out.JWTExpireHours = v
		}
		if v := getInt(app, "RateLimitPerMinute"); v != 0 {
			out.RateLimitPerMinute = v
		}
		if list := getStringSlice(app, "AllowedOrigins"); len(list) > 0 {
			out.AllowedOrigins = list
		}
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		if v := getInt(rds, "RedisPort"); v != 0 {
			out.RedisPort = v
		}
		if v := getInt(rds, "RedisDB"); v != 0 {
			out.RedisDB = v
		}
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if rg, ok := raw["registry"].(map[string]any); ok {
		out.RegistryBaseURL = getString(rg, "BaseURL")
		if v := getInt(rg, "TimeoutSec"); v != 0 {
			out.RegistryTimeoutSec = v
		}
	}

	if sc, ok := raw["scan"].(map[string]any); ok {
		if v := getInt(sc, "RewardPoints"); v != 0 {
			out.ScanRewardPoints = v
		}
		if v := getInt(sc, "CooldownSec"); v != 0 {
			out.ScanCooldownSec = v
		}
		if v := getInt(sc, "SessionTTLHours"); v != 0 {
			out.ScanSessionTTLHours = v
		}
		if v := getInt(sc, "MaxPerIPPerDay"); v != 0 {
			out.ScanMaxPerIPPerDay = v
		}
		if v := getInt(sc, "AttemptCooldownSec"); v != 0 {
			out.ScanAttemptCooldownSec = v
		}
		if v := getInt(sc, "RejectMaxPerIPPerHr"); v != 0 {
			out.ScanRejectMaxPerIPPerHr = v
		}
		if v := getInt(sc, "TempBanMinutes"); v != 0 {
			out.ScanTempBanMinutes = v
		}
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		if v := getString(lg, "Level"); v != "" {
			out.LogLevel = v
		}
		if v := getString(lg, "Path"); v != "" {
			out.LogPath = v
		}
		if v := getString(lg, "GinMode"); v != "" {
			out.GinMode = v
		}
		if v := getString(lg, "GinPath"); v != "" {
			out.GinPath = v
		}
		if v := getInt(lg, "MaxSizeMB"); v != 0 {
			out.LogMaxSizeMB = v
		}
		if v := getInt(lg, "MaxBackups"); v != 0 {
			out.LogMaxBackups = v
		}
		if v := getInt(lg, "MaxAgeDays"); v != 0 {
			out.LogMaxAgeDays = v
		}
		out.LogCompress = getBool(lg, "Compress")
	}

	// Also support reading flat keys directly for backward compatibility
	if v, ok := raw["AppPort"]; ok && out.AppPort == "" {
		out.AppPort, _ = v.(string)
	}
	if v, ok := raw["JWTSecret"]; ok && out.JWTSecret == "" {
		out.JWTSecret, _ = v.(string)
	}
	if v, ok := raw["DatabaseURI"]; ok && out.DatabaseURI == "" {
		out.DatabaseURI, _ = v.(string)
	}
	if v, ok := raw["RegistryBaseURL"]; ok && out.RegistryBaseURL == "" {
		out.RegistryBaseURL, _ = v.(string)
	}
	if v, ok := raw["ScanRewardPoints"]; ok && out.ScanRewardPoints == 0 {
		if f, ok := v.(float64); ok {
			out.ScanRewardPoints = int(f)
		}
	}
	if v, ok := raw["RateLimitPerMinute"]; ok && out.RateLimitPerMinute == 0 {
		if f, ok := v.(float64); ok {
			out.RateLimitPerMinute = int(f)
		}
	}
	if v, ok := raw["AllowedOrigins"]; ok && len(out.AllowedOrigins) == 0 {
		if arr, ok := v.([]any); ok {
			for _, it := range arr {
				if s, ok := it.(string); ok {
					out.AllowedOrigins = append(out.AllowedOrigins, s)
				}
			}
		}
	}

	return nil
}

func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.JWTExpireHours == 0 {
		c.JWTExpireHours = 72
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "techrewards"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.RegistryTimeoutSec == 0 {
		c.RegistryTimeoutSec = 5
	}
	if c.ScanRewardPoints == 0 {
		c.ScanRewardPoints = 10
	}
	if c.ScanCooldownSec == 0 {
		c.ScanCooldownSec = 5
	}
	if c.ScanSessionTTLHours == 0 {
		c.ScanSessionTTLHours = 24
	}
	if c.ScanMaxPerIPPerDay == 0 {
		c.ScanMaxPerIPPerDay = 200
	}
	if c.ScanAttemptCooldownSec == 0 {
		c.ScanAttemptCooldownSec = 1
	}
	if c.ScanRejectMaxPerIPPerHr == 0 {
		c.ScanRejectMaxPerIPPerHr = 60
	}
	if c.ScanTempBanMinutes == 0 {
		c.ScanTempBanMinutes = 60
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("APP_PORT", ""); v != "" {
		c.AppPort = v
	}
	if v := getEnv("JWT_SECRET", ""); v != "" {
		c.JWTSecret = v
	}
	if v := getEnv("JWT_EXPIRE_HOURS", ""); v != "" {
		c.JWTExpireHours = mustParseInt(v)
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		c.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		c.DBPort = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		c.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		c.DBPassword = v
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		c.DBName = v
	}
	if v := getEnv("REDIS_HOST", ""); v != "" {
		c.RedisHost = v
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	if v := getEnv("REGISTRY_BASE_URL", ""); v != "" {
		c.RegistryBaseURL = v
	}
	if v := getEnv("REGISTRY_TIMEOUT_SEC", ""); v != "" {
		c.RegistryTimeoutSec = mustParseInt(v)
	}
	if v := getEnv("SCAN_REWARD_POINTS", ""); v != "" {
		c.ScanRewardPoints = mustParseInt(v)
	}
	if v := getEnv("SCAN_COOLDOWN_SEC", ""); v != "" {
		c.ScanCooldownSec = mustParseInt(v)
	}
	if v := getEnv("SCAN_SESSION_TTL_HOURS", ""); v != "" {
		c.ScanSessionTTLHours = mustParseInt(v)
	}
	if v := getEnv("SCAN_MAX_PER_IP_PER_DAY", ""); v != "" {
		c.ScanMaxPerIPPerDay = mustParseInt(v)
	}
	if v := getEnv("SCAN_ATTEMPT_COOLDOWN_SEC", ""); v != "" {
		c.ScanAttemptCooldownSec = mustParseInt(v)
	}
	if v := getEnv("SCAN_REJECT_MAX_PER_IP_PER_HOUR", ""); v != "" {
		c.ScanRejectMaxPerIPPerHr = mustParseInt(v)
	}
	if v := getEnv("SCAN_TEMP_BAN_MINUTES", ""); v != "" {
		c.ScanTempBanMinutes = mustParseInt(v)
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		c.RateLimitPerMinute = mustParseInt(v)
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
