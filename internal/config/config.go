package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime configuration for the report service and CLI.
type Config struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	LogLevel  string
	LogFormat string

	DataDir      string
	DataURL      string
	FetchTimeout time.Duration
	PagesFile    string
	Palette      []string
	CDNBase      string

	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration

	CatalogEnabled    bool
	CatalogDriver     string
	CatalogSQLitePath string

	DBHost         string
	DBPort         int
	DBUser         string
	DBPassword     string
	DBName         string
	DBConnTimeout  time.Duration
	DBQueryTimeout time.Duration
}

// FromEnv loads configuration from environment variables with sensible defaults.
func FromEnv() Config {
	loadConfigDefaultsFromFile()
	loadSecretsDefaultsFromFile()

	return Config{
		ListenAddr:        getEnv("APP_LISTEN_ADDR", ":8080"),
		ReadTimeout:       time.Duration(getEnvInt("APP_READ_TIMEOUT_SEC", 10)) * time.Second,
		WriteTimeout:      time.Duration(getEnvInt("APP_WRITE_TIMEOUT_SEC", 20)) * time.Second,
		ShutdownTimeout:   time.Duration(getEnvInt("APP_SHUTDOWN_TIMEOUT_SEC", 10)) * time.Second,
		LogLevel:          getEnv("APP_LOG_LEVEL", "info"),
		LogFormat:         getEnv("APP_LOG_FORMAT", "json"),
		DataDir:           getEnv("APP_DATA_DIR", "./data"),
		DataURL:           getEnv("APP_DATA_URL", ""),
		FetchTimeout:      time.Duration(getEnvInt("APP_FETCH_TIMEOUT_SEC", 10)) * time.Second,
		PagesFile:         getEnv("APP_PAGES_FILE", ""),
		Palette:           getEnvList("APP_PALETTE", nil),
		CDNBase:           getEnv("APP_CDN_BASE", "https://code.highcharts.com"),
		RedisEnabled:      getEnvBool("APP_REDIS_ENABLED", false),
		RedisAddr:         getEnv("APP_REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:     getEnv("APP_REDIS_PASSWORD", ""),
		RedisDB:           getEnvInt("APP_REDIS_DB", 0),
		RedisTTL:          time.Duration(getEnvInt("APP_REDIS_TTL_SEC", 300)) * time.Second,
		CatalogEnabled:    getEnvBool("APP_CATALOG_ENABLED", false),
		CatalogDriver:     strings.ToLower(getEnv("APP_CATALOG_DRIVER", "mysql")),
		CatalogSQLitePath: getEnv("APP_CATALOG_SQLITE_PATH", ""),
		DBHost:            getEnv("APP_DB_HOST", "127.0.0.1"),
		DBPort:            getEnvInt("APP_DB_PORT", 3306),
		DBUser:            getEnv("APP_DB_USER", "samadhi"),
		DBPassword:        getEnv("APP_DB_PASSWORD", ""),
		DBName:            getEnv("APP_DB_NAME", "SAMADhi"),
		DBConnTimeout:     time.Duration(getEnvInt("APP_DB_CONN_TIMEOUT_SEC", 5)) * time.Second,
		DBQueryTimeout:    time.Duration(getEnvInt("APP_DB_QUERY_TIMEOUT_SEC", 30)) * time.Second,
	}
}

// Validate rejects combinations the service cannot start with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" && strings.TrimSpace(c.DataURL) == "" {
		return fmt.Errorf("one of APP_DATA_DIR or APP_DATA_URL is required")
	}
	if c.CatalogEnabled {
		switch c.CatalogDriver {
		case "mysql":
		case "sqlite":
			if strings.TrimSpace(c.CatalogSQLitePath) == "" {
				return fmt.Errorf("APP_CATALOG_SQLITE_PATH is required for the sqlite catalogue driver")
			}
		default:
			return fmt.Errorf("unknown APP_CATALOG_DRIVER %q", c.CatalogDriver)
		}
	}
	if c.RedisEnabled && strings.TrimSpace(c.RedisAddr) == "" {
		return fmt.Errorf("APP_REDIS_ADDR is required when redis is enabled")
	}
	return nil
}

func loadConfigDefaultsFromFile() {
	bootstrapCandidates := []string{
		"./samadhi-report.env",
		"/etc/default/samadhi-report",
	}
	for _, candidate := range bootstrapCandidates {
		_ = applyEnvDefaultsFromFile(absPath(candidate))
	}

	candidates := make([]string, 0, 2)
	if explicit := strings.TrimSpace(os.Getenv("APP_CONFIG_FILE")); explicit != "" {
		candidates = append(candidates, explicit)
	}
	candidates = append(candidates, "/etc/samadhi-report/config.env")

	for _, candidate := range candidates {
		if err := applyEnvDefaultsFromFile(absPath(candidate)); err == nil {
			return
		}
	}
}

func loadSecretsDefaultsFromFile() {
	candidates := make([]string, 0, 3)
	if explicit := strings.TrimSpace(os.Getenv("APP_SECRETS_FILE")); explicit != "" {
		candidates = append(candidates, explicit)
	}
	if credDir := strings.TrimSpace(os.Getenv("CREDENTIALS_DIRECTORY")); credDir != "" {
		credName := strings.TrimSpace(os.Getenv("APP_SECRETS_CREDENTIAL_NAME"))
		if credName == "" {
			credName = "app-secrets"
		}
		candidates = append(candidates, filepath.Join(credDir, credName))
	}
	candidates = append(candidates, "/etc/samadhi-report/secrets.env")
	for _, candidate := range candidates {
		if err := applyEnvDefaultsFromFile(candidate); err == nil {
			return
		}
	}
}

func absPath(candidate string) string {
	if filepath.IsAbs(candidate) {
		return candidate
	}
	if wd, err := os.Getwd(); err == nil {
		return filepath.Join(wd, candidate)
	}
	return candidate
}

// applyEnvDefaultsFromFile sets the variables of an env file that are not
// already set in the process environment.
func applyEnvDefaultsFromFile(path string) error {
	values, err := godotenv.Read(path)
	if err != nil {
		return err
	}
	for key, val := range values {
		if strings.TrimSpace(key) == "" {
			continue
		}
		if os.Getenv(key) == "" {
			_ = os.Setenv(key, val)
		}
	}
	return nil
}

// MySQLDSN returns a mysql driver DSN with safe defaults for TCP access.
func (c Config) MySQLDSN() string {
	params := url.Values{}
	params.Set("parseTime", "true")
	params.Set("timeout", c.DBConnTimeout.String())
	params.Set("readTimeout", c.DBQueryTimeout.String())
	params.Set("writeTimeout", c.DBQueryTimeout.String())
	params.Set("charset", "utf8mb4")
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s", c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, params.Encode())
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return parsed
}

func getEnvBool(key string, def bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return parsed
}

func getEnvList(key string, def []string) []string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		out := make([]string, 0, len(def))
		for _, d := range def {
			d = strings.TrimSpace(d)
			if d != "" {
				out = append(out, d)
			}
		}
		return out
	}

	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
