package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	MaxRetries    int
	RateLimitMs   int
	FetchTimeout  int // seconds per page navigation
	SeasonOnly    bool
	Preflight     bool
	PreflightDate string // known-good archived date used by the preflight check
	Verbose       bool

	RequestsPath    string
	RawCSVPath      string
	CleanCSVPath    string
	ProblemsCSVPath string
	ChromeBin       string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "avalanche_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		MaxRetries:    getEnvInt("MAX_RETRIES", 3),
		RateLimitMs:   getEnvInt("RATE_LIMIT_MS", 5000),
		FetchTimeout:  getEnvInt("FETCH_TIMEOUT_SEC", 60),
		SeasonOnly:    getEnvBool("SEASON_ONLY", true),
		Preflight:     getEnvBool("PREFLIGHT", true),
		PreflightDate: getEnv("PREFLIGHT_DATE", "2019-12-01"),
		Verbose:       getEnvBool("VERBOSE", false),

		RequestsPath:    getEnv("REQUESTS_PATH", "./scrape_inputs.json"),
		RawCSVPath:      getEnv("RAW_CSV_PATH", "./output/raw_ratings.csv"),
		CleanCSVPath:    getEnv("CLEAN_CSV_PATH", "./output/cleaned_ratings.csv"),
		ProblemsCSVPath: getEnv("PROBLEMS_CSV_PATH", "./output/problems.csv"),
		ChromeBin:       getEnv("CHROME_BIN", ""),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
