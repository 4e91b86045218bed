package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"MiniShop/internal/storage"
)

const (
	defaultPort        = "5050"
	defaultSQLiteDSN   = "file:shop.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	defaultLogLevel    = "info"
	defaultCheckoutRPM = 60
)

type Config struct {
	Port        string
	DBDriver    storage.Driver
	DatabaseURL string
	LogLevel    string
	SeedDemo    bool

	MetricsToken string

	// CheckoutPerMinute limits checkouts per client IP; 0 disables it.
	CheckoutPerMinute int
	TraceStdout       bool
}

// Load reads .env files when present (existing environment wins), then the
// environment.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	driver, err := storage.ParseDriver(getenv("DB_DRIVER", string(storage.SQLite)))
	if err != nil {
		return Config{}, err
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		if driver != storage.SQLite {
			return Config{}, fmt.Errorf("DATABASE_URL is required for %s", driver)
		}
		dsn = defaultSQLiteDSN
	}

	seed, err := getbool("SEED_DEMO", true)
	if err != nil {
		return Config{}, err
	}
	trace, err := getbool("TRACE_STDOUT", false)
	if err != nil {
		return Config{}, err
	}
	rpm, err := getint("CHECKOUT_RATE_LIMIT", defaultCheckoutRPM)
	if err != nil {
		return Config{}, err
	}
	if rpm < 0 {
		return Config{}, fmt.Errorf("CHECKOUT_RATE_LIMIT must be >= 0, got %d", rpm)
	}

	return Config{
		Port:              getenv("PORT", defaultPort),
		DBDriver:          driver,
		DatabaseURL:       dsn,
		LogLevel:          getenv("LOG_LEVEL", defaultLogLevel),
		SeedDemo:          seed,
		MetricsToken:      os.Getenv("METRICS_TOKEN"),
		CheckoutPerMinute: rpm,
		TraceStdout:       trace,
	}, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getbool(k string, def bool) (bool, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", k, err)
	}
	return b, nil
}

func getint(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}
