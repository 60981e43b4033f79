package config // package config loads application configuration from environment variables

import (
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values. Each field corresponds to an
// environment variable; defaults let the service start in development with
// nothing set except the database credentials.
type Config struct {
	Env        string        // application environment (e.g. "development", "production")
	Port       string        // HTTP port to listen on
	DBUser     string        // database username
	DBPass     string        // database password (optional)
	DBHost     string        // database host address
	DBPort     string        // database port number
	DBName     string        // database name
	JWTSecret  string        // secret used to sign JWTs
	AccessTTL  time.Duration // access token lifetime (default 15 min)
	RefreshTTL time.Duration // refresh token lifetime (default 30 days)
	BcryptCost int           // bcrypt cost for password hashing

	LoginRate LoginRateConfig
}

// LoginRateConfig bounds how often a single client may attempt to log in.
// It applies only to the login endpoints; everything else is unmetered.
type LoginRateConfig struct {
	Enabled bool
	Rate    float64       // sustained attempts per second per client
	Burst   int           // extra attempts allowed in a burst
	IdleTTL time.Duration // how long an idle client's limiter is retained
}

// Load reads configuration from environment variables. Token lifetimes are
// given in seconds, following the JWT_*_TOKEN_EXPIRES convention.
func Load() Config {
	return Config{
		Env:        envStr("APP_ENV", "development"),
		Port:       envStr("APP_PORT", "5000"),
		DBUser:     envStr("DB_USER", "root"),
		DBPass:     os.Getenv("DB_PASSWORD"),
		DBHost:     envStr("DB_HOST", "localhost"),
		DBPort:     envStr("DB_PORT", "3306"),
		DBName:     envStr("DB_NAME", "jwt_auth_db"),
		JWTSecret:  envStr("JWT_SECRET_KEY", "your-super-secret-jwt-key-change-this-in-production"),
		AccessTTL:  time.Duration(envInt("JWT_ACCESS_TOKEN_EXPIRES", 900)) * time.Second,
		RefreshTTL: time.Duration(envInt("JWT_REFRESH_TOKEN_EXPIRES", 2592000)) * time.Second,
		BcryptCost: envInt("BCRYPT_COST", 10),
		LoginRate: LoginRateConfig{
			Enabled: envBool("LOGIN_RATE_ENABLED", true),
			Rate:    float64(envInt("LOGIN_RATE_PER_MIN", 30)) / 60.0,
			Burst:   envInt("LOGIN_RATE_BURST", 10),
			IdleTTL: envDur("LOGIN_RATE_IDLE_TTL", 10*time.Minute),
		},
	}
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
