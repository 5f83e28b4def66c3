package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultImageHosts are the image hosts accepted when IMAGE_HOSTS is unset.
var DefaultImageHosts = []string{
	"media.admagazine.com",
	"images.unsplash.com",
	"placehold.co",
	"images.example.com",
	"res.cloudinary.com",
	"www.google.com",
}

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable.
type Config struct {
	Env                  string        // application environment (dev, prod)
	Port                 string        // HTTP port to listen on
	AppURL               string        // public base URL used in mailed links
	DBUser               string        // database username
	DBPass               string        // database password (optional)
	DBHost               string        // database host address
	DBPort               string        // database port number
	DBName               string        // database name
	JWTSecret            string        // secret used to sign session tokens
	SessionTTL           time.Duration // session token lifetime
	BcryptCost           int           // bcrypt cost for password hashing
	RequireVerifiedEmail bool          // block sign-in until the email is verified
	ImageHosts           []string      // allow-listed image hostnames
	RabbitMQURL          string        // broker for the mail queue; empty disables it
	Mail                 MailConfig
}

// MailConfig describes the SMTP transport. An empty Host means mails are
// only logged.
type MailConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}

// Load reads configuration values from environment variables. Missing
// required variables are reported together in the returned error.
func Load() (Config, error) {
	var missing []string
	must := func(key string) string {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := Config{
		Env:                  getenv("APP_ENV", "dev"),
		Port:                 must("APP_PORT"),
		AppURL:               strings.TrimRight(getenv("APP_URL", "http://localhost:3000"), "/"),
		DBUser:               must("DB_USER"),
		DBPass:               os.Getenv("DB_PASS"),
		DBHost:               must("DB_HOST"),
		DBPort:               must("DB_PORT"),
		DBName:               must("DB_NAME"),
		JWTSecret:            must("JWT_SECRET"),
		SessionTTL:           time.Duration(envInt("SESSION_TTL_DAYS", 30)) * 24 * time.Hour,
		BcryptCost:           envInt("BCRYPT_COST", 10),
		RequireVerifiedEmail: envBool("REQUIRE_VERIFIED_EMAIL", true),
		ImageHosts:           parseList(getenv("IMAGE_HOSTS", strings.Join(DefaultImageHosts, ","))),
		RabbitMQURL:          rabbitURL(),
		Mail: MailConfig{
			Host: os.Getenv("SMTP_HOST"),
			Port: envInt("SMTP_PORT", 587),
			User: os.Getenv("SMTP_USER"),
			Pass: os.Getenv("SMTP_PASS"),
			From: getenv("MAIL_FROM", "Real Estate App <no-reply@realestate.com>"),
		},
	}
	if len(missing) > 0 {
		return cfg, fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return cfg, fmt.Errorf("invalid BCRYPT_COST: %d", cfg.BcryptCost)
	}
	if cfg.SessionTTL <= 0 {
		return cfg, errors.New("SESSION_TTL_DAYS must be positive")
	}
	return cfg, nil
}

// LoadDatabase reads only the variables needed to reach the database. The
// admin CLI uses it so that it can run without the HTTP settings.
func LoadDatabase() (Config, error) {
	cfg := Config{
		DBUser:     os.Getenv("DB_USER"),
		DBPass:     os.Getenv("DB_PASS"),
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     getenv("DB_PORT", "3306"),
		DBName:     os.Getenv("DB_NAME"),
		BcryptCost: envInt("BCRYPT_COST", 10),
		Env:        getenv("APP_ENV", "dev"),
	}
	if cfg.DBUser == "" || cfg.DBHost == "" || cfg.DBName == "" {
		return cfg, errors.New("DB_USER, DB_HOST and DB_NAME are required")
	}
	return cfg, nil
}

func rabbitURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}

func parseList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
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
