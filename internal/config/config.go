package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	_ "github.com/joho/godotenv/autoload"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"billing-ledger/internal/domain"
)

const (
	prefix = "LEDGER"

	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

const defaultSQLiteFile = "ledger.db"

// Config is read from LEDGER_* environment variables. A .env file in the
// working directory is loaded first. API keys are not configuration; the
// operator saves them as settings.
type Config struct {
	// DBDSN, when set, replaces the default SQLite file or the DSN built from DB.
	DBDriver string `envconfig:"DB_DRIVER" default:"sqlite"`
	DBDSN    string `envconfig:"DB_DSN"`
	DB       PostgresConfig

	HTTPAddr       string   `envconfig:"HTTP_ADDR" default:"127.0.0.1:8080"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173"`
	ShopName       string   `envconfig:"SHOP_NAME"`

	DefaultStatus string `envconfig:"DEFAULT_STATUS" default:"pending"`
	Timezone      string `envconfig:"TIMEZONE" default:"UTC"`

	ReconcileInterval time.Duration `envconfig:"RECONCILE_INTERVAL" default:"1m"`
	ReconcileGrace    time.Duration `envconfig:"RECONCILE_GRACE" default:"1m"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	Recognition ProviderConfig `envconfig:"RECOGNITION"`
	Analysis    ProviderConfig `envconfig:"ANALYSIS"`
}

// PostgresConfig builds a DSN when LEDGER_DB_DRIVER=postgres and
// LEDGER_DB_DSN is unset.
type PostgresConfig struct {
	Host     string `envconfig:"HOST" default:"localhost"`
	Port     string `envconfig:"PORT" default:"5432"`
	Username string `envconfig:"USERNAME"`
	Password string `envconfig:"PASSWORD"`
	Database string `envconfig:"DATABASE"`
	Schema   string `envconfig:"SCHEMA" default:"public"`
}

type ProviderConfig struct {
	Provider    string `envconfig:"PROVIDER"`
	BaseURL     string `envconfig:"BASE_URL"`
	VisionModel string `envconfig:"VISION_MODEL"`
	ChatModel   string `envconfig:"CHAT_MODEL"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	if cfg.Recognition.Provider == "" {
		cfg.Recognition.Provider = ProviderOpenAI
	}
	if cfg.Analysis.Provider == "" {
		cfg.Analysis.Provider = ProviderGemini
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if _, err := domain.ParseOrderStatus(c.DefaultStatus); err != nil {
		return errors.Wrap(err, "LEDGER_DEFAULT_STATUS")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return errors.Wrap(err, "LEDGER_TIMEZONE")
	}
	if c.ReconcileInterval <= 0 {
		return errors.New("LEDGER_RECONCILE_INTERVAL must be positive")
	}
	for _, p := range []string{c.Recognition.Provider, c.Analysis.Provider} {
		if p != ProviderOpenAI && p != ProviderGemini {
			return errors.Errorf("unknown provider %q", p)
		}
	}
	return nil
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) OrderStatus() domain.OrderStatus {
	status, err := domain.ParseOrderStatus(c.DefaultStatus)
	if err != nil {
		return domain.OrderPending
	}
	return status
}

// DSN returns the connection string for the configured driver.
func (c *Config) DSN() string {
	if c.DBDSN != "" {
		return c.DBDSN
	}
	if c.DBDriver != "postgres" {
		return defaultSQLiteFile
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		c.DB.Username,
		c.DB.Password,
		c.DB.Host,
		c.DB.Port,
		c.DB.Database,
		c.DB.Schema,
	)
}

// ConfigureLogging applies LOG_LEVEL and LOG_FORMAT to the standard logger.
func (c *Config) ConfigureLogging() {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if strings.EqualFold(c.LogFormat, "text") {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
		return
	}
	log.SetFormatter(&log.JSONFormatter{})
}
