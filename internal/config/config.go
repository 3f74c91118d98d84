package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/medianbudget/backend/internal/models"
	"github.com/medianbudget/backend/internal/session"
	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid configuration")

// Config is the process configuration. It is loaded once at startup and
// passed to everything that needs it.
type Config struct {
	APIURL           string        `yaml:"apiUrl"`
	Listen           string        `yaml:"listen"`
	DBDriver         string        `yaml:"dbDriver"`
	DBDSN            string        `yaml:"dbDsn"`
	LogFormat        string        `yaml:"logFormat"`
	LogLevel         string        `yaml:"logLevel"`
	GinMode          string        `yaml:"ginMode"`
	CORSAllowOrigins []string      `yaml:"corsAllowOrigins"`
	EnablePprof      bool          `yaml:"enablePprof"`
	AdminKey         string        `yaml:"adminKey"`
	NATSURL          string        `yaml:"natsUrl"`
	GracePeriod      time.Duration `yaml:"gracePeriod"`
	Phase2Duration   time.Duration `yaml:"phase2Duration"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		APIURL:      "http://localhost:8080",
		Listen:      ":8080",
		DBDriver:    models.DriverSQLite,
		DBDSN:       "data/median-budget.db",
		LogLevel:    "info",
		GinMode:     "release",
		GracePeriod: 60 * time.Second,
	}
}

// Load reads the configuration. Values are taken from the defaults, then
// the YAML file at path if it is not empty, then the environment. Variables
// from the env files are added to the environment first, they never
// override variables that are already set.
func Load(path string, envFiles ...string) (Config, error) {
	c := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("could not read configuration file: %w", err)
		}

		if err := yaml.Unmarshal(data, &c); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}

	for _, f := range envFiles {
		err := godotenv.Load(f)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("could not load %s: %w", f, err)
		}
	}

	if err := c.fromEnv(); err != nil {
		return Config{}, err
	}

	return c, c.Validate()
}

func (c *Config) fromEnv() error {
	vars := map[string]*string{
		"API_URL":    &c.APIURL,
		"LISTEN":     &c.Listen,
		"DB_DRIVER":  &c.DBDriver,
		"DB_DSN":     &c.DBDSN,
		"LOG_FORMAT": &c.LogFormat,
		"LOG_LEVEL":  &c.LogLevel,
		"GIN_MODE":   &c.GinMode,
		"ADMIN_KEY":  &c.AdminKey,
		"NATS_URL":   &c.NATSURL,
	}

	for name, target := range vars {
		if v, ok := os.LookupEnv(name); ok {
			*target = v
		}
	}

	if v, ok := os.LookupEnv("CORS_ALLOW_ORIGINS"); ok {
		c.CORSAllowOrigins = fields(v)
	}

	if v, ok := os.LookupEnv("ENABLE_PPROF"); ok {
		c.EnablePprof = v == "true"
	}

	durations := map[string]*time.Duration{
		"GRACE_PERIOD":    &c.GracePeriod,
		"PHASE2_DURATION": &c.Phase2Duration,
	}

	for name, target := range durations {
		v, ok := os.LookupEnv(name)
		if !ok {
			continue
		}

		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, name, err)
		}
		*target = d
	}

	return nil
}

// Validate checks the configuration for values that cannot work.
func (c Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: API_URL must be an absolute URL, got %q", ErrInvalid, c.APIURL)
	}

	if c.DBDriver != models.DriverSQLite && c.DBDriver != models.DriverPostgres {
		return fmt.Errorf("%w: DB_DRIVER must be %s or %s, got %q", ErrInvalid, models.DriverSQLite, models.DriverPostgres, c.DBDriver)
	}

	if c.GracePeriod < 0 || c.Phase2Duration < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalid)
	}

	return nil
}

// URL returns the parsed API URL. It must only be called on a validated
// configuration.
func (c Config) URL() *url.URL {
	u, _ := url.Parse(c.APIURL)
	return u
}

// Sessions returns the defaults for new sessions.
func (c Config) Sessions() session.Settings {
	return session.Settings{
		GracePeriod:    c.GracePeriod,
		Phase2Duration: c.Phase2Duration,
	}
}

// fields splits a list separated by whitespace or commas.
func fields(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}
