package cmd

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"atmfinder/internal/locator"
	"atmfinder/internal/mapview"
	"atmfinder/internal/model"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds CLI configuration.
type Config struct {
	APIURL      string
	APIKey      string
	Origin      model.Location
	PostalCode  string
	Country     string
	Unit        model.DistanceUnit
	PageLength  int
	Zoom        int
	DBPath      string
	CacheTTL    time.Duration
	LogLevel    string
	LogFile     string
	MetricsAddr string
	Demo        bool
	ConfigDir   string
	ShowVersion bool
}

// ParseFlags parses command-line flags and returns configuration.
func ParseFlags(version string) (*Config, error) {
	// Load .env files first so env-based defaults work with existing flag parsing.
	loadDotEnv(".env")
	loadDotEnv(".env.local")

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	configDir := filepath.Join(home, ".atmfinder")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	flag.CommandLine.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "atmfinder %s\n\nUsage of atmfinder:\n", version)
		flag.PrintDefaults()
	}

	config, err := parse(flag.CommandLine, os.Args[1:], configDir)
	if err != nil {
		return nil, err
	}
	if config.ShowVersion {
		return config, nil
	}

	settings, err := loadOnboardingSettings(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load onboarding settings: %w", err)
	}

	if config.APIURL == "" && !config.Demo && shouldRunOnboarding(settings) {
		settings, err = runOnboarding(configDir, config.APIURL, config.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to run onboarding: %w", err)
		}
	}

	if err := applyOnboarding(config, settings); err != nil {
		return nil, fmt.Errorf("failed to load secure API key: %w", err)
	}
	return config, nil
}

// newViper layers defaults, the optional config.yaml and ATMFINDER_* env vars.
func newViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault("api_url", "")
	v.SetDefault("api_key", "")
	v.SetDefault("latitude", 40.742859)
	v.SetDefault("longitude", -74.000284)
	v.SetDefault("postal_code", "10011")
	v.SetDefault("country", "USA")
	v.SetDefault("distance_unit", string(model.UnitKilometer))
	v.SetDefault("page_length", locator.DefaultPageLength)
	v.SetDefault("zoom", mapview.DefaultZoom)
	v.SetDefault("db_path", filepath.Join(configDir, "cache.db"))
	v.SetDefault("cache_ttl", 10*time.Minute)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", filepath.Join(configDir, "atmfinder.log"))
	v.SetDefault("metrics_addr", "")
	v.SetDefault("demo", false)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// ATMFINDER_POSTAL_CODE -> postal_code
	v.SetEnvPrefix("ATMFINDER")
	v.AutomaticEnv()

	return v, nil
}

func parse(fs *flag.FlagSet, args []string, configDir string) (*Config, error) {
	v, err := newViper(configDir)
	if err != nil {
		return nil, err
	}

	config := &Config{ConfigDir: configDir}
	var unit string

	fs.StringVar(&config.APIURL, "api", v.GetString("api_url"), "Base URL of the ATM locator API (empty runs demo data)")
	fs.StringVar(&config.APIKey, "api-key", v.GetString("api_key"), "Bearer key for the locator API")
	fs.Float64Var(&config.Origin.Latitude, "lat", v.GetFloat64("latitude"), "Search origin latitude")
	fs.Float64Var(&config.Origin.Longitude, "lng", v.GetFloat64("longitude"), "Search origin longitude")
	fs.StringVar(&config.PostalCode, "postal", v.GetString("postal_code"), "Postal code sent with every search")
	fs.StringVar(&config.Country, "country", v.GetString("country"), "Country code sent with every search")
	fs.StringVar(&unit, "unit", v.GetString("distance_unit"), "Distance unit: KILOMETER or MILE")
	fs.IntVar(&config.PageLength, "page-length", v.GetInt("page_length"), "ATMs requested per page")
	fs.IntVar(&config.Zoom, "zoom", v.GetInt("zoom"), "Initial map zoom level")
	fs.StringVar(&config.DBPath, "db", v.GetString("db_path"), "Path to the SQLite page cache")
	fs.DurationVar(&config.CacheTTL, "cache-ttl", v.GetDuration("cache_ttl"), "Page cache lifetime (0 disables the cache)")
	fs.StringVar(&config.LogLevel, "log-level", v.GetString("log_level"), "Log level: debug, info, warn, error")
	fs.StringVar(&config.LogFile, "log-file", v.GetString("log_file"), "Log file path")
	fs.StringVar(&config.MetricsAddr, "metrics-addr", v.GetString("metrics_addr"), "Serve Prometheus metrics on this address (e.g. :9090)")
	fs.BoolVar(&config.Demo, "demo", v.GetBool("demo"), "Use built-in demo ATMs instead of the API")
	fs.BoolVar(&config.ShowVersion, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	parsed, err := model.ParseDistanceUnit(unit)
	if err != nil {
		return nil, err
	}
	config.Unit = parsed
	config.APIURL = strings.TrimRight(strings.TrimSpace(config.APIURL), "/")
	config.APIKey = strings.TrimSpace(config.APIKey)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks that flag values are usable.
func (c *Config) Validate() error {
	var errs []string

	if c.PageLength <= 0 {
		errs = append(errs, fmt.Sprintf("page-length must be positive, got %d", c.PageLength))
	}
	if c.Origin.Latitude < -90 || c.Origin.Latitude > 90 {
		errs = append(errs, fmt.Sprintf("lat must be within [-90, 90], got %g", c.Origin.Latitude))
	}
	if c.Origin.Longitude < -180 || c.Origin.Longitude > 180 {
		errs = append(errs, fmt.Sprintf("lng must be within [-180, 180], got %g", c.Origin.Longitude))
	}
	if c.Zoom < mapview.MinZoom || c.Zoom > mapview.MaxZoom {
		errs = append(errs, fmt.Sprintf("zoom must be within [%d, %d], got %d", mapview.MinZoom, mapview.MaxZoom, c.Zoom))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, "cache-ttl must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

// applyOnboarding fills in what flags and env left unset from the saved
// onboarding choice. Without either, the app falls back to demo data.
func applyOnboarding(config *Config, settings OnboardingSettings) error {
	if config.APIURL == "" && !config.Demo {
		if settings.Mode == ModeAPI && settings.APIURL != "" {
			config.APIURL = settings.APIURL
		} else {
			config.Demo = true
		}
	}
	if config.Demo || config.APIKey != "" {
		return nil
	}

	key, err := loadSecureAPIKey(config.ConfigDir)
	if err != nil {
		return err
	}
	config.APIKey = key
	return nil
}

// loadDotEnv loads path if it exists. Variables already set in the
// environment win.
func loadDotEnv(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	_ = godotenv.Load(path)
}
