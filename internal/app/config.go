package app

import (
	"context"
	"os"
	"strings"
	"time"

	"homestyle_sync/internal/config"
	"homestyle_sync/internal/contacts"
	"homestyle_sync/internal/dbmirror"
	"homestyle_sync/internal/drive"
	"homestyle_sync/internal/geocode"
	"homestyle_sync/internal/metrics"
	"homestyle_sync/internal/notifications"
	"homestyle_sync/internal/processing"
	"homestyle_sync/internal/reconcile"
	"homestyle_sync/internal/sheets"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupEnvironment loads .env file and configures zerolog output and log level.
func SetupEnvironment() {
	// Load .env file if it exists
	err := godotenv.Load()

	// Configure logging
	if os.Getenv("ENV") == "production" {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = log.Output(os.Stderr)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	levelStr := strings.ToLower(os.Getenv("LOGLEVEL"))
	switch levelStr {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	case "panic":
		zerolog.SetGlobalLevel(zerolog.PanicLevel)
	case "disabled":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	case "":
		// Default based on environment
		if os.Getenv("ENV") == "production" {
			zerolog.SetGlobalLevel(zerolog.WarnLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		log.Warn().Msgf("Unknown LOGLEVEL '%s', defaulting to info.", levelStr)
	}

	// wait until now to report on the .env file so we have the chance to set up logging first
	if err == nil {
		log.Debug().Msg("Loaded environment variables from .env file.")
	} else {
		log.Debug().Msg("No .env file found or error loading .env file; proceeding with existing environment variables.")
	}
}

// GetRequiredEnv fetches a required environment variable or exits if not set.
func GetRequiredEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatal().Msgf("%s environment variable is required", key)
	}
	return value
}

// LoadConfig reads the configuration or exits when it is unusable.
func LoadConfig() config.Config {
	GetRequiredEnv("SPREADSHEET_ID")
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	return cfg
}

// Clients holds every external service client of one run.
type Clients struct {
	Sheets     *sheets.Client
	Workbook   *sheets.RemoteWorkbook
	Drive      *drive.Client
	Contacts   *contacts.Client
	Geocoder   *geocode.Client
	Notifier   *notifications.Client
	Metrics    *metrics.Metrics
	DriveCache *reconcile.RedisDriveCache
	Mirror     *dbmirror.Mirror
}

// InitializeClients creates the Sheets client and the optional service
// clients. Only the Sheets client is required; the others are left nil when
// they cannot be created and the operations needing them report it.
func InitializeClients(ctx context.Context, cfg config.Config) *Clients {
	log.Debug().Msg("Initializing clients")

	sheetsClient, err := sheets.NewClient(ctx, cfg.CredentialsFile, cfg.SpreadsheetID, cfg.Resilience)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create sheets client")
	}

	c := &Clients{
		Sheets:   sheetsClient,
		Workbook: sheets.NewRemoteWorkbook(sheetsClient),
		Geocoder: geocode.NewClient(cfg.Kakao.APIKey, cfg.Kakao.BaseURL),
		Notifier: InitializeNotificationClient(cfg.Notify),
		Metrics:  metrics.New(),
	}

	if c.Drive, err = drive.NewClient(ctx, cfg.CredentialsFile, cfg.Drive); err != nil {
		log.Error().Err(err).Msg("Failed to create drive client")
		c.Drive = nil
	}
	if c.Contacts, err = contacts.NewClient(ctx, cfg.CredentialsFile); err != nil {
		log.Warn().Err(err).Msg("Failed to create contacts client")
		c.Contacts = nil
	}

	if cfg.Drive.CacheBackend == "redis" {
		if c.DriveCache, err = reconcile.NewRedisDriveCache(cfg.Drive.RedisURL, cfg.Drive.CacheTTL); err != nil {
			log.Warn().Err(err).Msg("Redis drive cache unavailable, falling back to the cache sheet")
			c.DriveCache = nil
		}
	}

	if cfg.DBSQLitePath != "" {
		if c.Mirror, err = dbmirror.Open(cfg.DBSQLitePath); err != nil {
			log.Warn().Err(err).Str("path", cfg.DBSQLitePath).Msg("Failed to open sqlite mirror")
			c.Mirror = nil
		}
	}

	log.Debug().
		Bool("drive", c.Drive != nil).
		Bool("contacts", c.Contacts != nil).
		Bool("redis_cache", c.DriveCache != nil).
		Bool("sqlite_mirror", c.Mirror != nil).
		Msg("Clients initialized successfully")
	return c
}

// RunnerOptions wires the available clients into a processing runner.
func (c *Clients) RunnerOptions() []processing.Option {
	opts := []processing.Option{
		processing.WithGeocoder(c.Geocoder),
		processing.WithStamper(c.Sheets),
		processing.WithMetrics(c.Metrics),
	}
	if c.Drive != nil {
		opts = append(opts, processing.WithStorage(c.Drive))
	}
	if c.Contacts != nil {
		opts = append(opts, processing.WithDirectory(c.Contacts))
	}
	if c.DriveCache != nil {
		opts = append(opts, processing.WithDriveCache(c.DriveCache))
	}
	if c.Mirror != nil {
		opts = append(opts, processing.WithProjectStore(c.Mirror))
	}
	return opts
}

// Close releases the clients holding connections.
func (c *Clients) Close() {
	if c.DriveCache != nil {
		if err := c.DriveCache.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close redis drive cache")
		}
	}
	if c.Mirror != nil {
		if err := c.Mirror.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close sqlite mirror")
		}
	}
}

// InitializeNotificationClient creates and returns the notification client
func InitializeNotificationClient(cfg config.NotifyConfig) *notifications.Client {
	log.Debug().
		Bool("enabled", cfg.Enabled).
		Str("base_url", cfg.BaseURL).
		Str("topic", cfg.Topic).
		Msg("Initializing notification client")

	client := notifications.NewClient(cfg)

	if cfg.Enabled {
		log.Info().Str("topic", cfg.Topic).Msg("Notifications enabled")
	} else {
		log.Debug().Msg("Notifications disabled")
	}

	return client
}
