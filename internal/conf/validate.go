package conf

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// ValidateSettings checks the loaded settings for values that would fail at
// runtime. The advisory API key is deliberately not required here.
func ValidateSettings(settings *Settings) error {
	if settings.WebServer.Enabled {
		port, err := strconv.Atoi(settings.WebServer.Port)
		if err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("invalid webserver port: %q", settings.WebServer.Port)
		}
	}

	if settings.Ingest.Path == "" {
		return fmt.Errorf("ingest.path must not be empty")
	}
	if settings.Ingest.MaxUploadSize <= 0 {
		return fmt.Errorf("ingest.maxuploadsize must be positive")
	}
	if settings.Ingest.Retention.Enabled {
		if _, err := time.ParseDuration(settings.Ingest.Retention.MaxAge); err != nil {
			return fmt.Errorf("invalid ingest.retention.maxage %q: %w", settings.Ingest.Retention.MaxAge, err)
		}
		if _, err := time.ParseDuration(settings.Ingest.Retention.Interval); err != nil {
			return fmt.Errorf("invalid ingest.retention.interval %q: %w", settings.Ingest.Retention.Interval, err)
		}
	}

	if settings.Classifier.Endpoint == "" {
		return fmt.Errorf("classifier.endpoint must not be empty")
	}
	if _, err := url.ParseRequestURI(settings.Classifier.Endpoint); err != nil {
		return fmt.Errorf("invalid classifier.endpoint %q: %w", settings.Classifier.Endpoint, err)
	}
	if settings.Classifier.Timeout <= 0 {
		return fmt.Errorf("classifier.timeout must be positive")
	}

	if settings.Advisory.Timeout <= 0 {
		return fmt.Errorf("advisory.timeout must be positive")
	}

	if !settings.Output.SQLite.Enabled && !settings.Output.MySQL.Enabled {
		return fmt.Errorf("no database output enabled, enable output.sqlite or output.mysql")
	}
	if settings.Output.SQLite.Enabled && settings.Output.SQLite.Path == "" {
		return fmt.Errorf("output.sqlite.path must not be empty")
	}
	if settings.Output.MySQL.Enabled {
		if settings.Output.MySQL.Host == "" || settings.Output.MySQL.Database == "" {
			return fmt.Errorf("output.mysql requires host and database")
		}
	}

	return nil
}
