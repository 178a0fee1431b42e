package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	s := &Settings{}
	s.WebServer.Enabled = true
	s.WebServer.Port = "5000"
	s.Ingest.Path = "uploads/"
	s.Ingest.MaxUploadSize = 10 << 20
	s.Ingest.Retention.Enabled = true
	s.Ingest.Retention.MaxAge = "168h"
	s.Ingest.Retention.Interval = "1h"
	s.Classifier.Endpoint = "http://localhost:8000/analyze"
	s.Classifier.Timeout = 30
	s.Advisory.Timeout = 20
	s.Output.SQLite.Enabled = true
	s.Output.SQLite.Path = "pestwatch.db"
	return s
}

func TestValidateSettings_Valid(t *testing.T) {
	require.NoError(t, ValidateSettings(validSettings()))
}

func TestValidateSettings_MissingAPIKeyIsAllowed(t *testing.T) {
	s := validSettings()
	s.Advisory.APIKey = ""

	assert.NoError(t, ValidateSettings(s))
}

func TestValidateSettings_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
		want   string
	}{
		{"bad_port", func(s *Settings) { s.WebServer.Port = "notaport" }, "port"},
		{"port_out_of_range", func(s *Settings) { s.WebServer.Port = "70000" }, "port"},
		{"empty_ingest_path", func(s *Settings) { s.Ingest.Path = "" }, "ingest.path"},
		{"zero_upload_size", func(s *Settings) { s.Ingest.MaxUploadSize = 0 }, "maxuploadsize"},
		{"bad_retention_maxage", func(s *Settings) { s.Ingest.Retention.MaxAge = "soon" }, "maxage"},
		{"bad_retention_interval", func(s *Settings) { s.Ingest.Retention.Interval = "often" }, "interval"},
		{"empty_classifier_endpoint", func(s *Settings) { s.Classifier.Endpoint = "" }, "classifier.endpoint"},
		{"bad_classifier_endpoint", func(s *Settings) { s.Classifier.Endpoint = "not a url" }, "classifier.endpoint"},
		{"zero_classifier_timeout", func(s *Settings) { s.Classifier.Timeout = 0 }, "classifier.timeout"},
		{"zero_advisory_timeout", func(s *Settings) { s.Advisory.Timeout = 0 }, "advisory.timeout"},
		{"no_database", func(s *Settings) { s.Output.SQLite.Enabled = false }, "no database output"},
		{"sqlite_without_path", func(s *Settings) { s.Output.SQLite.Path = "" }, "sqlite.path"},
		{
			"mysql_without_host",
			func(s *Settings) {
				s.Output.SQLite.Enabled = false
				s.Output.MySQL.Enabled = true
				s.Output.MySQL.Database = "pestwatch"
			},
			"mysql",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.mutate(s)

			err := ValidateSettings(s)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateSettings_RetentionDisabledSkipsDurations(t *testing.T) {
	s := validSettings()
	s.Ingest.Retention.Enabled = false
	s.Ingest.Retention.MaxAge = "garbage"

	assert.NoError(t, ValidateSettings(s))
}
