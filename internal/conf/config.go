// Package conf defines the application settings and the viper based
// loading, validation and persistence of the configuration file.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

//go:embed config.yaml
var configFiles embed.FS

// LogConfig defines the configuration for a log file.
type LogConfig struct {
	Enabled bool   // true to enable this log
	Path    string // path to the log file
}

// RetentionSettings controls cleanup of stored upload artifacts.
type RetentionSettings struct {
	Enabled  bool   // true to enable the retention sweeper
	MaxAge   string // maximum age of uploaded images, duration string like "168h"
	Interval string // sweep interval, duration string like "1h"
}

// IngestSettings contains settings for image upload handling.
type IngestSettings struct {
	Path          string            // directory for uploaded images
	MaxUploadSize int64             // maximum accepted upload size in bytes
	Retention     RetentionSettings // uploaded image retention policy
}

// ClassifierSettings contains settings for the external pest
// classification service.
type ClassifierSettings struct {
	Endpoint   string // URL of the classification endpoint
	Timeout    int    // request timeout in seconds
	MaxRetries int    // retry attempts for transient failures
}

// AdvisorySettings contains settings for the generative advisory service.
type AdvisorySettings struct {
	APIKey   string // Generative Language API key, empty disables generation
	Model    string // model name, e.g. "gemini-1.5-flash"
	Language string // default advisory language
	Timeout  int    // request timeout in seconds
	CacheTTL int    // advisory cache TTL in minutes, 0 disables caching
}

// Settings contains all application settings.
type Settings struct {
	Debug bool // true to enable debug mode

	Main struct {
		Name string    // node name for identification
		Log  LogConfig // main application log
	}

	WebServer struct {
		Debug   bool      // true to enable API debug logging
		Enabled bool      // true to enable the web server
		Port    string    // port for the web server
		Log     LogConfig // web server request log
	}

	Ingest     IngestSettings     // image upload settings
	Classifier ClassifierSettings // classification boundary settings
	Advisory   AdvisorySettings   // advisory generator settings

	Output struct {
		SQLite struct {
			Enabled bool   // true to enable sqlite output
			Path    string // path to sqlite database
		}
		MySQL struct {
			Enabled  bool   // true to enable mysql output
			Username string // username for mysql database
			Password string // password for mysql database
			Database string // database name for mysql database
			Host     string // host for mysql database
			Port     string // port for mysql database
		}
	}
}

// settingsMutex serializes viper access during loading.
var settingsMutex sync.Mutex

// Load reads the configuration file and environment variables into a new
// Settings instance.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	return settings, nil
}

// initViper initializes viper with defaults, environment bindings and the
// configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	// Environment overrides. The advisory credential is deliberately
	// optional: a missing key degrades per-request advisory generation
	// instead of failing startup.
	viper.SetEnvPrefix("PESTWATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("webserver.port", "PORT")
	_ = viper.BindEnv("advisory.apikey", "GEMINI_API_KEY")
	_ = viper.BindEnv("output.sqlite.path", "PESTWATCH_DB")

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPaths returns the directories searched for config.yaml:
// the working directory first, then the per-user config directory.
func GetDefaultConfigPaths() ([]string, error) {
	paths := []string{"."}

	configDir, err := os.UserConfigDir()
	if err != nil {
		// Fall back to working directory only, e.g. in containers
		// without a HOME.
		return paths, nil
	}
	paths = append(paths, filepath.Join(configDir, "pestwatch"))
	return paths, nil
}

// createDefaultConfig writes the embedded default config file to the first
// default config path and loads it.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")
	defaultConfig := getDefaultConfig()

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Println("Created default config file at:", configPath)
	return viper.ReadInConfig()
}

// getDefaultConfig reads the default configuration from the embedded
// config.yaml file.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		log.Fatalf("Error reading embedded config file: %v", err)
	}
	return string(data)
}

// SaveYAMLConfig writes settings to configPath atomically via a temp file.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}

	return nil
}

// GetBasePath expands dir relative to the working directory and ensures it
// exists.
func GetBasePath(dir string) string {
	if dir == "" {
		dir = "."
	}
	if !filepath.IsAbs(dir) {
		if workDir, err := os.Getwd(); err == nil {
			dir = filepath.Join(workDir, dir)
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("Failed to create directory %s: %v", dir, err)
	}
	return dir
}
