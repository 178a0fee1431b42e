// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "PestWatch")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/pestwatch.log")

	viper.SetDefault("webserver.debug", false)
	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.port", "5000")
	viper.SetDefault("webserver.log.enabled", true)
	viper.SetDefault("webserver.log.path", "logs/web.log")

	viper.SetDefault("ingest.path", "uploads/")
	viper.SetDefault("ingest.maxuploadsize", 10*1024*1024)
	viper.SetDefault("ingest.retention.enabled", true)
	viper.SetDefault("ingest.retention.maxage", "168h")
	viper.SetDefault("ingest.retention.interval", "1h")

	viper.SetDefault("classifier.endpoint", "http://localhost:8000/analyze")
	viper.SetDefault("classifier.timeout", 30)
	viper.SetDefault("classifier.maxretries", 3)

	viper.SetDefault("advisory.apikey", "")
	viper.SetDefault("advisory.model", "gemini-1.5-flash")
	viper.SetDefault("advisory.language", "English")
	viper.SetDefault("advisory.timeout", 20)
	viper.SetDefault("advisory.cachettl", 60)

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "pestwatch.db")

	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "pestwatch")
	viper.SetDefault("output.mysql.password", "secret")
	viper.SetDefault("output.mysql.database", "pestwatch")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")
}
