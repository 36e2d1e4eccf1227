// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaultConfig sets default values for the configuration.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("main.name", "camtrap")
	v.SetDefault("main.debug", false)

	v.SetDefault("logging.default_level", "info")
	v.SetDefault("logging.timezone", "UTC")
	v.SetDefault("logging.console.enabled", true)
	v.SetDefault("logging.console.level", "info")
	v.SetDefault("logging.file_output.enabled", false)
	v.SetDefault("logging.file_output.path", "logs/camtrap.log")
	v.SetDefault("logging.file_output.level", "info")

	v.SetDefault("database.type", DatabaseSQLite)
	v.SetDefault("database.slowquerythreshold", 200*time.Millisecond)
	v.SetDefault("database.sqlite.path", "camtrap.db")
	v.SetDefault("database.mysql.host", "localhost")
	v.SetDefault("database.mysql.port", 3306)
	v.SetDefault("database.mysql.username", "camtrap")
	v.SetDefault("database.mysql.password", "")
	v.SetDefault("database.mysql.database", "yolodb")
	v.SetDefault("database.postgres.url", "postgres://localhost:5432/yolodb?sslmode=disable")

	v.SetDefault("watchfolder", "uploads/incoming")

	v.SetDefault("webserver.host", "0.0.0.0")
	v.SetDefault("webserver.port", 5000)
	v.SetDefault("webserver.cachettl", 30*time.Second)

	v.SetDefault("mirror.backend", MirrorFile)
	v.SetDefault("mirror.timeout", 5*time.Second)
	v.SetDefault("mirror.mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mirror.mongo.database", "camtrap")
	v.SetDefault("mirror.mongo.collection", "detections")

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.topic", "camtrap")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")
	v.SetDefault("sentry.debug", false)

	v.SetDefault("ingest.workers", 4)
	v.SetDefault("ingest.onstart", false)
}
