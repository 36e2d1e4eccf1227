// env.go - Environment variable configuration and validation
package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"main.debug", "CAMTRAP_DEBUG", validateEnvBool},

		// Record store
		{"database.type", "CAMTRAP_DATABASE_TYPE", validateEnvDatabaseType},
		{"database.sqlite.path", "CAMTRAP_SQLITE_PATH", validateEnvPath},
		{"database.mysql.host", "CAMTRAP_MYSQL_HOST", nil},
		{"database.mysql.port", "CAMTRAP_MYSQL_PORT", validateEnvPort},
		{"database.mysql.username", "CAMTRAP_MYSQL_USERNAME", nil},
		{"database.mysql.password", "CAMTRAP_MYSQL_PASSWORD", nil},
		{"database.mysql.database", "CAMTRAP_MYSQL_DATABASE", nil},
		{"database.postgres.url", "DATABASE_URL", validateEnvURL},

		{"watchfolder", "WATCH_FOLDER", validateEnvPath},

		{"webserver.port", "CAMTRAP_HTTP_PORT", validateEnvPort},

		{"mirror.backend", "CAMTRAP_MIRROR_BACKEND", validateEnvMirrorBackend},
		{"mirror.mongo.uri", "CAMTRAP_MONGO_URI", validateEnvURL},

		{"mqtt.enabled", "CAMTRAP_MQTT_ENABLED", validateEnvBool},
		{"mqtt.broker", "CAMTRAP_MQTT_BROKER", validateEnvURL},
		{"mqtt.username", "CAMTRAP_MQTT_USERNAME", nil},
		{"mqtt.password", "CAMTRAP_MQTT_PASSWORD", nil},

		{"sentry.enabled", "CAMTRAP_SENTRY_ENABLED", validateEnvBool},
		{"sentry.dsn", "CAMTRAP_SENTRY_DSN", validateEnvURL},

		{"ingest.workers", "CAMTRAP_INGEST_WORKERS", validateEnvPositiveInt},
	}
}

// bindEnvVars binds environment variables and validates the ones that are set.
func bindEnvVars(v *viper.Viper) error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value: %v", binding.EnvVar, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f", value)
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid integer: %w", err)
	}
	if n < 1 {
		return fmt.Errorf("must be at least 1, got %d", n)
	}
	return nil
}

func validateEnvPath(value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if strings.ContainsRune(value, 0) {
		return fmt.Errorf("path contains a NUL byte")
	}
	return nil
}

// validateEnvURL accepts anything with a scheme and host: postgres://, mongodb://, tcp://, https://
func validateEnvURL(value string) error {
	u, err := url.Parse(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("URL must include a scheme and host, got '%s'", value)
	}
	return nil
}

func validateEnvDatabaseType(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case DatabaseSQLite, DatabaseMySQL, DatabasePostgres:
		return nil
	default:
		return fmt.Errorf("database type must be one of %s, %s, %s; got '%s'",
			DatabaseSQLite, DatabaseMySQL, DatabasePostgres, value)
	}
}

func validateEnvMirrorBackend(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case MirrorFile, MirrorMongo, MirrorNone:
		return nil
	default:
		return fmt.Errorf("mirror backend must be one of %s, %s, %s; got '%s'",
			MirrorFile, MirrorMongo, MirrorNone, value)
	}
}
