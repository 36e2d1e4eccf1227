// conf/validate.go

package conf

import (
	"fmt"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct and normalizes enum-like fields.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	collect := func(err error) {
		if err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	collect(validateDatabaseSettings(&settings.Database))
	collect(validateWebServerSettings(&settings.WebServer))
	collect(validateMirrorSettings(&settings.Mirror))
	collect(validateMQTTSettings(&settings.MQTT))
	collect(validateSentrySettings(&settings.Sentry))
	collect(validateIngestSettings(&settings.Ingest))

	if strings.TrimSpace(settings.WatchFolder) == "" {
		ve.Errors = append(ve.Errors, "watch folder must be set")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateDatabaseSettings(settings *DatabaseSettings) error {
	settings.Type = strings.ToLower(strings.TrimSpace(settings.Type))

	switch settings.Type {
	case DatabaseSQLite:
		if settings.SQLite.Path == "" {
			return fmt.Errorf("sqlite database path must be set")
		}
	case DatabaseMySQL:
		if settings.MySQL.Host == "" || settings.MySQL.Database == "" {
			return fmt.Errorf("mysql host and database must be set")
		}
		if settings.MySQL.Port < 1 || settings.MySQL.Port > 65535 {
			return fmt.Errorf("mysql port must be between 1 and 65535, got %d", settings.MySQL.Port)
		}
	case DatabasePostgres:
		if err := validateEnvURL(settings.Postgres.URL); err != nil {
			return fmt.Errorf("postgres url: %w", err)
		}
	default:
		return fmt.Errorf("unsupported database type %q", settings.Type)
	}

	if settings.SlowQueryThreshold < 0 {
		return fmt.Errorf("slow query threshold cannot be negative")
	}
	return nil
}

func validateWebServerSettings(settings *WebServerSettings) error {
	if settings.Port < 1 || settings.Port > 65535 {
		return fmt.Errorf("webserver port must be between 1 and 65535, got %d", settings.Port)
	}
	if settings.CacheTTL < 0 {
		return fmt.Errorf("webserver cache ttl cannot be negative")
	}
	return nil
}

func validateMirrorSettings(settings *MirrorSettings) error {
	settings.Backend = strings.ToLower(strings.TrimSpace(settings.Backend))
	if settings.Backend == "" {
		settings.Backend = MirrorNone
	}

	switch settings.Backend {
	case MirrorFile, MirrorNone:
	case MirrorMongo:
		if err := validateEnvURL(settings.Mongo.URI); err != nil {
			return fmt.Errorf("mongo uri: %w", err)
		}
		if settings.Mongo.Database == "" || settings.Mongo.Collection == "" {
			return fmt.Errorf("mongo database and collection must be set")
		}
	default:
		return fmt.Errorf("unsupported mirror backend %q", settings.Backend)
	}

	if settings.Timeout <= 0 {
		return fmt.Errorf("mirror timeout must be positive")
	}
	return nil
}

func validateMQTTSettings(settings *MQTTSettings) error {
	if !settings.Enabled {
		return nil
	}
	if err := validateEnvURL(settings.Broker); err != nil {
		return fmt.Errorf("mqtt broker: %w", err)
	}
	if strings.TrimSpace(settings.Topic) == "" {
		return fmt.Errorf("mqtt topic must be set when mqtt is enabled")
	}
	return nil
}

func validateSentrySettings(settings *SentrySettings) error {
	if settings.Enabled && settings.DSN == "" {
		return fmt.Errorf("sentry dsn must be set when sentry is enabled")
	}
	return nil
}

func validateIngestSettings(settings *IngestSettings) error {
	if settings.Workers < 1 {
		return fmt.Errorf("ingest workers must be at least 1, got %d", settings.Workers)
	}
	return nil
}
