package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validSettings returns settings that pass validation.
func validSettings() *Settings {
	s := &Settings{WatchFolder: "uploads/incoming"}
	s.Database.Type = DatabaseSQLite
	s.Database.SQLite.Path = "camtrap.db"
	s.WebServer.Port = 5000
	s.Mirror.Backend = MirrorFile
	s.Mirror.Timeout = 5 * time.Second
	s.Ingest.Workers = 2
	return s
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr string
	}{
		{name: "valid", mutate: func(s *Settings) {}},
		{
			name:    "unknown database",
			mutate:  func(s *Settings) { s.Database.Type = "oracle" },
			wantErr: "unsupported database type",
		},
		{
			name:    "sqlite without path",
			mutate:  func(s *Settings) { s.Database.SQLite.Path = "" },
			wantErr: "sqlite database path",
		},
		{
			name: "mysql missing database",
			mutate: func(s *Settings) {
				s.Database.Type = DatabaseMySQL
				s.Database.MySQL.Host = "db"
				s.Database.MySQL.Port = 3306
			},
			wantErr: "mysql host and database",
		},
		{
			name: "postgres bad url",
			mutate: func(s *Settings) {
				s.Database.Type = DatabasePostgres
				s.Database.Postgres.URL = "not a url"
			},
			wantErr: "postgres url",
		},
		{
			name:    "port out of range",
			mutate:  func(s *Settings) { s.WebServer.Port = 0 },
			wantErr: "webserver port",
		},
		{
			name: "mongo without uri",
			mutate: func(s *Settings) {
				s.Mirror.Backend = MirrorMongo
			},
			wantErr: "mongo uri",
		},
		{
			name:    "mqtt enabled without broker",
			mutate:  func(s *Settings) { s.MQTT.Enabled = true; s.MQTT.Topic = "camtrap" },
			wantErr: "mqtt broker",
		},
		{
			name:    "sentry without dsn",
			mutate:  func(s *Settings) { s.Sentry.Enabled = true },
			wantErr: "sentry dsn",
		},
		{
			name:    "no ingest workers",
			mutate:  func(s *Settings) { s.Ingest.Workers = 0 },
			wantErr: "ingest workers",
		},
		{
			name:    "empty watch folder",
			mutate:  func(s *Settings) { s.WatchFolder = " " },
			wantErr: "watch folder",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSettings()
			tt.mutate(s)

			err := ValidateSettings(s)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateSettingsCollectsAllErrors(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.WebServer.Port = -1
	s.Ingest.Workers = 0

	err := ValidateSettings(s)
	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 2)
}

func TestValidateMirrorDefaultsToNone(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.Mirror.Backend = ""
	require.NoError(t, ValidateSettings(s))
	assert.Equal(t, MirrorNone, s.Mirror.Backend)
}

func TestEnvValidators(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		fn      func(string) error
		value   string
		wantErr bool
	}{
		{"bool true", validateEnvBool, "true", false},
		{"bool padded", validateEnvBool, " 1 ", false},
		{"bool yes", validateEnvBool, "yes", true},
		{"port ok", validateEnvPort, "8080", false},
		{"port high", validateEnvPort, "70000", true},
		{"port text", validateEnvPort, "http", true},
		{"workers ok", validateEnvPositiveInt, "3", false},
		{"workers zero", validateEnvPositiveInt, "0", true},
		{"path ok", validateEnvPath, "/srv/watch", false},
		{"path empty", validateEnvPath, "  ", true},
		{"url postgres", validateEnvURL, "postgres://u:p@db:5432/yolodb", false},
		{"url mqtt", validateEnvURL, "tcp://broker:1883", false},
		{"url no scheme", validateEnvURL, "broker:1883/x", true},
		{"db type", validateEnvDatabaseType, "Postgres", false},
		{"db type bad", validateEnvDatabaseType, "mssql", true},
		{"mirror mongo", validateEnvMirrorBackend, "mongo", false},
		{"mirror bad", validateEnvMirrorBackend, "s3", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.fn(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
