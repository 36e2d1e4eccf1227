package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes a YAML config into a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "watchfolder: /data/incoming\n")

	settings, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/incoming", settings.WatchFolder)
	assert.Equal(t, DatabaseSQLite, settings.Database.Type)
	assert.Equal(t, "camtrap.db", settings.Database.SQLite.Path)
	assert.Equal(t, 200*time.Millisecond, settings.Database.SlowQueryThreshold)
	assert.Equal(t, 5000, settings.WebServer.Port)
	assert.Equal(t, MirrorFile, settings.Mirror.Backend)
	assert.Equal(t, 4, settings.Ingest.Workers)
	assert.Equal(t, "info", settings.Logging.DefaultLevel)
	require.NotNil(t, settings.Logging.Console)
	assert.True(t, settings.Logging.Console.Enabled)
	assert.Same(t, settings, GetSettings())
}

func TestLoadFileValues(t *testing.T) {
	path := writeConfig(t, `
database:
  type: MySQL
  mysql:
    host: db.local
    port: 3307
    database: traps
webserver:
  port: 8080
  cachettl: 1m
mirror:
  backend: none
logging:
  default_level: debug
  module_levels:
    datastore: trace
`)

	settings, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DatabaseMySQL, settings.Database.Type, "type is normalized to lower case")
	assert.Equal(t, "db.local", settings.Database.MySQL.Host)
	assert.Equal(t, 3307, settings.Database.MySQL.Port)
	assert.Equal(t, 8080, settings.WebServer.Port)
	assert.Equal(t, time.Minute, settings.WebServer.CacheTTL)
	assert.Equal(t, MirrorNone, settings.Mirror.Backend)
	assert.Equal(t, "debug", settings.Logging.DefaultLevel)
	assert.Equal(t, "trace", settings.Logging.ModuleLevels["datastore"])
	assert.Equal(t, "0.0.0.0:8080", settings.ListenAddress())
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("CAMTRAP_DATABASE_TYPE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://camtrap:secret@pg:5432/yolodb?sslmode=disable")
	t.Setenv("WATCH_FOLDER", "/srv/watch")
	t.Setenv("CAMTRAP_INGEST_WORKERS", "8")

	settings, err := Load(writeConfig(t, "webserver:\n  port: 9000\n"))
	require.NoError(t, err)

	assert.Equal(t, DatabasePostgres, settings.Database.Type)
	assert.Equal(t, "postgres://camtrap:secret@pg:5432/yolodb?sslmode=disable", settings.Database.Postgres.URL)
	assert.Equal(t, "/srv/watch", settings.WatchFolder)
	assert.Equal(t, 8, settings.Ingest.Workers)
	assert.Equal(t, 9000, settings.WebServer.Port)
}

func TestLoadRejectsInvalidEnvironment(t *testing.T) {
	t.Setenv("CAMTRAP_HTTP_PORT", "99999")

	_, err := Load(writeConfig(t, ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CAMTRAP_HTTP_PORT")
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	_, err := Load(writeConfig(t, "database:\n  type: oracle\n"))
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Errors[0], "oracle")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestSaveYAMLConfigRoundTrip(t *testing.T) {
	settings, err := Load(writeConfig(t, "mqtt:\n  enabled: true\n  topic: traps\n"))
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, SaveYAMLConfig(out, settings))

	reloaded, err := Load(out)
	require.NoError(t, err)
	assert.Equal(t, settings.MQTT, reloaded.MQTT)
	assert.Equal(t, settings.Database, reloaded.Database)
	assert.Equal(t, settings.WebServer, reloaded.WebServer)

	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must be cleaned up")
}
