package datastore

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Himson2006/Yolo-Gpu-2/internal/conf"
	"github.com/Himson2006/Yolo-Gpu-2/internal/datastore/entities"
	"github.com/Himson2006/Yolo-Gpu-2/internal/logger"
)

// sqliteMemory is the DSN of a private in-memory SQLite database.
const sqliteMemory = ":memory:"

// Open connects to the configured backend, migrates the schema and returns the store.
func Open(settings *conf.DatabaseSettings, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.Global().Module("datastore")
	}
	gormCfg := &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(log.Module("gorm"), settings.SlowQueryThreshold),
	}

	var (
		db  *gorm.DB
		err error
	)
	switch settings.Type {
	case conf.DatabaseSQLite:
		db, err = openSQLite(settings.SQLite.Path, gormCfg)
	case conf.DatabaseMySQL:
		db, err = openMySQL(&settings.MySQL, gormCfg)
	case conf.DatabasePostgres:
		db, err = openPostgres(settings.Postgres.URL, gormCfg)
	default:
		return nil, fmt.Errorf("unsupported database type %q", settings.Type)
	}
	if err != nil {
		return nil, dbError(err, "open", "backend", settings.Type)
	}

	if err := migrate(db); err != nil {
		return nil, dbError(err, "migrate", "backend", settings.Type)
	}

	log.Info("record store ready", logger.String("backend", settings.Type))
	return NewStore(db, settings.Type, log), nil
}

// OpenSQLite opens and migrates a SQLite store. A path of ":memory:" opens a
// private in-memory database.
func OpenSQLite(path string, log logger.Logger) (*Store, error) {
	return Open(&conf.DatabaseSettings{
		Type:   conf.DatabaseSQLite,
		SQLite: conf.SQLiteSettings{Path: path},
	}, log)
}

func openSQLite(path string, gormCfg *gorm.Config) (*gorm.DB, error) {
	if path == sqliteMemory {
		db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=ON"), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open in-memory database: %w", err)
		}
		// Every connection to :memory: is a separate database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Build DSN with recommended SQLite pragmas
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON", path)
	db, err := gorm.Open(sqlite.Open(dsn), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	return db, nil
}

// mysqlDSN builds a MySQL DSN from settings.
func mysqlDSN(settings *conf.MySQLSettings) string {
	cfg := gomysql.NewConfig()
	cfg.User = settings.Username
	cfg.Passwd = settings.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(settings.Host, strconv.Itoa(settings.Port))
	cfg.DBName = settings.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

func openMySQL(settings *conf.MySQLSettings, gormCfg *gorm.Config) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(mysqlDSN(settings)), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}
	if err := configurePool(db); err != nil {
		return nil, err
	}
	return db, nil
}

func openPostgres(url string, gormCfg *gorm.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(url), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL database: %w", err)
	}
	if err := configurePool(db); err != nil {
		return nil, err
	}
	return db, nil
}

// configurePool sets connection pool limits for server backends.
func configurePool(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return nil
}

// migrate creates or updates the schema.
func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entities.Event{},
		&entities.Detection{},
		&entities.Behavior{},
		&entities.BehaviorChoice{},
	)
}
