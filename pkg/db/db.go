package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Dialect identifiers supported by Connect.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// Config holds database connection configuration
type Config struct {
	// URL is the database connection URL (defaults to DATABASE_URL env var)
	URL string
	// LogLevel enables SQL logging when set to "debug"
	LogLevel string
}

// Connect establishes a database connection.
// If no URL is provided, it reads from DATABASE_URL environment variable.
// Postgres URLs and keyword DSNs use the pgx driver; file paths and sqlite
// URLs use the pure-Go sqlite driver with foreign keys enforced.
func Connect(cfg Config) (*gorm.DB, error) {
	dbURL := strings.TrimSpace(cfg.URL)
	if dbURL == "" {
		dbURL = URL()
	}
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	gormCfg := &gorm.Config{
		Logger: newLogger(cfg.LogLevel),
		// surfaces gorm.ErrDuplicatedKey / gorm.ErrForeignKeyViolated
		TranslateError: true,
	}

	switch detectDialect(dbURL) {
	case DialectPostgres:
		return openPostgres(dbURL, gormCfg)
	default:
		return openSQLite(dbURL, gormCfg)
	}
}

// URL returns the database URL from environment.
// Returns empty string if DATABASE_URL is not set.
func URL() string {
	return os.Getenv("DATABASE_URL")
}

// DialectName returns the active database dialect name.
func DialectName(conn *gorm.DB) string {
	if conn == nil || conn.Dialector == nil {
		return ""
	}
	return conn.Dialector.Name()
}

func newLogger(level string) logger.Interface {
	// Default to silent logging unless debug is requested
	if strings.EqualFold(level, "debug") {
		return logger.Default.LogMode(logger.Info)
	}
	return logger.Default.LogMode(logger.Silent)
}

func detectDialect(dsn string) string {
	lower := strings.ToLower(dsn)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return DialectPostgres
	case strings.Contains(lower, "host=") || strings.Contains(lower, "dbname="):
		return DialectPostgres
	default:
		return DialectSQLite
	}
}

func openPostgres(dsn string, gormCfg *gorm.Config) (*gorm.DB, error) {
	pgCfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	sqlDB := stdlib.OpenDB(*pgCfg)

	conn, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true, // disables implicit prepared statement usage
	}), gormCfg)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := ping(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return conn, nil
}

func openSQLite(dsn string, gormCfg *gorm.Config) (*gorm.DB, error) {
	normalized := ensureSQLiteParams(normalizeSQLiteDSN(dsn))

	conn, err := gorm.Open(sqlite.Open(normalized), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if isSQLiteMemory(normalized) {
		// each connection to :memory: is a separate database
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(10)
	}
	sqlDB.SetMaxIdleConns(sqlDBIdle(normalized))

	if _, err := sqlDB.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to enable sqlite foreign keys: %w", err)
	}
	if err := ping(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return conn, nil
}

func sqlDBIdle(dsn string) int {
	if isSQLiteMemory(dsn) {
		return 1
	}
	return 10
}

func ping(sqlDB *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// normalizeSQLiteDSN converts sqlite URLs into file-based DSNs.
func normalizeSQLiteDSN(dsn string) string {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "sqlite3://") || strings.HasPrefix(lower, "sqlite://") {
		parts := strings.SplitN(dsn, "://", 2)
		return "file:" + parts[1]
	}
	return dsn
}

// ensureSQLiteParams adds the pragmas every connection needs.
func ensureSQLiteParams(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func isSQLiteMemory(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}
