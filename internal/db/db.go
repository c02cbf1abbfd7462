package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	driverSQLite   = "sqlite"
	driverPostgres = "pgx"
)

// IsPostgres reports whether url is a PostgreSQL connection string. Anything
// else is treated as a SQLite file path.
func IsPostgres(url string) bool {
	return strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://")
}

// Open connects to PostgreSQL or SQLite depending on the url.
func Open(ctx context.Context, url string) (*sqlx.DB, error) {
	if IsPostgres(url) {
		return NewPostgresDB(ctx, url)
	}
	return NewSQLiteDB(url)
}

// ensureDir ensures the parent directory of the DB file exists
func ensureDir(dbFile string) error {
	dir := filepath.Dir(dbFile)
	return os.MkdirAll(dir, 0755)
}

// NewSQLiteDB creates a new SQLite connection
func NewSQLiteDB(dbFile string) (*sqlx.DB, error) {
	absPath, err := filepath.Abs(dbFile)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute database path: %w", err)
	}

	if err := ensureDir(absPath); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sqlx.Connect(driverSQLite, absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return db, nil
}

// NewPostgresDB connects through the pgx database/sql driver.
func NewPostgresDB(ctx context.Context, url string) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, driverPostgres, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// RunMigrations applies the embedded migrations on a dedicated connection,
// since the migrate driver closes the handle it is given.
func RunMigrations(url string) error {
	var (
		conn   *sql.DB
		driver database.Driver
		name   string
		err    error
	)

	if IsPostgres(url) {
		name = driverPostgres
		conn, err = sql.Open(driverPostgres, url)
		if err != nil {
			return fmt.Errorf("failed to connect for migrations: %w", err)
		}
		driver, err = pgxmigrate.WithInstance(conn, &pgxmigrate.Config{})
	} else {
		absDB, absErr := filepath.Abs(url)
		if absErr != nil {
			return fmt.Errorf("failed to get absolute DB path: %w", absErr)
		}
		if err := ensureDir(absDB); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
		name = driverSQLite
		conn, err = sql.Open(driverSQLite, absDB)
		if err != nil {
			return fmt.Errorf("failed to connect for migrations: %w", err)
		}
		driver, err = sqlite.WithInstance(conn, &sqlite.Config{})
	}
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		driver.Close()
		return fmt.Errorf("failed to open migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, name, driver)
	if err != nil {
		source.Close()
		driver.Close()
		return fmt.Errorf("failed to create migration instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Ping checks connectivity within timeout.
func Ping(ctx context.Context, db *sqlx.DB, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return db.PingContext(ctx)
}

// Checker pings db with each call bounded by Timeout.
type Checker struct {
	DB      *sqlx.DB
	Timeout time.Duration
}

func (c Checker) PingContext(ctx context.Context) error {
	return Ping(ctx, c.DB, c.Timeout)
}
