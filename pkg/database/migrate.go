package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationsTable keeps attendance schema history apart from other tools
// sharing the database.
const migrationsTable = "ojt_schema_migrations"

// ErrSchemaNotReady the database schema is dirty or behind the binary. The
// uniqueness guarantees on attendance rows live in the schema, so the
// server must not start on it.
var ErrSchemaNotReady = errors.New("database schema not ready")

// RunMigrations applies every pending migration and verifies the database
// ends at the latest embedded version.
func RunMigrations(db *sql.DB, logger *zap.Logger) error {
	want, err := latestVersion(migrationsFS)
	if err != nil {
		return fmt.Errorf("read embedded migrations: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		source.Close()
		return fmt.Errorf("create migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		source.Close()
		return fmt.Errorf("init migrate: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, verErr := m.Version()
	if err := checkVersion(version, dirty, verErr, want); err != nil {
		logger.Error("database schema check failed",
			zap.Uint("version", version), zap.Uint("want", want), zap.Bool("dirty", dirty), zap.Error(err))
		return err
	}
	logger.Info("database schema ready", zap.Uint("version", version))
	return nil
}

// checkVersion accepts only a clean database at want.
func checkVersion(version uint, dirty bool, verErr error, want uint) error {
	switch {
	case errors.Is(verErr, migrate.ErrNilVersion):
		return fmt.Errorf("%w: no migration applied", ErrSchemaNotReady)
	case verErr != nil:
		return fmt.Errorf("read schema version: %w", verErr)
	case dirty:
		return fmt.Errorf("%w: version %d is dirty, fix it with migrate force", ErrSchemaNotReady, version)
	case version != want:
		return fmt.Errorf("%w: at version %d, binary expects %d", ErrSchemaNotReady, version, want)
	}
	return nil
}

// latestVersion walks the migrations directory of fsys to its last version.
func latestVersion(fsys fs.FS) (uint, error) {
	src, err := iofs.New(fsys, "migrations")
	if err != nil {
		return 0, err
	}
	defer src.Close()

	v, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(v)
		if errors.Is(err, fs.ErrNotExist) {
			return v, nil
		}
		if err != nil {
			return 0, err
		}
		v = next
	}
}
