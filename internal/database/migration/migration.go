package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed sql/*.sql
var migrationsFS embed.FS

const migrationsTable = "schema_migrations"

// newMigrator binds the embedded SQL files to the given database handle.
func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "sql")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	drv, err := migratepgx.WithInstance(db, &migratepgx.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return nil, fmt.Errorf("create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", drv)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

// Up applies every pending migration. An already current schema is not an error.
func Up(db *sql.DB, log *zap.Logger) error {
	start := time.Now()
	log = log.With(zap.String("component", "database"))
	log.Info("db_migration_start")

	m, err := newMigrator(db)
	if err != nil {
		log.Error("db_migration_failed", zap.Error(err))
		return err
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("db_migration_skip",
				zap.String("msg", "schema already current"),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
			return nil
		}
		log.Error("db_migration_failed",
			zap.Error(err),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	log.Info("db_migration_success",
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return nil
}

// Down rolls back the given number of migrations.
func Down(db *sql.DB, steps int, log *zap.Logger) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be positive")
	}
	m, err := newMigrator(db)
	if err != nil {
		return err
	}
	if err := m.Steps(-steps); err != nil {
		return fmt.Errorf("rollback migrations: %w", err)
	}
	log.Info("db_migration_rollback", zap.String("component", "database"), zap.Int("steps", steps))
	return nil
}
