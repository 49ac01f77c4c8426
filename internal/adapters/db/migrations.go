// internal/adapters/db/migrations.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// MigrationConfig holds migration configuration
type MigrationConfig struct {
	DatabaseURL      string
	SourcePath       string
	TableName        string
	SchemaName       string
	ForceDirty       bool
	StatementTimeout time.Duration
}

// Migrator applies the SQL files under SourcePath in version order.
type Migrator struct {
	migrate *migrate.Migrate
	config  *MigrationConfig
	logger  *slog.Logger
	db      *sql.DB
}

// NewMigrator opens a dedicated database/sql connection for schema work.
// The main pgx pool is not reused here; migrate drives its own driver.
func NewMigrator(config *MigrationConfig, logger *slog.Logger) (*Migrator, error) {
	if config == nil {
		return nil, errors.New("migration config is required")
	}

	if config.TableName == "" {
		config.TableName = "schema_migrations"
	}
	if config.SchemaName == "" {
		config.SchemaName = "public"
	}
	if config.StatementTimeout == 0 {
		config.StatementTimeout = time.Minute * 10
	}

	sqlDB, err := sql.Open("pgx", config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open migration connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping migration connection: %w", err)
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{
		MigrationsTable:  config.TableName,
		SchemaName:       config.SchemaName,
		StatementTimeout: config.StatementTimeout,
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+config.SourcePath, "postgres", driver)
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("create migrator: %w", err)
	}

	return &Migrator{migrate: m, config: config, logger: logger, db: sqlDB}, nil
}

// Up applies every pending migration. A dirty version left behind by a
// crashed run blocks everything until it is forced, so ForceDirty exists
// for environments where a human has already inspected the schema.
func (m *Migrator) Up(ctx context.Context) error {
	version, dirty, err := m.migrate.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}

	if dirty {
		if !m.config.ForceDirty {
			return fmt.Errorf("database is dirty at version %d", version)
		}
		m.logger.WarnContext(ctx, "clearing dirty migration state",
			slog.Uint64("version", uint64(version)))
		if err := m.migrate.Force(int(version)); err != nil {
			return fmt.Errorf("force version %d: %w", version, err)
		}
	}

	if err := m.migrate.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.InfoContext(ctx, "schema already up to date",
				slog.Uint64("version", uint64(version)))
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}

	if newVersion, _, err := m.migrate.Version(); err == nil {
		m.logger.InfoContext(ctx, "migrations applied",
			slog.Uint64("from", uint64(version)),
			slog.Uint64("to", uint64(newVersion)))
	}

	return nil
}

// Close releases the migrate instance and its connection.
func (m *Migrator) Close() error {
	var errs []error

	if m.migrate != nil {
		sourceErr, dbErr := m.migrate.Close()
		if sourceErr != nil {
			errs = append(errs, fmt.Errorf("close source: %w", sourceErr))
		}
		if dbErr != nil {
			errs = append(errs, fmt.Errorf("close driver: %w", dbErr))
		}
	}

	if m.db != nil {
		if err := m.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}

	return errors.Join(errs...)
}

// RunMigrationsWithRetry runs migrations, retrying while the database
// comes up. Both the API process and the test harness call this on boot,
// so a Postgres container that is still initializing does not fail the
// whole startup.
func RunMigrationsWithRetry(ctx context.Context, config *MigrationConfig, logger *slog.Logger, maxRetries int) error {
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if attempt > 1 {
			wait := time.Duration(attempt-1) * 2 * time.Second
			logger.InfoContext(ctx, "retrying migration",
				slog.Int("attempt", attempt),
				slog.Duration("wait", wait))

			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		migrator, err := NewMigrator(config, logger)
		if err != nil {
			lastErr = err
			logger.WarnContext(ctx, "migrator unavailable",
				slog.Int("attempt", attempt),
				slog.Any("error", err))
			continue
		}

		upErr := migrator.Up(ctx)
		if closeErr := migrator.Close(); closeErr != nil {
			logger.WarnContext(ctx, "migrator close failed", slog.Any("error", closeErr))
		}

		if upErr == nil {
			return nil
		}
		lastErr = upErr
		logger.WarnContext(ctx, "migration failed",
			slog.Int("attempt", attempt),
			slog.Any("error", upErr))
	}

	return fmt.Errorf("migrations failed after %d attempts: %w", maxRetries, lastErr)
}
