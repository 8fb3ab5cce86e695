package server

import (
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/bibliograph/internal/util"
	"github.com/OFFIS-RIT/bibliograph/pkg/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migrate applies the SQL migrations from MIGRATIONS_PATH (default
// "file://migrations") to databaseURL.
func Migrate(databaseURL string) error {
	source := util.GetEnvString("MIGRATIONS_PATH", "file://migrations")
	m, err := migrate.New(source, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return err
	}
	logger.Info("[Server][Migrate] Database schema ready", "version", version, "dirty", dirty)
	return nil
}
