package store

import (
	"context"
	"fmt"

	"nathanbeddoewebdev/dnsm/internal/records/domain"
	"nathanbeddoewebdev/dnsm/internal/util"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Drivers lists the supported store drivers.
var Drivers = []string{DriverSQLite, DriverPostgres}

// Open returns the record store for driver. An empty driver selects SQLite
// at the default database path, in which case dsn, if set, overrides that
// path.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (domain.RecordStore, error) {
	switch util.NormalizeKey(driver) {
	case "", DriverSQLite:
		if dsn != "" {
			return OpenSQLiteAt(dsn, opts...)
		}
		return OpenSQLite(opts...)
	case DriverPostgres, "postgresql", "pgx":
		return OpenPostgres(ctx, dsn, opts...)
	default:
		return nil, fmt.Errorf("records: unknown store driver %q (valid: sqlite, postgres)", driver)
	}
}
