// Package gormdb builds fixture drivers from GORM connections.
package gormdb

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/calumari/dbrider/database/sqldb"
)

// NewDriver returns a driver sharing gdb's connection pool. The dialect is
// taken from the GORM dialector name.
func NewDriver(gdb *gorm.DB, opts ...sqldb.Option) (*sqldb.Driver, error) {
	if gdb == nil || gdb.Dialector == nil {
		return nil, fmt.Errorf("gormdb: nil gorm connection")
	}
	dialect, err := sqldb.DialectFor(gdb.Dialector.Name())
	if err != nil {
		return nil, fmt.Errorf("gormdb: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("gormdb: get sql.DB: %w", err)
	}
	return sqldb.NewDriver(sqlDB, dialect, opts...), nil
}
