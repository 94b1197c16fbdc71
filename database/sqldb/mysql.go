package sqldb

import (
	"context"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/calumari/dbrider/schema"
)

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return "mysql" }

func (mysqlDialect) Quote(ident string) string { return quoteWith(ident, "`") }

func (mysqlDialect) Placeholder(int) string { return "?" }

func (mysqlDialect) InsertDefaults(table string) string {
	return "INSERT INTO " + table + " () VALUES ()"
}

const (
	mysqlTablesQuery = `
		SELECT TABLE_NAME
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = DATABASE()
		  AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`

	mysqlColumnsQuery = `
		SELECT TABLE_NAME, COLUMN_NAME
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = DATABASE()
		ORDER BY TABLE_NAME, ORDINAL_POSITION`

	mysqlForeignKeysQuery = `
		SELECT TABLE_NAME, COLUMN_NAME, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME
		FROM information_schema.KEY_COLUMN_USAGE
		WHERE TABLE_SCHEMA = DATABASE()
		  AND REFERENCED_TABLE_NAME IS NOT NULL
		ORDER BY TABLE_NAME, ORDINAL_POSITION`
)

func (mysqlDialect) Introspect(ctx context.Context, q Querier) (*schema.Catalog, error) {
	return introspectInformationSchema(ctx, q, mysqlTablesQuery, mysqlColumnsQuery, mysqlForeignKeysQuery)
}

// mysqlDSN enables multi statement scripts and native time values on dsn.
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.MultiStatements = true
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}
