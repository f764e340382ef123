package postgres

import (
	"strings"

	"roas/internal/storage"
)

// BuildCreateTableSQL renders t as a Postgres CREATE TABLE IF NOT EXISTS
// statement with double-quoted identifiers.
func BuildCreateTableSQL(t storage.TableDef) (string, error) {
	if err := t.Check(); err != nil {
		return "", err
	}
	return storage.BuildCreateTable(t, quoteIdent, sqlType), nil
}

func sqlType(ct storage.ColumnType) string {
	switch ct {
	case storage.TypeInteger:
		return "BIGINT"
	case storage.TypeReal:
		return "DOUBLE PRECISION"
	default:
		return "TEXT"
	}
}

// quoteIdent quotes one identifier segment, doubling embedded quotes.
func quoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
