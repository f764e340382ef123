package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// ColumnType is a dialect-neutral column type. Backends map it to SQL.
type ColumnType int

const (
	TypeText ColumnType = iota
	TypeInteger
	TypeReal
)

// Column describes one destination column.
type Column struct {
	Name       string
	Type       ColumnType
	Nullable   bool
	PrimaryKey bool
}

// TableDef describes a destination table. Name may be schema qualified
// ("public.roas_report").
type TableDef struct {
	Name    string
	Columns []Column
}

// ColumnNames returns the column names in declaration order.
func (t TableDef) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Check rejects definitions no backend can render.
func (t TableDef) Check() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("ddl: table name must not be empty")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("ddl: table %s needs at least one column", t.Name)
	}
	for _, c := range t.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("ddl: column with empty name in table %s", t.Name)
		}
	}
	return nil
}

// DDLBuilder renders a CREATE TABLE IF NOT EXISTS statement in a backend's
// dialect.
type DDLBuilder func(t TableDef) (string, error)

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLBuilder{}
)

// RegisterDDL registers the DDL builder for a storage kind.
func RegisterDDL(kind string, fn DDLBuilder) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// CreateTableSQL renders t for the given storage kind.
func CreateTableSQL(kind string, t TableDef) (string, error) {
	ddlMu.RLock()
	fn, ok := ddlFns[kind]
	ddlMu.RUnlock()
	if !ok {
		return "", fmt.Errorf("no DDL builder registered for storage.kind=%q", kind)
	}
	if err := t.Check(); err != nil {
		return "", err
	}
	return fn(t)
}

// EnsureTable creates t through repo if it does not exist yet.
func EnsureTable(ctx context.Context, kind string, repo Repository, t TableDef) error {
	stmt, err := CreateTableSQL(kind, t)
	if err != nil {
		return err
	}
	if err := repo.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("apply DDL: %w", err)
	}
	return nil
}

// QuoteFQN quotes each dot-separated segment with quote, skipping empty
// segments.
func QuoteFQN(name string, quote func(string) string) string {
	parts := strings.Split(name, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, quote(p))
	}
	return strings.Join(out, ".")
}

// BuildCreateTable renders the shared CREATE TABLE IF NOT EXISTS shape used
// by the postgres and sqlite dialects. typeOf maps a ColumnType to SQL.
func BuildCreateTable(t TableDef, quote func(string) string, typeOf func(ColumnType) string) string {
	cols := make([]string, 0, len(t.Columns)+1)
	var pks []string
	for _, c := range t.Columns {
		var sb strings.Builder
		sb.WriteString(quote(c.Name))
		sb.WriteByte(' ')
		sb.WriteString(typeOf(c.Type))
		// Primary keys are always NOT NULL.
		if !c.Nullable || c.PrimaryKey {
			sb.WriteString(" NOT NULL")
		}
		cols = append(cols, sb.String())
		if c.PrimaryKey {
			pks = append(pks, quote(c.Name))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s\n);",
		QuoteFQN(t.Name, quote),
		strings.Join(cols, ",\n  "),
	)
}
