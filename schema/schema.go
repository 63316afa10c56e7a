// © 2013 the CatBase Authors under the WTFPL. See AUTHORS for the list of authors.

// Package schema keeps the table definitions plugins declare, separate from
// whatever is actually stored in the database.
package schema

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
)

// ColumnType is the storage class of a column.
type ColumnType string

const (
	Integer  ColumnType = "integer"
	String   ColumnType = "string"
	Boolean  ColumnType = "boolean"
	DateTime ColumnType = "datetime"
	Real     ColumnType = "real"
)

type Column struct {
	Name    string
	Type    ColumnType
	NotNull bool
}

// Col is a shorthand for a nullable column.
func Col(name string, t ColumnType) Column {
	return Column{Name: name, Type: t}
}

// Table is a table definition bound to one Metadata.
type Table struct {
	Name       string
	Columns    []Column
	PrimaryKey []string
	Metadata   *Metadata
}

// Metadata is a registry of table definitions.
type Metadata struct {
	mu     sync.Mutex
	tables map[string]*Table
}

func NewMetadata() *Metadata {
	return &Metadata{tables: make(map[string]*Table)}
}

// Base is the process-wide metadata plugin tables are declared against.
var Base = NewMetadata()

// Table defines a table and registers it. Redefining a name replaces the
// old definition.
func (m *Metadata) Table(name string, pk []string, cols ...Column) *Table {
	t := &Table{
		Name:       name,
		Columns:    cols,
		PrimaryKey: pk,
		Metadata:   m,
	}
	m.mu.Lock()
	m.tables[name] = t
	m.mu.Unlock()
	return t
}

// Remove unregisters t. Stored rows are not touched.
func (m *Metadata) Remove(t *Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tables[t.Name] == t {
		delete(m.tables, t.Name)
	}
}

// Has reports whether a table of that name is registered.
func (m *Metadata) Has(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tables[name]
	return ok
}

// Names returns the registered table names, sorted.
func (m *Metadata) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.tables))
	for n := range m.tables {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// CreateAll creates every registered table that does not exist yet.
func (m *Metadata) CreateAll(ctx context.Context, db *sqlx.DB) error {
	m.mu.Lock()
	tables := make([]*Table, 0, len(m.tables))
	for _, t := range m.tables {
		tables = append(tables, t)
	}
	m.mu.Unlock()
	for _, t := range tables {
		if err := t.Create(ctx, db); err != nil {
			return err
		}
	}
	return nil
}

// DDL is the create statement for the table.
func (t *Table) DDL() string {
	defs := []string{}
	for _, c := range t.Columns {
		d := fmt.Sprintf("%s %s", quote(c.Name), c.Type)
		if c.NotNull {
			d += " not null"
		}
		defs = append(defs, d)
	}
	if len(t.PrimaryKey) > 0 {
		pk := []string{}
		for _, k := range t.PrimaryKey {
			pk = append(pk, quote(k))
		}
		defs = append(defs, fmt.Sprintf("primary key (%s)", strings.Join(pk, ", ")))
	}
	return fmt.Sprintf("create table if not exists %s (\n\t%s\n)", quote(t.Name), strings.Join(defs, ",\n\t"))
}

// Exists checks the database for the table.
func (t *Table) Exists(ctx context.Context, db *sqlx.DB) (bool, error) {
	var n int
	err := db.GetContext(ctx, &n, `select count(*) from sqlite_master where type='table' and name=?`, t.Name)
	if err != nil {
		return false, fmt.Errorf("checking table %s: %w", t.Name, err)
	}
	return n > 0, nil
}

// Create creates the table if it is missing.
func (t *Table) Create(ctx context.Context, db *sqlx.DB) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, t.DDL()); err != nil {
		tx.Rollback()
		return fmt.Errorf("creating table %s: %w", t.Name, err)
	}
	return tx.Commit()
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
