// Package catalog models the tables and columns scribe writes descriptions
// for, and adapts them to the generation engine.
package catalog

import (
	"fmt"

	"github.com/teranos/scribe/errors"
	"github.com/teranos/scribe/pulse/generate"
)

// Priority weights
const (
	RowsPerPriorityPoint = 1000
	MaxRowCountWeight    = 50
	KeyColumnWeight      = 25
	PIIColumnWeight      = 15
)

// Catalog is the set of tables loaded from one catalog file
type Catalog struct {
	Source string   `yaml:"source" json:"source" toml:"source"`
	Tables []*Table `yaml:"tables" json:"tables" toml:"tables"`
}

// Table is a database table awaiting a description
type Table struct {
	TableID     int64     `yaml:"id" json:"id" toml:"id"`
	Schema      string    `yaml:"schema" json:"schema" toml:"schema"`
	Name        string    `yaml:"name" json:"name" toml:"name"`
	TableType   string    `yaml:"type,omitempty" json:"type,omitempty" toml:"type,omitempty"`
	RowCount    int64     `yaml:"row_count,omitempty" json:"row_count,omitempty" toml:"row_count,omitempty"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty" toml:"description,omitempty"`
	Columns     []*Column `yaml:"columns" json:"columns" toml:"columns"`
}

// Column is a table column awaiting a description
type Column struct {
	ColumnID       int64            `yaml:"id" json:"id" toml:"id"`
	Name           string           `yaml:"name" json:"name" toml:"name"`
	DataType       string           `yaml:"data_type" json:"data_type" toml:"data_type"`
	Nullable       bool             `yaml:"nullable" json:"nullable" toml:"nullable"`
	IsKey          bool             `yaml:"is_key,omitempty" json:"is_key,omitempty" toml:"is_key,omitempty"`
	IsPII          bool             `yaml:"is_pii,omitempty" json:"is_pii,omitempty" toml:"is_pii,omitempty"`
	Cardinality    *int64           `yaml:"cardinality,omitempty" json:"cardinality,omitempty" toml:"cardinality,omitempty"`
	NullPercentage *float64         `yaml:"null_percentage,omitempty" json:"null_percentage,omitempty" toml:"null_percentage,omitempty"`
	TopValues      map[string]int64 `yaml:"top_values,omitempty" json:"top_values,omitempty" toml:"top_values,omitempty"`
	MinValue       string           `yaml:"min_value,omitempty" json:"min_value,omitempty" toml:"min_value,omitempty"`
	MaxValue       string           `yaml:"max_value,omitempty" json:"max_value,omitempty" toml:"max_value,omitempty"`

	table *Table
}

// TableItemID is the engine identity of table id
func TableItemID(id int64) string { return fmt.Sprintf("table_%d", id) }

// ColumnItemID is the engine identity of column id
func ColumnItemID(id int64) string { return fmt.Sprintf("column_%d", id) }

func (t *Table) ID() string { return TableItemID(t.TableID) }

// QualifiedName is schema.name, or name when the schema is unset
func (t *Table) QualifiedName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// Children returns the table's columns as engine entities
func (t *Table) Children() []generate.Entity {
	children := make([]generate.Entity, len(t.Columns))
	for i, c := range t.Columns {
		children[i] = c
	}
	return children
}

// Priority favours larger tables, up to MaxRowCountWeight
func (t *Table) Priority() int {
	return int(min(t.RowCount/RowsPerPriorityPoint, MaxRowCountWeight))
}

func (c *Column) ID() string { return ColumnItemID(c.ColumnID) }

// Table returns the owning table; nil until the catalog is linked
func (c *Column) Table() *Table { return c.table }

// Priority inherits the table's size weight and favours keys and PII
func (c *Column) Priority() int {
	p := 0
	if c.table != nil {
		p += c.table.Priority()
	}
	if c.IsKey {
		p += KeyColumnWeight
	}
	if c.IsPII {
		p += PIIColumnWeight
	}
	return p
}

// link sets every column's back-reference to its table
func (c *Catalog) link() {
	for _, t := range c.Tables {
		for _, col := range t.Columns {
			col.table = t
		}
	}
}

// Validate checks names are present and ids unique
func (c *Catalog) Validate() error {
	tables := map[int64]struct{}{}
	columns := map[int64]struct{}{}
	for _, t := range c.Tables {
		if t == nil {
			return errors.NewInvalidRequestError("catalog contains an empty table entry")
		}
		if t.Name == "" {
			return errors.NewInvalidRequestError("table %d has no name", t.TableID)
		}
		if _, dup := tables[t.TableID]; dup {
			return errors.NewInvalidRequestError("duplicate table id %d", t.TableID)
		}
		tables[t.TableID] = struct{}{}
		for _, col := range t.Columns {
			if col == nil {
				return errors.NewInvalidRequestError("table %s contains an empty column entry", t.Name)
			}
			if col.Name == "" {
				return errors.NewInvalidRequestError("column %d of table %s has no name", col.ColumnID, t.Name)
			}
			if _, dup := columns[col.ColumnID]; dup {
				return errors.NewInvalidRequestError("duplicate column id %d", col.ColumnID)
			}
			columns[col.ColumnID] = struct{}{}
		}
	}
	return nil
}

// Parents returns the tables as engine parents
func (c *Catalog) Parents() []generate.Parent {
	parents := make([]generate.Parent, len(c.Tables))
	for i, t := range c.Tables {
		parents[i] = t
	}
	return parents
}

// Selection restricts a run to the given column ids. No ids selects every column.
func (c *Catalog) Selection(columnIDs []int64) generate.Selection {
	if len(columnIDs) == 0 {
		return generate.SelectAll()
	}
	ids := make([]string, len(columnIDs))
	for i, id := range columnIDs {
		ids[i] = ColumnItemID(id)
	}
	return generate.NewSelection(ids...)
}

// Counts returns the number of tables and columns
func (c *Catalog) Counts() (tables, columns int) {
	for _, t := range c.Tables {
		columns += len(t.Columns)
	}
	return len(c.Tables), columns
}
