package models

import (
	"strings"
	"time"
)

// SchemaSnapshot is an immutable view of the connected database's structure,
// taken by the catalog at load time. Readers share snapshots freely; a
// refresh builds a new snapshot and swaps it in, it never mutates one that
// has already been handed out. YAML tags support the on-disk cache file.
type SchemaSnapshot struct {
	Tables   []Table   `json:"tables" yaml:"tables"`
	LoadedAt time.Time `json:"loaded_at" yaml:"loaded_at"`
}

// Table describes one table visible to the pipeline.
type Table struct {
	Name        string       `json:"name" yaml:"name"`
	Columns     []Column     `json:"columns" yaml:"columns"`
	PrimaryKey  []string     `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
	ForeignKeys []ForeignKey `json:"foreign_keys,omitempty" yaml:"foreign_keys,omitempty"`
}

// Column describes one table column.
type Column struct {
	Name     string `json:"name" yaml:"name"`
	DataType string `json:"data_type" yaml:"data_type"`
	Nullable bool   `json:"nullable" yaml:"nullable"`
}

// ForeignKey records a referential constraint from one column to another
// table's column.
type ForeignKey struct {
	Column    string `json:"column" yaml:"column"`
	RefTable  string `json:"ref_table" yaml:"ref_table"`
	RefColumn string `json:"ref_column" yaml:"ref_column"`
}

// TableNames returns the snapshot's table names in declaration order.
func (s *SchemaSnapshot) TableNames() []string {
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Name
	}
	return names
}

// HasTable reports whether the snapshot contains the named table.
// Matching is case-insensitive to mirror how unquoted identifiers resolve.
func (s *SchemaSnapshot) HasTable(name string) bool {
	return s.FindTable(name) != nil
}

// FindTable returns the named table, or nil when the snapshot does not
// contain it.
func (s *SchemaSnapshot) FindTable(name string) *Table {
	for i := range s.Tables {
		if strings.EqualFold(s.Tables[i].Name, name) {
			return &s.Tables[i]
		}
	}
	return nil
}
