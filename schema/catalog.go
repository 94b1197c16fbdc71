// Package schema holds the introspected table graph of a database and the
// insertion and cleanup orders derived from its foreign keys.
package schema

import "slices"

// ForeignKey is a child -> parent edge: Table.Column references
// RefTable.RefColumn.
type ForeignKey struct {
	Table     string
	Column    string
	RefTable  string
	RefColumn string
}

// Catalog is a point-in-time description of the tables of a database.
// Tables are listed in discovery order, which breaks ties when ordering.
type Catalog struct {
	Tables      []string
	Columns     map[string][]string
	ForeignKeys []ForeignKey
}

func (c *Catalog) HasTable(name string) bool {
	return slices.Contains(c.Tables, name)
}

// Parents returns the distinct tables referenced by table, excluding table
// itself, in foreign key order.
func (c *Catalog) Parents(table string) []string {
	var parents []string
	for _, fk := range c.ForeignKeys {
		if fk.Table != table || fk.RefTable == table || slices.Contains(parents, fk.RefTable) {
			continue
		}
		parents = append(parents, fk.RefTable)
	}
	return parents
}
