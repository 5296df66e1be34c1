package normalize

import (
	"go.mercari.io/schemanorm/models"
)

// SchemaRule reports whether a table's schema name matches a looked-up
// schema name. Dialects differ in how an absent schema compares.
type SchemaRule func(tableSchema, wanted string) bool

// ExactSchema treats an absent schema as a distinct, empty schema.
func ExactSchema(tableSchema, wanted string) bool {
	return tableSchema == wanted
}

// DefaultSchema treats an absent schema as def on both sides.
func DefaultSchema(def string) SchemaRule {
	return func(tableSchema, wanted string) bool {
		if tableSchema == "" {
			tableSchema = def
		}
		if wanted == "" {
			wanted = def
		}
		return tableSchema == wanted
	}
}

// FindTable returns the table named name, or nil.
func FindTable(tables []*models.Table, name Name, rule SchemaRule) *models.Table {
	if rule == nil {
		rule = ExactSchema
	}
	for _, t := range tables {
		if t.Name == name.Table && rule(t.SchemaName, name.Schema) {
			return t
		}
	}
	return nil
}

// FindColumn returns the field of t named name, or nil.
func FindColumn(t *models.Table, name string) *models.Field {
	if t == nil {
		return nil
	}
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// PrimaryKey lists the key columns of t, whether they were collapsed into
// the fields or kept as a pk index.
func PrimaryKey(t *models.Table) []string {
	for _, idx := range t.Indexes {
		if !idx.PK {
			continue
		}
		keys := make([]string, 0, len(idx.Columns))
		for _, c := range idx.Columns {
			keys = append(keys, c.Value)
		}
		return keys
	}
	var keys []string
	for _, f := range t.Fields {
		if f.PK {
			keys = append(keys, f.Name)
		}
	}
	return keys
}
