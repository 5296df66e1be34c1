package loader

import (
	"strings"

	"go.mercari.io/schemanorm/models"
)

// Filter removes ignored tables and fields from doc, in place, and returns
// it. A table pattern is a table name or "schema.table". A field pattern is
// a column name, which matches in every table, or "table.column".
//
// Indexes, references and record columns that mention a removed entity
// are removed with it.
func Filter(doc *models.Document, ignoreTables, ignoreFields []string) *models.Document {
	if len(ignoreTables) == 0 && len(ignoreFields) == 0 {
		return doc
	}

	tables := doc.Tables[:0]
	for _, t := range doc.Tables {
		if !matchTable(ignoreTables, t.SchemaName, t.Name) {
			tables = append(tables, t)
		}
	}
	doc.Tables = tables

	removed := map[string]map[string]bool{} // table -> removed columns
	for _, t := range doc.Tables {
		var drop map[string]bool
		fields := t.Fields[:0]
		for _, f := range t.Fields {
			if !matchField(ignoreFields, t.Name, f.Name) {
				fields = append(fields, f)
				continue
			}
			if drop == nil {
				drop = map[string]bool{}
			}
			drop[f.Name] = true
			// earlier dropped cells are already gone
			dropPositional(doc, t, len(fields))
		}
		t.Fields = fields
		if drop == nil {
			continue
		}
		removed[tableKey(t.SchemaName, t.Name)] = drop

		indexes := t.Indexes[:0]
		for _, idx := range t.Indexes {
			if !mentions(idx, drop) {
				indexes = append(indexes, idx)
			}
		}
		t.Indexes = indexes
	}

	refs := doc.Refs[:0]
	for _, r := range doc.Refs {
		if refKept(r, ignoreTables, removed) {
			refs = append(refs, r)
		}
	}
	doc.Refs = refs

	records := doc.Records[:0]
	for _, rec := range doc.Records {
		if matchTable(ignoreTables, rec.SchemaName, rec.TableName) {
			continue
		}
		if drop := removed[tableKey(rec.SchemaName, rec.TableName)]; len(drop) > 0 && len(rec.Columns) > 0 {
			dropRecordColumns(rec, drop)
		}
		records = append(records, rec)
	}
	doc.Records = records

	return doc
}

// dropPositional removes cell i from positional records of t, whose cells
// follow the field order.
func dropPositional(doc *models.Document, t *models.Table, i int) {
	for _, rec := range doc.Records {
		if len(rec.Columns) > 0 || rec.TableName != t.Name || rec.SchemaName != t.SchemaName {
			continue
		}
		for j, row := range rec.Values {
			if i < len(row) {
				rec.Values[j] = append(row[:i:i], row[i+1:]...)
			}
		}
	}
}

func dropRecordColumns(rec *models.TableRecord, drop map[string]bool) {
	var keep []int
	cols := make([]string, 0, len(rec.Columns))
	for i, c := range rec.Columns {
		if drop[c] {
			continue
		}
		keep = append(keep, i)
		cols = append(cols, c)
	}
	rec.Columns = cols
	for j, row := range rec.Values {
		out := make([]*models.Value, 0, len(keep))
		for _, i := range keep {
			if i < len(row) {
				out = append(out, row[i])
			}
		}
		rec.Values[j] = out
	}
}

func mentions(idx *models.Index, drop map[string]bool) bool {
	for _, c := range idx.Columns {
		if c.Type == models.IndexColumnName && drop[c.Value] {
			return true
		}
	}
	return false
}

func refKept(r *models.Ref, ignoreTables []string, removed map[string]map[string]bool) bool {
	for _, ep := range r.Endpoints {
		if matchTable(ignoreTables, ep.SchemaName, ep.TableName) {
			return false
		}
		drop := removed[tableKey(ep.SchemaName, ep.TableName)]
		for _, f := range ep.FieldNames {
			if drop[f] {
				return false
			}
		}
	}
	return true
}

func tableKey(schema, table string) string {
	return schema + "\x00" + table
}

func matchTable(patterns []string, schema, table string) bool {
	for _, p := range patterns {
		if p == table || (schema != "" && p == schema+"."+table) {
			return true
		}
	}
	return false
}

func matchField(patterns []string, table, field string) bool {
	for _, p := range patterns {
		if p == field {
			return true
		}
		if t, f, ok := strings.Cut(p, "."); ok && t == table && f == field {
			return true
		}
	}
	return false
}
