package loader

import (
	"strings"

	"go.mercari.io/schemanorm/models"
)

// foreignKeyRow is one column pair of a foreign key, as the catalogs list
// them.
type foreignKeyRow struct {
	name      string
	column    string
	refSchema string
	refTable  string
	refColumn string
	onDelete  string
	onUpdate  string
}

// foreignKeys groups consecutive rows of the same constraint.
type foreignKeys struct {
	list []*ForeignKey
}

func (f *foreignKeys) add(r foreignKeyRow) {
	if n := len(f.list); n > 0 && f.list[n-1].Name == r.name {
		fk := f.list[n-1]
		fk.Columns = append(fk.Columns, r.column)
		fk.RefColumns = append(fk.RefColumns, r.refColumn)
		return
	}
	f.list = append(f.list, &ForeignKey{
		Name:       r.name,
		Columns:    []string{r.column},
		RefSchema:  r.refSchema,
		RefTable:   r.refTable,
		RefColumns: []string{r.refColumn},
		OnDelete:   ruleAction(r.onDelete),
		OnUpdate:   ruleAction(r.onUpdate),
	})
}

// ruleAction maps an information schema rule ("CASCADE", "SET NULL",
// "NO ACTION", SQL Server's "SET_NULL", ...) to a referential action. NO
// ACTION is the default and is left empty.
func ruleAction(rule string) string {
	switch strings.ToUpper(strings.ReplaceAll(rule, "_", " ")) {
	case "CASCADE":
		return models.ActionCascade
	case "SET NULL":
		return models.ActionSetNull
	case "SET DEFAULT":
		return models.ActionSetDefault
	case "RESTRICT":
		return models.ActionRestrict
	}
	return ""
}
