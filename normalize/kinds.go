package normalize

// TableKind classifies one element of a table definition or one table-level
// ALTER clause. It is a distinct type from ColumnKind and the two never
// compare.
type TableKind int

// Table-level kinds.
const (
	TableField TableKind = iota + 1
	TableIndex
	TableUnique
	TablePK
	TableFK
	TableDefault
	TableCheck
)

var tableKindNames = map[TableKind]string{
	TableField:   "table:field",
	TableIndex:   "table:index",
	TableUnique:  "table:unique",
	TablePK:      "table:pk",
	TableFK:      "table:fk",
	TableDefault: "table:default",
	TableCheck:   "table:check",
}

func (k TableKind) String() string {
	if s, ok := tableKindNames[k]; ok {
		return s
	}
	return "table:unknown"
}

// ColumnKind classifies one inline column constraint.
type ColumnKind int

// Column-level kinds. Values start past the table-level range.
const (
	ColumnNotNull ColumnKind = iota + 101
	ColumnNullable
	ColumnUnique
	ColumnPK
	ColumnDefault
	ColumnIncrement
	ColumnInlineRef
	ColumnNote
	ColumnCheck
)

var columnKindNames = map[ColumnKind]string{
	ColumnNotNull:   "column:not_null",
	ColumnNullable:  "column:nullable",
	ColumnUnique:    "column:unique",
	ColumnPK:        "column:pk",
	ColumnDefault:   "column:default",
	ColumnIncrement: "column:increment",
	ColumnInlineRef: "column:inline_ref",
	ColumnNote:      "column:note",
	ColumnCheck:     "column:check",
}

func (k ColumnKind) String() string {
	if s, ok := columnKindNames[k]; ok {
		return s
	}
	return "column:unknown"
}
