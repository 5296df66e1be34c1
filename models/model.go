package models

// Document is the dialect-neutral schema produced by a normalizer.
type Document struct {
	Schemas     []*Schema      `json:"schemas"`
	Tables      []*Table       `json:"tables"`
	Refs        []*Ref         `json:"refs"`
	Enums       []*Enum        `json:"enums"`
	TableGroups []*TableGroup  `json:"tableGroups"`
	Aliases     []*Alias       `json:"aliases"`
	Records     []*TableRecord `json:"records"`
	Project     *Project       `json:"project"`
}

// NewDocument returns an empty document with every list initialized, so that
// it encodes to empty arrays rather than null.
func NewDocument() *Document {
	return &Document{
		Schemas:     []*Schema{},
		Tables:      []*Table{},
		Refs:        []*Ref{},
		Enums:       []*Enum{},
		TableGroups: []*TableGroup{},
		Aliases:     []*Alias{},
		Records:     []*TableRecord{},
		Project:     &Project{},
	}
}

// Schema represents a CREATE SCHEMA statement.
type Schema struct {
	Name string `json:"name"` // schema_name
	Note string `json:"note,omitempty"`
}

// Table represents table info.
type Table struct {
	Name       string   `json:"name"`                 // table_name
	SchemaName string   `json:"schemaName,omitempty"` // schema_name
	Fields     []*Field `json:"fields"`               // ordered by definition
	Indexes    []*Index `json:"indexes"`
	Checks     []*Check `json:"checks,omitempty"`
	Note       string   `json:"note,omitempty"`
}

// Field represents column info.
type Field struct {
	Name      string    `json:"name"` // column_name
	Type      FieldType `json:"type"` // data_type
	NotNull   bool      `json:"not_null,omitempty"`
	PK        bool      `json:"pk,omitempty"`
	Unique    bool      `json:"unique,omitempty"`
	Increment bool      `json:"increment,omitempty"`
	Default   *Value    `json:"dbdefault,omitempty"`
	Checks    []*Check  `json:"checks,omitempty"`
	Note      string    `json:"note,omitempty"`
}

// FieldType is the declared type of a column. TypeName keeps the type
// arguments, e.g. "varchar(255)".
type FieldType struct {
	TypeName   string `json:"type_name"`
	SchemaName string `json:"schemaName,omitempty"`
}

// Check is a CHECK constraint expression.
type Check struct {
	Name       string `json:"name,omitempty"`
	Expression string `json:"expression"`
}

// Index represents an index.
type Index struct {
	Name    string        `json:"name,omitempty"` // index_name
	Columns []IndexColumn `json:"columns"`
	Unique  bool          `json:"unique,omitempty"` // the index is unique or not
	PK      bool          `json:"pk,omitempty"`     // the index is primary key or not
	Type    string        `json:"type,omitempty"`   // btree, hash, bitmap, ...
	Note    string        `json:"note,omitempty"`
}

// Ref is a foreign key relationship. Endpoints[0] is the referencing side and
// Endpoints[1] the referenced side.
type Ref struct {
	Name      string      `json:"name,omitempty"`
	Endpoints [2]Endpoint `json:"endpoints"`
	OnDelete  string      `json:"onDelete,omitempty"`
	OnUpdate  string      `json:"onUpdate,omitempty"`
}

// Relation markers of an Endpoint.
const (
	RelationMany = "*"
	RelationOne  = "1"
)

// Endpoint is one side of a Ref.
type Endpoint struct {
	TableName  string   `json:"tableName"`
	SchemaName string   `json:"schemaName,omitempty"`
	FieldNames []string `json:"fieldNames"`
	Relation   string   `json:"relation"`
}

// Referential actions.
const (
	ActionCascade    = "cascade"
	ActionSetNull    = "set null"
	ActionSetDefault = "set default"
	ActionRestrict   = "restrict"
	ActionNoAction   = "no action"
)

// Enum represents an enumerated type.
type Enum struct {
	Name       string       `json:"name"`
	SchemaName string       `json:"schemaName,omitempty"`
	Values     []*EnumValue `json:"values"` // ordered
	Note       string       `json:"note,omitempty"`
}

// EnumValue is one member of an Enum.
type EnumValue struct {
	Name string `json:"name"`
	Note string `json:"note,omitempty"`
}

// TableRecord is literal seed data for one table. An empty Columns list means
// the rows are positional over all columns.
type TableRecord struct {
	SchemaName string     `json:"schemaName,omitempty"`
	TableName  string     `json:"tableName"`
	Columns    []string   `json:"columns"`
	Values     [][]*Value `json:"values"` // a nil item is SQL NULL
}

// TableGroup groups tables under a name.
type TableGroup struct {
	Name       string          `json:"name"`
	SchemaName string          `json:"schemaName,omitempty"`
	Tables     []TableGroupRef `json:"tables"`
	Note       string          `json:"note,omitempty"`
}

// TableGroupRef names a member table of a TableGroup.
type TableGroupRef struct {
	Name       string `json:"name"`
	SchemaName string `json:"schemaName,omitempty"`
}

// Alias is an alternative name for a table.
type Alias struct {
	Name  string        `json:"name"`
	Kind  string        `json:"kind"`
	Value TableGroupRef `json:"value"`
}

// Project holds document level metadata.
type Project struct {
	Name         string `json:"name,omitempty"`
	DatabaseType string `json:"database_type,omitempty"`
	Note         string `json:"note,omitempty"`
}
