package normalize

import (
	"strings"

	"go.mercari.io/schemanorm/models"
)

// Name is a qualified table name. Only the schema and table parts are kept.
type Name struct {
	Schema string
	Table  string
}

func (n Name) String() string {
	if n.Schema == "" {
		return n.Table
	}
	return n.Schema + "." + n.Table
}

// LiteralKind is the tag a dialect gives a literal before it is folded into
// the document's value tags.
type LiteralKind int

// Literal kinds.
const (
	LiteralExpression LiteralKind = iota
	LiteralString
	LiteralNumber
	LiteralBoolean
	LiteralNull
	LiteralIdentifier
)

// Literal is a dialect-decoded value. Text is the unescaped content for
// strings and the source spelling otherwise.
type Literal struct {
	Kind LiteralKind
	Text string
}

// DefaultValue folds the literal into a column default. Identifier-shaped
// defaults (CURRENT_TIMESTAMP, sysdate, a bare name) become expressions.
func (l Literal) DefaultValue() *models.Value {
	switch l.Kind {
	case LiteralString:
		return models.StringValue(l.Text)
	case LiteralNumber:
		return models.NumberValue(l.Text)
	case LiteralBoolean:
		return models.BooleanValue(strings.ToLower(l.Text))
	case LiteralNull:
		return models.NullDefault()
	default:
		return models.ExpressionValue(l.Text)
	}
}

// RecordValue folds the literal into a seed record cell. SQL NULL is nil.
func (l Literal) RecordValue() *models.Value {
	switch l.Kind {
	case LiteralNull:
		return nil
	case LiteralString:
		return models.StringValue(l.Text)
	case LiteralNumber:
		return models.NumberValue(l.Text)
	case LiteralBoolean:
		return models.BooleanValue(strings.ToLower(l.Text))
	default:
		return models.ExpressionValue(l.Text)
	}
}

// FieldDef is a column definition before it is merged into a Field.
// An empty Type.TypeName means the column had no resolvable type.
type FieldDef struct {
	Name        string
	Type        models.FieldType
	Constraints []ColumnConstraint
	Span        Span
}

// ColumnConstraint is a classified inline column constraint. Only the payload
// matching Kind is set.
type ColumnConstraint struct {
	Kind       ColumnKind
	Name       string
	Default    Literal     // ColumnDefault
	Expression string      // ColumnCheck
	Note       string      // ColumnNote
	Ref        *PendingRef // ColumnInlineRef
}

// TableConstraint is a classified element of a table definition, or a
// table-level ALTER clause. Only the payload matching Kind is set.
type TableConstraint struct {
	Kind       TableKind
	Name       string
	Field      *FieldDef            // TableField
	Columns    []models.IndexColumn // TableIndex, TableUnique, TablePK
	IndexType  string               // TableIndex
	Ref        *PendingRef          // TableFK
	Column     string               // TableDefault
	Default    Literal              // TableDefault
	Expression string               // TableCheck
	Span       Span
}

// PendingRef is a foreign key whose referencing table is not known yet. It
// is completed by Bind once the enclosing table is resolved.
type PendingRef struct {
	Name       string
	FieldNames []string // referencing columns, empty for inline references
	Target     Name
	TargetKeys []string
	OnDelete   string
	OnUpdate   string
}

// Bind returns a new, complete Ref whose referencing endpoint is the given
// table and columns. The PendingRef itself is left untouched.
func (p *PendingRef) Bind(table Name, fieldNames []string) *models.Ref {
	return &models.Ref{
		Name: p.Name,
		Endpoints: [2]models.Endpoint{
			{
				TableName:  table.Table,
				SchemaName: table.Schema,
				FieldNames: append([]string(nil), fieldNames...),
				Relation:   models.RelationMany,
			},
			{
				TableName:  p.Target.Table,
				SchemaName: p.Target.Schema,
				FieldNames: append([]string(nil), p.TargetKeys...),
				Relation:   models.RelationOne,
			},
		},
		OnDelete: p.OnDelete,
		OnUpdate: p.OnUpdate,
	}
}

// AlterClause is one sub-clause of an ALTER TABLE statement. A clause either
// targets the whole table (Table set, including TableField for added
// columns) or changes one existing column (Column set).
type AlterClause struct {
	Table       *TableConstraint
	Column      string
	Type        *models.FieldType
	Constraints []ColumnConstraint
	Span        Span
}
