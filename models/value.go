package models

// ValueType tags a literal value.
type ValueType string

// Tags of a Value.
const (
	ValueString     ValueType = "string"
	ValueNumber     ValueType = "number"
	ValueBoolean    ValueType = "boolean"
	ValueExpression ValueType = "expression"
)

// Value is a tagged literal. Value holds the unescaped text for strings, the
// literal spelling for numbers and booleans, and the source text for
// expressions.
type Value struct {
	Type  ValueType `json:"type"`
	Value string    `json:"value"`
}

// StringValue returns a string-tagged Value.
func StringValue(s string) *Value { return &Value{Type: ValueString, Value: s} }

// NumberValue returns a number-tagged Value.
func NumberValue(s string) *Value { return &Value{Type: ValueNumber, Value: s} }

// BooleanValue returns a boolean-tagged Value.
func BooleanValue(s string) *Value { return &Value{Type: ValueBoolean, Value: s} }

// ExpressionValue returns an expression-tagged Value.
func ExpressionValue(s string) *Value { return &Value{Type: ValueExpression, Value: s} }

// NullDefault is the value a DEFAULT NULL clause folds into.
func NullDefault() *Value { return BooleanValue("null") }

// IndexColumnType tags an index column. It is the reference-or-literal
// union used where a token may denote a column name or something else.
type IndexColumnType string

// Tags of an IndexColumn.
const (
	IndexColumnName       IndexColumnType = "column"
	IndexColumnString     IndexColumnType = "string"
	IndexColumnExpression IndexColumnType = "expression"
)

// IndexColumn is one key part of an Index.
type IndexColumn struct {
	Type  IndexColumnType `json:"type"`
	Value string          `json:"value"`
}

// ColumnKey returns an IndexColumn naming a column.
func ColumnKey(name string) IndexColumn {
	return IndexColumn{Type: IndexColumnName, Value: name}
}

// ExpressionKey returns an IndexColumn holding an expression.
func ExpressionKey(expr string) IndexColumn {
	return IndexColumn{Type: IndexColumnExpression, Value: expr}
}
