// Copyright (c) 2020 Mercari, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

package loader

import (
	"go.mercari.io/schemanorm/normalize"
)

// Table represents table info.
type Table struct {
	Schema          string // table_schema, empty for the default schema
	TableName       string // table_name
	ParentTableName string // interleave parent, Spanner only
	Note            string
}

// Name returns the qualified name of t.
func (t *Table) Name() normalize.Name {
	return normalize.Name{Schema: t.Schema, Table: t.TableName}
}

// Column represents column info.
type Column struct {
	FieldOrdinal int                // field_ordinal
	ColumnName   string             // column_name
	DataType     string             // data_type, with its arguments
	NotNull      bool               // not_null
	IsIdentity   bool               // identity or serial column
	Default      *normalize.Literal // decoded column_default, nil when absent
	Note         string
}

// Index represents an index.
type Index struct {
	IndexName string // index name
	IsUnique  bool   // the index is unique or not
	IsPrimary bool   // the index is primary key or not
	Type      string // access method, empty for the default
}

// IndexColumn represents index column info.
type IndexColumn struct {
	SeqNo      int    // seq_no. If it's a Storing Column, this value is 0.
	ColumnName string // column_name, or the expression text
	Expression bool   // key is an expression rather than a column
	Storing    bool   // storing column or not
}

// ForeignKey represents one foreign key constraint. Columns and RefColumns
// pair up by position.
type ForeignKey struct {
	Name       string
	Columns    []string
	RefSchema  string
	RefTable   string
	RefColumns []string
	OnDelete   string // one of the models.Action constants, or empty
	OnUpdate   string
}
