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

// Package postgres normalizes PostgreSQL DDL using the PostgreSQL parser
// itself (pg_query).
package postgres

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"go.mercari.io/schemanorm/models"
	"go.mercari.io/schemanorm/normalize"
)

// Dialect is the registered name of this normalizer.
const Dialect = "postgres"

// DefaultSchema is the schema an unqualified name belongs to.
const DefaultSchema = "public"

func init() {
	normalize.Register(Dialect, New)
}

// Normalizer converts PostgreSQL scripts. An unqualified name and the same
// name qualified with the default schema refer to the same table.
type Normalizer struct {
	schema string
}

// New returns a PostgreSQL Normalizer.
func New(opts normalize.Options) normalize.Normalizer {
	schema := opts.DefaultSchema
	if schema == "" {
		schema = DefaultSchema
	}
	return &Normalizer{schema: schema}
}

// Normalize implements normalize.Normalizer.
func (n *Normalizer) Normalize(src string) (*models.Document, error) {
	tree, err := pg_query.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres input: %w", err)
	}

	b := normalize.NewBuilder(normalize.DefaultSchema(n.schema))
	b.Document().Project.DatabaseType = "PostgreSQL"

	w := &walker{src: normalize.NewSource(src), b: b}
	for _, raw := range tree.Stmts {
		if raw.Stmt == nil {
			continue
		}
		w.start, w.end = w.stmtBounds(raw)
		if err := w.statement(raw.Stmt); err != nil {
			return nil, err
		}
	}
	return b.Document(), nil
}

// walker visits the statements of one parse tree.
type walker struct {
	src *normalize.Source
	b   *normalize.Builder

	// byte range of the current statement
	start, end int
}

func (w *walker) statement(node *pg_query.Node) error {
	switch n := node.Node.(type) {
	case *pg_query.Node_CreateStmt:
		return w.createTable(n.CreateStmt)
	case *pg_query.Node_AlterTableStmt:
		return w.alterTable(n.AlterTableStmt)
	case *pg_query.Node_IndexStmt:
		return w.createIndex(n.IndexStmt)
	case *pg_query.Node_CommentStmt:
		return w.comment(n.CommentStmt)
	case *pg_query.Node_CreateEnumStmt:
		w.createEnum(n.CreateEnumStmt)
	case *pg_query.Node_CreateSchemaStmt:
		w.b.AddSchema(n.CreateSchemaStmt.Schemaname)
	case *pg_query.Node_InsertStmt:
		w.insert(n.InsertStmt)
	}
	return nil
}

// stmtBounds returns the byte range of raw without leading blanks. A zero
// length means the statement runs to the end of the input.
func (w *walker) stmtBounds(raw *pg_query.RawStmt) (int, int) {
	text := w.src.Text()
	start := int(raw.StmtLocation)
	end := len(text)
	if raw.StmtLen > 0 {
		end = start + int(raw.StmtLen)
	}
	for start < end && isSpace(text[start]) {
		start++
	}
	return start, end
}

// span covers the source from loc to the end of the current statement.
// A negative loc, which pg_query uses for "unknown", falls back to the
// statement start.
func (w *walker) span(loc int32) normalize.Span {
	start := int(loc)
	if start < w.start || start > w.end {
		start = w.start
	}
	return w.src.Span(start, w.end)
}

// between covers the source from loc up to next, without trailing blanks
// and commas.
func (w *walker) between(loc, next int) normalize.Span {
	text := w.src.Text()
	start := loc
	if start < w.start || start > w.end {
		start = w.start
	}
	end := next
	if end <= start || end > w.end {
		end = w.end
	}
	for end > start && (isSpace(text[end-1]) || text[end-1] == ',') {
		end--
	}
	return w.src.Span(start, end)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func rangeVarName(rv *pg_query.RangeVar) normalize.Name {
	if rv == nil {
		return normalize.Name{}
	}
	return normalize.Name{Schema: rv.Schemaname, Table: rv.Relname}
}

// names returns the String items of a name list.
func names(nodes []*pg_query.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, node := range nodes {
		if s := node.GetString_(); s != nil {
			out = append(out, s.Sval)
		}
	}
	return out
}

// qualified splits a dotted name list into a Name, keeping the last two
// parts.
func qualified(parts []string) normalize.Name {
	switch len(parts) {
	case 0:
		return normalize.Name{}
	case 1:
		return normalize.Name{Table: parts[0]}
	}
	return normalize.Name{Schema: parts[len(parts)-2], Table: parts[len(parts)-1]}
}
