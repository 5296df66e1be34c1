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

// Package mssql normalizes SQL Server (T-SQL) scripts.
package mssql

import (
	"go.mercari.io/schemanorm/internal/sqlscan"
	"go.mercari.io/schemanorm/models"
	"go.mercari.io/schemanorm/normalize"
)

// Dialect is the registered name of this normalizer.
const Dialect = "mssql"

func init() {
	normalize.Register(Dialect, New)
}

// Normalizer converts T-SQL scripts. Names may carry up to four parts
// (server.database.schema.table); only the last two are kept, and an
// absent schema never matches a present one.
//
// CREATE TABLE column lists and INSERT rows are read through
// github.com/ha1tch/aul/pkg/tsqlparser when it accepts the statement; the
// tokens carry everything else.
type Normalizer struct {
	opts normalize.Options

	// tokensOnly skips the syntax tree for every statement.
	tokensOnly bool
}

// New returns a T-SQL Normalizer.
func New(opts normalize.Options) normalize.Normalizer {
	return &Normalizer{opts: opts}
}

// Normalize implements normalize.Normalizer.
func (n *Normalizer) Normalize(src string) (*models.Document, error) {
	source := normalize.NewSource(src)
	toks, err := sqlscan.Lex(source, sqlscan.TSQL)
	if err != nil {
		return nil, err
	}

	rule := normalize.ExactSchema
	if n.opts.DefaultSchema != "" {
		rule = normalize.DefaultSchema(n.opts.DefaultSchema)
	}
	b := normalize.NewBuilder(rule)
	b.Document().Project.DatabaseType = "SQL Server"

	for _, stmt := range sqlscan.Split(toks) {
		if stmt.IsBlock() {
			continue
		}
		p := &parser{c: sqlscan.NewCursor(source, stmt), b: b, tokensOnly: n.tokensOnly}
		if err := p.batch(); err != nil {
			return nil, err
		}
	}
	return b.Document(), nil
}

type parser struct {
	c *sqlscan.Cursor
	b *normalize.Builder

	tokensOnly bool
	// typed holds the remaining column verdicts of the table being read.
	typed []bool
}

// batch handles every statement of one token run. T-SQL does not require
// semicolons, so several statements may share a run.
func (p *parser) batch() error {
	for !p.c.Done() {
		handled, err := p.statement()
		if err != nil {
			return err
		}
		if !handled {
			p.c.Next()
		}
		p.resync()
	}
	return nil
}

func (p *parser) statement() (bool, error) {
	c := p.c
	switch {
	case c.Peek().Is("CREATE"):
		mark := c.Mark()
		start := c.Next()
		switch {
		case c.Accept("TABLE"):
			return true, p.createTable(start)
		case c.Peek().Is("UNIQUE"), c.Peek().Is("CLUSTERED"), c.Peek().Is("NONCLUSTERED"), c.Peek().Is("INDEX"):
			return true, p.createIndex(start)
		case c.Accept("SCHEMA"):
			name, err := c.Ident()
			if err != nil {
				return true, err
			}
			p.b.AddSchema(name)
			return true, nil
		}
		c.Reset(mark)
	case c.Peek().Is("ALTER") && c.PeekN(1).Is("TABLE"):
		start := c.Next()
		c.Next()
		return true, p.alterTable(start)
	case c.Peek().Is("INSERT"):
		return true, p.insert()
	case c.Peek().Is("EXEC"), c.Peek().Is("EXECUTE"):
		return true, p.exec()
	}
	return false, nil
}

// resync skips tokens up to the start of the next supported statement.
func (p *parser) resync() {
	c := p.c
	depth := 0
	for !c.Done() {
		t := c.Peek()
		switch {
		case t.IsPunct("("):
			depth++
		case t.IsPunct(")"):
			depth--
		case depth <= 0 && isStatementStart(c):
			return
		}
		c.Next()
	}
}

func isStatementStart(c *sqlscan.Cursor) bool {
	t, next := c.Peek(), c.PeekN(1)
	switch {
	case t.Is("CREATE"):
		return next.Is("TABLE") || next.Is("INDEX") || next.Is("UNIQUE") ||
			next.Is("CLUSTERED") || next.Is("NONCLUSTERED") || next.Is("SCHEMA")
	case t.Is("ALTER"):
		return next.Is("TABLE")
	case t.Is("INSERT"):
		return next.Is("INTO") || next.IsIdent()
	case t.Is("EXEC"), t.Is("EXECUTE"):
		return next.IsIdent()
	}
	return false
}

// tableName keeps the schema and table parts of a name of up to four parts.
func tableName(parts []string) normalize.Name {
	switch len(parts) {
	case 0:
		return normalize.Name{}
	case 1:
		return normalize.Name{Table: parts[0]}
	}
	return normalize.Name{Schema: parts[len(parts)-2], Table: parts[len(parts)-1]}
}
