// Package oracle normalizes Oracle DDL scripts, including SQL*Plus style
// "/" terminators.
package oracle

import (
	"errors"

	"github.com/sjjian/oracle-sql-parser/ast"

	"go.mercari.io/schemanorm/internal/sqlscan"
	"go.mercari.io/schemanorm/models"
	"go.mercari.io/schemanorm/normalize"
)

// Dialect is the registered name of this normalizer.
const Dialect = "oracle"

func init() {
	normalize.Register(Dialect, New)
}

// Normalizer converts Oracle scripts. An absent schema is a schema of its
// own: "T" and "HR"."T" are different tables.
//
// CREATE TABLE and ALTER TABLE are parsed with
// github.com/sjjian/oracle-sql-parser; statements outside its grammar and
// the remaining statement kinds are read from their tokens.
type Normalizer struct {
	opts normalize.Options

	// tokensOnly skips the syntax tree for every statement.
	tokensOnly bool
}

// New returns an Oracle Normalizer.
func New(opts normalize.Options) normalize.Normalizer {
	return &Normalizer{opts: opts}
}

// Normalize implements normalize.Normalizer.
func (n *Normalizer) Normalize(src string) (*models.Document, error) {
	source := normalize.NewSource(src)
	toks, err := sqlscan.Lex(source, sqlscan.Oracle)
	if err != nil {
		return nil, err
	}

	rule := normalize.ExactSchema
	if n.opts.DefaultSchema != "" {
		rule = normalize.DefaultSchema(n.opts.DefaultSchema)
	}
	b := normalize.NewBuilder(rule)
	b.Document().Project.DatabaseType = "Oracle"

	for _, stmt := range sqlscan.Split(toks) {
		p := &parser{c: sqlscan.NewCursor(source, stmt), b: b, stmt: stmt, tokensOnly: n.tokensOnly}
		if err := p.statement(); err != nil {
			return nil, err
		}
	}
	return b.Document(), nil
}

type parser struct {
	c    *sqlscan.Cursor
	b    *normalize.Builder
	stmt sqlscan.Statement

	tokensOnly bool
}

func (p *parser) statement() error {
	c := p.c
	start := c.Peek()
	switch {
	case c.Accept("CREATE"):
		c.Accept("OR", "REPLACE")
		switch {
		case c.Accept("GLOBAL", "TEMPORARY", "TABLE"),
			c.Accept("PRIVATE", "TEMPORARY", "TABLE"),
			c.Accept("SHARDED", "TABLE"),
			c.Accept("DUPLICATED", "TABLE"):
			return p.createTable(start)
		case c.Accept("TABLE"):
			mark := c.Mark()
			if stmt, ok := p.parseTree().(*ast.CreateTableStmt); ok {
				err := p.createTableTree(start, stmt)
				if !errors.Is(err, errTreeShape) {
					return err
				}
				c.Reset(mark)
			}
			return p.createTable(start)
		case c.Peek().Is("UNIQUE"), c.Peek().Is("BITMAP"), c.Peek().Is("INDEX"):
			return p.createIndex(start)
		}
	case c.Accept("ALTER", "TABLE"):
		mark := c.Mark()
		if stmt, ok := p.parseTree().(*ast.AlterTableStmt); ok {
			err := p.alterTableTree(start, stmt)
			if !errors.Is(err, errTreeShape) {
				return err
			}
			c.Reset(mark)
		}
		return p.alterTable(start)
	case c.Accept("COMMENT", "ON"):
		return p.comment(start)
	case c.Peek().Is("INSERT"):
		return p.insert()
	}
	return nil
}

// tableName keeps the last two parts of a dotted name.
func tableName(parts []string) normalize.Name {
	switch len(parts) {
	case 0:
		return normalize.Name{}
	case 1:
		return normalize.Name{Table: parts[0]}
	}
	return normalize.Name{Schema: parts[len(parts)-2], Table: parts[len(parts)-1]}
}
