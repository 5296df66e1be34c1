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
	"context"

	"cloud.google.com/go/spanner"
	"google.golang.org/api/iterator"

	"go.mercari.io/schemanorm/internal/sqlscan"
)

// NewSpannerSource returns a SchemaSource reading the information schema of
// a Spanner database.
func NewSpannerSource(client *spanner.Client) SchemaSource {
	return &spannerSource{
		client: client,
	}
}

type spannerSource struct {
	client *spanner.Client
}

func (s *spannerSource) DatabaseType() string {
	return "Spanner"
}

// query runs stmt in a single-use read-only transaction and calls fn for
// every row.
func (s *spannerSource) query(ctx context.Context, stmt spanner.Statement, fn func(*spanner.Row) error) error {
	iter := s.client.Single().Query(ctx, stmt)
	defer iter.Stop()

	for {
		row, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				return nil
			}
			return err
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}

func (s *spannerSource) TableList(ctx context.Context) ([]*Table, error) {
	const sqlstr = `SELECT ` +
		`TABLE_SCHEMA, TABLE_NAME, PARENT_TABLE_NAME ` +
		`FROM INFORMATION_SCHEMA.TABLES ` +
		`WHERE TABLE_SCHEMA NOT IN ("INFORMATION_SCHEMA", "SPANNER_SYS") ` +
		`AND TABLE_TYPE = "BASE TABLE" ` +
		`ORDER BY TABLE_SCHEMA, TABLE_NAME`
	stmt := spanner.NewStatement(sqlstr)

	var res []*Table
	err := s.query(ctx, stmt, func(row *spanner.Row) error {
		var t Table
		var parentTableName spanner.NullString
		if err := row.Columns(&t.Schema, &t.TableName, &parentTableName); err != nil {
			return err
		}
		t.ParentTableName = parentTableName.StringVal
		res = append(res, &t)
		return nil
	})
	return res, err
}

func (s *spannerSource) ColumnList(ctx context.Context, table *Table) ([]*Column, error) {
	const sqlstr = `SELECT ` +
		`COLUMN_NAME, ORDINAL_POSITION, IS_NULLABLE, SPANNER_TYPE, COLUMN_DEFAULT ` +
		`FROM INFORMATION_SCHEMA.COLUMNS ` +
		`WHERE TABLE_SCHEMA = @schema AND TABLE_NAME = @table ` +
		`ORDER BY ORDINAL_POSITION`
	stmt := spanner.NewStatement(sqlstr)
	stmt.Params["schema"] = table.Schema
	stmt.Params["table"] = table.TableName

	var res []*Column
	err := s.query(ctx, stmt, func(row *spanner.Row) error {
		var c Column
		var ord int64
		var isNullable string
		var def spanner.NullString
		if err := row.Columns(&c.ColumnName, &ord, &isNullable, &c.DataType, &def); err != nil {
			return err
		}
		c.FieldOrdinal = int(ord)
		c.NotNull = isNullable == "NO"
		if def.Valid {
			lit := sqlscan.ParseLiteral(def.StringVal, sqlscan.Standard)
			c.Default = &lit
		}
		res = append(res, &c)
		return nil
	})
	return res, err
}

func (s *spannerSource) IndexList(ctx context.Context, table *Table) ([]*Index, error) {
	const sqlstr = `SELECT ` +
		`INDEX_NAME, INDEX_TYPE, IS_UNIQUE ` +
		`FROM INFORMATION_SCHEMA.INDEXES ` +
		`WHERE TABLE_SCHEMA = @schema ` +
		`AND TABLE_NAME = @table ` +
		`AND SPANNER_IS_MANAGED = FALSE ` +
		`ORDER BY INDEX_NAME`
	stmt := spanner.NewStatement(sqlstr)
	stmt.Params["schema"] = table.Schema
	stmt.Params["table"] = table.TableName

	var res []*Index
	err := s.query(ctx, stmt, func(row *spanner.Row) error {
		var i Index
		var typ string
		if err := row.Columns(&i.IndexName, &typ, &i.IsUnique); err != nil {
			return err
		}
		i.IsPrimary = typ == "PRIMARY_KEY"
		res = append(res, &i)
		return nil
	})
	return res, err
}

func (s *spannerSource) IndexColumnList(ctx context.Context, table *Table, index string) ([]*IndexColumn, error) {
	const sqlstr = `SELECT ` +
		`ORDINAL_POSITION, COLUMN_NAME ` +
		`FROM INFORMATION_SCHEMA.INDEX_COLUMNS ` +
		`WHERE TABLE_SCHEMA = @schema AND INDEX_NAME = @index AND TABLE_NAME = @table ` +
		`ORDER BY ORDINAL_POSITION`
	stmt := spanner.NewStatement(sqlstr)
	stmt.Params["schema"] = table.Schema
	stmt.Params["table"] = table.TableName
	stmt.Params["index"] = index

	var res []*IndexColumn
	err := s.query(ctx, stmt, func(row *spanner.Row) error {
		var i IndexColumn
		var ord spanner.NullInt64
		if err := row.Columns(&ord, &i.ColumnName); err != nil {
			return err
		}
		i.SeqNo = int(ord.Int64)
		i.Storing = !ord.Valid
		res = append(res, &i)
		return nil
	})
	return res, err
}

func (s *spannerSource) ForeignKeyList(ctx context.Context, table *Table) ([]*ForeignKey, error) {
	const sqlstr = `SELECT ` +
		`kcu.CONSTRAINT_NAME, kcu.COLUMN_NAME, ukcu.TABLE_SCHEMA, ukcu.TABLE_NAME, ukcu.COLUMN_NAME, ` +
		`rc.DELETE_RULE, rc.UPDATE_RULE ` +
		`FROM INFORMATION_SCHEMA.REFERENTIAL_CONSTRAINTS rc ` +
		`JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu ` +
		`ON kcu.CONSTRAINT_SCHEMA = rc.CONSTRAINT_SCHEMA AND kcu.CONSTRAINT_NAME = rc.CONSTRAINT_NAME ` +
		`JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE ukcu ` +
		`ON ukcu.CONSTRAINT_SCHEMA = rc.UNIQUE_CONSTRAINT_SCHEMA AND ukcu.CONSTRAINT_NAME = rc.UNIQUE_CONSTRAINT_NAME ` +
		`AND ukcu.ORDINAL_POSITION = kcu.POSITION_IN_UNIQUE_CONSTRAINT ` +
		`WHERE kcu.TABLE_SCHEMA = @schema AND kcu.TABLE_NAME = @table ` +
		`ORDER BY kcu.CONSTRAINT_NAME, kcu.ORDINAL_POSITION`
	stmt := spanner.NewStatement(sqlstr)
	stmt.Params["schema"] = table.Schema
	stmt.Params["table"] = table.TableName

	var fks foreignKeys
	err := s.query(ctx, stmt, func(row *spanner.Row) error {
		var r foreignKeyRow
		if err := row.Columns(&r.name, &r.column, &r.refSchema, &r.refTable, &r.refColumn, &r.onDelete, &r.onUpdate); err != nil {
			return err
		}
		fks.add(r)
		return nil
	})
	return fks.list, err
}
