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

// Package loader produces Documents from schema files and from live
// databases.
package loader

import (
	"context"
	"fmt"
	"os"

	"go.mercari.io/schemanorm/models"
	"go.mercari.io/schemanorm/normalize"
)

// LoadFile reads the script at path and normalizes it with the named
// dialect.
func LoadFile(path, dialect string, opts normalize.Options) (*models.Document, error) {
	n, err := normalize.New(dialect, opts)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return n.Normalize(string(b))
}

type Option struct {
	IgnoreFields []string
	IgnoreTables []string
}

// SchemaSource lists the catalog of a live database.
type SchemaSource interface {
	DatabaseType() string
	TableList(ctx context.Context) ([]*Table, error)
	ColumnList(ctx context.Context, table *Table) ([]*Column, error)
	IndexList(ctx context.Context, table *Table) ([]*Index, error)
	IndexColumnList(ctx context.Context, table *Table, index string) ([]*IndexColumn, error)
	ForeignKeyList(ctx context.Context, table *Table) ([]*ForeignKey, error)
}

// EnumSource is implemented by sources whose database has enum types.
type EnumSource interface {
	EnumList(ctx context.Context) ([]*models.Enum, error)
}

func New(source SchemaSource, opt Option) *Loader {
	return &Loader{
		source:       source,
		ignoreFields: opt.IgnoreFields,
		ignoreTables: opt.IgnoreTables,
	}
}

// Loader folds a SchemaSource into a Document through the same Builder the
// normalizers use, so a single-column primary key or unique index ends up
// on the field exactly as it would for a script.
type Loader struct {
	source SchemaSource

	ignoreFields []string
	ignoreTables []string
}

// LoadSchema loads schema definitions.
func (l *Loader) LoadSchema(ctx context.Context) (*models.Document, error) {
	b := normalize.NewBuilder(normalize.ExactSchema)
	b.Document().Project.DatabaseType = l.source.DatabaseType()

	tables, err := l.source.TableList(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tables: %w", err)
	}

	var children []*Table
	for _, t := range tables {
		if matchTable(l.ignoreTables, t.Schema, t.TableName) {
			continue
		}

		elems, err := l.LoadTable(ctx, t)
		if err != nil {
			return nil, err
		}
		if err := b.CreateTable(normalize.Span{}, t.Name(), elems, false); err != nil {
			return nil, err
		}
		if t.Note != "" {
			if err := b.CommentOnTable(normalize.Span{}, t.Name(), t.Note); err != nil {
				return nil, err
			}
		}
		if t.ParentTableName != "" {
			children = append(children, t)
		}
	}

	// interleaved tables are linked once every parent is known
	for _, t := range children {
		parent := b.FindTable(normalize.Name{Schema: t.Schema, Table: t.ParentTableName})
		if parent == nil {
			continue
		}
		keys := normalize.PrimaryKey(parent)
		ref := &normalize.PendingRef{
			FieldNames: keys,
			Target:     normalize.Name{Schema: parent.SchemaName, Table: parent.Name},
			TargetKeys: keys,
		}
		clause := normalize.AlterClause{Table: &normalize.TableConstraint{Kind: normalize.TableFK, Ref: ref}}
		if err := b.AlterTable(normalize.Span{}, t.Name(), []normalize.AlterClause{clause}); err != nil {
			return nil, err
		}
	}

	if es, ok := l.source.(EnumSource); ok {
		enums, err := es.EnumList(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load enums: %w", err)
		}
		for _, e := range enums {
			b.AddEnum(e)
		}
	}

	return Filter(b.Document(), l.ignoreTables, l.ignoreFields), nil
}

// LoadTable loads the columns, indexes and foreign keys of one table as
// classified table elements.
func (l *Loader) LoadTable(ctx context.Context, t *Table) ([]normalize.TableConstraint, error) {
	cols, err := l.source.ColumnList(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("failed to load columns of %s: %w", t.Name(), err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s has no columns", t.Name())
	}

	elems := make([]normalize.TableConstraint, 0, len(cols))
	for _, c := range cols {
		def := &normalize.FieldDef{
			Name: c.ColumnName,
			Type: models.FieldType{TypeName: c.DataType},
		}
		if c.NotNull {
			def.Constraints = append(def.Constraints, normalize.ColumnConstraint{Kind: normalize.ColumnNotNull})
		}
		if c.IsIdentity {
			def.Constraints = append(def.Constraints, normalize.ColumnConstraint{Kind: normalize.ColumnIncrement})
		}
		if c.Default != nil {
			def.Constraints = append(def.Constraints, normalize.ColumnConstraint{Kind: normalize.ColumnDefault, Default: *c.Default})
		}
		if c.Note != "" {
			def.Constraints = append(def.Constraints, normalize.ColumnConstraint{Kind: normalize.ColumnNote, Note: c.Note})
		}
		elems = append(elems, normalize.TableConstraint{Kind: normalize.TableField, Field: def})
	}

	indexes, err := l.LoadIndexes(ctx, t)
	if err != nil {
		return nil, err
	}
	elems = append(elems, indexes...)

	fks, err := l.source.ForeignKeyList(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("failed to load foreign keys of %s: %w", t.Name(), err)
	}
	for _, fk := range fks {
		elems = append(elems, normalize.TableConstraint{
			Kind: normalize.TableFK,
			Name: fk.Name,
			Ref: &normalize.PendingRef{
				Name:       fk.Name,
				FieldNames: fk.Columns,
				Target:     normalize.Name{Schema: fk.RefSchema, Table: fk.RefTable},
				TargetKeys: fk.RefColumns,
				OnDelete:   fk.OnDelete,
				OnUpdate:   fk.OnUpdate,
			},
		})
	}

	return elems, nil
}

// LoadIndexes loads the indexes of one table. Storing columns are not keys
// and are dropped.
func (l *Loader) LoadIndexes(ctx context.Context, t *Table) ([]normalize.TableConstraint, error) {
	indexList, err := l.source.IndexList(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("failed to load indexes of %s: %w", t.Name(), err)
	}

	var elems []normalize.TableConstraint
	for _, ix := range indexList {
		cols, err := l.source.IndexColumnList(ctx, t, ix.IndexName)
		if err != nil {
			return nil, fmt.Errorf("failed to load index %s: %w", ix.IndexName, err)
		}

		elem := normalize.TableConstraint{Kind: normalize.TableIndex, Name: ix.IndexName, IndexType: ix.Type}
		switch {
		case ix.IsPrimary:
			elem.Kind = normalize.TablePK
		case ix.IsUnique:
			elem.Kind = normalize.TableUnique
		}
		for _, c := range cols {
			switch {
			case c.Storing:
				continue
			case c.Expression:
				elem.Columns = append(elem.Columns, models.ExpressionKey(c.ColumnName))
			default:
				elem.Columns = append(elem.Columns, models.ColumnKey(c.ColumnName))
			}
		}
		if len(elem.Columns) == 0 {
			continue
		}
		elems = append(elems, elem)
	}
	return elems, nil
}
