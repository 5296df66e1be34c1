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

package normalize

import (
	"strings"

	"go.mercari.io/schemanorm/models"
)

// Builder accumulates the Document of one parse. Every dialect normalizer
// drives the same Builder, so the merge rules are written once.
//
// A Builder is not safe for concurrent use; each parse owns its own.
type Builder struct {
	doc  *models.Document
	rule SchemaRule
}

// NewBuilder returns a Builder over an empty Document. rule decides how
// absent schema names compare during lookups.
func NewBuilder(rule SchemaRule) *Builder {
	if rule == nil {
		rule = ExactSchema
	}
	return &Builder{
		doc:  models.NewDocument(),
		rule: rule,
	}
}

// Document returns the accumulated Document.
func (b *Builder) Document() *models.Document {
	return b.doc
}

// FindTable looks name up among the tables created so far.
func (b *Builder) FindTable(name Name) *models.Table {
	return FindTable(b.doc.Tables, name, b.rule)
}

// CreateTable builds a table from its classified elements and appends it,
// together with the foreign keys it declares, to the Document.
func (b *Builder) CreateTable(span Span, name Name, elems []TableConstraint, ifNotExists bool) error {
	if b.FindTable(name) != nil {
		if ifNotExists {
			return nil
		}
		return Errorf(span, "Table %q already exists", name.String())
	}

	t := &models.Table{
		Name:       name.Table,
		SchemaName: name.Schema,
		Fields:     []*models.Field{},
		Indexes:    []*models.Index{},
	}

	type inlineRef struct {
		column string
		ref    *PendingRef
	}
	var (
		inlines  []inlineRef
		fks      []*PendingRef
		indexes  []*TableConstraint
		defaults []*TableConstraint
	)

	for i := range elems {
		e := &elems[i]
		switch e.Kind {
		case TableField:
			if err := checkFieldDef(e.Field); err != nil {
				return err
			}
			f, refs := NewField(e.Field)
			t.Fields = append(t.Fields, f)
			for _, r := range refs {
				inlines = append(inlines, inlineRef{column: f.Name, ref: r})
			}
		case TableIndex, TableUnique, TablePK:
			indexes = append(indexes, e)
		case TableFK:
			fks = append(fks, e.Ref)
		case TableDefault:
			defaults = append(defaults, e)
		case TableCheck:
			t.Checks = append(t.Checks, &models.Check{Name: e.Name, Expression: e.Expression})
		}
	}

	for _, ix := range indexes {
		addIndex(t, newIndex(ix))
	}
	for _, d := range defaults {
		f := FindColumn(t, d.Column)
		if f == nil {
			return Errorf(d.Span, "Column %q not found in table %q", d.Column, name.String())
		}
		f.Default = d.Default.DefaultValue()
	}

	b.doc.Tables = append(b.doc.Tables, t)

	owner := Name{Schema: t.SchemaName, Table: t.Name}
	for _, in := range inlines {
		b.doc.Refs = append(b.doc.Refs, in.ref.Bind(owner, []string{in.column}))
	}
	for _, fk := range fks {
		b.doc.Refs = append(b.doc.Refs, fk.Bind(owner, fk.FieldNames))
	}

	return nil
}

// AlterTable applies ALTER TABLE clauses, in order, to an existing table.
func (b *Builder) AlterTable(span Span, name Name, clauses []AlterClause) error {
	t := b.FindTable(name)
	if t == nil {
		return Errorf(span, "Table %q not found", name.String())
	}
	owner := Name{Schema: t.SchemaName, Table: t.Name}

	for i := range clauses {
		c := &clauses[i]
		if c.Table != nil {
			if err := b.alterTableConstraint(t, owner, c.Table); err != nil {
				return err
			}
			continue
		}

		f := FindColumn(t, c.Column)
		if f == nil {
			return Errorf(c.Span, "Column %q not found in table %q", c.Column, name.String())
		}
		if c.Type != nil {
			f.Type = *c.Type
		}
		for _, r := range ApplyColumnConstraints(f, c.Constraints) {
			b.doc.Refs = append(b.doc.Refs, r.Bind(owner, []string{f.Name}))
		}
	}

	return nil
}

func (b *Builder) alterTableConstraint(t *models.Table, owner Name, tc *TableConstraint) error {
	switch tc.Kind {
	case TableField:
		if err := checkFieldDef(tc.Field); err != nil {
			return err
		}
		if FindColumn(t, tc.Field.Name) != nil {
			return Errorf(tc.Field.Span, "Column %q already exists in table %q", tc.Field.Name, owner.String())
		}
		f, refs := NewField(tc.Field)
		t.Fields = append(t.Fields, f)
		for _, r := range refs {
			b.doc.Refs = append(b.doc.Refs, r.Bind(owner, []string{f.Name}))
		}
	case TableIndex, TableUnique, TablePK:
		addIndex(t, newIndex(tc))
	case TableFK:
		b.doc.Refs = append(b.doc.Refs, tc.Ref.Bind(owner, tc.Ref.FieldNames))
	case TableDefault:
		f := FindColumn(t, tc.Column)
		if f == nil {
			return Errorf(tc.Span, "Column %q not found in table %q", tc.Column, owner.String())
		}
		f.Default = tc.Default.DefaultValue()
	case TableCheck:
		t.Checks = append(t.Checks, &models.Check{Name: tc.Name, Expression: tc.Expression})
	}
	return nil
}

// CreateIndex attaches idx to an existing table, collapsing a single-column
// unique or primary key index into the field flags.
func (b *Builder) CreateIndex(span Span, table Name, idx *models.Index) error {
	t := b.FindTable(table)
	if t == nil {
		return Errorf(span, "Table %q not found", table.String())
	}
	addIndex(t, idx)
	return nil
}

// CommentOnTable sets the note of an existing table.
func (b *Builder) CommentOnTable(span Span, table Name, note string) error {
	t := b.FindTable(table)
	if t == nil {
		return Errorf(span, "Table %q not found", table.String())
	}
	t.Note = note
	return nil
}

// CommentOnColumn sets the note of an existing column.
func (b *Builder) CommentOnColumn(span Span, table Name, column, note string) error {
	t := b.FindTable(table)
	if t == nil {
		return Errorf(span, "Table %q not found for column %q", table.String(), column)
	}
	f := FindColumn(t, column)
	if f == nil {
		return Errorf(span, "Column %q not found in table %q", column, table.String())
	}
	f.Note = note
	return nil
}

// AddEnum appends an enum type.
func (b *Builder) AddEnum(e *models.Enum) {
	b.doc.Enums = append(b.doc.Enums, e)
}

// AddSchema records a schema name once.
func (b *Builder) AddSchema(name string) {
	for _, s := range b.doc.Schemas {
		if s.Name == name {
			return
		}
	}
	b.doc.Schemas = append(b.doc.Schemas, &models.Schema{Name: name})
}

// AddRecords appends literal rows to the record of table, creating it on
// first use. Names that resolve to the same table under the schema rule
// share one record. Rows that do not line up with the record's columns are
// dropped.
func (b *Builder) AddRecords(table Name, columns []string, rows [][]*models.Value) {
	rec := b.findRecord(table)
	if rec == nil {
		rec = &models.TableRecord{
			SchemaName: table.Schema,
			TableName:  table.Table,
			Columns:    append([]string{}, columns...),
			Values:     [][]*models.Value{},
		}
		b.doc.Records = append(b.doc.Records, rec)
	}

	if len(columns) == 0 && len(rec.Columns) > 0 {
		// positional rows follow the table's column order
		columns = rec.Columns
		if t := b.FindTable(table); t != nil {
			columns = make([]string, 0, len(t.Fields))
			for _, f := range t.Fields {
				columns = append(columns, f.Name)
			}
		}
	}
	perm, ok := columnPermutation(rec.Columns, columns)
	if !ok {
		return
	}
	for _, row := range rows {
		if aligned := alignRow(rec, perm, row); aligned != nil {
			rec.Values = append(rec.Values, aligned)
		}
	}
}

func (b *Builder) findRecord(table Name) *models.TableRecord {
	for _, rec := range b.doc.Records {
		if rec.TableName == table.Table && b.rule(rec.SchemaName, table.Schema) {
			return rec
		}
	}
	return nil
}

// columnPermutation maps positions of have onto positions of want. It fails
// when the two lists do not name the same columns.
func columnPermutation(want, have []string) ([]int, bool) {
	if len(want) != len(have) {
		return nil, false
	}
	if len(want) == 0 {
		return nil, true
	}
	pos := make(map[string]int, len(have))
	for i, c := range have {
		pos[strings.ToLower(c)] = i
	}
	perm := make([]int, len(want))
	for i, c := range want {
		j, ok := pos[strings.ToLower(c)]
		if !ok {
			return nil, false
		}
		perm[i] = j
	}
	return perm, true
}

func alignRow(rec *models.TableRecord, perm []int, row []*models.Value) []*models.Value {
	if perm == nil {
		// positional record: every row must have the width of the first one
		if len(row) == 0 {
			return nil
		}
		if len(rec.Values) > 0 && len(rec.Values[0]) != len(row) {
			return nil
		}
		return row
	}
	if len(row) != len(perm) {
		return nil
	}
	out := make([]*models.Value, len(perm))
	for i, j := range perm {
		out[i] = row[j]
	}
	return out
}

func checkFieldDef(def *FieldDef) error {
	if def.Type.TypeName == "" {
		return Errorf(def.Span, "Column %q has no type; columns without a type are not supported", def.Name)
	}
	return nil
}
