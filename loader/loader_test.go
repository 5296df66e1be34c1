package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"go.mercari.io/schemanorm/models"
	"go.mercari.io/schemanorm/normalize"
	_ "go.mercari.io/schemanorm/normalize/mssql"
)

// fakeSource serves a fixed catalog. Lookups are keyed by table name.
type fakeSource struct {
	tables       []*Table
	columns      map[string][]*Column
	indexes      map[string][]*Index
	indexColumns map[string][]*IndexColumn // table/index
	foreignKeys  map[string][]*ForeignKey
	enums        []*models.Enum

	tableErr error
}

func (f *fakeSource) DatabaseType() string { return "Fake" }

func (f *fakeSource) TableList(context.Context) ([]*Table, error) {
	if f.tableErr != nil {
		return nil, f.tableErr
	}
	return f.tables, nil
}

func (f *fakeSource) ColumnList(_ context.Context, t *Table) ([]*Column, error) {
	return f.columns[t.TableName], nil
}

func (f *fakeSource) IndexList(_ context.Context, t *Table) ([]*Index, error) {
	return f.indexes[t.TableName], nil
}

func (f *fakeSource) IndexColumnList(_ context.Context, t *Table, index string) ([]*IndexColumn, error) {
	return f.indexColumns[t.TableName+"/"+index], nil
}

func (f *fakeSource) ForeignKeyList(_ context.Context, t *Table) ([]*ForeignKey, error) {
	return f.foreignKeys[t.TableName], nil
}

// fakeEnumSource adds enum types to fakeSource.
type fakeEnumSource struct {
	*fakeSource
}

func (f *fakeEnumSource) EnumList(context.Context) ([]*models.Enum, error) {
	return f.enums, nil
}

func musicCatalog() *fakeSource {
	return &fakeSource{
		tables: []*Table{
			{TableName: "Singers", Note: "Performers"},
			{TableName: "Albums", ParentTableName: "Singers"},
			{TableName: "Logs"},
		},
		columns: map[string][]*Column{
			"Singers": {
				{FieldOrdinal: 1, ColumnName: "SingerId", DataType: "INT64", NotNull: true},
				{FieldOrdinal: 2, ColumnName: "Name", DataType: "STRING(MAX)", Note: "Stage name"},
				{FieldOrdinal: 3, ColumnName: "Secret", DataType: "STRING(MAX)"},
				{FieldOrdinal: 4, ColumnName: "Active", DataType: "BOOL", Default: &normalize.Literal{Kind: normalize.LiteralBoolean, Text: "TRUE"}},
			},
			"Albums": {
				{FieldOrdinal: 1, ColumnName: "SingerId", DataType: "INT64", NotNull: true},
				{FieldOrdinal: 2, ColumnName: "AlbumId", DataType: "INT64", NotNull: true, IsIdentity: true},
				{FieldOrdinal: 3, ColumnName: "Title", DataType: "STRING(MAX)"},
			},
		},
		indexes: map[string][]*Index{
			"Singers": {
				{IndexName: "PRIMARY_KEY", IsUnique: true, IsPrimary: true},
				{IndexName: "SingersBySecret"},
			},
			"Albums": {
				{IndexName: "PRIMARY_KEY", IsUnique: true, IsPrimary: true},
				{IndexName: "AlbumsByTitle", IsUnique: true},
			},
		},
		indexColumns: map[string][]*IndexColumn{
			"Singers/PRIMARY_KEY":     {{SeqNo: 1, ColumnName: "SingerId"}},
			"Singers/SingersBySecret": {{SeqNo: 1, ColumnName: "Secret"}},
			"Albums/PRIMARY_KEY":      {{SeqNo: 1, ColumnName: "SingerId"}, {SeqNo: 2, ColumnName: "AlbumId"}},
			"Albums/AlbumsByTitle":    {{SeqNo: 1, ColumnName: "Title"}, {ColumnName: "AlbumId", Storing: true}},
		},
		foreignKeys: map[string][]*ForeignKey{
			"Albums": {{
				Name:       "FK_Singer",
				Columns:    []string{"SingerId"},
				RefTable:   "Singers",
				RefColumns: []string{"SingerId"},
				OnDelete:   models.ActionCascade,
			}},
		},
		enums: []*models.Enum{
			{Name: "mood", Values: []*models.EnumValue{{Name: "happy"}, {Name: "sad"}}},
		},
	}
}

func TestLoadSchema(t *testing.T) {
	source := &fakeEnumSource{musicCatalog()}
	l := New(source, Option{
		IgnoreTables: []string{"Logs"},
		IgnoreFields: []string{"Singers.Secret"},
	})

	doc, err := l.LoadSchema(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := &models.Document{
		Schemas: []*models.Schema{},
		Tables: []*models.Table{
			{
				Name: "Singers",
				Fields: []*models.Field{
					{Name: "SingerId", Type: models.FieldType{TypeName: "INT64"}, NotNull: true, PK: true},
					{Name: "Name", Type: models.FieldType{TypeName: "STRING(MAX)"}, Note: "Stage name"},
					{Name: "Active", Type: models.FieldType{TypeName: "BOOL"}, Default: models.BooleanValue("true")},
				},
				Indexes: []*models.Index{},
				Note:    "Performers",
			},
			{
				Name: "Albums",
				Fields: []*models.Field{
					{Name: "SingerId", Type: models.FieldType{TypeName: "INT64"}, NotNull: true},
					{Name: "AlbumId", Type: models.FieldType{TypeName: "INT64"}, NotNull: true, Increment: true},
					{Name: "Title", Type: models.FieldType{TypeName: "STRING(MAX)"}, Unique: true},
				},
				Indexes: []*models.Index{
					{Name: "PRIMARY_KEY", Columns: []models.IndexColumn{models.ColumnKey("SingerId"), models.ColumnKey("AlbumId")}, PK: true},
				},
			},
		},
		Refs: []*models.Ref{
			{
				Name: "FK_Singer",
				Endpoints: [2]models.Endpoint{
					{TableName: "Albums", FieldNames: []string{"SingerId"}, Relation: models.RelationMany},
					{TableName: "Singers", FieldNames: []string{"SingerId"}, Relation: models.RelationOne},
				},
				OnDelete: models.ActionCascade,
			},
			{
				Endpoints: [2]models.Endpoint{
					{TableName: "Albums", FieldNames: []string{"SingerId"}, Relation: models.RelationMany},
					{TableName: "Singers", FieldNames: []string{"SingerId"}, Relation: models.RelationOne},
				},
			},
		},
		Enums: []*models.Enum{
			{Name: "mood", Values: []*models.EnumValue{{Name: "happy"}, {Name: "sad"}}},
		},
		TableGroups: []*models.TableGroup{},
		Aliases:     []*models.Alias{},
		Records:     []*models.TableRecord{},
		Project:     &models.Project{DatabaseType: "Fake"},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("(-want +got)\n%s", diff)
	}
}

func TestLoadSchemaErrors(t *testing.T) {
	t.Run("table list", func(t *testing.T) {
		errBoom := errors.New("boom")
		l := New(&fakeSource{tableErr: errBoom}, Option{})
		_, err := l.LoadSchema(context.Background())
		if !errors.Is(err, errBoom) {
			t.Errorf("error = %v, want wrapped %v", err, errBoom)
		}
	})

	t.Run("table without columns", func(t *testing.T) {
		l := New(musicCatalog(), Option{})
		_, err := l.LoadSchema(context.Background())
		if err == nil || err.Error() != "table Logs has no columns" {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.sql")
	if err := os.WriteFile(path, []byte("CREATE TABLE t (id INT PRIMARY KEY)\nGO\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := LoadFile(path, "mssql", normalize.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Tables) != 1 || doc.Tables[0].Name != "t" || !doc.Tables[0].Fields[0].PK {
		t.Errorf("unexpected tables: %+v", doc.Tables)
	}

	if _, err := LoadFile(path, "nope", normalize.Options{}); !errors.Is(err, normalize.ErrUnknownDialect) {
		t.Errorf("error = %v, want %v", err, normalize.ErrUnknownDialect)
	}
	if _, err := LoadFile(filepath.Join(dir, "missing.sql"), "mssql", normalize.Options{}); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want %v", err, os.ErrNotExist)
	}
}

func TestForeignKeysAdd(t *testing.T) {
	var fks foreignKeys
	fks.add(foreignKeyRow{name: "fk_a", column: "a1", refTable: "p", refColumn: "x", onDelete: "CASCADE", onUpdate: "NO_ACTION"})
	fks.add(foreignKeyRow{name: "fk_a", column: "a2", refTable: "p", refColumn: "y", onDelete: "CASCADE", onUpdate: "NO_ACTION"})
	fks.add(foreignKeyRow{name: "fk_b", column: "b", refSchema: "s", refTable: "q", refColumn: "z", onDelete: "SET_NULL"})

	want := []*ForeignKey{
		{Name: "fk_a", Columns: []string{"a1", "a2"}, RefTable: "p", RefColumns: []string{"x", "y"}, OnDelete: models.ActionCascade},
		{Name: "fk_b", Columns: []string{"b"}, RefSchema: "s", RefTable: "q", RefColumns: []string{"z"}, OnDelete: models.ActionSetNull},
	}
	if diff := cmp.Diff(want, fks.list); diff != "" {
		t.Errorf("(-want +got)\n%s", diff)
	}
}

func TestRuleAction(t *testing.T) {
	for rule, want := range map[string]string{
		"CASCADE":     models.ActionCascade,
		"set null":    models.ActionSetNull,
		"SET_DEFAULT": models.ActionSetDefault,
		"RESTRICT":    models.ActionRestrict,
		"NO ACTION":   "",
		"":            "",
	} {
		if got := ruleAction(rule); got != want {
			t.Errorf("ruleAction(%q) = %q, want %q", rule, got, want)
		}
	}
	for code, want := range map[string]string{
		"c": "CASCADE",
		"n": "SET NULL",
		"d": "SET DEFAULT",
		"r": "RESTRICT",
		"a": "NO ACTION",
	} {
		if got := pgAction(code); got != want {
			t.Errorf("pgAction(%q) = %q, want %q", code, got, want)
		}
	}
}

func TestSQLServerType(t *testing.T) {
	for _, tt := range []struct {
		typ                      string
		maxLen, precision, scale int
		want                     string
	}{
		{"nvarchar", 100, 0, 0, "nvarchar(50)"},
		{"nvarchar", -1, 0, 0, "nvarchar(max)"},
		{"varchar", 20, 0, 0, "varchar(20)"},
		{"decimal", 9, 10, 2, "decimal(10,2)"},
		{"datetime2", 8, 27, 7, "datetime2(7)"},
		{"int", 4, 10, 0, "int"},
	} {
		if got := sqlServerType(tt.typ, tt.maxLen, tt.precision, tt.scale); got != tt.want {
			t.Errorf("sqlServerType(%q, %d, %d, %d) = %q, want %q", tt.typ, tt.maxLen, tt.precision, tt.scale, got, tt.want)
		}
	}
}
