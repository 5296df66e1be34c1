package mssql

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"go.mercari.io/schemanorm/models"
	"go.mercari.io/schemanorm/normalize"
)

const customersScript = `
CREATE SCHEMA sales
GO
CREATE TABLE [sales].[customers] (
    [id] INT IDENTITY(1,1) NOT NULL,
    [name] NVARCHAR(100) NOT NULL CONSTRAINT df_name DEFAULT (N'anon'),
    [score] DECIMAL(10, 2) NULL DEFAULT ((0)),
    [created] DATETIME2 DEFAULT (getdate()),
    CONSTRAINT [pk_customers] PRIMARY KEY CLUSTERED ([id] ASC) WITH (PAD_INDEX = OFF) ON [PRIMARY],
    CONSTRAINT ck_score CHECK (score >= 0)
) ON [PRIMARY]
GO
CREATE TABLE sales.orders (
    id INT NOT NULL,
    line INT NOT NULL,
    customer_id INT NOT NULL REFERENCES sales.customers (id) ON DELETE CASCADE,
    note NVARCHAR(MAX),
    PRIMARY KEY (id, line),
    INDEX ix_note NONCLUSTERED (note)
);
ALTER TABLE sales.orders WITH CHECK ADD CONSTRAINT uq_orders_note UNIQUE (note);
ALTER TABLE sales.orders ALTER COLUMN note NVARCHAR(200) NOT NULL;
CREATE UNIQUE NONCLUSTERED INDEX ix_customers_name ON sales.customers (name) INCLUDE (score) WITH (ONLINE = ON);
EXEC sys.sp_addextendedproperty @name = N'MS_Description', @value = N'Customer master',
    @level0type = N'SCHEMA', @level0name = N'sales', @level1type = N'TABLE', @level1name = N'customers';
EXEC sp_addextendedproperty 'MS_Description', 'Display name', 'SCHEMA', 'sales', 'TABLE', 'customers', 'COLUMN', 'name';
INSERT INTO sales.customers (id, name) VALUES (1, N'Alice'), (2, NULL);
INSERT sales.customers (name, id) VALUES (N'Bob', 3);
`

func typ(name string) models.FieldType {
	return models.FieldType{TypeName: name}
}

func normalizeScript(t *testing.T, opts normalize.Options, src string) (*models.Document, error) {
	t.Helper()
	n, err := normalize.New(Dialect, opts)
	if err != nil {
		t.Fatalf("normalize.New failed: %v", err)
	}
	return n.Normalize(src)
}

func TestNormalize(t *testing.T) {
	doc, err := normalizeScript(t, normalize.Options{}, customersScript)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := &models.Document{
		Schemas: []*models.Schema{{Name: "sales"}},
		Tables: []*models.Table{
			{
				Name:       "customers",
				SchemaName: "sales",
				Fields: []*models.Field{
					{Name: "id", Type: typ("INT"), NotNull: true, PK: true, Increment: true},
					{Name: "name", Type: typ("NVARCHAR(100)"), NotNull: true, Unique: true, Default: models.StringValue("anon"), Note: "Display name"},
					{Name: "score", Type: typ("DECIMAL(10,2)"), Default: models.NumberValue("0")},
					{Name: "created", Type: typ("DATETIME2"), Default: models.ExpressionValue("getdate()")},
				},
				Indexes: []*models.Index{},
				Checks:  []*models.Check{{Name: "ck_score", Expression: "score >= 0"}},
				Note:    "Customer master",
			},
			{
				Name:       "orders",
				SchemaName: "sales",
				Fields: []*models.Field{
					{Name: "id", Type: typ("INT"), NotNull: true},
					{Name: "line", Type: typ("INT"), NotNull: true},
					{Name: "customer_id", Type: typ("INT"), NotNull: true},
					{Name: "note", Type: typ("NVARCHAR(200)"), NotNull: true, Unique: true},
				},
				Indexes: []*models.Index{
					{Columns: []models.IndexColumn{models.ColumnKey("id"), models.ColumnKey("line")}, PK: true},
					{Name: "ix_note", Columns: []models.IndexColumn{models.ColumnKey("note")}},
				},
			},
		},
		Refs: []*models.Ref{
			{
				Endpoints: [2]models.Endpoint{
					{TableName: "orders", SchemaName: "sales", FieldNames: []string{"customer_id"}, Relation: models.RelationMany},
					{TableName: "customers", SchemaName: "sales", FieldNames: []string{"id"}, Relation: models.RelationOne},
				},
				OnDelete: models.ActionCascade,
			},
		},
		Enums:       []*models.Enum{},
		TableGroups: []*models.TableGroup{},
		Aliases:     []*models.Alias{},
		Records: []*models.TableRecord{
			{
				SchemaName: "sales",
				TableName:  "customers",
				Columns:    []string{"id", "name"},
				Values: [][]*models.Value{
					{models.NumberValue("1"), models.StringValue("Alice")},
					{models.NumberValue("2"), nil},
					{models.NumberValue("3"), models.StringValue("Bob")},
				},
			},
		},
		Project: &models.Project{DatabaseType: "SQL Server"},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("(-want +got)\n%s", diff)
	}
}

func TestNormalizeScenarios(t *testing.T) {
	t.Run("inline pk and unique collapse", func(t *testing.T) {
		doc, err := normalizeScript(t, normalize.Options{}, "CREATE TABLE users (id INT PRIMARY KEY, email VARCHAR UNIQUE)")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []*models.Table{{
			Name: "users",
			Fields: []*models.Field{
				{Name: "id", Type: typ("INT"), PK: true},
				{Name: "email", Type: typ("VARCHAR"), Unique: true},
			},
			Indexes: []*models.Index{},
		}}
		if diff := cmp.Diff(want, doc.Tables); diff != "" {
			t.Errorf("(-want +got)\n%s", diff)
		}
	})

	t.Run("foreign key added by alter", func(t *testing.T) {
		doc, err := normalizeScript(t, normalize.Options{}, `
CREATE TABLE users (id INT PRIMARY KEY)
CREATE TABLE posts (id INT PRIMARY KEY, user_id INT)
ALTER TABLE posts ADD CONSTRAINT fk_user FOREIGN KEY (user_id) REFERENCES users(id)
`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []*models.Ref{{
			Name: "fk_user",
			Endpoints: [2]models.Endpoint{
				{TableName: "posts", FieldNames: []string{"user_id"}, Relation: models.RelationMany},
				{TableName: "users", FieldNames: []string{"id"}, Relation: models.RelationOne},
			},
		}}
		if diff := cmp.Diff(want, doc.Refs); diff != "" {
			t.Errorf("(-want +got)\n%s", diff)
		}
	})

	t.Run("insert rows", func(t *testing.T) {
		doc, err := normalizeScript(t, normalize.Options{}, "INSERT INTO logs (level, msg) VALUES (1, 'ok'), (2, 'warn')")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []*models.TableRecord{{
			TableName: "logs",
			Columns:   []string{"level", "msg"},
			Values: [][]*models.Value{
				{models.NumberValue("1"), models.StringValue("ok")},
				{models.NumberValue("2"), models.StringValue("warn")},
			},
		}}
		if diff := cmp.Diff(want, doc.Records); diff != "" {
			t.Errorf("(-want +got)\n%s", diff)
		}
	})

	t.Run("four part names and default schema", func(t *testing.T) {
		src := `
CREATE TABLE srv.db.dbo.t (id INT NOT NULL)
ALTER TABLE t ADD CONSTRAINT pk_t PRIMARY KEY (id)
`
		doc, err := normalizeScript(t, normalize.Options{DefaultSchema: "dbo"}, src)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := &models.Table{
			Name:       "t",
			SchemaName: "dbo",
			Fields:     []*models.Field{{Name: "id", Type: typ("INT"), NotNull: true, PK: true}},
			Indexes:    []*models.Index{},
		}
		if diff := cmp.Diff(want, doc.Tables[0]); diff != "" {
			t.Errorf("(-want +got)\n%s", diff)
		}

		// without a default schema dbo.t and t are different tables
		if _, err := normalizeScript(t, normalize.Options{}, src); err == nil {
			t.Error("expected an unresolved table error")
		}
	})

	t.Run("unsupported statements are skipped", func(t *testing.T) {
		doc, err := normalizeScript(t, normalize.Options{}, `
SET ANSI_NULLS ON
GO
CREATE PROCEDURE dbo.p AS BEGIN SELECT 1; CREATE TABLE #tmp (x INT); END
GO
CREATE VIEW v AS SELECT 1 AS x
GO
CREATE TABLE t (id INT)
`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(doc.Tables) != 1 || doc.Tables[0].Name != "t" {
			t.Errorf("unexpected tables: %+v", doc.Tables)
		}
	})
}

func TestNormalizeErrors(t *testing.T) {
	for _, tt := range []struct {
		desc      string
		src       string
		wantMsg   string
		wantStart normalize.Position
	}{
		{
			desc:      "column without type",
			src:       "CREATE TABLE t (a, b INT)",
			wantMsg:   `Column "a" has no type; columns without a type are not supported`,
			wantStart: normalize.Position{Line: 1, Column: 17},
		},
		{
			desc:      "computed column",
			src:       "CREATE TABLE t (a INT, b INT, total AS (a*b) PERSISTED)",
			wantMsg:   `Column "total" has no type; columns without a type are not supported`,
			wantStart: normalize.Position{Line: 1, Column: 31},
		},
		{
			desc:      "implicit referenced columns",
			src:       "CREATE TABLE p (id INT PRIMARY KEY)\nCREATE TABLE c (pid INT REFERENCES p)",
			wantMsg:   `Foreign key referencing "p" must name the referenced columns; implicit referenced columns are not supported`,
			wantStart: normalize.Position{Line: 2, Column: 25},
		},
		{
			desc:      "alter unknown table",
			src:       "ALTER TABLE nope ADD x INT",
			wantMsg:   `Table "nope" not found`,
			wantStart: normalize.Position{Line: 1, Column: 1},
		},
		{
			desc:      "comment on unknown column",
			src:       "CREATE TABLE dbo.t (id INT)\nEXEC sp_addextendedproperty 'MS_Description', 'x', 'SCHEMA', 'dbo', 'TABLE', 't', 'COLUMN', 'nope'",
			wantMsg:   `Column "nope" not found in table "dbo.t"`,
			wantStart: normalize.Position{Line: 2, Column: 1},
		},
		{
			desc:      "duplicate table",
			src:       "CREATE TABLE t (id INT)\nCREATE TABLE t (id INT)",
			wantMsg:   `Table "t" already exists`,
			wantStart: normalize.Position{Line: 2, Column: 1},
		},
		{
			desc:      "unterminated string",
			src:       "INSERT INTO t VALUES ('x)",
			wantMsg:   "Unterminated string literal",
			wantStart: normalize.Position{Line: 1, Column: 23},
		},
	} {
		t.Run(tt.desc, func(t *testing.T) {
			doc, err := normalizeScript(t, normalize.Options{}, tt.src)
			if doc != nil {
				t.Errorf("expected no document on error")
			}
			var nerr *normalize.Error
			if !errors.As(err, &nerr) {
				t.Fatalf("expected *normalize.Error, got %v", err)
			}
			if nerr.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", nerr.Message, tt.wantMsg)
			}
			if nerr.Span.Start != tt.wantStart {
				t.Errorf("start = %+v, want %+v", nerr.Span.Start, tt.wantStart)
			}
		})
	}
}

func TestNormalizeTreeMatchesTokens(t *testing.T) {
	src := `
CREATE TABLE dbo.items (
    id INT NOT NULL PRIMARY KEY,
    label NVARCHAR(50) NOT NULL DEFAULT (N'none'),
    price DECIMAL(10, 2) NULL,
    CONSTRAINT uq_items_label UNIQUE (label)
)
INSERT INTO dbo.items (id, label, price) VALUES (1, N'pen', 1.50), (2, 'it''s', -3), (3, NULL, NULL)
INSERT INTO dbo.items (id, label) VALUES (4, DEFAULT)
INSERT INTO dbo.items (id, label) VALUES (5, (SELECT TOP 1 label FROM dbo.items))
`
	tree, err := New(normalize.Options{}).Normalize(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tokens, err := (&Normalizer{tokensOnly: true}).Normalize(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(tokens, tree); diff != "" {
		t.Errorf("(-tokens +tree)\n%s", diff)
	}

	want := [][]*models.Value{
		{models.NumberValue("1"), models.StringValue("pen"), models.NumberValue("1.50")},
		{models.NumberValue("2"), models.StringValue("it's"), models.NumberValue("-3")},
		{models.NumberValue("3"), nil, nil},
	}
	if len(tree.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(tree.Records))
	}
	if diff := cmp.Diff(want, tree.Records[0].Values); diff != "" {
		t.Errorf("(-want +got)\n%s", diff)
	}

	// computed columns fail the same way whichever reader sees them
	_, err = (&Normalizer{tokensOnly: true}).Normalize("CREATE TABLE t (a INT, total AS (a*2))")
	var nerr *normalize.Error
	if !errors.As(err, &nerr) || nerr.Message != `Column "total" has no type; columns without a type are not supported` {
		t.Errorf("unexpected error: %v", err)
	}
}
