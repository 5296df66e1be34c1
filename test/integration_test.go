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

// Package test checks that a schema script and the database it creates
// normalize to the same Document.
package test

import (
	"context"
	"flag"
	"os"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/spanner"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jackc/pgx/v5/pgxpool"

	"go.mercari.io/schemanorm/loader"
	"go.mercari.io/schemanorm/models"
	"go.mercari.io/schemanorm/normalize"
	_ "go.mercari.io/schemanorm/normalize/mssql"
	_ "go.mercari.io/schemanorm/normalize/postgres"
	_ "go.mercari.io/schemanorm/normalize/spanner"
	"go.mercari.io/schemanorm/test/testutil"
)

var (
	spannerProjectName  = os.Getenv("SPANNER_PROJECT_NAME")
	spannerInstanceName = os.Getenv("SPANNER_INSTANCE_NAME")
	spannerDatabaseName = os.Getenv("SPANNER_DATABASE_NAME")
	spannerEmulatorHost = os.Getenv("SPANNER_EMULATOR_HOST")

	postgresURL = os.Getenv("POSTGRES_URL")
	mssqlURL    = os.Getenv("MSSQL_URL")
)

var (
	client *spanner.Client
)

func TestMain(m *testing.M) {
	// explicitly call flag.Parse() to use testing.Short() in TestMain
	if !flag.Parsed() {
		flag.Parse()
	}

	os.Exit(func() int {
		ctx := context.Background()

		if spannerEmulatorHost != "" && !testing.Short() {
			statements, err := testutil.ReadStatements("testdata/spanner.sql")
			if err != nil {
				panic(err)
			}
			if err := testutil.SetupDatabase(ctx, spannerProjectName, spannerInstanceName, spannerDatabaseName, statements); err != nil {
				panic(err)
			}

			spanCli, err := testutil.TestClient(ctx, spannerProjectName, spannerInstanceName, spannerDatabaseName)
			if err != nil {
				panic(err)
			}
			defer spanCli.Close()
			client = spanCli
		}

		return m.Run()
	}())
}

// sortDocument orders the parts whose order depends on the source: a
// catalog lists tables by name, a script in declaration order.
var sortDocument = cmp.Options{
	cmpopts.SortSlices(func(a, b *models.Table) bool { return a.Name < b.Name }),
	cmpopts.SortSlices(func(a, b *models.Ref) bool { return a.Name < b.Name }),
	cmpopts.SortSlices(func(a, b *models.Index) bool { return indexKey(a) < indexKey(b) }),
	// catalogs name every index, scripts may not
	cmpopts.IgnoreFields(models.Index{}, "Name"),
}

func indexKey(idx *models.Index) string {
	var key string
	for _, c := range idx.Columns {
		key += c.Value + ","
	}
	return key
}

func TestSpannerRoundTrip(t *testing.T) {
	if client == nil {
		t.Skip("SPANNER_EMULATOR_HOST is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	want, err := loader.LoadFile("testdata/spanner.sql", "spanner", normalize.Options{})
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	got, err := loader.New(loader.NewSpannerSource(client), loader.Option{}).LoadSchema(ctx)
	if err != nil {
		t.Fatalf("LoadSchema failed: %v", err)
	}

	if diff := cmp.Diff(want.Tables, got.Tables, sortDocument); diff != "" {
		t.Errorf("tables (-script +database)\n%s", diff)
	}
	if diff := cmp.Diff(want.Refs, got.Refs, sortDocument); diff != "" {
		t.Errorf("refs (-script +database)\n%s", diff)
	}
}

func TestPostgresRoundTrip(t *testing.T) {
	if postgresURL == "" {
		t.Skip("POSTGRES_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	script, err := os.ReadFile("testdata/postgres.sql")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, postgresURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, string(script)); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}
	defer pool.Exec(context.Background(), "DROP SCHEMA IF EXISTS schemanorm_it CASCADE")

	want, err := loader.LoadFile("testdata/postgres.sql", "postgres", normalize.Options{})
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	got, err := loader.New(loader.NewPostgresSource(pool, "schemanorm_it"), loader.Option{}).LoadSchema(ctx)
	if err != nil {
		t.Fatalf("LoadSchema failed: %v", err)
	}

	// the catalog spells types and defaults in their canonical form
	opts := cmp.Options{
		sortDocument,
		cmpopts.IgnoreFields(models.Field{}, "Type", "Default"),
		cmpopts.IgnoreFields(models.Index{}, "Type"),
	}
	if diff := cmp.Diff(want.Tables, got.Tables, opts); diff != "" {
		t.Errorf("tables (-script +database)\n%s", diff)
	}
	if diff := cmp.Diff(want.Refs, got.Refs, opts); diff != "" {
		t.Errorf("refs (-script +database)\n%s", diff)
	}
}

func TestSQLServerRoundTrip(t *testing.T) {
	if mssqlURL == "" {
		t.Skip("MSSQL_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	script, err := os.ReadFile("testdata/mssql.sql")
	if err != nil {
		t.Fatal(err)
	}

	db, err := loader.OpenSQLServer(ctx, mssqlURL)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	// the driver runs one batch per call
	batches := []string{
		"DROP TABLE IF EXISTS schemanorm_it.orders",
		"DROP TABLE IF EXISTS schemanorm_it.customers",
		"IF SCHEMA_ID('schemanorm_it') IS NOT NULL DROP SCHEMA schemanorm_it",
		"CREATE SCHEMA schemanorm_it",
	}
	batches = append(batches, strings.Split(string(script), "\nGO\n")...)
	for _, b := range batches {
		if strings.TrimSpace(b) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, b); err != nil {
			t.Fatalf("failed to apply %q: %v", b, err)
		}
	}

	want, err := loader.LoadFile("testdata/mssql.sql", "mssql", normalize.Options{})
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	doc, err := loader.New(loader.NewSQLServerSource(db), loader.Option{}).LoadSchema(ctx)
	if err != nil {
		t.Fatalf("LoadSchema failed: %v", err)
	}
	var got []*models.Table
	for _, table := range doc.Tables {
		if table.SchemaName == "schemanorm_it" {
			got = append(got, table)
		}
	}
	var gotRefs []*models.Ref
	for _, r := range doc.Refs {
		if r.Endpoints[0].SchemaName == "schemanorm_it" {
			gotRefs = append(gotRefs, r)
		}
	}

	opts := cmp.Options{
		sortDocument,
		cmpopts.IgnoreFields(models.Field{}, "Type", "Default"),
	}
	if diff := cmp.Diff(want.Tables, got, opts); diff != "" {
		t.Errorf("tables (-script +database)\n%s", diff)
	}
	if diff := cmp.Diff(want.Refs, gotRefs, opts); diff != "" {
		t.Errorf("refs (-script +database)\n%s", diff)
	}
}
