package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"

	"go.mercari.io/schemanorm/models"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestConvert(t *testing.T) {
	path := writeFile(t, "schema.sql", "CREATE TABLE users (id INT PRIMARY KEY, secret NVARCHAR(10))\nGO\n")

	out, err := execute(t, "convert", path, "--dialect", "mssql", "--ignore-fields", "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var doc models.Document
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output is not a document: %v\n%s", err, out)
	}
	want := []*models.Table{{
		Name:    "users",
		Fields:  []*models.Field{{Name: "id", Type: models.FieldType{TypeName: "INT"}, PK: true}},
		Indexes: []*models.Index{},
	}}
	if diff := cmp.Diff(want, doc.Tables); diff != "" {
		t.Errorf("(-want +got)\n%s", diff)
	}
	if doc.Project == nil || doc.Project.DatabaseType != "SQL Server" {
		t.Errorf("unexpected project: %+v", doc.Project)
	}
}

func TestConvertError(t *testing.T) {
	path := writeFile(t, "broken.sql", "CREATE TABLE t (a, b INT)")

	_, err := execute(t, "convert", path, "--dialect", "mssql")
	if err == nil {
		t.Fatal("expected an error")
	}
	if want := path + ":1:17: "; !strings.HasPrefix(err.Error(), want) {
		t.Errorf("error = %q, want prefix %q", err.Error(), want)
	}
}

func TestDialects(t *testing.T) {
	out, err := execute(t, "dialects")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "mssql\noracle\npostgres\nspanner\n"
	if out != want {
		t.Errorf("dialects = %q, want %q", out, want)
	}
}

func TestMergeConfig(t *testing.T) {
	cfg := writeFile(t, "schemanorm.yml", `
dialect: oracle
default_schema: HR
ignore_tables: [audit]
indent: true
`)

	cmd := &cobra.Command{}
	opts := &convertArgs{}
	setConvertFlags(cmd, opts)
	if err := cmd.ParseFlags([]string{"--config", cfg, "--dialect", "mssql"}); err != nil {
		t.Fatal(err)
	}
	if err := mergeConfig(cmd, opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := &convertArgs{
		outputOpts: outputOpts{
			Indent:       true,
			IgnoreTables: []string{"audit"},
		},
		Dialect:       "mssql",
		DefaultSchema: "HR",
		ConfigFile:    cfg,
	}
	if diff := cmp.Diff(want, opts, cmp.AllowUnexported(convertArgs{})); diff != "" {
		t.Errorf("(-want +got)\n%s", diff)
	}
}

type closeErrWriter struct {
	bytes.Buffer
	err error
}

func (w *closeErrWriter) Close() error { return w.err }

func TestWriteDocumentClose(t *testing.T) {
	orig := createFile
	t.Cleanup(func() { createFile = orig })

	errDisk := errors.New("disk full")
	out := &closeErrWriter{err: errDisk}
	createFile = func(string) (io.WriteCloser, error) { return out, nil }

	doc := models.NewDocument()
	err := writeDocument(io.Discard, &outputOpts{Out: "doc.json"}, doc)
	if !errors.Is(err, errDisk) {
		t.Errorf("error = %v, want %v", err, errDisk)
	}
	if out.Len() == 0 {
		t.Error("document was not written before close")
	}

	out.err = nil
	out.Reset()
	if err := writeDocument(io.Discard, &outputOpts{Out: "doc.json"}, doc); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
