package sqlscan

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"go.mercari.io/schemanorm/normalize"
)

type kv struct {
	Kind  Kind
	Value string
}

func lexKinds(t *testing.T, text string, d Dialect) []kv {
	t.Helper()
	toks, err := Lex(normalize.NewSource(text), d)
	if err != nil {
		t.Fatalf("Lex(%q) failed: %v", text, err)
	}
	var res []kv
	for _, tok := range toks {
		res = append(res, kv{tok.Kind, tok.Value})
	}
	return res
}

func TestLex(t *testing.T) {
	for _, tt := range []struct {
		desc    string
		dialect Dialect
		text    string
		want    []kv
	}{
		{
			desc:    "brackets and national strings",
			dialect: TSQL,
			text:    `[dbo].[my]]t] N'it''s'`,
			want: []kv{
				{QuotedIdent, "dbo"}, {Punct, "."}, {QuotedIdent, "my]t"},
				{String, "it's"}, {EOF, ""},
			},
		},
		{
			desc:    "variables and hex",
			dialect: TSQL,
			text:    "@@IDENTITY @x 0xFF 1.5e3",
			want: []kv{
				{Variable, "@@IDENTITY"}, {Variable, "@x"}, {Hex, "0xFF"}, {Number, "1.5e3"}, {EOF, ""},
			},
		},
		{
			desc:    "GO alone on its line",
			dialect: TSQL,
			text:    "SELECT 1\nGO\nSELECT go_1\n  go -- done\n",
			want: []kv{
				{Word, "SELECT"}, {Number, "1"}, {Separator, "GO"},
				{Word, "SELECT"}, {Word, "go_1"}, {Separator, "go"}, {EOF, ""},
			},
		},
		{
			desc:    "nested comments",
			dialect: TSQL,
			text:    "/* a /* b */ c */ x -- y\nz",
			want:    []kv{{Word, "x"}, {Word, "z"}, {EOF, ""}},
		},
		{
			desc:    "flat comments",
			dialect: Oracle,
			text:    "/* a /* b */ x",
			want:    []kv{{Word, "x"}, {EOF, ""}},
		},
		{
			desc:    "q quotes",
			dialect: Oracle,
			text:    `q'[it's]' Nq'{a}' q'!b!'`,
			want:    []kv{{String, "it's"}, {String, "a"}, {String, "b"}, {EOF, ""}},
		},
		{
			desc:    "slash terminator",
			dialect: Oracle,
			text:    "END;\n/\nx / 2",
			want: []kv{
				{Word, "END"}, {Punct, ";"}, {Separator, "/"},
				{Word, "x"}, {Punct, "/"}, {Number, "2"}, {EOF, ""},
			},
		},
		{
			desc:    "multi-byte punctuation",
			dialect: Standard,
			text:    `a<>b||"C d"::int`,
			want: []kv{
				{Word, "a"}, {Punct, "<>"}, {Word, "b"}, {Punct, "||"},
				{QuotedIdent, "C d"}, {Punct, "::"}, {Word, "int"}, {EOF, ""},
			},
		},
		{
			desc:    "brackets are punctuation outside T-SQL",
			dialect: Standard,
			text:    "[a]",
			want:    []kv{{Punct, "["}, {Word, "a"}, {Punct, "]"}, {EOF, ""}},
		},
		{
			desc:    "unicode words",
			dialect: Oracle,
			text:    "café$1 #tmp",
			want:    []kv{{Word, "café$1"}, {Word, "#tmp"}, {EOF, ""}},
		},
	} {
		t.Run(tt.desc, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, lexKinds(t, tt.text, tt.dialect)); diff != "" {
				t.Errorf("(-want +got)\n%s", diff)
			}
		})
	}
}

func TestLexOffsets(t *testing.T) {
	toks, err := Lex(normalize.NewSource("ab  'c'"), Standard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Token{
		{Kind: Word, Value: "ab", Offset: 0, End: 2},
		{Kind: String, Value: "c", Offset: 4, End: 7},
		{Kind: EOF, Offset: 7, End: 7},
	}
	if diff := cmp.Diff(want, toks); diff != "" {
		t.Errorf("(-want +got)\n%s", diff)
	}
}

func TestLexErrors(t *testing.T) {
	for _, tt := range []struct {
		text string
		want string
	}{
		{"x 'abc", "Unterminated string literal"},
		{`"abc`, "Unterminated quoted identifier"},
		{"[abc", "Unterminated quoted identifier"},
		{"/* abc", "Unterminated comment"},
		{"q'[abc", "Unterminated string literal"},
	} {
		d := TSQL
		if tt.text[0] == 'q' {
			d = Oracle
		}
		_, err := Lex(normalize.NewSource(tt.text), d)
		var nerr *normalize.Error
		if !errors.As(err, &nerr) {
			t.Errorf("Lex(%q) error = %v, want *normalize.Error", tt.text, err)
			continue
		}
		if nerr.Message != tt.want {
			t.Errorf("Lex(%q) message = %q, want %q", tt.text, nerr.Message, tt.want)
		}
	}
}

func TestSplit(t *testing.T) {
	for _, tt := range []struct {
		desc    string
		dialect Dialect
		text    string
		want    []string
	}{
		{
			desc:    "semicolons",
			dialect: Standard,
			text:    "a 1;; b 2;\n c",
			want:    []string{"a 1", "b 2", "c"},
		},
		{
			desc:    "procedure runs to GO",
			dialect: TSQL,
			text:    "CREATE PROCEDURE p AS BEGIN SELECT 1; SELECT 2; END\nGO\nSELECT 3",
			want:    []string{"CREATE PROCEDURE p AS BEGIN SELECT 1; SELECT 2; END", "SELECT 3"},
		},
		{
			desc:    "transaction is not a block",
			dialect: TSQL,
			text:    "BEGIN TRANSACTION; SELECT 1; COMMIT",
			want:    []string{"BEGIN TRANSACTION", "SELECT 1", "COMMIT"},
		},
		{
			desc:    "oracle package body runs to slash",
			dialect: Oracle,
			text:    "CREATE OR REPLACE PACKAGE BODY p AS x NUMBER; END;\n/\nSELECT 1 FROM dual;",
			want:    []string{"CREATE OR REPLACE PACKAGE BODY p AS x NUMBER; END;", "SELECT 1 FROM dual"},
		},
	} {
		t.Run(tt.desc, func(t *testing.T) {
			src := normalize.NewSource(tt.text)
			toks, err := Lex(src, tt.dialect)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var got []string
			for _, s := range Split(toks) {
				got = append(got, src.Slice(s.Start(), s.End()))
				if s.Toks[len(s.Toks)-1].Kind != EOF {
					t.Errorf("statement does not end with EOF")
				}
			}
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("(-want +got)\n%s", diff)
			}
		})
	}
}

func TestStatementIsBlock(t *testing.T) {
	for _, tt := range []struct {
		text string
		want bool
	}{
		{"CREATE PROCEDURE p AS SELECT 1", true},
		{"CREATE OR ALTER FUNCTION f() RETURNS INT AS BEGIN RETURN 1 END", true},
		{"BEGIN TRY SELECT 1 END TRY", true},
		{"BEGIN TRAN", false},
		{"CREATE TABLE t (id INT)", false},
		{"GO_ON", false},
	} {
		src := normalize.NewSource(tt.text)
		toks, err := Lex(src, TSQL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		stmts := Split(toks)
		if got := stmts[0].IsBlock(); got != tt.want {
			t.Errorf("IsBlock(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
