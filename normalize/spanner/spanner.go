// Package spanner normalizes Cloud Spanner (GoogleSQL) DDL using the memefish
// parser.
package spanner

import (
	"fmt"
	"strings"

	"github.com/cloudspannerecosystem/memefish"
	"github.com/cloudspannerecosystem/memefish/ast"
	"github.com/cloudspannerecosystem/memefish/token"

	"go.mercari.io/schemanorm/models"
	"go.mercari.io/schemanorm/normalize"
)

// Dialect is the registered name of this normalizer.
const Dialect = "spanner"

func init() {
	normalize.Register(Dialect, New)
}

// Normalizer converts Spanner DDL scripts.
type Normalizer struct {
	opts normalize.Options
}

// New returns a Spanner Normalizer.
func New(opts normalize.Options) normalize.Normalizer {
	return &Normalizer{opts: opts}
}

// ddlKeywords are the leading keywords of statements handed to the parser.
// Everything else (DML, queries, GRANT, ...) is skipped.
var ddlKeywords = map[string]bool{
	"CREATE":  true,
	"ALTER":   true,
	"DROP":    true,
	"RENAME":  true,
	"ANALYZE": true,
}

// Normalize implements normalize.Normalizer.
func (n *Normalizer) Normalize(src string) (*models.Document, error) {
	rule := normalize.ExactSchema
	if n.opts.DefaultSchema != "" {
		rule = normalize.DefaultSchema(n.opts.DefaultSchema)
	}
	b := normalize.NewBuilder(rule)
	b.Document().Project.DatabaseType = "Spanner"

	w := &walker{src: normalize.NewSource(src), b: b}
	for _, stmt := range separateInput(src) {
		if !ddlKeywords[strings.ToUpper(firstWord(stmt.Text))] {
			continue
		}
		ddl, err := memefish.ParseDDL("", stmt.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to parse spanner input: %w", err)
		}
		w.offset = stmt.Offset
		if err := w.statement(ddl); err != nil {
			return nil, err
		}
	}
	return b.Document(), nil
}

// firstWord returns the first keyword of a statement, skipping comments.
func firstWord(text string) string {
	s := &separator{src: text}
	for s.pos < len(s.src) {
		if s.skipComment() {
			continue
		}
		if !isSpace(s.src[s.pos]) {
			break
		}
		s.pos++
	}
	end := s.pos
	for end < len(text) && isIdentByte(text[end]) {
		end++
	}
	return text[s.pos:end]
}

// walker visits the statements of one script.
type walker struct {
	src *normalize.Source
	b   *normalize.Builder

	// byte offset of the current statement
	offset int
}

func (w *walker) statement(ddl ast.DDL) error {
	switch d := ddl.(type) {
	case *ast.CreateSchema:
		w.b.AddSchema(d.Name.Name)
	case *ast.CreateTable:
		return w.createTable(d)
	case *ast.CreateIndex:
		return w.createIndex(d)
	case *ast.AlterTable:
		return w.alterTable(d)
	}
	return nil
}

// span converts a node's statement-relative positions into a Span of the
// whole input.
func (w *walker) span(n ast.Node) normalize.Span {
	return w.src.Span(w.offset+int(n.Pos()), w.offset+int(n.End()))
}

func (w *walker) spanAt(pos, end token.Pos) normalize.Span {
	return w.src.Span(w.offset+int(pos), w.offset+int(end))
}

// pathName keeps the last two parts of a dotted name as schema and table.
func pathName(p *ast.Path) normalize.Name {
	if p == nil || len(p.Idents) == 0 {
		return normalize.Name{}
	}
	ids := p.Idents
	name := normalize.Name{Table: ids[len(ids)-1].Name}
	if len(ids) > 1 {
		name.Schema = ids[len(ids)-2].Name
	}
	return name
}

func identNames(ids []*ast.Ident) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Name)
	}
	return out
}
