// Package sqlscan tokenizes T-SQL and Oracle scripts and walks their tokens.
// It splits scripts into statements, locates elements for error spans and
// keeps the source spelling of types and expressions that the syntax trees
// of those dialects do not preserve.
package sqlscan

import "strings"

// Kind is the lexical class of a Token.
type Kind int

// Token kinds.
const (
	EOF Kind = iota
	Word
	QuotedIdent
	String
	Number
	Hex
	Variable
	Punct
	Separator
)

var kindNames = [...]string{
	EOF:         "end of input",
	Word:        "word",
	QuotedIdent: "quoted identifier",
	String:      "string",
	Number:      "number",
	Hex:         "binary literal",
	Variable:    "variable",
	Punct:       "punctuation",
	Separator:   "batch separator",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Token is one lexeme. Value is the decoded content: identifiers without
// their quotes and strings unescaped. Offset and End are byte offsets into
// the source, End exclusive.
type Token struct {
	Kind   Kind
	Value  string
	Offset int
	End    int
}

// Is reports whether t is the bare keyword kw, ignoring case.
func (t Token) Is(kw string) bool {
	return t.Kind == Word && strings.EqualFold(t.Value, kw)
}

// IsPunct reports whether t is the punctuation p.
func (t Token) IsPunct(p string) bool {
	return t.Kind == Punct && t.Value == p
}

// IsIdent reports whether t can name a table or column.
func (t Token) IsIdent() bool {
	return t.Kind == Word || t.Kind == QuotedIdent
}
