package sqlscan

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"go.mercari.io/schemanorm/normalize"
)

// Dialect switches the lexical rules that differ between dialects.
type Dialect struct {
	Name string

	BracketIdents   bool   // [name]
	NationalStrings bool   // N'text'
	QuoteStrings    bool   // q'[text]'
	NestedComments  bool   // /* /* */ */
	Variables       bool   // @name
	BatchSeparator  string // word alone on its line that ends a batch
	SlashTerminator bool   // "/" alone on its line ends a statement
}

// TSQL is the SQL Server lexical dialect.
var TSQL = Dialect{
	Name:            "mssql",
	BracketIdents:   true,
	NationalStrings: true,
	NestedComments:  true,
	Variables:       true,
	BatchSeparator:  "GO",
}

// Oracle is the Oracle (SQL*Plus script) lexical dialect.
var Oracle = Dialect{
	Name:            "oracle",
	NationalStrings: true,
	QuoteStrings:    true,
	SlashTerminator: true,
}

// Standard is plain ANSI lexing: '' strings and "" identifiers only.
var Standard = Dialect{Name: "standard"}

var puncts = []string{"<>", "!=", "<=", ">=", "||", "=>", "::", ":="}

type lexer struct {
	src  *normalize.Source
	text string
	pos  int
	d    Dialect
	toks []Token
}

// Lex splits the whole source into tokens. The last token is always EOF.
// Unterminated strings, quoted identifiers and block comments are errors.
func Lex(src *normalize.Source, d Dialect) ([]Token, error) {
	l := &lexer{src: src, text: src.Text(), d: d}
	if err := l.run(); err != nil {
		return nil, err
	}
	return l.toks, nil
}

func (l *lexer) run() error {
	for {
		if err := l.skipSpace(); err != nil {
			return err
		}
		if l.pos >= len(l.text) {
			l.emit(EOF, "", l.pos)
			return nil
		}

		start := l.pos
		c := l.text[l.pos]
		switch {
		case c == '\'':
			s, err := l.quoted('\'')
			if err != nil {
				return err
			}
			l.emit(String, s, start)
		case (c == 'N' || c == 'n') && l.d.NationalStrings && l.peek(1) == '\'':
			l.pos++
			s, err := l.quoted('\'')
			if err != nil {
				return err
			}
			l.emit(String, s, start)
		case l.d.QuoteStrings && isQ(c) && l.peek(1) == '\'':
			l.pos++
			if err := l.qQuote(start); err != nil {
				return err
			}
		case l.d.QuoteStrings && l.d.NationalStrings && (c == 'N' || c == 'n') && isQ(l.peek(1)) && l.peek(2) == '\'':
			l.pos += 2
			if err := l.qQuote(start); err != nil {
				return err
			}
		case c == '"':
			s, err := l.quoted('"')
			if err != nil {
				return err
			}
			l.emit(QuotedIdent, s, start)
		case c == '[' && l.d.BracketIdents:
			if err := l.bracket(); err != nil {
				return err
			}
		case c == '@' && l.d.Variables:
			l.pos++
			for l.pos < len(l.text) && l.text[l.pos] == '@' {
				l.pos++
			}
			l.word()
			l.emit(Variable, l.text[start:l.pos], start)
		case isDigit(c) || (c == '.' && isDigit(l.peek(1))):
			l.number()
		case l.isWordStart():
			l.word()
			w := l.text[start:l.pos]
			if l.d.BatchSeparator != "" && strings.EqualFold(w, l.d.BatchSeparator) && l.aloneOnLine(start, l.pos) {
				l.emit(Separator, w, start)
				continue
			}
			l.emit(Word, w, start)
		case c == '/' && l.d.SlashTerminator && l.aloneOnLine(start, start+1):
			l.pos++
			l.emit(Separator, "/", start)
		default:
			l.punct()
		}
	}
}

func (l *lexer) emit(k Kind, value string, start int) {
	l.toks = append(l.toks, Token{Kind: k, Value: value, Offset: start, End: l.pos})
}

func (l *lexer) peek(n int) byte {
	if l.pos+n < len(l.text) {
		return l.text[l.pos+n]
	}
	return 0
}

func (l *lexer) skipSpace() error {
	for l.pos < len(l.text) {
		c := l.text[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			l.pos++
		case c == '-' && l.peek(1) == '-':
			for l.pos < len(l.text) && l.text[l.pos] != '\n' {
				l.pos++
			}
		case c == '/' && l.peek(1) == '*':
			if err := l.blockComment(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
	return nil
}

func (l *lexer) blockComment() error {
	start := l.pos
	depth := 0
	for l.pos < len(l.text) {
		switch {
		case l.text[l.pos] == '/' && l.peek(1) == '*':
			if depth == 0 || l.d.NestedComments {
				depth++
			}
			l.pos += 2
		case l.text[l.pos] == '*' && l.peek(1) == '/':
			depth--
			l.pos += 2
			if depth == 0 {
				return nil
			}
		default:
			l.pos++
		}
	}
	return l.src.Errorf(start, l.pos, "Unterminated comment")
}

// quoted reads a literal delimited by q on both sides where a doubled q
// stands for one q.
func (l *lexer) quoted(q byte) (string, error) {
	start := l.pos
	l.pos++
	var sb strings.Builder
	for l.pos < len(l.text) {
		c := l.text[l.pos]
		if c == q {
			if l.peek(1) == q {
				sb.WriteByte(q)
				l.pos += 2
				continue
			}
			l.pos++
			return sb.String(), nil
		}
		sb.WriteByte(c)
		l.pos++
	}
	if q == '"' {
		return "", l.src.Errorf(start, l.pos, "Unterminated quoted identifier")
	}
	return "", l.src.Errorf(start, l.pos, "Unterminated string literal")
}

func (l *lexer) bracket() error {
	start := l.pos
	l.pos++
	var sb strings.Builder
	for l.pos < len(l.text) {
		c := l.text[l.pos]
		if c == ']' {
			if l.peek(1) == ']' {
				sb.WriteByte(']')
				l.pos += 2
				continue
			}
			l.pos++
			l.emit(QuotedIdent, sb.String(), start)
			return nil
		}
		sb.WriteByte(c)
		l.pos++
	}
	return l.src.Errorf(start, l.pos, "Unterminated quoted identifier")
}

// qQuote reads an Oracle alternative quoting literal. l.pos is at the
// opening quote.
func (l *lexer) qQuote(start int) error {
	l.pos++ // '
	if l.pos >= len(l.text) {
		return l.src.Errorf(start, l.pos, "Unterminated string literal")
	}
	open := l.text[l.pos]
	closer := open
	switch open {
	case '[':
		closer = ']'
	case '{':
		closer = '}'
	case '(':
		closer = ')'
	case '<':
		closer = '>'
	}
	l.pos++
	body := l.pos
	for l.pos+1 < len(l.text) {
		if l.text[l.pos] == closer && l.text[l.pos+1] == '\'' {
			value := l.text[body:l.pos]
			l.pos += 2
			l.emit(String, value, start)
			return nil
		}
		l.pos++
	}
	l.pos = len(l.text)
	return l.src.Errorf(start, l.pos, "Unterminated string literal")
}

func (l *lexer) number() {
	start := l.pos
	if l.text[l.pos] == '0' && (l.peek(1) == 'x' || l.peek(1) == 'X') {
		l.pos += 2
		for l.pos < len(l.text) && isHexDigit(l.text[l.pos]) {
			l.pos++
		}
		l.emit(Hex, l.text[start:l.pos], start)
		return
	}
	for l.pos < len(l.text) && isDigit(l.text[l.pos]) {
		l.pos++
	}
	if l.pos < len(l.text) && l.text[l.pos] == '.' {
		l.pos++
		for l.pos < len(l.text) && isDigit(l.text[l.pos]) {
			l.pos++
		}
	}
	if l.pos < len(l.text) && (l.text[l.pos] == 'e' || l.text[l.pos] == 'E') {
		exp := l.pos + 1
		if exp < len(l.text) && (l.text[exp] == '+' || l.text[exp] == '-') {
			exp++
		}
		if exp < len(l.text) && isDigit(l.text[exp]) {
			l.pos = exp
			for l.pos < len(l.text) && isDigit(l.text[l.pos]) {
				l.pos++
			}
		}
	}
	l.emit(Number, l.text[start:l.pos], start)
}

func (l *lexer) isWordStart() bool {
	c := l.text[l.pos]
	if c < utf8.RuneSelf {
		return c == '_' || c == '#' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
	}
	r, _ := utf8.DecodeRuneInString(l.text[l.pos:])
	return unicode.IsLetter(r)
}

func (l *lexer) word() {
	for l.pos < len(l.text) {
		c := l.text[l.pos]
		if c < utf8.RuneSelf {
			if c == '_' || c == '#' || c == '$' || isDigit(c) || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') {
				l.pos++
				continue
			}
			return
		}
		r, size := utf8.DecodeRuneInString(l.text[l.pos:])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return
		}
		l.pos += size
	}
}

func (l *lexer) punct() {
	start := l.pos
	for _, p := range puncts {
		if strings.HasPrefix(l.text[l.pos:], p) {
			l.pos += len(p)
			l.emit(Punct, p, start)
			return
		}
	}
	_, size := utf8.DecodeRuneInString(l.text[l.pos:])
	l.pos += size
	l.emit(Punct, l.text[start:l.pos], start)
}

// aloneOnLine reports whether text[start:end] has nothing but blanks around
// it on its line. A trailing line comment is allowed.
func (l *lexer) aloneOnLine(start, end int) bool {
	for i := start - 1; i >= 0; i-- {
		c := l.text[i]
		if c == '\n' {
			break
		}
		if c != ' ' && c != '\t' && c != '\r' {
			return false
		}
	}
	for i := end; i < len(l.text); i++ {
		c := l.text[i]
		if c == '\n' {
			break
		}
		if c == '-' && i+1 < len(l.text) && l.text[i+1] == '-' {
			break
		}
		if c != ' ' && c != '\t' && c != '\r' && c != ';' {
			return false
		}
	}
	return true
}

func isQ(c byte) bool { return c == 'q' || c == 'Q' }

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
