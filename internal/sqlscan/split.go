package sqlscan

// Statement is the token run of one statement. Toks always ends with an EOF
// token placed at the end of the statement.
type Statement struct {
	Toks []Token
}

// Start returns the byte offset of the first token.
func (s Statement) Start() int { return s.Toks[0].Offset }

// End returns the byte offset just past the last token.
func (s Statement) End() int { return s.Toks[len(s.Toks)-1].End }

// IsBlock reports whether s is a procedural body such as a procedure,
// function, trigger, package or anonymous block.
func (s Statement) IsBlock() bool {
	n := len(s.Toks) - 1
	if n > 5 {
		n = 5
	}
	for i := 1; i <= n; i++ {
		if isBlockStart(s.Toks[:i]) {
			return true
		}
	}
	return false
}

// Split cuts a token stream into statements at ";" and at batch
// separators. Procedural bodies (procedures, functions, triggers, packages
// and anonymous blocks) run until the next batch separator, since their
// own semicolons do not end the statement. Empty statements are dropped.
func Split(toks []Token) []Statement {
	var (
		stmts []Statement
		cur   []Token
		block bool
	)
	flush := func() {
		if len(cur) > 0 {
			end := cur[len(cur)-1].End
			cur = append(cur, Token{Kind: EOF, Offset: end, End: end})
			stmts = append(stmts, Statement{Toks: cur})
		}
		cur = nil
		block = false
	}

	for _, t := range toks {
		switch {
		case t.Kind == EOF:
			flush()
			return stmts
		case t.Kind == Separator:
			flush()
		case t.IsPunct(";") && !block:
			flush()
		default:
			cur = append(cur, t)
			if !block && len(cur) <= 5 {
				block = isBlockStart(cur)
			}
		}
	}
	flush()
	return stmts
}

func isBlockStart(toks []Token) bool {
	if toks[0].Is("DECLARE") {
		return true
	}
	if toks[0].Is("BEGIN") {
		if len(toks) < 2 {
			return false
		}
		t := toks[1]
		return !(t.Is("TRAN") || t.Is("TRANSACTION") || t.Is("DISTRIBUTED") || t.IsPunct(";"))
	}
	if !toks[0].Is("CREATE") {
		return false
	}
	for _, t := range toks[1:] {
		switch {
		case t.Is("OR"), t.Is("REPLACE"), t.Is("ALTER"), t.Is("EDITIONABLE"), t.Is("NONEDITIONABLE"):
			continue
		case t.Is("PROCEDURE"), t.Is("PROC"), t.Is("FUNCTION"), t.Is("TRIGGER"), t.Is("PACKAGE"):
			return true
		default:
			return false
		}
	}
	return false
}
