package spanner

import (
	"strconv"
	"strings"

	"github.com/cloudspannerecosystem/memefish/ast"

	"go.mercari.io/schemanorm/normalize"
)

// literal folds a default expression into a Literal. Parenthesized and
// negated constants are unwrapped; anything else keeps its SQL text.
func literal(expr ast.Expr) normalize.Literal {
	switch e := expr.(type) {
	case *ast.ParenExpr:
		return literal(e.Expr)
	case *ast.StringLiteral:
		return normalize.Literal{Kind: normalize.LiteralString, Text: e.Value}
	case *ast.IntLiteral:
		return normalize.Literal{Kind: normalize.LiteralNumber, Text: e.Value}
	case *ast.FloatLiteral:
		return normalize.Literal{Kind: normalize.LiteralNumber, Text: e.Value}
	case *ast.BoolLiteral:
		return normalize.Literal{Kind: normalize.LiteralBoolean, Text: strconv.FormatBool(e.Value)}
	case *ast.NullLiteral:
		return normalize.Literal{Kind: normalize.LiteralNull, Text: "NULL"}
	case *ast.Ident:
		return normalize.Literal{Kind: normalize.LiteralIdentifier, Text: e.Name}
	case *ast.UnaryExpr:
		if e.Op == ast.OpMinus {
			if lit := literal(e.Expr); lit.Kind == normalize.LiteralNumber && !strings.HasPrefix(lit.Text, "-") {
				lit.Text = "-" + lit.Text
				return lit
			}
		}
	}
	return normalize.Literal{Kind: normalize.LiteralExpression, Text: expr.SQL()}
}
