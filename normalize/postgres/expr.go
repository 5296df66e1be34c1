package postgres

import (
	"strconv"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"go.mercari.io/schemanorm/models"
	"go.mercari.io/schemanorm/normalize"
)

var serialTypes = map[string]bool{
	"serial": true, "serial4": true,
	"bigserial": true, "serial8": true,
	"smallserial": true, "serial2": true,
}

// deparse renders an expression back to SQL by wrapping it in a SELECT
// target list.
func deparse(expr *pg_query.Node) string {
	if expr == nil {
		return ""
	}
	tree := &pg_query.ParseResult{
		Stmts: []*pg_query.RawStmt{{
			Stmt: &pg_query.Node{
				Node: &pg_query.Node_SelectStmt{
					SelectStmt: &pg_query.SelectStmt{
						TargetList: []*pg_query.Node{{
							Node: &pg_query.Node_ResTarget{
								ResTarget: &pg_query.ResTarget{Val: expr},
							},
						}},
					},
				},
			},
		}},
	}
	out, err := pg_query.Deparse(tree)
	if err != nil {
		return ""
	}
	out, _ = strings.CutPrefix(out, "SELECT ")
	return strings.TrimSpace(out)
}

// fieldType renders a column type the way it would be written in SQL, for
// example "varchar(255)", "int" or "timestamp with time zone". A type in a
// user schema keeps the schema apart.
func fieldType(tn *pg_query.TypeName) (models.FieldType, bool) {
	parts := names(tn.GetNames())
	if len(parts) == 0 {
		return models.FieldType{}, false
	}
	last := parts[len(parts)-1]

	var ft models.FieldType
	if len(parts) > 1 && parts[0] != "pg_catalog" {
		ft.SchemaName = parts[len(parts)-2]
	}

	cast := &pg_query.Node{
		Node: &pg_query.Node_TypeCast{
			TypeCast: &pg_query.TypeCast{
				Arg: &pg_query.Node{
					Node: &pg_query.Node_AConst{AConst: &pg_query.A_Const{Isnull: true}},
				},
				TypeName: tn,
			},
		},
	}
	text, ok := strings.CutPrefix(deparse(cast), "NULL::")
	if !ok || text == "" {
		text = last
	}
	if ft.SchemaName != "" {
		text = strings.TrimPrefix(text, ft.SchemaName+".")
		text = strings.TrimPrefix(text, strconv.Quote(ft.SchemaName)+".")
	}
	ft.TypeName = text
	return ft, serialTypes[strings.ToLower(last)]
}

// literal flattens an expression into a Literal. A constant may be wrapped
// in a cast ('a'::text) or negated; anything deeper is an expression.
func literal(expr *pg_query.Node) normalize.Literal {
	switch n := expr.GetNode().(type) {
	case *pg_query.Node_AConst:
		return constant(n.AConst, expr)
	case *pg_query.Node_TypeCast:
		if c := n.TypeCast.GetArg().GetAConst(); c != nil {
			return constant(c, expr)
		}
	case *pg_query.Node_AExpr:
		if neg := negated(n.AExpr); neg != nil {
			return *neg
		}
	case *pg_query.Node_ColumnRef:
		return normalize.Literal{Kind: normalize.LiteralIdentifier, Text: deparse(expr)}
	}
	return normalize.Literal{Kind: normalize.LiteralExpression, Text: deparse(expr)}
}

func constant(c *pg_query.A_Const, expr *pg_query.Node) normalize.Literal {
	if c.GetIsnull() {
		return normalize.Literal{Kind: normalize.LiteralNull, Text: "NULL"}
	}
	switch v := c.GetVal().(type) {
	case *pg_query.A_Const_Sval:
		return normalize.Literal{Kind: normalize.LiteralString, Text: v.Sval.GetSval()}
	case *pg_query.A_Const_Ival:
		return normalize.Literal{Kind: normalize.LiteralNumber, Text: strconv.FormatInt(int64(v.Ival.GetIval()), 10)}
	case *pg_query.A_Const_Fval:
		return normalize.Literal{Kind: normalize.LiteralNumber, Text: v.Fval.GetFval()}
	case *pg_query.A_Const_Boolval:
		return normalize.Literal{Kind: normalize.LiteralBoolean, Text: strconv.FormatBool(v.Boolval.GetBoolval())}
	}
	return normalize.Literal{Kind: normalize.LiteralExpression, Text: deparse(expr)}
}

// negated folds "-constant", which the parser leaves as a unary operator
// for some numeric forms.
func negated(e *pg_query.A_Expr) *normalize.Literal {
	if e.GetKind() != pg_query.A_Expr_Kind_AEXPR_OP || e.GetLexpr() != nil {
		return nil
	}
	op := names(e.GetName())
	if len(op) != 1 || op[0] != "-" {
		return nil
	}
	c := e.GetRexpr().GetAConst()
	if c == nil {
		return nil
	}
	lit := constant(c, e.GetRexpr())
	if lit.Kind != normalize.LiteralNumber {
		return nil
	}
	if strings.HasPrefix(lit.Text, "-") {
		lit.Text = lit.Text[1:]
	} else {
		lit.Text = "-" + lit.Text
	}
	return &lit
}

// recordValue decodes one VALUES cell. DEFAULT placeholders and subqueries
// cannot be held by a record.
func recordValue(expr *pg_query.Node) (*models.Value, bool) {
	switch expr.GetNode().(type) {
	case nil, *pg_query.Node_SetToDefault, *pg_query.Node_SubLink:
		return nil, false
	}
	return literal(expr).RecordValue(), true
}

// action maps a pg_query referential action code. The default, NO ACTION,
// is left empty.
func action(code string) string {
	switch code {
	case "c":
		return models.ActionCascade
	case "n":
		return models.ActionSetNull
	case "d":
		return models.ActionSetDefault
	case "r":
		return models.ActionRestrict
	}
	return ""
}
