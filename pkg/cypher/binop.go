package cypher

import (
	"math"

	"github.com/dong-qiu/graphdb/pkg/gvalue"
)

func evalBinary(expr *Expr, ctx *EvalContext) (gvalue.Value, error) {
	switch expr.Op {
	case "AND":
		left, err := Eval(expr.Left, ctx)
		if err != nil {
			return gvalue.Null, err
		}
		if !left.Truthy() {
			return gvalue.Bool(false), nil
		}
		right, err := Eval(expr.Right, ctx)
		if err != nil {
			return gvalue.Null, err
		}
		return gvalue.Bool(right.Truthy()), nil
	case "OR":
		left, err := Eval(expr.Left, ctx)
		if err != nil {
			return gvalue.Null, err
		}
		if left.Truthy() {
			return gvalue.Bool(true), nil
		}
		right, err := Eval(expr.Right, ctx)
		if err != nil {
			return gvalue.Null, err
		}
		return gvalue.Bool(right.Truthy()), nil
	}

	left, err := Eval(expr.Left, ctx)
	if err != nil {
		return gvalue.Null, err
	}
	right, err := Eval(expr.Right, ctx)
	if err != nil {
		return gvalue.Null, err
	}

	switch expr.Op {
	case "+", "-", "*", "/", "%":
		return evalArith(expr.Op, left, right)
	case "=", "<>", "<", ">", "<=", ">=":
		return evalCompare(expr.Op, left, right)
	}
	return gvalue.Null, &InvalidExpressionError{Reason: "unknown binary operator " + expr.Op}
}

func isNumeric(v gvalue.Value) bool {
	return v.Kind == gvalue.KindInt || v.Kind == gvalue.KindFloat
}

func asFloat(v gvalue.Value) float64 {
	if v.Kind == gvalue.KindInt {
		return float64(v.Int)
	}
	return v.Float
}

func evalArith(op string, left, right gvalue.Value) (gvalue.Value, error) {
	if op == "+" && left.Kind == gvalue.KindString && right.Kind == gvalue.KindString {
		return gvalue.Str(left.Str + right.Str), nil
	}

	if !isNumeric(left) || !isNumeric(right) {
		return gvalue.Null, &TypeMismatchError{Expected: "numeric", Actual: left.Kind.String() + "/" + right.Kind.String(), Context: "arithmetic " + op}
	}

	if left.Kind == gvalue.KindInt && right.Kind == gvalue.KindInt {
		return intArith(op, left.Int, right.Int)
	}

	lf, rf := asFloat(left), asFloat(right)
	var res float64
	switch op {
	case "+":
		res = lf + rf
	case "-":
		res = lf - rf
	case "*":
		res = lf * rf
	case "/":
		if rf == 0 {
			return gvalue.Null, &InvalidExpressionError{Reason: "division by zero"}
		}
		res = lf / rf
	case "%":
		if rf == 0 {
			return gvalue.Null, &InvalidExpressionError{Reason: "modulo by zero"}
		}
		res = math.Mod(lf, rf)
	}
	if !finite(res) {
		return gvalue.Null, &InvalidExpressionError{Reason: "result is not finite (NaN or Inf)"}
	}
	return gvalue.Float(res), nil
}

// intArith implements spec §4.3.4's integer-op-integer -> integer rule
// with an explicit overflow check, and the documented division/modulo
// by zero policy (fail with InvalidExpression rather than propagating
// null, per the Open Question decision recorded in DESIGN.md).
func intArith(op string, a, b int64) (gvalue.Value, error) {
	switch op {
	case "+":
		r := a + b
		if (b > 0 && r < a) || (b < 0 && r > a) {
			return gvalue.Null, &InvalidExpressionError{Reason: "integer overflow"}
		}
		return gvalue.Int(r), nil
	case "-":
		r := a - b
		if (b < 0 && r < a) || (b > 0 && r > a) {
			return gvalue.Null, &InvalidExpressionError{Reason: "integer overflow"}
		}
		return gvalue.Int(r), nil
	case "*":
		if a == 0 || b == 0 {
			return gvalue.Int(0), nil
		}
		r := a * b
		if r/b != a || (a == math.MinInt64 && b == -1) {
			return gvalue.Null, &InvalidExpressionError{Reason: "integer overflow"}
		}
		return gvalue.Int(r), nil
	case "/":
		if b == 0 {
			return gvalue.Null, &InvalidExpressionError{Reason: "division by zero"}
		}
		if a == math.MinInt64 && b == -1 {
			return gvalue.Null, &InvalidExpressionError{Reason: "integer overflow"}
		}
		return gvalue.Int(a / b), nil
	case "%":
		if b == 0 {
			return gvalue.Null, &InvalidExpressionError{Reason: "modulo by zero"}
		}
		return gvalue.Int(a % b), nil
	}
	return gvalue.Null, &InvalidExpressionError{Reason: "unknown arithmetic operator " + op}
}

// evalCompare implements spec §4.3.4's comparison rules: numeric vs
// numeric (integer promoted to float when needed), string vs string
// (lexicographic), and null vs anything yielding null.
func evalCompare(op string, left, right gvalue.Value) (gvalue.Value, error) {
	if left.IsNull() || right.IsNull() {
		return gvalue.Null, nil
	}

	var cmp int
	switch {
	case isNumeric(left) && isNumeric(right):
		lf, rf := asFloat(left), asFloat(right)
		switch {
		case lf < rf:
			cmp = -1
		case lf > rf:
			cmp = 1
		default:
			cmp = 0
		}
	case left.Kind == gvalue.KindString && right.Kind == gvalue.KindString:
		switch {
		case left.Str < right.Str:
			cmp = -1
		case left.Str > right.Str:
			cmp = 1
		default:
			cmp = 0
		}
	case left.Kind == gvalue.KindBool && right.Kind == gvalue.KindBool && (op == "=" || op == "<>"):
		if left.Bool == right.Bool {
			cmp = 0
		} else {
			cmp = 1
		}
	default:
		// Mismatched-type comparison yields null (Open Question
		// decision, spec §9's own recommendation).
		return gvalue.Null, nil
	}

	switch op {
	case "=":
		return gvalue.Bool(cmp == 0), nil
	case "<>":
		return gvalue.Bool(cmp != 0), nil
	case "<":
		return gvalue.Bool(cmp < 0), nil
	case ">":
		return gvalue.Bool(cmp > 0), nil
	case "<=":
		return gvalue.Bool(cmp <= 0), nil
	case ">=":
		return gvalue.Bool(cmp >= 0), nil
	}
	return gvalue.Null, &InvalidExpressionError{Reason: "unknown comparison operator " + op}
}
