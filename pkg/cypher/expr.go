package cypher

import (
	"math"

	"github.com/dong-qiu/graphdb/pkg/gvalue"
)

// EvalContext is the row and parameter binding an expression is
// evaluated against (spec §4.3.4).
type EvalContext struct {
	Row    gvalue.Row
	Params map[string]gvalue.Value
}

// Eval recursively evaluates expr against ctx, implementing spec
// §4.3.4's expression evaluator.
func Eval(expr *Expr, ctx *EvalContext) (gvalue.Value, error) {
	switch expr.Kind {
	case ExprLiteral:
		if expr.Lit.Kind == gvalue.KindFloat && !finite(expr.Lit.Float) {
			return gvalue.Null, &InvalidExpressionError{Reason: "literal float is not finite"}
		}
		return expr.Lit, nil

	case ExprVariable:
		v, ok := ctx.Row[expr.Name]
		if !ok {
			return gvalue.Null, &VariableNotFoundError{Name: expr.Name}
		}
		return v, nil

	case ExprParam:
		v, ok := ctx.Params[expr.Name]
		if !ok {
			return gvalue.Null, nil
		}
		return v, nil

	case ExprProperty:
		base, ok := ctx.Row[expr.Base]
		if !ok {
			return gvalue.Null, &VariableNotFoundError{Name: expr.Base}
		}
		return evalPropertyChain(base, expr.Keys)

	case ExprFuncCall:
		return evalFuncCall(expr, ctx)

	case ExprUnary:
		return evalUnary(expr, ctx)

	case ExprBinary:
		return evalBinary(expr, ctx)
	}
	return gvalue.Null, &InvalidExpressionError{Reason: "unknown expression kind"}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// evalPropertyChain descends from a Vertex/Edge/Map Value through a
// nested key chain. A missing intermediate key yields null rather than
// an error, per spec §4.3.4.
func evalPropertyChain(base gvalue.Value, keys []string) (gvalue.Value, error) {
	var props map[string]any
	switch base.Kind {
	case gvalue.KindVertex:
		props = base.Vertex.Properties
	case gvalue.KindEdge:
		props = base.Edge.Properties
	case gvalue.KindMap:
		// Map values hold gvalue.Value directly; walk separately.
		return evalValueMapChain(base, keys)
	default:
		return gvalue.Null, &TypeMismatchError{Expected: "vertex, edge, or map", Actual: base.Kind.String(), Context: "property access"}
	}
	return descendJSON(props, keys), nil
}

func evalValueMapChain(v gvalue.Value, keys []string) (gvalue.Value, error) {
	cur := v
	for _, k := range keys {
		if cur.Kind != gvalue.KindMap {
			return gvalue.Null, nil
		}
		next, ok := cur.Map[k]
		if !ok {
			return gvalue.Null, nil
		}
		cur = next
	}
	return cur, nil
}

func descendJSON(doc map[string]any, keys []string) gvalue.Value {
	var cur any = doc
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return gvalue.Null
		}
		next, ok := m[k]
		if !ok {
			return gvalue.Null
		}
		cur = next
	}
	return fromJSON(cur)
}

// fromJSON converts a decoded JSON value (as produced by
// encoding/json.Unmarshal into map[string]any) into a gvalue.Value.
func fromJSON(v any) gvalue.Value {
	switch x := v.(type) {
	case nil:
		return gvalue.Null
	case bool:
		return gvalue.Bool(x)
	case string:
		return gvalue.Str(x)
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return gvalue.Int(int64(x))
		}
		return gvalue.Float(x)
	case int64:
		return gvalue.Int(x)
	case []any:
		out := make([]gvalue.Value, len(x))
		for i, e := range x {
			out[i] = fromJSON(e)
		}
		return gvalue.List(out)
	case map[string]any:
		out := make(map[string]gvalue.Value, len(x))
		for k, e := range x {
			out[k] = fromJSON(e)
		}
		return gvalue.Map(out)
	default:
		return gvalue.Null
	}
}

// toJSON converts a gvalue.Value into a plain Go value suitable for
// json.Marshal, the inverse of fromJSON. Used when a SET expression's
// result must be written into a properties document.
func toJSON(v gvalue.Value) (any, error) {
	switch v.Kind {
	case gvalue.KindNull:
		return nil, nil
	case gvalue.KindBool:
		return v.Bool, nil
	case gvalue.KindInt:
		return v.Int, nil
	case gvalue.KindFloat:
		if !finite(v.Float) {
			return nil, &InvalidExpressionError{Reason: "result is not finite (NaN or Inf)"}
		}
		return v.Float, nil
	case gvalue.KindString:
		return v.Str, nil
	case gvalue.KindList:
		out := make([]any, len(v.List))
		for i, e := range v.List {
			j, err := toJSON(e)
			if err != nil {
				return nil, err
			}
			out[i] = j
		}
		return out, nil
	case gvalue.KindMap:
		out := make(map[string]any, len(v.Map))
		for k, e := range v.Map {
			j, err := toJSON(e)
			if err != nil {
				return nil, err
			}
			out[k] = j
		}
		return out, nil
	default:
		return nil, &TypeMismatchError{Expected: "scalar, list, or map", Actual: v.Kind.String(), Context: "property write"}
	}
}

func evalUnary(expr *Expr, ctx *EvalContext) (gvalue.Value, error) {
	v, err := Eval(expr.Operand, ctx)
	if err != nil {
		return gvalue.Null, err
	}
	switch expr.Op {
	case "NOT":
		return gvalue.Bool(!v.Truthy()), nil
	case "-":
		switch v.Kind {
		case gvalue.KindInt:
			if v.Int == math.MinInt64 {
				return gvalue.Null, &InvalidExpressionError{Reason: "integer overflow"}
			}
			return gvalue.Int(-v.Int), nil
		case gvalue.KindFloat:
			return gvalue.Float(-v.Float), nil
		case gvalue.KindNull:
			return gvalue.Null, nil
		default:
			return gvalue.Null, &TypeMismatchError{Expected: "numeric", Actual: v.Kind.String(), Context: "unary -"}
		}
	}
	return gvalue.Null, &InvalidExpressionError{Reason: "unknown unary operator " + expr.Op}
}

func evalFuncCall(expr *Expr, ctx *EvalContext) (gvalue.Value, error) {
	if expr.Name == "__list__" {
		out := make([]gvalue.Value, len(expr.Args))
		for i, a := range expr.Args {
			v, err := Eval(a, ctx)
			if err != nil {
				return gvalue.Null, err
			}
			out[i] = v
		}
		return gvalue.List(out), nil
	}
	// Aggregation function names (count/sum/avg/min/max) only make sense
	// collapsed over a row set; the WITH/RETURN projection stage
	// recognizes and special-cases them before falling through to Eval.
	// Reaching here means one was used outside an aggregating context.
	if isAggregateFuncName(expr.Name) {
		return gvalue.Null, &UnsupportedOperationError{Op: expr.Name, Reason: "aggregate function used outside WITH/RETURN projection"}
	}
	return gvalue.Null, &UnsupportedOperationError{Op: expr.Name, Reason: "unknown function"}
}

func isAggregateFuncName(name string) bool {
	switch name {
	case "count", "sum", "avg", "min", "max":
		return true
	}
	return false
}
