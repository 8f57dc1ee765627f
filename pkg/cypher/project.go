package cypher

import (
	"sort"
	"strings"

	"github.com/dong-qiu/graphdb/pkg/gvalue"
)

func isAggItem(item *ProjectionItem) bool {
	return item.Expr.Kind == ExprFuncCall && isAggregateFuncName(item.Expr.Name)
}

func allAggregate(items []*ProjectionItem) bool {
	for _, it := range items {
		if !isAggItem(it) {
			return false
		}
	}
	return true
}

func itemName(item *ProjectionItem) string {
	if item.Alias != "" {
		return item.Alias
	}
	return exprDisplayName(item.Expr)
}

func exprDisplayName(e *Expr) string {
	switch e.Kind {
	case ExprVariable, ExprParam:
		return e.Name
	case ExprProperty:
		return e.Base + "." + strings.Join(e.Keys, ".")
	case ExprFuncCall:
		return e.Name + "(...)"
	case ExprLiteral:
		return e.Lit.String()
	default:
		return "expr"
	}
}

// projectExtended implements the projection/aggregation semantics of
// spec §4.3.5 (WITH) and §4.3.6 (RETURN), but — unlike the clause's
// final output — keeps each row's pre-projection bindings alongside
// the new item names. This lets a trailing WHERE/ORDER BY on the same
// clause reference either an original variable (p, p.age) or a freshly
// declared alias, matching how ORDER BY attaches to the clause that
// projects it rather than to the narrowed result. narrowRows drops the
// extra bindings once WHERE/ORDER BY/LIMIT have all run.
func projectExtended(rows []gvalue.Row, items []*ProjectionItem, params map[string]gvalue.Value) ([]gvalue.Row, error) {
	if !hasAggregate(items) {
		out := make([]gvalue.Row, len(rows))
		for i, row := range rows {
			ctx := &EvalContext{Row: row, Params: params}
			ext := row.Clone()
			for _, item := range items {
				v, err := Eval(item.Expr, ctx)
				if err != nil {
					return nil, err
				}
				ext[itemName(item)] = v
			}
			out[i] = ext
		}
		return out, nil
	}
	// Aggregation collapses multiple rows into one group: there is no
	// single "original row" left to carry forward, so the extended scope
	// is exactly the group keys plus the aggregate results.
	return projectWithAggregation(rows, items, params)
}

// narrowRows drops every binding except the clause's declared item
// names, implementing WITH/RETURN's scope-narrowing effect once
// WHERE/ORDER BY/LIMIT (which need the wider scope) have already run.
func narrowRows(rows []gvalue.Row, items []*ProjectionItem) []gvalue.Row {
	out := make([]gvalue.Row, len(rows))
	for i, row := range rows {
		narrow := gvalue.Row{}
		for _, item := range items {
			name := itemName(item)
			narrow[name] = row[name]
		}
		out[i] = narrow
	}
	return out
}

func hasAggregate(items []*ProjectionItem) bool {
	for _, it := range items {
		if isAggItem(it) {
			return true
		}
	}
	return false
}

type rowGroup struct {
	keyValues map[string]gvalue.Value
	rows      []gvalue.Row
}

func projectWithAggregation(rows []gvalue.Row, items []*ProjectionItem, params map[string]gvalue.Value) ([]gvalue.Row, error) {
	groupOrder := []string{}
	groups := map[string]*rowGroup{}

	for _, row := range rows {
		ctx := &EvalContext{Row: row, Params: params}
		var keyParts []string
		keyVals := map[string]gvalue.Value{}
		for _, item := range items {
			if isAggItem(item) {
				continue
			}
			v, err := Eval(item.Expr, ctx)
			if err != nil {
				return nil, err
			}
			name := itemName(item)
			keyVals[name] = v
			keyParts = append(keyParts, name+"\x00"+v.String())
		}
		gk := strings.Join(keyParts, "\x01")
		g, ok := groups[gk]
		if !ok {
			g = &rowGroup{keyValues: keyVals}
			groups[gk] = g
			groupOrder = append(groupOrder, gk)
		}
		g.rows = append(g.rows, row)
	}

	if len(rows) == 0 && allAggregate(items) {
		groupOrder = []string{""}
		groups[""] = &rowGroup{keyValues: map[string]gvalue.Value{}}
	}

	out := make([]gvalue.Row, 0, len(groupOrder))
	for _, gk := range groupOrder {
		g := groups[gk]
		newRow := gvalue.Row{}
		for _, item := range items {
			name := itemName(item)
			if isAggItem(item) {
				v, err := evalAggregate(item.Expr, g.rows, params)
				if err != nil {
					return nil, err
				}
				newRow[name] = v
			} else {
				newRow[name] = g.keyValues[name]
			}
		}
		out = append(out, newRow)
	}
	return out, nil
}

// evalAggregate implements count/sum/avg/min/max over a collapsed row
// group (spec §4.3.5, §4.3.6). count() with no argument counts rows;
// count(expr) counts non-null evaluations.
func evalAggregate(expr *Expr, rows []gvalue.Row, params map[string]gvalue.Value) (gvalue.Value, error) {
	name := expr.Name
	if name == "count" && len(expr.Args) == 0 {
		return gvalue.Int(int64(len(rows))), nil
	}
	if len(expr.Args) != 1 {
		return gvalue.Null, &UnsupportedOperationError{Op: name, Reason: "expects exactly one argument"}
	}
	arg := expr.Args[0]

	var nums []float64
	allInt := true
	nonNull := 0
	for _, row := range rows {
		v, err := Eval(arg, &EvalContext{Row: row, Params: params})
		if err != nil {
			return gvalue.Null, err
		}
		if v.IsNull() {
			continue
		}
		nonNull++
		if name == "count" {
			continue
		}
		if !isNumeric(v) {
			return gvalue.Null, &TypeMismatchError{Expected: "numeric", Actual: v.Kind.String(), Context: name + "()"}
		}
		if v.Kind == gvalue.KindFloat {
			allInt = false
		}
		nums = append(nums, asFloat(v))
	}

	switch name {
	case "count":
		return gvalue.Int(int64(nonNull)), nil
	case "sum":
		if len(nums) == 0 {
			if allInt {
				return gvalue.Int(0), nil
			}
			return gvalue.Float(0), nil
		}
		s := 0.0
		for _, n := range nums {
			s += n
		}
		if allInt {
			return gvalue.Int(int64(s)), nil
		}
		return gvalue.Float(s), nil
	case "avg":
		if len(nums) == 0 {
			return gvalue.Null, nil
		}
		s := 0.0
		for _, n := range nums {
			s += n
		}
		return gvalue.Float(s / float64(len(nums))), nil
	case "min", "max":
		if len(nums) == 0 {
			return gvalue.Null, nil
		}
		m := nums[0]
		for _, n := range nums {
			if (name == "min" && n < m) || (name == "max" && n > m) {
				m = n
			}
		}
		if allInt {
			return gvalue.Int(int64(m)), nil
		}
		return gvalue.Float(m), nil
	}
	return gvalue.Null, &UnsupportedOperationError{Op: name, Reason: "unknown aggregate function"}
}

// orderRows applies ORDER BY with ASC/DESC. rawCompare ranks null above
// every non-null value, so nulls sort last under ASC and first under
// DESC.
func orderRows(rows []gvalue.Row, orderBy []*OrderItem, params map[string]gvalue.Value) ([]gvalue.Row, error) {
	if len(orderBy) == 0 {
		return rows, nil
	}
	var evalErr error
	sort.SliceStable(rows, func(i, j int) bool {
		for _, ob := range orderBy {
			vi, err := Eval(ob.Expr, &EvalContext{Row: rows[i], Params: params})
			if err != nil {
				evalErr = err
				return false
			}
			vj, err := Eval(ob.Expr, &EvalContext{Row: rows[j], Params: params})
			if err != nil {
				evalErr = err
				return false
			}
			c := rawCompare(vi, vj)
			if c == 0 {
				continue
			}
			if ob.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return rows, evalErr
}

// rawCompare orders two Values for ORDER BY: numeric/string comparison
// where types align, null sorting after every non-null value, and
// otherwise a stable fallback on the rendered string form.
func rawCompare(a, b gvalue.Value) int {
	if a.IsNull() && b.IsNull() {
		return 0
	}
	if a.IsNull() {
		return 1
	}
	if b.IsNull() {
		return -1
	}
	switch {
	case isNumeric(a) && isNumeric(b):
		af, bf := asFloat(a), asFloat(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	case a.Kind == gvalue.KindString && b.Kind == gvalue.KindString:
		return strings.Compare(a.Str, b.Str)
	default:
		return strings.Compare(a.String(), b.String())
	}
}

// limitRows truncates rows to n, or returns them unchanged if limit is
// nil.
func limitRows(rows []gvalue.Row, limit *int64) []gvalue.Row {
	if limit == nil {
		return rows
	}
	n := *limit
	if n < 0 {
		n = 0
	}
	if int64(len(rows)) <= n {
		return rows
	}
	return rows[:n]
}

// filterRows keeps rows for which expr evaluates truthy (spec §4.3.1's
// WHERE, and WITH's second WHERE).
func filterRows(rows []gvalue.Row, expr *Expr, params map[string]gvalue.Value) ([]gvalue.Row, error) {
	if expr == nil {
		return rows, nil
	}
	out := make([]gvalue.Row, 0, len(rows))
	for _, row := range rows {
		v, err := Eval(expr, &EvalContext{Row: row, Params: params})
		if err != nil {
			return nil, err
		}
		if v.Truthy() {
			out = append(out, row)
		}
	}
	return out, nil
}
