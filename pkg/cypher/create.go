package cypher

import (
	"github.com/dong-qiu/graphdb/pkg/graphid"
	"github.com/dong-qiu/graphdb/pkg/gvalue"
	"github.com/dong-qiu/graphdb/pkg/storage"
)

// createStage implements spec §4.3.2: for each row, every node pattern
// that names a variable already bound in that row (by a preceding
// MATCH, or by an earlier pattern in the same CREATE clause) is reused
// rather than recreated; every other node, and every edge, is created
// fresh.
func (ex *Executor) createStage(txn *storage.Txn, rows []gvalue.Row, patterns []*PatternPath) ([]gvalue.Row, error) {
	out := make([]gvalue.Row, len(rows))
	for i, row := range rows {
		newRow := row.Clone()
		for _, pat := range patterns {
			if err := ex.createPattern(txn, newRow, pat); err != nil {
				return nil, err
			}
		}
		out[i] = newRow
	}
	return out, nil
}

func (ex *Executor) createPattern(txn *storage.Txn, row gvalue.Row, pat *PatternPath) error {
	vertices := make([]*gvalue.Vertex, len(pat.Nodes))
	for i, np := range pat.Nodes {
		v, err := ex.resolveOrCreateNode(txn, row, np)
		if err != nil {
			return err
		}
		vertices[i] = v
	}
	for i, ep := range pat.Edges {
		if err := ex.createEdge(txn, row, ep, vertices[i], vertices[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func (ex *Executor) resolveOrCreateNode(txn *storage.Txn, row gvalue.Row, np *NodePattern) (*gvalue.Vertex, error) {
	if np.Var != "" {
		if existing, ok := row[np.Var]; ok {
			if existing.Kind != gvalue.KindVertex {
				return nil, &TypeMismatchError{Expected: "vertex", Actual: existing.Kind.String(), Context: "CREATE pattern variable " + np.Var}
			}
			return existing.Vertex, nil
		}
	}
	if np.Label == "" {
		return nil, &InvalidExpressionError{Reason: "CREATE node pattern requires a label"}
	}
	props, err := ex.evalPropsMap(np.Props, row)
	if err != nil {
		return nil, err
	}
	v, err := txn.CreateVertex(np.Label, props)
	if err != nil {
		return nil, err
	}
	if np.Var != "" {
		row[np.Var] = gvalue.FromVertex(v)
	}
	return v, nil
}

func (ex *Executor) createEdge(txn *storage.Txn, row gvalue.Row, ep *EdgePattern, left, right *gvalue.Vertex) error {
	if ep.Label == "" {
		return &InvalidExpressionError{Reason: "CREATE edge pattern requires a label"}
	}
	var src, dst graphid.ID
	switch ep.Direction {
	case DirRight:
		src, dst = left.ID, right.ID
	case DirLeft:
		src, dst = right.ID, left.ID
	default:
		return &UnsupportedOperationError{Op: "CREATE", Reason: "undirected edge pattern has no defined direction to create"}
	}
	props, err := ex.evalPropsMap(ep.Props, row)
	if err != nil {
		return err
	}
	e, err := txn.CreateEdge(ep.Label, src, dst, props)
	if err != nil {
		return err
	}
	if ep.Var != "" {
		row[ep.Var] = gvalue.FromEdge(e)
	}
	return nil
}

// evalPropsMap evaluates a pattern's literal property map into a plain
// JSON-ready document for storage.
func (ex *Executor) evalPropsMap(props map[string]*Expr, row gvalue.Row) (map[string]any, error) {
	if len(props) == 0 {
		return map[string]any{}, nil
	}
	ctx := &EvalContext{Row: row, Params: ex.params}
	out := make(map[string]any, len(props))
	for k, expr := range props {
		v, err := Eval(expr, ctx)
		if err != nil {
			return nil, err
		}
		j, err := toJSON(v)
		if err != nil {
			return nil, err
		}
		out[k] = j
	}
	return out, nil
}
