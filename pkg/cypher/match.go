package cypher

import (
	"fmt"

	"github.com/dong-qiu/graphdb/pkg/graphid"
	"github.com/dong-qiu/graphdb/pkg/gvalue"
)

// matchStage implements spec §4.3.1: each comma-separated pattern is
// matched independently and the results are joined row-by-row, with
// rows rejected when a variable shared between two patterns is bound
// to different entities (an implicit equi-join on repeated variable
// names).
func (ex *Executor) matchStage(patterns []*PatternPath) ([]gvalue.Row, error) {
	rows := []gvalue.Row{{}}
	for _, pat := range patterns {
		patRows, err := ex.matchPattern(pat)
		if err != nil {
			return nil, err
		}
		rows = joinRows(rows, patRows)
	}
	return rows, nil
}

func joinRows(left, right []gvalue.Row) []gvalue.Row {
	out := make([]gvalue.Row, 0, len(left)*len(right))
	for _, l := range left {
		for _, r := range right {
			if merged, ok := mergeCompatible(l, r); ok {
				out = append(out, merged)
			}
		}
	}
	return out
}

func mergeCompatible(a, b gvalue.Row) (gvalue.Row, bool) {
	merged := a.Clone()
	for k, v := range b {
		if existing, ok := merged[k]; ok {
			if !sameEntity(existing, v) {
				return nil, false
			}
			continue
		}
		merged[k] = v
	}
	return merged, true
}

func sameEntity(a, b gvalue.Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case gvalue.KindVertex:
		return a.Vertex.ID == b.Vertex.ID
	case gvalue.KindEdge:
		return a.Edge.ID == b.Edge.ID
	default:
		return a.String() == b.String()
	}
}

// nodeKey and edgeKey name the internal, always-present bindings each
// pattern position uses while the chain is being built, so that an
// unnamed node or edge still has a reachable handle for the next hop.
// They are stripped before the rows are returned to the caller.
func nodeKey(i int) string { return fmt.Sprintf("\x00n%d", i) }
func edgeKey(i int) string { return fmt.Sprintf("\x00e%d", i) }

func (ex *Executor) matchPattern(pat *PatternPath) ([]gvalue.Row, error) {
	rows, err := ex.matchNode(pat.Nodes[0], nodeKey(0))
	if err != nil {
		return nil, err
	}
	if pat.Nodes[0].Var != "" {
		for _, row := range rows {
			row[pat.Nodes[0].Var] = row[nodeKey(0)]
		}
	}
	for i, edge := range pat.Edges {
		rows, err = ex.matchStep(rows, nodeKey(i), edge, edgeKey(i), pat.Nodes[i+1], nodeKey(i+1))
		if err != nil {
			return nil, err
		}
	}
	return stripInternalKeys(rows), nil
}

func stripInternalKeys(rows []gvalue.Row) []gvalue.Row {
	for _, row := range rows {
		for k := range row {
			if len(k) > 0 && k[0] == '\x00' {
				delete(row, k)
			}
		}
	}
	return rows
}

// matchNode binds synthKey (always) and np.Var (if named) to every
// vertex matching np's label and property filter.
func (ex *Executor) matchNode(np *NodePattern, synthKey string) ([]gvalue.Row, error) {
	verts, err := ex.scanNodeCandidates(np.Label)
	if err != nil {
		return nil, err
	}
	var out []gvalue.Row
	for _, v := range verts {
		ok, err := ex.propsMatch(v.Properties, np.Props)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		row := gvalue.Row{synthKey: gvalue.FromVertex(v)}
		if np.Var != "" {
			row[np.Var] = gvalue.FromVertex(v)
		}
		out = append(out, row)
	}
	return out, nil
}

func (ex *Executor) scanNodeCandidates(label string) ([]*gvalue.Vertex, error) {
	if label != "" {
		return ex.store.ScanVertices(label)
	}
	labels, err := ex.store.ListLabels()
	if err != nil {
		return nil, err
	}
	var out []*gvalue.Vertex
	for _, l := range labels {
		verts, err := ex.store.ScanVertices(l)
		if err != nil {
			return nil, err
		}
		out = append(out, verts...)
	}
	return out, nil
}

// matchStep extends every row in rows by one hop: for each candidate
// edge incident to the already-bound start vertex (filtered by the
// edge pattern's label/direction/properties and the end node pattern's
// label/properties), it emits a new row with the edge and end vertex
// bound.
func (ex *Executor) matchStep(rows []gvalue.Row, startKey string, edge *EdgePattern, synthEdgeKey string, endNode *NodePattern, endKey string) ([]gvalue.Row, error) {
	var out []gvalue.Row
	for _, row := range rows {
		startVal := row[startKey]
		if startVal.Kind != gvalue.KindVertex {
			return nil, &InvalidExpressionError{Reason: "pattern step without a bound start vertex"}
		}
		sv := startVal.Vertex

		candidates, err := ex.candidateEdges(sv.ID, edge.Direction)
		if err != nil {
			return nil, err
		}
		for _, c := range candidates {
			if edge.Label != "" && c.edge.Label != edge.Label {
				continue
			}
			ok, err := ex.propsMatch(c.edge.Properties, edge.Props)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			other, err := ex.store.GetVertex(c.other)
			if err != nil {
				continue
			}
			if endNode.Label != "" && other.Label != endNode.Label {
				continue
			}
			ok, err = ex.propsMatch(other.Properties, endNode.Props)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			newRow := row.Clone()
			newRow[synthEdgeKey] = gvalue.FromEdge(c.edge)
			if edge.Var != "" {
				newRow[edge.Var] = gvalue.FromEdge(c.edge)
			}
			newRow[endKey] = gvalue.FromVertex(other)
			if endNode.Var != "" {
				newRow[endNode.Var] = gvalue.FromVertex(other)
			}
			out = append(out, newRow)
		}
	}
	return out, nil
}

type edgeCandidate struct {
	edge  *gvalue.Edge
	other graphid.ID
}

func (ex *Executor) candidateEdges(from graphid.ID, dir Direction) ([]edgeCandidate, error) {
	switch dir {
	case DirRight:
		edges, err := ex.store.GetOutgoingEdges(from)
		if err != nil {
			return nil, err
		}
		return withOther(edges, func(e *gvalue.Edge) graphid.ID { return e.End }), nil
	case DirLeft:
		edges, err := ex.store.GetIncomingEdges(from)
		if err != nil {
			return nil, err
		}
		return withOther(edges, func(e *gvalue.Edge) graphid.ID { return e.Start }), nil
	default: // DirEither
		out, err := ex.store.GetOutgoingEdges(from)
		if err != nil {
			return nil, err
		}
		in, err := ex.store.GetIncomingEdges(from)
		if err != nil {
			return nil, err
		}
		cands := withOther(out, func(e *gvalue.Edge) graphid.ID { return e.End })
		cands = append(cands, withOther(in, func(e *gvalue.Edge) graphid.ID { return e.Start })...)
		return cands, nil
	}
}

func withOther(edges []*gvalue.Edge, other func(*gvalue.Edge) graphid.ID) []edgeCandidate {
	out := make([]edgeCandidate, len(edges))
	for i, e := range edges {
		out[i] = edgeCandidate{edge: e, other: other(e)}
	}
	return out
}

// propsMatch evaluates a node/edge pattern's literal property filter
// against a stored properties document; pattern property expressions
// are evaluated with no row bindings, since at match time the target
// row's own variables are exactly what is still being resolved.
func (ex *Executor) propsMatch(props map[string]any, want map[string]*Expr) (bool, error) {
	if len(want) == 0 {
		return true, nil
	}
	ctx := &EvalContext{Row: gvalue.Row{}, Params: ex.params}
	for k, expr := range want {
		wantVal, err := Eval(expr, ctx)
		if err != nil {
			return false, err
		}
		gotVal := descendJSON(props, []string{k})
		eq, err := evalCompare("=", gotVal, wantVal)
		if err != nil {
			return false, err
		}
		if !eq.Truthy() {
			return false, nil
		}
	}
	return true, nil
}
