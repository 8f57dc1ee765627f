package cypher

import (
	"github.com/dong-qiu/graphdb/pkg/graphid"
	"github.com/dong-qiu/graphdb/pkg/gvalue"
	"github.com/dong-qiu/graphdb/pkg/storage"
)

// deleteStage implements spec §4.3.3. Each target expression is
// evaluated per row and must resolve to a vertex or edge; the same
// entity named by more than one row (a common case when a pattern
// fans multiple rows out to the same node) is deleted only once.
func (ex *Executor) deleteStage(txn *storage.Txn, rows []gvalue.Row, clause *DeleteClause) error {
	seenV := map[graphid.ID]bool{}
	seenE := map[graphid.ID]bool{}
	for _, row := range rows {
		ctx := &EvalContext{Row: row, Params: ex.params}
		for _, expr := range clause.Targets {
			v, err := Eval(expr, ctx)
			if err != nil {
				return err
			}
			switch v.Kind {
			case gvalue.KindVertex:
				id := v.Vertex.ID
				if seenV[id] {
					continue
				}
				seenV[id] = true
				if clause.Detach {
					if err := txn.DeleteVertexDetach(id); err != nil {
						return err
					}
				} else if err := txn.DeleteVertex(id); err != nil {
					return err
				}
			case gvalue.KindEdge:
				id := v.Edge.ID
				if seenE[id] {
					continue
				}
				seenE[id] = true
				if err := txn.DeleteEdge(id); err != nil {
					return err
				}
			default:
				return &TypeMismatchError{Expected: "vertex or edge", Actual: v.Kind.String(), Context: "DELETE"}
			}
		}
	}
	return nil
}

// setStage implements spec §4.3.4's critical per-entity batching rule:
// every SET item targeting the same variable within a row is grouped,
// the entity's current properties are read once, every item's value is
// merged into that one document in memory, and the document is written
// back with a single UpdateVertexProperties/UpdateEdgeProperties call.
// Writing each item separately would let a later item's write silently
// discard an earlier one, since the storage layer replaces wholesale
// rather than merging.
func (ex *Executor) setStage(txn *storage.Txn, rows []gvalue.Row, items []*SetItem) error {
	for _, row := range rows {
		order := []string{}
		byVar := map[string][]*SetItem{}
		for _, item := range items {
			if _, ok := byVar[item.Var]; !ok {
				order = append(order, item.Var)
			}
			byVar[item.Var] = append(byVar[item.Var], item)
		}
		for _, varName := range order {
			if err := ex.applySetGroup(txn, row, varName, byVar[varName]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (ex *Executor) applySetGroup(txn *storage.Txn, row gvalue.Row, varName string, group []*SetItem) error {
	target, ok := row[varName]
	if !ok {
		return &VariableNotFoundError{Name: varName}
	}
	ctx := &EvalContext{Row: row, Params: ex.params}

	switch target.Kind {
	case gvalue.KindVertex:
		props := cloneDoc(target.Vertex.Properties)
		for _, item := range group {
			if err := applySetItem(props, item, ctx); err != nil {
				return err
			}
		}
		if err := txn.UpdateVertexProperties(target.Vertex.ID, props); err != nil {
			return err
		}
		target.Vertex.Properties = props
	case gvalue.KindEdge:
		props := cloneDoc(target.Edge.Properties)
		for _, item := range group {
			if err := applySetItem(props, item, ctx); err != nil {
				return err
			}
		}
		if err := txn.UpdateEdgeProperties(target.Edge.ID, props); err != nil {
			return err
		}
		target.Edge.Properties = props
	default:
		return &TypeMismatchError{Expected: "vertex or edge", Actual: target.Kind.String(), Context: "SET " + varName}
	}
	return nil
}

func applySetItem(props map[string]any, item *SetItem, ctx *EvalContext) error {
	v, err := Eval(item.Value, ctx)
	if err != nil {
		return err
	}
	j, err := toJSON(v)
	if err != nil {
		return err
	}
	if len(item.Path) == 0 {
		return &InvalidExpressionError{Reason: "SET item has an empty property path"}
	}
	setNestedPath(props, item.Path, j)
	return nil
}

func setNestedPath(doc map[string]any, path []string, value any) {
	if len(path) == 1 {
		doc[path[0]] = value
		return
	}
	sub, ok := doc[path[0]].(map[string]any)
	if !ok {
		sub = map[string]any{}
		doc[path[0]] = sub
	}
	setNestedPath(sub, path[1:], value)
}

func cloneDoc(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
