package cypher

import (
	"github.com/dong-qiu/graphdb/pkg/gvalue"
	"github.com/dong-qiu/graphdb/pkg/storage"
)

// Executor drives a parsed Statement's clauses over a storage.Store,
// producing the row stream spec §4.3 describes clause by clause.
type Executor struct {
	store  *storage.Store
	params map[string]gvalue.Value
}

// NewExecutor binds an Executor to a store. Each Execute call replaces
// the executor's parameter bindings, so parameters from one query are
// never visible to the next.
func NewExecutor(store *storage.Store) *Executor {
	return &Executor{store: store}
}

// Execute runs stmt to completion: MATCH+WHERE, then WITH, then the
// write clauses (CREATE/DELETE/SET, all inside one transaction so a
// failure aborts every mutation the statement attempted), then RETURN.
// Returns the final row stream; without a RETURN that is the rows left
// after the last stage that ran (for a CREATE, the rows binding the
// created entities).
func (ex *Executor) Execute(stmt *Statement, params map[string]gvalue.Value) ([]gvalue.Row, error) {
	if params == nil {
		params = map[string]gvalue.Value{}
	}
	ex.params = params

	rows, err := ex.readStage(stmt)
	if err != nil {
		return nil, err
	}

	if stmt.With != nil {
		rows, err = ex.applyWith(rows, stmt.With)
		if err != nil {
			return nil, err
		}
	}

	if len(stmt.Create) > 0 || stmt.Delete != nil || len(stmt.Set) > 0 {
		rows, err = ex.writeStage(stmt, rows)
		if err != nil {
			return nil, err
		}
	}

	if stmt.Return != nil {
		return ex.applyReturn(rows, stmt.Return)
	}
	return rows, nil
}

func (ex *Executor) readStage(stmt *Statement) ([]gvalue.Row, error) {
	if len(stmt.Match) == 0 {
		// A MATCH-less statement (a bare CREATE, typically) still runs
		// every later stage once, against a single empty binding.
		return []gvalue.Row{{}}, nil
	}
	rows, err := ex.matchStage(stmt.Match)
	if err != nil {
		return nil, err
	}
	return filterRows(rows, stmt.Where, ex.params)
}

// writeStage runs CREATE, DELETE, and SET (whichever are present, in
// that order) inside a single buffered transaction, committing only if
// every stage succeeds — matching spec §4.1's all-or-nothing commit
// and the documented "a failed query leaves no partial mutation
// visible" guarantee.
func (ex *Executor) writeStage(stmt *Statement, rows []gvalue.Row) ([]gvalue.Row, error) {
	txn := ex.store.Begin()
	committed := false
	defer func() {
		if !committed {
			_ = txn.Rollback()
		}
	}()

	var err error
	if len(stmt.Create) > 0 {
		rows, err = ex.createStage(txn, rows, stmt.Create)
		if err != nil {
			return nil, err
		}
	}
	if stmt.Delete != nil {
		if err := ex.deleteStage(txn, rows, stmt.Delete); err != nil {
			return nil, err
		}
	}
	if len(stmt.Set) > 0 {
		if err := ex.setStage(txn, rows, stmt.Set); err != nil {
			return nil, err
		}
	}

	if err := txn.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return rows, nil
}

// applyWith implements spec §4.3.5: project (with aggregation when any
// item is an aggregate function), filter, order, then limit.
func (ex *Executor) applyWith(rows []gvalue.Row, clause *WithClause) ([]gvalue.Row, error) {
	rows, err := projectExtended(rows, clause.Items, ex.params)
	if err != nil {
		return nil, err
	}
	rows, err = filterRows(rows, clause.Where, ex.params)
	if err != nil {
		return nil, err
	}
	rows, err = orderRows(rows, clause.OrderBy, ex.params)
	if err != nil {
		return nil, err
	}
	rows = limitRows(rows, clause.Limit)
	return narrowRows(rows, clause.Items), nil
}

// applyReturn implements spec §4.3.6: project (keeping pre-projection
// scope available to ORDER BY), order, limit, then narrow to the
// declared RETURN items.
func (ex *Executor) applyReturn(rows []gvalue.Row, clause *ReturnClause) ([]gvalue.Row, error) {
	rows, err := projectExtended(rows, clause.Items, ex.params)
	if err != nil {
		return nil, err
	}
	rows, err = orderRows(rows, clause.OrderBy, ex.params)
	if err != nil {
		return nil, err
	}
	rows = limitRows(rows, clause.Limit)
	return narrowRows(rows, clause.Items), nil
}
