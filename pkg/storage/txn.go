package storage

import (
	"github.com/dgraph-io/badger/v4"

	"github.com/dong-qiu/graphdb/pkg/graphid"
	"github.com/dong-qiu/graphdb/pkg/gvalue"
)

type opKind int

const (
	opPut opKind = iota
	opDelete
)

type kvOp struct {
	kind  opKind
	key   []byte
	value []byte
}

// Txn is a single-writer, buffered transaction (spec §4.1). Every put
// and delete is appended to an in-memory operation list plus a local
// counter cache; Commit folds the list into one atomic badger
// transaction, including the final counter values. A Txn is single-use:
// once committed or rolled back, every further call fails with
// ErrTransactionClosed.
type Txn struct {
	store *Store
	ops   []kvOp

	// counterCache holds, per label name, the next local id to hand out.
	// Seeded lazily from the store on first use within this Txn.
	counterCache map[string]uint64
	seeded       map[string]bool

	closed bool
}

// Begin starts a new buffered transaction.
func (s *Store) Begin() *Txn {
	return &Txn{
		store:        s,
		counterCache: make(map[string]uint64),
		seeded:       make(map[string]bool),
	}
}

func (t *Txn) checkOpen() error {
	if t.closed {
		return ErrTransactionClosed
	}
	return nil
}

// nextLocalID allocates the next local id for label, seeding the
// in-memory cache from the persisted counter on first use within this
// transaction.
func (t *Txn) nextLocalID(labelName string) (uint64, error) {
	if !t.seeded[labelName] {
		var current uint64
		err := t.store.db.View(func(txn *badger.Txn) error {
			v, err := t.store.readCounter(txn, labelName)
			current = v
			return err
		})
		if err != nil {
			return 0, &KvError{Op: "nextLocalID", Err: err}
		}
		t.counterCache[labelName] = current
		t.seeded[labelName] = true
	}
	next := t.counterCache[labelName]
	if next > graphid.MaxLocal {
		return 0, ErrCounterOverflow
	}
	t.counterCache[labelName] = next + 1
	return next, nil
}

// GetVertex reads through to committed store state; this transaction
// model gives readers no visibility into its own buffered writes (spec
// §4.1: "reads during the transaction see committed state").
func (t *Txn) GetVertex(id graphid.ID) (*gvalue.Vertex, error) {
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	return t.store.GetVertex(id)
}

// GetEdge reads through to committed store state.
func (t *Txn) GetEdge(id graphid.ID) (*gvalue.Edge, error) {
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	return t.store.GetEdge(id)
}

// CreateVertex allocates a fresh Graphid under label and buffers the
// record put.
func (t *Txn) CreateVertex(label string, props map[string]any) (*gvalue.Vertex, error) {
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	labid, err := t.store.getOrCreateLabelID(label)
	if err != nil {
		return nil, err
	}
	locid, err := t.nextLocalID(label)
	if err != nil {
		return nil, err
	}
	id, err := graphid.New(labid, locid)
	if err != nil {
		return nil, err
	}
	v := &gvalue.Vertex{ID: id, Label: label, Properties: props}
	enc, err := encodeVertex(v)
	if err != nil {
		return nil, err
	}
	t.ops = append(t.ops, kvOp{kind: opPut, key: vertexKey(t.store.graph, labid, locid), value: enc})
	return v, nil
}

// CreateEdge allocates a fresh Graphid under label, buffers the edge
// record put, and buffers both adjacency-index puts in the same
// operation list so they land in the same commit batch.
func (t *Txn) CreateEdge(label string, start, end graphid.ID, props map[string]any) (*gvalue.Edge, error) {
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	labid, err := t.store.getOrCreateLabelID(label)
	if err != nil {
		return nil, err
	}
	locid, err := t.nextLocalID(label)
	if err != nil {
		return nil, err
	}
	id, err := graphid.New(labid, locid)
	if err != nil {
		return nil, err
	}
	e := &gvalue.Edge{ID: id, Start: start, End: end, Label: label, Properties: props}
	enc, err := encodeEdge(e)
	if err != nil {
		return nil, err
	}
	t.ops = append(t.ops,
		kvOp{kind: opPut, key: edgeKey(t.store.graph, labid, locid), value: enc},
		kvOp{kind: opPut, key: outAdjacencyKey(t.store.graph, start.Raw(), id.Raw()), value: []byte{}},
		kvOp{kind: opPut, key: inAdjacencyKey(t.store.graph, end.Raw(), id.Raw()), value: []byte{}},
	)
	return e, nil
}

// UpdateVertexProperties replaces the stored properties document for
// id. Callers (the executor's SET stage) are responsible for reading
// the current document once and merging in memory before calling this —
// the storage engine does not itself merge, matching spec §4.3.4's
// per-entity batching requirement.
func (t *Txn) UpdateVertexProperties(id graphid.ID, props map[string]any) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	v, err := t.store.GetVertex(id)
	if err != nil {
		return err
	}
	v.Properties = props
	enc, err := encodeVertex(v)
	if err != nil {
		return err
	}
	t.ops = append(t.ops, kvOp{kind: opPut, key: vertexKey(t.store.graph, id.Label(), id.Local()), value: enc})
	return nil
}

// UpdateEdgeProperties replaces the stored properties document for id.
func (t *Txn) UpdateEdgeProperties(id graphid.ID, props map[string]any) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	e, err := t.store.GetEdge(id)
	if err != nil {
		return err
	}
	e.Properties = props
	enc, err := encodeEdge(e)
	if err != nil {
		return err
	}
	t.ops = append(t.ops, kvOp{kind: opPut, key: edgeKey(t.store.graph, id.Label(), id.Local()), value: enc})
	return nil
}

// DeleteVertex removes the vertex record, failing with ErrVertexHasEdges
// if any adjacency entry exists for it.
func (t *Txn) DeleteVertex(id graphid.ID) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	v, err := t.store.GetVertex(id)
	if err != nil {
		return err
	}
	out, err := t.store.GetOutgoingEdges(id)
	if err != nil {
		return err
	}
	in, err := t.store.GetIncomingEdges(id)
	if err != nil {
		return err
	}
	if len(out) > 0 || len(in) > 0 {
		return ErrVertexHasEdges
	}
	t.ops = append(t.ops, kvOp{kind: opDelete, key: vertexKey(t.store.graph, v.ID.Label(), v.ID.Local())})
	return nil
}

// DeleteVertexDetach enumerates all incident edges and deletes them
// before deleting the vertex itself, all within this transaction's
// batch (spec §4.3.3 detach delete).
func (t *Txn) DeleteVertexDetach(id graphid.ID) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	v, err := t.store.GetVertex(id)
	if err != nil {
		return err
	}
	out, err := t.store.GetOutgoingEdges(id)
	if err != nil {
		return err
	}
	in, err := t.store.GetIncomingEdges(id)
	if err != nil {
		return err
	}
	seen := make(map[graphid.ID]bool)
	for _, e := range out {
		if !seen[e.ID] {
			seen[e.ID] = true
			if err := t.deleteEdgeOp(e); err != nil {
				return err
			}
		}
	}
	for _, e := range in {
		if !seen[e.ID] {
			seen[e.ID] = true
			if err := t.deleteEdgeOp(e); err != nil {
				return err
			}
		}
	}
	t.ops = append(t.ops, kvOp{kind: opDelete, key: vertexKey(t.store.graph, v.ID.Label(), v.ID.Local())})
	return nil
}

// DeleteEdge removes the edge record and both adjacency-index entries
// in the same batch (spec §3.3 invariant).
func (t *Txn) DeleteEdge(id graphid.ID) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	e, err := t.store.GetEdge(id)
	if err != nil {
		return err
	}
	return t.deleteEdgeOp(e)
}

func (t *Txn) deleteEdgeOp(e *gvalue.Edge) error {
	t.ops = append(t.ops,
		kvOp{kind: opDelete, key: edgeKey(t.store.graph, e.ID.Label(), e.ID.Local())},
		kvOp{kind: opDelete, key: outAdjacencyKey(t.store.graph, e.Start.Raw(), e.ID.Raw())},
		kvOp{kind: opDelete, key: inAdjacencyKey(t.store.graph, e.End.Raw(), e.ID.Raw())},
	)
	return nil
}

// Commit folds the buffered operation list into one atomic badger
// transaction, including the final value of every label's local-id
// counter touched in this Txn.
func (t *Txn) Commit() error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	t.closed = true

	err := t.store.db.Update(func(txn *badger.Txn) error {
		for label, next := range t.counterCache {
			if !t.seeded[label] {
				continue
			}
			if err := txn.Set(counterKey(t.store.graph, label), encodeUint64LE(next)); err != nil {
				return err
			}
		}
		for _, op := range t.ops {
			switch op.kind {
			case opPut:
				if err := txn.Set(op.key, op.value); err != nil {
					return err
				}
			case opDelete:
				if err := txn.Delete(op.key); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return &KvError{Op: "Commit", Err: err}
	}
	t.store.log.Printf("committed %d operations", len(t.ops))
	return nil
}

// Rollback discards the buffer. The Txn remains usable for neither
// reads nor writes afterward.
func (t *Txn) Rollback() error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	t.closed = true
	t.ops = nil
	return nil
}
