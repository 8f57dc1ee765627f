package storage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dong-qiu/graphdb/pkg/graphid"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory("test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCommitRollbackIsolation(t *testing.T) {
	s := newTestStore(t)

	txn := s.Begin()
	_, err := txn.CreateVertex("Person", map[string]any{"name": "Alice"})
	require.NoError(t, err)
	require.NoError(t, txn.Rollback())

	vs, err := s.ScanVertices("Person")
	require.NoError(t, err)
	require.Empty(t, vs)

	txn2 := s.Begin()
	_, err = txn2.CreateVertex("Person", map[string]any{"name": "Alice"})
	require.NoError(t, err)
	require.NoError(t, txn2.Commit())

	vs, err = s.ScanVertices("Person")
	require.NoError(t, err)
	require.Len(t, vs, 1)
	require.Equal(t, "Alice", vs[0].Properties["name"])
}

func TestCascadeViaDetachDelete(t *testing.T) {
	s := newTestStore(t)

	txn := s.Begin()
	a, err := txn.CreateVertex("P", nil)
	require.NoError(t, err)
	b, err := txn.CreateVertex("P", nil)
	require.NoError(t, err)
	_, err = txn.CreateEdge("K", a.ID, b.ID, nil)
	require.NoError(t, err)
	require.NoError(t, txn.Commit())

	txn2 := s.Begin()
	err = txn2.DeleteVertex(a.ID)
	require.ErrorIs(t, err, ErrVertexHasEdges)
	require.NoError(t, txn2.Rollback())

	txn3 := s.Begin()
	require.NoError(t, txn3.DeleteVertexDetach(a.ID))
	require.NoError(t, txn3.Commit())

	_, err = s.GetVertex(a.ID)
	require.Error(t, err)

	bStill, err := s.GetVertex(b.ID)
	require.NoError(t, err)
	require.NotNil(t, bStill)

	out, err := s.GetOutgoingEdges(b.ID)
	require.NoError(t, err)
	require.Empty(t, out)
	in, err := s.GetIncomingEdges(b.ID)
	require.NoError(t, err)
	require.Empty(t, in)
}

func TestAdjacencyInvariant(t *testing.T) {
	s := newTestStore(t)
	txn := s.Begin()
	a, err := txn.CreateVertex("P", nil)
	require.NoError(t, err)
	b, err := txn.CreateVertex("P", nil)
	require.NoError(t, err)
	e, err := txn.CreateEdge("K", a.ID, b.ID, nil)
	require.NoError(t, err)
	require.NoError(t, txn.Commit())

	out, err := s.GetOutgoingEdges(a.ID)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, e.ID, out[0].ID)

	in, err := s.GetIncomingEdges(b.ID)
	require.NoError(t, err)
	require.Len(t, in, 1)
	require.Equal(t, e.ID, in[0].ID)
}

func TestScanUnknownLabelIsEmptyNotError(t *testing.T) {
	s := newTestStore(t)
	vs, err := s.ScanVertices("NeverCreated")
	require.NoError(t, err)
	require.Empty(t, vs)
}

func TestTransactionSingleUse(t *testing.T) {
	s := newTestStore(t)
	txn := s.Begin()
	_, err := txn.CreateVertex("P", nil)
	require.NoError(t, err)
	require.NoError(t, txn.Commit())

	_, err = txn.CreateVertex("P", nil)
	require.ErrorIs(t, err, ErrTransactionClosed)
}

func TestMultiSetPerRowBatchedUpdate(t *testing.T) {
	s := newTestStore(t)
	txn := s.Begin()
	c, err := txn.CreateVertex("Counter", map[string]any{"value": int64(10)})
	require.NoError(t, err)
	require.NoError(t, txn.Commit())

	// Simulate the executor's per-entity batching: read once, apply all
	// modifications in memory, write once.
	txn2 := s.Begin()
	cur, err := txn2.GetVertex(c.ID)
	require.NoError(t, err)
	merged := map[string]any{}
	for k, v := range cur.Properties {
		merged[k] = v
	}
	merged["value"] = int64(15)
	merged["other"] = "x"
	require.NoError(t, txn2.UpdateVertexProperties(c.ID, merged))
	require.NoError(t, txn2.Commit())

	final, err := s.GetVertex(c.ID)
	require.NoError(t, err)
	require.EqualValues(t, 15, final.Properties["value"])
	require.Equal(t, "x", final.Properties["other"])
}

func TestGraphidBoundaryCounterOverflow(t *testing.T) {
	s := newTestStore(t)
	txn := s.Begin()
	txn.counterCache["Big"] = graphid.MaxLocal
	txn.seeded["Big"] = true
	_, err := txn.CreateVertex("Big", nil)
	require.NoError(t, err)
	_, err = txn.CreateVertex("Big", nil)
	require.ErrorIs(t, err, ErrCounterOverflow)
}
