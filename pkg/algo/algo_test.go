package algo

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dong-qiu/graphdb/pkg/cypher"
	"github.com/dong-qiu/graphdb/pkg/graphid"
	"github.com/dong-qiu/graphdb/pkg/gvalue"
	"github.com/dong-qiu/graphdb/pkg/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.OpenInMemory("algo-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func exec(t *testing.T, s *storage.Store, query string) []gvalue.Row {
	t.Helper()
	stmt, err := cypher.Parse(query)
	require.NoError(t, err)
	rows, err := cypher.NewExecutor(s).Execute(stmt, nil)
	require.NoError(t, err)
	return rows
}

func nodeID(t *testing.T, s *storage.Store, label, name string) graphid.ID {
	t.Helper()
	rows := exec(t, s, `MATCH (n:`+label+` {name: '`+name+`'}) RETURN n AS n`)
	require.Len(t, rows, 1)
	return rows[0]["n"].Vertex.ID
}

// buildGrid builds a 3x3 grid of Cell vertices named by cellName (row
// letter then column digit, a0..c2), with
// RIGHT edges increasing column and DOWN edges increasing row, matching
// the shortest-path scenario of spec §8 (cost 4, 5 vertices from one
// corner to the opposite).
func buildGrid(t *testing.T, s *storage.Store) {
	t.Helper()
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			exec(t, s, `CREATE (n:Cell {name: '`+cellName(r, c)+`'})`)
		}
	}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if c < 2 {
				exec(t, s, `MATCH (a:Cell {name: '`+cellName(r, c)+`'}), (b:Cell {name: '`+cellName(r, c+1)+`'}) CREATE (a)-[:RIGHT]->(b)`)
			}
			if r < 2 {
				exec(t, s, `MATCH (a:Cell {name: '`+cellName(r, c)+`'}), (b:Cell {name: '`+cellName(r+1, c)+`'}) CREATE (a)-[:DOWN]->(b)`)
			}
		}
	}
}

func cellName(r, c int) string {
	return string(rune('a'+r)) + string(rune('0'+c))
}

func TestShortestPathAcrossGrid(t *testing.T) {
	s := newTestStore(t)
	buildGrid(t, s)

	start := nodeID(t, s, "Cell", cellName(0, 0))
	end := nodeID(t, s, "Cell", cellName(2, 2))

	path, cost, err := ShortestPath(s, start, end)
	require.NoError(t, err)
	require.Equal(t, 4, cost)
	require.Len(t, path.Vertices, 5)
	require.Equal(t, start, path.Vertices[0].ID)
	require.Equal(t, end, path.Vertices[len(path.Vertices)-1].ID)
	require.Len(t, path.Edges, 4)
}

func TestShortestPathSameVertexIsZeroLength(t *testing.T) {
	s := newTestStore(t)
	exec(t, s, `CREATE (n:Cell {name: 'solo'})`)
	id := nodeID(t, s, "Cell", "solo")

	path, cost, err := ShortestPath(s, id, id)
	require.NoError(t, err)
	require.Equal(t, 0, cost)
	require.Len(t, path.Vertices, 1)
	require.Empty(t, path.Edges)
}

func TestShortestPathNotFound(t *testing.T) {
	s := newTestStore(t)
	exec(t, s, `CREATE (a:Cell {name: 'a'})`)
	exec(t, s, `CREATE (b:Cell {name: 'b'})`)
	a := nodeID(t, s, "Cell", "a")
	b := nodeID(t, s, "Cell", "b")

	_, _, err := ShortestPath(s, a, b)
	var pnf *PathNotFoundError
	require.ErrorAs(t, err, &pnf)
	require.ErrorIs(t, err, ErrPathNotFound)
}

// buildCycle builds a 3-cycle A->B->C->A, matching spec §8's
// variable-length-expansion scenario.
func buildCycle(t *testing.T, s *storage.Store) (a, b, c graphid.ID) {
	t.Helper()
	exec(t, s, `CREATE (a:Node {name: 'A'})-[:NEXT]->(b:Node {name: 'B'})-[:NEXT]->(c:Node {name: 'C'})`)
	exec(t, s, `MATCH (c:Node {name: 'C'}), (a:Node {name: 'A'}) CREATE (c)-[:NEXT]->(a)`)
	return nodeID(t, s, "Node", "A"), nodeID(t, s, "Node", "B"), nodeID(t, s, "Node", "C")
}

func TestVariableLengthExpandDisallowCyclesStopsAtRepeat(t *testing.T) {
	s := newTestStore(t)
	a, _, _ := buildCycle(t, s)

	// With cycles disallowed, expansion from A around a 3-cycle can only
	// ever extend twice (A->B, A->B->C) before the next hop would revisit
	// A; a max_length generous enough to reach that revisit still yields
	// exactly those two paths.
	paths, err := VariableLengthExpand(s, a, VLEOptions{MinLength: 1, MaxLength: 5, AllowCycles: false})
	require.NoError(t, err)
	require.Len(t, paths, 2)
	require.Equal(t, 1, paths[0].Length())
	require.Equal(t, 2, paths[1].Length())
}

func TestVariableLengthExpandAllowCyclesRespectsMaxPaths(t *testing.T) {
	s := newTestStore(t)
	a, _, _ := buildCycle(t, s)

	// Every vertex in the cycle has exactly one outgoing edge, so allowing
	// cycles produces one path per length indefinitely; max_length=20 with
	// max_paths=10 exercises the cap engaging well before max_length would.
	paths, err := VariableLengthExpand(s, a, VLEOptions{MinLength: 1, MaxLength: 20, AllowCycles: true, MaxPaths: 10})
	require.NoError(t, err)
	require.Len(t, paths, 10)
	for i, p := range paths {
		require.Equal(t, i+1, p.Length())
	}
}

func TestVariableLengthExpandRejectsInvertedBounds(t *testing.T) {
	s := newTestStore(t)
	exec(t, s, `CREATE (n:Node {name: 'solo'})`)
	id := nodeID(t, s, "Node", "solo")

	_, err := VariableLengthExpand(s, id, VLEOptions{MinLength: 5, MaxLength: 1})
	var ip *InvalidParametersError
	require.ErrorAs(t, err, &ip)
	require.ErrorIs(t, err, ErrInvalidParameters)
}

func TestKHopNeighbors(t *testing.T) {
	s := newTestStore(t)
	a, b, c := buildCycle(t, s)

	oneHop, err := KHopNeighbors(s, a, 1)
	require.NoError(t, err)
	require.ElementsMatch(t, []graphid.ID{b}, oneHop)

	twoHop, err := KHopNeighbors(s, a, 2)
	require.NoError(t, err)
	require.ElementsMatch(t, []graphid.ID{c}, twoHop)
}

func TestNeighborsWithinKHops(t *testing.T) {
	s := newTestStore(t)
	a, b, c := buildCycle(t, s)

	within2, err := NeighborsWithinKHops(s, a, 2)
	require.NoError(t, err)
	require.ElementsMatch(t, []graphid.ID{b, c}, within2)
}

func TestPathsBetween(t *testing.T) {
	s := newTestStore(t)
	buildGrid(t, s)
	start := nodeID(t, s, "Cell", cellName(0, 0))
	end := nodeID(t, s, "Cell", cellName(0, 2))

	paths, err := PathsBetween(s, start, end, VLEOptions{MinLength: 1, MaxLength: 4, AllowCycles: false})
	require.NoError(t, err)
	require.Len(t, paths, 1, "the grid's top row has exactly one RIGHT-RIGHT path from corner to corner")
	require.Equal(t, 2, paths[0].Length())
}
