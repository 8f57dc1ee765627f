package cypher

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dong-qiu/graphdb/pkg/gvalue"
	"github.com/dong-qiu/graphdb/pkg/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.OpenInMemory("test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func run(t *testing.T, s *storage.Store, query string, params map[string]gvalue.Value) []gvalue.Row {
	t.Helper()
	stmt, err := Parse(query)
	require.NoError(t, err)
	rows, err := NewExecutor(s).Execute(stmt, params)
	require.NoError(t, err)
	return rows
}

func TestCreateThenMatchNodeOnly(t *testing.T) {
	s := newTestStore(t)
	run(t, s, `CREATE (a:Person {name: 'Alice', age: 30})`, nil)
	run(t, s, `CREATE (b:Person {name: 'Bob', age: 25})`, nil)

	rows := run(t, s, `MATCH (p:Person) RETURN p.name AS name ORDER BY name`, nil)
	require.Len(t, rows, 2)
	require.Equal(t, "Alice", rows[0]["name"].Str)
	require.Equal(t, "Bob", rows[1]["name"].Str)
}

func TestCreateTriplePattern(t *testing.T) {
	s := newTestStore(t)
	run(t, s, `CREATE (a:Person {name: 'Alice'})-[:KNOWS {since: 2020}]->(b:Person {name: 'Bob'})`, nil)

	rows := run(t, s, `MATCH (a:Person)-[r:KNOWS]->(b:Person) RETURN a.name AS a, b.name AS b, r.since AS since`, nil)
	require.Len(t, rows, 1)
	require.Equal(t, "Alice", rows[0]["a"].Str)
	require.Equal(t, "Bob", rows[0]["b"].Str)
	require.Equal(t, int64(2020), rows[0]["since"].Int)
}

func TestMatchReuseNodeAcrossCreatePatterns(t *testing.T) {
	s := newTestStore(t)
	run(t, s, `CREATE (a:Person {name: 'Alice'})`, nil)
	run(t, s, `MATCH (a:Person {name: 'Alice'}) CREATE (a)-[:SELFLINK]->(a)`, nil)

	rows := run(t, s, `MATCH (p:Person) RETURN p.name AS name`, nil)
	require.Len(t, rows, 1, "reusing the bound variable must not create a second Person")
}

func TestWhereFilter(t *testing.T) {
	s := newTestStore(t)
	run(t, s, `CREATE (a:Person {name: 'Alice', age: 30})`, nil)
	run(t, s, `CREATE (b:Person {name: 'Bob', age: 25})`, nil)

	rows := run(t, s, `MATCH (p:Person) WHERE p.age > 26 RETURN p.name AS name`, nil)
	require.Len(t, rows, 1)
	require.Equal(t, "Alice", rows[0]["name"].Str)
}

func TestSetBatchesMultiplePropertiesPerEntity(t *testing.T) {
	s := newTestStore(t)
	run(t, s, `CREATE (a:Person {name: 'Alice', age: 30})`, nil)

	run(t, s, `MATCH (p:Person {name: 'Alice'}) SET p.age = 31, p.city = 'NYC'`, nil)

	rows := run(t, s, `MATCH (p:Person {name: 'Alice'}) RETURN p.age AS age, p.city AS city, p.name AS name`, nil)
	require.Len(t, rows, 1)
	require.Equal(t, int64(31), rows[0]["age"].Int)
	require.Equal(t, "NYC", rows[0]["city"].Str)
	require.Equal(t, "Alice", rows[0]["name"].Str, "SET must not clobber properties it did not target")
}

func TestDeleteDetach(t *testing.T) {
	s := newTestStore(t)
	run(t, s, `CREATE (a:Person {name: 'Alice'})-[:KNOWS]->(b:Person {name: 'Bob'})`, nil)

	run(t, s, `MATCH (a:Person {name: 'Alice'}) DETACH DELETE a`, nil)

	rows := run(t, s, `MATCH (p:Person) RETURN p.name AS name`, nil)
	require.Len(t, rows, 1)
	require.Equal(t, "Bob", rows[0]["name"].Str)
}

func TestDeleteWithoutDetachFailsWhenEdgesExist(t *testing.T) {
	s := newTestStore(t)
	run(t, s, `CREATE (a:Person {name: 'Alice'})-[:KNOWS]->(b:Person {name: 'Bob'})`, nil)

	stmt, err := Parse(`MATCH (a:Person {name: 'Alice'}) DELETE a`)
	require.NoError(t, err)
	_, err = NewExecutor(s).Execute(stmt, nil)
	require.ErrorIs(t, err, storage.ErrVertexHasEdges)
}

func TestReturnAggregation(t *testing.T) {
	s := newTestStore(t)
	run(t, s, `CREATE (a:Person {name: 'Alice', age: 30})`, nil)
	run(t, s, `CREATE (b:Person {name: 'Bob', age: 25})`, nil)
	run(t, s, `CREATE (c:Person {name: 'Carol', age: 40})`, nil)

	rows := run(t, s, `MATCH (p:Person) RETURN count(p) AS n, sum(p.age) AS total, avg(p.age) AS average`, nil)
	require.Len(t, rows, 1)
	require.Equal(t, int64(3), rows[0]["n"].Int)
	require.Equal(t, int64(95), rows[0]["total"].Int)
	require.InDelta(t, 95.0/3.0, rows[0]["average"].Float, 0.0001)
}

func TestWithProjectionAndFilter(t *testing.T) {
	s := newTestStore(t)
	run(t, s, `CREATE (a:Person {name: 'Alice', age: 30})`, nil)
	run(t, s, `CREATE (b:Person {name: 'Bob', age: 25})`, nil)

	rows := run(t, s, `MATCH (p:Person) WITH p.age AS age WHERE age > 26 RETURN age`, nil)
	require.Len(t, rows, 1)
	require.Equal(t, int64(30), rows[0]["age"].Int)
}

func TestReturnOrderByDescAndLimit(t *testing.T) {
	s := newTestStore(t)
	run(t, s, `CREATE (a:Person {name: 'Alice', age: 30})`, nil)
	run(t, s, `CREATE (b:Person {name: 'Bob', age: 25})`, nil)
	run(t, s, `CREATE (c:Person {name: 'Carol', age: 40})`, nil)

	rows := run(t, s, `MATCH (p:Person) RETURN p.name AS name ORDER BY p.age DESC LIMIT 2`, nil)
	require.Len(t, rows, 2)
	require.Equal(t, "Carol", rows[0]["name"].Str)
	require.Equal(t, "Alice", rows[1]["name"].Str)
}

func TestParamBinding(t *testing.T) {
	s := newTestStore(t)
	run(t, s, `CREATE (a:Person {name: 'Alice'})`, nil)

	rows := run(t, s, `MATCH (p:Person {name: $target}) RETURN p.name AS name`, map[string]gvalue.Value{
		"target": gvalue.Str("Alice"),
	})
	require.Len(t, rows, 1)
	require.Equal(t, "Alice", rows[0]["name"].Str)
}

func TestMismatchedTypeComparisonYieldsFalsy(t *testing.T) {
	s := newTestStore(t)
	run(t, s, `CREATE (a:Person {name: 'Alice', tag: true})`, nil)

	rows := run(t, s, `MATCH (p:Person) WHERE p.tag = 'true' RETURN p.name AS name`, nil)
	require.Empty(t, rows, "bool compared to string must not match, per the documented mismatched-type rule")
}
