package algo

import (
	"container/heap"

	"github.com/dong-qiu/graphdb/pkg/graphid"
	"github.com/dong-qiu/graphdb/pkg/gvalue"
	"github.com/dong-qiu/graphdb/pkg/storage"
)

// heapItem is one entry on the priority queue: the tentative cost to
// reach id, and its raw id for the tie-break spec §4.4 requires.
type heapItem struct {
	cost  int
	rawID uint64
	id    graphid.ID
}

// priorityQueue is a binary min-heap ordered by (cost, rawID), giving
// Dijkstra's heap pops a deterministic total order.
type priorityQueue []*heapItem

func (pq priorityQueue) Len() int { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].cost != pq[j].cost {
		return pq[i].cost < pq[j].cost
	}
	return pq[i].rawID < pq[j].rawID
}
func (pq priorityQueue) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x any)   { *pq = append(*pq, x.(*heapItem)) }
func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

// ShortestPath implements spec §4.4: Dijkstra's algorithm with unit
// edge weights over the directed graph exposed by GetOutgoingEdges. A
// binary min-heap keyed by distance, a visited set, and a predecessor
// map recording the predecessor vertex and the edge traversed per
// destination let the path be reconstructed by back-walking from end
// to start. Returns the path, its cost (hop count), or a
// *PathNotFoundError when end is never popped.
func ShortestPath(store *storage.Store, start, end graphid.ID) (*gvalue.Path, int, error) {
	if start == end {
		v, err := store.GetVertex(start)
		if err != nil {
			return nil, 0, &AlgorithmFailedError{Op: "ShortestPath", Err: err}
		}
		p, err := gvalue.NewPath([]*gvalue.Vertex{v}, nil)
		if err != nil {
			return nil, 0, &AlgorithmFailedError{Op: "ShortestPath", Err: err}
		}
		return p, 0, nil
	}

	dist := map[graphid.ID]int{start: 0}
	predVertex := map[graphid.ID]graphid.ID{}
	predEdge := map[graphid.ID]*gvalue.Edge{}
	visited := map[graphid.ID]bool{}

	pq := &priorityQueue{{cost: 0, rawID: start.Raw(), id: start}}
	heap.Init(pq)

	for pq.Len() > 0 {
		item := heap.Pop(pq).(*heapItem)
		if visited[item.id] {
			continue
		}
		visited[item.id] = true

		if item.id == end {
			return reconstructPath(store, start, end, item.cost, predVertex, predEdge)
		}

		edges, err := store.GetOutgoingEdges(item.id)
		if err != nil {
			return nil, 0, &AlgorithmFailedError{Op: "ShortestPath", Err: err}
		}
		for _, e := range edges {
			if visited[e.End] {
				continue
			}
			nd := item.cost + 1
			if cur, ok := dist[e.End]; !ok || nd < cur {
				dist[e.End] = nd
				predVertex[e.End] = item.id
				predEdge[e.End] = e
				heap.Push(pq, &heapItem{cost: nd, rawID: e.End.Raw(), id: e.End})
			}
		}
	}

	return nil, 0, &PathNotFoundError{Start: start, End: end}
}

func reconstructPath(store *storage.Store, start, end graphid.ID, cost int, predVertex map[graphid.ID]graphid.ID, predEdge map[graphid.ID]*gvalue.Edge) (*gvalue.Path, int, error) {
	var vertices []*gvalue.Vertex
	var edges []*gvalue.Edge

	cur := end
	for {
		v, err := store.GetVertex(cur)
		if err != nil {
			return nil, 0, &AlgorithmFailedError{Op: "ShortestPath", Err: err}
		}
		vertices = append([]*gvalue.Vertex{v}, vertices...)
		if cur == start {
			break
		}
		e := predEdge[cur]
		edges = append([]*gvalue.Edge{e}, edges...)
		cur = predVertex[cur]
	}

	path, err := gvalue.NewPath(vertices, edges)
	if err != nil {
		return nil, 0, &AlgorithmFailedError{Op: "ShortestPath", Err: err}
	}
	return path, cost, nil
}
