package algo

import (
	"github.com/dong-qiu/graphdb/pkg/graphid"
	"github.com/dong-qiu/graphdb/pkg/gvalue"
	"github.com/dong-qiu/graphdb/pkg/storage"
)

// VLEOptions bounds a VariableLengthExpand call, per spec §4.5.
type VLEOptions struct {
	MinLength   int
	MaxLength   int
	AllowCycles bool
	// MaxPaths caps the number of paths returned; zero means unbounded.
	MaxPaths int
}

type frontierItem struct {
	vertices []*gvalue.Vertex
	edges    []*gvalue.Edge
}

// VariableLengthExpand implements spec §4.5: breadth-first expansion
// from start out to MaxLength hops, using a FIFO queue of partial
// paths. Every partial path whose length falls within
// [MinLength, MaxLength] is emitted. When AllowCycles is false, a
// candidate edge is skipped if it would revisit a vertex already on
// the partial path. Expansion stops once MaxPaths results have been
// collected.
func VariableLengthExpand(store *storage.Store, start graphid.ID, opts VLEOptions) ([]*gvalue.Path, error) {
	if opts.MinLength < 0 || opts.MaxLength < opts.MinLength {
		return nil, &InvalidParametersError{Reason: "min_length must be >= 0 and max_length >= min_length"}
	}

	startVertex, err := store.GetVertex(start)
	if err != nil {
		return nil, &AlgorithmFailedError{Op: "VariableLengthExpand", Err: err}
	}

	var results []*gvalue.Path
	queue := []frontierItem{{vertices: []*gvalue.Vertex{startVertex}}}

	for len(queue) > 0 {
		if opts.MaxPaths > 0 && len(results) >= opts.MaxPaths {
			break
		}
		cur := queue[0]
		queue = queue[1:]

		length := len(cur.edges)
		if length >= opts.MinLength && length <= opts.MaxLength {
			p, err := gvalue.NewPath(cur.vertices, cur.edges)
			if err != nil {
				return nil, &AlgorithmFailedError{Op: "VariableLengthExpand", Err: err}
			}
			results = append(results, p)
			if opts.MaxPaths > 0 && len(results) >= opts.MaxPaths {
				break
			}
		}

		if length >= opts.MaxLength {
			continue
		}

		last := cur.vertices[len(cur.vertices)-1]
		outs, err := store.GetOutgoingEdges(last.ID)
		if err != nil {
			return nil, &AlgorithmFailedError{Op: "VariableLengthExpand", Err: err}
		}

		var onPath map[graphid.ID]bool
		if !opts.AllowCycles {
			onPath = make(map[graphid.ID]bool, len(cur.vertices))
			for _, v := range cur.vertices {
				onPath[v.ID] = true
			}
		}

		for _, e := range outs {
			if !opts.AllowCycles && onPath[e.End] {
				continue
			}
			next, err := store.GetVertex(e.End)
			if err != nil {
				return nil, &AlgorithmFailedError{Op: "VariableLengthExpand", Err: err}
			}
			nv := append(append([]*gvalue.Vertex{}, cur.vertices...), next)
			ne := append(append([]*gvalue.Edge{}, cur.edges...), e)
			queue = append(queue, frontierItem{vertices: nv, edges: ne})
		}
	}

	return results, nil
}

// KHopNeighbors returns the distinct vertices reachable from start by
// a path of exactly k edges (spec §4.5's derived query).
func KHopNeighbors(store *storage.Store, start graphid.ID, k int) ([]graphid.ID, error) {
	if k < 0 {
		return nil, &InvalidParametersError{Reason: "k must be >= 0"}
	}
	paths, err := VariableLengthExpand(store, start, VLEOptions{MinLength: k, MaxLength: k, AllowCycles: true})
	if err != nil {
		return nil, err
	}
	return distinctEndpoints(paths), nil
}

// NeighborsWithinKHops returns the distinct vertices reachable from
// start by a path of between 1 and k edges (spec §4.5's derived
// query).
func NeighborsWithinKHops(store *storage.Store, start graphid.ID, k int) ([]graphid.ID, error) {
	if k < 1 {
		return nil, &InvalidParametersError{Reason: "k must be >= 1"}
	}
	paths, err := VariableLengthExpand(store, start, VLEOptions{MinLength: 1, MaxLength: k, AllowCycles: true})
	if err != nil {
		return nil, err
	}
	return distinctEndpoints(paths), nil
}

// PathsBetween runs the same breadth-first expansion as
// VariableLengthExpand, filtered to paths whose final vertex is end
// (spec §4.5's derived query).
func PathsBetween(store *storage.Store, start, end graphid.ID, opts VLEOptions) ([]*gvalue.Path, error) {
	paths, err := VariableLengthExpand(store, start, opts)
	if err != nil {
		return nil, err
	}
	out := make([]*gvalue.Path, 0, len(paths))
	for _, p := range paths {
		if p.Vertices[len(p.Vertices)-1].ID == end {
			out = append(out, p)
		}
	}
	return out, nil
}

func distinctEndpoints(paths []*gvalue.Path) []graphid.ID {
	seen := map[graphid.ID]bool{}
	var out []graphid.ID
	for _, p := range paths {
		id := p.Vertices[len(p.Vertices)-1].ID
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
