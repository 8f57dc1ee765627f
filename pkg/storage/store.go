// Package storage implements the key schema, label/counter services,
// adjacency indexing, and transactional batching of spec §4.1 over an
// ordered key-value store (github.com/dgraph-io/badger/v4).
package storage

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/dong-qiu/graphdb/pkg/graphid"
	"github.com/dong-qiu/graphdb/pkg/gvalue"
)

// Store is the storage engine: a thin, bit-exact-key-schema layer over
// badger. The label-name-to-id cache and the label-id-allocation counter
// live here, behind a coarse RWMutex, matching the teacher's
// read-mostly label cache design (spec §5 "Shared state").
type Store struct {
	db    *badger.DB
	graph string
	log   *log.Logger

	mu         sync.RWMutex
	labelCache map[string]uint16
}

// Open opens (or creates) a badger database at path and binds it to the
// given graph namespace.
func Open(path, graph string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, &KvError{Op: "Open", Err: err}
	}
	return newStore(db, graph), nil
}

// OpenInMemory opens a badger database backed purely by memory, used by
// tests (matching the teacher's NewBadgerEngineInMemory).
func OpenInMemory(graph string) (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, &KvError{Op: "OpenInMemory", Err: err}
	}
	return newStore(db, graph), nil
}

func newStore(db *badger.DB, graph string) *Store {
	return &Store{
		db:         db,
		graph:      graph,
		log:        log.New(os.Stderr, "storage: ", log.LstdFlags),
		labelCache: make(map[string]uint16),
	}
}

// SetLogOutput redirects the engine's diagnostic log; pass io.Discard to
// silence it.
func (s *Store) SetLogOutput(w io.Writer) {
	s.log.SetOutput(w)
}

// Close releases the underlying badger database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return &KvError{Op: "Close", Err: err}
	}
	return nil
}

// lookupLabelID consults the cache, then the persistent mapping, without
// allocating a new id. It returns ok=false (never an error) when the
// label truly does not exist yet, matching spec §4.1's "an unknown
// label name in a scan returns an empty result (never an error)".
func (s *Store) lookupLabelID(name string) (uint16, bool, error) {
	s.mu.RLock()
	if id, ok := s.labelCache[name]; ok {
		s.mu.RUnlock()
		return id, true, nil
	}
	s.mu.RUnlock()

	var found bool
	var id uint16
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(labelMapKey(s.graph, name))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		id = parseUint16LE(val)
		found = true
		return nil
	})
	if err != nil {
		return 0, false, &KvError{Op: "lookupLabelID", Err: err}
	}
	if found {
		s.mu.Lock()
		s.labelCache[name] = id
		s.mu.Unlock()
	}
	return id, found, nil
}

// getOrCreateLabelID implements spec §4.1's get_or_create_label: cache,
// then persistent mapping, then allocate the next unused 16-bit id and
// persist it. Idempotent under concurrent callers because the
// allocation itself happens inside a single badger update that re-checks
// the mapping under the engine mutex.
func (s *Store) getOrCreateLabelID(name string) (uint16, error) {
	if id, ok, err := s.lookupLabelID(name); err != nil {
		return 0, err
	} else if ok {
		return id, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.labelCache[name]; ok {
		return id, nil
	}

	var newID uint16
	err := s.db.Update(func(txn *badger.Txn) error {
		// Re-check under the transaction in case another process (not
		// just another goroutine in this instance) raced us.
		if item, err := txn.Get(labelMapKey(s.graph, name)); err == nil {
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			newID = parseUint16LE(val)
			return nil
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		next, err := s.nextLabelSeq(txn)
		if err != nil {
			return err
		}
		if next > uint64(MaxLabelID) {
			return ErrCounterOverflow
		}
		newID = uint16(next)
		if err := txn.Set(counterKey(s.graph, labelSeqKey), encodeUint64LE(next+1)); err != nil {
			return err
		}
		return txn.Set(labelMapKey(s.graph, name), encodeUint16LE(newID))
	})
	if err != nil {
		if err == ErrCounterOverflow {
			return 0, err
		}
		return 0, &KvError{Op: "getOrCreateLabelID", Err: err}
	}

	s.labelCache[name] = newID
	s.log.Printf("allocated label %q -> %d", name, newID)
	return newID, nil
}

// MaxLabelID is the largest 16-bit label identifier the engine will
// allocate.
const MaxLabelID = uint16(0xFFFF)

func (s *Store) nextLabelSeq(txn *badger.Txn) (uint64, error) {
	item, err := txn.Get(counterKey(s.graph, labelSeqKey))
	if err == badger.ErrKeyNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return 0, err
	}
	return parseUint64LE(val), nil
}

// readCounter reads the persisted next-local-id counter for a label,
// defaulting to 0 when no counter has ever been written.
func (s *Store) readCounter(txn *badger.Txn, label string) (uint64, error) {
	item, err := txn.Get(counterKey(s.graph, label))
	if err == badger.ErrKeyNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return 0, err
	}
	return parseUint64LE(val), nil
}

// GetVertex returns the vertex record for id, or a *NotFoundError
// wrapping ErrVertexNotFound.
func (s *Store) GetVertex(id graphid.ID) (*gvalue.Vertex, error) {
	var v *gvalue.Vertex
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(vertexKey(s.graph, id.Label(), id.Local()))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		v, err = decodeVertex(val)
		return err
	})
	if err != nil {
		if se, ok := err.(*SerializationError); ok {
			return nil, se
		}
		return nil, &KvError{Op: "GetVertex", Err: err}
	}
	if v == nil {
		return nil, &NotFoundError{Sentinel: ErrVertexNotFound, ID: id}
	}
	return v, nil
}

// GetEdge returns the edge record for id, or a *NotFoundError wrapping
// ErrEdgeNotFound.
func (s *Store) GetEdge(id graphid.ID) (*gvalue.Edge, error) {
	var e *gvalue.Edge
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(edgeKey(s.graph, id.Label(), id.Local()))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		e, err = decodeEdge(val)
		return err
	})
	if err != nil {
		if se, ok := err.(*SerializationError); ok {
			return nil, se
		}
		return nil, &KvError{Op: "GetEdge", Err: err}
	}
	if e == nil {
		return nil, &NotFoundError{Sentinel: ErrEdgeNotFound, ID: id}
	}
	return e, nil
}

// ScanVertices returns every vertex under the given label, by prefix
// iteration halted explicitly at the prefix boundary. An unknown label
// returns an empty slice, never an error.
func (s *Store) ScanVertices(label string) ([]*gvalue.Vertex, error) {
	labid, ok, err := s.lookupLabelID(label)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	prefix := vertexLabelPrefix(s.graph, labid)

	var out []*gvalue.Vertex
	err = s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			v, err := decodeVertex(val)
			if err != nil {
				return err
			}
			out = append(out, v)
		}
		return nil
	})
	if err != nil {
		return nil, &KvError{Op: "ScanVertices", Err: err}
	}
	return out, nil
}

// ScanEdges returns every edge under the given label. An unknown label
// returns an empty slice, never an error.
func (s *Store) ScanEdges(label string) ([]*gvalue.Edge, error) {
	labid, ok, err := s.lookupLabelID(label)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	prefix := edgeLabelPrefix(s.graph, labid)

	var out []*gvalue.Edge
	err = s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			e, err := decodeEdge(val)
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, &KvError{Op: "ScanEdges", Err: err}
	}
	return out, nil
}

// ListLabels returns every label name that has been allocated an id in
// this graph namespace, used by the executor to scan node patterns
// that name no label (spec §4.2's label is optional in a node pattern).
func (s *Store) ListLabels() ([]string, error) {
	prefix := labelMapPrefix(s.graph)
	var out []string
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			out = append(out, string(key[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, &KvError{Op: "ListLabels", Err: err}
	}
	return out, nil
}

// GetOutgoingEdges returns the edges whose Start is vid, by prefix
// iteration over the out-adjacency index followed by an edge-record
// fetch per hit.
func (s *Store) GetOutgoingEdges(vid graphid.ID) ([]*gvalue.Edge, error) {
	return s.adjacentEdges(outAdjacencyPrefix(s.graph, vid.Raw()))
}

// GetIncomingEdges returns the edges whose End is vid.
func (s *Store) GetIncomingEdges(vid graphid.ID) ([]*gvalue.Edge, error) {
	return s.adjacentEdges(inAdjacencyPrefix(s.graph, vid.Raw()))
}

func (s *Store) adjacentEdges(prefix []byte) ([]*gvalue.Edge, error) {
	var rawIDs []uint64
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			edgeRaw, err := lastComponentUint64(key)
			if err != nil {
				return err
			}
			rawIDs = append(rawIDs, edgeRaw)
		}
		return nil
	})
	if err != nil {
		return nil, &KvError{Op: "adjacentEdges", Err: err}
	}

	out := make([]*gvalue.Edge, 0, len(rawIDs))
	for _, raw := range rawIDs {
		e, err := s.GetEdge(graphid.FromRaw(raw))
		if err != nil {
			return nil, fmt.Errorf("storage: adjacency index referenced missing edge: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

// lastComponentUint64 parses the trailing fixed-width decimal component
// of an adjacency key (the edge's raw id).
func lastComponentUint64(key []byte) (uint64, error) {
	if len(key) < rawIDWidth {
		return 0, fmt.Errorf("storage: malformed adjacency key %q", key)
	}
	tail := key[len(key)-rawIDWidth:]
	var v uint64
	for _, c := range tail {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("storage: malformed adjacency key %q", key)
		}
		v = v*10 + uint64(c-'0')
	}
	return v, nil
}
