package storage

import (
	"encoding/json"

	"github.com/dong-qiu/graphdb/pkg/graphid"
	"github.com/dong-qiu/graphdb/pkg/gvalue"
)

// wireVertex / wireEdge are the on-disk JSON shape of a record. Storing
// the full identifier alongside the key (rather than reconstructing it
// purely from the key's label/local components) keeps deserialization
// independent of which prefix the record was read under.
type wireVertex struct {
	ID         uint64         `json:"id"`
	Label      string         `json:"label"`
	Properties map[string]any `json:"properties"`
}

type wireEdge struct {
	ID         uint64         `json:"id"`
	Start      uint64         `json:"start"`
	End        uint64         `json:"end"`
	Label      string         `json:"label"`
	Properties map[string]any `json:"properties"`
}

func encodeVertex(v *gvalue.Vertex) ([]byte, error) {
	props := v.Properties
	if props == nil {
		props = map[string]any{}
	}
	b, err := json.Marshal(wireVertex{ID: v.ID.Raw(), Label: v.Label, Properties: props})
	if err != nil {
		return nil, &SerializationError{Op: "encodeVertex", Err: err}
	}
	return b, nil
}

func decodeVertex(b []byte) (*gvalue.Vertex, error) {
	var w wireVertex
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, &SerializationError{Op: "decodeVertex", Err: err}
	}
	return &gvalue.Vertex{ID: graphid.FromRaw(w.ID), Label: w.Label, Properties: w.Properties}, nil
}

func encodeEdge(e *gvalue.Edge) ([]byte, error) {
	props := e.Properties
	if props == nil {
		props = map[string]any{}
	}
	b, err := json.Marshal(wireEdge{ID: e.ID.Raw(), Start: e.Start.Raw(), End: e.End.Raw(), Label: e.Label, Properties: props})
	if err != nil {
		return nil, &SerializationError{Op: "encodeEdge", Err: err}
	}
	return b, nil
}

func decodeEdge(b []byte) (*gvalue.Edge, error) {
	var w wireEdge
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, &SerializationError{Op: "decodeEdge", Err: err}
	}
	return &gvalue.Edge{
		ID:         graphid.FromRaw(w.ID),
		Start:      graphid.FromRaw(w.Start),
		End:        graphid.FromRaw(w.End),
		Label:      w.Label,
		Properties: w.Properties,
	}, nil
}
