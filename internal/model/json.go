package model

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

// The JSON model document is the interchange form produced by the
// converters that sit in front of this engine. Leaves carry only
// {"leaf": true, "value": v}; internal nodes carry the split fields.

type nodeDoc struct {
	Feature     int     `json:"feature"`
	Threshold   float64 `json:"threshold"`
	Left        int     `json:"left"`
	Right       int     `json:"right"`
	DefaultLeft bool    `json:"default_left"`
	Leaf        bool    `json:"leaf,omitempty"`
	Value       float64 `json:"value"`
}

type treeDoc struct {
	Nodes []nodeDoc `json:"nodes"`
}

type modelDoc struct {
	NumFeatures int       `json:"num_features"`
	NumGroups   int       `json:"num_groups"`
	Aggregation string    `json:"aggregation"`
	Trees       []treeDoc `json:"trees"`
}

// UnmarshalModel parses and validates a JSON model document.
func UnmarshalModel(data []byte) (*Model, error) {
	var doc modelDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse model document: %w", err)
	}
	agg, err := ParseAggregation(doc.Aggregation)
	if err != nil {
		return nil, err
	}
	m := &Model{
		NumFeatures: doc.NumFeatures,
		NumGroups:   doc.NumGroups,
		Agg:         agg,
		Trees:       make([]Tree, len(doc.Trees)),
	}
	if m.NumGroups == 0 {
		m.NumGroups = 1
	}
	for t, td := range doc.Trees {
		nodes := make([]Node, len(td.Nodes))
		for i, nd := range td.Nodes {
			nodes[i] = Node{
				Feature:     nd.Feature,
				Threshold:   nd.Threshold,
				Left:        nd.Left,
				Right:       nd.Right,
				DefaultLeft: nd.DefaultLeft,
				Leaf:        nd.Leaf,
				Value:       nd.Value,
			}
		}
		m.Trees[t] = Tree{Nodes: nodes}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// MarshalModel serializes the model back to its JSON document form.
func MarshalModel(m *Model) ([]byte, error) {
	doc := modelDoc{
		NumFeatures: m.NumFeatures,
		NumGroups:   m.NumGroups,
		Aggregation: m.Agg.String(),
		Trees:       make([]treeDoc, len(m.Trees)),
	}
	for t := range m.Trees {
		nodes := make([]nodeDoc, len(m.Trees[t].Nodes))
		for i, n := range m.Trees[t].Nodes {
			nodes[i] = nodeDoc{
				Feature:     n.Feature,
				Threshold:   n.Threshold,
				Left:        n.Left,
				Right:       n.Right,
				DefaultLeft: n.DefaultLeft,
				Leaf:        n.Leaf,
				Value:       n.Value,
			}
		}
		doc.Trees[t] = treeDoc{Nodes: nodes}
	}
	return json.Marshal(doc)
}

// LoadFile reads a JSON model document from disk.
func LoadFile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return UnmarshalModel(data)
}
