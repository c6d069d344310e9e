package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// KnowledgeGraphComponent describes one node of the process/service
// dependency graph loaded at startup. The investigation engine does not
// query this graph directly in its core loop; it is exposed read-only via
// configuration stats for operators and future tooling, mirroring the
// original system's component/dependency model.
type KnowledgeGraphComponent struct {
	Name        string   `yaml:"name"`
	Type        string   `yaml:"type"`
	DependsOn   []string `yaml:"depends_on,omitempty"`
	Description string   `yaml:"description,omitempty"`
}

// KnowledgeGraph is a flat adjacency list of known components. Cycles are
// tolerated; nothing in this package traverses the graph.
type KnowledgeGraph struct {
	Components []KnowledgeGraphComponent `yaml:"components"`
}

// LoadKnowledgeGraph loads knowledge-graph.yaml from configDir. A missing
// file is not an error — it yields an empty graph, since the graph is
// optional context rather than a required input.
func LoadKnowledgeGraph(configDir string) (*KnowledgeGraph, error) {
	path := configDir + "/knowledge-graph.yaml"
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &KnowledgeGraph{}, nil
		}
		return nil, fmt.Errorf("read knowledge graph: %w", err)
	}

	data = ExpandEnv(data)

	var graph KnowledgeGraph
	if err := yaml.Unmarshal(data, &graph); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return &graph, nil
}
