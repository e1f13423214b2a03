package tools

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EdgeDefinitionConfig is one relation of a graph definition file
type EdgeDefinitionConfig struct {
	Collection string   `yaml:"collection"`
	From       []string `yaml:"from"`
	To         []string `yaml:"to"`
}

// GraphDefinition is a graph as declared in yaml, either in the config
// graphTypes section or in a standalone file
type GraphDefinition struct {
	Name              string                 `yaml:"name"`
	EdgeDefinitions   []EdgeDefinitionConfig `yaml:"edgeDefinitions"`
	OrphanCollections []string               `yaml:"orphanCollections"`
}

// SequenceError reports a yaml field that must be a list but is not
type SequenceError struct {
	Field string
	Line  int
	Kind  string
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("line %d: %s must be a list of collection names, got %s", e.Line, e.Field, e.Kind)
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.ScalarNode:
		return "a single value"
	case yaml.MappingNode:
		return "a mapping"
	case yaml.AliasNode:
		return "an alias"
	default:
		return "an unexpected node"
	}
}

// requireSequences fails on the first listed key of a mapping node that is not a
// sequence. Keys given an explicit null are returned, callers turn them into empty lists.
func requireSequences(value *yaml.Node, keys ...string) (nulls map[string]bool, err error) {
	nulls = make(map[string]bool)
	if value.Kind != yaml.MappingNode {
		return nulls, nil
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		k, v := value.Content[i], value.Content[i+1]
		for _, key := range keys {
			if k.Value != key {
				continue
			}
			if v.Kind == yaml.ScalarNode && v.Tag == "!!null" {
				nulls[key] = true
				continue
			}
			if v.Kind != yaml.SequenceNode {
				return nil, &SequenceError{Field: key, Line: v.Line, Kind: kindName(v.Kind)}
			}
		}
	}
	return nulls, nil
}

func (e *EdgeDefinitionConfig) UnmarshalYAML(value *yaml.Node) error {
	nulls, err := requireSequences(value, "from", "to")
	if err != nil {
		return err
	}
	type plain EdgeDefinitionConfig
	if err := value.Decode((*plain)(e)); err != nil {
		return err
	}
	if nulls["from"] {
		e.From = []string{}
	}
	if nulls["to"] {
		e.To = []string{}
	}
	return nil
}

func (g *GraphDefinition) UnmarshalYAML(value *yaml.Node) error {
	nulls, err := requireSequences(value, "edgeDefinitions", "orphanCollections")
	if err != nil {
		return err
	}
	type plain GraphDefinition
	if err := value.Decode((*plain)(g)); err != nil {
		return err
	}
	if nulls["orphanCollections"] {
		g.OrphanCollections = []string{}
	}
	return nil
}

// LoadGraphDefinition reads one graph definition from a yaml file
func LoadGraphDefinition(path string) (GraphDefinition, error) {
	var def GraphDefinition

	data, err := os.ReadFile(path)
	if err != nil {
		return def, fmt.Errorf("read graph definition %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &def); err != nil {
		return def, fmt.Errorf("parse graph definition %s: %w", path, err)
	}
	if def.Name == "" {
		return def, fmt.Errorf("graph definition %s has no name", path)
	}
	return def, nil
}
