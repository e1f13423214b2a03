package arango

import (
	"encoding/json"
	"sort"

	driver "github.com/arangodb/go-driver"
	"github.com/emirpasic/gods/sets/hashset"
)

// KindGenericGraph is the representation of graphs with no registered type
const KindGenericGraph = "GenericGraph"

// graphInfo is one item of the gharial graph list
type graphInfo struct {
	Key               string                  `json:"_key"`
	Name              string                  `json:"name,omitempty"`
	EdgeDefinitions   []driver.EdgeDefinition `json:"edgeDefinitions"`
	OrphanCollections []string                `json:"orphanCollections"`
}

func (g graphInfo) graphName() string {
	if g.Key != "" {
		return g.Key
	}
	return g.Name
}

// Graph is the local handle of a remote graph
type Graph struct {
	name              string
	kind              string
	edgeDefinitions   []driver.EdgeDefinition
	orphanCollections []string
	raw               json.RawMessage
}

func (g *Graph) Name() string { return g.name }

// Kind is the registered graph type name or KindGenericGraph
func (g *Graph) Kind() string { return g.kind }

func (g *Graph) EdgeDefinitions() []driver.EdgeDefinition { return g.edgeDefinitions }

func (g *Graph) OrphanCollections() []string { return g.orphanCollections }

func (g *Graph) Raw() json.RawMessage { return g.raw }

// Collections returns every collection name the graph references, sorted
func (g *Graph) Collections() []string {
	set := hashset.New()
	for _, ed := range g.edgeDefinitions {
		set.Add(ed.Collection)
		for _, n := range ed.From {
			set.Add(n)
		}
		for _, n := range ed.To {
			set.Add(n)
		}
	}
	for _, n := range g.orphanCollections {
		set.Add(n)
	}

	names := make([]string, 0, set.Size())
	for _, v := range set.Values() {
		names = append(names, v.(string))
	}
	sort.Strings(names)
	return names
}

// Export implements the handler Item interface
func (g *Graph) Export() map[string]interface{} {
	eds := make([]map[string]interface{}, 0, len(g.edgeDefinitions))
	for _, ed := range g.edgeDefinitions {
		eds = append(eds, map[string]interface{}{
			"collection": ed.Collection,
			"from":       ed.From,
			"to":         ed.To,
		})
	}
	return map[string]interface{}{
		"name":              g.name,
		"kind":              g.kind,
		"edgeDefinitions":   eds,
		"orphanCollections": g.orphanCollections,
	}
}

func (g *Graph) String() string {
	return "ArangoDB graph: " + g.name
}
