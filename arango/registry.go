package arango

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	driver "github.com/arangodb/go-driver"
	"github.com/wonderstone/arangostorm/tools"
)

// CollectionType is a specialized collection, bound to the collection of the same name
type CollectionType struct {
	Name string
	// CategoryDocument or CategoryEdge
	Category Category
	// Defaults are merged under the caller args when the collection is created
	Defaults map[string]interface{}
}

// CollectionRegistry resolves collection names to their representation.
// A nil registry is an empty one.
type CollectionRegistry struct {
	mu    sync.RWMutex
	types map[string]CollectionType
}

// NewCollectionRegistry registers every type, failing on the first bad one
func NewCollectionRegistry(types ...CollectionType) (*CollectionRegistry, error) {
	r := &CollectionRegistry{types: make(map[string]CollectionType)}
	for _, t := range types {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *CollectionRegistry) Register(t CollectionType) error {
	switch {
	case t.Name == "":
		return newError(ErrCodeConstraint, "collection type without name")
	case t.Name == KindGenericCollection || t.Name == KindGenericEdges || t.Name == KindSystemCollection:
		return newError(ErrCodeConstraint, "%s is a reserved collection kind", t.Name)
	case t.Category == CategorySystem:
		return newError(ErrCodeConstraint, "collection type %s cannot be a system collection", t.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[t.Name]; ok {
		return newError(ErrCodeConstraint, "collection type %s is already registered", t.Name)
	}
	r.types[t.Name] = t
	return nil
}

func (r *CollectionRegistry) Lookup(name string) (CollectionType, bool) {
	if r == nil {
		return CollectionType{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// Names returns the registered names, sorted
func (r *CollectionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for n := range r.types {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// newCollection picks the representation of one server item:
// system first, then a type registered under the item name, then the generic one
func (r *CollectionRegistry) newCollection(info CollectionInfo, raw json.RawMessage) *Collection {
	c := &Collection{name: info.Name, info: info, raw: raw}
	if info.IsSystem {
		c.kind, c.category = KindSystemCollection, CategorySystem
		return c
	}
	if t, ok := r.Lookup(info.Name); ok {
		c.kind, c.category = t.Name, t.Category
		return c
	}
	if info.Type == driver.CollectionTypeEdge {
		c.kind, c.category = KindGenericEdges, CategoryEdge
	} else {
		c.kind, c.category = KindGenericCollection, CategoryDocument
	}
	return c
}

// GraphType is a specialized graph, bound to the graph of the same name.
// Its definitions are used by CreateGraphFromType.
type GraphType struct {
	Name              string
	EdgeDefinitions   []driver.EdgeDefinition
	OrphanCollections []string
}

// GraphRegistry resolves graph names to their representation.
// A nil registry is an empty one.
type GraphRegistry struct {
	mu    sync.RWMutex
	types map[string]GraphType
}

func NewGraphRegistry(types ...GraphType) (*GraphRegistry, error) {
	r := &GraphRegistry{types: make(map[string]GraphType)}
	for _, t := range types {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *GraphRegistry) Register(t GraphType) error {
	if t.Name == "" {
		return newError(ErrCodeConstraint, "graph type without name")
	}
	if t.Name == KindGenericGraph {
		return newError(ErrCodeConstraint, "%s is a reserved graph kind", t.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[t.Name]; ok {
		return newError(ErrCodeConstraint, "graph type %s is already registered", t.Name)
	}
	r.types[t.Name] = t
	return nil
}

func (r *GraphRegistry) Lookup(name string) (GraphType, bool) {
	if r == nil {
		return GraphType{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

func (r *GraphRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for n := range r.types {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// newGraph decodes one server graph item; unregistered names are generic graphs
func (r *GraphRegistry) newGraph(raw json.RawMessage) (*Graph, error) {
	var info graphInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, err
	}
	name := info.graphName()
	if name == "" {
		return nil, fmt.Errorf("graph item without _key")
	}

	g := &Graph{
		name:              name,
		kind:              KindGenericGraph,
		edgeDefinitions:   info.EdgeDefinitions,
		orphanCollections: info.OrphanCollections,
		raw:               raw,
	}
	if g.orphanCollections == nil {
		g.orphanCollections = []string{}
	}
	if t, ok := r.Lookup(name); ok {
		g.kind = t.Name
	}
	return g, nil
}

// ConfigCollectionTypes builds a collection registry from the collectionTypes section of a config
func ConfigCollectionTypes(cfg tools.Config) (*CollectionRegistry, error) {
	cols, err := NewCollectionRegistry()
	if err != nil {
		return nil, err
	}
	for _, ct := range cfg.CollectionTypes {
		cat := CategoryDocument
		if ct.Edge {
			cat = CategoryEdge
		}
		if err := cols.Register(CollectionType{Name: ct.Name, Category: cat, Defaults: ct.Defaults}); err != nil {
			return nil, err
		}
	}
	return cols, nil
}

// ConfigGraphTypes builds a graph registry from the graphTypes section of a config
func ConfigGraphTypes(cfg tools.Config) (*GraphRegistry, error) {
	graphs, err := NewGraphRegistry()
	if err != nil {
		return nil, err
	}
	for _, gt := range cfg.GraphTypes {
		if err := graphs.Register(GraphTypeFromDefinition(gt)); err != nil {
			return nil, err
		}
	}
	return graphs, nil
}

// ConfigOptions turns the type sections of a config into Open options
func ConfigOptions(cfg tools.Config) ([]Option, error) {
	cols, err := ConfigCollectionTypes(cfg)
	if err != nil {
		return nil, err
	}
	graphs, err := ConfigGraphTypes(cfg)
	if err != nil {
		return nil, err
	}
	return []Option{WithCollectionTypes(cols), WithGraphTypes(graphs)}, nil
}

// GraphTypeFromDefinition converts a yaml graph definition
func GraphTypeFromDefinition(def tools.GraphDefinition) GraphType {
	gt := GraphType{Name: def.Name, OrphanCollections: def.OrphanCollections}
	for _, ed := range def.EdgeDefinitions {
		gt.EdgeDefinitions = append(gt.EdgeDefinitions, driver.EdgeDefinition{
			Collection: ed.Collection,
			From:       ed.From,
			To:         ed.To,
		})
	}
	return gt
}
