package arango

import (
	"encoding/json"

	driver "github.com/arangodb/go-driver"
)

// Category of a collection, fixed once the handle is built
type Category int

const (
	CategoryDocument Category = iota
	CategoryEdge
	CategorySystem
)

func (c Category) String() string {
	switch c {
	case CategoryDocument:
		return "document"
	case CategoryEdge:
		return "edge"
	case CategorySystem:
		return "system"
	default:
		return "unknown"
	}
}

// collectionType is the server type code sent on creation
func (c Category) collectionType() driver.CollectionType {
	if c == CategoryEdge {
		return driver.CollectionTypeEdge
	}
	return driver.CollectionTypeDocument
}

// Kinds of the representations that are not registered by the user
const (
	KindGenericCollection = "GenericCollection"
	KindGenericEdges      = "Edges"
	KindSystemCollection  = "SystemCollection"
)

// CollectionInfo is the part of a server collection item the client reads.
// Everything else stays in the raw item.
type CollectionInfo struct {
	ID       string                `json:"id,omitempty"`
	Name     string                `json:"name"`
	IsSystem bool                  `json:"isSystem"`
	Type     driver.CollectionType `json:"type"`
	Status   int                   `json:"status,omitempty"`
}

// Collection is the local handle of a remote collection
type Collection struct {
	name     string
	kind     string
	category Category
	info     CollectionInfo
	raw      json.RawMessage
}

func (c *Collection) Name() string { return c.name }

// Kind is the registered type name, or one of the generic kinds
func (c *Collection) Kind() string { return c.kind }

func (c *Collection) Category() Category { return c.category }

func (c *Collection) IsEdge() bool { return c.category == CategoryEdge }

func (c *Collection) IsSystem() bool { return c.category == CategorySystem }

func (c *Collection) Info() CollectionInfo { return c.info }

// Raw is the collection item as the server sent it
func (c *Collection) Raw() json.RawMessage { return c.raw }

// Export implements the handler Item interface
func (c *Collection) Export() map[string]interface{} {
	return map[string]interface{}{
		"id":       c.info.ID,
		"name":     c.name,
		"kind":     c.kind,
		"category": c.category.String(),
		"status":   c.info.Status,
	}
}

func (c *Collection) String() string {
	return "ArangoDB collection: " + c.name + " (" + c.category.String() + ")"
}
