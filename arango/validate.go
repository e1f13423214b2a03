package arango

import (
	driver "github.com/arangodb/go-driver"
	"github.com/emirpasic/gods/maps/treemap"
)

// Validate checks a graph definition against the last reconciled collections.
// It makes no network call, so it can pass on stale metadata; the server stays the final judge.
//
// Only the edge collection of a definition must be an edge collection.
// From, to and orphan names only have to exist.
func (db *Database) Validate(edgeDefinitions []driver.EdgeDefinition, orphanCollections []string) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return validateGraph(db.collections, edgeDefinitions, orphanCollections)
}

func validateGraph(cols *treemap.Map, edgeDefinitions []driver.EdgeDefinition, orphanCollections []string) error {
	if len(edgeDefinitions) == 0 && len(orphanCollections) == 0 {
		return newError(ErrCodeConstraint, "a graph needs at least one edge definition or orphan collection")
	}

	checkList := func(names []string) error {
		for _, name := range names {
			if _, ok := cols.Get(name); !ok {
				return newError(ErrCodeValidation, "'%s' is not a defined collection", name)
			}
		}
		return nil
	}

	for _, ed := range edgeDefinitions {
		v, ok := cols.Get(ed.Collection)
		if !ok || !v.(*Collection).IsEdge() {
			return newError(ErrCodeValidation, "'%s' is not a defined edge collection", ed.Collection)
		}
		if err := checkList(ed.From); err != nil {
			return err
		}
		if err := checkList(ed.To); err != nil {
			return err
		}
	}

	return checkList(orphanCollections)
}
