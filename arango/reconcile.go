package arango

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/emirpasic/gods/maps/treemap"
)

// collectionList accepts both the legacy "collections" and the current "result" field
type collectionList struct {
	Collections []json.RawMessage `json:"collections"`
	Result      []json.RawMessage `json:"result"`
}

type graphList struct {
	Graphs []json.RawMessage `json:"graphs"`
}

// Reconcile refreshes collections, then graphs.
// Graph validation reads collection categories, so the order matters.
func (db *Database) Reconcile(ctx context.Context) error {
	if err := db.ReconcileCollections(ctx); err != nil {
		return err
	}
	if err := db.ReconcileGraphs(ctx); err != nil {
		return err
	}

	db.mu.Lock()
	db.state = StateReconciled
	db.mu.Unlock()
	return nil
}

// ReconcileCollections replaces the collection registry with the server list.
// On failure the registry is left as it was.
func (db *Database) ReconcileCollections(ctx context.Context) error {
	cols, err := db.fetchCollections(ctx)
	if err != nil {
		db.logger.Warn().Err(err).Str("db", db.name).Msg("collection reconciliation failed")
		return err
	}

	db.mu.Lock()
	db.collections = cols
	db.mu.Unlock()

	db.logger.Debug().Str("db", db.name).Int("collections", cols.Size()).Msg("collections reconciled")
	return nil
}

// ReconcileGraphs replaces the graph registry with the server list.
// On failure the registry is left as it was.
func (db *Database) ReconcileGraphs(ctx context.Context) error {
	graphs, err := db.fetchGraphs(ctx)
	if err != nil {
		db.logger.Warn().Err(err).Str("db", db.name).Msg("graph reconciliation failed")
		return err
	}

	db.mu.Lock()
	db.graphs = graphs
	db.mu.Unlock()

	db.logger.Debug().Str("db", db.name).Int("graphs", graphs.Size()).Msg("graphs reconciled")
	return nil
}

func (db *Database) fetchCollections(ctx context.Context) (*treemap.Map, error) {
	r, err := db.call(ctx, http.MethodGet, db.apiPath("collection"), nil)
	if err != nil {
		return nil, wrapError(ErrCodeMetadataFetch, err, "fetch collections of %s", db.name)
	}
	if !r.ok(codesList...) {
		return nil, serverError(ErrCodeMetadataFetch, r, "fetch collections of %s", db.name)
	}

	var list collectionList
	if err := r.decode(&list); err != nil {
		e := wrapError(ErrCodeMetadataFetch, err, "decode collections of %s", db.name)
		e.Body = r.body
		return nil, e
	}
	items := list.Collections
	if items == nil {
		items = list.Result
	}

	cols := treemap.NewWithStringComparator()
	for _, raw := range items {
		var info CollectionInfo
		if err := json.Unmarshal(raw, &info); err != nil {
			e := wrapError(ErrCodeMetadataFetch, err, "decode collection item of %s", db.name)
			e.Body = r.body
			return nil, e
		}
		if info.Name == "" {
			e := newError(ErrCodeMetadataFetch, "collection item without name in %s", db.name)
			e.Body = r.body
			return nil, e
		}
		cols.Put(info.Name, db.collectionTypes.newCollection(info, raw))
	}
	return cols, nil
}

func (db *Database) fetchGraphs(ctx context.Context) (*treemap.Map, error) {
	r, err := db.call(ctx, http.MethodGet, db.apiPath("gharial"), nil)
	if err != nil {
		return nil, wrapError(ErrCodeMetadataFetch, err, "fetch graphs of %s", db.name)
	}
	if !r.ok(codesList...) {
		return nil, serverError(ErrCodeMetadataFetch, r, "fetch graphs of %s", db.name)
	}

	var list graphList
	if err := r.decode(&list); err != nil {
		e := wrapError(ErrCodeMetadataFetch, err, "decode graphs of %s", db.name)
		e.Body = r.body
		return nil, e
	}

	graphs := treemap.NewWithStringComparator()
	for _, raw := range list.Graphs {
		g, err := db.graphTypes.newGraph(raw)
		if err != nil {
			e := wrapError(ErrCodeMetadataFetch, err, "decode graph item of %s", db.name)
			e.Body = r.body
			return nil, e
		}
		graphs.Put(g.Name(), g)
	}
	return graphs, nil
}
