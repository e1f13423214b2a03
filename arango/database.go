package arango

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	driver "github.com/arangodb/go-driver"
	"github.com/emirpasic/gods/maps/treemap"
	"github.com/rs/zerolog"
	"github.com/wonderstone/arangostorm/handler"
)

// State of a Database handle
type State int

const (
	StateUninitialized State = iota
	StateReconciled
	// a lookup missed and the handle is paying for a full refresh
	StateStalePendingLookup
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReconciled:
		return "reconciled"
	case StateStalePendingLookup:
		return "stale-pending-lookup"
	default:
		return "unknown"
	}
}

// Option configures a Database in Open
type Option func(*Database)

// WithCollectionTypes sets the specialized collection types
func WithCollectionTypes(r *CollectionRegistry) Option {
	return func(db *Database) { db.collectionTypes = r }
}

// WithGraphTypes sets the specialized graph types
func WithGraphTypes(r *GraphRegistry) Option {
	return func(db *Database) { db.graphTypes = r }
}

func WithLogger(l zerolog.Logger) Option {
	return func(db *Database) { db.logger = l }
}

// Database is the client side handle of one logical database.
// The two registries mirror the server as of the last successful reconciliation.
//
// Creation checks for local duplicates without holding the lock over the remote
// call, so two concurrent creations of one name may both reach the server; the
// server rejects the second one and that error is returned as a CreationError.
type Database struct {
	name      string
	transport handler.Transport

	collectionTypes *CollectionRegistry
	graphTypes      *GraphRegistry

	logger zerolog.Logger

	mu          sync.RWMutex
	state       State
	collections *treemap.Map // name -> *Collection
	graphs      *treemap.Map // name -> *Graph
}

// Open builds the handle and runs the initial reconciliation, which must succeed
func Open(ctx context.Context, transport handler.Transport, name string, opts ...Option) (*Database, error) {
	if transport == nil {
		return nil, newError(ErrCodeConstraint, "a transport is required")
	}
	if name == "" {
		return nil, newError(ErrCodeConstraint, "a database name is required")
	}

	db := &Database{
		name:        name,
		transport:   transport,
		logger:      zerolog.Nop(),
		state:       StateUninitialized,
		collections: treemap.NewWithStringComparator(),
		graphs:      treemap.NewWithStringComparator(),
	}
	for _, opt := range opts {
		opt(db)
	}

	if err := db.Reconcile(ctx); err != nil {
		return nil, err
	}
	db.logger.Info().Str("db", name).
		Int("collections", db.collections.Size()).
		Int("graphs", db.graphs.Size()).
		Msg("database opened")
	return db, nil
}

func (db *Database) Name() string { return db.name }

func (db *Database) String() string { return "ArangoDB database: " + db.name }

func (db *Database) State() State {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.state
}

// Export implements the handler Item interface
func (db *Database) Export() map[string]interface{} {
	return map[string]interface{}{
		"name":        db.name,
		"state":       db.State().String(),
		"collections": db.CollectionNames(),
		"graphs":      db.GraphNames(),
	}
}

// - Lookup operations

func (db *Database) HasCollection(name string) bool {
	_, ok := db.localCollection(name)
	return ok
}

func (db *Database) HasGraph(name string) bool {
	_, ok := db.localGraph(name)
	return ok
}

// CollectionNames returns the registered collection names, sorted
func (db *Database) CollectionNames() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return stringKeys(db.collections)
}

// GraphNames returns the registered graph names, sorted
func (db *Database) GraphNames() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return stringKeys(db.graphs)
}

// Collections returns a snapshot of the registry, sorted by name
func (db *Database) Collections() []*Collection {
	db.mu.RLock()
	defer db.mu.RUnlock()
	cols := make([]*Collection, 0, db.collections.Size())
	for _, v := range db.collections.Values() {
		cols = append(cols, v.(*Collection))
	}
	return cols
}

// Graphs returns a snapshot of the registry, sorted by name
func (db *Database) Graphs() []*Graph {
	db.mu.RLock()
	defer db.mu.RUnlock()
	graphs := make([]*Graph, 0, db.graphs.Size())
	for _, v := range db.graphs.Values() {
		graphs = append(graphs, v.(*Graph))
	}
	return graphs
}

// Collection returns the named collection. A miss pays for one full
// reconciliation, not a targeted fetch, then the lookup is retried once.
func (db *Database) Collection(ctx context.Context, name string) (*Collection, error) {
	if c, ok := db.localCollection(name); ok {
		return c, nil
	}
	if err := db.refresh(ctx); err != nil {
		return nil, err
	}
	if c, ok := db.localCollection(name); ok {
		return c, nil
	}
	return nil, newError(ErrCodeNotFound, "can't find any collection named %s in %s", name, db.name)
}

// Graph follows the same lazy refresh policy as Collection
func (db *Database) Graph(ctx context.Context, name string) (*Graph, error) {
	if g, ok := db.localGraph(name); ok {
		return g, nil
	}
	if err := db.refresh(ctx); err != nil {
		return nil, err
	}
	if g, ok := db.localGraph(name); ok {
		return g, nil
	}
	return nil, newError(ErrCodeNotFound, "can't find any graph named %s in %s", name, db.name)
}

func (db *Database) refresh(ctx context.Context) error {
	db.mu.Lock()
	db.state = StateStalePendingLookup
	db.mu.Unlock()

	db.logger.Debug().Str("db", db.name).Msg("lookup miss, reconciling")
	return db.Reconcile(ctx)
}

func (db *Database) localCollection(name string) (*Collection, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	v, ok := db.collections.Get(name)
	if !ok {
		return nil, false
	}
	return v.(*Collection), true
}

func (db *Database) localGraph(name string) (*Graph, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	v, ok := db.graphs.Get(name)
	if !ok {
		return nil, false
	}
	return v.(*Graph), true
}

func stringKeys(m *treemap.Map) []string {
	names := make([]string, 0, m.Size())
	for _, k := range m.Keys() {
		names = append(names, k.(string))
	}
	return names
}

// + Create operations

// CreateCollection creates a collection of the given kind.
// A registered kind names the collection itself and args must not carry a name.
// GenericCollection and Edges need args["name"]. The "type" arg is always
// replaced by the category of the kind.
func (db *Database) CreateCollection(ctx context.Context, kind string, args map[string]interface{}) (*Collection, error) {
	if kind == "" {
		kind = KindGenericCollection
	}

	payload := make(map[string]interface{})
	var name string
	category := CategoryDocument

	switch kind {
	case KindGenericCollection, KindGenericEdges:
		n, ok := args["name"].(string)
		if !ok || n == "" {
			return nil, newError(ErrCodeConstraint, "a 'name' argument must be supplied to create a %s", kind)
		}
		name = n
		if kind == KindGenericEdges {
			category = CategoryEdge
		}
	default:
		t, ok := db.collectionTypes.Lookup(kind)
		if !ok {
			return nil, newError(ErrCodeConstraint, "%s is not a registered collection type", kind)
		}
		if n, has := args["name"]; has {
			return nil, newError(ErrCodeConstraint, "collection type %s names its collection, a name argument (%v) is redundant", kind, n)
		}
		name, category = t.Name, t.Category
		for k, v := range t.Defaults {
			payload[k] = v
		}
	}

	for k, v := range args {
		payload[k] = v
	}
	payload["name"] = name
	payload["type"] = category.collectionType()

	if db.HasCollection(name) {
		return nil, newError(ErrCodeCreation, "database %s already has a collection named %s", db.name, name)
	}

	r, err := db.call(ctx, http.MethodPost, db.apiPath("collection"), payload)
	if err != nil {
		return nil, wrapError(ErrCodeCreation, err, "create collection %s", name)
	}
	if !r.ok(codesCreateCollection...) {
		e := serverError(ErrCodeCreation, r, "create collection %s", name)
		db.logger.Warn().Err(e).Str("db", db.name).Str("collection", name).Msg("collection creation failed")
		return nil, e
	}

	var info CollectionInfo
	if err := r.decode(&info); err != nil {
		e := wrapError(ErrCodeCreation, err, "decode created collection %s", name)
		e.Body = r.body
		return nil, e
	}
	if info.Name == "" {
		info.Name = name
	}
	if info.Type == 0 {
		info.Type = category.collectionType()
	}

	col := db.collectionTypes.newCollection(info, r.body)
	db.mu.Lock()
	db.collections.Put(col.Name(), col)
	db.mu.Unlock()

	db.logger.Info().Str("db", db.name).Str("collection", col.Name()).
		Str("kind", col.Kind()).Str("category", col.Category().String()).
		Msg("collection created")
	return col, nil
}

// CreateGraph creates a graph of one edge definition.
// from and to must be lists, orphans may be nil. The definition is validated
// against the local registry before anything is sent.
func (db *Database) CreateGraph(ctx context.Context, name, edgeCollection string, from, to, orphans []string) (*Graph, error) {
	if name == "" {
		return nil, newError(ErrCodeConstraint, "a graph name is required")
	}
	if edgeCollection == "" {
		return nil, newError(ErrCodeConstraint, "an edge collection name is required")
	}
	if from == nil || to == nil {
		return nil, newError(ErrCodeConstraint, "the values of from and to collections must be lists")
	}
	if orphans == nil {
		orphans = []string{}
	}
	for _, lst := range [][]string{from, to, orphans} {
		if err := checkNames(lst); err != nil {
			return nil, err
		}
	}

	eds := []driver.EdgeDefinition{{Collection: edgeCollection, From: from, To: to}}
	return db.createGraph(ctx, name, eds, orphans)
}

// CreateGraphFromType creates the graph declared by a registered graph type
func (db *Database) CreateGraphFromType(ctx context.Context, name string) (*Graph, error) {
	t, ok := db.graphTypes.Lookup(name)
	if !ok {
		return nil, newError(ErrCodeConstraint, "%s is not a registered graph type", name)
	}
	orphans := t.OrphanCollections
	if orphans == nil {
		orphans = []string{}
	}
	for _, ed := range t.EdgeDefinitions {
		if ed.From == nil || ed.To == nil {
			return nil, newError(ErrCodeConstraint, "graph type %s: from and to of %s must be lists", name, ed.Collection)
		}
	}
	return db.createGraph(ctx, name, t.EdgeDefinitions, orphans)
}

func checkNames(names []string) error {
	for _, n := range names {
		if n == "" {
			return newError(ErrCodeConstraint, "collection names must not be empty")
		}
	}
	return nil
}

func (db *Database) createGraph(ctx context.Context, name string, eds []driver.EdgeDefinition, orphans []string) (*Graph, error) {
	if db.HasGraph(name) {
		return nil, newError(ErrCodeCreation, "database %s already has a graph named %s", db.name, name)
	}
	if err := db.Validate(eds, orphans); err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"name":              name,
		"edgeDefinitions":   eds,
		"orphanCollections": orphans,
	}
	r, err := db.call(ctx, http.MethodPost, db.apiPath("gharial"), payload)
	if err != nil {
		return nil, wrapError(ErrCodeCreation, err, "create graph %s", name)
	}
	if !r.ok(codesCreateGraph...) {
		e := serverError(ErrCodeCreation, r, "create graph %s", name)
		db.logger.Warn().Err(e).Str("db", db.name).Str("graph", name).Msg("graph creation failed")
		return nil, e
	}

	var created struct {
		Graph json.RawMessage `json:"graph"`
	}
	if err := r.decode(&created); err != nil || len(created.Graph) == 0 {
		e := wrapError(ErrCodeCreation, err, "decode created graph %s", name)
		e.Body = r.body
		return nil, e
	}
	g, err := db.graphTypes.newGraph(created.Graph)
	if err != nil {
		e := wrapError(ErrCodeCreation, err, "decode created graph %s", name)
		e.Body = r.body
		return nil, e
	}

	db.mu.Lock()
	db.graphs.Put(g.Name(), g)
	db.mu.Unlock()

	db.logger.Info().Str("db", db.name).Str("graph", g.Name()).Str("kind", g.Kind()).Msg("graph created")
	return g, nil
}

// + Query operations

// Query builds a query handle bound to this database; nothing is sent until Execute
func (db *Database) Query(query string, rawResults bool, batchSize int, bindVars, options map[string]interface{}, count, fullCount bool) *Query {
	return &Query{
		db:         db,
		Text:       query,
		RawResults: rawResults,
		BatchSize:  batchSize,
		BindVars:   bindVars,
		Options:    options,
		Count:      count,
		FullCount:  fullCount,
	}
}

// ValidateQuery sends the query to the cursor endpoint and returns the server answer.
// A rejection is a QuerySyntaxError carrying the query and the server message.
func (db *Database) ValidateQuery(ctx context.Context, query string, bindVars, options map[string]interface{}) (map[string]interface{}, error) {
	if bindVars == nil {
		bindVars = map[string]interface{}{}
	}
	if options == nil {
		options = map[string]interface{}{}
	}
	payload := map[string]interface{}{
		"query":    query,
		"bindVars": bindVars,
		"options":  options,
	}

	r, err := db.call(ctx, http.MethodPost, db.apiPath("cursor"), payload)
	if err != nil {
		e := wrapError(ErrCodeQuery, err, "validate query")
		e.Query = query
		return nil, e
	}
	if !r.ok(codesCursorCreate...) {
		e := serverError(ErrCodeQuerySyntax, r, "query rejected")
		e.Query = query
		return nil, e
	}

	var ack map[string]interface{}
	if err := r.decode(&ack); err != nil {
		e := wrapError(ErrCodeQuery, err, "decode query validation")
		e.Query = query
		e.Body = r.body
		return nil, e
	}
	return ack, nil
}

var _ handler.Item = (*Database)(nil)
