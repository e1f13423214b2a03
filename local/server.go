package local

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/emirpasic/gods/maps/hashbidimap"
	"github.com/google/uuid"
	"github.com/wonderstone/arangostorm/handler"
)

const (
	collectionTypeDocument = 2
	collectionTypeEdge     = 3
)

// Call is one request the server received
type Call struct {
	Method string
	Path   string
	Body   json.RawMessage
}

type collection struct {
	ID       string                   `json:"id"`
	Name     string                   `json:"name"`
	IsSystem bool                     `json:"isSystem"`
	Type     int                      `json:"type"`
	Status   int                      `json:"status"`
	Docs     []map[string]interface{} `json:"docs,omitempty"`
}

type edgeDefinition struct {
	Collection string   `json:"collection"`
	From       []string `json:"from"`
	To         []string `json:"to"`
}

type graph struct {
	Key               string           `json:"_key"`
	Name              string           `json:"name"`
	EdgeDefinitions   []edgeDefinition `json:"edgeDefinitions"`
	OrphanCollections []string         `json:"orphanCollections"`
}

type cursor struct {
	pending   []interface{}
	batchSize int
	count     int
	withCount bool
}

// database 代表一个数据库的内存状态
type database struct {
	Collections map[string]*collection `json:"collections"` // key is the name of the collection
	Graphs      map[string]*graph      `json:"graphs"`      // key is the name of the graph

	// BidiMap for collection ID : collection name
	ids     *hashbidimap.Map
	cursors map[string]*cursor
}

func newDatabase() *database {
	return &database{
		Collections: make(map[string]*collection),
		Graphs:      make(map[string]*graph),
		ids:         hashbidimap.New(),
		cursors:     make(map[string]*cursor),
	}
}

type fault struct {
	method string
	suffix string
	status int
	body   map[string]interface{}
}

// Server is an in-memory ArangoDB that answers the collection, gharial and
// cursor apis of its databases. It implements handler.Transport.
type Server struct {
	m         sync.Mutex
	databases map[string]*database
	nextID    int
	calls     []Call
	faults    []fault

	// QueryCheck decides whether a query parses; nil uses CheckQuery
	QueryCheck func(query string) error
}

// NewServer creates a server holding empty databases of the given names
func NewServer(dbNames ...string) *Server {
	s := &Server{
		databases: make(map[string]*database),
		nextID:    1000,
	}
	for _, name := range dbNames {
		s.databases[name] = newDatabase()
	}
	return s
}

func (s *Server) db(name string) (*database, error) {
	d, ok := s.databases[name]
	if !ok {
		return nil, fmt.Errorf("database %s not found", name)
	}
	return d, nil
}

func (s *Server) newID() string {
	s.nextID++
	return strconv.Itoa(s.nextID)
}

// AddCollection creates a collection directly, without recording a call
func (s *Server) AddCollection(dbName, name string, edge, system bool) error {
	s.m.Lock()
	defer s.m.Unlock()
	d, err := s.db(dbName)
	if err != nil {
		return err
	}
	typ := collectionTypeDocument
	if edge {
		typ = collectionTypeEdge
	}
	_, err = s.addCollection(d, name, typ, system)
	return err
}

func (s *Server) addCollection(d *database, name string, typ int, system bool) (*collection, error) {
	if _, ok := d.Collections[name]; ok {
		return nil, fmt.Errorf("duplicate name: %s", name)
	}
	c := &collection{ID: s.newID(), Name: name, IsSystem: system, Type: typ, Status: 3}
	d.Collections[name] = c
	d.ids.Put(c.ID, name)
	return c, nil
}

// DropCollection removes a collection by name or id
func (s *Server) DropCollection(dbName, nameOrID string) error {
	s.m.Lock()
	defer s.m.Unlock()
	d, err := s.db(dbName)
	if err != nil {
		return err
	}
	name := nameOrID
	if v, ok := d.ids.Get(nameOrID); ok {
		name = v.(string)
	}
	if _, ok := d.Collections[name]; !ok {
		return fmt.Errorf("collection %s not found", nameOrID)
	}
	delete(d.Collections, name)
	if id, ok := d.ids.GetKey(name); ok {
		d.ids.Remove(id)
	}
	return nil
}

// AddGraph creates a graph directly, without checking its collections
func (s *Server) AddGraph(dbName, name string, edgeCollection string, from, to []string) error {
	s.m.Lock()
	defer s.m.Unlock()
	d, err := s.db(dbName)
	if err != nil {
		return err
	}
	d.Graphs[name] = &graph{
		Key:               name,
		Name:              name,
		EdgeDefinitions:   []edgeDefinition{{Collection: edgeCollection, From: from, To: to}},
		OrphanCollections: []string{},
	}
	return nil
}

// DropGraph removes a graph, keeping its collections
func (s *Server) DropGraph(dbName, name string) error {
	s.m.Lock()
	defer s.m.Unlock()
	d, err := s.db(dbName)
	if err != nil {
		return err
	}
	if _, ok := d.Graphs[name]; !ok {
		return fmt.Errorf("graph %s not found", name)
	}
	delete(d.Graphs, name)
	return nil
}

// InsertDocument stores a document and returns its _id
func (s *Server) InsertDocument(dbName, collectionName string, doc map[string]interface{}) (string, error) {
	s.m.Lock()
	defer s.m.Unlock()
	d, err := s.db(dbName)
	if err != nil {
		return "", err
	}
	c, ok := d.Collections[collectionName]
	if !ok {
		return "", fmt.Errorf("collection %s not found", collectionName)
	}
	if c.Type == collectionTypeEdge {
		if _, ok := doc["_from"]; !ok {
			return "", fmt.Errorf("edge document without _from")
		}
		if _, ok := doc["_to"]; !ok {
			return "", fmt.Errorf("edge document without _to")
		}
	}

	stored := make(map[string]interface{}, len(doc)+3)
	for k, v := range doc {
		stored[k] = v
	}
	key, _ := stored["_key"].(string)
	if key == "" {
		key = s.newID()
	}
	stored["_key"] = key
	stored["_id"] = collectionName + "/" + key
	stored["_rev"] = s.newID()
	c.Docs = append(c.Docs, stored)
	return stored["_id"].(string), nil
}

// FailNext makes the next request whose method matches and whose path ends
// with suffix answer status with an error body carrying message
func (s *Server) FailNext(method, suffix string, status int, message string) {
	s.m.Lock()
	defer s.m.Unlock()
	s.faults = append(s.faults, fault{
		method: method,
		suffix: suffix,
		status: status,
		body:   errorBody(status, status, message),
	})
}

// AnswerNext makes the next matching request answer status with body verbatim
func (s *Server) AnswerNext(method, suffix string, status int, body map[string]interface{}) {
	s.m.Lock()
	defer s.m.Unlock()
	s.faults = append(s.faults, fault{method: method, suffix: suffix, status: status, body: body})
}

// Calls returns the requests received so far
func (s *Server) Calls() []Call {
	s.m.Lock()
	defer s.m.Unlock()
	return append([]Call(nil), s.calls...)
}

// CountCalls counts the requests of method whose path ends with suffix
func (s *Server) CountCalls(method, suffix string) int {
	s.m.Lock()
	defer s.m.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Method == method && strings.HasSuffix(c.Path, suffix) {
			n++
		}
	}
	return n
}

// ResetCalls forgets the recorded requests
func (s *Server) ResetCalls() {
	s.m.Lock()
	defer s.m.Unlock()
	s.calls = nil
}

// CollectionNames lists the collections of a database, sorted
func (s *Server) CollectionNames(dbName string) []string {
	s.m.Lock()
	defer s.m.Unlock()
	d, err := s.db(dbName)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(d.Collections))
	for n := range d.Collections {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

var pathPattern = regexp.MustCompile(`^/?_db/([^/]+)/_api/(.+)$`)

// Do implements handler.Transport
func (s *Server) Do(ctx context.Context, method, path string, body interface{}) (*handler.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body of %s %s: %w", method, path, err)
		}
		raw = b
	}

	s.m.Lock()
	defer s.m.Unlock()
	s.calls = append(s.calls, Call{Method: method, Path: path, Body: raw})

	status, out := s.route(method, path, raw)
	b, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return &handler.Response{StatusCode: status, Body: b}, nil
}

func (s *Server) route(method, path string, body json.RawMessage) (int, map[string]interface{}) {
	for i, f := range s.faults {
		if f.method == method && strings.HasSuffix(path, f.suffix) {
			s.faults = append(s.faults[:i], s.faults[i+1:]...)
			return f.status, f.body
		}
	}

	m := pathPattern.FindStringSubmatch(path)
	if m == nil {
		return http.StatusNotFound, errorBody(http.StatusNotFound, 404, "unknown path "+path)
	}
	d, err := s.db(m[1])
	if err != nil {
		return http.StatusNotFound, errorBody(http.StatusNotFound, 1228, "database not found")
	}

	parts := strings.Split(m[2], "/")
	switch {
	case parts[0] == "database" && len(parts) == 2 && parts[1] == "current":
		if method == http.MethodGet {
			out := okBody(http.StatusOK)
			out["result"] = map[string]interface{}{"name": m[1], "isSystem": m[1] == "_system"}
			return http.StatusOK, out
		}
	case parts[0] == "collection" && len(parts) == 1:
		switch method {
		case http.MethodGet:
			return s.listCollections(d)
		case http.MethodPost:
			return s.createCollection(d, body)
		}
	case parts[0] == "gharial" && len(parts) == 1:
		switch method {
		case http.MethodGet:
			return s.listGraphs(d)
		case http.MethodPost:
			return s.createGraph(d, body)
		}
	case parts[0] == "cursor" && len(parts) == 1 && method == http.MethodPost:
		return s.createCursor(d, body)
	case parts[0] == "cursor" && len(parts) == 2:
		switch method {
		case http.MethodPut, http.MethodPost:
			return s.nextBatch(d, parts[1])
		case http.MethodDelete:
			return s.deleteCursor(d, parts[1])
		}
	default:
		return http.StatusNotFound, errorBody(http.StatusNotFound, 404, "unknown path "+path)
	}
	return http.StatusMethodNotAllowed, errorBody(http.StatusMethodNotAllowed, 405, "method not supported")
}

func errorBody(code, errorNum int, message string) map[string]interface{} {
	return map[string]interface{}{
		"error":        true,
		"code":         code,
		"errorNum":     errorNum,
		"errorMessage": message,
	}
}

func okBody(code int) map[string]interface{} {
	return map[string]interface{}{"error": false, "code": code}
}

func newCursorID() string {
	return uuid.New().String()
}
