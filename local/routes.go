package local

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
)

func (s *Server) listCollections(d *database) (int, map[string]interface{}) {
	names := make([]string, 0, len(d.Collections))
	for n := range d.Collections {
		names = append(names, n)
	}
	sort.Strings(names)

	items := make([]map[string]interface{}, 0, len(names))
	for _, n := range names {
		items = append(items, collectionItem(d.Collections[n]))
	}
	out := okBody(http.StatusOK)
	out["collections"] = items
	return http.StatusOK, out
}

func collectionItem(c *collection) map[string]interface{} {
	return map[string]interface{}{
		"id":       c.ID,
		"name":     c.Name,
		"isSystem": c.IsSystem,
		"type":     c.Type,
		"status":   c.Status,
	}
}

func (s *Server) createCollection(d *database, body json.RawMessage) (int, map[string]interface{}) {
	var req struct {
		Name     string `json:"name"`
		Type     int    `json:"type"`
		IsSystem bool   `json:"isSystem"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return http.StatusBadRequest, errorBody(http.StatusBadRequest, 600, "invalid json: "+err.Error())
	}
	if req.Name == "" {
		return http.StatusBadRequest, errorBody(http.StatusBadRequest, 1208, "illegal name")
	}
	if req.Type == 0 {
		req.Type = collectionTypeDocument
	}
	if req.Type != collectionTypeDocument && req.Type != collectionTypeEdge {
		return http.StatusBadRequest, errorBody(http.StatusBadRequest, 1218, "invalid collection type")
	}
	// only system collections may start with an underscore
	if strings.HasPrefix(req.Name, "_") && !req.IsSystem {
		return http.StatusBadRequest, errorBody(http.StatusBadRequest, 1208, "illegal name")
	}

	c, err := s.addCollection(d, req.Name, req.Type, req.IsSystem)
	if err != nil {
		return http.StatusConflict, errorBody(http.StatusConflict, 1207, "duplicate name")
	}
	out := okBody(http.StatusOK)
	for k, v := range collectionItem(c) {
		out[k] = v
	}
	return http.StatusOK, out
}

func graphItem(g *graph) map[string]interface{} {
	eds := make([]map[string]interface{}, 0, len(g.EdgeDefinitions))
	for _, ed := range g.EdgeDefinitions {
		eds = append(eds, map[string]interface{}{
			"collection": ed.Collection,
			"from":       ed.From,
			"to":         ed.To,
		})
	}
	return map[string]interface{}{
		"_key":              g.Key,
		"_id":               "_graphs/" + g.Key,
		"name":              g.Name,
		"edgeDefinitions":   eds,
		"orphanCollections": g.OrphanCollections,
	}
}

func (s *Server) listGraphs(d *database) (int, map[string]interface{}) {
	names := make([]string, 0, len(d.Graphs))
	for n := range d.Graphs {
		names = append(names, n)
	}
	sort.Strings(names)

	items := make([]map[string]interface{}, 0, len(names))
	for _, n := range names {
		items = append(items, graphItem(d.Graphs[n]))
	}
	out := okBody(http.StatusOK)
	out["graphs"] = items
	return http.StatusOK, out
}

// createGraph behaves like the server: missing collections are created,
// existing ones must have the right type
func (s *Server) createGraph(d *database, body json.RawMessage) (int, map[string]interface{}) {
	var req graph
	if err := json.Unmarshal(body, &req); err != nil {
		return http.StatusBadRequest, errorBody(http.StatusBadRequest, 600, "invalid json: "+err.Error())
	}
	if req.Name == "" {
		return http.StatusBadRequest, errorBody(http.StatusBadRequest, 1921, "graph name is missing")
	}
	if _, ok := d.Graphs[req.Name]; ok {
		return http.StatusConflict, errorBody(http.StatusConflict, 1925, "graph already exists")
	}

	for _, ed := range req.EdgeDefinitions {
		if c, ok := d.Collections[ed.Collection]; ok && c.Type != collectionTypeEdge {
			return http.StatusBadRequest, errorBody(http.StatusBadRequest, 1237,
				fmt.Sprintf("collection %s is not an edge collection", ed.Collection))
		}
	}
	for _, ed := range req.EdgeDefinitions {
		if _, ok := d.Collections[ed.Collection]; !ok {
			s.addCollection(d, ed.Collection, collectionTypeEdge, false)
		}
		for _, n := range append(append([]string{}, ed.From...), ed.To...) {
			if _, ok := d.Collections[n]; !ok {
				s.addCollection(d, n, collectionTypeDocument, false)
			}
		}
	}
	for _, n := range req.OrphanCollections {
		if _, ok := d.Collections[n]; !ok {
			s.addCollection(d, n, collectionTypeDocument, false)
		}
	}

	if req.OrphanCollections == nil {
		req.OrphanCollections = []string{}
	}
	req.Key = req.Name
	d.Graphs[req.Name] = &req

	out := okBody(http.StatusCreated)
	out["graph"] = graphItem(&req)
	return http.StatusCreated, out
}

var (
	forInReturn = regexp.MustCompile(`(?is)^\s*FOR\s+(\w+)\s+IN\s+(\w+)\s+RETURN\s+(\w+)\s*$`)
	keywords    = regexp.MustCompile(`(?i)\b(RETURN|INSERT|UPDATE|REPLACE|REMOVE|UPSERT)\b`)
)

// CheckQuery is a rough parser: the query must end in a data-producing or
// modifying statement and its brackets and quotes must balance
func CheckQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("query is empty")
	}
	if !keywords.MatchString(query) {
		return fmt.Errorf("syntax error, unexpected end of query string")
	}

	var stack []rune
	pairs := map[rune]rune{')': '(', ']': '[', '}': '{'}
	var quote rune
	for _, r := range query {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '(' || r == '[' || r == '{':
			stack = append(stack, r)
		case r == ')' || r == ']' || r == '}':
			if len(stack) == 0 || stack[len(stack)-1] != pairs[r] {
				return fmt.Errorf("syntax error, unexpected %q", r)
			}
			stack = stack[:len(stack)-1]
		}
	}
	if quote != 0 {
		return fmt.Errorf("syntax error, unterminated string")
	}
	if len(stack) != 0 {
		return fmt.Errorf("syntax error, unbalanced %q", stack[len(stack)-1])
	}
	return nil
}

func (s *Server) createCursor(d *database, body json.RawMessage) (int, map[string]interface{}) {
	var req struct {
		Query     string                 `json:"query"`
		BatchSize int                    `json:"batchSize"`
		Count     bool                   `json:"count"`
		BindVars  map[string]interface{} `json:"bindVars"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return http.StatusBadRequest, errorBody(http.StatusBadRequest, 600, "invalid json: "+err.Error())
	}

	check := s.QueryCheck
	if check == nil {
		check = CheckQuery
	}
	if err := check(req.Query); err != nil {
		return http.StatusBadRequest, errorBody(http.StatusBadRequest, 1501, err.Error())
	}

	// only full collection scans are executed, anything else returns nothing
	var results []interface{}
	if m := forInReturn.FindStringSubmatch(req.Query); m != nil && m[1] == m[3] {
		c, ok := d.Collections[m[2]]
		if !ok {
			return http.StatusNotFound, errorBody(http.StatusNotFound, 1203,
				fmt.Sprintf("collection or view not found: %s", m[2]))
		}
		for _, doc := range c.Docs {
			results = append(results, doc)
		}
	}

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}
	cur := &cursor{pending: results, batchSize: batchSize, count: len(results), withCount: req.Count}
	id := ""
	if len(results) > batchSize {
		id = newCursorID()
		d.cursors[id] = cur
	}

	out := cur.batch(http.StatusCreated)
	if id != "" {
		out["id"] = id
	}
	return http.StatusCreated, out
}

// batch pops the next batch and builds the cursor body
func (c *cursor) batch(code int) map[string]interface{} {
	n := c.batchSize
	if n > len(c.pending) {
		n = len(c.pending)
	}
	result := append([]interface{}{}, c.pending[:n]...)
	c.pending = c.pending[n:]

	out := okBody(code)
	out["result"] = result
	out["hasMore"] = len(c.pending) > 0
	out["extra"] = map[string]interface{}{}
	if c.withCount {
		out["count"] = c.count
	}
	return out
}

func (s *Server) nextBatch(d *database, id string) (int, map[string]interface{}) {
	cur, ok := d.cursors[id]
	if !ok {
		return http.StatusNotFound, errorBody(http.StatusNotFound, 1600, "cursor not found")
	}
	out := cur.batch(http.StatusOK)
	out["id"] = id
	if len(cur.pending) == 0 {
		delete(d.cursors, id)
	}
	return http.StatusOK, out
}

func (s *Server) deleteCursor(d *database, id string) (int, map[string]interface{}) {
	if _, ok := d.cursors[id]; !ok {
		return http.StatusNotFound, errorBody(http.StatusNotFound, 1600, "cursor not found")
	}
	delete(d.cursors, id)
	out := okBody(http.StatusAccepted)
	out["id"] = id
	return http.StatusAccepted, out
}
