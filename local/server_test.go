package local

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func do(t *testing.T, s *Server, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	resp, err := s.Do(context.Background(), method, path, body)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Body, &out))
	return resp.StatusCode, out
}

func TestServer_Collections(t *testing.T) {
	s := NewServer("social")
	require.NoError(t, s.AddCollection("social", "_system", false, true))

	status, out := do(t, s, http.MethodPost, "_db/social/_api/collection", map[string]interface{}{"name": "users", "type": 2})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, out["error"])
	assert.Equal(t, "users", out["name"])

	status, out = do(t, s, http.MethodPost, "_db/social/_api/collection", map[string]interface{}{"name": "users"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "duplicate name", out["errorMessage"])

	status, _ = do(t, s, http.MethodPost, "_db/social/_api/collection", map[string]interface{}{"name": "_hidden"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, out = do(t, s, http.MethodGet, "_db/social/_api/collection", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, out["collections"], 2)

	assert.Equal(t, []string{"_system", "users"}, s.CollectionNames("social"))
	assert.Equal(t, 3, s.CountCalls(http.MethodPost, "/collection"))
	assert.Equal(t, 1, s.CountCalls(http.MethodGet, "/collection"))
}

func TestServer_DropCollectionByID(t *testing.T) {
	s := NewServer("db")
	_, out := do(t, s, http.MethodPost, "_db/db/_api/collection", map[string]interface{}{"name": "users"})

	require.NoError(t, s.DropCollection("db", out["id"].(string)))
	assert.Empty(t, s.CollectionNames("db"))
	assert.Error(t, s.DropCollection("db", "users"))
}

func TestServer_Graphs(t *testing.T) {
	s := NewServer("db")
	require.NoError(t, s.AddCollection("db", "users", false, false))

	payload := map[string]interface{}{
		"name": "g1",
		"edgeDefinitions": []map[string]interface{}{
			{"collection": "knows", "from": []string{"users"}, "to": []string{"groups"}},
		},
	}
	status, out := do(t, s, http.MethodPost, "_db/db/_api/gharial", payload)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "g1", out["graph"].(map[string]interface{})["_key"])
	// missing collections are created like the server does
	assert.Equal(t, []string{"groups", "knows", "users"}, s.CollectionNames("db"))

	status, _ = do(t, s, http.MethodPost, "_db/db/_api/gharial", payload)
	assert.Equal(t, http.StatusConflict, status)

	payload["name"] = "g2"
	payload["edgeDefinitions"] = []map[string]interface{}{
		{"collection": "users", "from": []string{"users"}, "to": []string{"users"}},
	}
	status, out = do(t, s, http.MethodPost, "_db/db/_api/gharial", payload)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, out["errorMessage"], "not an edge collection")

	status, out = do(t, s, http.MethodGet, "_db/db/_api/gharial", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, out["graphs"], 1)
}

func TestServer_CursorPaging(t *testing.T) {
	s := NewServer("db")
	require.NoError(t, s.AddCollection("db", "users", false, false))
	for i := 0; i < 5; i++ {
		_, err := s.InsertDocument("db", "users", map[string]interface{}{"n": i})
		require.NoError(t, err)
	}

	status, out := do(t, s, http.MethodPost, "_db/db/_api/cursor", map[string]interface{}{
		"query": "FOR u IN users RETURN u", "batchSize": 2, "count": true,
	})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, true, out["hasMore"])
	assert.Equal(t, float64(5), out["count"])
	id := out["id"].(string)

	seen := len(out["result"].([]interface{}))
	for out["hasMore"] == true {
		status, out = do(t, s, http.MethodPut, "_db/db/_api/cursor/"+id, nil)
		require.Equal(t, http.StatusOK, status)
		seen += len(out["result"].([]interface{}))
	}
	assert.Equal(t, 5, seen)

	status, _ = do(t, s, http.MethodPut, "_db/db/_api/cursor/"+id, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCheckQuery(t *testing.T) {
	tests := []struct {
		query string
		ok    bool
	}{
		{"FOR u IN users RETURN u", true},
		{"FOR u IN users FILTER u.name == 'a(' RETURN u", true},
		{"RETURN [1, 2, {a: (1)}]", true},
		{"", false},
		{"FOR u IN users", false},
		{"RETURN (1", false},
		{"RETURN 1)", false},
		{"RETURN 'abc", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			err := CheckQuery(tt.query)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestServer_Faults(t *testing.T) {
	s := NewServer("db")
	s.FailNext(http.MethodGet, "/collection", http.StatusInternalServerError, "boom")

	status, out := do(t, s, http.MethodGet, "_db/db/_api/collection", nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "boom", out["errorMessage"])

	// faults are consumed once
	status, _ = do(t, s, http.MethodGet, "_db/db/_api/collection", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = do(t, s, http.MethodGet, "_db/other/_api/collection", nil)
	assert.Equal(t, http.StatusNotFound, status)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Do(ctx, http.MethodGet, "_db/db/_api/collection", nil)
	assert.Error(t, err)
}

func TestServer_SaveLoad(t *testing.T) {
	p := filepath.Join(t.TempDir(), "state", "server.json")

	s := NewServer("db")
	require.NoError(t, s.AddCollection("db", "users", false, false))
	require.NoError(t, s.AddCollection("db", "knows", true, false))
	require.NoError(t, s.AddGraph("db", "g1", "knows", []string{"users"}, []string{"users"}))
	_, err := s.InsertDocument("db", "users", map[string]interface{}{"_key": "alice"})
	require.NoError(t, err)
	require.NoError(t, s.Save(p))

	loaded, err := LoadServer(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"knows", "users"}, loaded.CollectionNames("db"))

	_, out := do(t, loaded, http.MethodGet, "_db/db/_api/gharial", nil)
	assert.Len(t, out["graphs"], 1)

	// ids keep growing after a reload
	_, out = do(t, loaded, http.MethodPost, "_db/db/_api/collection", map[string]interface{}{"name": "groups"})
	assert.NotEqual(t, "", out["id"])
	require.NoError(t, loaded.DropCollection("db", out["id"].(string)))

	fresh, err := LoadServer(filepath.Join(t.TempDir(), "missing.json"), "db")
	require.NoError(t, err)
	assert.Empty(t, fresh.CollectionNames("db"))
}

func TestLoadServer_NullEntries(t *testing.T) {
	p := filepath.Join(t.TempDir(), "server.json")
	require.NoError(t, os.WriteFile(p, []byte(`{
  "nextID": 7,
  "databases": {
    "db": {
      "collections": {"x": null, "users": {"id": "3", "name": "users", "type": 2}},
      "graphs": {"g": null}
    },
    "empty": null
  }
}`), 0o644))

	s, err := LoadServer(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, s.CollectionNames("db"))
	assert.Empty(t, s.CollectionNames("empty"))

	_, out := do(t, s, http.MethodGet, "_db/db/_api/gharial", nil)
	assert.Empty(t, out["graphs"])

	// the restored collection is reachable by id
	require.NoError(t, s.DropCollection("db", "3"))
	assert.Empty(t, s.CollectionNames("db"))
}

func TestLoadServer_Corrupt(t *testing.T) {
	p := filepath.Join(t.TempDir(), "server.json")
	require.NoError(t, os.WriteFile(p, []byte("{not json"), 0o644))

	_, err := LoadServer(p)
	assert.Error(t, err)
}

func TestServer_CurrentDatabase(t *testing.T) {
	s := NewServer("db")

	code, out := do(t, s, http.MethodGet, "_db/db/_api/database/current", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "db", out["result"].(map[string]interface{})["name"])

	code, out = do(t, s, http.MethodGet, "_db/other/_api/database/current", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, true, out["error"])
}
