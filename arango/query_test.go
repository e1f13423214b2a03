package arango

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_BuildOnly(t *testing.T) {
	s := newServer(t)
	db := openDB(t, s)

	q := db.Query("FOR u IN users RETURN u", false, 10, map[string]interface{}{"a": 1}, nil, true, true)
	assert.Equal(t, "FOR u IN users RETURN u", q.Text)
	assert.Equal(t, 10, q.BatchSize)
	assert.Empty(t, s.Calls())

	p := q.payload()
	assert.Equal(t, true, p["count"])
	assert.Equal(t, 10, p["batchSize"])
	assert.Equal(t, map[string]interface{}{"fullCount": true}, p["options"])
}

func TestQuery_ExecuteAndPage(t *testing.T) {
	ctx := context.Background()
	s := newServer(t)
	for _, name := range []string{"alice", "bob", "carol", "dave", "erin"} {
		_, err := s.InsertDocument(testDB, "users", map[string]interface{}{"_key": name, "age": 30})
		require.NoError(t, err)
	}
	_, err := s.InsertDocument(testDB, "knows", map[string]interface{}{"_from": "users/alice", "_to": "users/bob"})
	require.NoError(t, err)
	db := openDB(t, s)

	cur, err := db.Query("FOR u IN users RETURN u", false, 2, nil, nil, true, false).Execute(ctx)
	require.NoError(t, err)
	assert.True(t, cur.HasMore)
	assert.Equal(t, 5, cur.Count)
	assert.NotEmpty(t, cur.ID)

	docs, err := cur.Documents()
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "users", docs[0].Collection)
	assert.Equal(t, "alice", docs[0].Key)
	assert.Equal(t, float64(30), docs[0].Data["age"])

	rest, err := cur.ReadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, rest, 5)
	assert.False(t, cur.HasMore)

	err = cur.Next(ctx)
	assert.True(t, errors.Is(err, ErrConstraint))

	edges, err := db.Query("FOR e IN knows RETURN e", false, 0, nil, nil, false, false).Execute(ctx)
	require.NoError(t, err)
	docs, err = edges.Documents()
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.True(t, docs[0].IsEdge())
	assert.Equal(t, "users/alice", docs[0].From)
}

func TestQuery_CloseAndRaw(t *testing.T) {
	ctx := context.Background()
	s := newServer(t)
	for i := 0; i < 3; i++ {
		_, err := s.InsertDocument(testDB, "users", map[string]interface{}{"n": i})
		require.NoError(t, err)
	}
	db := openDB(t, s)

	cur, err := db.Query("FOR u IN users RETURN u", true, 1, nil, nil, false, false).Execute(ctx)
	require.NoError(t, err)
	_, err = cur.Documents()
	assert.True(t, errors.Is(err, ErrConstraint))
	assert.Len(t, cur.Result, 1)

	require.NoError(t, cur.Close(ctx))
	assert.Equal(t, 1, s.CountCalls(http.MethodDelete, "/cursor/"+cur.ID))
	// a closed cursor is gone on the server too
	cur.HasMore = true
	err = cur.Next(ctx)
	assert.True(t, errors.Is(err, ErrQuery))
}

func TestQuery_ExecuteFails(t *testing.T) {
	db := openDB(t, newServer(t))

	_, err := db.Query("FOR u IN nowhere RETURN u", false, 0, nil, nil, false, false).Execute(context.Background())
	require.True(t, errors.Is(err, ErrQuery))
	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "FOR u IN nowhere RETURN u", e.Query)
	assert.Contains(t, e.ServerMessage, "not found")
}
