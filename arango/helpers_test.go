package arango

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wonderstone/arangostorm/local"
)

const testDB = "social"

// newServer seeds the collections used across the tests
func newServer(t *testing.T) *local.Server {
	t.Helper()
	s := local.NewServer(testDB)
	require.NoError(t, s.AddCollection(testDB, "_system", false, true))
	require.NoError(t, s.AddCollection(testDB, "users", false, false))
	require.NoError(t, s.AddCollection(testDB, "groups", false, false))
	require.NoError(t, s.AddCollection(testDB, "knows", true, false))
	return s
}

func openDB(t *testing.T, s *local.Server, opts ...Option) *Database {
	t.Helper()
	db, err := Open(context.Background(), s, testDB, opts...)
	require.NoError(t, err)
	s.ResetCalls()
	return db
}

func mustCollectionTypes(t *testing.T, types ...CollectionType) *CollectionRegistry {
	t.Helper()
	r, err := NewCollectionRegistry(types...)
	require.NoError(t, err)
	return r
}

func mustGraphTypes(t *testing.T, types ...GraphType) *GraphRegistry {
	t.Helper()
	r, err := NewGraphRegistry(types...)
	require.NoError(t, err)
	return r
}
