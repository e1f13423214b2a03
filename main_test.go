package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/wonderstone/arangostorm/arango"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// cobra keeps flag values between executions of the same command tree
func resetFlags(c *cobra.Command) {
	for _, fs := range []*pflag.FlagSet{c.Flags(), c.PersistentFlags()} {
		fs.VisitAll(func(f *pflag.Flag) {
			if sv, ok := f.Value.(pflag.SliceValue); ok {
				_ = sv.Replace(nil)
			} else {
				_ = f.Value.Set(f.DefValue)
			}
			f.Changed = false
		})
	}
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func TestCLI_MemoryRoundTrip(t *testing.T) {
	dir := t.TempDir()
	state := filepath.Join(dir, "state.json")

	_, err := run(t, "--memory", state, "create-collection", "users")
	require.NoError(t, err)
	_, err = run(t, "--memory", state, "create-collection", "knows", "--kind", arango.KindGenericEdges)
	require.NoError(t, err)

	out, err := run(t, "--memory", state, "create-graph", "social",
		"--edge-collection", "knows", "--from", "users", "--to", "users")
	require.NoError(t, err)
	assert.Contains(t, out, `"social"`)

	out, err = run(t, "--memory", state, "collections")
	require.NoError(t, err)
	var cols []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &cols))
	names := []string{}
	for _, c := range cols {
		names = append(names, c["name"].(string))
	}
	assert.Contains(t, names, "users")
	assert.Contains(t, names, "knows")

	_, err = os.Stat(state)
	assert.NoError(t, err)
}

func TestCLI_CreateGraphRejectsUnknownCollections(t *testing.T) {
	state := filepath.Join(t.TempDir(), "state.json")

	_, err := run(t, "--memory", state, "create-graph", "g",
		"--edge-collection", "nope", "--from", "a", "--to", "b")
	assert.ErrorIs(t, err, arango.ErrValidation)
}

func TestCLI_CreateGraphFromFile(t *testing.T) {
	dir := t.TempDir()
	state := filepath.Join(dir, "state.json")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(`
name: g
edgeDefinitions:
  - collection: knows
    from: users
    to: [users]
`), 0o644))
	_, err := run(t, "--memory", state, "create-graph", "--file", bad)
	assert.ErrorIs(t, err, arango.ErrConstraint)
}

func TestCLI_ValidateQuery(t *testing.T) {
	state := filepath.Join(t.TempDir(), "state.json")

	_, err := run(t, "--memory", state, "validate-query", "RETURN 1")
	assert.NoError(t, err)

	_, err = run(t, "--memory", state, "validate-query", "FOR u IN users RETURN (u")
	assert.ErrorIs(t, err, arango.ErrQuerySyntax)
}

func TestCLI_LookupMissing(t *testing.T) {
	state := filepath.Join(t.TempDir(), "state.json")

	_, err := run(t, "--memory", state, "lookup", "ghosts")
	assert.ErrorIs(t, err, arango.ErrNotFound)

	_, err = run(t, "--memory", state, "lookup", "--graph", "ghosts")
	assert.ErrorIs(t, err, arango.ErrNotFound)
}

func TestCLI_CreateGraphFileConflictsWithConfig(t *testing.T) {
	dir := t.TempDir()
	state := filepath.Join(dir, "state.json")
	config := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(config, []byte(`
log:
  enabled: false
graphTypes:
  - name: social
    edgeDefinitions:
      - collection: knows
        from: [users]
        to: [users]
`), 0o644))

	_, err := run(t, "--memory", state, "create-collection", "users")
	require.NoError(t, err)
	_, err = run(t, "--memory", state, "create-collection", "groups")
	require.NoError(t, err)
	_, err = run(t, "--memory", state, "create-collection", "knows", "--kind", arango.KindGenericEdges)
	require.NoError(t, err)

	other := filepath.Join(dir, "other.yaml")
	require.NoError(t, os.WriteFile(other, []byte(`
name: social
edgeDefinitions:
  - collection: knows
    from: [users]
    to: [groups]
`), 0o644))
	_, err = run(t, "--config", config, "--memory", state, "create-graph", "--file", other)
	assert.ErrorIs(t, err, arango.ErrConstraint)

	same := filepath.Join(dir, "same.yaml")
	require.NoError(t, os.WriteFile(same, []byte(`
name: social
edgeDefinitions:
  - collection: knows
    from: [users]
    to: [users]
`), 0o644))
	out, err := run(t, "--config", config, "--memory", state, "create-graph", "--file", same)
	require.NoError(t, err)
	assert.Contains(t, out, `"social"`)
}
