package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"github.com/wonderstone/arangostorm/arango"
	"github.com/wonderstone/arangostorm/handler"
	"github.com/wonderstone/arangostorm/tools"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the database and its registries",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(cmd, db.Export())
	},
}

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List the collections of the last reconciliation",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(cmd, exportAll(db.Collections()))
	},
}

var graphsCmd = &cobra.Command{
	Use:   "graphs",
	Short: "List the graphs of the last reconciliation",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(cmd, exportAll(db.Graphs()))
	},
}

var lookupCmd = &cobra.Command{
	Use:   "lookup NAME",
	Short: "Find a collection or graph, reconciling once if it is not known yet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if graph, _ := cmd.Flags().GetBool("graph"); graph {
			g, err := db.Graph(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, g.Export())
		}
		col, err := db.Collection(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, col.Export())
	},
}

var createCollectionCmd = &cobra.Command{
	Use:   "create-collection [NAME]",
	Short: "Create a collection of a registered kind, or a generic one named NAME",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("kind")
		waitForSync, _ := cmd.Flags().GetBool("wait-for-sync")

		colArgs := map[string]interface{}{}
		if len(args) == 1 {
			colArgs["name"] = args[0]
		}
		if waitForSync {
			colArgs["waitForSync"] = true
		}

		col, err := db.CreateCollection(cmd.Context(), kind, colArgs)
		if err != nil {
			return err
		}
		return printJSON(cmd, col.Export())
	},
}

var createGraphCmd = &cobra.Command{
	Use:   "create-graph NAME",
	Short: "Validate and create a graph",
	Long: `Create a graph of one edge definition given by flags, or of every
definition in a yaml file given with --file. The definition is checked against
the known collections before anything is sent.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		if file != "" {
			def, err := tools.LoadGraphDefinition(file)
			if err != nil {
				var seqErr *tools.SequenceError
				if errors.As(err, &seqErr) {
					return &arango.Error{Code: arango.ErrCodeConstraint, Message: "invalid graph definition", Cause: err}
				}
				return err
			}
			if err := registerGraphFile(def); err != nil {
				return err
			}
			g, err := db.CreateGraphFromType(cmd.Context(), def.Name)
			if err != nil {
				return err
			}
			return printJSON(cmd, g.Export())
		}

		if len(args) != 1 {
			return fmt.Errorf("a graph name is required without --file")
		}
		edge, _ := cmd.Flags().GetString("edge-collection")
		from, _ := cmd.Flags().GetStringSlice("from")
		to, _ := cmd.Flags().GetStringSlice("to")
		orphans, _ := cmd.Flags().GetStringSlice("orphan")

		g, err := db.CreateGraph(cmd.Context(), args[0], edge, nonNil(from), nonNil(to), orphans)
		if err != nil {
			return err
		}
		return printJSON(cmd, g.Export())
	},
}

var validateQueryCmd = &cobra.Command{
	Use:   "validate-query QUERY",
	Short: "Ask the server whether a query is valid",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bindVars, err := bindVarsFlag(cmd)
		if err != nil {
			return err
		}
		ack, err := db.ValidateQuery(cmd.Context(), args[0], bindVars, nil)
		if err != nil {
			return err
		}
		return printJSON(cmd, ack)
	},
}

var queryCmd = &cobra.Command{
	Use:   "query QUERY",
	Short: "Run a query and print every result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		batchSize, _ := cmd.Flags().GetInt("batch-size")
		raw, _ := cmd.Flags().GetBool("raw")
		bindVars, err := bindVarsFlag(cmd)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		cur, err := db.Query(args[0], raw, batchSize, bindVars, nil, true, false).Execute(ctx)
		if err != nil {
			return err
		}
		defer cur.Close(ctx)

		if raw {
			all, err := cur.ReadAll(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, all)
		}

		var docs []handler.Item
		for {
			batch, err := cur.Documents()
			if err != nil {
				return err
			}
			for _, d := range batch {
				docs = append(docs, d)
			}
			if !cur.HasMore {
				break
			}
			if err := cur.Next(ctx); err != nil {
				return err
			}
		}
		return printJSON(cmd, exportAll(docs))
	},
}

func init() {
	lookupCmd.Flags().Bool("graph", false, "look up a graph instead of a collection")

	createCollectionCmd.Flags().String("kind", arango.KindGenericCollection, "registered collection type, GenericCollection or Edges")
	createCollectionCmd.Flags().Bool("wait-for-sync", false, "create the collection with waitForSync")

	createGraphCmd.Flags().String("edge-collection", "", "edge collection of the definition")
	createGraphCmd.Flags().StringSlice("from", nil, "vertex collections edges start from")
	createGraphCmd.Flags().StringSlice("to", nil, "vertex collections edges point to")
	createGraphCmd.Flags().StringSlice("orphan", nil, "vertex collections without edges")
	createGraphCmd.Flags().String("file", "", "yaml graph definition")

	for _, c := range []*cobra.Command{validateQueryCmd, queryCmd} {
		c.Flags().String("bind-vars", "", "bind parameters as a json object")
	}
	queryCmd.Flags().Int("batch-size", 100, "results per batch")
	queryCmd.Flags().Bool("raw", false, "print raw json results")

	rootCmd.AddCommand(infoCmd, collectionsCmd, graphsCmd, lookupCmd,
		createCollectionCmd, createGraphCmd, validateQueryCmd, queryCmd)
}

// registerGraphFile registers a graph definition read from a file. A graph type
// of the same name from the config must declare exactly the same graph.
func registerGraphFile(def tools.GraphDefinition) error {
	gt := arango.GraphTypeFromDefinition(def)
	known, ok := graphTypes.Lookup(def.Name)
	if !ok {
		return graphTypes.Register(gt)
	}
	if !sameGraphType(known, gt) {
		return &arango.Error{
			Code:    arango.ErrCodeConstraint,
			Message: fmt.Sprintf("graph %s in the file differs from the graph type %s of the config", def.Name, def.Name),
		}
	}
	return nil
}

func sameGraphType(a, b arango.GraphType) bool {
	if len(a.EdgeDefinitions) != len(b.EdgeDefinitions) || !slices.Equal(a.OrphanCollections, b.OrphanCollections) {
		return false
	}
	for i, ed := range a.EdgeDefinitions {
		other := b.EdgeDefinitions[i]
		if ed.Collection != other.Collection || !slices.Equal(ed.From, other.From) || !slices.Equal(ed.To, other.To) {
			return false
		}
	}
	return true
}

func bindVarsFlag(cmd *cobra.Command) (map[string]interface{}, error) {
	s, _ := cmd.Flags().GetString("bind-vars")
	if s == "" {
		return nil, nil
	}
	var vars map[string]interface{}
	if err := json.Unmarshal([]byte(s), &vars); err != nil {
		return nil, fmt.Errorf("--bind-vars: %w", err)
	}
	return vars, nil
}

// nonNil turns an unset list flag into an empty list; an empty flag still means no names
func nonNil(names []string) []string {
	if names == nil {
		return []string{}
	}
	return names
}

func exportAll[T handler.Item](items []T) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(items))
	for _, it := range items {
		out = append(out, it.Export())
	}
	return out
}
