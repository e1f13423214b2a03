package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/wonderstone/arangostorm/arango"
	"github.com/wonderstone/arangostorm/local"
	"github.com/wonderstone/arangostorm/tools"
)

var (
	configPath string
	memoryPath string

	// set up by openDatabase before any subcommand runs
	cfg        tools.Config
	logger     zerolog.Logger
	db         *arango.Database
	graphTypes *arango.GraphRegistry
	memory     *local.Server
)

var rootCmd = &cobra.Command{
	Use:   "arangostorm",
	Short: "Inspect and shape the collections and graphs of one ArangoDB database",
	Long: `arangostorm keeps a local mirror of the collections and graphs of one
database and checks graph definitions against it before creating them.

Use --memory to work against an in-memory server whose state is kept in a json file.`,
	PersistentPreRunE:  openDatabase,
	PersistentPostRunE: saveMemory,
	SilenceUsage:       true,
	SilenceErrors:      true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "yaml config file")
	rootCmd.PersistentFlags().StringVar(&memoryPath, "memory", "", "use an in-memory server persisted to this json file")
}

func openDatabase(cmd *cobra.Command, args []string) error {
	var err error
	memory = nil
	cfg = tools.DefaultConfig()
	if configPath != "" {
		if cfg, err = tools.LoadConfig(configPath); err != nil {
			return err
		}
	}

	logger, err = tools.NewLogger(cfg.Log)
	if err != nil {
		return err
	}

	collectionTypes, err := arango.ConfigCollectionTypes(cfg)
	if err != nil {
		return err
	}
	// kept so that create-graph --file can register definitions later
	graphTypes, err = arango.ConfigGraphTypes(cfg)
	if err != nil {
		return err
	}
	opts := []arango.Option{
		arango.WithCollectionTypes(collectionTypes),
		arango.WithGraphTypes(graphTypes),
		arango.WithLogger(logger),
	}

	ctx := cmd.Context()
	if memoryPath != "" {
		if memory, err = local.LoadServer(memoryPath, cfg.DBName); err != nil {
			return err
		}
		db, err = arango.Open(ctx, memory, cfg.DBName, opts...)
		return err
	}

	db, err = arango.Dial(ctx, cfg, opts...)
	return err
}

func saveMemory(cmd *cobra.Command, args []string) error {
	if memory == nil {
		return nil
	}
	return memory.Save(memoryPath)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
