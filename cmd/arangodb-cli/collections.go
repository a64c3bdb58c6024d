package main

import (
	"context"

	"github.com/diwise/arangodb-driver/pkg/arangodb"
	"github.com/diwise/arangodb-driver/pkg/arangodb/client"
	"github.com/spf13/cobra"
)

func (c *cli) collectionsCommand() *cobra.Command {
	collections := &cobra.Command{
		Use:   "collections",
		Short: "Manage the collections of a database",
	}

	var includeSystem bool

	list := &cobra.Command{
		Use:   "list",
		Short: "List the collections of the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, _ client.ArangoDB, db client.Database) error {
				result, err := db.Collections(ctx, &arangodb.CollectionsReadOptions{ExcludeSystem: !includeSystem})
				if err != nil {
					return err
				}
				return printResult(cmd, "collections", result)
			})
		},
	}
	list.Flags().BoolVar(&includeSystem, "system", false, "include system collections")

	var edge, waitForSync bool

	create := &cobra.Command{
		Use:   "create [name]",
		Short: "Create a document or edge collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			options := &arangodb.CollectionCreateOptions{WaitForSync: waitForSync}
			if edge {
				options.Type = arangodb.CollectionTypeEdge
			}

			return c.run(cmd, func(ctx context.Context, _ client.ArangoDB, db client.Database) error {
				col, err := db.CreateCollection(ctx, args[0], options)
				if err != nil {
					return err
				}

				info, err := col.Info(ctx)
				if err != nil {
					return err
				}
				return printResult(cmd, "created", info)
			})
		},
	}
	create.Flags().BoolVar(&edge, "edge", false, "create an edge collection")
	create.Flags().BoolVar(&waitForSync, "wait-for-sync", false, "sync every write to disk")

	drop := &cobra.Command{
		Use:   "drop [name]",
		Short: "Drop a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, _ client.ArangoDB, db client.Database) error {
				if err := db.Collection(args[0]).Drop(ctx, nil); err != nil {
					return err
				}
				return printResult(cmd, "dropped", args[0])
			})
		},
	}

	count := &cobra.Command{
		Use:   "count [name]",
		Short: "Count the documents of a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, _ client.ArangoDB, db client.Database) error {
				n, err := db.Collection(args[0]).Count(ctx, nil)
				if err != nil {
					return err
				}
				return printResult(cmd, "count", n)
			})
		},
	}

	truncate := &cobra.Command{
		Use:   "truncate [name]",
		Short: "Remove every document of a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, _ client.ArangoDB, db client.Database) error {
				info, err := db.Collection(args[0]).Truncate(ctx, nil)
				if err != nil {
					return err
				}
				return printResult(cmd, "truncated", info)
			})
		},
	}

	collections.AddCommand(list, create, drop, count, truncate)

	return collections
}
