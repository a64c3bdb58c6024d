package main

import (
	"context"

	"github.com/diwise/arangodb-driver/pkg/arangodb/client"
	"github.com/spf13/cobra"
)

func (c *cli) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the version of the client and the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, arango client.ArangoDB, _ client.Database) error {
				v, err := arango.Version(ctx)
				if err != nil {
					return err
				}

				return printResult(cmd, "version", map[string]any{
					"client": c.version,
					"server": v,
				})
			})
		},
	}
}

func (c *cli) databasesCommand() *cobra.Command {
	databases := &cobra.Command{
		Use:   "databases",
		Short: "Manage databases",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List all databases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, arango client.ArangoDB, _ client.Database) error {
				names, err := arango.Databases(ctx)
				if err != nil {
					return err
				}
				return printResult(cmd, "databases", names)
			})
		},
	}

	create := &cobra.Command{
		Use:   "create [name]",
		Short: "Create a database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, arango client.ArangoDB, _ client.Database) error {
				db, err := arango.CreateDatabase(ctx, args[0], nil)
				if err != nil {
					return err
				}

				info, err := db.Info(ctx)
				if err != nil {
					return err
				}
				return printResult(cmd, "created", info)
			})
		},
	}

	drop := &cobra.Command{
		Use:   "drop [name]",
		Short: "Drop a database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, arango client.ArangoDB, _ client.Database) error {
				if err := arango.DB(args[0]).Drop(ctx); err != nil {
					return err
				}
				return printResult(cmd, "dropped", args[0])
			})
		},
	}

	databases.AddCommand(list, create, drop)

	return databases
}
