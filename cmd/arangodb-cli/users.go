package main

import (
	"context"
	"fmt"
	"os"

	"github.com/diwise/arangodb-driver/pkg/arangodb"
	"github.com/diwise/arangodb-driver/pkg/arangodb/client"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func (c *cli) usersCommand() *cobra.Command {
	users := &cobra.Command{
		Use:   "users",
		Short: "Manage users and their permissions",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List all users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, arango client.ArangoDB, _ client.Database) error {
				result, err := arango.Users(ctx)
				if err != nil {
					return err
				}
				return printResult(cmd, "users", result)
			})
		},
	}

	var password string
	var prompt, inactive bool

	create := &cobra.Command{
		Use:   "create [user]",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if prompt {
				fmt.Fprintf(os.Stderr, "Password for new user %s: ", args[0])
				b, err := term.ReadPassword(int(os.Stdin.Fd()))
				fmt.Fprintln(os.Stderr)
				if err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
				password = string(b)
			}

			active := !inactive

			return c.run(cmd, func(ctx context.Context, arango client.ArangoDB, _ client.Database) error {
				user, err := arango.CreateUser(ctx, args[0], password, &arangodb.UserCreateOptions{Active: &active})
				if err != nil {
					return err
				}
				return printResult(cmd, "created", user)
			})
		},
	}
	create.Flags().StringVar(&password, "password", "", "password of the new user")
	create.Flags().BoolVar(&prompt, "prompt", false, "read the password of the new user from the terminal")
	create.Flags().BoolVar(&inactive, "inactive", false, "create the user without enabling it")

	remove := &cobra.Command{
		Use:   "delete [user]",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, arango client.ArangoDB, _ client.Database) error {
				if err := arango.DeleteUser(ctx, args[0]); err != nil {
					return err
				}
				return printResult(cmd, "deleted", args[0])
			})
		},
	}

	var collection string

	grant := &cobra.Command{
		Use:   "grant [user] [rw|ro|none]",
		Short: "Grant a user access to the database, or to one of its collections",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			permissions, err := parsePermissions(args[1])
			if err != nil {
				return err
			}

			return c.run(cmd, func(ctx context.Context, _ client.ArangoDB, db client.Database) error {
				if collection != "" {
					err = db.Collection(collection).GrantAccess(ctx, args[0], permissions)
				} else {
					err = db.GrantAccess(ctx, args[0], permissions)
				}
				if err != nil {
					return err
				}

				return printResult(cmd, "granted", map[string]string{
					"user":        args[0],
					"database":    db.Name(),
					"collection":  collection,
					"permissions": string(permissions),
				})
			})
		},
	}
	grant.Flags().StringVar(&collection, "collection", "", "grant access to this collection only")

	users.AddCommand(list, create, remove, grant)

	return users
}

func parsePermissions(value string) (arangodb.Permissions, error) {
	switch p := arangodb.Permissions(value); p {
	case arangodb.PermissionsReadWrite, arangodb.PermissionsReadOnly, arangodb.PermissionsNone:
		return p, nil
	}
	return "", fmt.Errorf("unknown permission %q, expected rw, ro or none", value)
}
