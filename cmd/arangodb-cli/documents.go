package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/diwise/arangodb-driver/pkg/arangodb"
	"github.com/diwise/arangodb-driver/pkg/arangodb/client"
	"github.com/spf13/cobra"
)

func (c *cli) documentsCommand() *cobra.Command {
	documents := &cobra.Command{
		Use:   "documents",
		Short: "Read and write single documents",
	}

	get := &cobra.Command{
		Use:   "get [collection] [key]",
		Short: "Read a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, _ client.ArangoDB, db client.Database) error {
				doc := map[string]any{}
				if _, err := db.Collection(args[0]).ReadDocument(ctx, args[1], &doc, nil); err != nil {
					return err
				}
				return printResult(cmd, "", doc)
			})
		},
	}

	var overwrite bool

	insert := &cobra.Command{
		Use:   "insert [collection] [json|-]",
		Short: "Insert a document given as an argument or on stdin",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := documentArgument(cmd.InOrStdin(), args[1])
			if err != nil {
				return err
			}

			return c.run(cmd, func(ctx context.Context, _ client.ArangoDB, db client.Database) error {
				meta, err := db.Collection(args[0]).InsertDocument(ctx, doc, &arangodb.DocumentCreateOptions{Overwrite: overwrite})
				if err != nil {
					return err
				}
				return printResult(cmd, "inserted", meta)
			})
		},
	}
	insert.Flags().BoolVar(&overwrite, "overwrite", false, "replace a document with the same key")

	var ifMatch string

	remove := &cobra.Command{
		Use:   "delete [collection] [key]",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, _ client.ArangoDB, db client.Database) error {
				meta, err := db.Collection(args[0]).DeleteDocument(ctx, args[1], &arangodb.DocumentDeleteOptions{IfMatch: ifMatch})
				if err != nil {
					return err
				}
				return printResult(cmd, "deleted", meta)
			})
		},
	}
	remove.Flags().StringVar(&ifMatch, "if-match", "", "only delete the given revision")

	documents.AddCommand(get, insert, remove)

	return documents
}

// documentArgument decodes a JSON object from arg, or from stdin when arg is -
func documentArgument(stdin io.Reader, arg string) (map[string]any, error) {
	var data []byte

	if arg == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read document: %w", err)
		}
		data = b
	} else {
		data = []byte(arg)
	}

	doc := map[string]any{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("document is not a json object: %w", err)
	}

	return doc, nil
}
