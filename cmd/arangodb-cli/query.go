package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/diwise/arangodb-driver/pkg/arangodb"
	"github.com/diwise/arangodb-driver/pkg/arangodb/client"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/spf13/cobra"
)

func (c *cli) queryCommand() *cobra.Command {
	var bind []string
	var batchSize int
	var count bool

	query := &cobra.Command{
		Use:   "query [aql]",
		Short: "Run an AQL query and print every result",
		Example: `  arangodb-cli query 'FOR c IN cities FILTER c.population > @min RETURN c' --bind min=50000
  arangodb-cli query 'FOR c IN @@col RETURN c._key' --bind @col=cities --batch-size 100`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bindVars, err := parseBindVars(bind)
			if err != nil {
				return err
			}

			options := &arangodb.AqlQueryOptions{BatchSize: batchSize, Count: count}

			return c.run(cmd, func(ctx context.Context, _ client.ArangoDB, db client.Database) error {
				cursor, err := db.Query(ctx, args[0], bindVars, options)
				if err != nil {
					return err
				}

				results, err := client.ReadAll[any](ctx, cursor)
				if err != nil {
					return err
				}

				return printResult(cmd, "results", results)
			})
		},
	}

	query.Flags().StringArrayVar(&bind, "bind", nil, "bind parameter as name=value, values that parse as json are sent as json")
	query.Flags().IntVar(&batchSize, "batch-size", 0, "number of results fetched per round trip")
	query.Flags().BoolVar(&count, "count", false, "ask the server to count the results")

	return query
}

// parseBindVars turns name=value pairs into bind parameters. Values are decoded as JSON when
// possible so that numbers, booleans and arrays keep their type.
func parseBindVars(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	bindVars := make(map[string]any, len(pairs))

	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid bind parameter %q, expected name=value", pair)
		}

		var v any
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			v = value
		}

		bindVars[name] = v
	}

	return bindVars, nil
}

func (c *cli) importCommand() *cobra.Command {
	var onDuplicate string
	var complete, details bool

	importCmd := &cobra.Command{
		Use:   "import [collection] [file|-]",
		Short: "Import documents from a file with one json object per line",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[1] != "-" {
				f, err := os.Open(args[1])
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", args[1], err)
				}
				defer f.Close()
				in = f
			}

			documents, err := readJSONLines(in)
			if err != nil {
				return err
			}

			options := &arangodb.DocumentImportOptions{
				OnDuplicate: arangodb.OnDuplicate(onDuplicate),
				Complete:    complete,
				Details:     details,
			}

			return c.run(cmd, func(ctx context.Context, _ client.ArangoDB, db client.Database) error {
				logging.GetFromContext(ctx).Debug("importing documents", "collection", args[0], "count", len(documents))

				result, err := db.Collection(args[0]).ImportDocuments(ctx, documents, options)
				if err != nil {
					return err
				}
				return printResult(cmd, "imported", result)
			})
		},
	}

	importCmd.Flags().StringVar(&onDuplicate, "on-duplicate", string(arangodb.OnDuplicateError), "error, update, replace or ignore")
	importCmd.Flags().BoolVar(&complete, "complete", false, "abort the whole import on the first error")
	importCmd.Flags().BoolVar(&details, "details", false, "report details about documents that failed")

	return importCmd
}

// readJSONLines decodes one JSON object per non empty line
func readJSONLines(r io.Reader) ([]map[string]any, error) {
	documents := []map[string]any{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0
	for scanner.Scan() {
		line++

		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}

		doc := map[string]any{}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("line %d is not a json object: %w", line, err)
		}
		documents = append(documents, doc)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}

	return documents, nil
}
