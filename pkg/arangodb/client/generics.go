package client

import (
	"context"

	"github.com/diwise/arangodb-driver/pkg/arangodb"
	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
)

// ReadAll drains the cursor into a slice and closes it
func ReadAll[T any](ctx context.Context, c Cursor) ([]T, error) {
	result := []T{}

	err := ForEach(ctx, c, func(item T, _ arangodb.DocumentMeta) error {
		result = append(result, item)
		return nil
	})

	return result, err
}

// ForEach calls fn for every result of the cursor until it is drained or fn returns an error.
// The cursor is closed when ForEach returns.
func ForEach[T any](ctx context.Context, c Cursor, fn func(item T, meta arangodb.DocumentMeta) error) (err error) {
	defer func() {
		if cerr := c.Close(ctx); err == nil {
			err = cerr
		}
	}()

	for {
		var item T

		meta, err := c.ReadDocument(ctx, &item)
		if errors.Is(err, errors.ErrNoMoreDocuments) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := fn(item, meta); err != nil {
			return err
		}
	}
}

// QueryAll runs query and returns every result
func QueryAll[T any](ctx context.Context, db Database, query string, bindVars map[string]any, options *arangodb.AqlQueryOptions) ([]T, error) {
	c, err := db.Query(ctx, query, bindVars, options)
	if err != nil {
		return nil, err
	}

	return ReadAll[T](ctx, c)
}
