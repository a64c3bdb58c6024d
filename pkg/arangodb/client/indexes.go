package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/diwise/arangodb-driver/pkg/arangodb"
	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// ensureIndex creates the index unless an equal one exists. The server answers 200 for an
// existing index and 201 for a new one.
func (c *collection) ensureIndex(ctx context.Context, definition arangodb.IndexDefinition) (*arangodb.IndexEntity, error) {
	var err error

	ctx, span := c.span(ctx, "ensure-index", attribute.String("arangodb.index.type", string(definition.Type)))
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	if len(definition.Fields) == 0 {
		err = fmt.Errorf("an index needs at least one field (%w)", errors.ErrBadRequest)
		return nil, err
	}

	req := c.db.request(http.MethodPost, "/_api/index")
	req.SetQuery("collection", c.name)
	req.Body = definition

	resp, err := c.db.client.send(ctx, req, http.StatusOK, http.StatusCreated)
	if err != nil {
		return nil, err
	}

	index := &arangodb.IndexEntity{}
	if err = resp.decode(index); err != nil {
		return nil, err
	}
	index.IsNewlyCreated = resp.StatusCode == http.StatusCreated

	return index, nil
}

func (c *collection) EnsurePersistentIndex(ctx context.Context, fields []string, options *arangodb.PersistentIndexOptions) (*arangodb.IndexEntity, error) {
	return c.ensureIndex(ctx, options.Definition(fields))
}

func (c *collection) EnsureHashIndex(ctx context.Context, fields []string, options *arangodb.HashIndexOptions) (*arangodb.IndexEntity, error) {
	return c.ensureIndex(ctx, options.Definition(fields))
}

func (c *collection) EnsureSkiplistIndex(ctx context.Context, fields []string, options *arangodb.SkiplistIndexOptions) (*arangodb.IndexEntity, error) {
	return c.ensureIndex(ctx, options.Definition(fields))
}

func (c *collection) EnsureGeoIndex(ctx context.Context, fields []string, options *arangodb.GeoIndexOptions) (*arangodb.IndexEntity, error) {
	return c.ensureIndex(ctx, options.Definition(fields))
}

func (c *collection) EnsureFulltextIndex(ctx context.Context, fields []string, options *arangodb.FulltextIndexOptions) (*arangodb.IndexEntity, error) {
	return c.ensureIndex(ctx, options.Definition(fields))
}

func (c *collection) EnsureTTLIndex(ctx context.Context, field string, expireAfter int, options *arangodb.TTLIndexOptions) (*arangodb.IndexEntity, error) {
	return c.ensureIndex(ctx, options.Definition(field, expireAfter))
}

func (c *collection) EnsureZKDIndex(ctx context.Context, fields []string, options *arangodb.ZKDIndexOptions) (*arangodb.IndexEntity, error) {
	return c.ensureIndex(ctx, options.Definition(fields))
}

// indexID accepts both a full handle like users/0 and the bare id within the collection
func (c *collection) indexID(id string) string {
	if strings.Contains(id, "/") {
		return id
	}
	return arangodb.DocumentID(c.name, id)
}

func (c *collection) Index(ctx context.Context, id string) (*arangodb.IndexEntity, error) {
	return c.db.Index(ctx, c.indexID(id))
}

func (c *collection) DeleteIndex(ctx context.Context, id string) (string, error) {
	return c.db.DeleteIndex(ctx, c.indexID(id))
}

func (c *collection) Indexes(ctx context.Context) ([]arangodb.IndexEntity, error) {
	var err error

	ctx, span := c.span(ctx, "indexes")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := c.db.request(http.MethodGet, "/_api/index")
	req.SetQuery("collection", c.name)

	resp, err := c.db.client.send(ctx, req, http.StatusOK)
	if err != nil {
		return nil, err
	}

	result := arangodb.IndexesEntity{}
	err = resp.decode(&result)
	return result.Indexes, err
}
