package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/diwise/arangodb-driver/pkg/arangodb"
	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Collection interface {
	Name() string
	Database() Database

	InsertDocument(ctx context.Context, document any, options *arangodb.DocumentCreateOptions) (*arangodb.DocumentCreateEntity, error)
	InsertDocuments(ctx context.Context, documents any, options *arangodb.DocumentCreateOptions) (*arangodb.MultiDocumentEntity[arangodb.DocumentCreateEntity], error)
	ImportDocuments(ctx context.Context, documents any, options *arangodb.DocumentImportOptions) (*arangodb.DocumentImportEntity, error)
	ReadDocument(ctx context.Context, key string, result any, options *arangodb.DocumentReadOptions) (*arangodb.DocumentMeta, error)
	ReadDocuments(ctx context.Context, keys []string, results any, options *arangodb.DocumentReadOptions) (*arangodb.MultiDocumentEntity[arangodb.DocumentMeta], error)
	ReplaceDocument(ctx context.Context, key string, document any, options *arangodb.DocumentReplaceOptions) (*arangodb.DocumentUpdateEntity, error)
	ReplaceDocuments(ctx context.Context, documents any, options *arangodb.DocumentReplaceOptions) (*arangodb.MultiDocumentEntity[arangodb.DocumentUpdateEntity], error)
	UpdateDocument(ctx context.Context, key string, patch any, options *arangodb.DocumentUpdateOptions) (*arangodb.DocumentUpdateEntity, error)
	UpdateDocuments(ctx context.Context, patches any, options *arangodb.DocumentUpdateOptions) (*arangodb.MultiDocumentEntity[arangodb.DocumentUpdateEntity], error)
	DeleteDocument(ctx context.Context, key string, options *arangodb.DocumentDeleteOptions) (*arangodb.DocumentDeleteEntity, error)
	DeleteDocuments(ctx context.Context, keys []string, options *arangodb.DocumentDeleteOptions) (*arangodb.MultiDocumentEntity[arangodb.DocumentDeleteEntity], error)
	DocumentExists(ctx context.Context, key string, options *arangodb.DocumentExistsOptions) (bool, error)

	EnsurePersistentIndex(ctx context.Context, fields []string, options *arangodb.PersistentIndexOptions) (*arangodb.IndexEntity, error)
	EnsureHashIndex(ctx context.Context, fields []string, options *arangodb.HashIndexOptions) (*arangodb.IndexEntity, error)
	EnsureSkiplistIndex(ctx context.Context, fields []string, options *arangodb.SkiplistIndexOptions) (*arangodb.IndexEntity, error)
	EnsureGeoIndex(ctx context.Context, fields []string, options *arangodb.GeoIndexOptions) (*arangodb.IndexEntity, error)
	EnsureFulltextIndex(ctx context.Context, fields []string, options *arangodb.FulltextIndexOptions) (*arangodb.IndexEntity, error)
	EnsureTTLIndex(ctx context.Context, field string, expireAfter int, options *arangodb.TTLIndexOptions) (*arangodb.IndexEntity, error)
	EnsureZKDIndex(ctx context.Context, fields []string, options *arangodb.ZKDIndexOptions) (*arangodb.IndexEntity, error)
	Index(ctx context.Context, id string) (*arangodb.IndexEntity, error)
	DeleteIndex(ctx context.Context, id string) (string, error)
	Indexes(ctx context.Context) ([]arangodb.IndexEntity, error)

	Exists(ctx context.Context) (bool, error)
	Truncate(ctx context.Context, options *arangodb.CollectionTruncateOptions) (*arangodb.CollectionEntity, error)
	Count(ctx context.Context, options *arangodb.CollectionCountOptions) (int64, error)
	Drop(ctx context.Context, options *arangodb.CollectionDropOptions) error
	Load(ctx context.Context) (*arangodb.CollectionEntity, error)
	Unload(ctx context.Context) (*arangodb.CollectionEntity, error)
	Info(ctx context.Context) (*arangodb.CollectionEntity, error)
	Properties(ctx context.Context) (*arangodb.CollectionPropertiesEntity, error)
	ChangeProperties(ctx context.Context, options arangodb.CollectionPropertiesOptions) (*arangodb.CollectionPropertiesEntity, error)
	Rename(ctx context.Context, newName string) (*arangodb.CollectionEntity, error)
	Revision(ctx context.Context) (string, error)
	ResponsibleShard(ctx context.Context, document any) (string, error)

	GrantAccess(ctx context.Context, user string, permissions arangodb.Permissions) error
	RevokeAccess(ctx context.Context, user string) error
	ResetAccess(ctx context.Context, user string) error
	Permissions(ctx context.Context, user string) (arangodb.Permissions, error)
}

type collection struct {
	db   *database
	name string
}

func (c *collection) Name() string {
	return c.name
}

func (c *collection) Database() Database {
	return c.db
}

func (c *collection) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{
		attribute.String(TraceAttributeDatabase, c.db.name),
		attribute.String(TraceAttributeCollection, c.name),
	}, attrs...)
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (c *collection) path(suffix string) string {
	return "/_api/collection/" + url.PathEscape(c.name) + suffix
}

func (c *collection) entity(ctx context.Context, spanName, method, suffix string, body any) (*arangodb.CollectionEntity, error) {
	var err error

	ctx, span := c.span(ctx, spanName)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := c.db.request(method, c.path(suffix))
	req.Body = body

	resp, err := c.db.client.send(ctx, req, http.StatusOK)
	if err != nil {
		return nil, err
	}

	entity := &arangodb.CollectionEntity{}
	err = resp.decode(entity)
	return entity, err
}

func (c *collection) Info(ctx context.Context) (*arangodb.CollectionEntity, error) {
	return c.entity(ctx, "collection-info", http.MethodGet, "", nil)
}

func (c *collection) Exists(ctx context.Context) (bool, error) {
	_, err := c.Info(ctx)
	if err == nil {
		return true, nil
	}
	if errors.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

func (c *collection) Load(ctx context.Context) (*arangodb.CollectionEntity, error) {
	return c.entity(ctx, "load-collection", http.MethodPut, "/load", nil)
}

func (c *collection) Unload(ctx context.Context) (*arangodb.CollectionEntity, error) {
	return c.entity(ctx, "unload-collection", http.MethodPut, "/unload", nil)
}

func (c *collection) Rename(ctx context.Context, newName string) (*arangodb.CollectionEntity, error) {
	entity, err := c.entity(ctx, "rename-collection", http.MethodPut, "/rename", map[string]string{"name": newName})
	if err == nil {
		c.name = newName
	}
	return entity, err
}

func (c *collection) Truncate(ctx context.Context, options *arangodb.CollectionTruncateOptions) (*arangodb.CollectionEntity, error) {
	var err error

	ctx, span := c.span(ctx, "truncate-collection")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := newRequest(c.db.name, http.MethodPut, c.path("/truncate"), options.Params(), options.Headers())

	resp, err := c.db.client.send(ctx, req, http.StatusOK)
	if err != nil {
		return nil, err
	}

	entity := &arangodb.CollectionEntity{}
	err = resp.decode(entity)
	return entity, err
}

func (c *collection) Count(ctx context.Context, options *arangodb.CollectionCountOptions) (int64, error) {
	var err error

	ctx, span := c.span(ctx, "count-collection")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := newRequest(c.db.name, http.MethodGet, c.path("/count"), nil, options.Headers())

	resp, err := c.db.client.send(ctx, req, http.StatusOK)
	if err != nil {
		return 0, err
	}

	entity := arangodb.CollectionCountEntity{}
	err = resp.decode(&entity)
	return entity.Count, err
}

func (c *collection) Drop(ctx context.Context, options *arangodb.CollectionDropOptions) error {
	var err error

	ctx, span := c.span(ctx, "drop-collection")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := newRequest(c.db.name, http.MethodDelete, c.path(""), options.Params(), nil)
	_, err = c.db.client.send(ctx, req, http.StatusOK)
	return err
}

func (c *collection) properties(ctx context.Context, spanName, method string, body any) (*arangodb.CollectionPropertiesEntity, error) {
	var err error

	ctx, span := c.span(ctx, spanName)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := c.db.request(method, c.path("/properties"))
	req.Body = body

	resp, err := c.db.client.send(ctx, req, http.StatusOK)
	if err != nil {
		return nil, err
	}

	entity := &arangodb.CollectionPropertiesEntity{}
	err = resp.decode(entity)
	return entity, err
}

func (c *collection) Properties(ctx context.Context) (*arangodb.CollectionPropertiesEntity, error) {
	return c.properties(ctx, "collection-properties", http.MethodGet, nil)
}

func (c *collection) ChangeProperties(ctx context.Context, options arangodb.CollectionPropertiesOptions) (*arangodb.CollectionPropertiesEntity, error) {
	return c.properties(ctx, "change-collection-properties", http.MethodPut, options)
}

func (c *collection) Revision(ctx context.Context) (string, error) {
	var err error

	ctx, span := c.span(ctx, "collection-revision")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	resp, err := c.db.client.send(ctx, c.db.request(http.MethodGet, c.path("/revision")), http.StatusOK)
	if err != nil {
		return "", err
	}

	entity := arangodb.CollectionRevisionEntity{}
	err = resp.decode(&entity)
	return entity.Revision, err
}

func (c *collection) ResponsibleShard(ctx context.Context, document any) (string, error) {
	var err error

	ctx, span := c.span(ctx, "responsible-shard")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := c.db.request(http.MethodPut, c.path("/responsibleShard"))
	if err = c.db.client.setDocumentBody(req, document); err != nil {
		return "", err
	}

	resp, err := c.db.client.send(ctx, req, http.StatusOK)
	if err != nil {
		return "", err
	}

	entity := arangodb.ShardEntity{}
	err = resp.decode(&entity)
	return entity.ShardID, err
}

func (c *collection) GrantAccess(ctx context.Context, user string, permissions arangodb.Permissions) error {
	return c.db.client.grant(ctx, user, c.db.name, c.name, permissions)
}

func (c *collection) RevokeAccess(ctx context.Context, user string) error {
	return c.db.client.grant(ctx, user, c.db.name, c.name, arangodb.PermissionsNone)
}

func (c *collection) ResetAccess(ctx context.Context, user string) error {
	return c.db.client.resetAccess(ctx, user, c.db.name, c.name)
}

func (c *collection) Permissions(ctx context.Context, user string) (arangodb.Permissions, error) {
	return c.db.client.permissions(ctx, user, c.db.name, c.name)
}
