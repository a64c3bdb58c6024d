package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/diwise/arangodb-driver/pkg/arangodb"
	"github.com/diwise/arangodb-driver/pkg/arangodb/connection"
	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Database interface {
	Name() string
	Client() ArangoDB
	Exists(ctx context.Context) (bool, error)
	Info(ctx context.Context) (*arangodb.DatabaseEntity, error)
	Drop(ctx context.Context) error

	Collection(name string) Collection
	CreateCollection(ctx context.Context, name string, options *arangodb.CollectionCreateOptions) (Collection, error)
	Collections(ctx context.Context, options *arangodb.CollectionsReadOptions) ([]arangodb.CollectionEntity, error)
	Index(ctx context.Context, id string) (*arangodb.IndexEntity, error)
	DeleteIndex(ctx context.Context, id string) (string, error)

	// Document reads the document with handle id, e.g. users/1, into result
	Document(ctx context.Context, id string, result any, options *arangodb.DocumentReadOptions) error

	Query(ctx context.Context, query string, bindVars map[string]any, options *arangodb.AqlQueryOptions) (Cursor, error)
	Cursor(ctx context.Context, cursorID, nextBatchID string) (Cursor, error)
	ExplainQuery(ctx context.Context, query string, bindVars map[string]any, options *arangodb.AqlQueryExplainOptions) (*arangodb.AqlExecutionExplainEntity, error)
	ParseQuery(ctx context.Context, query string) (*arangodb.AqlParseEntity, error)
	ClearQueryCache(ctx context.Context) error
	QueryCacheProperties(ctx context.Context) (*arangodb.QueryCachePropertiesEntity, error)
	SetQueryCacheProperties(ctx context.Context, properties arangodb.QueryCachePropertiesEntity) (*arangodb.QueryCachePropertiesEntity, error)
	QueryTrackingProperties(ctx context.Context) (*arangodb.QueryTrackingPropertiesEntity, error)
	SetQueryTrackingProperties(ctx context.Context, properties arangodb.QueryTrackingPropertiesEntity) (*arangodb.QueryTrackingPropertiesEntity, error)
	CurrentlyRunningQueries(ctx context.Context) ([]arangodb.QueryEntity, error)
	SlowQueries(ctx context.Context) ([]arangodb.QueryEntity, error)
	ClearSlowQueries(ctx context.Context) error
	KillQuery(ctx context.Context, id string) error
	CreateAqlFunction(ctx context.Context, name, code string, options *arangodb.AqlFunctionCreateOptions) error
	DeleteAqlFunction(ctx context.Context, name string, options *arangodb.AqlFunctionDeleteOptions) (int, error)
	AqlFunctions(ctx context.Context, options *arangodb.AqlFunctionGetOptions) ([]arangodb.AqlFunctionEntity, error)

	Graph(name string) Graph
	CreateGraph(ctx context.Context, name string, edgeDefinitions []arangodb.EdgeDefinition, options *arangodb.GraphCreateOptions) (Graph, error)
	Graphs(ctx context.Context) ([]arangodb.GraphEntity, error)

	Transaction(ctx context.Context, action string, result any, options *arangodb.TransactionOptions) error
	BeginStreamTransaction(ctx context.Context, options *arangodb.StreamTransactionOptions) (*arangodb.StreamTransactionEntity, error)
	CommitStreamTransaction(ctx context.Context, id string) (*arangodb.StreamTransactionEntity, error)
	AbortStreamTransaction(ctx context.Context, id string) (*arangodb.StreamTransactionEntity, error)
	StreamTransaction(ctx context.Context, id string) (*arangodb.StreamTransactionEntity, error)
	StreamTransactions(ctx context.Context) ([]arangodb.TransactionEntity, error)

	GrantAccess(ctx context.Context, user string, permissions arangodb.Permissions) error
	RevokeAccess(ctx context.Context, user string) error
	ResetAccess(ctx context.Context, user string) error
	GrantDefaultCollectionAccess(ctx context.Context, user string, permissions arangodb.Permissions) error
	Permissions(ctx context.Context, user string) (arangodb.Permissions, error)

	ReloadRouting(ctx context.Context) error

	View(name string) View
	ArangoSearch(name string) ArangoSearch
	Views(ctx context.Context) ([]arangodb.ViewEntity, error)
	CreateArangoSearch(ctx context.Context, name string, options *arangodb.ArangoSearchCreateOptions) (ArangoSearch, error)
	CreateSearchAnalyzer(ctx context.Context, analyzer arangodb.SearchAnalyzer) (*arangodb.SearchAnalyzer, error)
	SearchAnalyzer(ctx context.Context, name string) (*arangodb.SearchAnalyzer, error)
	SearchAnalyzers(ctx context.Context) ([]arangodb.SearchAnalyzer, error)
	DeleteSearchAnalyzer(ctx context.Context, name string, force bool) error

	Route(path ...string) Route
}

type database struct {
	client *arangoClient
	name   string
}

func (db *database) Name() string {
	return db.name
}

func (db *database) Client() ArangoDB {
	return db.client
}

func (db *database) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{attribute.String(TraceAttributeDatabase, db.name)}, attrs...)
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (db *database) request(method, path string) *connection.Request {
	return newRequest(db.name, method, path, nil, nil)
}

func (db *database) Exists(ctx context.Context) (bool, error) {
	_, err := db.Info(ctx)
	if err == nil {
		return true, nil
	}
	if errors.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

func (db *database) Info(ctx context.Context) (*arangodb.DatabaseEntity, error) {
	var err error

	ctx, span := db.span(ctx, "database-info")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	resp, err := db.client.send(ctx, db.request(http.MethodGet, "/_api/database/current"), http.StatusOK)
	if err != nil {
		return nil, err
	}

	result := resultEnvelope[arangodb.DatabaseEntity]{}
	if err = resp.decode(&result); err != nil {
		return nil, err
	}

	return &result.Result, nil
}

func (db *database) Drop(ctx context.Context) error {
	var err error

	ctx, span := db.span(ctx, "drop-database")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := newRequest(SystemDatabase, http.MethodDelete, "/_api/database/"+url.PathEscape(db.name), nil, nil)
	_, err = db.client.send(ctx, req, http.StatusOK)
	return err
}

func (db *database) Collection(name string) Collection {
	return &collection{db: db, name: name}
}

type collectionCreateRequest struct {
	arangodb.CollectionCreateOptions
	Name string `json:"name"`
}

func (db *database) CreateCollection(ctx context.Context, name string, options *arangodb.CollectionCreateOptions) (Collection, error) {
	var err error

	ctx, span := db.span(ctx, "create-collection", attribute.String(TraceAttributeCollection, name))
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	body := collectionCreateRequest{Name: name}
	if options != nil {
		body.CollectionCreateOptions = *options
	}

	req := newRequest(db.name, http.MethodPost, "/_api/collection", options.Params(), nil)
	req.Body = body

	_, err = db.client.send(ctx, req, http.StatusOK)
	if err != nil {
		return nil, err
	}

	return db.Collection(name), nil
}

func (db *database) Collections(ctx context.Context, options *arangodb.CollectionsReadOptions) ([]arangodb.CollectionEntity, error) {
	var err error

	ctx, span := db.span(ctx, "collections")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := newRequest(db.name, http.MethodGet, "/_api/collection", options.Params(), nil)

	resp, err := db.client.send(ctx, req, http.StatusOK)
	if err != nil {
		return nil, err
	}

	result := resultEnvelope[[]arangodb.CollectionEntity]{}
	err = resp.decode(&result)
	return result.Result, err
}

func indexPath(id string) (string, error) {
	collection, key, err := arangodb.SplitDocumentID(id)
	if err != nil {
		return "", fmt.Errorf("invalid index id %q (%w)", id, errors.ErrBadRequest)
	}
	return "/_api/index/" + url.PathEscape(collection) + "/" + url.PathEscape(key), nil
}

func (db *database) Index(ctx context.Context, id string) (*arangodb.IndexEntity, error) {
	var err error

	ctx, span := db.span(ctx, "index")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	path, err := indexPath(id)
	if err != nil {
		return nil, err
	}

	resp, err := db.client.send(ctx, db.request(http.MethodGet, path), http.StatusOK)
	if err != nil {
		return nil, err
	}

	index := &arangodb.IndexEntity{}
	err = resp.decode(index)
	return index, err
}

func (db *database) DeleteIndex(ctx context.Context, id string) (string, error) {
	var err error

	ctx, span := db.span(ctx, "delete-index")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	path, err := indexPath(id)
	if err != nil {
		return "", err
	}

	resp, err := db.client.send(ctx, db.request(http.MethodDelete, path), http.StatusOK)
	if err != nil {
		return "", err
	}

	result := struct {
		ID string `json:"id"`
	}{}
	err = resp.decode(&result)
	return result.ID, err
}

func (db *database) Document(ctx context.Context, id string, result any, options *arangodb.DocumentReadOptions) error {
	collection, key, err := arangodb.SplitDocumentID(id)
	if err != nil {
		return fmt.Errorf("%s (%w)", err.Error(), errors.ErrBadRequest)
	}

	_, err = db.Collection(collection).ReadDocument(ctx, key, result, options)
	return err
}

func (db *database) GrantAccess(ctx context.Context, user string, permissions arangodb.Permissions) error {
	return db.client.grant(ctx, user, db.name, "", permissions)
}

func (db *database) RevokeAccess(ctx context.Context, user string) error {
	return db.client.grant(ctx, user, db.name, "", arangodb.PermissionsNone)
}

func (db *database) ResetAccess(ctx context.Context, user string) error {
	return db.client.resetAccess(ctx, user, db.name, "")
}

func (db *database) GrantDefaultCollectionAccess(ctx context.Context, user string, permissions arangodb.Permissions) error {
	return db.client.grant(ctx, user, db.name, "*", permissions)
}

func (db *database) Permissions(ctx context.Context, user string) (arangodb.Permissions, error) {
	return db.client.permissions(ctx, user, db.name, "")
}

func (db *database) ReloadRouting(ctx context.Context) error {
	var err error

	ctx, span := db.span(ctx, "reload-routing")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	_, err = db.client.send(ctx, db.request(http.MethodPost, "/_admin/routing/reload"), http.StatusOK, http.StatusNoContent)
	return err
}
