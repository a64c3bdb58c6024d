package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/diwise/arangodb-driver/pkg/arangodb"
	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
)

func (db *database) ExplainQuery(ctx context.Context, query string, bindVars map[string]any, options *arangodb.AqlQueryExplainOptions) (*arangodb.AqlExecutionExplainEntity, error) {
	var err error

	ctx, span := db.span(ctx, "explain-query")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := db.request(http.MethodPost, "/_api/explain")
	req.Body = options.Request(query, bindVars)

	resp, err := db.client.send(ctx, req, http.StatusOK)
	if err != nil {
		return nil, err
	}

	explain := &arangodb.AqlExecutionExplainEntity{}
	err = resp.decode(explain)
	return explain, err
}

func (db *database) ParseQuery(ctx context.Context, query string) (*arangodb.AqlParseEntity, error) {
	var err error

	ctx, span := db.span(ctx, "parse-query")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := db.request(http.MethodPost, "/_api/query")
	req.Body = map[string]string{"query": query}

	resp, err := db.client.send(ctx, req, http.StatusOK)
	if err != nil {
		return nil, err
	}

	parsed := &arangodb.AqlParseEntity{}
	err = resp.decode(parsed)
	return parsed, err
}

func (db *database) ClearQueryCache(ctx context.Context) error {
	var err error

	ctx, span := db.span(ctx, "clear-query-cache")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	_, err = db.client.send(ctx, db.request(http.MethodDelete, "/_api/query-cache"), http.StatusOK)
	return err
}

func (db *database) QueryCacheProperties(ctx context.Context) (*arangodb.QueryCachePropertiesEntity, error) {
	var err error

	ctx, span := db.span(ctx, "query-cache-properties")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	resp, err := db.client.send(ctx, db.request(http.MethodGet, "/_api/query-cache/properties"), http.StatusOK)
	if err != nil {
		return nil, err
	}

	properties := &arangodb.QueryCachePropertiesEntity{}
	err = resp.decode(properties)
	return properties, err
}

func (db *database) SetQueryCacheProperties(ctx context.Context, properties arangodb.QueryCachePropertiesEntity) (*arangodb.QueryCachePropertiesEntity, error) {
	var err error

	ctx, span := db.span(ctx, "set-query-cache-properties")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := db.request(http.MethodPut, "/_api/query-cache/properties")
	req.Body = properties

	resp, err := db.client.send(ctx, req, http.StatusOK)
	if err != nil {
		return nil, err
	}

	result := &arangodb.QueryCachePropertiesEntity{}
	err = resp.decode(result)
	return result, err
}

func (db *database) QueryTrackingProperties(ctx context.Context) (*arangodb.QueryTrackingPropertiesEntity, error) {
	var err error

	ctx, span := db.span(ctx, "query-tracking-properties")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	resp, err := db.client.send(ctx, db.request(http.MethodGet, "/_api/query/properties"), http.StatusOK)
	if err != nil {
		return nil, err
	}

	properties := &arangodb.QueryTrackingPropertiesEntity{}
	err = resp.decode(properties)
	return properties, err
}

func (db *database) SetQueryTrackingProperties(ctx context.Context, properties arangodb.QueryTrackingPropertiesEntity) (*arangodb.QueryTrackingPropertiesEntity, error) {
	var err error

	ctx, span := db.span(ctx, "set-query-tracking-properties")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := db.request(http.MethodPut, "/_api/query/properties")
	req.Body = properties

	resp, err := db.client.send(ctx, req, http.StatusOK)
	if err != nil {
		return nil, err
	}

	result := &arangodb.QueryTrackingPropertiesEntity{}
	err = resp.decode(result)
	return result, err
}

func (db *database) queries(ctx context.Context, spanName, path string) ([]arangodb.QueryEntity, error) {
	var err error

	ctx, span := db.span(ctx, spanName)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	resp, err := db.client.send(ctx, db.request(http.MethodGet, path), http.StatusOK)
	if err != nil {
		return nil, err
	}

	queries := []arangodb.QueryEntity{}
	err = resp.decode(&queries)
	return queries, err
}

func (db *database) CurrentlyRunningQueries(ctx context.Context) ([]arangodb.QueryEntity, error) {
	return db.queries(ctx, "running-queries", "/_api/query/current")
}

func (db *database) SlowQueries(ctx context.Context) ([]arangodb.QueryEntity, error) {
	return db.queries(ctx, "slow-queries", "/_api/query/slow")
}

func (db *database) ClearSlowQueries(ctx context.Context) error {
	var err error

	ctx, span := db.span(ctx, "clear-slow-queries")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	_, err = db.client.send(ctx, db.request(http.MethodDelete, "/_api/query/slow"), http.StatusOK)
	return err
}

func (db *database) KillQuery(ctx context.Context, id string) error {
	var err error

	ctx, span := db.span(ctx, "kill-query")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	if id == "" {
		err = fmt.Errorf("query id must not be empty (%w)", errors.ErrBadRequest)
		return err
	}

	_, err = db.client.send(ctx, db.request(http.MethodDelete, "/_api/query/"+url.PathEscape(id)), http.StatusOK)
	return err
}

type aqlFunctionRequest struct {
	Name            string `json:"name"`
	Code            string `json:"code"`
	IsDeterministic bool   `json:"isDeterministic,omitempty"`
}

func (db *database) CreateAqlFunction(ctx context.Context, name, code string, options *arangodb.AqlFunctionCreateOptions) error {
	var err error

	ctx, span := db.span(ctx, "create-aql-function")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	body := aqlFunctionRequest{Name: name, Code: code}
	if options != nil {
		body.IsDeterministic = options.IsDeterministic
	}

	req := db.request(http.MethodPost, "/_api/aqlfunction")
	req.Body = body

	_, err = db.client.send(ctx, req, http.StatusOK, http.StatusCreated)
	return err
}

// DeleteAqlFunction removes a function, or all functions in the namespace name when Group is
// set, and returns the number of functions removed
func (db *database) DeleteAqlFunction(ctx context.Context, name string, options *arangodb.AqlFunctionDeleteOptions) (int, error) {
	var err error

	ctx, span := db.span(ctx, "delete-aql-function")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := db.request(http.MethodDelete, "/_api/aqlfunction/"+url.PathEscape(name))
	if options != nil && options.Group {
		req.SetQuery("group", "true")
	}

	resp, err := db.client.send(ctx, req, http.StatusOK)
	if err != nil {
		return 0, err
	}

	result := struct {
		DeletedCount int `json:"deletedCount"`
	}{}
	err = resp.decode(&result)
	return result.DeletedCount, err
}

func (db *database) AqlFunctions(ctx context.Context, options *arangodb.AqlFunctionGetOptions) ([]arangodb.AqlFunctionEntity, error) {
	var err error

	ctx, span := db.span(ctx, "aql-functions")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := db.request(http.MethodGet, "/_api/aqlfunction")
	if options != nil && options.Namespace != "" {
		req.SetQuery("namespace", options.Namespace)
	}

	resp, err := db.client.send(ctx, req, http.StatusOK)
	if err != nil {
		return nil, err
	}

	result := resultEnvelope[[]arangodb.AqlFunctionEntity]{}
	err = resp.decode(&result)
	return result.Result, err
}
