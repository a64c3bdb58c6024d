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

type View interface {
	Name() string
	Database() Database

	Exists(ctx context.Context) (bool, error)
	Info(ctx context.Context) (*arangodb.ViewEntity, error)
	Drop(ctx context.Context) error
	Rename(ctx context.Context, newName string) (*arangodb.ViewEntity, error)
}

// ArangoSearch is a view of type arangosearch
type ArangoSearch interface {
	View

	Create(ctx context.Context, options *arangodb.ArangoSearchCreateOptions) (*arangodb.ArangoSearchPropertiesEntity, error)
	Properties(ctx context.Context) (*arangodb.ArangoSearchPropertiesEntity, error)
	// UpdateProperties changes the given properties and keeps all others
	UpdateProperties(ctx context.Context, options arangodb.ArangoSearchPropertiesOptions) (*arangodb.ArangoSearchPropertiesEntity, error)
	// ReplaceProperties resets every property not given to its default
	ReplaceProperties(ctx context.Context, options arangodb.ArangoSearchPropertiesOptions) (*arangodb.ArangoSearchPropertiesEntity, error)
}

type view struct {
	db   *database
	name string
}

func (db *database) View(name string) View {
	return &view{db: db, name: name}
}

func (db *database) ArangoSearch(name string) ArangoSearch {
	return &view{db: db, name: name}
}

func (db *database) Views(ctx context.Context) ([]arangodb.ViewEntity, error) {
	var err error

	ctx, span := db.span(ctx, "views")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	resp, err := db.client.send(ctx, db.request(http.MethodGet, "/_api/view"), http.StatusOK)
	if err != nil {
		return nil, err
	}

	result := resultEnvelope[[]arangodb.ViewEntity]{}
	err = resp.decode(&result)
	return result.Result, err
}

func (db *database) CreateArangoSearch(ctx context.Context, name string, options *arangodb.ArangoSearchCreateOptions) (ArangoSearch, error) {
	v := &view{db: db, name: name}
	if _, err := v.Create(ctx, options); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *view) Name() string {
	return v.name
}

func (v *view) Database() Database {
	return v.db
}

func (v *view) span(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String(TraceAttributeDatabase, v.db.name),
		attribute.String(TraceAttributeView, v.name),
	))
}

func (v *view) path(suffix string) string {
	return "/_api/view/" + url.PathEscape(v.name) + suffix
}

func (v *view) entity(ctx context.Context, spanName, method, suffix string, body any) (*arangodb.ViewEntity, error) {
	var err error

	ctx, span := v.span(ctx, spanName)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := v.db.request(method, v.path(suffix))
	req.Body = body

	resp, err := v.db.client.send(ctx, req, http.StatusOK)
	if err != nil {
		return nil, err
	}

	entity := &arangodb.ViewEntity{}
	err = resp.decode(entity)
	return entity, err
}

func (v *view) Info(ctx context.Context) (*arangodb.ViewEntity, error) {
	return v.entity(ctx, "view-info", http.MethodGet, "", nil)
}

func (v *view) Exists(ctx context.Context) (bool, error) {
	_, err := v.Info(ctx)
	if err == nil {
		return true, nil
	}
	if errors.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

func (v *view) Rename(ctx context.Context, newName string) (*arangodb.ViewEntity, error) {
	entity, err := v.entity(ctx, "rename-view", http.MethodPut, "/rename", map[string]string{"name": newName})
	if err == nil {
		v.name = newName
	}
	return entity, err
}

func (v *view) Drop(ctx context.Context) error {
	var err error

	ctx, span := v.span(ctx, "drop-view")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	_, err = v.db.client.send(ctx, v.db.request(http.MethodDelete, v.path("")), http.StatusOK)
	return err
}

func (v *view) properties(ctx context.Context, spanName, method, path string, body any, expected ...int) (*arangodb.ArangoSearchPropertiesEntity, error) {
	var err error

	ctx, span := v.span(ctx, spanName)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := v.db.request(method, path)
	req.Body = body

	resp, err := v.db.client.send(ctx, req, expected...)
	if err != nil {
		return nil, err
	}

	properties := &arangodb.ArangoSearchPropertiesEntity{}
	err = resp.decode(properties)
	return properties, err
}

func (v *view) Create(ctx context.Context, options *arangodb.ArangoSearchCreateOptions) (*arangodb.ArangoSearchPropertiesEntity, error) {
	return v.properties(ctx, "create-view", http.MethodPost, "/_api/view", options.Request(v.name), http.StatusCreated, http.StatusOK)
}

func (v *view) Properties(ctx context.Context) (*arangodb.ArangoSearchPropertiesEntity, error) {
	return v.properties(ctx, "view-properties", http.MethodGet, v.path("/properties"), nil, http.StatusOK)
}

func (v *view) UpdateProperties(ctx context.Context, options arangodb.ArangoSearchPropertiesOptions) (*arangodb.ArangoSearchPropertiesEntity, error) {
	return v.properties(ctx, "update-view-properties", http.MethodPatch, v.path("/properties"), options, http.StatusOK)
}

func (v *view) ReplaceProperties(ctx context.Context, options arangodb.ArangoSearchPropertiesOptions) (*arangodb.ArangoSearchPropertiesEntity, error) {
	return v.properties(ctx, "replace-view-properties", http.MethodPut, v.path("/properties"), options, http.StatusOK)
}

func (db *database) CreateSearchAnalyzer(ctx context.Context, analyzer arangodb.SearchAnalyzer) (*arangodb.SearchAnalyzer, error) {
	var err error

	ctx, span := db.span(ctx, "create-search-analyzer")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := db.request(http.MethodPost, "/_api/analyzer")
	req.Body = analyzer

	resp, err := db.client.send(ctx, req, http.StatusCreated, http.StatusOK)
	if err != nil {
		return nil, err
	}

	result := &arangodb.SearchAnalyzer{}
	err = resp.decode(result)
	return result, err
}

func (db *database) SearchAnalyzer(ctx context.Context, name string) (*arangodb.SearchAnalyzer, error) {
	var err error

	ctx, span := db.span(ctx, "search-analyzer")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	resp, err := db.client.send(ctx, db.request(http.MethodGet, "/_api/analyzer/"+url.PathEscape(name)), http.StatusOK)
	if err != nil {
		return nil, err
	}

	result := &arangodb.SearchAnalyzer{}
	err = resp.decode(result)
	return result, err
}

func (db *database) SearchAnalyzers(ctx context.Context) ([]arangodb.SearchAnalyzer, error) {
	var err error

	ctx, span := db.span(ctx, "search-analyzers")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	resp, err := db.client.send(ctx, db.request(http.MethodGet, "/_api/analyzer"), http.StatusOK)
	if err != nil {
		return nil, err
	}

	result := resultEnvelope[[]arangodb.SearchAnalyzer]{}
	err = resp.decode(&result)
	return result.Result, err
}

// DeleteSearchAnalyzer removes an analyzer. Analyzers still used by views are only removed
// when force is set.
func (db *database) DeleteSearchAnalyzer(ctx context.Context, name string, force bool) error {
	var err error

	ctx, span := db.span(ctx, "delete-search-analyzer")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := db.request(http.MethodDelete, "/_api/analyzer/"+url.PathEscape(name))
	if force {
		req.SetQuery("force", "true")
	}

	_, err = db.client.send(ctx, req, http.StatusOK)
	return err
}
