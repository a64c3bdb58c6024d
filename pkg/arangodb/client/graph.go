package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/diwise/arangodb-driver/pkg/arangodb"
	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Graph is a named graph managed through the gharial API
type Graph interface {
	Name() string
	Database() Database

	Exists(ctx context.Context) (bool, error)
	Create(ctx context.Context, edgeDefinitions []arangodb.EdgeDefinition, options *arangodb.GraphCreateOptions) (*arangodb.GraphEntity, error)
	Drop(ctx context.Context, dropCollections bool) error
	Info(ctx context.Context) (*arangodb.GraphEntity, error)

	VertexCollections(ctx context.Context) ([]string, error)
	AddVertexCollection(ctx context.Context, name string, options *arangodb.VertexCollectionCreateOptions) (*arangodb.GraphEntity, error)
	VertexCollection(name string) VertexCollection

	EdgeCollection(name string) EdgeCollection
	EdgeDefinitions(ctx context.Context) ([]string, error)
	AddEdgeDefinition(ctx context.Context, definition arangodb.EdgeDefinition, options *arangodb.EdgeDefinitionOptions) (*arangodb.GraphEntity, error)
	ReplaceEdgeDefinition(ctx context.Context, definition arangodb.EdgeDefinition, options *arangodb.EdgeDefinitionOptions) (*arangodb.GraphEntity, error)
	RemoveEdgeDefinition(ctx context.Context, collection string, options *arangodb.EdgeDefinitionRemoveOptions) (*arangodb.GraphEntity, error)
}

type graph struct {
	db   *database
	name string
}

func (db *database) Graph(name string) Graph {
	return &graph{db: db, name: name}
}

func (db *database) CreateGraph(ctx context.Context, name string, edgeDefinitions []arangodb.EdgeDefinition, options *arangodb.GraphCreateOptions) (Graph, error) {
	g := &graph{db: db, name: name}
	if _, err := g.Create(ctx, edgeDefinitions, options); err != nil {
		return nil, err
	}
	return g, nil
}

func (db *database) Graphs(ctx context.Context) ([]arangodb.GraphEntity, error) {
	var err error

	ctx, span := db.span(ctx, "graphs")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	resp, err := db.client.send(ctx, db.request(http.MethodGet, "/_api/gharial"), http.StatusOK)
	if err != nil {
		return nil, err
	}

	result := struct {
		Graphs []arangodb.GraphEntity `json:"graphs"`
	}{}
	err = resp.decode(&result)
	return result.Graphs, err
}

func (g *graph) Name() string {
	return g.name
}

func (g *graph) Database() Database {
	return g.db
}

func (g *graph) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{
		attribute.String(TraceAttributeDatabase, g.db.name),
		attribute.String(TraceAttributeGraph, g.name),
	}, attrs...)
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (g *graph) path(segments ...string) string {
	p := "/_api/gharial/" + url.PathEscape(g.name)
	for _, s := range segments {
		p += "/" + url.PathEscape(s)
	}
	return p
}

type graphEnvelope struct {
	Graph arangodb.GraphEntity `json:"graph"`
}

// graphRequest sends a request answered with the graph definition
func (g *graph) graphRequest(ctx context.Context, spanName, method, path string, query url.Values, body any) (*arangodb.GraphEntity, error) {
	var err error

	ctx, span := g.span(ctx, spanName)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := newRequest(g.db.name, method, path, query, nil)
	req.Body = body

	resp, err := g.db.client.send(ctx, req, http.StatusOK, http.StatusCreated, http.StatusAccepted)
	if err != nil {
		return nil, err
	}

	result := graphEnvelope{}
	if err = resp.decode(&result); err != nil {
		return nil, err
	}

	return &result.Graph, nil
}

func (g *graph) Create(ctx context.Context, edgeDefinitions []arangodb.EdgeDefinition, options *arangodb.GraphCreateOptions) (*arangodb.GraphEntity, error) {
	return g.graphRequest(ctx, "create-graph", http.MethodPost, "/_api/gharial", options.Params(), options.Request(g.name, edgeDefinitions))
}

func (g *graph) Info(ctx context.Context) (*arangodb.GraphEntity, error) {
	return g.graphRequest(ctx, "graph-info", http.MethodGet, g.path(), nil, nil)
}

func (g *graph) Exists(ctx context.Context) (bool, error) {
	_, err := g.Info(ctx)
	if err == nil {
		return true, nil
	}
	if errors.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

func (g *graph) Drop(ctx context.Context, dropCollections bool) error {
	var err error

	ctx, span := g.span(ctx, "drop-graph")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := g.db.request(http.MethodDelete, g.path())
	if dropCollections {
		req.SetQuery("dropCollections", "true")
	}

	_, err = g.db.client.send(ctx, req, http.StatusOK, http.StatusCreated, http.StatusAccepted)
	return err
}

func (g *graph) collectionNames(ctx context.Context, spanName, segment string) ([]string, error) {
	var err error

	ctx, span := g.span(ctx, spanName)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	resp, err := g.db.client.send(ctx, g.db.request(http.MethodGet, g.path(segment)), http.StatusOK)
	if err != nil {
		return nil, err
	}

	result := struct {
		Collections []string `json:"collections"`
	}{}
	err = resp.decode(&result)
	return result.Collections, err
}

func (g *graph) VertexCollections(ctx context.Context) ([]string, error) {
	return g.collectionNames(ctx, "graph-vertex-collections", "vertex")
}

func (g *graph) EdgeDefinitions(ctx context.Context) ([]string, error) {
	return g.collectionNames(ctx, "graph-edge-definitions", "edge")
}

type vertexCollectionRequest struct {
	Collection string `json:"collection"`
	Options    *struct {
		Satellites []string `json:"satellites,omitempty"`
	} `json:"options,omitempty"`
}

func (g *graph) AddVertexCollection(ctx context.Context, name string, options *arangodb.VertexCollectionCreateOptions) (*arangodb.GraphEntity, error) {
	body := vertexCollectionRequest{Collection: name}
	if options != nil && len(options.Satellites) > 0 {
		body.Options = &struct {
			Satellites []string `json:"satellites,omitempty"`
		}{Satellites: options.Satellites}
	}
	return g.graphRequest(ctx, "add-vertex-collection", http.MethodPost, g.path("vertex"), nil, body)
}

type edgeDefinitionRequest struct {
	arangodb.EdgeDefinition
	Options *struct {
		Satellites []string `json:"satellites,omitempty"`
	} `json:"options,omitempty"`
}

func newEdgeDefinitionRequest(definition arangodb.EdgeDefinition, options *arangodb.EdgeDefinitionOptions) edgeDefinitionRequest {
	body := edgeDefinitionRequest{EdgeDefinition: definition}
	if options != nil && len(options.Satellites) > 0 {
		body.Options = &struct {
			Satellites []string `json:"satellites,omitempty"`
		}{Satellites: options.Satellites}
	}
	return body
}

func (g *graph) AddEdgeDefinition(ctx context.Context, definition arangodb.EdgeDefinition, options *arangodb.EdgeDefinitionOptions) (*arangodb.GraphEntity, error) {
	query := url.Values{}
	if options != nil && options.WaitForSync {
		query.Set("waitForSync", "true")
	}
	return g.graphRequest(ctx, "add-edge-definition", http.MethodPost, g.path("edge"), query, newEdgeDefinitionRequest(definition, options))
}

func (g *graph) ReplaceEdgeDefinition(ctx context.Context, definition arangodb.EdgeDefinition, options *arangodb.EdgeDefinitionOptions) (*arangodb.GraphEntity, error) {
	return g.graphRequest(ctx, "replace-edge-definition", http.MethodPut, g.path("edge", definition.Collection), options.Params(), newEdgeDefinitionRequest(definition, options))
}

func (g *graph) RemoveEdgeDefinition(ctx context.Context, collection string, options *arangodb.EdgeDefinitionRemoveOptions) (*arangodb.GraphEntity, error) {
	return g.graphRequest(ctx, "remove-edge-definition", http.MethodDelete, g.path("edge", collection), options.Params(), nil)
}

func (g *graph) VertexCollection(name string) VertexCollection {
	return &vertexCollection{graph: g, name: name}
}

func (g *graph) EdgeCollection(name string) EdgeCollection {
	return &edgeCollection{graph: g, name: name}
}

func boolParam(v bool) string {
	return strconv.FormatBool(v)
}
