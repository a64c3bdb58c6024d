package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/diwise/arangodb-driver/pkg/arangodb"
	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// VertexCollection writes vertices through a named graph, which keeps the graph consistent
// when vertices are removed
type VertexCollection interface {
	Name() string
	Graph() Graph

	InsertVertex(ctx context.Context, vertex any, options *arangodb.VertexCreateOptions) (*arangodb.VertexEntity, error)
	ReadVertex(ctx context.Context, key string, result any, options *arangodb.VertexReadOptions) (*arangodb.DocumentMeta, error)
	ReplaceVertex(ctx context.Context, key string, vertex any, options *arangodb.VertexReplaceOptions) (*arangodb.VertexUpdateEntity, error)
	UpdateVertex(ctx context.Context, key string, patch any, options *arangodb.VertexUpdateOptions) (*arangodb.VertexUpdateEntity, error)
	DeleteVertex(ctx context.Context, key string, options *arangodb.VertexDeleteOptions) error
	// Drop removes the collection from the graph, and from the database when dropCollection is set
	Drop(ctx context.Context, dropCollection bool) error
}

type EdgeCollection interface {
	Name() string
	Graph() Graph

	InsertEdge(ctx context.Context, edge any, options *arangodb.EdgeCreateOptions) (*arangodb.EdgeEntity, error)
	ReadEdge(ctx context.Context, key string, result any, options *arangodb.EdgeReadOptions) (*arangodb.DocumentMeta, error)
	ReplaceEdge(ctx context.Context, key string, edge any, options *arangodb.EdgeReplaceOptions) (*arangodb.EdgeUpdateEntity, error)
	UpdateEdge(ctx context.Context, key string, patch any, options *arangodb.EdgeUpdateOptions) (*arangodb.EdgeUpdateEntity, error)
	DeleteEdge(ctx context.Context, key string, options *arangodb.EdgeDeleteOptions) error
}

// graphDocuments holds what vertices and edges share. kind is both the path segment and the
// attribute holding the meta data in responses.
type graphDocuments struct {
	graph *graph
	name  string
	kind  string
}

func (d graphDocuments) path(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%s key must not be empty (%w)", d.kind, errors.ErrBadRequest)
	}
	return d.graph.path(d.kind, d.name, key), nil
}

type graphWrite struct {
	spanName  string
	method    string
	path      string
	document  any
	query     url.Values
	headers   map[string]string
	newObject any
	oldObject any
	meta      any
	expected  []int
}

func (d graphDocuments) write(ctx context.Context, w graphWrite) error {
	var err error

	ctx, span := d.graph.span(ctx, w.spanName, attribute.String(TraceAttributeCollection, d.name))
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	client := d.graph.db.client

	req := newRequest(d.graph.db.name, w.method, w.path, w.query, w.headers)
	if w.document != nil {
		if err = client.setDocumentBody(req, w.document); err != nil {
			return err
		}
	}

	resp, err := client.send(ctx, req, w.expected...)
	if err != nil {
		return err
	}

	if err = resp.decodeField(d.kind, w.meta); err != nil {
		return err
	}

	docs := &arangoResponse{Response: resp.Response, codec: client.documentSerde(resp)}
	if err = docs.decodeField("new", w.newObject); err != nil {
		return err
	}
	err = docs.decodeField("old", w.oldObject)

	return err
}

func (d graphDocuments) insert(ctx context.Context, document any, query url.Values, headers map[string]string, newObject, meta any) error {
	return d.write(ctx, graphWrite{
		spanName:  "insert-" + d.kind,
		method:    http.MethodPost,
		path:      d.graph.path(d.kind, d.name),
		document:  document,
		query:     query,
		headers:   headers,
		newObject: newObject,
		meta:      meta,
		expected:  []int{http.StatusCreated, http.StatusAccepted},
	})
}

func (d graphDocuments) change(ctx context.Context, spanName, method, key string, document any, query url.Values, headers map[string]string, newObject, oldObject, meta any) error {
	path, err := d.path(key)
	if err != nil {
		return err
	}

	return d.write(ctx, graphWrite{
		spanName:  spanName,
		method:    method,
		path:      path,
		document:  document,
		query:     query,
		headers:   headers,
		newObject: newObject,
		oldObject: oldObject,
		meta:      meta,
		expected:  []int{http.StatusOK, http.StatusAccepted},
	})
}

func (d graphDocuments) remove(ctx context.Context, key string, query url.Values, headers map[string]string, oldObject any) error {
	path, err := d.path(key)
	if err != nil {
		return err
	}

	return d.write(ctx, graphWrite{
		spanName:  "delete-" + d.kind,
		method:    http.MethodDelete,
		path:      path,
		query:     query,
		headers:   headers,
		oldObject: oldObject,
		expected:  []int{http.StatusOK, http.StatusAccepted},
	})
}

func (d graphDocuments) read(ctx context.Context, key string, result any, headers map[string]string) (*arangodb.DocumentMeta, error) {
	var err error

	ctx, span := d.graph.span(ctx, "read-"+d.kind,
		attribute.String(TraceAttributeCollection, d.name),
		attribute.String(TraceAttributeDocumentKey, key),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	path, err := d.path(key)
	if err != nil {
		return nil, err
	}

	client := d.graph.db.client

	resp, err := client.send(ctx, newRequest(d.graph.db.name, http.MethodGet, path, nil, headers), http.StatusOK)
	if err != nil {
		return nil, err
	}

	meta := &arangodb.DocumentMeta{}
	if err = resp.decodeField(d.kind, meta); err != nil {
		return nil, err
	}

	docs := &arangoResponse{Response: resp.Response, codec: client.documentSerde(resp)}
	err = docs.decodeField(d.kind, result)

	return meta, err
}

type vertexCollection struct {
	graph *graph
	name  string
}

func (vc *vertexCollection) documents() graphDocuments {
	return graphDocuments{graph: vc.graph, name: vc.name, kind: "vertex"}
}

func (vc *vertexCollection) Name() string {
	return vc.name
}

func (vc *vertexCollection) Graph() Graph {
	return vc.graph
}

func (vc *vertexCollection) InsertVertex(ctx context.Context, vertex any, options *arangodb.VertexCreateOptions) (*arangodb.VertexEntity, error) {
	var newObject any
	if options != nil {
		newObject = options.NewObject
	}

	meta := &arangodb.VertexEntity{}
	if err := vc.documents().insert(ctx, vertex, options.Params(), options.Headers(), newObject, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func (vc *vertexCollection) ReadVertex(ctx context.Context, key string, result any, options *arangodb.VertexReadOptions) (*arangodb.DocumentMeta, error) {
	return vc.documents().read(ctx, key, result, options.Headers())
}

func (vc *vertexCollection) ReplaceVertex(ctx context.Context, key string, vertex any, options *arangodb.VertexReplaceOptions) (*arangodb.VertexUpdateEntity, error) {
	var newObject, oldObject any
	if options != nil {
		newObject, oldObject = options.NewObject, options.OldObject
	}

	meta := &arangodb.VertexUpdateEntity{}
	err := vc.documents().change(ctx, "replace-vertex", http.MethodPut, key, vertex, options.Params(), options.Headers(), newObject, oldObject, meta)
	if err != nil {
		return nil, err
	}
	return meta, nil
}

func (vc *vertexCollection) UpdateVertex(ctx context.Context, key string, patch any, options *arangodb.VertexUpdateOptions) (*arangodb.VertexUpdateEntity, error) {
	var newObject, oldObject any
	if options != nil {
		newObject, oldObject = options.NewObject, options.OldObject
	}

	meta := &arangodb.VertexUpdateEntity{}
	err := vc.documents().change(ctx, "update-vertex", http.MethodPatch, key, patch, options.Params(), options.Headers(), newObject, oldObject, meta)
	if err != nil {
		return nil, err
	}
	return meta, nil
}

func (vc *vertexCollection) DeleteVertex(ctx context.Context, key string, options *arangodb.VertexDeleteOptions) error {
	var oldObject any
	if options != nil {
		oldObject = options.OldObject
	}
	return vc.documents().remove(ctx, key, options.Params(), options.Headers(), oldObject)
}

func (vc *vertexCollection) Drop(ctx context.Context, dropCollection bool) error {
	var err error

	ctx, span := vc.graph.span(ctx, "drop-vertex-collection", attribute.String(TraceAttributeCollection, vc.name))
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := vc.graph.db.request(http.MethodDelete, vc.graph.path("vertex", vc.name))
	req.SetQuery("dropCollection", boolParam(dropCollection))

	_, err = vc.graph.db.client.send(ctx, req, http.StatusOK, http.StatusAccepted)
	return err
}

type edgeCollection struct {
	graph *graph
	name  string
}

func (ec *edgeCollection) documents() graphDocuments {
	return graphDocuments{graph: ec.graph, name: ec.name, kind: "edge"}
}

func (ec *edgeCollection) Name() string {
	return ec.name
}

func (ec *edgeCollection) Graph() Graph {
	return ec.graph
}

func (ec *edgeCollection) InsertEdge(ctx context.Context, edge any, options *arangodb.EdgeCreateOptions) (*arangodb.EdgeEntity, error) {
	var newObject any
	if options != nil {
		newObject = options.NewObject
	}

	meta := &arangodb.EdgeEntity{}
	if err := ec.documents().insert(ctx, edge, options.Params(), options.Headers(), newObject, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func (ec *edgeCollection) ReadEdge(ctx context.Context, key string, result any, options *arangodb.EdgeReadOptions) (*arangodb.DocumentMeta, error) {
	return ec.documents().read(ctx, key, result, options.Headers())
}

func (ec *edgeCollection) ReplaceEdge(ctx context.Context, key string, edge any, options *arangodb.EdgeReplaceOptions) (*arangodb.EdgeUpdateEntity, error) {
	var newObject, oldObject any
	if options != nil {
		newObject, oldObject = options.NewObject, options.OldObject
	}

	meta := &arangodb.EdgeUpdateEntity{}
	err := ec.documents().change(ctx, "replace-edge", http.MethodPut, key, edge, options.Params(), options.Headers(), newObject, oldObject, meta)
	if err != nil {
		return nil, err
	}
	return meta, nil
}

func (ec *edgeCollection) UpdateEdge(ctx context.Context, key string, patch any, options *arangodb.EdgeUpdateOptions) (*arangodb.EdgeUpdateEntity, error) {
	var newObject, oldObject any
	if options != nil {
		newObject, oldObject = options.NewObject, options.OldObject
	}

	meta := &arangodb.EdgeUpdateEntity{}
	err := ec.documents().change(ctx, "update-edge", http.MethodPatch, key, patch, options.Params(), options.Headers(), newObject, oldObject, meta)
	if err != nil {
		return nil, err
	}
	return meta, nil
}

func (ec *edgeCollection) DeleteEdge(ctx context.Context, key string, options *arangodb.EdgeDeleteOptions) error {
	var oldObject any
	if options != nil {
		oldObject = options.OldObject
	}
	return ec.documents().remove(ctx, key, options.Params(), options.Headers(), oldObject)
}
