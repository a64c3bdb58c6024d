package client

import (
	"context"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/diwise/arangodb-driver/pkg/arangodb/connection"
	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
	"github.com/diwise/arangodb-driver/pkg/arangodb/serde"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// Route builds arbitrary requests against a database, e.g. for Foxx services. A Route is
// immutable, every With method returns a modified copy.
type Route interface {
	Path() string
	With(path ...string) Route
	WithHeader(name, value string) Route
	WithQueryParam(name, value string) Route
	WithBody(body any) Route

	Get(ctx context.Context) (*connection.Response, error)
	Post(ctx context.Context) (*connection.Response, error)
	Put(ctx context.Context) (*connection.Response, error)
	Patch(ctx context.Context) (*connection.Response, error)
	Delete(ctx context.Context) (*connection.Response, error)
	Head(ctx context.Context) (*connection.Response, error)
}

type route struct {
	db      *database
	path    []string
	headers map[string]string
	query   url.Values
	body    any
}

func (db *database) Route(path ...string) Route {
	return &route{
		db:      db,
		path:    slices.Clone(path),
		headers: map[string]string{},
		query:   url.Values{},
	}
}

func (r *route) clone() *route {
	query := url.Values{}
	for k, v := range r.query {
		query[k] = slices.Clone(v)
	}

	return &route{
		db:      r.db,
		path:    slices.Clone(r.path),
		headers: maps.Clone(r.headers),
		query:   query,
		body:    r.body,
	}
}

func (r *route) Path() string {
	segments := make([]string, 0, len(r.path))
	for _, p := range r.path {
		for _, s := range strings.Split(strings.Trim(p, "/"), "/") {
			if s != "" {
				segments = append(segments, url.PathEscape(s))
			}
		}
	}
	return "/" + strings.Join(segments, "/")
}

func (r *route) With(path ...string) Route {
	c := r.clone()
	c.path = append(c.path, path...)
	return c
}

func (r *route) WithHeader(name, value string) Route {
	c := r.clone()
	c.headers[name] = value
	return c
}

func (r *route) WithQueryParam(name, value string) Route {
	c := r.clone()
	c.query.Add(name, value)
	return c
}

func (r *route) WithBody(body any) Route {
	c := r.clone()
	c.body = body
	return c
}

func (r *route) do(ctx context.Context, method string) (*connection.Response, error) {
	var err error

	ctx, span := r.db.span(ctx, "route", attribute.String("http.method", method), attribute.String("url.path", r.Path()))
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := newRequest(r.db.name, method, r.Path(), r.query, r.headers)
	req.Body = r.body

	resp, err := r.db.client.conn.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		codec := serde.ForContentType(resp.ContentType, r.db.client.conn.Serde())
		err = errors.NewErrorFromResponse(resp.StatusCode, resp.Endpoint, resp.Body, codec.Unmarshal)
		return resp, err
	}

	return resp, nil
}

func (r *route) Get(ctx context.Context) (*connection.Response, error) {
	return r.do(ctx, http.MethodGet)
}

func (r *route) Post(ctx context.Context) (*connection.Response, error) {
	return r.do(ctx, http.MethodPost)
}

func (r *route) Put(ctx context.Context) (*connection.Response, error) {
	return r.do(ctx, http.MethodPut)
}

func (r *route) Patch(ctx context.Context) (*connection.Response, error) {
	return r.do(ctx, http.MethodPatch)
}

func (r *route) Delete(ctx context.Context) (*connection.Response, error) {
	return r.do(ctx, http.MethodDelete)
}

func (r *route) Head(ctx context.Context) (*connection.Response, error) {
	return r.do(ctx, http.MethodHead)
}
