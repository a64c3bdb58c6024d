package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/diwise/arangodb-driver/pkg/arangodb"
	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
	"github.com/diwise/arangodb-driver/pkg/arangodb/serde"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/otel/attribute"
)

func (c *collection) documentsPath() string {
	return "/_api/document/" + url.PathEscape(c.name)
}

func (c *collection) documentPath(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("document key must not be empty (%w)", errors.ErrBadRequest)
	}
	return c.documentsPath() + "/" + url.PathEscape(key), nil
}

// decodeDocumentField decodes the new or old attribute of a single document response
func (c *collection) decodeDocumentField(resp *arangoResponse, name string, v any) error {
	docs := &arangoResponse{Response: resp.Response, codec: c.db.client.documentSerde(resp)}
	return docs.decodeField(name, v)
}

func decodeMeta(resp *arangoResponse, v any) error {
	// silent operations answer with an empty object or no body at all
	if len(resp.Body) == 0 {
		return nil
	}
	return resp.decode(v)
}

func (c *collection) InsertDocument(ctx context.Context, document any, options *arangodb.DocumentCreateOptions) (*arangodb.DocumentCreateEntity, error) {
	var err error

	ctx, span := c.span(ctx, "insert-document")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := newRequest(c.db.name, http.MethodPost, c.documentsPath(), options.Params(), options.Headers())
	if err = c.db.client.setDocumentBody(req, document); err != nil {
		return nil, err
	}

	resp, err := c.db.client.send(ctx, req, http.StatusCreated, http.StatusAccepted)
	if err != nil {
		return nil, err
	}

	meta := &arangodb.DocumentCreateEntity{}
	if err = decodeMeta(resp, meta); err != nil {
		return nil, err
	}

	if options != nil {
		if err = c.decodeDocumentField(resp, "new", options.NewObject); err != nil {
			return meta, err
		}
		if err = c.decodeDocumentField(resp, "old", options.OldObject); err != nil {
			return meta, err
		}
	}

	span.SetAttributes(attribute.String(TraceAttributeDocumentKey, meta.Key))

	return meta, nil
}

func (c *collection) InsertDocuments(ctx context.Context, documents any, options *arangodb.DocumentCreateOptions) (*arangodb.MultiDocumentEntity[arangodb.DocumentCreateEntity], error) {
	var err error

	ctx, span := c.span(ctx, "insert-documents")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	if _, err = sliceLength(documents); err != nil {
		return nil, err
	}

	var newObjects, oldObjects any
	if options != nil {
		newObjects, oldObjects = options.NewObject, options.OldObject
	}

	targets, err := newMultiDocumentTargets(nil, newObjects, oldObjects)
	if err != nil {
		return nil, err
	}

	req := newRequest(c.db.name, http.MethodPost, c.documentsPath(), options.Params(), options.Headers())
	if err = c.db.client.setDocumentBody(req, documents); err != nil {
		return nil, err
	}

	resp, err := c.db.client.send(ctx, req, http.StatusCreated, http.StatusAccepted)
	if err != nil {
		return nil, err
	}

	result, err := parseMultiDocument[arangodb.DocumentCreateEntity](c.db.client, resp, targets)
	return result, err
}

// ImportDocuments bulk loads documents. The body is always sent as a JSON array since the
// import endpoint does not accept VelocyPack.
func (c *collection) ImportDocuments(ctx context.Context, documents any, options *arangodb.DocumentImportOptions) (*arangodb.DocumentImportEntity, error) {
	var err error

	ctx, span := c.span(ctx, "import-documents")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	if _, err = sliceLength(documents); err != nil {
		return nil, err
	}

	body, err := serde.JSON().Marshal(documents)
	if err != nil {
		err = fmt.Errorf("failed to encode documents: %s (%w)", err.Error(), errors.ErrBadRequest)
		return nil, err
	}

	query := options.Params()
	query.Set("collection", c.name)
	query.Set("type", "list")

	req := newRequest(c.db.name, http.MethodPost, "/_api/import", query, nil)
	req.RawBody = body
	req.ContentType = serde.ContentTypeJSON

	resp, err := c.db.client.send(ctx, req, http.StatusCreated)
	if err != nil {
		return nil, err
	}

	result := &arangodb.DocumentImportEntity{}
	err = resp.decode(result)
	return result, err
}

// ReadDocument reads a document into result. When IfNoneMatch holds the current revision the
// server answers 304, result is left untouched and the returned meta carries the revision.
func (c *collection) ReadDocument(ctx context.Context, key string, result any, options *arangodb.DocumentReadOptions) (*arangodb.DocumentMeta, error) {
	var err error

	ctx, span := c.span(ctx, "read-document", attribute.String(TraceAttributeDocumentKey, key))
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	path, err := c.documentPath(key)
	if err != nil {
		return nil, err
	}

	req := newRequest(c.db.name, http.MethodGet, path, nil, options.Headers())

	resp, err := c.db.client.send(ctx, req, http.StatusOK, http.StatusNotModified)
	if err != nil {
		return nil, err
	}

	meta := &arangodb.DocumentMeta{}
	if resp.StatusCode == http.StatusNotModified {
		meta.Key = key
		meta.ID = arangodb.DocumentID(c.name, key)
		meta.Rev = strings.Trim(resp.HeaderValue("etag"), `"`)
		return meta, nil
	}

	if err = resp.decode(meta); err != nil {
		return nil, err
	}

	if result != nil {
		docs := c.db.client.documentSerde(resp)
		if err = docs.Unmarshal(resp.Body, result); err != nil {
			err = fmt.Errorf("failed to decode document: %s (%w)", err.Error(), errors.ErrBadResponse)
			return meta, err
		}
	}

	return meta, nil
}

func (c *collection) ReadDocuments(ctx context.Context, keys []string, results any, options *arangodb.DocumentReadOptions) (*arangodb.MultiDocumentEntity[arangodb.DocumentMeta], error) {
	var err error

	ctx, span := c.span(ctx, "read-documents")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	targets, err := newMultiDocumentTargets(results, nil, nil)
	if err != nil {
		return nil, err
	}

	query := options.Params()
	query.Set("onlyget", "true")

	req := newRequest(c.db.name, http.MethodPut, c.documentsPath(), query, options.Headers())
	req.Body = keys

	resp, err := c.db.client.send(ctx, req, http.StatusOK)
	if err != nil {
		return nil, err
	}

	result, err := parseMultiDocument[arangodb.DocumentMeta](c.db.client, resp, targets)
	return result, err
}

func (c *collection) changeDocument(ctx context.Context, spanName, method, key string, document any, query url.Values, headers map[string]string, newObject, oldObject any) (*arangodb.DocumentUpdateEntity, error) {
	var err error

	ctx, span := c.span(ctx, spanName, attribute.String(TraceAttributeDocumentKey, key))
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	path, err := c.documentPath(key)
	if err != nil {
		return nil, err
	}

	req := newRequest(c.db.name, method, path, query, headers)
	if err = c.db.client.setDocumentBody(req, document); err != nil {
		return nil, err
	}

	resp, err := c.db.client.send(ctx, req, http.StatusCreated, http.StatusAccepted)
	if err != nil {
		return nil, err
	}

	meta := &arangodb.DocumentUpdateEntity{}
	if err = decodeMeta(resp, meta); err != nil {
		return nil, err
	}

	if err = c.decodeDocumentField(resp, "new", newObject); err != nil {
		return meta, err
	}
	if err = c.decodeDocumentField(resp, "old", oldObject); err != nil {
		return meta, err
	}

	return meta, nil
}

func (c *collection) ReplaceDocument(ctx context.Context, key string, document any, options *arangodb.DocumentReplaceOptions) (*arangodb.DocumentUpdateEntity, error) {
	var newObject, oldObject any
	if options != nil {
		newObject, oldObject = options.NewObject, options.OldObject
	}
	return c.changeDocument(ctx, "replace-document", http.MethodPut, key, document, options.Params(), options.Headers(), newObject, oldObject)
}

func (c *collection) UpdateDocument(ctx context.Context, key string, patch any, options *arangodb.DocumentUpdateOptions) (*arangodb.DocumentUpdateEntity, error) {
	var newObject, oldObject any
	if options != nil {
		newObject, oldObject = options.NewObject, options.OldObject
	}
	return c.changeDocument(ctx, "update-document", http.MethodPatch, key, patch, options.Params(), options.Headers(), newObject, oldObject)
}

func (c *collection) changeDocuments(ctx context.Context, spanName, method string, documents any, query url.Values, headers map[string]string, newObjects, oldObjects any) (*arangodb.MultiDocumentEntity[arangodb.DocumentUpdateEntity], error) {
	var err error

	ctx, span := c.span(ctx, spanName)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	if _, err = sliceLength(documents); err != nil {
		return nil, err
	}

	targets, err := newMultiDocumentTargets(nil, newObjects, oldObjects)
	if err != nil {
		return nil, err
	}

	req := newRequest(c.db.name, method, c.documentsPath(), query, headers)
	if err = c.db.client.setDocumentBody(req, documents); err != nil {
		return nil, err
	}

	resp, err := c.db.client.send(ctx, req, http.StatusCreated, http.StatusAccepted)
	if err != nil {
		return nil, err
	}

	result, err := parseMultiDocument[arangodb.DocumentUpdateEntity](c.db.client, resp, targets)
	return result, err
}

// ReplaceDocuments replaces documents identified by the _key attribute of each element
func (c *collection) ReplaceDocuments(ctx context.Context, documents any, options *arangodb.DocumentReplaceOptions) (*arangodb.MultiDocumentEntity[arangodb.DocumentUpdateEntity], error) {
	var newObjects, oldObjects any
	if options != nil {
		newObjects, oldObjects = options.NewObject, options.OldObject
	}
	return c.changeDocuments(ctx, "replace-documents", http.MethodPut, documents, options.Params(), options.Headers(), newObjects, oldObjects)
}

// UpdateDocuments patches documents identified by the _key attribute of each element
func (c *collection) UpdateDocuments(ctx context.Context, patches any, options *arangodb.DocumentUpdateOptions) (*arangodb.MultiDocumentEntity[arangodb.DocumentUpdateEntity], error) {
	var newObjects, oldObjects any
	if options != nil {
		newObjects, oldObjects = options.NewObject, options.OldObject
	}
	return c.changeDocuments(ctx, "update-documents", http.MethodPatch, patches, options.Params(), options.Headers(), newObjects, oldObjects)
}

func (c *collection) DeleteDocument(ctx context.Context, key string, options *arangodb.DocumentDeleteOptions) (*arangodb.DocumentDeleteEntity, error) {
	var err error

	ctx, span := c.span(ctx, "delete-document", attribute.String(TraceAttributeDocumentKey, key))
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	path, err := c.documentPath(key)
	if err != nil {
		return nil, err
	}

	req := newRequest(c.db.name, http.MethodDelete, path, options.Params(), options.Headers())

	resp, err := c.db.client.send(ctx, req, http.StatusOK, http.StatusAccepted)
	if err != nil {
		return nil, err
	}

	meta := &arangodb.DocumentDeleteEntity{}
	if err = decodeMeta(resp, meta); err != nil {
		return nil, err
	}

	if options != nil {
		err = c.decodeDocumentField(resp, "old", options.OldObject)
	}

	return meta, err
}

func (c *collection) DeleteDocuments(ctx context.Context, keys []string, options *arangodb.DocumentDeleteOptions) (*arangodb.MultiDocumentEntity[arangodb.DocumentDeleteEntity], error) {
	var err error

	ctx, span := c.span(ctx, "delete-documents")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	var oldObjects any
	if options != nil {
		oldObjects = options.OldObject
	}

	targets, err := newMultiDocumentTargets(nil, nil, oldObjects)
	if err != nil {
		return nil, err
	}

	req := newRequest(c.db.name, http.MethodDelete, c.documentsPath(), options.Params(), options.Headers())
	req.Body = keys

	resp, err := c.db.client.send(ctx, req, http.StatusOK, http.StatusAccepted)
	if err != nil {
		return nil, err
	}

	result, err := parseMultiDocument[arangodb.DocumentDeleteEntity](c.db.client, resp, targets)
	return result, err
}

func (c *collection) DocumentExists(ctx context.Context, key string, options *arangodb.DocumentExistsOptions) (bool, error) {
	var err error

	ctx, span := c.span(ctx, "document-exists", attribute.String(TraceAttributeDocumentKey, key))
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	path, err := c.documentPath(key)
	if err != nil {
		return false, err
	}

	req := newRequest(c.db.name, http.MethodHead, path, nil, options.Headers())

	_, err = c.db.client.send(ctx, req, http.StatusOK, http.StatusNotModified)
	if err == nil {
		return true, nil
	}

	if errors.IsNotFound(err) {
		err = nil
		return false, nil
	}

	return false, err
}
