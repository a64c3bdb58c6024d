package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/diwise/arangodb-driver/pkg/arangodb"
	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
	"github.com/diwise/arangodb-driver/pkg/arangodb/serde"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// Cursor iterates over the result of a query. Batches are fetched from the server on demand
// as the local batch is drained. A cursor is safe for concurrent use.
type Cursor interface {
	// ReadDocument decodes the next result into result, which may be nil to skip it. It returns
	// errors.ErrNoMoreDocuments once all results are consumed.
	ReadDocument(ctx context.Context, result any) (arangodb.DocumentMeta, error)
	HasMore() bool
	// Close releases the server side cursor if it still holds results
	Close(ctx context.Context) error

	ID() string
	// Count is the total number of results, only available when the query asked for it
	Count() (int64, bool)
	Statistics() arangodb.CursorStats
	Warnings() []arangodb.CursorWarning
	IsCached() bool
	Extra() arangodb.CursorExtra
}

type cursor struct {
	mu sync.Mutex

	db         *database
	allowRetry bool
	headers    map[string]string

	entity arangodb.CursorEntity
	batch  [][]byte
	next   int
	codec  serde.Serde
	docs   serde.Serde
	closed bool
}

func cursorPath(id string, segments ...string) string {
	p := "/_api/cursor/" + url.PathEscape(id)
	for _, s := range segments {
		p += "/" + url.PathEscape(s)
	}
	return p
}

func newCursor(db *database, resp *arangoResponse, allowRetry bool, headers map[string]string) (*cursor, error) {
	c := &cursor{
		db:         db,
		allowRetry: allowRetry,
		headers:    headers,
	}

	if err := c.load(resp); err != nil {
		return nil, err
	}

	return c, nil
}

// load replaces the local batch with the one held by resp
func (c *cursor) load(resp *arangoResponse) error {
	entity := arangodb.CursorEntity{}
	if err := resp.decode(&entity); err != nil {
		return err
	}

	raw, err := resp.codec.Field(resp.Body, "result")
	if err != nil {
		return fmt.Errorf("failed to read cursor batch: %s (%w)", err.Error(), errors.ErrBadResponse)
	}

	var batch [][]byte
	if raw != nil {
		if batch, err = resp.codec.Elements(raw); err != nil {
			return fmt.Errorf("failed to read cursor batch: %s (%w)", err.Error(), errors.ErrBadResponse)
		}
	}

	// follow up batches may omit the id and the count
	if entity.Count == nil {
		entity.Count = c.entity.Count
	}
	if entity.ID == "" {
		entity.ID = c.entity.ID
	}

	c.entity = entity
	c.batch = batch
	c.next = 0
	c.codec = resp.codec
	c.docs = c.db.client.documentSerde(resp)

	return nil
}

func (c *cursor) ReadDocument(ctx context.Context, result any) (arangodb.DocumentMeta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	meta := arangodb.DocumentMeta{}

	if c.closed {
		return meta, errors.ErrCursorClosed
	}

	// the server may send empty batches while it still has more results
	for c.next >= len(c.batch) {
		if !c.entity.HasMore {
			return meta, errors.ErrNoMoreDocuments
		}
		if err := c.fetch(ctx); err != nil {
			return meta, err
		}
	}

	element := c.batch[c.next]
	c.next++

	// results that are not documents carry no meta data
	_ = c.codec.Unmarshal(element, &meta)

	if result != nil {
		if err := c.docs.Unmarshal(element, result); err != nil {
			return meta, fmt.Errorf("failed to decode query result: %s (%w)", err.Error(), errors.ErrBadResponse)
		}
	}

	return meta, nil
}

func (c *cursor) fetch(ctx context.Context) error {
	var err error

	ctx, span := c.db.span(ctx, "read-cursor-batch", attribute.String("arangodb.cursor.id", c.entity.ID))
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	path := cursorPath(c.entity.ID)
	if c.allowRetry && c.entity.NextBatchID != "" {
		path = cursorPath(c.entity.ID, c.entity.NextBatchID)
	}

	req := newRequest(c.db.name, http.MethodPost, path, nil, c.headers)

	resp, err := c.db.client.send(ctx, req, http.StatusOK)
	if err != nil {
		return err
	}

	err = c.load(resp)
	return err
}

func (c *cursor) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return !c.closed && (c.next < len(c.batch) || c.entity.HasMore)
}

func (c *cursor) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	c.batch = nil

	if !c.entity.HasMore || c.entity.ID == "" {
		return nil
	}

	var err error

	ctx, span := c.db.span(ctx, "close-cursor", attribute.String("arangodb.cursor.id", c.entity.ID))
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	_, err = c.db.client.send(ctx, newRequest(c.db.name, http.MethodDelete, cursorPath(c.entity.ID), nil, c.headers), http.StatusAccepted, http.StatusOK)
	if errors.IsNotFound(err) {
		logging.GetFromContext(ctx).Debug("cursor already gone on server", "id", c.entity.ID)
		err = nil
	}

	return err
}

func (c *cursor) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entity.ID
}

func (c *cursor) Count() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entity.Count == nil {
		return 0, false
	}
	return *c.entity.Count, true
}

func (c *cursor) Statistics() arangodb.CursorStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entity.Extra.Stats
}

func (c *cursor) Warnings() []arangodb.CursorWarning {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entity.Extra.Warnings
}

func (c *cursor) IsCached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entity.Cached
}

func (c *cursor) Extra() arangodb.CursorExtra {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entity.Extra
}

func (db *database) Query(ctx context.Context, query string, bindVars map[string]any, options *arangodb.AqlQueryOptions) (Cursor, error) {
	var err error

	ctx, span := db.span(ctx, "query")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	if query == "" {
		err = fmt.Errorf("query must not be empty (%w)", errors.ErrBadRequest)
		return nil, err
	}

	headers := options.Headers()

	req := newRequest(db.name, http.MethodPost, "/_api/cursor", nil, headers)
	req.Body = options.Request(query, bindVars)

	resp, err := db.client.send(ctx, req, http.StatusCreated)
	if err != nil {
		return nil, err
	}

	c, err := newCursor(db, resp, options != nil && options.AllowRetry, headers)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// Cursor resumes a server side cursor. With nextBatchID set the batch with that id is fetched
// again, which requires the query to have been created with AllowRetry.
func (db *database) Cursor(ctx context.Context, cursorID, nextBatchID string) (Cursor, error) {
	var err error

	ctx, span := db.span(ctx, "resume-cursor", attribute.String("arangodb.cursor.id", cursorID))
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	if cursorID == "" {
		err = fmt.Errorf("cursor id must not be empty (%w)", errors.ErrBadRequest)
		return nil, err
	}

	path := cursorPath(cursorID)
	if nextBatchID != "" {
		path = cursorPath(cursorID, nextBatchID)
	}

	resp, err := db.client.send(ctx, db.request(http.MethodPost, path), http.StatusOK)
	if err != nil {
		return nil, err
	}

	c, err := newCursor(db, resp, nextBatchID != "", nil)
	if err != nil {
		return nil, err
	}

	return c, nil
}
