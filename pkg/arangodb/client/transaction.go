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

const traceAttributeTransactionID string = "arangodb.transaction.id"

// Transaction runs action, a JavaScript function, on the server and decodes its return value
// into result
func (db *database) Transaction(ctx context.Context, action string, result any, options *arangodb.TransactionOptions) error {
	var err error

	ctx, span := db.span(ctx, "transaction")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	if action == "" {
		err = fmt.Errorf("transaction action must not be empty (%w)", errors.ErrBadRequest)
		return err
	}

	req := db.request(http.MethodPost, "/_api/transaction")
	req.Body = options.Request(action)

	resp, err := db.client.send(ctx, req, http.StatusOK)
	if err != nil {
		return err
	}

	docs := &arangoResponse{Response: resp.Response, codec: db.client.documentSerde(resp)}
	err = docs.decodeField("result", result)
	return err
}

func (db *database) streamTransaction(ctx context.Context, spanName, method, id string) (*arangodb.StreamTransactionEntity, error) {
	var err error

	ctx, span := db.span(ctx, spanName, attribute.String(traceAttributeTransactionID, id))
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	if id == "" {
		err = fmt.Errorf("transaction id must not be empty (%w)", errors.ErrBadRequest)
		return nil, err
	}

	resp, err := db.client.send(ctx, db.request(method, "/_api/transaction/"+url.PathEscape(id)), http.StatusOK)
	if err != nil {
		return nil, err
	}

	result := resultEnvelope[arangodb.StreamTransactionEntity]{}
	if err = resp.decode(&result); err != nil {
		return nil, err
	}

	return &result.Result, nil
}

func (db *database) BeginStreamTransaction(ctx context.Context, options *arangodb.StreamTransactionOptions) (*arangodb.StreamTransactionEntity, error) {
	var err error

	ctx, span := db.span(ctx, "begin-stream-transaction")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := newRequest(db.name, http.MethodPost, "/_api/transaction/begin", nil, options.Headers())
	req.Body = options.Request()

	resp, err := db.client.send(ctx, req, http.StatusCreated)
	if err != nil {
		return nil, err
	}

	result := resultEnvelope[arangodb.StreamTransactionEntity]{}
	if err = resp.decode(&result); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String(traceAttributeTransactionID, result.Result.ID))

	return &result.Result, nil
}

func (db *database) CommitStreamTransaction(ctx context.Context, id string) (*arangodb.StreamTransactionEntity, error) {
	return db.streamTransaction(ctx, "commit-stream-transaction", http.MethodPut, id)
}

func (db *database) AbortStreamTransaction(ctx context.Context, id string) (*arangodb.StreamTransactionEntity, error) {
	return db.streamTransaction(ctx, "abort-stream-transaction", http.MethodDelete, id)
}

func (db *database) StreamTransaction(ctx context.Context, id string) (*arangodb.StreamTransactionEntity, error) {
	return db.streamTransaction(ctx, "stream-transaction", http.MethodGet, id)
}

func (db *database) StreamTransactions(ctx context.Context) ([]arangodb.TransactionEntity, error) {
	var err error

	ctx, span := db.span(ctx, "stream-transactions")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	resp, err := db.client.send(ctx, db.request(http.MethodGet, "/_api/transaction"), http.StatusOK)
	if err != nil {
		return nil, err
	}

	result := struct {
		Transactions []arangodb.TransactionEntity `json:"transactions"`
	}{}
	err = resp.decode(&result)
	return result.Transactions, err
}
