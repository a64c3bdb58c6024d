package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/diwise/arangodb-driver/pkg/arangodb"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func userPath(user string) string {
	return "/_api/user/" + url.PathEscape(user)
}

// permissionPath addresses the database level permission, or the collection level one when
// collection is set. "*" selects the defaults.
func permissionPath(user, database, collection string) string {
	p := userPath(user) + "/database/" + url.PathEscape(database)
	if collection != "" {
		p += "/" + url.PathEscape(collection)
	}
	return p
}

func (c *arangoClient) CreateUser(ctx context.Context, user, password string, options *arangodb.UserCreateOptions) (*arangodb.UserEntity, error) {
	var err error

	ctx, span := tracer.Start(ctx, "create-user",
		trace.WithAttributes(attribute.String(TraceAttributeUser, user)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := newRequest(SystemDatabase, http.MethodPost, "/_api/user", nil, nil)
	req.Body = options.Request(user, password)

	resp, err := c.send(ctx, req, http.StatusCreated)
	if err != nil {
		return nil, err
	}

	entity := &arangodb.UserEntity{}
	err = resp.decode(entity)
	return entity, err
}

func (c *arangoClient) User(ctx context.Context, user string) (*arangodb.UserEntity, error) {
	var err error

	ctx, span := tracer.Start(ctx, "user",
		trace.WithAttributes(attribute.String(TraceAttributeUser, user)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	resp, err := c.send(ctx, newRequest(SystemDatabase, http.MethodGet, userPath(user), nil, nil), http.StatusOK)
	if err != nil {
		return nil, err
	}

	entity := &arangodb.UserEntity{}
	err = resp.decode(entity)
	return entity, err
}

func (c *arangoClient) Users(ctx context.Context) ([]arangodb.UserEntity, error) {
	var err error

	ctx, span := tracer.Start(ctx, "users")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	resp, err := c.send(ctx, newRequest(SystemDatabase, http.MethodGet, "/_api/user/", nil, nil), http.StatusOK)
	if err != nil {
		return nil, err
	}

	result := resultEnvelope[[]arangodb.UserEntity]{}
	err = resp.decode(&result)
	return result.Result, err
}

func (c *arangoClient) changeUser(ctx context.Context, spanName, method, user string, options arangodb.UserUpdateOptions) (*arangodb.UserEntity, error) {
	var err error

	ctx, span := tracer.Start(ctx, spanName,
		trace.WithAttributes(attribute.String(TraceAttributeUser, user)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := newRequest(SystemDatabase, method, userPath(user), nil, nil)
	req.Body = options

	resp, err := c.send(ctx, req, http.StatusOK)
	if err != nil {
		return nil, err
	}

	entity := &arangodb.UserEntity{}
	err = resp.decode(entity)
	return entity, err
}

func (c *arangoClient) UpdateUser(ctx context.Context, user string, options arangodb.UserUpdateOptions) (*arangodb.UserEntity, error) {
	return c.changeUser(ctx, "update-user", http.MethodPatch, user, options)
}

func (c *arangoClient) ReplaceUser(ctx context.Context, user string, options arangodb.UserUpdateOptions) (*arangodb.UserEntity, error) {
	return c.changeUser(ctx, "replace-user", http.MethodPut, user, options)
}

func (c *arangoClient) DeleteUser(ctx context.Context, user string) error {
	var err error

	ctx, span := tracer.Start(ctx, "delete-user",
		trace.WithAttributes(attribute.String(TraceAttributeUser, user)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	_, err = c.send(ctx, newRequest(SystemDatabase, http.MethodDelete, userPath(user), nil, nil), http.StatusAccepted)
	return err
}

type grant struct {
	Grant arangodb.Permissions `json:"grant"`
}

func (c *arangoClient) grant(ctx context.Context, user, database, collection string, permissions arangodb.Permissions) error {
	var err error

	ctx, span := tracer.Start(ctx, "grant-access",
		trace.WithAttributes(attribute.String(TraceAttributeUser, user)),
		trace.WithAttributes(attribute.String(TraceAttributeDatabase, database)),
		trace.WithAttributes(attribute.String(TraceAttributeCollection, collection)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := newRequest(SystemDatabase, http.MethodPut, permissionPath(user, database, collection), nil, nil)
	req.Body = grant{Grant: permissions}

	_, err = c.send(ctx, req, http.StatusOK)
	return err
}

func (c *arangoClient) resetAccess(ctx context.Context, user, database, collection string) error {
	var err error

	ctx, span := tracer.Start(ctx, "reset-access",
		trace.WithAttributes(attribute.String(TraceAttributeUser, user)),
		trace.WithAttributes(attribute.String(TraceAttributeDatabase, database)),
		trace.WithAttributes(attribute.String(TraceAttributeCollection, collection)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	_, err = c.send(ctx, newRequest(SystemDatabase, http.MethodDelete, permissionPath(user, database, collection), nil, nil), http.StatusOK, http.StatusAccepted)
	return err
}

func (c *arangoClient) permissions(ctx context.Context, user, database, collection string) (arangodb.Permissions, error) {
	var err error

	ctx, span := tracer.Start(ctx, "permissions",
		trace.WithAttributes(attribute.String(TraceAttributeUser, user)),
		trace.WithAttributes(attribute.String(TraceAttributeDatabase, database)),
		trace.WithAttributes(attribute.String(TraceAttributeCollection, collection)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	resp, err := c.send(ctx, newRequest(SystemDatabase, http.MethodGet, permissionPath(user, database, collection), nil, nil), http.StatusOK)
	if err != nil {
		return arangodb.PermissionsUndefined, err
	}

	result := resultEnvelope[arangodb.Permissions]{}
	if err = resp.decode(&result); err != nil {
		return arangodb.PermissionsUndefined, err
	}

	return result.Result, nil
}

func (c *arangoClient) GrantDefaultDatabaseAccess(ctx context.Context, user string, permissions arangodb.Permissions) error {
	return c.grant(ctx, user, "*", "", permissions)
}

func (c *arangoClient) GrantDefaultCollectionAccess(ctx context.Context, user string, permissions arangodb.Permissions) error {
	return c.grant(ctx, user, "*", "*", permissions)
}
