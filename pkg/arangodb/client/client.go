package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/diwise/arangodb-driver/pkg/arangodb"
	"github.com/diwise/arangodb-driver/pkg/arangodb/connection"
	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
	"github.com/diwise/arangodb-driver/pkg/arangodb/serde"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ArangoDB is the entry point of the driver. It talks to the _system database for server
// wide operations and hands out Database handles for everything else.
type ArangoDB interface {
	DB(name string) Database
	CreateDatabase(ctx context.Context, name string, options *arangodb.DatabaseCreateOptions) (Database, error)
	Databases(ctx context.Context) ([]string, error)
	AccessibleDatabases(ctx context.Context) ([]string, error)
	AccessibleDatabasesFor(ctx context.Context, user string) ([]string, error)
	DatabaseExists(ctx context.Context, name string) (bool, error)

	Version(ctx context.Context) (*arangodb.VersionEntity, error)
	Engine(ctx context.Context) (*arangodb.EngineEntity, error)
	Role(ctx context.Context) (arangodb.ServerRole, error)
	ServerID(ctx context.Context) (string, error)

	CreateUser(ctx context.Context, user, password string, options *arangodb.UserCreateOptions) (*arangodb.UserEntity, error)
	User(ctx context.Context, user string) (*arangodb.UserEntity, error)
	Users(ctx context.Context) ([]arangodb.UserEntity, error)
	UpdateUser(ctx context.Context, user string, options arangodb.UserUpdateOptions) (*arangodb.UserEntity, error)
	ReplaceUser(ctx context.Context, user string, options arangodb.UserUpdateOptions) (*arangodb.UserEntity, error)
	DeleteUser(ctx context.Context, user string) error
	GrantDefaultDatabaseAccess(ctx context.Context, user string, permissions arangodb.Permissions) error
	GrantDefaultCollectionAccess(ctx context.Context, user string, permissions arangodb.Permissions) error

	Logs(ctx context.Context, options *arangodb.LogOptions) (*arangodb.LogEntriesEntity, error)
	LogLevel(ctx context.Context) (arangodb.LogLevelEntity, error)
	SetLogLevel(ctx context.Context, levels arangodb.LogLevelEntity) (arangodb.LogLevelEntity, error)

	Execute(ctx context.Context, req *connection.Request) (*connection.Response, error)
	Connection() connection.Connection
	Close() error
}

const SystemDatabase = "_system"

const (
	TraceAttributeDatabase    string = "arangodb.database"
	TraceAttributeCollection  string = "arangodb.collection"
	TraceAttributeDocumentKey string = "arangodb.document.key"
	TraceAttributeGraph       string = "arangodb.graph"
	TraceAttributeView        string = "arangodb.view"
	TraceAttributeUser        string = "arangodb.user"
)

var tracer = otel.Tracer("arangodb-client")

type config struct {
	hosts       []string
	connOptions []connection.Option
	conn        connection.Connection
	userSerde   serde.Serde
}

type Option func(*config)

func Hosts(hosts ...string) Option {
	return func(c *config) {
		c.hosts = append(c.hosts, hosts...)
	}
}

func BasicAuthentication(user, password string) Option {
	return func(c *config) {
		c.connOptions = append(c.connOptions, connection.WithAuthentication(connection.BasicAuthentication(user, password)))
	}
}

func JWTAuthentication(token string) Option {
	return func(c *config) {
		c.connOptions = append(c.connOptions, connection.WithAuthentication(connection.JWTAuthentication(token)))
	}
}

func Protocol(protocol connection.Protocol) Option {
	return func(c *config) {
		c.connOptions = append(c.connOptions, connection.WithProtocol(protocol))
	}
}

func Timeout(timeout time.Duration) Option {
	return func(c *config) {
		c.connOptions = append(c.connOptions, connection.WithTimeout(timeout))
	}
}

func MaxConnections(max int) Option {
	return func(c *config) {
		c.connOptions = append(c.connOptions, connection.WithMaxConnections(max))
	}
}

func ChunkSize(size int) Option {
	return func(c *config) {
		c.connOptions = append(c.connOptions, connection.WithChunkSize(size))
	}
}

func UseTLS(tlsConfig *tls.Config) Option {
	return func(c *config) {
		if tlsConfig == nil {
			tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		c.connOptions = append(c.connOptions, connection.WithTLS(tlsConfig))
	}
}

func LoadBalancing(strategy connection.LoadBalancing) Option {
	return func(c *config) {
		c.connOptions = append(c.connOptions, connection.WithLoadBalancing(strategy))
	}
}

func AcquireHostList(enabled bool) Option {
	return func(c *config) {
		c.connOptions = append(c.connOptions, connection.WithAcquireHostList(enabled, 0))
	}
}

func AcquireHostListInterval(interval time.Duration) Option {
	return func(c *config) {
		c.connOptions = append(c.connOptions, connection.WithAcquireHostList(true, interval))
	}
}

func Compression(compression connection.Compression, threshold, level int) Option {
	return func(c *config) {
		c.connOptions = append(c.connOptions, connection.WithCompression(compression, threshold, level))
	}
}

// UserSerde encodes and decodes user documents. It must produce the content type of the
// configured protocol.
func UserSerde(s serde.Serde) Option {
	return func(c *config) {
		c.userSerde = s
	}
}

func Debug(enabled bool) Option {
	return func(c *config) {
		c.connOptions = append(c.connOptions, connection.WithDebug(enabled))
	}
}

// WithConnection makes the client use an existing connection, transport options are ignored
func WithConnection(conn connection.Connection) Option {
	return func(c *config) {
		c.conn = conn
	}
}

func New(options ...Option) (ArangoDB, error) {
	cfg := &config{}
	for _, option := range options {
		option(cfg)
	}

	conn := cfg.conn
	if conn == nil {
		hosts := cfg.hosts
		if len(hosts) == 0 {
			hosts = []string{"http://127.0.0.1:8529"}
		}

		var err error
		conn, err = connection.New(hosts, cfg.connOptions...)
		if err != nil {
			return nil, err
		}
	}

	return &arangoClient{
		conn:      conn,
		userSerde: cfg.userSerde,
	}, nil
}

type arangoClient struct {
	conn      connection.Connection
	userSerde serde.Serde
}

type arangoResponse struct {
	*connection.Response
	codec serde.Serde
}

func (r *arangoResponse) decode(v any) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("empty response body (%w)", errors.ErrBadResponse)
	}
	if err := r.codec.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %s (%w)", err.Error(), errors.ErrBadResponse)
	}
	return nil
}

// decodeField decodes one top level attribute of the body into v. A missing attribute leaves
// v untouched.
func (r *arangoResponse) decodeField(name string, v any) error {
	if v == nil || len(r.Body) == 0 {
		return nil
	}

	raw, err := r.codec.Field(r.Body, name)
	if err != nil {
		return fmt.Errorf("failed to read %s from response: %s (%w)", name, err.Error(), errors.ErrBadResponse)
	}
	if raw == nil {
		return nil
	}

	if err := r.codec.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode %s: %s (%w)", name, err.Error(), errors.ErrBadResponse)
	}
	return nil
}

func newRequest(database, method, path string, query url.Values, headers map[string]string) *connection.Request {
	req := connection.NewRequest(database, method, path)
	for k, v := range query {
		req.Query[k] = v
	}
	for k, v := range headers {
		req.Header[k] = v
	}
	return req
}

// send issues the request and turns every status not listed in expected into an error
func (c *arangoClient) send(ctx context.Context, req *connection.Request, expected ...int) (*arangoResponse, error) {
	resp, err := c.conn.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	codec := serde.ForContentType(resp.ContentType, c.conn.Serde())

	if !slices.Contains(expected, resp.StatusCode) {
		if resp.StatusCode < http.StatusBadRequest {
			return nil, fmt.Errorf("unexpected response code %d (%w)", resp.StatusCode, errors.ErrBadResponse)
		}
		return nil, errors.NewErrorFromResponse(resp.StatusCode, resp.Endpoint, resp.Body, codec.Unmarshal)
	}

	return &arangoResponse{Response: resp, codec: codec}, nil
}

// documentSerde is used for user documents in responses when it can read the response format
func (c *arangoClient) documentSerde(r *arangoResponse) serde.Serde {
	if c.userSerde != nil && c.userSerde.ContentType() == r.codec.ContentType() {
		return c.userSerde
	}
	return r.codec
}

// setDocumentBody attaches a user document, encoded by the user serde when one is configured
func (c *arangoClient) setDocumentBody(req *connection.Request, document any) error {
	if c.userSerde == nil {
		req.Body = document
		return nil
	}

	b, err := c.userSerde.Marshal(document)
	if err != nil {
		return fmt.Errorf("failed to encode document: %s (%w)", err.Error(), errors.ErrBadRequest)
	}

	req.RawBody = b
	req.ContentType = c.userSerde.ContentType()
	return nil
}

func (c *arangoClient) Connection() connection.Connection {
	return c.conn
}

func (c *arangoClient) Close() error {
	return c.conn.Close()
}

func (c *arangoClient) Execute(ctx context.Context, req *connection.Request) (*connection.Response, error) {
	var err error

	ctx, span := tracer.Start(ctx, "execute",
		trace.WithAttributes(attribute.String(TraceAttributeDatabase, req.Database)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	resp, err := c.conn.Do(ctx, req)
	return resp, err
}

func (c *arangoClient) DB(name string) Database {
	if name == "" {
		name = SystemDatabase
	}
	return &database{client: c, name: name}
}

func (c *arangoClient) CreateDatabase(ctx context.Context, name string, options *arangodb.DatabaseCreateOptions) (Database, error) {
	var err error

	ctx, span := tracer.Start(ctx, "create-database",
		trace.WithAttributes(attribute.String(TraceAttributeDatabase, name)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := newRequest(SystemDatabase, http.MethodPost, "/_api/database", nil, nil)
	req.Body = options.Request(name)

	_, err = c.send(ctx, req, http.StatusOK, http.StatusCreated)
	if err != nil {
		return nil, err
	}

	return c.DB(name), nil
}

type resultEnvelope[T any] struct {
	Result T `json:"result"`
}

func (c *arangoClient) databaseNames(ctx context.Context, spanName, path string) ([]string, error) {
	var err error

	ctx, span := tracer.Start(ctx, spanName)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	resp, err := c.send(ctx, newRequest(SystemDatabase, http.MethodGet, path, nil, nil), http.StatusOK)
	if err != nil {
		return nil, err
	}

	result := resultEnvelope[[]string]{}
	if err = resp.decode(&result); err != nil {
		return nil, err
	}

	return result.Result, nil
}

func (c *arangoClient) Databases(ctx context.Context) ([]string, error) {
	return c.databaseNames(ctx, "databases", "/_api/database")
}

func (c *arangoClient) AccessibleDatabases(ctx context.Context) ([]string, error) {
	return c.databaseNames(ctx, "accessible-databases", "/_api/database/user")
}

func (c *arangoClient) AccessibleDatabasesFor(ctx context.Context, user string) ([]string, error) {
	var err error

	ctx, span := tracer.Start(ctx, "accessible-databases-for",
		trace.WithAttributes(attribute.String(TraceAttributeUser, user)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	resp, err := c.send(ctx, newRequest(SystemDatabase, http.MethodGet, "/_api/user/"+url.PathEscape(user)+"/database", nil, nil), http.StatusOK)
	if err != nil {
		return nil, err
	}

	result := resultEnvelope[map[string]any]{}
	if err = resp.decode(&result); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(result.Result))
	for name := range result.Result {
		names = append(names, name)
	}
	slices.Sort(names)

	return names, nil
}

func (c *arangoClient) DatabaseExists(ctx context.Context, name string) (bool, error) {
	return c.DB(name).Exists(ctx)
}

func (c *arangoClient) Version(ctx context.Context) (*arangodb.VersionEntity, error) {
	var err error

	ctx, span := tracer.Start(ctx, "version")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := newRequest(SystemDatabase, http.MethodGet, "/_api/version", nil, nil)
	req.SetQuery("details", "true")

	resp, err := c.send(ctx, req, http.StatusOK)
	if err != nil {
		return nil, err
	}

	version := &arangodb.VersionEntity{}
	err = resp.decode(version)
	return version, err
}

func (c *arangoClient) Engine(ctx context.Context) (*arangodb.EngineEntity, error) {
	var err error

	ctx, span := tracer.Start(ctx, "engine")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	resp, err := c.send(ctx, newRequest(SystemDatabase, http.MethodGet, "/_api/engine", nil, nil), http.StatusOK)
	if err != nil {
		return nil, err
	}

	engine := &arangodb.EngineEntity{}
	err = resp.decode(engine)
	return engine, err
}

func (c *arangoClient) Role(ctx context.Context) (arangodb.ServerRole, error) {
	var err error

	ctx, span := tracer.Start(ctx, "role")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	resp, err := c.send(ctx, newRequest(SystemDatabase, http.MethodGet, "/_admin/server/role", nil, nil), http.StatusOK)
	if err != nil {
		return arangodb.ServerRoleUndefined, err
	}

	result := struct {
		Role arangodb.ServerRole `json:"role"`
	}{}
	if err = resp.decode(&result); err != nil {
		return arangodb.ServerRoleUndefined, err
	}

	return result.Role, nil
}

func (c *arangoClient) ServerID(ctx context.Context) (string, error) {
	var err error

	ctx, span := tracer.Start(ctx, "server-id")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	resp, err := c.send(ctx, newRequest(SystemDatabase, http.MethodGet, "/_admin/server/id", nil, nil), http.StatusOK)
	if err != nil {
		return "", err
	}

	result := struct {
		ID string `json:"id"`
	}{}
	err = resp.decode(&result)
	return result.ID, err
}

func (c *arangoClient) Logs(ctx context.Context, options *arangodb.LogOptions) (*arangodb.LogEntriesEntity, error) {
	var err error

	ctx, span := tracer.Start(ctx, "logs")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	resp, err := c.send(ctx, newRequest(SystemDatabase, http.MethodGet, "/_admin/log/entries", options.Params(), nil), http.StatusOK)
	if err != nil {
		return nil, err
	}

	entries := &arangodb.LogEntriesEntity{}
	err = resp.decode(entries)
	return entries, err
}

func (c *arangoClient) LogLevel(ctx context.Context) (arangodb.LogLevelEntity, error) {
	var err error

	ctx, span := tracer.Start(ctx, "log-level")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	resp, err := c.send(ctx, newRequest(SystemDatabase, http.MethodGet, "/_admin/log/level", nil, nil), http.StatusOK)
	if err != nil {
		return nil, err
	}

	levels := arangodb.LogLevelEntity{}
	err = resp.decode(&levels)
	return levels, err
}

func (c *arangoClient) SetLogLevel(ctx context.Context, levels arangodb.LogLevelEntity) (arangodb.LogLevelEntity, error) {
	var err error

	ctx, span := tracer.Start(ctx, "set-log-level")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req := newRequest(SystemDatabase, http.MethodPut, "/_admin/log/level", nil, nil)
	req.Body = levels

	resp, err := c.send(ctx, req, http.StatusOK)
	if err != nil {
		return nil, err
	}

	result := arangodb.LogLevelEntity{}
	err = resp.decode(&result)
	return result, err
}
