// Package fakearango is an in-memory stand in for an ArangoDB server. It implements the parts
// of the REST API the client uses, over HTTP with JSON or VelocyPack bodies and over
// VelocyStream, so that the client can be exercised without a real server.
package fakearango

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/diwise/arangodb-driver/pkg/arangodb"
	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/riandyrn/otelchi"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel/trace"
)

const (
	systemDatabase string = "_system"
	rootUser       string = "root"
	serverVersion  string = "3.11.0"
)

type config struct {
	serviceName    string
	rootPassword   string
	authentication bool
	policy         string
	tokens         map[string]string
	endpoints      []string
	role           arangodb.ServerRole
	allowedOrigins []string
}

type Option func(*config)

// WithRootPassword enables authentication, the root user is the only user that exists at start
func WithRootPassword(password string) Option {
	return func(c *config) {
		c.rootPassword = password
		c.authentication = true
	}
}

// WithToken accepts token as a bearer token for user
func WithToken(token, user string) Option {
	return func(c *config) {
		c.tokens[token] = user
		c.authentication = true
	}
}

func WithPolicy(policy string) Option {
	return func(c *config) {
		c.policy = policy
	}
}

// WithEndpoints sets the endpoints reported by /_api/cluster/endpoints and makes the server
// claim to be a coordinator
func WithEndpoints(endpoints ...string) Option {
	return func(c *config) {
		c.endpoints = endpoints
		c.role = arangodb.ServerRoleCoordinator
	}
}

func WithAllowedOrigins(origins ...string) Option {
	return func(c *config) {
		c.allowedOrigins = origins
	}
}

func WithServiceName(name string) Option {
	return func(c *config) {
		c.serviceName = name
	}
}

type Server struct {
	mu sync.Mutex

	cfg        config
	authorizer Authorizer
	serverID   string
	tick       uint64

	databases    map[string]*database
	users        map[string]*user
	transactions map[string]*transaction
	logLevels    arangodb.LogLevelEntity

	handler http.Handler
}

func New(ctx context.Context, options ...Option) (*Server, error) {
	cfg := config{
		serviceName:    "fakearango",
		policy:         DefaultPolicy,
		tokens:         map[string]string{},
		role:           arangodb.ServerRoleSingle,
		allowedOrigins: []string{"*"},
	}
	for _, option := range options {
		option(&cfg)
	}

	authorizer, err := NewAuthorizer(ctx, strings.NewReader(cfg.policy))
	if err != nil {
		return nil, fmt.Errorf("failed to create authorizer: %w", err)
	}

	s := &Server{
		cfg:          cfg,
		authorizer:   authorizer,
		serverID:     "PRMR-" + uuid.NewString(),
		databases:    map[string]*database{},
		users:        map[string]*user{},
		transactions: map[string]*transaction{},
		logLevels:    arangodb.LogLevelEntity{"general": arangodb.LogLevelInfo, "queries": arangodb.LogLevelInfo},
	}

	s.databases[systemDatabase] = newDatabase(s.nextID(), systemDatabase)
	s.users[rootUser] = &user{
		entity:      arangodb.UserEntity{User: rootUser, Active: true},
		password:    cfg.rootPassword,
		databases:   map[string]arangodb.Permissions{"*": arangodb.PermissionsReadWrite},
		collections: map[string]map[string]arangodb.Permissions{},
	}

	s.handler = s.newRouter(logging.GetFromContext(ctx))

	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// nextID returns a new numeric identifier. Callers hold s.mu or own s exclusively.
func (s *Server) nextID() string {
	s.tick++
	return strconv.FormatUint(s.tick, 10)
}

func (s *Server) nextRev() string {
	s.tick++
	return "_" + strconv.FormatUint(s.tick, 36)
}

func (s *Server) newRouter(logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.New(cors.Options{
		AllowedOrigins:   s.cfg.allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowCredentials: true,
		Debug:            false,
	}).Handler)

	r.Use(otelchi.Middleware(s.cfg.serviceName, otelchi.WithChiRoutes(r)))
	r.Use(Logger(logger))
	r.Use(Decoder())

	r.Route("/_db/{database}", s.routes)
	r.Group(s.routes)

	return r
}

func (s *Server) routes(r chi.Router) {
	r.Use(s.Authorize())

	r.Get("/_api/version", s.version)
	r.Get("/_api/engine", s.engine)
	r.Get("/_api/cluster/endpoints", s.clusterEndpoints)
	r.Get("/_admin/server/role", s.serverRole)
	r.Get("/_admin/server/id", s.serverIdentity)
	r.Get("/_admin/log/level", s.logLevel)
	r.Put("/_admin/log/level", s.setLogLevel)
	r.Get("/_admin/log/entries", s.logEntries)
	r.Post("/_admin/routing/reload", s.reloadRouting)

	r.Route("/_api/database", func(r chi.Router) {
		r.Get("/", s.listDatabases)
		r.Post("/", s.createDatabase)
		r.Get("/current", s.currentDatabase)
		r.Get("/user", s.accessibleDatabases)
		r.Delete("/{name}", s.dropDatabase)
	})

	r.Route("/_api/user", func(r chi.Router) {
		r.Get("/", s.listUsers)
		r.Post("/", s.createUser)
		r.Route("/{user}", func(r chi.Router) {
			r.Get("/", s.getUser)
			r.Put("/", s.replaceUser)
			r.Patch("/", s.updateUser)
			r.Delete("/", s.deleteUser)
			r.Get("/database", s.userDatabases)
			r.Get("/database/{name}", s.getPermission)
			r.Put("/database/{name}", s.grantPermission)
			r.Delete("/database/{name}", s.resetPermission)
			r.Get("/database/{name}/{collection}", s.getPermission)
			r.Put("/database/{name}/{collection}", s.grantPermission)
			r.Delete("/database/{name}/{collection}", s.resetPermission)
		})
	})

	r.Route("/_api/collection", func(r chi.Router) {
		r.Get("/", s.listCollections)
		r.Post("/", s.createCollection)
		r.Route("/{collection}", func(r chi.Router) {
			r.Get("/", s.collectionInfo)
			r.Delete("/", s.dropCollection)
			r.Get("/properties", s.collectionProperties)
			r.Put("/properties", s.changeCollectionProperties)
			r.Get("/count", s.collectionCount)
			r.Get("/revision", s.collectionRevision)
			r.Put("/truncate", s.truncateCollection)
			r.Put("/load", s.loadCollection)
			r.Put("/unload", s.unloadCollection)
			r.Put("/rename", s.renameCollection)
			r.Put("/responsibleShard", s.responsibleShard)
		})
	})

	r.Route("/_api/document/{collection}", func(r chi.Router) {
		r.Post("/", s.insertDocuments)
		r.Put("/", s.putDocuments)
		r.Patch("/", s.updateDocuments)
		r.Delete("/", s.deleteDocuments)
		r.Get("/{key}", s.readDocument)
		r.Head("/{key}", s.readDocument)
		r.Put("/{key}", s.replaceDocument)
		r.Patch("/{key}", s.updateDocument)
		r.Delete("/{key}", s.deleteDocument)
	})

	r.Post("/_api/import", s.importDocuments)

	r.Route("/_api/index", func(r chi.Router) {
		r.Get("/", s.listIndexes)
		r.Post("/", s.ensureIndex)
		r.Get("/{collection}/{id}", s.getIndex)
		r.Delete("/{collection}/{id}", s.deleteIndex)
	})

	r.Route("/_api/cursor", func(r chi.Router) {
		r.Post("/", s.createCursor)
		r.Post("/{id}", s.nextBatch)
		r.Post("/{id}/{batch}", s.nextBatch)
		r.Put("/{id}", s.nextBatch)
		r.Delete("/{id}", s.deleteCursor)
	})
	r.Post("/_api/query", s.parseQuery)
	r.Post("/_api/explain", s.explainQuery)

	r.Route("/_api/transaction", func(r chi.Router) {
		r.Get("/", s.listTransactions)
		r.Post("/", s.javaScriptTransaction)
		r.Post("/begin", s.beginTransaction)
		r.Get("/{id}", s.getTransaction)
		r.Put("/{id}", s.commitTransaction)
		r.Delete("/{id}", s.abortTransaction)
	})

	r.Route("/_api/gharial", func(r chi.Router) {
		r.Get("/", s.listGraphs)
		r.Post("/", s.createGraph)
		r.Route("/{graph}", func(r chi.Router) {
			r.Get("/", s.getGraph)
			r.Delete("/", s.dropGraph)
			r.Get("/vertex", s.graphVertexCollections)
			r.Post("/vertex", s.addVertexCollection)
			r.Delete("/vertex/{collection}", s.removeVertexCollection)
			r.Post("/vertex/{collection}", s.insertVertex)
			r.Get("/vertex/{collection}/{key}", s.readVertex)
			r.Put("/vertex/{collection}/{key}", s.replaceVertex)
			r.Patch("/vertex/{collection}/{key}", s.updateVertex)
			r.Delete("/vertex/{collection}/{key}", s.deleteVertex)
			r.Get("/edge", s.graphEdgeDefinitions)
			r.Post("/edge", s.addEdgeDefinition)
			r.Put("/edge/{collection}", s.replaceEdgeDefinition)
			r.Delete("/edge/{collection}", s.removeEdgeDefinition)
			r.Post("/edge/{collection}", s.insertEdge)
			r.Get("/edge/{collection}/{key}", s.readEdge)
			r.Put("/edge/{collection}/{key}", s.replaceEdge)
			r.Patch("/edge/{collection}/{key}", s.updateEdge)
			r.Delete("/edge/{collection}/{key}", s.deleteEdge)
		})
	})

	r.Route("/_api/view", func(r chi.Router) {
		r.Get("/", s.listViews)
		r.Post("/", s.createView)
		r.Route("/{view}", func(r chi.Router) {
			r.Get("/", s.viewInfo)
			r.Delete("/", s.dropView)
			r.Put("/rename", s.renameView)
			r.Get("/properties", s.viewProperties)
			r.Put("/properties", s.replaceViewProperties)
			r.Patch("/properties", s.updateViewProperties)
		})
	})

	r.Route("/_api/analyzer", func(r chi.Router) {
		r.Get("/", s.listAnalyzers)
		r.Post("/", s.createAnalyzer)
		r.Get("/{name}", s.getAnalyzer)
		r.Delete("/{name}", s.deleteAnalyzer)
	})
}

// Logger stores a logger carrying the trace id of the request in the request context
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			_, ctx, _ = o11y.AddTraceIDToLoggerAndStoreInContext(
				trace.SpanFromContext(ctx),
				logger,
				ctx)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type callerContextKey struct {
	name string
}

var callerCtxKey = &callerContextKey{"fakearango-caller"}

func callerFromContext(ctx context.Context) string {
	if u, ok := ctx.Value(callerCtxKey).(string); ok {
		return u
	}
	return ""
}

// Authorize authenticates the caller and asks the policy whether the request is allowed
func (s *Server) Authorize() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			dbName := databaseName(r)

			s.mu.Lock()
			caller, err := s.authenticate(r)
			var request AccessRequest
			if err == nil {
				request = s.accessRequest(r, caller, dbName)
			}
			s.mu.Unlock()

			if err != nil {
				writeError(w, r, err)
				return
			}

			if err = s.authorizer.CheckAccess(r.Context(), request); err != nil {
				writeError(w, r, newError(http.StatusForbidden, errors.ErrorForbidden, "forbidden"))
				return
			}

			ctx := context.WithValue(r.Context(), callerCtxKey, caller)
			ctx = logging.NewContextWithLogger(ctx, logging.GetFromContext(r.Context()), "database", dbName, "user", caller)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *Server) authenticate(r *http.Request) (string, error) {
	if !s.cfg.authentication {
		return rootUser, nil
	}

	unauthorized := newError(http.StatusUnauthorized, errors.ErrorHTTPUnauthorized, "not authorized to execute this request")

	name, password, token, ok := credentials(r)
	if !ok {
		return "", unauthorized
	}

	if token != "" {
		name, ok = s.cfg.tokens[token]
		if !ok {
			return "", unauthorized
		}
		return name, nil
	}

	u, ok := s.users[name]
	if !ok || !u.entity.Active || u.password != password {
		return "", unauthorized
	}

	return name, nil
}

func (s *Server) accessRequest(r *http.Request, caller, dbName string) AccessRequest {
	request := AccessRequest{
		Method:           r.Method,
		Path:             resourcePath(r),
		User:             caller,
		Database:         dbName,
		Superuser:        caller == rootUser,
		Permission:       string(arangodb.PermissionsNone),
		SystemPermission: string(arangodb.PermissionsNone),
	}

	if u, ok := s.users[caller]; ok {
		request.Permission = string(u.databasePermission(dbName))
		request.SystemPermission = string(u.databasePermission(systemDatabase))
	}

	return request
}

// param returns an unescaped path parameter
func param(r *http.Request, name string) string {
	value := chi.URLParam(r, name)
	if unescaped, err := url.PathUnescape(value); err == nil {
		return unescaped
	}
	return value
}

func databaseName(r *http.Request) string {
	if name := param(r, "database"); name != "" {
		return name
	}
	return systemDatabase
}

// database returns the database addressed by the request. Callers hold s.mu.
func (s *Server) database(r *http.Request) (*database, error) {
	name := databaseName(r)
	db, ok := s.databases[name]
	if !ok {
		return nil, newError(http.StatusNotFound, errors.ErrorArangoDatabaseNotFound, "database not found: %s", name)
	}
	return db, nil
}

// checkTransaction rejects requests that reference a stream transaction that is not running
func (s *Server) checkTransaction(r *http.Request) error {
	id := r.Header.Get(arangodb.HeaderStreamTransactionID)
	if id == "" {
		return nil
	}

	trx, ok := s.transactions[id]
	if !ok || trx.database != databaseName(r) {
		return newError(http.StatusNotFound, errors.ErrorTransactionNotFound, "transaction '%s' not found", id)
	}

	if trx.entity.Status != arangodb.StreamTransactionRunning {
		return newError(http.StatusBadRequest, errors.ErrorTransactionAborted, "transaction '%s' is not running", id)
	}

	return nil
}

func queryBool(r *http.Request, name string, fallback bool) bool {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
