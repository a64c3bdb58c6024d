package fakearango

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/open-policy-agent/opa/rego"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("fakearango/authz")

// DefaultPolicy grants superusers everything and other users what their database permission
// allows. Administrative endpoints require rw on the system database.
const DefaultPolicy string = `
package arangodb.authz

import rego.v1

default allow := false

allow if input.superuser

allow if {
	not administrative
	input.method in {"GET", "HEAD"}
	input.permission in {"ro", "rw"}
}

allow if {
	not administrative
	input.permission == "rw"
}

allow if {
	administrative
	input.systemPermission == "rw"
}

allow if {
	input.method == "GET"
	input.path[0] == "_api"
	input.path[1] == "user"
	input.path[2] == input.user
}

allow if {
	input.method == "GET"
	input.path == ["_api", "database", "user"]
}

allow if {
	input.method == "GET"
	input.path == ["_api", "version"]
}

administrative if {
	input.path[0] == "_api"
	input.path[1] == "user"
}

administrative if {
	input.path[0] == "_api"
	input.path[1] == "database"
	not input.path[2] in {"current", "user"}
}
`

type AccessRequest struct {
	Method           string
	Path             []string
	User             string
	Database         string
	Superuser        bool
	Permission       string
	SystemPermission string
}

type Authorizer interface {
	CheckAccess(ctx context.Context, request AccessRequest) error
}

type authorizerImpl struct {
	preparedQuery rego.PreparedEvalQuery
}

var errAccessDenied = errors.New("authorization failed")

func NewAuthorizer(ctx context.Context, policies io.Reader) (Authorizer, error) {

	module, err := io.ReadAll(policies)
	if err != nil {
		return nil, fmt.Errorf("unable to read authz policies: %s", err.Error())
	}

	impl := &authorizerImpl{}

	impl.preparedQuery, err = rego.New(
		rego.Query("x = data.arangodb.authz.allow"),
		rego.Module("arangodb.rego", string(module)),
	).PrepareForEval(ctx)

	if err != nil {
		return nil, err
	}

	return impl, nil
}

func (a *authorizerImpl) CheckAccess(ctx context.Context, request AccessRequest) error {
	var err error

	ctx, span := tracer.Start(ctx, "check-auth")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	input := map[string]any{
		"method":           request.Method,
		"path":             request.Path,
		"user":             request.User,
		"database":         request.Database,
		"superuser":        request.Superuser,
		"permission":       request.Permission,
		"systemPermission": request.SystemPermission,
	}

	results, err := a.preparedQuery.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		err = fmt.Errorf("opa eval failed: %w", err)
		return err
	}

	if len(results) == 0 {
		err = fmt.Errorf("auth failed: opa query could not be satisfied")
		return err
	}

	allowed, ok := results[0].Bindings["x"].(bool)
	if !ok {
		err = errors.New("opa error: unexpected result type")
		return err
	}

	if !allowed {
		err = errAccessDenied
		return err
	}

	return nil
}

// credentials extracts user and password or a bearer token from the Authorization header
func credentials(r *http.Request) (user, password, token string, ok bool) {
	if user, password, ok = r.BasicAuth(); ok {
		return user, password, "", true
	}

	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return "", "", header[7:], true
	}

	return "", "", "", false
}

// resourcePath splits the request path below the database prefix into unescaped segments
func resourcePath(r *http.Request) []string {
	segments := []string{}
	for _, s := range strings.Split(r.URL.Path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}

	if len(segments) >= 2 && segments[0] == "_db" {
		segments = segments[2:]
	}

	return segments
}
