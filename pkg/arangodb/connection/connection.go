package connection

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/diwise/arangodb-driver/pkg/arangodb/serde"
)

type Protocol int

const (
	ProtocolHTTPJSON Protocol = iota
	ProtocolHTTPVPack
	ProtocolVST
)

func (p Protocol) String() string {
	switch p {
	case ProtocolHTTPJSON:
		return "http_json"
	case ProtocolHTTPVPack:
		return "http_vpack"
	case ProtocolVST:
		return "vst"
	}
	return fmt.Sprintf("protocol(%d)", int(p))
}

// ParseProtocol accepts the protocol names used in configuration files
func ParseProtocol(name string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "http", "http_json", "json":
		return ProtocolHTTPJSON, nil
	case "http_vpack", "vpack":
		return ProtocolHTTPVPack, nil
	case "vst":
		return ProtocolVST, nil
	}
	return ProtocolHTTPJSON, fmt.Errorf("unknown protocol %q", name)
}

type AuthenticationType int

const (
	AuthenticationNone AuthenticationType = iota
	AuthenticationBasic
	AuthenticationJWT
)

type Authentication struct {
	Type     AuthenticationType
	User     string
	Password string
	Token    string
}

func BasicAuthentication(user, password string) Authentication {
	return Authentication{Type: AuthenticationBasic, User: user, Password: password}
}

func JWTAuthentication(token string) Authentication {
	return Authentication{Type: AuthenticationJWT, Token: token}
}

// Request is a protocol independent description of a single server call. Path is relative to
// the database, e.g. /_api/version. Body is encoded with the connection serde unless RawBody
// is set, in which case RawBody is sent as is with ContentType.
type Request struct {
	Database    string
	Method      string
	Path        string
	Query       url.Values
	Header      map[string]string
	Body        any
	RawBody     []byte
	ContentType string
}

func NewRequest(database, method, path string) *Request {
	return &Request{
		Database: database,
		Method:   method,
		Path:     path,
		Query:    url.Values{},
		Header:   map[string]string{},
	}
}

func (r *Request) SetQuery(name, value string) *Request {
	if r.Query == nil {
		r.Query = url.Values{}
	}
	r.Query.Set(name, value)
	return r
}

func (r *Request) SetHeader(name, value string) *Request {
	if r.Header == nil {
		r.Header = map[string]string{}
	}
	r.Header[name] = value
	return r
}

func (r *Request) SetBody(body any) *Request {
	r.Body = body
	return r
}

type Response struct {
	StatusCode  int
	Header      map[string]string
	ContentType string
	Body        []byte
	Endpoint    string
}

// HeaderValue returns the value of a response header regardless of the case used by the server
func (r *Response) HeaderValue(name string) string {
	if r.Header == nil {
		return ""
	}
	if v, ok := r.Header[strings.ToLower(name)]; ok {
		return v
	}
	for k, v := range r.Header {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// Connection sends requests to one or more server endpoints. A returned error means that no
// server answered; responses with error status codes are returned as responses.
type Connection interface {
	Do(ctx context.Context, req *Request) (*Response, error)
	Serde() serde.Serde
	Protocol() Protocol
	Endpoints() []string
	UpdateEndpoints(endpoints []string) error
	SetAuthentication(auth Authentication) error
	Close() error
}

func databasePath(database, path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if database == "" {
		return path
	}
	return "/_db/" + url.PathEscape(database) + path
}

func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	endpoint = strings.TrimSuffix(endpoint, "/")

	switch {
	case strings.HasPrefix(endpoint, "tcp://"):
		return "http://" + strings.TrimPrefix(endpoint, "tcp://")
	case strings.HasPrefix(endpoint, "ssl://"):
		return "https://" + strings.TrimPrefix(endpoint, "ssl://")
	case strings.HasPrefix(endpoint, "vst://"):
		return "http://" + strings.TrimPrefix(endpoint, "vst://")
	case !strings.Contains(endpoint, "://"):
		return "http://" + endpoint
	}

	return endpoint
}
