package connection

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/diwise/arangodb-driver/pkg/arangodb/serde"
)

const (
	vstVersion = 1

	vstTypeRequest  = 1
	vstTypeResponse = 2
	vstTypeAuth     = 1000
)

var vstRequestTypes = map[string]int{
	http.MethodDelete:  0,
	http.MethodGet:     1,
	http.MethodPost:    2,
	http.MethodPut:     3,
	http.MethodHead:    4,
	http.MethodPatch:   5,
	http.MethodOptions: 6,
}

// VSTMessage is a decoded VelocyStream request, response or authentication message
type VSTMessage struct {
	Type int

	Database string
	Method   string
	Path     string
	Params   map[string]string

	StatusCode int
	Meta       map[string]string

	Encryption string
	User       string
	Password   string
	Token      string

	Body []byte
}

func encodeVSTHeader(fields []any, body []byte) ([]byte, error) {
	header, err := serde.VPack().Marshal(fields)
	if err != nil {
		return nil, err
	}
	return append(header, body...), nil
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

// EncodeVSTRequest builds the request message [1, 1, database, requestType, path, params, meta]
// followed by the body
func EncodeVSTRequest(database, method, path string, params, meta map[string]string, body []byte) ([]byte, error) {
	requestType, ok := vstRequestTypes[strings.ToUpper(method)]
	if !ok {
		return nil, fmt.Errorf("method %s cannot be sent over vst", method)
	}

	if database == "" {
		database = "_system"
	}

	return encodeVSTHeader([]any{vstVersion, vstTypeRequest, database, requestType, path, nonNil(params), nonNil(meta)}, body)
}

// EncodeVSTResponse builds the response message [1, 2, code, meta] followed by the body
func EncodeVSTResponse(statusCode int, meta map[string]string, body []byte) ([]byte, error) {
	return encodeVSTHeader([]any{vstVersion, vstTypeResponse, statusCode, nonNil(meta)}, body)
}

func encodeVSTAuthentication(auth Authentication) ([]byte, error) {
	switch auth.Type {
	case AuthenticationBasic:
		return encodeVSTHeader([]any{vstVersion, vstTypeAuth, "plain", auth.User, auth.Password}, nil)
	case AuthenticationJWT:
		return encodeVSTHeader([]any{vstVersion, vstTypeAuth, "jwt", auth.Token}, nil)
	}
	return nil, fmt.Errorf("unsupported vst authentication type %d", auth.Type)
}

// DecodeVSTMessage splits a message into its header fields and body
func DecodeVSTMessage(message []byte) (VSTMessage, error) {
	size, err := serde.Size(message)
	if err != nil || size > len(message) {
		return VSTMessage{}, fmt.Errorf("invalid vst message header")
	}

	var fields []any
	if err := serde.VPack().Unmarshal(message[:size], &fields); err != nil {
		return VSTMessage{}, fmt.Errorf("failed to decode vst message header: %w", err)
	}

	if len(fields) < 2 {
		return VSTMessage{}, fmt.Errorf("vst message header has %d fields", len(fields))
	}

	m := VSTMessage{
		Type: toInt(fields[1]),
		Body: message[size:],
	}

	switch m.Type {
	case vstTypeRequest:
		if len(fields) < 7 {
			return VSTMessage{}, fmt.Errorf("vst request header has %d fields", len(fields))
		}
		m.Database = toString(fields[2])
		m.Method = methodForRequestType(toInt(fields[3]))
		m.Path = toString(fields[4])
		m.Params = toStringMap(fields[5])
		m.Meta = toStringMap(fields[6])
	case vstTypeResponse:
		if len(fields) < 3 {
			return VSTMessage{}, fmt.Errorf("vst response header has %d fields", len(fields))
		}
		m.StatusCode = toInt(fields[2])
		if len(fields) > 3 {
			m.Meta = toStringMap(fields[3])
		}
	case vstTypeAuth:
		if len(fields) < 4 {
			return VSTMessage{}, fmt.Errorf("vst authentication header has %d fields", len(fields))
		}
		m.Encryption = toString(fields[2])
		if m.Encryption == "jwt" {
			m.Token = toString(fields[3])
		} else if len(fields) > 4 {
			m.User = toString(fields[3])
			m.Password = toString(fields[4])
		}
	default:
		return VSTMessage{}, fmt.Errorf("unknown vst message type %d", m.Type)
	}

	return m, nil
}

func methodForRequestType(requestType int) string {
	for method, t := range vstRequestTypes {
		if t == requestType {
			return method
		}
	}
	return ""
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int8:
		return int(n)
	case int16:
		return int(n)
	case int32:
		return int(n)
	case int64:
		return int(n)
	case uint:
		return int(n)
	case uint8:
		return int(n)
	case uint16:
		return int(n)
	case uint32:
		return int(n)
	case uint64:
		return int(n)
	case float32:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func toStringMap(v any) map[string]string {
	result := map[string]string{}
	if m, ok := v.(map[string]any); ok {
		for k, value := range m {
			result[k] = toString(value)
		}
	}
	return result
}
