package fakearango

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/diwise/arangodb-driver/pkg/arangodb/connection"
	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
	"github.com/diwise/arangodb-driver/pkg/arangodb/serde"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

// apiError is written to the caller as an ArangoDB error body
type apiError struct {
	code     int
	errorNum int
	message  string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s (%d/%d)", e.message, e.code, e.errorNum)
}

func newError(code, errorNum int, format string, args ...any) *apiError {
	return &apiError{code: code, errorNum: errorNum, message: fmt.Sprintf(format, args...)}
}

func badParameter(format string, args ...any) *apiError {
	return newError(http.StatusBadRequest, errors.ErrorBadParameter, format, args...)
}

type errorBody struct {
	Error        bool   `json:"error"`
	Code         int    `json:"code"`
	ErrorNum     int    `json:"errorNum"`
	ErrorMessage string `json:"errorMessage"`
}

func (e *apiError) body() errorBody {
	return errorBody{Error: true, Code: e.code, ErrorNum: e.errorNum, ErrorMessage: e.message}
}

// Decoder unpacks compressed request bodies so that handlers only ever see plain JSON or
// VelocyPack
func Decoder() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			encoding := r.Header.Get("Content-Encoding")
			if encoding == "" || r.Body == nil {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err == nil {
				body, err = connection.Decompress(encoding, body)
			}
			if err != nil {
				writeError(w, r, badParameter("failed to read request body: %s", err.Error()))
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			r.ContentLength = int64(len(body))
			r.Header.Del("Content-Encoding")

			next.ServeHTTP(w, r)
		})
	}
}

func requestSerde(r *http.Request) serde.Serde {
	return serde.ForContentType(r.Header.Get("Content-Type"), serde.JSON())
}

func responseSerde(r *http.Request) serde.Serde {
	if strings.Contains(r.Header.Get("Accept"), serde.ContentTypeVPack) {
		return serde.VPack()
	}
	return serde.JSON()
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	return io.ReadAll(r.Body)
}

// decode reads the request body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	body, err := readBody(r)
	if err != nil {
		return badParameter("failed to read request body: %s", err.Error())
	}

	if len(body) == 0 {
		return nil
	}

	if err := requestSerde(r).Unmarshal(body, v); err != nil {
		return badParameter("failed to parse request body: %s", err.Error())
	}

	return nil
}

func write(w http.ResponseWriter, r *http.Request, status int, v any) {
	codec := responseSerde(r)

	body, err := codec.Marshal(v)
	if err != nil {
		logging.GetFromContext(r.Context()).Error("failed to encode response", "err", err.Error())
		status = http.StatusInternalServerError
		codec = serde.JSON()
		body, _ = codec.Marshal(newError(status, errors.ErrorFailed, "failed to encode response").body())
	}

	w.Header().Set("Content-Type", codec.ContentType())
	w.WriteHeader(status)

	if r.Method != http.MethodHead {
		w.Write(body)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	ae, ok := err.(*apiError)
	if !ok {
		ae = newError(http.StatusInternalServerError, errors.ErrorFailed, "%s", err.Error())
	}

	if ae.code >= http.StatusInternalServerError {
		logging.GetFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "err", ae.Error())
	}

	write(w, r, ae.code, ae.body())
}

type resultBody[T any] struct {
	Error  bool `json:"error"`
	Code   int  `json:"code"`
	Result T    `json:"result"`
}

func writeResult[T any](w http.ResponseWriter, r *http.Request, status int, result T) {
	write(w, r, status, resultBody[T]{Code: status, Result: result})
}
