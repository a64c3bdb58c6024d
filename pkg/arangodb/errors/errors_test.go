package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/matryer/is"
)

func TestErrorBodyIsDecoded(t *testing.T) {
	is := is.New(t)

	body := []byte(`{"error":true,"code":404,"errorNum":1202,"errorMessage":"document not found"}`)
	err := NewErrorFromResponse(http.StatusNotFound, "http://localhost:8529", body, json.Unmarshal)

	ae, ok := AsArangoError(err)
	is.True(ok)
	is.Equal(ae.ErrorNum, ErrorArangoDocumentNotFound)
	is.Equal(ae.ErrorMessage, "document not found")
	is.Equal(ae.Endpoint, "http://localhost:8529")
	is.Equal(err.Error(), "document not found (code: 404, errorNum: 1202)")

	is.True(IsNotFound(err))
	is.True(!IsConflict(err))
}

func TestUndecodableBodyKeepsStatusCode(t *testing.T) {
	is := is.New(t)

	err := NewErrorFromResponse(http.StatusServiceUnavailable, "", []byte("<html>"), json.Unmarshal)

	ae, ok := AsArangoError(err)
	is.True(ok)
	is.Equal(ae.Code, http.StatusServiceUnavailable)
	is.True(Is(err, ErrInternal))
	is.Equal(err.Error(), "[code: 503] Service Unavailable")
}

func TestSentinelMapping(t *testing.T) {
	is := is.New(t)

	cases := []struct {
		code     int
		errorNum int
		target   error
		expected bool
	}{
		{http.StatusConflict, ErrorArangoUniqueConstraintViolated, ErrConflict, true},
		{http.StatusPreconditionFailed, ErrorArangoConflict, ErrPreconditionFailed, true},
		{http.StatusPreconditionFailed, ErrorArangoConflict, ErrConflict, false},
		{http.StatusNotFound, ErrorGraphNotFound, ErrNotFound, true},
		{http.StatusBadRequest, ErrorQueryParse, ErrBadRequest, true},
		{http.StatusUnauthorized, ErrorHTTPUnauthorized, ErrUnauthorized, true},
		{http.StatusForbidden, ErrorForbidden, ErrForbidden, true},
		{http.StatusInternalServerError, ErrorFailed, ErrInternal, true},
		{http.StatusBadRequest, ErrorArangoDocumentKeyBad, ErrNotFound, false},
	}

	for _, c := range cases {
		err := ArangoError{HasError: true, Code: c.code, ErrorNum: c.errorNum}
		is.Equal(Is(err, c.target), c.expected)
	}
}

func TestWrappedErrorsAreRecognized(t *testing.T) {
	is := is.New(t)

	inner := NewErrorFromResponse(http.StatusNotFound, "", []byte(`{"errorNum":1203,"errorMessage":"collection or view not found"}`), json.Unmarshal)
	err := fmt.Errorf("read collection failed: %w", inner)

	is.True(IsNotFound(err))
	is.True(IsErrorNum(err, ErrorArangoDocumentNotFound, ErrorArangoDataSourceNotFound))
	is.True(!IsErrorNum(fmt.Errorf("plain"), ErrorArangoDataSourceNotFound))
}
