package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrBadRequest = fmt.Errorf("bad request")
var ErrBadResponse = fmt.Errorf("bad response")
var ErrConflict = fmt.Errorf("conflict")
var ErrCursorClosed = fmt.Errorf("cursor closed")
var ErrForbidden = fmt.Errorf("forbidden")
var ErrInternal = fmt.Errorf("internal error")
var ErrNoHostAvailable = fmt.Errorf("no host available")
var ErrNoMoreDocuments = fmt.Errorf("no more documents")
var ErrNotFound = fmt.Errorf("not found")
var ErrPreconditionFailed = fmt.Errorf("precondition failed")
var ErrRequest = fmt.Errorf("request error")
var ErrUnauthorized = fmt.Errorf("unauthorized")
var ErrUnsupportedProtocol = fmt.Errorf("unsupported protocol")

// ArangoError is the error body returned by the server for any failed request
type ArangoError struct {
	HasError     bool   `json:"error"`
	Code         int    `json:"code"`
	ErrorNum     int    `json:"errorNum"`
	ErrorMessage string `json:"errorMessage"`

	Endpoint string `json:"-"`
}

func (ae ArangoError) Error() string {
	if ae.ErrorMessage == "" {
		return fmt.Sprintf("[code: %d] %s", ae.Code, http.StatusText(ae.Code))
	}
	return fmt.Sprintf("%s (code: %d, errorNum: %d)", ae.ErrorMessage, ae.Code, ae.ErrorNum)
}

// Is maps the status code and server error number onto the sentinel errors of this package
func (ae ArangoError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return ae.Code == http.StatusNotFound || notFoundErrorNums[ae.ErrorNum]
	case ErrConflict:
		return ae.Code == http.StatusConflict || (ae.Code != http.StatusPreconditionFailed && conflictErrorNums[ae.ErrorNum])
	case ErrPreconditionFailed:
		return ae.Code == http.StatusPreconditionFailed
	case ErrUnauthorized:
		return ae.Code == http.StatusUnauthorized
	case ErrForbidden:
		return ae.Code == http.StatusForbidden
	case ErrBadRequest:
		return ae.Code == http.StatusBadRequest
	case ErrInternal:
		return ae.Code >= http.StatusInternalServerError
	}
	return false
}

var notFoundErrorNums = map[int]bool{
	ErrorArangoDocumentNotFound:     true,
	ErrorArangoDataSourceNotFound:   true,
	ErrorArangoIndexNotFound:        true,
	ErrorArangoDatabaseNotFound:     true,
	ErrorCursorNotFound:             true,
	ErrorQueryNotFound:              true,
	ErrorTransactionNotFound:        true,
	ErrorUserNotFound:               true,
	ErrorGraphNotFound:              true,
	ErrorGraphVertexColDoesNotExist: true,
	ErrorGraphEdgeColDoesNotExist:   true,
	ErrorQueryFunctionNotFound:      true,
}

var conflictErrorNums = map[int]bool{
	ErrorArangoConflict:                 true,
	ErrorArangoUniqueConstraintViolated: true,
	ErrorArangoDuplicateName:            true,
	ErrorUserDuplicate:                  true,
	ErrorGraphDuplicate:                 true,
}

// NewErrorFromResponse translates a failed response into an ArangoError. The body is decoded
// with the codec that matches the response, a body that cannot be decoded still yields an
// error carrying the status code.
func NewErrorFromResponse(code int, endpoint string, body []byte, decode func([]byte, any) error) error {
	ae := ArangoError{
		HasError: true,
		Code:     code,
		Endpoint: endpoint,
	}

	if len(body) > 0 && decode != nil {
		report := ArangoError{}
		if err := decode(body, &report); err == nil {
			ae.ErrorNum = report.ErrorNum
			ae.ErrorMessage = report.ErrorMessage
			if report.Code != 0 {
				ae.Code = report.Code
			}
		}
	}

	return ae
}

// AsArangoError returns the server error wrapped in err, if any
func AsArangoError(err error) (ArangoError, bool) {
	var ae ArangoError
	if errors.As(err, &ae) {
		return ae, true
	}

	var aep *ArangoError
	if errors.As(err, &aep) && aep != nil {
		return *aep, true
	}

	return ArangoError{}, false
}

// Is and As forward to the standard library so that callers importing this package do not
// need a second errors import
func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsPreconditionFailed(err error) bool {
	return errors.Is(err, ErrPreconditionFailed)
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsErrorNum reports whether err is a server error with any of the given error numbers
func IsErrorNum(err error, errorNums ...int) bool {
	ae, ok := AsArangoError(err)
	if !ok {
		return false
	}

	for _, num := range errorNums {
		if ae.ErrorNum == num {
			return true
		}
	}

	return false
}
