package client

import (
	"context"
	"net/http"
	"testing"

	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
	testutils "github.com/diwise/service-chassis/pkg/test/http"
	"github.com/diwise/service-chassis/pkg/test/http/expects"
	"github.com/diwise/service-chassis/pkg/test/http/response"
	"github.com/matryer/is"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestOperationsAreTraced(t *testing.T) {
	is := is.New(t)

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(provider)
	defer provider.Shutdown(context.Background())

	s := testutils.NewMockServiceThat(
		Expects(is, expects.AnyInput()),
		Returns(
			response.ContentType("application/json"),
			response.Code(http.StatusNotFound),
			response.Body([]byte(`{"error":true,"code":404,"errorNum":1203,"errorMessage":"collection or view not found"}`)),
		),
	)
	defer s.Close()

	c := newTestClient(is, s.URL())

	_, err := c.DB("mydb").Collection("missing").Properties(context.Background())
	is.True(errors.IsNotFound(err))

	var found sdktrace.ReadOnlySpan
	for _, span := range recorder.Ended() {
		if span.Name() == "collection-properties" {
			found = span
		}
	}
	is.True(found != nil)

	attrs := map[string]string{}
	for _, kv := range found.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	is.Equal(attrs[TraceAttributeDatabase], "mydb")
	is.Equal(attrs[TraceAttributeCollection], "missing")
}
