package async

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/diwise/arangodb-driver/pkg/arangodb"
	"github.com/diwise/arangodb-driver/pkg/arangodb/client"
	testutils "github.com/diwise/service-chassis/pkg/test/http"
	"github.com/diwise/service-chassis/pkg/test/http/expects"
	"github.com/diwise/service-chassis/pkg/test/http/response"
	"github.com/matryer/is"
)

var Expects = testutils.Expects
var Returns = testutils.Returns

var method = expects.RequestMethod
var path = expects.RequestPath

func TestGoDeliversResult(t *testing.T) {
	is := is.New(t)

	f := Go(context.Background(), func(context.Context) (int, error) {
		return 42, nil
	})

	<-f.Done()

	v, err := f.Get(context.Background())
	is.NoErr(err)
	is.Equal(v, 42)
}

func TestGetStopsWaitingOnCancel(t *testing.T) {
	is := is.New(t)

	release := make(chan struct{})
	defer close(release)

	f := Go(context.Background(), func(context.Context) (string, error) {
		<-release
		return "late", nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Get(ctx)
	is.Equal(err, context.DeadlineExceeded)
}

func TestAllKeepsOrderAndReportsFirstError(t *testing.T) {
	is := is.New(t)

	failure := fmt.Errorf("boom")

	results, err := All(context.Background(),
		Completed(1, nil),
		Go(context.Background(), func(context.Context) (int, error) { return 2, nil }),
		Completed(0, failure),
	)
	is.Equal(err, failure)
	is.Equal(results, []int{1, 2, 0})
}

func TestExecutorRunsInSubmissionOrder(t *testing.T) {
	is := is.New(t)

	e := NewExecutor(4)
	is.NoErr(e.Start())
	is.Equal(e.Start(), ErrAlreadyStarted)

	var mu sync.Mutex
	order := []int{}

	futures := []*Future[int]{}
	for i := range 10 {
		futures = append(futures, Submit(context.Background(), e, "step", func(context.Context) (int, error) {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, i)
			return i, nil
		}))
	}

	is.NoErr(e.Stop())

	results, err := All(context.Background(), futures...)
	is.NoErr(err)
	is.Equal(results, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
	is.Equal(order, results)
}

func TestSubmitToStoppedExecutorFails(t *testing.T) {
	is := is.New(t)

	e := NewExecutor(1)

	_, err := Submit(context.Background(), e, "noop", func(context.Context) (bool, error) {
		return true, nil
	}).Get(context.Background())

	is.Equal(err, ErrNotStarted)
}

func TestExecutorCanBeRestarted(t *testing.T) {
	is := is.New(t)

	e := NewExecutor(1)
	is.NoErr(e.Start())
	is.NoErr(e.Stop())
	is.NoErr(e.Stop())
	is.NoErr(e.Start())
	defer e.Stop()

	v, err := Submit(context.Background(), e, "again", func(context.Context) (string, error) {
		return "ok", nil
	}).Get(context.Background())
	is.NoErr(err)
	is.Equal(v, "ok")
}

func TestOperationCanSubmitToItsOwnExecutor(t *testing.T) {
	is := is.New(t)

	e := NewExecutor(1)
	is.NoErr(e.Start())

	var inner, overflow *Future[string]

	_, err := Submit(context.Background(), e, "outer", func(ctx context.Context) (bool, error) {
		inner = Submit(ctx, e, "inner", func(context.Context) (string, error) { return "inner", nil })
		overflow = Submit(ctx, e, "overflow", func(context.Context) (string, error) { return "overflow", nil })
		return true, nil
	}).Get(context.Background())
	is.NoErr(err)

	v, err := inner.Get(context.Background())
	is.NoErr(err)
	is.Equal(v, "inner")

	_, err = overflow.Get(context.Background())
	is.Equal(err, ErrQueueFull)

	is.NoErr(e.Stop())
}

func TestStopReleasesBlockedSubmitters(t *testing.T) {
	is := is.New(t)

	e := NewExecutor(1)
	is.NoErr(e.Start())

	release := make(chan struct{})

	first := Submit(context.Background(), e, "first", func(context.Context) (int, error) {
		<-release
		return 1, nil
	})
	second := Submit(context.Background(), e, "second", func(context.Context) (int, error) { return 2, nil })

	blocked := make(chan *Future[int])
	go func() {
		blocked <- Submit(context.Background(), e, "third", func(context.Context) (int, error) { return 3, nil })
	}()

	time.Sleep(20 * time.Millisecond)

	stopped := make(chan error)
	go func() { stopped <- e.Stop() }()

	third := <-blocked
	_, err := third.Get(context.Background())
	is.Equal(err, ErrNotStarted)

	close(release)
	is.NoErr(<-stopped)

	results, err := All(context.Background(), first, second)
	is.NoErr(err)
	is.Equal(results, []int{1, 2})
}

func TestClientCallsCanBeQueued(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(is, method(http.MethodGet), path("/_db/_system/_api/version")),
		Returns(
			response.ContentType("application/json"),
			response.Code(http.StatusOK),
			response.Body([]byte(`{"server":"arango","version":"3.11.4"}`)),
		),
	)
	defer s.Close()

	c, err := client.New(client.Hosts(s.URL()))
	is.NoErr(err)
	defer c.Close()

	e := NewExecutor(8)
	is.NoErr(e.Start())

	f := Submit(context.Background(), e, "version", func(ctx context.Context) (*arangodb.VersionEntity, error) {
		return c.Version(ctx)
	})

	is.NoErr(e.Stop())

	v, err := f.Get(context.Background())
	is.NoErr(err)
	is.Equal(v.Version, "3.11.4")
	is.Equal(s.RequestCount(), 1)
}
