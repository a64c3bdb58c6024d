package async

import (
	"context"
	"fmt"
	"sync"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/otel"
)

var ErrNotStarted = fmt.Errorf("executor not started")
var ErrAlreadyStarted = fmt.Errorf("executor already started")
var ErrQueueFull = fmt.Errorf("executor queue is full")

var tracer = otel.Tracer("arangodb-client/async")

type action func()

type executorKey struct{}

// Executor runs submitted operations one at a time, in submission order, on a single worker
// goroutine. Use it when callbacks must not run concurrently. Operations must not wait
// for other operations of the same executor. An operation may submit more work to its own
// executor, that work fails with ErrQueueFull instead of waiting when the queue has no room.
type Executor struct {
	mu      sync.Mutex
	started bool
	size    int
	queue   chan action
	done    chan struct{}
	stopped chan struct{}
	senders *sync.WaitGroup
}

func NewExecutor(queueSize int) *Executor {
	if queueSize < 1 {
		queueSize = 32
	}

	return &Executor{size: queueSize}
}

func (e *Executor) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return ErrAlreadyStarted
	}

	e.started = true
	e.queue = make(chan action, e.size)
	e.done = make(chan struct{})
	e.stopped = make(chan struct{})
	e.senders = &sync.WaitGroup{}

	go e.run(e.queue, e.stopped)

	return nil
}

// Stop waits for every operation queued before it and then terminates the worker. Operations
// submitted while stopping, including those waiting for room in the queue, fail with
// ErrNotStarted.
func (e *Executor) Stop() error {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return nil
	}

	e.started = false
	close(e.done)
	queue, stopped, senders := e.queue, e.stopped, e.senders
	e.mu.Unlock()

	senders.Wait()
	close(queue)

	<-stopped

	return nil
}

func (e *Executor) enqueue(a action, nested bool) error {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return ErrNotStarted
	}

	queue, done, senders := e.queue, e.done, e.senders
	senders.Add(1)
	e.mu.Unlock()

	defer senders.Done()

	// the worker is busy running the submitter and cannot make room
	if nested {
		select {
		case queue <- a:
			return nil
		default:
			return ErrQueueFull
		}
	}

	select {
	case queue <- a:
		return nil
	case <-done:
		return ErrNotStarted
	}
}

func (e *Executor) run(queue chan action, stopped chan struct{}) {
	defer close(stopped)

	// repeat until the queue is closed
	for a := range queue {
		a()
	}
}

// Submit queues fn on the executor and returns a future for its result. The span covering
// the operation is a child of the span in ctx.
func Submit[T any](ctx context.Context, e *Executor, name string, fn func(context.Context) (T, error)) *Future[T] {
	f := newFuture[T]()

	logger := logging.GetFromContext(ctx)
	nested := ctx.Value(executorKey{}) == e

	// detach from the caller's cancellation but keep its trace
	ctx, span := tracer.Start(
		tracing.ExtractHeaders(context.Background(), tracing.InjectHeaders(ctx)),
		name,
	)
	ctx = logging.NewContextWithLogger(ctx, logger)
	ctx = context.WithValue(ctx, executorKey{}, e)

	err := e.enqueue(func() {
		value, err := fn(ctx)
		if err != nil {
			logger.Debug("queued operation failed", "name", name, "err", err.Error())
		}
		tracing.RecordAnyErrorAndEndSpan(err, span)
		f.complete(value, err)
	}, nested)

	if err != nil {
		tracing.RecordAnyErrorAndEndSpan(err, span)
		var zero T
		f.complete(zero, err)
	}

	return f
}
