package outbox

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	domoutbox "github.com/Zhima-Mochi/honeyshop/internal/domain/outbox"
	"github.com/Zhima-Mochi/honeyshop/internal/observability"
	"github.com/Zhima-Mochi/honeyshop/internal/observability/logctx"
)

const (
	componentOutbox = "outbox"
	queueSize       = 1024
	handlerTimeout  = 30 * time.Second
)

// ErrStopped is returned when publishing on a stopped bus.
var ErrStopped = errors.New("outbox: bus stopped")

// Bus is an in-memory event bus. Publish queues events for a background dispatch loop;
// Deliver fans out inline and returns once every handler has finished.
// It is not durable: events die with the process.
type Bus struct {
	mu          sync.RWMutex
	subs        map[string][]domoutbox.Handler
	queue       chan domoutbox.Event
	startOnce   sync.Once
	stopOnce    sync.Once
	stopped     chan struct{}
	done        chan struct{}
	concurrency int
	log         observability.Logger
}

// NewBus creates a bus with a buffered queue and a per-event handler concurrency cap.
func NewBus(logger observability.Logger) *Bus {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Bus{
		subs:        make(map[string][]domoutbox.Handler),
		queue:       make(chan domoutbox.Event, queueSize),
		stopped:     make(chan struct{}),
		done:        make(chan struct{}),
		concurrency: 8,
		log:         logger.With(observability.F("component", componentOutbox)),
	}
}

func (b *Bus) Subscribe(eventName string, h domoutbox.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventName] = append(b.subs[eventName], h)
}

// Start launches the dispatch loop. Queued events are drained on Stop.
func (b *Bus) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		go b.dispatchLoop(context.WithoutCancel(ctx))
		logctx.FromOr(ctx, b.log).Info("event_bus_started")
	})
}

// Stop refuses new events, drains the queue and waits for the dispatch loop.
func (b *Bus) Stop(ctx context.Context) {
	b.stopOnce.Do(func() {
		close(b.stopped)
		// never started: nothing to drain
		b.startOnce.Do(func() { close(b.done) })
		drained := false
		select {
		case <-b.done:
			drained = true
		case <-ctx.Done():
		}
		logctx.FromOr(ctx, b.log).Info("event_bus_stopped", observability.F("drained", drained))
	})
}

func (b *Bus) Publish(ctx context.Context, e domoutbox.Event) error {
	if e == nil {
		return nil
	}
	select {
	case <-b.stopped:
		return ErrStopped
	default:
	}
	select {
	case b.queue <- e:
		logctx.FromOr(ctx, b.log).Debug("event_enqueued", observability.F("event", e.EventName()))
		return nil
	case <-b.stopped:
		return ErrStopped
	case <-ctx.Done():
		logctx.FromOr(ctx, b.log).Warn("event_enqueue_aborted",
			observability.F("event", e.EventName()),
			observability.F("error", ctx.Err()),
		)
		return ctx.Err()
	}
}

// Deliver runs every handler of e before returning; handler errors are joined.
func (b *Bus) Deliver(ctx context.Context, e domoutbox.Event) error {
	if e == nil {
		return nil
	}
	return b.fanout(ctx, e)
}

// Inline returns a Publisher that delivers synchronously through Deliver.
func (b *Bus) Inline() domoutbox.Publisher {
	return domoutbox.PublisherFunc(b.Deliver)
}

func (b *Bus) dispatchLoop(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case e := <-b.queue:
			_ = b.fanout(ctx, e)
		case <-b.stopped:
			for {
				select {
				case e := <-b.queue:
					_ = b.fanout(ctx, e)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) fanout(ctx context.Context, e domoutbox.Event) error {
	name := e.EventName()

	b.mu.RLock()
	handlers := append([]domoutbox.Handler(nil), b.subs[name]...)
	b.mu.RUnlock()

	baseLogger := logctx.FromOr(ctx, b.log).With(observability.F("event", name))
	if len(handlers) == 0 {
		baseLogger.Debug("event_dropped_no_subscriber")
		return nil
	}

	ctx = context.WithoutCancel(ctx)

	sem := make(chan struct{}, b.concurrency)
	var (
		wg     sync.WaitGroup
		errMu  sync.Mutex
		errAll []error
	)

	for _, h := range handlers {
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					baseLogger.Error("event_handler_panic",
						observability.F("panic", r),
						observability.F("stack", string(debug.Stack())),
					)
				}
				<-sem
				wg.Done()
			}()

			hctx, cancel := context.WithTimeout(ctx, handlerTimeout)
			defer cancel()
			hctx = logctx.With(hctx, baseLogger)
			if err := h(hctx, e); err != nil {
				baseLogger.Warn("event_handler_error", observability.F("error", err))
				errMu.Lock()
				errAll = append(errAll, err)
				errMu.Unlock()
			}
		}()
	}

	wg.Wait()

	baseLogger.Debug("event_fanned_out", observability.F("handlers", len(handlers)))
	return errors.Join(errAll...)
}
