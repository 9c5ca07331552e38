// Package worker provides an asynchronous worker pool that publishes turn
// events through a wrapped eventstream.Publisher.
//
// The pool keeps broker latency out of the chat loop: PublishTurn only
// queues the event and background workers deliver it.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/recall/pkg/eventstream"
	"github.com/papercomputeco/recall/pkg/logger"
)

var (
	defaultNumWorkers     uint = 2
	defaultJobQueueSize   uint = 256
	defaultPublishTimeout      = 10 * time.Second
)

// ErrQueueFull is returned by PublishTurn when the event was dropped.
var ErrQueueFull = errors.New("event queue full")

// ErrClosed is returned by PublishTurn after Close.
var ErrClosed = errors.New("publisher pool closed")

// Config is the configuration options for the worker pool.
type Config struct {
	// Publisher delivers events. Required.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered event channel (defaults to 256).
	QueueSize uint

	// PublishTimeout bounds each delivery (defaults to 10s).
	PublishTimeout time.Duration

	Logger *slog.Logger
}

// Pool publishes turn events asynchronously. It satisfies
// eventstream.Publisher.
type Pool struct {
	config *Config
	queue  chan *eventstream.TurnPersistedEvent
	wg     sync.WaitGroup
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Publisher == nil {
		return nil, errors.New("publisher is required")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.PublishTimeout == 0 {
		c.PublishTimeout = defaultPublishTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan *eventstream.TurnPersistedEvent, c.QueueSize),
		logger: logger.OrNop(c.Logger),
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// PublishTurn queues event for delivery. It never blocks: when the queue is
// full the event is dropped and ErrQueueFull returned.
func (p *Pool) PublishTurn(_ context.Context, event *eventstream.TurnPersistedEvent) error {
	if event == nil {
		return eventstream.ErrNilTurnEvent
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	select {
	case p.queue <- event:
		p.logger.Debug("turn event queued",
			"session_id", event.Session.SessionID,
		)
		return nil
	default:
		p.logger.Error("turn event not queued, queue full, event dropped",
			"session_id", event.Session.SessionID,
		)
		return ErrQueueFull
	}
}

// Close stops accepting events, waits for queued events to drain, then
// closes the wrapped publisher.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	return p.config.Publisher.Close()
}

// worker is the inner worker thread that continuously pulls events off the queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("event worker started", "worker_id", id)

	for event := range p.queue {
		p.deliver(event)
	}

	p.logger.Debug("event worker stopped", "worker_id", id)
}

func (p *Pool) deliver(event *eventstream.TurnPersistedEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.PublishTimeout)
	defer cancel()

	if err := p.config.Publisher.PublishTurn(ctx, event); err != nil {
		p.logger.Warn("async turn event publish failed",
			"session_id", event.Session.SessionID,
			"error", err,
		)
		return
	}

	p.logger.Debug("turn event published", "session_id", event.Session.SessionID)
}

var _ eventstream.Publisher = (*Pool)(nil)
