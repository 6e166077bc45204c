package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"kanban/domain"
)

var ErrSaturated = errors.New("notify: dispatcher buffer full")

// Dispatcher hands events to a pool of workers so publishing never blocks
// the caller. When the buffer is full the event is dropped.
type Dispatcher struct {
	next    Publisher
	logger  *log.Logger
	timeout time.Duration
	jobs    chan domain.BoardEvent
	wg      sync.WaitGroup
	once    sync.Once
}

// NewDispatcher starts workers goroutines delivering to next.
func NewDispatcher(next Publisher, workers, buffer int, timeout time.Duration, logger *log.Logger) *Dispatcher {
	if logger == nil {
		panic("Logger is not initialized")
	}
	if workers <= 0 {
		workers = 1
	}
	if buffer <= 0 {
		buffer = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	d := &Dispatcher{
		next:    next,
		logger:  logger,
		timeout: timeout,
		jobs:    make(chan domain.BoardEvent, buffer),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	logger.Infof("event dispatcher started, workers: %d, buffer: %d, timeout: %v", workers, buffer, timeout)
	return d
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for ev := range d.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := d.next.Publish(ctx, ev)
		cancel()
		if err != nil {
			d.logger.Errorf("publish failed, err: %v, event: %s, type: %s, worker: %d", err, ev.ID, ev.Type, id)
		}
	}
}

// Publish queues ev for delivery. The context is not used for delivery,
// which happens after Publish returns.
func (d *Dispatcher) Publish(_ context.Context, ev domain.BoardEvent) error {
	ok, closed := trySendNonBlocking(d.jobs, ev)
	if closed {
		return errors.New("notify: dispatcher closed")
	}
	if !ok {
		d.logger.Warnf("event dropped, buffer full, event: %s, type: %s", ev.ID, ev.Type)
		return ErrSaturated
	}
	return nil
}

// Close stops accepting events and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	d.once.Do(func() { close(d.jobs) })
	d.wg.Wait()
}

func trySendNonBlocking(ch chan domain.BoardEvent, ev domain.BoardEvent) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- ev:
		return true, false
	default:
		return false, false
	}
}
