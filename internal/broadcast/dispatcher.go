// Package broadcast fans committed timeline events out to the realtime
// board: local websocket clients, other instances through redis, and the
// metrics counters.
package broadcast

import (
	"log"
	"sync"

	"github.com/BruksfildServices01/clinic-crm/internal/models"
)

// Sink receives batches of committed events, in commit order.
type Sink interface {
	Deliver(events []models.LeadEvent) error
}

type SinkFunc func(events []models.LeadEvent) error

func (f SinkFunc) Deliver(events []models.LeadEvent) error { return f(events) }

const DefaultQueueSize = 256

// Dispatcher hands events to the sinks on a background worker. Publishing
// never blocks the request: a full queue drops the batch.
type Dispatcher struct {
	sinks []Sink
	queue chan []models.LeadEvent
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(size int, sinks ...Sink) *Dispatcher {
	if size <= 0 {
		size = DefaultQueueSize
	}
	d := &Dispatcher{
		sinks: sinks,
		queue: make(chan []models.LeadEvent, size),
	}

	d.wg.Add(1)
	go d.worker()
	return d
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for batch := range d.queue {
		for _, s := range d.sinks {
			if err := s.Deliver(batch); err != nil {
				log.Println("broadcast error:", err)
			}
		}
	}
}

func (d *Dispatcher) Publish(events []models.LeadEvent) {
	if len(events) == 0 {
		return
	}
	batch := append([]models.LeadEvent(nil), events...)

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	select {
	case d.queue <- batch:
	default:
		// fila cheia → descartamos (nunca quebrar API)
		log.Printf("broadcast queue full, dropping %d events", len(batch))
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}
