// Package realtime fans out table change notifications to subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Tables that emit changes.
const (
	TableRescueRequests    = "rescue_requests"
	TableEvacuationCenters = "evacuation_centers"
	TableEvacuees          = "evacuees"
	TableRescuerEquipment  = "rescuer_equipment"
	TableWeatherAlerts     = "weather_alerts"
	TableWeatherForecast   = "weather_forecast"
	TableFloodZones        = "flood_zones"
	TableProfiles          = "profiles"
	TableAuth              = "auth" // sign-in / sign-out events
)

type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// Change one row-level event.
type Change struct {
	Table  string          `json:"table"`
	Type   ChangeType      `json:"type"`
	ID     string          `json:"id"`
	Record json.RawMessage `json:"record,omitempty"`
	At     time.Time       `json:"at"`
}

// NewChange builds a Change with record JSON encoded. An unencodable record
// is dropped; subscribers refetch by ID anyway.
func NewChange(table string, typ ChangeType, id string, record any) Change {
	c := Change{Table: table, Type: typ, ID: id, At: time.Now().UTC()}
	if record != nil {
		if b, err := json.Marshal(record); err == nil {
			c.Record = b
		}
	}
	return c
}

// Predicate filters changes for one subscription; nil accepts all.
type Predicate func(Change) bool

// Publisher is what services notify on every successful write.
type Publisher interface {
	Publish(ctx context.Context, c Change) error
}

// Handle identifies a subscription for Unsubscribe.
type Handle struct {
	id    uint64
	table string
}

type subscription struct {
	pred     Predicate
	onChange func(Change)
	ch       chan Change
	quit     chan struct{}
}

// Hub in-process fan-out. Every subscription runs its callback on its own
// goroutine; a slow subscriber loses changes instead of blocking Publish.
type Hub struct {
	logger  *zap.Logger
	bufSize int

	mu     sync.Mutex
	nextID uint64
	subs   map[string]map[uint64]*subscription
	closed bool
	wg     sync.WaitGroup
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:  logger,
		bufSize: 64,
		subs:    make(map[string]map[uint64]*subscription),
	}
}

var _ Publisher = (*Hub)(nil)

// Subscribe registers onChange for changes on table that match pred.
func (h *Hub) Subscribe(table string, pred Predicate, onChange func(Change)) Handle {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	handle := Handle{id: h.nextID, table: table}
	if h.closed {
		return handle
	}

	s := &subscription{
		pred:     pred,
		onChange: onChange,
		ch:       make(chan Change, h.bufSize),
		quit:     make(chan struct{}),
	}
	if h.subs[table] == nil {
		h.subs[table] = make(map[uint64]*subscription)
	}
	h.subs[table][handle.id] = s

	h.wg.Add(1)
	go h.run(s)
	return handle
}

// Unsubscribe stops delivery. Safe to call more than once and from inside
// the callback.
func (h *Hub) Unsubscribe(handle Handle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.subs[handle.table]
	s, ok := subs[handle.id]
	if !ok {
		return
	}
	delete(subs, handle.id)
	if len(subs) == 0 {
		delete(h.subs, handle.table)
	}
	close(s.quit)
}

// Publish delivers c to matching subscribers of c.Table.
func (h *Hub) Publish(_ context.Context, c Change) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, s := range h.subs[c.Table] {
		if s.pred != nil && !s.pred(c) {
			continue
		}
		select {
		case s.ch <- c:
		default:
			h.logger.Warn("Realtime subscriber is behind, dropping change",
				zap.String("table", c.Table),
				zap.Uint64("subscription", id),
			)
		}
	}
	return nil
}

// Count number of live subscriptions on table.
func (h *Hub) Count(table string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[table])
}

// Close unsubscribes everyone and waits for the callbacks to return.
func (h *Hub) Close() {
	h.mu.Lock()
	if !h.closed {
		h.closed = true
		for table, subs := range h.subs {
			for _, s := range subs {
				close(s.quit)
			}
			delete(h.subs, table)
		}
	}
	h.mu.Unlock()
	h.wg.Wait()
}

func (h *Hub) run(s *subscription) {
	defer h.wg.Done()
	for {
		select {
		case <-s.quit:
			return
		case c := <-s.ch:
			h.deliver(s, c)
		}
	}
}

func (h *Hub) deliver(s *subscription, c Change) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Realtime subscriber panicked",
				zap.String("table", c.Table),
				zap.Any("panic", r),
			)
		}
	}()
	s.onChange(c)
}
