// Package registry holds the named service records the orchestrator and
// health monitor operate on. The registry exclusively owns every record;
// callers borrow a record for the duration of one operation under its lock.
package registry

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sentinelos/sentinel/pkg/parser"
)

// Status is the lifecycle state of a service record.
type Status int

const (
	StatusStopped Status = iota
	StatusStarting
	StatusRunning
	StatusStopping
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusStopping:
		return "stopping"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// Registration and lookup failures.
var (
	ErrAlreadyRegistered = errors.New("service already registered")
	ErrNotFound          = errors.New("service not found")
	ErrNotStopped        = errors.New("service is not stopped")
)

// Record is one managed service. PID and StartTime are owned by the
// orchestrator while the status is Starting, Running or Stopping. All field
// access happens under the record lock; the lock also serializes operations
// per service name, so a monitor-triggered restart and an operator start
// never interleave on the same record.
type Record struct {
	mu sync.Mutex

	Name     string
	Protocol parser.Protocol
	Config   *parser.CanonicalConfig

	Status       Status
	PID          int
	RestartCount int
	LastError    string
	StartTime    time.Time
	QuotaHandle  string
}

func (r *Record) Lock()   { r.mu.Lock() }
func (r *Record) Unlock() { r.mu.Unlock() }

// View is a point-in-time copy of a record's public fields.
type View struct {
	Name         string
	Protocol     parser.Protocol
	Status       Status
	PID          int
	RestartCount int
	LastError    string
	StartTime    time.Time
}

// ViewLocked copies the record's fields. Callers must hold the record lock.
func (r *Record) ViewLocked() View {
	return View{
		Name:         r.Name,
		Protocol:     r.Protocol,
		Status:       r.Status,
		PID:          r.PID,
		RestartCount: r.RestartCount,
		LastError:    r.LastError,
		StartTime:    r.StartTime,
	}
}

// View copies the record's fields under its lock.
func (r *Record) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ViewLocked()
}

// Registry is the named record store.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*Record
}

func New() *Registry {
	return &Registry{records: map[string]*Record{}}
}

// Register creates a record in Stopped state. Names are unique; a second
// registration under the same name fails and leaves the existing record
// untouched.
func (g *Registry) Register(name string, protocol parser.Protocol, cfg *parser.CanonicalConfig) (*Record, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.records[name]; ok {
		return nil, ErrAlreadyRegistered
	}
	rec := &Record{
		Name:     name,
		Protocol: protocol,
		Config:   cfg,
		Status:   StatusStopped,
	}
	g.records[name] = rec
	return rec, nil
}

// Deregister removes a record. Records are never removed automatically;
// removal is refused unless the service is Stopped or Error.
func (g *Registry) Deregister(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[name]
	if !ok {
		return ErrNotFound
	}
	rec.Lock()
	status := rec.Status
	rec.Unlock()
	if status != StatusStopped && status != StatusError {
		return ErrNotStopped
	}
	delete(g.records, name)
	return nil
}

// Get returns the record for name.
func (g *Registry) Get(name string) (*Record, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	rec, ok := g.records[name]
	return rec, ok
}

// Names returns the registered service names, sorted.
func (g *Registry) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	names := make([]string, 0, len(g.records))
	for name := range g.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Views returns a snapshot of every record, ordered by name.
func (g *Registry) Views() []View {
	names := g.Names()
	views := make([]View, 0, len(names))
	for _, name := range names {
		if rec, ok := g.Get(name); ok {
			views = append(views, rec.View())
		}
	}
	return views
}
