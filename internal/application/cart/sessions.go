package cart

import (
	"sort"
	"sync"
	"time"

	"github.com/Zhima-Mochi/honeyshop/internal/domain/catalog"
	domoutbox "github.com/Zhima-Mochi/honeyshop/internal/domain/outbox"
	"github.com/Zhima-Mochi/honeyshop/internal/observability"
)

// Sessions is the in-process registry of carts keyed by session id. Carts die with the process.
type Sessions struct {
	ids       IDGenerator
	catalog   *catalog.Catalog
	stock     StockReader
	publisher domoutbox.Publisher
	tel       observability.Observability
	ttl       time.Duration

	mu    sync.RWMutex
	carts map[string]*Service
}

// NewSessions wires the dependencies every new cart service receives. A ttl of zero keeps
// idle sessions forever.
func NewSessions(
	ids IDGenerator,
	cat *catalog.Catalog,
	stock StockReader,
	publisher domoutbox.Publisher,
	tel observability.Observability,
	ttl time.Duration,
) *Sessions {
	return &Sessions{
		ids:       ids,
		catalog:   cat,
		stock:     stock,
		publisher: publisher,
		tel:       tel,
		ttl:       ttl,
		carts:     make(map[string]*Service),
	}
}

// New mints a session id and creates its empty cart.
func (r *Sessions) New() (string, *Service) {
	id := r.ids.NewID()
	return id, r.Get(id)
}

// Valid reports whether id has the shape of a minted session id.
func (r *Sessions) Valid(id string) bool {
	return id != "" && r.ids.Valid(id)
}

// Get returns the cart service for id, creating it on first use.
func (r *Sessions) Get(id string) *Service {
	r.mu.RLock()
	svc, ok := r.carts[id]
	r.mu.RUnlock()
	if ok {
		return svc
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if svc, ok := r.carts[id]; ok {
		return svc
	}
	svc = NewService(id, r.catalog, r.stock, r.publisher, r.tel)
	r.carts[id] = svc
	return svc
}

// All returns every live session ordered by id.
func (r *Sessions) All() []*Service {
	r.mu.RLock()
	out := make([]*Service, 0, len(r.carts))
	for _, svc := range r.carts {
		out = append(out, svc)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].SessionID() < out[j].SessionID() })
	return out
}

func (r *Sessions) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.carts)
}

// Sweep drops sessions idle for longer than the ttl and returns how many were dropped.
func (r *Sessions) Sweep(now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	dropped := 0
	for id, svc := range r.carts {
		if now.Sub(svc.LastActive()) > r.ttl {
			delete(r.carts, id)
			dropped++
		}
	}
	return dropped
}
