package inventory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Zhima-Mochi/honeyshop/internal/domain/catalog"
	dominv "github.com/Zhima-Mochi/honeyshop/internal/domain/inventory"
	domoutbox "github.com/Zhima-Mochi/honeyshop/internal/domain/outbox"
	"github.com/Zhima-Mochi/honeyshop/internal/observability"
	"github.com/Zhima-Mochi/honeyshop/internal/observability/logctx"
)

const componentStore = "inventory_store"

// RefreshResult is the outcome of one refresh attempt.
type RefreshResult struct {
	Degraded bool
	Updated  int
	Skipped  []string
	Err      error
}

// Stock is the presentation view of one product.
type Stock struct {
	ProductName string
	Quantity    int
	Status      dominv.Status
	UpdatedAt   time.Time
}

// Store is the process-wide inventory: it owns stock per canonical product and is the only
// writer. Carts read it through StockOf.
type Store struct {
	repo      dominv.Repository
	source    dominv.Source
	catalog   *catalog.Catalog
	publisher domoutbox.Publisher
	log       observability.Logger
	level     observability.Gauge
	degradedG observability.Gauge

	mu          sync.RWMutex
	loaded      bool
	degraded    bool
	lastErr     error
	lastAttempt time.Time
	lastSuccess time.Time
}

func NewStore(
	repo dominv.Repository,
	source dominv.Source,
	cat *catalog.Catalog,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *Store {
	if tel == nil {
		tel = observability.Nop()
	}
	if publisher == nil {
		publisher = domoutbox.NopPublisher()
	}
	return &Store{
		repo:      repo,
		source:    source,
		catalog:   cat,
		publisher: publisher,
		log:       tel.Logger().With(observability.F("component", componentStore)),
		level:     tel.Metrics().Gauge(observability.MInventoryStockLevel),
		degradedG: tel.Metrics().Gauge(observability.MInventoryDegraded),
	}
}

// StockOf returns the last known stock; 0 for unknown products or before the first refresh.
func (s *Store) StockOf(productName string) int {
	item, err := s.repo.Get(context.Background(), productName)
	if err != nil {
		return 0
	}
	return item.Quantity
}

// Degraded reports whether the last refresh failed.
func (s *Store) Degraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.degraded
}

// Loaded reports whether any refresh has succeeded yet.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// LastError is the cause of the current degraded state, nil when healthy.
func (s *Store) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// LastSuccess is the time of the last successful refresh, zero if none.
func (s *Store) LastSuccess() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSuccess
}

// Snapshot lists every catalog product with its stock and badge status. Status is unknown
// until the first successful refresh and while degraded.
func (s *Store) Snapshot(ctx context.Context) []Stock {
	s.mu.RLock()
	uncertain := s.degraded || !s.loaded
	s.mu.RUnlock()

	byName := make(map[string]*dominv.Item)
	if items, err := s.repo.List(ctx); err == nil {
		for _, item := range items {
			byName[item.ProductName] = item
		}
	}

	names := s.catalog.Names()
	out := make([]Stock, 0, len(names))
	for _, name := range names {
		st := Stock{ProductName: name}
		if item, ok := byName[name]; ok {
			st.Quantity = item.Quantity
			st.UpdatedAt = item.UpdatedAt
		}
		st.Status = dominv.StatusFor(st.Quantity, uncertain)
		out = append(out, st)
	}
	return out
}

// Refresh pulls the remote stock sheet. It never fails: a failed fetch keeps prior values,
// raises the degraded flag and is reported in the result.
func (s *Store) Refresh(ctx context.Context) RefreshResult {
	logger := logctx.FromOr(ctx, s.log)
	attempt := time.Now().UTC()

	data, err := s.source.Fetch(ctx)
	if err != nil {
		if !errors.Is(err, dominv.ErrFetchFailed) {
			err = errors.Join(dominv.ErrFetchFailed, err)
		}
		s.markDegraded(attempt, err)
		logger.Warn("inventory_refresh_failed", observability.F("error", err))
		s.publishStatuses(ctx, logger, true)
		s.publish(ctx, logger, dominv.NewDegradedEvent(err.Error()))
		return RefreshResult{Degraded: true, Err: err}
	}

	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Strings(names)

	result := RefreshResult{}
	seen := make(map[string]string, len(names))
	for _, display := range names {
		canonical, err := s.catalog.Resolve(display)
		if err != nil {
			result.Skipped = append(result.Skipped, display)
			logger.Warn("inventory_unknown_product", observability.F("display_name", display))
			continue
		}
		if prev, dup := seen[canonical]; dup {
			logger.Warn("inventory_duplicate_product",
				observability.F("product", canonical),
				observability.F("display_name", display),
				observability.F("previous_display_name", prev),
			)
		}
		seen[canonical] = display

		item := dominv.NewItem(canonical, data[display])
		if err := s.repo.Save(ctx, item); err != nil {
			logger.Error("inventory_save_failed",
				observability.F("product", canonical),
				observability.F("error", err),
			)
			continue
		}
		s.level.Set(float64(item.Quantity), observability.L("product", canonical))
		result.Updated++
	}

	s.markLoaded(attempt)
	s.publishStatuses(ctx, logger, false)
	s.publish(ctx, logger, dominv.NewRefreshedEvent(result.Updated, result.Skipped))
	return result
}

func (s *Store) markDegraded(at time.Time, err error) {
	s.mu.Lock()
	s.degraded = true
	s.lastErr = err
	s.lastAttempt = at
	s.mu.Unlock()
	s.degradedG.Set(1)
}

func (s *Store) markLoaded(at time.Time) {
	s.mu.Lock()
	s.degraded = false
	s.loaded = true
	s.lastErr = nil
	s.lastAttempt = at
	s.lastSuccess = at
	s.mu.Unlock()
	s.degradedG.Set(0)
}

func (s *Store) publishStatuses(ctx context.Context, logger observability.Logger, degraded bool) {
	for _, st := range s.Snapshot(ctx) {
		status := st.Status
		if degraded {
			status = dominv.StatusUnknown
		}
		s.publish(ctx, logger, dominv.NewStockUpdatedEvent(st.ProductName, st.Quantity, status))
	}
}

func (s *Store) publish(ctx context.Context, logger observability.Logger, e domoutbox.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		logger.Warn("inventory_event_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err),
		)
	}
}
