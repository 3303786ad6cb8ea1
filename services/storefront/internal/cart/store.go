// Package cart holds the in-process cart with debounced persistence.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apperrors "github.com/utafrali/agrostore/pkg/errors"
	"github.com/utafrali/agrostore/pkg/money"
	"github.com/utafrali/agrostore/services/storefront/internal/domain"
)

const (
	// DefaultKey is the storage key of the persisted snapshot.
	DefaultKey = "cart:v1"
	// DefaultDebounce is the quiet period before a mutation is persisted.
	DefaultDebounce = 200 * time.Millisecond
	// DefaultWriteTimeout bounds a single background write.
	DefaultWriteTimeout = 5 * time.Second

	snapshotVersion = 1
)

var cartWrites = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_cart_writes_total",
		Help: "Cart snapshot writes by result",
	},
	[]string{"result"},
)

// Storage is where snapshots are persisted.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
}

// snapshot is the persisted form of the cart.
type snapshot struct {
	Version int               `json:"version"`
	Items   []domain.CartLine `json:"items"`
}

// Option configures a Store.
type Option func(*Store)

// WithDebounce sets the quiet period before a write.
func WithDebounce(d time.Duration) Option {
	return func(s *Store) { s.debounce = d }
}

// WithKey sets the storage key.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// WithWriteTimeout bounds each background write.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Store) { s.writeTimeout = d }
}

// Store is the cart. All methods are safe for concurrent use.
//
// Until Hydrate completes, mutations are applied in memory and recorded;
// once the snapshot is loaded they are replayed on top of it, and nothing is
// written before then.
type Store struct {
	storage      Storage
	logger       *slog.Logger
	key          string
	debounce     time.Duration
	writeTimeout time.Duration

	mu        sync.Mutex
	lines     []domain.CartLine
	hydrated  bool
	hydrating bool
	pending   []func() bool
	dirty     bool
	closed    bool
	timer     *time.Timer

	// writeMu orders writes so a later snapshot never lands before an earlier one.
	writeMu sync.Mutex
}

// NewStore creates an empty, unhydrated cart.
func NewStore(storage Storage, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		storage:      storage,
		logger:       logger,
		key:          DefaultKey,
		debounce:     DefaultDebounce,
		writeTimeout: DefaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hydrate loads the persisted snapshot. Only the first call does any work.
// A missing or unreadable snapshot yields an empty cart; the cause is logged
// and nil is returned.
func (s *Store) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	if s.hydrated || s.hydrating {
		s.mu.Unlock()
		return nil
	}
	s.hydrating = true
	s.mu.Unlock()

	loaded := s.load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = s.lines[:0]
	for _, l := range loaded {
		if l.ID == "" || l.Quantity < 1 {
			continue
		}
		s.addLocked(l)
	}
	replay := s.pending
	s.pending = nil
	changed := false
	for _, op := range replay {
		if op() {
			changed = true
		}
	}

	s.hydrated = true
	s.hydrating = false
	if changed {
		s.scheduleLocked()
	}

	s.logger.DebugContext(ctx, "cart hydrated",
		slog.Int("lines", len(s.lines)),
		slog.Int("replayed", len(replay)),
	)
	return nil
}

func (s *Store) load(ctx context.Context) []domain.CartLine {
	data, err := s.storage.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "failed to read cart snapshot, starting empty",
				slog.String("key", s.key),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.WarnContext(ctx, "corrupt cart snapshot, starting empty",
			slog.String("key", s.key),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if snap.Version != snapshotVersion {
		s.logger.WarnContext(ctx, "unsupported cart snapshot version, starting empty",
			slog.String("key", s.key),
			slog.Int("version", snap.Version),
		)
		return nil
	}
	return snap.Items
}

// Hydrated reports whether the snapshot has been loaded.
func (s *Store) Hydrated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hydrated
}

// ---------------------------------------------------------------------------
// Mutations
// ---------------------------------------------------------------------------

// mutate applies op now. Before hydration every op is recorded for replay,
// even one that changed nothing, since its target may only exist in the
// persisted snapshot. After hydration a write is scheduled when op reports
// a change.
func (s *Store) mutate(op func() bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := op()
	if !s.hydrated {
		s.pending = append(s.pending, op)
		return
	}
	if changed {
		s.scheduleLocked()
	}
}

// Add merges line into the cart. The quantity is clamped to
// [1, domain.MaxQuantity] and the price to at least 0; a merged quantity
// saturates at domain.MaxQuantity. An existing line keeps its name and price and
// gains the added quantity. Lines without an id are ignored.
func (s *Store) Add(line domain.CartLine) {
	if line.ID == "" {
		return
	}
	s.mutate(func() bool {
		s.addLocked(line)
		return true
	})
}

func (s *Store) addLocked(line domain.CartLine) {
	line = line.Normalized()
	if i := s.indexLocked(line.ID); i >= 0 {
		s.lines[i].Quantity = domain.AddQuantity(s.lines[i].Quantity, line.Quantity)
		return
	}
	s.lines = append(s.lines, line)
}

// SetQuantity sets a line's quantity, capped at domain.MaxQuantity; zero
// or less removes it. Unknown ids are ignored.
func (s *Store) SetQuantity(id string, qty int) {
	s.mutate(func() bool {
		i := s.indexLocked(id)
		if i < 0 {
			return false
		}
		if qty <= 0 {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			return true
		}
		qty = domain.ClampQuantity(qty)
		if s.lines[i].Quantity == qty {
			return false
		}
		s.lines[i].Quantity = qty
		return true
	})
}

// SetQuantityFloat floors qty before SetQuantity. NaN counts as zero.
func (s *Store) SetQuantityFloat(id string, qty float64) {
	switch {
	case math.IsNaN(qty), qty <= 0:
		s.SetQuantity(id, 0)
	case qty >= domain.MaxQuantity:
		s.SetQuantity(id, domain.MaxQuantity)
	default:
		s.SetQuantity(id, int(math.Floor(qty)))
	}
}

// Remove deletes the line with id. Removing an absent id is a no-op.
func (s *Store) Remove(id string) {
	s.mutate(func() bool {
		i := s.indexLocked(id)
		if i < 0 {
			return false
		}
		s.lines = append(s.lines[:i], s.lines[i+1:]...)
		return true
	})
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mutate(func() bool {
		s.lines = s.lines[:0]
		return true
	})
}

func (s *Store) indexLocked(id string) int {
	for i := range s.lines {
		if s.lines[i].ID == id {
			return i
		}
	}
	return -1
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// Lines returns a copy of the lines in insertion order.
func (s *Store) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

// Line returns the line with id.
func (s *Store) Line(id string) (domain.CartLine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.lines[i], true
	}
	return domain.CartLine{}, false
}

// TotalCents is the exact sum of price times quantity.
func (s *Store) TotalCents() money.Cents {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.TotalCents(s.lines)
}

// Count returns the number of distinct lines.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

// ItemCount returns the total quantity across lines.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.lines {
		n += l.Quantity
	}
	return n
}

// ---------------------------------------------------------------------------
// Persistence
// ---------------------------------------------------------------------------

// scheduleLocked marks the cart dirty and restarts the debounce timer.
func (s *Store) scheduleLocked() {
	s.dirty = true
	if s.closed {
		return
	}
	if s.timer == nil {
		s.timer = time.AfterFunc(s.debounce, s.fire)
		return
	}
	s.timer.Reset(s.debounce)
}

func (s *Store) fire() {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()
	_ = s.persist(ctx)
}

// persist writes the current state if it changed since the last write.
func (s *Store) persist(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if !s.dirty || !s.hydrated {
		s.mu.Unlock()
		return nil
	}
	items := make([]domain.CartLine, len(s.lines))
	copy(items, s.lines)
	s.dirty = false
	s.mu.Unlock()

	data, err := json.Marshal(snapshot{Version: snapshotVersion, Items: items})
	if err != nil {
		return fmt.Errorf("encode cart snapshot: %w", err)
	}

	if err := s.storage.Set(ctx, s.key, data); err != nil {
		cartWrites.WithLabelValues("error").Inc()
		s.logger.WarnContext(ctx, "failed to persist cart",
			slog.String("key", s.key),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("persist cart: %w", err)
	}

	cartWrites.WithLabelValues("ok").Inc()
	s.logger.DebugContext(ctx, "cart persisted", slog.Int("lines", len(items)))
	return nil
}

// Flush writes any pending change now instead of waiting for the debounce.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	return s.persist(ctx)
}

// Close flushes pending changes and stops further persistence. Later
// mutations still apply in memory.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	return s.persist(ctx)
}
