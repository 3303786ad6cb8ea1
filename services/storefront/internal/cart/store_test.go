package cart

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/agrostore/pkg/errors"
	"github.com/utafrali/agrostore/pkg/money"
	"github.com/utafrali/agrostore/services/storefront/internal/domain"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeStorage is an in-memory Storage that counts writes and can be made to fail.
type fakeStorage struct {
	mu     sync.Mutex
	data   map[string][]byte
	sets   int
	getErr error
	setErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{data: make(map[string][]byte)}
}

func (f *fakeStorage) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	d, ok := f.data[key]
	if !ok {
		return nil, apperrors.NotFound("storage key", key)
	}
	return d, nil
}

func (f *fakeStorage) Set(_ context.Context, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = append([]byte(nil), data...)
	return nil
}

func (f *fakeStorage) setCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets
}

func (f *fakeStorage) put(t *testing.T, key string, snap any) {
	t.Helper()
	data, err := json.Marshal(snap)
	require.NoError(t, err)
	f.mu.Lock()
	f.data[key] = data
	f.mu.Unlock()
}

func (f *fakeStorage) snapshot(t *testing.T) snapshot {
	t.Helper()
	f.mu.Lock()
	data := f.data[DefaultKey]
	f.mu.Unlock()
	require.NotNil(t, data, "no snapshot written")
	var snap snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	return snap
}

func newHydratedStore(t *testing.T, st Storage, opts ...Option) *Store {
	t.Helper()
	s := NewStore(st, newTestLogger(), opts...)
	require.NoError(t, s.Hydrate(context.Background()))
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func line(id string, price money.Cents, qty int) domain.CartLine {
	return domain.CartLine{ID: id, Name: "Producto " + id, UnitPriceCents: price, Quantity: qty}
}

// ---------------------------------------------------------------------------
// Add / merge
// ---------------------------------------------------------------------------

func TestStore_TotalCents(t *testing.T) {
	s := newHydratedStore(t, newFakeStorage())

	s.Add(line("p1", 1990, 1))
	s.Add(line("p2", 1450, 2))

	assert.Equal(t, money.Cents(4890), s.TotalCents())
	assert.Equal(t, 2, s.Count())
	assert.Equal(t, 3, s.ItemCount())
}

func TestStore_Add_MergeKeepsFirstPriceAndName(t *testing.T) {
	s := newHydratedStore(t, newFakeStorage())

	s.Add(domain.CartLine{ID: "p1", Name: "Cacao en grano", UnitPriceCents: 1990, Quantity: 1})
	s.Add(domain.CartLine{ID: "p1", Name: "Otro nombre", UnitPriceCents: 9999, Quantity: 2})

	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, domain.CartLine{ID: "p1", Name: "Cacao en grano", UnitPriceCents: 1990, Quantity: 3}, lines[0])
}

func TestStore_Add_MergeSumsQuantities(t *testing.T) {
	s := newHydratedStore(t, newFakeStorage())

	qtys := []int{3, 1, 7, 2, 5}
	want := 0
	for i, q := range qtys {
		s.Add(line("p1", money.Cents(100*(i+1)), q))
		want += q
	}

	got, ok := s.Line("p1")
	require.True(t, ok)
	assert.Equal(t, want, got.Quantity)
	assert.Equal(t, money.Cents(100), got.UnitPriceCents)
}

func TestStore_Add_PreservesInsertionOrder(t *testing.T) {
	s := newHydratedStore(t, newFakeStorage())

	s.Add(line("p3", 1, 1))
	s.Add(line("p1", 1, 1))
	s.Add(line("p2", 1, 1))
	s.Add(line("p1", 1, 1))

	ids := make([]string, 0, 3)
	for _, l := range s.Lines() {
		ids = append(ids, l.ID)
	}
	assert.Equal(t, []string{"p3", "p1", "p2"}, ids)
}

func TestStore_Add_Clamps(t *testing.T) {
	s := newHydratedStore(t, newFakeStorage())

	s.Add(line("p1", -500, 0))
	s.Add(line("p2", 100, -4))

	p1, _ := s.Line("p1")
	p2, _ := s.Line("p2")
	assert.Equal(t, money.Cents(0), p1.UnitPriceCents)
	assert.Equal(t, 1, p1.Quantity)
	assert.Equal(t, 1, p2.Quantity)
}

func TestStore_Add_IgnoresEmptyID(t *testing.T) {
	s := newHydratedStore(t, newFakeStorage())
	s.Add(line("", 100, 1))
	assert.Zero(t, s.Count())
}

// ---------------------------------------------------------------------------
// SetQuantity / Remove / Clear
// ---------------------------------------------------------------------------

func TestStore_SetQuantity(t *testing.T) {
	tests := []struct {
		name    string
		qty     int
		present bool
		want    int
	}{
		{"positive", 5, true, 5},
		{"one", 1, true, 1},
		{"zero removes", 0, false, 0},
		{"negative removes", -2, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newHydratedStore(t, newFakeStorage())
			s.Add(line("p1", 1990, 2))

			s.SetQuantity("p1", tt.qty)

			got, ok := s.Line("p1")
			assert.Equal(t, tt.present, ok)
			assert.Equal(t, tt.want, got.Quantity)
		})
	}
}

func TestStore_SetQuantityFloat(t *testing.T) {
	tests := []struct {
		qty     float64
		present bool
		want    int
	}{
		{2.9, true, 2},
		{1.0, true, 1},
		{0.99, false, 0},
		{-1.5, false, 0},
		{math.NaN(), false, 0},
		{math.Inf(1), true, math.MaxInt32},
	}

	for _, tt := range tests {
		s := newHydratedStore(t, newFakeStorage())
		s.Add(line("p1", 100, 3))

		s.SetQuantityFloat("p1", tt.qty)

		got, ok := s.Line("p1")
		assert.Equal(t, tt.present, ok, "qty %v", tt.qty)
		assert.Equal(t, tt.want, got.Quantity, "qty %v", tt.qty)
	}
}

func TestStore_Add_MergeSaturatesQuantity(t *testing.T) {
	s := newHydratedStore(t, newFakeStorage())

	s.Add(line("p1", 100, math.MaxInt))
	got, _ := s.Line("p1")
	assert.Equal(t, domain.MaxQuantity, got.Quantity)

	s.Add(line("p1", 100, 1))
	s.Add(line("p1", 100, math.MaxInt32))

	got, ok := s.Line("p1")
	require.True(t, ok)
	assert.Equal(t, domain.MaxQuantity, got.Quantity)
	assert.Equal(t, money.Cents(100*domain.MaxQuantity), s.TotalCents())
}

func TestStore_SetQuantity_CapsAtMax(t *testing.T) {
	s := newHydratedStore(t, newFakeStorage())
	s.Add(line("p1", 100, 1))

	s.SetQuantity("p1", math.MaxInt)

	got, _ := s.Line("p1")
	assert.Equal(t, domain.MaxQuantity, got.Quantity)
}

func TestStore_Hydrate_ClampsOversizedSnapshotQuantity(t *testing.T) {
	st := newFakeStorage()
	st.put(t, DefaultKey, snapshot{Version: 1, Items: []domain.CartLine{line("p1", 100, math.MaxInt)}})
	s := NewStore(st, newTestLogger())

	require.NoError(t, s.Hydrate(context.Background()))

	got, ok := s.Line("p1")
	require.True(t, ok)
	assert.Equal(t, domain.MaxQuantity, got.Quantity)
}

func TestStore_SetQuantity_UnknownIDDoesNotPersist(t *testing.T) {
	st := newFakeStorage()
	s := newHydratedStore(t, st, WithDebounce(time.Millisecond))

	s.SetQuantity("missing", 4)
	require.NoError(t, s.Flush(context.Background()))

	assert.Zero(t, st.setCount())
	assert.Zero(t, s.Count())
}

func TestStore_RemoveAndClear(t *testing.T) {
	s := newHydratedStore(t, newFakeStorage())
	s.Add(line("p1", 100, 1))
	s.Add(line("p2", 200, 1))

	s.Remove("p1")
	assert.Equal(t, 1, s.Count())
	_, ok := s.Line("p1")
	assert.False(t, ok)

	s.Clear()
	assert.Zero(t, s.Count())
	assert.Equal(t, money.Cents(0), s.TotalCents())
}

func TestStore_LinesReturnsCopy(t *testing.T) {
	s := newHydratedStore(t, newFakeStorage())
	s.Add(line("p1", 100, 1))

	lines := s.Lines()
	lines[0].Quantity = 99

	got, _ := s.Line("p1")
	assert.Equal(t, 1, got.Quantity)
}

// ---------------------------------------------------------------------------
// Hydration
// ---------------------------------------------------------------------------

func TestStore_Hydrate_NormalizesSnapshot(t *testing.T) {
	st := newFakeStorage()
	st.put(t, DefaultKey, snapshot{Version: 1, Items: []domain.CartLine{
		{ID: "p1", Name: "Cacao", UnitPriceCents: 1990, Quantity: 1},
		{ID: "", Name: "sin id", UnitPriceCents: 100, Quantity: 1},
		{ID: "p2", Name: "Café", UnitPriceCents: -10, Quantity: 2},
		{ID: "p3", Name: "Miel", UnitPriceCents: 890, Quantity: 0},
		{ID: "p1", Name: "Cacao dup", UnitPriceCents: 5000, Quantity: 2},
	}})

	s := NewStore(st, newTestLogger())
	assert.False(t, s.Hydrated())
	require.NoError(t, s.Hydrate(context.Background()))
	assert.True(t, s.Hydrated())

	assert.Equal(t, []domain.CartLine{
		{ID: "p1", Name: "Cacao", UnitPriceCents: 1990, Quantity: 3},
		{ID: "p2", Name: "Café", UnitPriceCents: 0, Quantity: 2},
	}, s.Lines())
	assert.Zero(t, st.setCount(), "loading alone must not write")
}

func TestStore_Hydrate_DegradesToEmpty(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeStorage)
	}{
		{"missing", func(*fakeStorage) {}},
		{"corrupt", func(f *fakeStorage) { f.data[DefaultKey] = []byte("{not json") }},
		{"wrong version", func(f *fakeStorage) { f.data[DefaultKey] = []byte(`{"version":7,"items":[{"id":"p1","quantity":1}]}`) }},
		{"read failure", func(f *fakeStorage) { f.getErr = errors.New("disk unplugged") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newFakeStorage()
			tt.setup(st)

			s := NewStore(st, newTestLogger())
			require.NoError(t, s.Hydrate(context.Background()))

			assert.True(t, s.Hydrated())
			assert.Zero(t, s.Count())
		})
	}
}

func TestStore_Hydrate_OnlyOnce(t *testing.T) {
	st := newFakeStorage()
	s := newHydratedStore(t, st)

	st.put(t, DefaultKey, snapshot{Version: 1, Items: []domain.CartLine{line("p9", 1, 1)}})
	require.NoError(t, s.Hydrate(context.Background()))

	assert.Zero(t, s.Count())
}

func TestStore_Remove_AbsentIDDoesNotPersist(t *testing.T) {
	st := newFakeStorage()
	s := newHydratedStore(t, st, WithDebounce(time.Millisecond))

	s.Remove("absent")
	require.NoError(t, s.Flush(context.Background()))

	assert.Zero(t, st.setCount())
}

func TestStore_NoWriteBeforeHydration(t *testing.T) {
	st := newFakeStorage()
	st.put(t, DefaultKey, snapshot{Version: 1, Items: []domain.CartLine{line("p1", 1990, 1)}})
	s := NewStore(st, newTestLogger(), WithDebounce(5*time.Millisecond))

	s.Add(line("p2", 1450, 2))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, s.Flush(context.Background()))
	assert.Zero(t, st.setCount())

	// The stored snapshot survives the pre-hydration mutation.
	assert.Len(t, st.snapshot(t).Items, 1)
}

func TestStore_Hydrate_ReplaysEarlyMutations(t *testing.T) {
	st := newFakeStorage()
	st.put(t, DefaultKey, snapshot{Version: 1, Items: []domain.CartLine{
		line("p1", 1990, 1),
		line("p2", 1450, 1),
	}})
	s := NewStore(st, newTestLogger(), WithDebounce(time.Hour))

	s.Add(line("p1", 9999, 2))
	s.Remove("p2")
	s.Add(line("p3", 890, 1))

	require.NoError(t, s.Hydrate(context.Background()))

	assert.Equal(t, []domain.CartLine{line("p1", 1990, 3), line("p3", 890, 1)}, s.Lines())

	require.NoError(t, s.Flush(context.Background()))
	assert.Equal(t, 1, st.setCount())
	assert.Equal(t, s.Lines(), st.snapshot(t).Items)
}

func TestStore_Hydrate_ReplaysSetQuantityOnSnapshotLine(t *testing.T) {
	st := newFakeStorage()
	st.put(t, DefaultKey, snapshot{Version: 1, Items: []domain.CartLine{
		line("p1", 1990, 1),
		line("p2", 1450, 4),
	}})
	s := NewStore(st, newTestLogger(), WithDebounce(time.Hour))

	s.SetQuantity("p1", 5)
	s.SetQuantity("p2", 0)
	s.SetQuantity("missing", 3)

	require.NoError(t, s.Hydrate(context.Background()))

	assert.Equal(t, []domain.CartLine{line("p1", 1990, 5)}, s.Lines())

	require.NoError(t, s.Flush(context.Background()))
	assert.Equal(t, 1, st.setCount())
	assert.Equal(t, s.Lines(), st.snapshot(t).Items)
}

func TestStore_Hydrate_NoopReplayDoesNotPersist(t *testing.T) {
	st := newFakeStorage()
	st.put(t, DefaultKey, snapshot{Version: 1, Items: []domain.CartLine{line("p1", 1990, 1)}})
	s := NewStore(st, newTestLogger(), WithDebounce(time.Hour))

	s.Remove("absent")
	require.NoError(t, s.Hydrate(context.Background()))
	require.NoError(t, s.Flush(context.Background()))

	assert.Zero(t, st.setCount())
}

// ---------------------------------------------------------------------------
// Persistence
// ---------------------------------------------------------------------------

func TestStore_DebounceCoalescesWrites(t *testing.T) {
	st := newFakeStorage()
	s := newHydratedStore(t, st, WithDebounce(50*time.Millisecond))

	for i := 0; i < 10; i++ {
		s.Add(line("p1", 1990, 1))
	}

	assert.Eventually(t, func() bool { return st.setCount() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, st.setCount())

	snap := st.snapshot(t)
	assert.Equal(t, 1, snap.Version)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, 10, snap.Items[0].Quantity)
}

func TestStore_SnapshotFormat(t *testing.T) {
	st := newFakeStorage()
	s := newHydratedStore(t, st, WithDebounce(time.Hour))
	s.Add(domain.CartLine{ID: "p1", Name: "Cacao en grano", UnitPriceCents: 1990, Quantity: 2})

	require.NoError(t, s.Flush(context.Background()))

	st.mu.Lock()
	raw := string(st.data[DefaultKey])
	st.mu.Unlock()
	assert.JSONEq(t, `{"version":1,"items":[{"id":"p1","name":"Cacao en grano","price_cents":1990,"quantity":2}]}`, raw)
}

func TestStore_CustomKey(t *testing.T) {
	st := newFakeStorage()
	s := newHydratedStore(t, st, WithKey("cart:user-1"), WithDebounce(time.Hour))
	s.Add(line("p1", 100, 1))

	require.NoError(t, s.Flush(context.Background()))

	st.mu.Lock()
	_, ok := st.data["cart:user-1"]
	st.mu.Unlock()
	assert.True(t, ok)
}

func TestStore_FlushWithoutChangesDoesNotWrite(t *testing.T) {
	st := newFakeStorage()
	s := newHydratedStore(t, st)

	require.NoError(t, s.Flush(context.Background()))
	assert.Zero(t, st.setCount())
}

func TestStore_WriteFailureIsSwallowed(t *testing.T) {
	st := newFakeStorage()
	st.setErr = errors.New("quota exceeded")
	s := newHydratedStore(t, st, WithDebounce(20*time.Millisecond))

	s.Add(line("p1", 100, 1))

	assert.Eventually(t, func() bool { return st.setCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, s.Count(), "state survives a failed write")

	s.Add(line("p1", 100, 1))
	err := s.Flush(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestStore_CloseStopsPersistence(t *testing.T) {
	st := newFakeStorage()
	s := NewStore(st, newTestLogger(), WithDebounce(5*time.Millisecond))
	require.NoError(t, s.Hydrate(context.Background()))

	s.Add(line("p1", 100, 1))
	require.NoError(t, s.Close(context.Background()))
	assert.Equal(t, 1, st.setCount(), "close flushes pending change")

	s.Add(line("p2", 100, 1))
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, st.setCount())
	assert.Equal(t, 2, s.Count())
	assert.NoError(t, s.Close(context.Background()))
}

func TestStore_ConcurrentAdds(t *testing.T) {
	st := newFakeStorage()
	s := newHydratedStore(t, st, WithDebounce(time.Millisecond))

	const workers, perWorker = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				s.Add(line("p1", 1990, 1))
				_ = s.TotalCents()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workers*perWorker, s.ItemCount())
	require.NoError(t, s.Flush(context.Background()))
	assert.Equal(t, workers*perWorker, st.snapshot(t).Items[0].Quantity)
}
