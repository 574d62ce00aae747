package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rl1809/record-catalog/internal/core/domain"
)

// Mock RecordRepository
type mockRecordRepo struct {
	mu      sync.Mutex
	records map[string]domain.Record
	order   []string
	nextID  int

	createErr error
	getErr    error
	findErr   error
	countErr  error
	updateErr error
	adjustErr error

	// conflicts makes the next N UpdateRecord calls fail with ErrOptimisticLock
	conflicts int

	createCalls int
	getCalls    int
	findCalls   int
	countCalls  int
	updateCalls int
	lastFilter  domain.RecordFilter
}

func newMockRecordRepo() *mockRecordRepo {
	return &mockRecordRepo{records: make(map[string]domain.Record)}
}

func (m *mockRecordRepo) seed(rec domain.Record) domain.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	if rec.ID == "" {
		rec.ID = fmt.Sprintf("rec-%d", m.nextID)
	}
	if rec.Tracklist == nil {
		rec.Tracklist = []string{}
	}
	m.records[rec.ID] = rec
	m.order = append(m.order, rec.ID)
	return rec
}

func (m *mockRecordRepo) get(id string) domain.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[id]
}

func (m *mockRecordRepo) CreateRecord(ctx context.Context, record domain.Record) (*domain.Record, error) {
	m.mu.Lock()
	m.createCalls++
	err := m.createErr
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	record.CreatedAt = time.Now()
	record.UpdatedAt = record.CreatedAt
	rec := m.seed(record)
	return &rec, nil
}

func (m *mockRecordRepo) GetRecord(ctx context.Context, id string) (*domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	rec, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *mockRecordRepo) FindRecords(ctx context.Context, filter domain.RecordFilter, offset, limit int) ([]domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findCalls++
	m.lastFilter = filter
	if m.findErr != nil {
		return nil, m.findErr
	}
	matched := m.matching(filter)
	if offset >= len(matched) {
		return []domain.Record{}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (m *mockRecordRepo) CountRecords(ctx context.Context, filter domain.RecordFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.countCalls++
	if m.countErr != nil {
		return 0, m.countErr
	}
	return len(m.matching(filter)), nil
}

func (m *mockRecordRepo) UpdateRecord(ctx context.Context, record domain.Record) (*domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	if m.conflicts > 0 {
		m.conflicts--
		return nil, domain.ErrOptimisticLock
	}
	current, ok := m.records[record.ID]
	if !ok || current.Version != record.Version {
		return nil, domain.ErrOptimisticLock
	}
	record.Version++
	m.records[record.ID] = record
	return &record, nil
}

func (m *mockRecordRepo) AdjustQuantity(ctx context.Context, id string, delta int) (*domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.adjustErr != nil {
		return nil, m.adjustErr
	}
	rec, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	if rec.Quantity+delta < 0 {
		return nil, domain.ErrInsufficientStock
	}
	if rec.Quantity+delta > domain.MaxQuantity {
		return nil, domain.ErrQuantityOverflow
	}
	rec.Quantity += delta
	rec.Version++
	m.records[id] = rec
	return &rec, nil
}

func (m *mockRecordRepo) matching(filter domain.RecordFilter) []domain.Record {
	out := []domain.Record{}
	for _, id := range m.order {
		rec := m.records[id]
		if matchesAll(rec, filter.AllOf) && (len(filter.AnyOf) == 0 || matchesAny(rec, filter.AnyOf)) {
			out = append(out, rec)
		}
	}
	return out
}

func matchesAll(rec domain.Record, conds []domain.Condition) bool {
	for _, c := range conds {
		if !matches(rec, c) {
			return false
		}
	}
	return true
}

func matchesAny(rec domain.Record, conds []domain.Condition) bool {
	for _, c := range conds {
		if matches(rec, c) {
			return true
		}
	}
	return false
}

func matches(rec domain.Record, c domain.Condition) bool {
	var v string
	switch c.Field {
	case domain.FieldArtist:
		v = rec.Artist
	case domain.FieldAlbum:
		v = rec.Album
	case domain.FieldFormat:
		v = string(rec.Format)
	case domain.FieldCategory:
		v = string(rec.Category)
	}
	if c.Match == domain.MatchContains {
		return strings.Contains(strings.ToLower(v), strings.ToLower(c.Value))
	}
	return v == c.Value
}

// Mock CacheRepository
type mockCache struct {
	mu      sync.Mutex
	entries map[string][]domain.Record
	ttls    map[string]time.Duration
	getErr  error
	setErr  error
	gets    int
	sets    int
}

func newMockCache() *mockCache {
	return &mockCache{
		entries: make(map[string][]domain.Record),
		ttls:    make(map[string]time.Duration),
	}
}

func (m *mockCache) GetRecordPage(ctx context.Context, key string) ([]domain.Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	page, ok := m.entries[key]
	return page, ok, nil
}

func (m *mockCache) SetRecordPage(ctx context.Context, key string, records []domain.Record, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	m.entries[key] = records
	m.ttls[key] = ttl
	return nil
}

// Mock TracklistProvider
type mockTracks struct {
	mu     sync.Mutex
	tracks map[string][]string
	err    error
	calls  []string
}

func newMockTracks() *mockTracks {
	return &mockTracks{tracks: make(map[string][]string)}
}

func (m *mockTracks) FetchTracklist(ctx context.Context, mbid string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, mbid)
	if m.err != nil {
		return nil, m.err
	}
	return m.tracks[mbid], nil
}

func (m *mockTracks) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Mock OrderRepository
type mockOrderRepo struct {
	mu        sync.Mutex
	orders    map[string]domain.Order
	createErr error
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[string]domain.Order)}
}

func (m *mockOrderRepo) CreateOrder(ctx context.Context, order domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.orders[order.ID] = order
	return nil
}

func (m *mockOrderRepo) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	return &order, nil
}

func (m *mockOrderRepo) ListOrders(ctx context.Context) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o)
	}
	return out, nil
}

// Mock IdempotencyRepository
type mockIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
	err  error
}

func newMockIdempotency() *mockIdempotency {
	return &mockIdempotency{keys: make(map[string]bool)}
}

func (m *mockIdempotency) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}
