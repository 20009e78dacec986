package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Vaibhavugile/doenew/availability"
	"github.com/Vaibhavugile/doenew/models"
	"github.com/Vaibhavugile/doenew/providers"
	"github.com/Vaibhavugile/doenew/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := availability.ParseDate(s)
	require.NoError(t, err)
	return d
}

func ptr(t time.Time) *time.Time { return &t }

// ---- courier provider ----

type fakeProvider struct {
	rates    map[availability.Leg][]providers.CourierRate
	errs     map[availability.Leg]error
	requests []providers.RateRequest
}

func (f *fakeProvider) Rates(_ context.Context, req providers.RateRequest) ([]providers.CourierRate, error) {
	f.requests = append(f.requests, req)
	if err := f.errs[req.Leg]; err != nil {
		return nil, err
	}
	return f.rates[req.Leg], nil
}

// ---- catalog ----

type fakeCatalog struct {
	products map[string]*models.Product
	err      error
}

func (f *fakeCatalog) GetProduct(_ context.Context, id string) (*models.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

// ---- quote store ----

type memQuoteStore struct {
	mu       sync.Mutex
	sessions map[string]models.QuoteSession
	saveErr  error
}

func newMemQuoteStore() *memQuoteStore {
	return &memQuoteStore{sessions: map[string]models.QuoteSession{}}
}

func (m *memQuoteStore) Save(_ context.Context, q *models.QuoteSession) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[q.ID] = *q
	return nil
}

func (m *memQuoteStore) Get(_ context.Context, id string) (*models.QuoteSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.sessions[id]
	if !ok {
		return nil, repository.ErrQuoteNotFound
	}
	return &q, nil
}

// ---- idempotency store ----

type memIdemStore struct {
	keys   map[string]string
	getErr error
}

func (m *memIdemStore) Get(_ context.Context, key string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	return m.keys[key], nil
}

func (m *memIdemStore) Set(_ context.Context, key, id string, _ time.Duration) error {
	if m.keys == nil {
		m.keys = map[string]string{}
	}
	m.keys[key] = id
	return nil
}

// ---- reservation repository ----

type memReservations struct {
	mu    sync.Mutex
	items []models.RentalReservation

	// concurrent is committed by another request between our read and our
	// insert; it is only visible inside CreateIfAvailable.
	concurrent *models.RentalReservation
	// racingKey simulates a concurrent insert with the same idempotency key.
	racingKey *models.RentalReservation
	createErr error
	creates   int
}

func (m *memReservations) active(productID string, v availability.Variant, from time.Time) []models.RentalReservation {
	var out []models.RentalReservation
	for _, r := range m.items {
		if r.ProductID != productID || r.Variant() != v {
			continue
		}
		if r.Status == models.ReservationStatusCancelled || r.Status == models.ReservationStatusExpired {
			continue
		}
		if r.OccupiedEnd.Time.Before(availability.DateOf(from)) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (m *memReservations) ListActive(_ context.Context, productID string, v availability.Variant, from time.Time) ([]models.RentalReservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active(productID, v, from), nil
}

func (m *memReservations) FindByID(_ context.Context, id uuid.UUID) (*models.RentalReservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.items {
		if r.ID == id {
			cp := r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memReservations) FindByIdempotencyKey(_ context.Context, key string) (*models.RentalReservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.items {
		if r.IdempotencyKey != nil && *r.IdempotencyKey == key {
			cp := r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memReservations) CreateIfAvailable(_ context.Context, res *models.RentalReservation, from time.Time, check repository.AvailabilityCheck) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.createErr != nil {
		return m.createErr
	}
	if m.concurrent != nil {
		m.items = append(m.items, *m.concurrent)
		m.concurrent = nil
	}
	if err := check(m.active(res.ProductID, res.Variant(), from)); err != nil {
		return err
	}
	if m.racingKey != nil {
		m.items = append(m.items, *m.racingKey)
		m.racingKey = nil
		return &pgconn.PgError{Code: "23505"}
	}
	m.items = append(m.items, *res)
	return nil
}

// ---- publishers and metrics ----

type fakeSNS struct {
	topics   []string
	messages [][]byte
	err      error
}

func (f *fakeSNS) Publish(_ context.Context, topicArn string, message []byte, _ map[string]string) error {
	f.topics = append(f.topics, topicArn)
	f.messages = append(f.messages, message)
	return f.err
}

type fakeEvents struct {
	events []models.RentalBookedEvent
	err    error
}

func (f *fakeEvents) PublishRentalBooked(_ context.Context, evt models.RentalBookedEvent) error {
	f.events = append(f.events, evt)
	return f.err
}

type fakeMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func (f *fakeMetrics) IsEnabled() bool { return true }

func (f *fakeMetrics) RecordCount(_ context.Context, name string, _ map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts == nil {
		f.counts = map[string]int{}
	}
	f.counts[name]++
	return nil
}

func (f *fakeMetrics) RecordLatency(context.Context, string, time.Duration, map[string]string) error {
	return nil
}

func (f *fakeMetrics) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[name]
}

var errBoom = errors.New("boom")
