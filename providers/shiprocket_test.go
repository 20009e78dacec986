package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Vaibhavugile/doenew/availability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ---- in-memory token cache ----

type memTokenCache struct {
	mu          sync.Mutex
	token       string
	invalidated int
}

func (m *memTokenCache) Get(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *memTokenCache) Set(_ context.Context, token string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *memTokenCache) Invalidate(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.invalidated++
	return nil
}

// ---- fake Shiprocket ----

type fakeShiprocket struct {
	logins        int32
	loginStatus   int
	serviceStatus int
	serviceBody   string
	delay         time.Duration
	lastQuery     map[string]string
	lastAuth      string
}

func (f *fakeShiprocket) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/external/auth/login", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.logins, 1)
		var body loginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if f.loginStatus != 0 {
			w.WriteHeader(f.loginStatus)
			_, _ = w.Write([]byte(`{"message":"Invalid email and password combination"}`))
			return
		}
		_, _ = w.Write([]byte(`{"token":"tok-123"}`))
	})
	mux.HandleFunc("/v1/external/courier/serviceability/", func(w http.ResponseWriter, r *http.Request) {
		if f.delay > 0 {
			time.Sleep(f.delay)
		}
		f.lastAuth = r.Header.Get("Authorization")
		f.lastQuery = map[string]string{}
		for k := range r.URL.Query() {
			f.lastQuery[k] = r.URL.Query().Get(k)
		}
		if f.serviceStatus != 0 {
			w.WriteHeader(f.serviceStatus)
		}
		_, _ = w.Write([]byte(f.serviceBody))
	})
	return mux
}

func newTestProvider(t *testing.T, f *fakeShiprocket, timeout time.Duration) (*ShiprocketProvider, *memTokenCache) {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	cache := &memTokenCache{}
	p := NewShiprocketProvider(ShiprocketConfig{
		BaseURL:  srv.URL,
		Email:    "ops@example.com",
		Password: "secret",
		Timeout:  timeout,
	}, cache, zap.NewNop())
	return p, cache
}

var forwardReq = RateRequest{
	Leg:             availability.LegForward,
	PickupPincode:   "400001",
	DeliveryPincode: "560001",
	CashOnDelivery:  true,
	WeightKg:        0.5,
}

const twoCouriers = `{"status":200,"data":{"available_courier_companies":[
	{"courier_name":"Delhivery Surface","etd":"Jan 05, 2024","rate":95.5},
	{"courier_name":"Xpressbees","etd":"2024-01-04","rate":"120"},
	{"courier_name":"Ekart","etd":"soon","rate":80}
]}}`

func TestRates_Success(t *testing.T) {
	f := &fakeShiprocket{serviceBody: twoCouriers}
	p, cache := newTestProvider(t, f, time.Second)

	rates, err := p.Rates(context.Background(), forwardReq)
	require.NoError(t, err)
	require.Len(t, rates, 3)

	assert.Equal(t, "Delhivery Surface", rates[0].CourierName)
	assert.Equal(t, 95.5, rates[0].Price)
	require.NotNil(t, rates[0].EtaDate)
	assert.Equal(t, "2024-01-05", availability.FormatDate(*rates[0].EtaDate))
	assert.Equal(t, 120.0, rates[1].Price)
	assert.Nil(t, rates[2].EtaDate)

	assert.Equal(t, "Bearer tok-123", f.lastAuth)
	assert.Equal(t, "1", f.lastQuery["cod"])
	assert.Equal(t, "400001", f.lastQuery["pickup_postcode"])
	assert.Equal(t, "560001", f.lastQuery["delivery_postcode"])
	assert.Equal(t, "0.5", f.lastQuery["weight"])
	assert.Equal(t, "tok-123", cache.token)

	_, err = p.Rates(context.Background(), forwardReq)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.logins))
}

func TestRates_UnauthorizedInvalidatesToken(t *testing.T) {
	f := &fakeShiprocket{serviceStatus: http.StatusUnauthorized, serviceBody: `{"message":"Token has expired"}`}
	p, cache := newTestProvider(t, f, time.Second)

	_, err := p.Rates(context.Background(), forwardReq)
	assert.ErrorIs(t, err, ErrAuth)
	assert.Equal(t, 1, cache.invalidated)
	assert.Empty(t, cache.token)
}

func TestRates_LoginRejected(t *testing.T) {
	f := &fakeShiprocket{loginStatus: http.StatusBadRequest}
	p, _ := newTestProvider(t, f, time.Second)

	_, err := p.Rates(context.Background(), forwardReq)
	assert.ErrorIs(t, err, ErrAuth)
	assert.NotContains(t, err.Error(), "secret")
}

func TestRates_LoginStatusClassification(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrAuth},
		{http.StatusForbidden, ErrAuth},
		{http.StatusTooManyRequests, ErrTransient},
		{http.StatusNotFound, ErrTransient},
		{http.StatusBadGateway, ErrTransient},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			p, _ := newTestProvider(t, &fakeShiprocket{loginStatus: tc.status}, time.Second)

			_, err := p.Rates(context.Background(), forwardReq)
			assert.ErrorIs(t, err, tc.want)
			if tc.want == ErrTransient {
				assert.NotErrorIs(t, err, ErrAuth)
				assert.NotErrorIs(t, err, ErrNoService)
			}
		})
	}
}

func TestRates_NoService(t *testing.T) {
	cases := map[string]*fakeShiprocket{
		"empty list":     {serviceBody: `{"status":200,"data":{"available_courier_companies":[]}}`},
		"empty data":     {serviceBody: `{"status":200,"data":[]}`},
		"body status":    {serviceBody: `{"status":404,"message":"Delivery postcode not serviceable"}`},
		"http not found": {serviceStatus: http.StatusNotFound, serviceBody: `{"message":"not serviceable"}`},
		"http 422":       {serviceStatus: http.StatusUnprocessableEntity, serviceBody: `{"message":"invalid"}`},
	}
	for name, f := range cases {
		t.Run(name, func(t *testing.T) {
			p, _ := newTestProvider(t, f, time.Second)
			_, err := p.Rates(context.Background(), forwardReq)
			assert.ErrorIs(t, err, ErrNoService)
		})
	}
}

func TestRates_Transient(t *testing.T) {
	cases := map[string]*fakeShiprocket{
		"server error": {serviceStatus: http.StatusInternalServerError, serviceBody: `oops`},
		"bad json":     {serviceBody: `{"status":`},
		"timeout":      {serviceBody: twoCouriers, delay: 300 * time.Millisecond},
	}
	for name, f := range cases {
		t.Run(name, func(t *testing.T) {
			p, _ := newTestProvider(t, f, 100*time.Millisecond)
			_, err := p.Rates(context.Background(), forwardReq)
			assert.ErrorIs(t, err, ErrTransient)
			assert.NotErrorIs(t, err, ErrNoService)
		})
	}
}

func TestParseEtd(t *testing.T) {
	for _, s := range []string{"Jan 05, 2024", "Jan 5, 2024", "2024-01-05", "2024-01-05 18:00:00", "2024-01-05T18:00:00+05:30"} {
		got := parseEtd(s)
		require.NotNil(t, got, s)
		assert.Equal(t, "2024-01-05", availability.FormatDate(*got), s)
	}
	assert.Nil(t, parseEtd(""))
	assert.Nil(t, parseEtd("2-3 days"))
}
