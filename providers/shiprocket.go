package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Vaibhavugile/doenew/pkg/otelx"
	"go.uber.org/zap"
)

const (
	DefaultShiprocketBaseURL = "https://apiv2.shiprocket.in"

	// Tokens are valid for ten days; refresh a day early.
	shiprocketTokenTTL = 9 * 24 * time.Hour
)

// ShiprocketConfig holds the aggregator endpoint and operator credentials.
type ShiprocketConfig struct {
	BaseURL  string
	Email    string
	Password string
	Timeout  time.Duration
}

// ShiprocketProvider implements CourierProvider using the Shiprocket API.
type ShiprocketProvider struct {
	cfg        ShiprocketConfig
	httpClient *http.Client
	tokens     TokenCache
	logger     *zap.Logger
}

// NewShiprocketProvider creates a new ShiprocketProvider.
func NewShiprocketProvider(cfg ShiprocketConfig, tokens TokenCache, logger *zap.Logger) *ShiprocketProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultShiprocketBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &ShiprocketProvider{
		cfg:    cfg,
		tokens: tokens,
		logger: logger,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelx.Transport(nil),
		},
	}
}

// ---- Shiprocket API request/response structs ----

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type serviceabilityResponse struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type serviceabilityData struct {
	AvailableCourierCompanies []courierCompany `json:"available_courier_companies"`
}

type courierCompany struct {
	CourierName string    `json:"courier_name"`
	Etd         string    `json:"etd"`
	Rate        flexFloat `json:"rate"`
}

// flexFloat accepts both 120.5 and "120.5".
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid rate %q: %w", s, err)
	}
	*f = flexFloat(v)
	return nil
}

var etdLayouts = []string{
	"Jan 02, 2006",
	"Jan 2, 2006",
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// parseEtd returns nil for an empty or unrecognised estimate.
func parseEtd(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range etdLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// ---- CourierProvider implementation ----

// Rates queries courier serviceability for one leg.
func (s *ShiprocketProvider) Rates(ctx context.Context, req RateRequest) ([]CourierRate, error) {
	token, err := s.token(ctx)
	if err != nil {
		return nil, err
	}

	cod := "0"
	if req.CashOnDelivery {
		cod = "1"
	}
	q := url.Values{}
	q.Set("pickup_postcode", req.PickupPincode)
	q.Set("delivery_postcode", req.DeliveryPincode)
	q.Set("cod", cod)
	q.Set("weight", strconv.FormatFloat(req.WeightKg, 'f', -1, 64))

	var resp serviceabilityResponse
	err = s.doRequest(ctx, http.MethodGet, "/v1/external/courier/serviceability/?"+q.Encode(), token, nil, &resp)
	if errors.Is(err, ErrAuth) {
		if invErr := s.tokens.Invalidate(ctx); invErr != nil {
			s.logger.Warn("Failed to invalidate courier token", zap.Error(invErr))
		}
	}
	if err != nil {
		return nil, fmt.Errorf("shiprocket %s serviceability: %w", req.Leg, err)
	}

	if resp.Status != 0 && resp.Status != http.StatusOK {
		return nil, fmt.Errorf("shiprocket %s serviceability: status %d %s: %w", req.Leg, resp.Status, resp.Message, ErrNoService)
	}

	var data serviceabilityData
	// Unserviceable routes come back with "data": [] instead of an object.
	if len(resp.Data) > 0 && resp.Data[0] == '{' {
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			return nil, fmt.Errorf("shiprocket %s serviceability: decode data: %v: %w", req.Leg, err, ErrTransient)
		}
	}
	if len(data.AvailableCourierCompanies) == 0 {
		return nil, fmt.Errorf("shiprocket %s serviceability: empty courier list: %w", req.Leg, ErrNoService)
	}

	rates := make([]CourierRate, 0, len(data.AvailableCourierCompanies))
	for _, c := range data.AvailableCourierCompanies {
		rates = append(rates, CourierRate{
			CourierName: c.CourierName,
			EtaDate:     parseEtd(c.Etd),
			Price:       float64(c.Rate),
		})
	}
	return rates, nil
}

// token returns the cached bearer token, logging in when there is none.
func (s *ShiprocketProvider) token(ctx context.Context) (string, error) {
	if tok, err := s.tokens.Get(ctx); err != nil {
		s.logger.Warn("Courier token cache unavailable", zap.Error(err))
	} else if tok != "" {
		return tok, nil
	}

	if s.cfg.Email == "" || s.cfg.Password == "" {
		return "", fmt.Errorf("shiprocket login: credentials not configured: %w", ErrAuth)
	}

	var resp loginResponse
	if err := s.doRequest(ctx, http.MethodPost, "/v1/external/auth/login", "", loginRequest{Email: s.cfg.Email, Password: s.cfg.Password}, &resp); err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("shiprocket login: status %d: %w", apiErr.Status, loginErrorKind(apiErr.Status))
		}
		return "", fmt.Errorf("shiprocket login: %w", err)
	}
	if resp.Token == "" {
		return "", fmt.Errorf("shiprocket login: empty token: %w", ErrAuth)
	}

	if err := s.tokens.Set(ctx, resp.Token, shiprocketTokenTTL); err != nil {
		s.logger.Warn("Failed to cache courier token", zap.Error(err))
	}
	return resp.Token, nil
}

// loginErrorKind treats only credential rejections as ErrAuth. Throttling
// and anything else from the login endpoint can be retried.
func loginErrorKind(status int) error {
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuth
	}
	return ErrTransient
}

// ---- HTTP helper ----

func (s *ShiprocketProvider) doRequest(ctx context.Context, method, path, token string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(s.cfg.BaseURL, "/")+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http do: %v: %w", err, ErrTransient)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %v: %w", err, ErrTransient)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, respBytes)
	}

	if out != nil {
		if err := json.Unmarshal(respBytes, out); err != nil {
			return fmt.Errorf("decode response: %v: %w", err, ErrTransient)
		}
	}
	return nil
}

// apiError is a non-2xx answer. It unwraps to ErrAuth, ErrNoService or
// ErrTransient depending on the status code.
type apiError struct {
	Status int
	Body   string
	kind   error
}

func newAPIError(status int, body []byte) *apiError {
	kind := ErrTransient
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = ErrAuth
	case http.StatusNotFound, http.StatusUnprocessableEntity:
		kind = ErrNoService
	}
	return &apiError{Status: status, Body: snippet(body), kind: kind}
}

func (e *apiError) Error() string {
	return fmt.Sprintf("shiprocket API error (status %d): %s", e.Status, e.Body)
}

func (e *apiError) Unwrap() error { return e.kind }

func snippet(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max])
	}
	return string(b)
}
