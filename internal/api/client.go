// Package api is the HTTP client for the Smiles backend REST surface.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"smiles/internal/metrics"
	"smiles/internal/model"
)

// StatusError is a non-2xx backend response. Callers classify outcomes
// (conflict, validation, unauthorized) from the code.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d", e.Code)
}

// TokenSource supplies a fresh bearer token for an outgoing call.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client calls the Smiles backend. Every request carries the current
// bearer token; directory reads go through an optional Redis cache.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	logger     *zerolog.Logger

	redis    *redis.Client
	cacheTTL time.Duration

	limiter *rate.Limiter

	// onUnauthorized is invoked on a 401 response; the session manager
	// hooks an interactive re-login here.
	onUnauthorized func()
}

// AuthHealth is the response of GET /auth/health.
type AuthHealth struct {
	Authenticated bool     `json:"authenticated"`
	Username      string   `json:"username"`
	Roles         []string `json:"roles"`
}

// NewClient constructs a client for the given base URL (including the
// /api prefix).
func NewClient(baseURL string, tokens TokenSource, logger *zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// SetTimeout overrides the default request timeout.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.httpClient.Timeout = d
	}
}

// UseRedisCache configures optional Redis caching for directory reads.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// UseRateLimit throttles outgoing calls to rps with the given burst.
func (c *Client) UseRateLimit(rps float64, burst int) {
	if rps > 0 && burst > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// OnUnauthorized registers the hook invoked on a 401 response.
func (c *Client) OnUnauthorized(fn func()) {
	c.onUnauthorized = fn
}

// GetCurrentUser fetches the authenticated user's profile.
func (c *Client) GetCurrentUser(ctx context.Context) (*model.UserInfo, error) {
	var user model.UserInfo
	if err := c.doGet(ctx, c.baseURL+"/auth/me", &user); err != nil {
		return nil, fmt.Errorf("get current user: %w", err)
	}
	return &user, nil
}

// CheckAuthHealth probes the backend's view of the current credential.
func (c *Client) CheckAuthHealth(ctx context.Context) (*AuthHealth, error) {
	var health AuthHealth
	if err := c.doGet(ctx, c.baseURL+"/auth/health", &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// ListAppointments fetches appointments for a facility overlapping
// [start, end). Instants are sent as UTC ISO-8601.
func (c *Client) ListAppointments(ctx context.Context, facilityID string, start, end time.Time) ([]model.Appointment, error) {
	endpoint := fmt.Sprintf("%s/appointments?facilityId=%s&startTime=%s&endTime=%s",
		c.baseURL,
		url.QueryEscape(facilityID),
		url.QueryEscape(start.UTC().Format(time.RFC3339)),
		url.QueryEscape(end.UTC().Format(time.RFC3339)),
	)

	var appointments []model.Appointment
	if err := c.doGet(ctx, endpoint, &appointments); err != nil {
		metrics.IncFetchError("appointments")
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appointments, nil
}

// CreateAppointment submits a new appointment. A 409 means the dentist
// or room is already booked for an overlapping interval.
func (c *Client) CreateAppointment(ctx context.Context, req model.CreateAppointmentRequest) (*model.Appointment, error) {
	var created model.Appointment
	if err := c.doPost(ctx, c.baseURL+"/appointments", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// CancelAppointment cancels an appointment by ID.
func (c *Client) CancelAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	endpoint := fmt.Sprintf("%s/appointments/%s/cancel", c.baseURL, url.PathEscape(id))
	var cancelled model.Appointment
	if err := c.doPost(ctx, endpoint, nil, &cancelled); err != nil {
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}
	return &cancelled, nil
}

// ListFacilities returns all facilities visible to the user.
func (c *Client) ListFacilities(ctx context.Context) ([]model.Facility, error) {
	var facilities []model.Facility
	if c.readCache(ctx, "facilities", "facilities", &facilities) {
		return facilities, nil
	}
	if err := c.doGet(ctx, c.baseURL+"/facilities", &facilities); err != nil {
		metrics.IncFetchError("facilities")
		return nil, fmt.Errorf("list facilities: %w", err)
	}
	c.writeCache(ctx, "facilities", facilities)
	return facilities, nil
}

// ListStaff returns the staff directory of a facility.
func (c *Client) ListStaff(ctx context.Context, facilityID string) ([]model.Staff, error) {
	var staff []model.Staff
	cacheKey := "staff:" + facilityID
	if c.readCache(ctx, cacheKey, "staff", &staff) {
		return staff, nil
	}
	endpoint := fmt.Sprintf("%s/staff?facilityId=%s", c.baseURL, url.QueryEscape(facilityID))
	if err := c.doGet(ctx, endpoint, &staff); err != nil {
		metrics.IncFetchError("staff")
		return nil, fmt.Errorf("list staff: %w", err)
	}
	c.writeCache(ctx, cacheKey, staff)
	return staff, nil
}

// ListRooms returns the room directory of a facility.
func (c *Client) ListRooms(ctx context.Context, facilityID string) ([]model.Room, error) {
	var rooms []model.Room
	cacheKey := "rooms:" + facilityID
	if c.readCache(ctx, cacheKey, "rooms", &rooms) {
		return rooms, nil
	}
	endpoint := fmt.Sprintf("%s/rooms?facilityId=%s", c.baseURL, url.QueryEscape(facilityID))
	if err := c.doGet(ctx, endpoint, &rooms); err != nil {
		metrics.IncFetchError("rooms")
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	c.writeCache(ctx, cacheKey, rooms)
	return rooms, nil
}

// ListPatients returns the patient directory of a facility.
func (c *Client) ListPatients(ctx context.Context, facilityID string) ([]model.Patient, error) {
	var patients []model.Patient
	cacheKey := "patients:" + facilityID
	if c.readCache(ctx, cacheKey, "patients", &patients) {
		return patients, nil
	}
	endpoint := fmt.Sprintf("%s/patients?facilityId=%s", c.baseURL, url.QueryEscape(facilityID))
	if err := c.doGet(ctx, endpoint, &patients); err != nil {
		metrics.IncFetchError("patients")
		return nil, fmt.Errorf("list patients: %w", err)
	}
	c.writeCache(ctx, cacheKey, patients)
	return patients, nil
}

func (c *Client) readCache(ctx context.Context, key, resource string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	metrics.IncCacheHit(resource)
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

func (c *Client) doGet(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) doPost(ctx context.Context, endpoint string, body, out any) error {
	reader := strings.NewReader("")
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = strings.NewReader(string(data))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	ctx := req.Context()
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("bearer token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		if c.logger != nil {
			c.logger.Warn().Str("url", req.URL.Path).Msg("unauthorized, triggering re-login")
		}
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return &StatusError{Code: resp.StatusCode}
	}
	if resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode}
	}
	if out == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	return dec.Decode(out)
}
