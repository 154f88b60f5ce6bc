// Package webhook provides webhook management for downstream systems that
// subscribe to result and encounter lifecycle events. It supports endpoint
// registration, event-driven delivery with HMAC-SHA256 signing, retry logic,
// delivery logging, and an Echo HTTP handler for API exposure.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Event types published by the result reconciliation pipeline.
const (
	EventResultReceived  = "result.received"
	EventResultMatched   = "result.matched"
	EventResultUnmatched = "result.unmatched"
	EventResultImported  = "result.imported"
	EventOrderCompleted  = "order.completed"
)

// ---------------------------------------------------------------------------
// Domain structs
// ---------------------------------------------------------------------------

// Endpoint represents a registered webhook destination.
type Endpoint struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Secret      string    `json:"secret,omitempty"`
	Events      []string  `json:"events"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// DeliveryAttempt records a single delivery attempt for a webhook event.
type DeliveryAttempt struct {
	ID           string        `json:"id"`
	EndpointID   string        `json:"endpoint_id"`
	EventType    string        `json:"event_type"`
	EventID      string        `json:"event_id"`
	Payload      []byte        `json:"payload"`
	Signature    string        `json:"signature"`
	StatusCode   int           `json:"status_code"`
	ResponseBody string        `json:"response_body"`
	Duration     time.Duration `json:"duration_ns"`
	Attempt      int           `json:"attempt"`
	Status       string        `json:"status"` // "success", "failed", "pending"
	Error        string        `json:"error,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Event represents an event to be delivered to webhook endpoints.
type Event struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	ResourceType string          `json:"resource_type"`
	ResourceID   string          `json:"resource_id"`
	Payload      json.RawMessage `json:"payload"`
	Timestamp    time.Time       `json:"timestamp"`
}

// NewEvent builds an Event for the given type and resource with a marshalled
// payload. Marshal errors leave the payload empty rather than failing the
// caller; delivery is best-effort.
func NewEvent(eventType, resourceType, resourceID string, payload interface{}) Event {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = json.RawMessage(`{}`)
	}
	return Event{
		ID:           uuid.New().String(),
		Type:         eventType,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Payload:      raw,
		Timestamp:    time.Now().UTC(),
	}
}

// DeliveryResult summarises the outcome of delivering an event to one endpoint.
type DeliveryResult struct {
	EndpointID string `json:"endpoint_id"`
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code"`
	Error      string `json:"error,omitempty"`
}

// ---------------------------------------------------------------------------
// Store interface
// ---------------------------------------------------------------------------

// Store defines the persistence interface for webhook endpoints and delivery attempts.
type Store interface {
	CreateEndpoint(ctx context.Context, endpoint *Endpoint) error
	GetEndpoint(ctx context.Context, id string) (*Endpoint, error)
	ListEndpoints(ctx context.Context, limit, offset int) ([]*Endpoint, int, error)
	UpdateEndpoint(ctx context.Context, endpoint *Endpoint) error
	DeleteEndpoint(ctx context.Context, id string) error
	RecordDelivery(ctx context.Context, attempt *DeliveryAttempt) error
	ListDeliveries(ctx context.Context, endpointID string, limit, offset int) ([]*DeliveryAttempt, int, error)
	GetDelivery(ctx context.Context, id string) (*DeliveryAttempt, error)
}

// ---------------------------------------------------------------------------
// InMemoryStore
// ---------------------------------------------------------------------------

// InMemoryStore is a thread-safe, in-memory implementation of Store.
type InMemoryStore struct {
	mu         sync.RWMutex
	endpoints  map[string]*Endpoint
	deliveries map[string]*DeliveryAttempt
	// ordered keys for deterministic pagination
	endpointOrder []string
	deliveryOrder []string
}

// NewInMemoryStore creates a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		endpoints:  make(map[string]*Endpoint),
		deliveries: make(map[string]*DeliveryAttempt),
	}
}

func (s *InMemoryStore) CreateEndpoint(_ context.Context, ep *Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endpoints[ep.ID] = ep
	s.endpointOrder = append(s.endpointOrder, ep.ID)
	return nil
}

func (s *InMemoryStore) GetEndpoint(_ context.Context, id string) (*Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ep, ok := s.endpoints[id]
	if !ok {
		return nil, fmt.Errorf("endpoint %s not found", id)
	}
	return ep, nil
}

func (s *InMemoryStore) ListEndpoints(_ context.Context, limit, offset int) ([]*Endpoint, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []*Endpoint
	for _, id := range s.endpointOrder {
		ep := s.endpoints[id]
		if ep == nil {
			continue
		}
		all = append(all, ep)
	}
	total := len(all)
	if offset >= total {
		return []*Endpoint{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (s *InMemoryStore) UpdateEndpoint(_ context.Context, ep *Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.endpoints[ep.ID]; !ok {
		return fmt.Errorf("endpoint %s not found", ep.ID)
	}
	s.endpoints[ep.ID] = ep
	return nil
}

func (s *InMemoryStore) DeleteEndpoint(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.endpoints[id]; !ok {
		return fmt.Errorf("endpoint %s not found", id)
	}
	delete(s.endpoints, id)
	// Remove from ordered list
	for i, eid := range s.endpointOrder {
		if eid == id {
			s.endpointOrder = append(s.endpointOrder[:i], s.endpointOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (s *InMemoryStore) RecordDelivery(_ context.Context, attempt *DeliveryAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries[attempt.ID] = attempt
	s.deliveryOrder = append(s.deliveryOrder, attempt.ID)
	return nil
}

func (s *InMemoryStore) ListDeliveries(_ context.Context, endpointID string, limit, offset int) ([]*DeliveryAttempt, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var filtered []*DeliveryAttempt
	for _, id := range s.deliveryOrder {
		d := s.deliveries[id]
		if d == nil {
			continue
		}
		if d.EndpointID == endpointID {
			filtered = append(filtered, d)
		}
	}
	total := len(filtered)
	if offset >= total {
		return []*DeliveryAttempt{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return filtered[offset:end], total, nil
}

func (s *InMemoryStore) GetDelivery(_ context.Context, id string) (*DeliveryAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deliveries[id]
	if !ok {
		return nil, fmt.Errorf("delivery %s not found", id)
	}
	return d, nil
}

// ---------------------------------------------------------------------------
// Signature helpers
// ---------------------------------------------------------------------------

// SignPayload computes an HMAC-SHA256 signature of the payload using the given secret,
// returning the hex-encoded result.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature returns true when the hex-encoded signature matches the HMAC-SHA256
// of payload under the given secret.
func VerifySignature(payload []byte, secret, signature string) bool {
	expected := SignPayload(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ---------------------------------------------------------------------------
// Manager
// ---------------------------------------------------------------------------

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithHTTPClient overrides the default HTTP client used for deliveries.
func WithHTTPClient(c *http.Client) ManagerOption {
	return func(m *Manager) { m.httpClient = c }
}

// WithMaxRetries sets the maximum number of retry attempts.
func WithMaxRetries(n int) ManagerOption {
	return func(m *Manager) { m.maxRetries = n }
}

// WithLogger sets the logger used for async delivery outcomes.
func WithLogger(l zerolog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// Manager orchestrates endpoint registration, event delivery, and retries.
type Manager struct {
	store       Store
	httpClient  *http.Client
	maxRetries  int
	retryDelays []time.Duration
	logger      zerolog.Logger
}

// NewManager creates a Manager with sensible defaults.
func NewManager(store Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store: store,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		maxRetries:  3,
		retryDelays: []time.Duration{1 * time.Second, 30 * time.Second, 5 * time.Minute},
		logger:      zerolog.Nop(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// generateSecret produces a cryptographically random 32-byte hex string.
func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// validateWebhookURL checks that the URL is non-empty and uses http or https.
func validateWebhookURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	return nil
}

// RegisterEndpoint validates and persists a new webhook endpoint. If secret is
// empty, a cryptographically random one is generated.
func (m *Manager) RegisterEndpoint(ctx context.Context, rawURL, secret, description string, events []string) (*Endpoint, error) {
	if err := validateWebhookURL(rawURL); err != nil {
		return nil, err
	}
	if secret == "" {
		s, err := generateSecret()
		if err != nil {
			return nil, fmt.Errorf("failed to generate secret: %w", err)
		}
		secret = s
	}

	ep := &Endpoint{
		ID:          uuid.New().String(),
		URL:         rawURL,
		Secret:      secret,
		Events:      events,
		Description: description,
		Status:      "active",
		CreatedAt:   time.Now(),
	}
	if err := m.store.CreateEndpoint(ctx, ep); err != nil {
		return nil, err
	}
	return ep, nil
}

// PauseEndpoint sets the endpoint status to "paused".
func (m *Manager) PauseEndpoint(ctx context.Context, id string) error {
	ep, err := m.store.GetEndpoint(ctx, id)
	if err != nil {
		return err
	}
	ep.Status = "paused"
	return m.store.UpdateEndpoint(ctx, ep)
}

// ResumeEndpoint sets the endpoint status to "active".
func (m *Manager) ResumeEndpoint(ctx context.Context, id string) error {
	ep, err := m.store.GetEndpoint(ctx, id)
	if err != nil {
		return err
	}
	ep.Status = "active"
	return m.store.UpdateEndpoint(ctx, ep)
}

// eventMatches returns true if the event type matches a subscription pattern.
// Patterns can be exact ("result.matched") or wildcard ("result.*", "*.matched").
func eventMatches(pattern, eventType string) bool {
	if pattern == eventType || pattern == "*" {
		return true
	}
	// Wildcard matching: *.action
	if strings.HasPrefix(pattern, "*.") {
		suffix := pattern[1:] // ".action"
		return strings.HasSuffix(eventType, suffix)
	}
	// Wildcard matching: resource.*
	if strings.HasSuffix(pattern, ".*") {
		prefix := pattern[:len(pattern)-1] // "resource."
		return strings.HasPrefix(eventType, prefix)
	}
	return false
}

// endpointMatchesEvent returns true if the endpoint subscribes to the event type.
func endpointMatchesEvent(ep *Endpoint, eventType string) bool {
	for _, pat := range ep.Events {
		if eventMatches(pat, eventType) {
			return true
		}
	}
	return false
}

// Deliver sends the event to all matching, active endpoints.
func (m *Manager) Deliver(ctx context.Context, event Event) []DeliveryResult {
	endpoints, _, err := m.store.ListEndpoints(ctx, 1000, 0)
	if err != nil {
		return nil
	}

	var results []DeliveryResult
	for _, ep := range endpoints {
		if ep.Status != "active" {
			continue
		}
		if !endpointMatchesEvent(ep, event.Type) {
			continue
		}
		attempt := m.DeliverToEndpoint(ctx, ep, event)
		results = append(results, DeliveryResult{
			EndpointID: ep.ID,
			Success:    attempt.Status == "success",
			StatusCode: attempt.StatusCode,
			Error:      attempt.Error,
		})
	}
	return results
}

// Publish delivers the event asynchronously so the caller's request path is
// never blocked on subscriber latency. Outcomes are logged, not returned.
func (m *Manager) Publish(event Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		results := m.Deliver(ctx, event)
		for _, r := range results {
			if !r.Success {
				m.logger.Warn().
					Str("event_type", event.Type).
					Str("event_id", event.ID).
					Str("endpoint_id", r.EndpointID).
					Int("status_code", r.StatusCode).
					Str("error", r.Error).
					Msg("webhook delivery failed")
			}
		}
	}()
}

// DeliverToEndpoint signs the payload and POSTs it to the endpoint, recording the result.
func (m *Manager) DeliverToEndpoint(ctx context.Context, ep *Endpoint, event Event) *DeliveryAttempt {
	payload, _ := json.Marshal(event)
	sig := SignPayload(payload, ep.Secret)
	now := time.Now()

	attempt := &DeliveryAttempt{
		ID:         uuid.New().String(),
		EndpointID: ep.ID,
		EventType:  event.Type,
		EventID:    event.ID,
		Payload:    payload,
		Signature:  sig,
		Attempt:    1,
		Status:     "pending",
		CreatedAt:  now,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(payload))
	if err != nil {
		attempt.Status = "failed"
		attempt.Error = err.Error()
		m.store.RecordDelivery(ctx, attempt)
		return attempt
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", "sha256="+sig)
	req.Header.Set("X-Webhook-ID", ep.ID)
	req.Header.Set("X-Webhook-Timestamp", now.UTC().Format(time.RFC3339))

	start := time.Now()
	resp, err := m.httpClient.Do(req)
	attempt.Duration = time.Since(start)

	if err != nil {
		attempt.Status = "failed"
		attempt.Error = err.Error()
		attempt.StatusCode = 0
		m.store.RecordDelivery(ctx, attempt)
		return attempt
	}
	defer resp.Body.Close()

	attempt.StatusCode = resp.StatusCode

	// Read at most 1KB of response body.
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	attempt.ResponseBody = string(bodyBytes)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		attempt.Status = "success"
	} else {
		attempt.Status = "failed"
		attempt.Error = fmt.Sprintf("non-2xx response: %d", resp.StatusCode)
	}

	m.store.RecordDelivery(ctx, attempt)
	return attempt
}

// RetryDelivery re-delivers a previously failed attempt, incrementing the attempt counter.
func (m *Manager) RetryDelivery(ctx context.Context, deliveryID string) (*DeliveryAttempt, error) {
	original, err := m.store.GetDelivery(ctx, deliveryID)
	if err != nil {
		return nil, fmt.Errorf("delivery not found: %w", err)
	}

	ep, err := m.store.GetEndpoint(ctx, original.EndpointID)
	if err != nil {
		return nil, fmt.Errorf("endpoint not found: %w", err)
	}

	// Reconstruct the event from the original delivery payload.
	var event Event
	if err := json.Unmarshal(original.Payload, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal original payload: %w", err)
	}

	attempt := m.DeliverToEndpoint(ctx, ep, event)
	attempt.Attempt = original.Attempt + 1

	// Update stored delivery with correct attempt number.
	m.store.RecordDelivery(ctx, attempt)

	return attempt, nil
}

// TestEndpoint sends a synthetic test event to verify endpoint connectivity.
func (m *Manager) TestEndpoint(ctx context.Context, endpointID string) (*DeliveryAttempt, error) {
	ep, err := m.store.GetEndpoint(ctx, endpointID)
	if err != nil {
		return nil, fmt.Errorf("endpoint not found: %w", err)
	}

	testEvent := Event{
		ID:           uuid.New().String(),
		Type:         "webhook.test",
		ResourceType: "webhook",
		ResourceID:   ep.ID,
		Payload:      json.RawMessage(`{"test":true}`),
		Timestamp:    time.Now(),
	}

	attempt := m.DeliverToEndpoint(ctx, ep, testEvent)
	return attempt, nil
}

// GetDeliveryLogs returns paginated delivery attempts for a webhook endpoint.
func (m *Manager) GetDeliveryLogs(ctx context.Context, endpointID string, limit, offset int) ([]*DeliveryAttempt, int, error) {
	return m.store.ListDeliveries(ctx, endpointID, limit, offset)
}

// ---------------------------------------------------------------------------
// Handler — Echo HTTP handler
// ---------------------------------------------------------------------------

// Handler exposes webhook management via Echo HTTP routes.
type Handler struct {
	manager *Manager
}

// NewHandler creates a new Handler.
func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

// RegisterRoutes binds all webhook management routes to the given Echo group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.RegisterEndpoint)
	g.GET("", h.ListEndpoints)
	g.GET("/:id", h.GetEndpoint)
	g.PUT("/:id", h.UpdateEndpoint)
	g.DELETE("/:id", h.DeleteEndpoint)
	g.POST("/:id/test", h.TestEndpointHandler)
	g.GET("/:id/deliveries", h.GetDeliveryLogs)
	g.POST("/:id/pause", h.PauseEndpointHandler)
	g.POST("/:id/resume", h.ResumeEndpointHandler)
	g.POST("/deliveries/:id/retry", h.RetryDeliveryHandler)
}

// registerRequest is the JSON body for endpoint registration.
type registerRequest struct {
	URL         string   `json:"url"`
	Secret      string   `json:"secret"`
	Description string   `json:"description"`
	Events      []string `json:"events"`
}

// RegisterEndpoint handles POST /webhooks.
func (h *Handler) RegisterEndpoint(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ep, err := h.manager.RegisterEndpoint(c.Request().Context(), req.URL, req.Secret, req.Description, req.Events)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, ep)
}

// ListEndpoints handles GET /webhooks.
func (h *Handler) ListEndpoints(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}

	eps, total, err := h.manager.store.ListEndpoints(c.Request().Context(), limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":     eps,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
		"has_more": offset+limit < total,
	})
}

// GetEndpoint handles GET /webhooks/:id.
func (h *Handler) GetEndpoint(c echo.Context) error {
	id := c.Param("id")
	ep, err := h.manager.store.GetEndpoint(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "endpoint not found")
	}
	return c.JSON(http.StatusOK, ep)
}

// updateRequest is the JSON body for endpoint updates.
type updateRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Status string   `json:"status"`
}

// UpdateEndpoint handles PUT /webhooks/:id.
func (h *Handler) UpdateEndpoint(c echo.Context) error {
	id := c.Param("id")
	ep, err := h.manager.store.GetEndpoint(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "endpoint not found")
	}
	var req updateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.URL != "" {
		if err := validateWebhookURL(req.URL); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		ep.URL = req.URL
	}
	if len(req.Events) > 0 {
		ep.Events = req.Events
	}
	if req.Status != "" {
		ep.Status = req.Status
	}
	if err := h.manager.store.UpdateEndpoint(c.Request().Context(), ep); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, ep)
}

// DeleteEndpoint handles DELETE /webhooks/:id.
func (h *Handler) DeleteEndpoint(c echo.Context) error {
	id := c.Param("id")
	if err := h.manager.store.DeleteEndpoint(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "endpoint not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// TestEndpointHandler handles POST /webhooks/:id/test.
func (h *Handler) TestEndpointHandler(c echo.Context) error {
	id := c.Param("id")
	attempt, err := h.manager.TestEndpoint(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, attempt)
}

// GetDeliveryLogs handles GET /webhooks/:id/deliveries.
func (h *Handler) GetDeliveryLogs(c echo.Context) error {
	endpointID := c.Param("id")
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}

	logs, total, err := h.manager.GetDeliveryLogs(c.Request().Context(), endpointID, limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":     logs,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
		"has_more": offset+limit < total,
	})
}

// RetryDeliveryHandler handles POST /webhooks/deliveries/:id/retry.
func (h *Handler) RetryDeliveryHandler(c echo.Context) error {
	id := c.Param("id")
	attempt, err := h.manager.RetryDelivery(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, attempt)
}

// PauseEndpointHandler handles POST /webhooks/:id/pause.
func (h *Handler) PauseEndpointHandler(c echo.Context) error {
	id := c.Param("id")
	if err := h.manager.PauseEndpoint(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "paused"})
}

// ResumeEndpointHandler handles POST /webhooks/:id/resume.
func (h *Handler) ResumeEndpointHandler(c echo.Context) error {
	id := c.Param("id")
	if err := h.manager.ResumeEndpoint(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "active"})
}
