package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var (
	// ErrKeyNotFound indicates the requested API key does not exist in the store.
	ErrKeyNotFound = errors.New("api key not found")

	// ErrKeyRevoked indicates the API key has been revoked and can no longer be used.
	ErrKeyRevoked = errors.New("api key revoked")

	// ErrKeyExpired indicates the API key has passed its expiration time.
	ErrKeyExpired = errors.New("api key expired")

	// ErrInvalidKey indicates the provided raw key does not match any stored hash.
	ErrInvalidKey = errors.New("invalid api key")
)

// APIKey represents a credential issued to an external system (a lab or
// radiology information system) for pushing results into the ingestion
// endpoint. The raw key material is never stored; only a SHA-256 hash is
// persisted.
type APIKey struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	KeyHash    string     `json:"-"` // never serialize
	KeyPrefix  string     `json:"key_prefix"`
	System     string     `json:"system"` // external system identifier, e.g. "quest-lab"
	Status     string     `json:"status"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// APIKeyStore defines the contract for persisting and querying API keys.
type APIKeyStore interface {
	CreateKey(ctx context.Context, key *APIKey) error
	GetByID(ctx context.Context, id string) (*APIKey, error)
	GetByHash(ctx context.Context, hash string) (*APIKey, error)
	ListKeys(ctx context.Context, limit, offset int) ([]*APIKey, int, error)
	UpdateKey(ctx context.Context, key *APIKey) error
	DeleteKey(ctx context.Context, id string) error
}

// InMemoryAPIKeyStore provides a thread-safe in-memory implementation of
// APIKeyStore. It is suitable for development, testing, and single-node
// deployments.
type InMemoryAPIKeyStore struct {
	mu      sync.RWMutex
	byID    map[string]*APIKey
	byHash  map[string]string // hash -> ID
	ordered []string          // insertion-order IDs for stable pagination
}

// NewInMemoryAPIKeyStore creates a new empty in-memory store.
func NewInMemoryAPIKeyStore() *InMemoryAPIKeyStore {
	return &InMemoryAPIKeyStore{
		byID:   make(map[string]*APIKey),
		byHash: make(map[string]string),
	}
}

func (s *InMemoryAPIKeyStore) CreateKey(_ context.Context, key *APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := copyKey(key)
	s.byID[cp.ID] = cp
	if cp.KeyHash != "" {
		s.byHash[cp.KeyHash] = cp.ID
	}
	s.ordered = append(s.ordered, cp.ID)
	return nil
}

func (s *InMemoryAPIKeyStore) GetByID(_ context.Context, id string) (*APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	k, ok := s.byID[id]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return copyKey(k), nil
}

func (s *InMemoryAPIKeyStore) GetByHash(_ context.Context, hash string) (*APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byHash[hash]
	if !ok {
		return nil, ErrKeyNotFound
	}
	k, ok := s.byID[id]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return copyKey(k), nil
}

func (s *InMemoryAPIKeyStore) ListKeys(_ context.Context, limit, offset int) ([]*APIKey, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []*APIKey
	for _, id := range s.ordered {
		if k, ok := s.byID[id]; ok {
			all = append(all, k)
		}
	}

	total := len(all)
	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}

	result := make([]*APIKey, len(all))
	for i, k := range all {
		result[i] = copyKey(k)
	}
	return result, total, nil
}

func (s *InMemoryAPIKeyStore) UpdateKey(_ context.Context, key *APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[key.ID]
	if !ok {
		return ErrKeyNotFound
	}

	if existing.KeyHash != key.KeyHash {
		delete(s.byHash, existing.KeyHash)
		if key.KeyHash != "" {
			s.byHash[key.KeyHash] = key.ID
		}
	}

	s.byID[key.ID] = copyKey(key)
	return nil
}

func (s *InMemoryAPIKeyStore) DeleteKey(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[id]
	if !ok {
		return ErrKeyNotFound
	}

	delete(s.byHash, existing.KeyHash)
	delete(s.byID, id)

	for i, oid := range s.ordered {
		if oid == id {
			s.ordered = append(s.ordered[:i], s.ordered[i+1:]...)
			break
		}
	}
	return nil
}

// copyKey returns a deep copy of an APIKey to prevent mutation through shared pointers.
func copyKey(k *APIKey) *APIKey {
	cp := *k
	if k.ExpiresAt != nil {
		t := *k.ExpiresAt
		cp.ExpiresAt = &t
	}
	if k.RevokedAt != nil {
		t := *k.RevokedAt
		cp.RevokedAt = &t
	}
	if k.LastUsedAt != nil {
		t := *k.LastUsedAt
		cp.LastUsedAt = &t
	}
	return &cp
}

const (
	// apiKeyPrefix is prepended to every generated key for easy identification
	// in logs and configuration files.
	apiKeyPrefix = "edt_k1_"

	// apiKeyRandomBytes is the number of random bytes used to generate the
	// key material (encoded as hex => 32 hex chars).
	apiKeyRandomBytes = 16
)

// APIKeyManager orchestrates API key lifecycle operations: generation,
// validation, revocation, and rotation.
type APIKeyManager struct {
	store APIKeyStore
}

// NewAPIKeyManager creates a new manager backed by the given store.
func NewAPIKeyManager(store APIKeyStore) *APIKeyManager {
	return &APIKeyManager{store: store}
}

// GenerateKey creates a new API key for the named external system and persists
// it. It returns the APIKey struct and the raw key string. The raw key is only
// available at creation time and must be shown to the caller exactly once.
func (m *APIKeyManager) GenerateKey(ctx context.Context, name, system string, expiresAt *time.Time) (*APIKey, string, error) {
	rawKey, err := generateRawKey()
	if err != nil {
		return nil, "", fmt.Errorf("generating raw key: %w", err)
	}

	key := &APIKey{
		ID:        uuid.New().String(),
		Name:      name,
		KeyHash:   hashKey(rawKey),
		KeyPrefix: rawKey[:len(apiKeyPrefix)+4],
		System:    system,
		Status:    "active",
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}

	if err := m.store.CreateKey(ctx, key); err != nil {
		return nil, "", fmt.Errorf("storing key: %w", err)
	}

	returned, err := m.store.GetByID(ctx, key.ID)
	if err != nil {
		return nil, "", fmt.Errorf("retrieving created key: %w", err)
	}
	return returned, rawKey, nil
}

// SeedStaticKey registers a key whose raw material comes from configuration
// rather than random generation, so deployments can pin the ingestion
// credential via environment. Seeding an empty key is a no-op.
func (m *APIKeyManager) SeedStaticKey(ctx context.Context, name, system, rawKey string) error {
	if rawKey == "" {
		return nil
	}

	hash := hashKey(rawKey)
	if _, err := m.store.GetByHash(ctx, hash); err == nil {
		return nil // already seeded
	}

	prefixLen := 8
	if len(rawKey) < prefixLen {
		prefixLen = len(rawKey)
	}

	key := &APIKey{
		ID:        uuid.New().String(),
		Name:      name,
		KeyHash:   hash,
		KeyPrefix: rawKey[:prefixLen],
		System:    system,
		Status:    "active",
		CreatedAt: time.Now(),
	}
	return m.store.CreateKey(ctx, key)
}

// ValidateKey hashes the provided raw key, looks it up in the store, and
// verifies the key is active and not expired. On success it updates
// LastUsedAt and returns the APIKey.
func (m *APIKeyManager) ValidateKey(ctx context.Context, rawKey string) (*APIKey, error) {
	hash := hashKey(rawKey)

	key, err := m.store.GetByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, ErrInvalidKey
		}
		return nil, fmt.Errorf("looking up key: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(key.KeyHash), []byte(hash)) != 1 {
		return nil, ErrInvalidKey
	}

	if key.Status == "revoked" {
		return nil, ErrKeyRevoked
	}

	if key.ExpiresAt != nil && time.Now().After(*key.ExpiresAt) {
		return nil, ErrKeyExpired
	}

	now := time.Now()
	key.LastUsedAt = &now
	if err := m.store.UpdateKey(ctx, key); err != nil {
		// Non-fatal: the request proceeds even if the usage timestamp is lost.
		_ = err
	}

	return key, nil
}

// RevokeKey sets the key's status to "revoked" and records the revocation
// timestamp. The operation is idempotent: revoking an already-revoked key
// succeeds silently.
func (m *APIKeyManager) RevokeKey(ctx context.Context, id string) error {
	key, err := m.store.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if key.Status == "revoked" {
		return nil
	}

	now := time.Now()
	key.Status = "revoked"
	key.RevokedAt = &now
	return m.store.UpdateKey(ctx, key)
}

// RotateKey revokes the existing key and creates a new one with the same name,
// system, and expiry. Returns the new APIKey and the raw key string.
func (m *APIKeyManager) RotateKey(ctx context.Context, id string) (*APIKey, string, error) {
	old, err := m.store.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}

	if err := m.RevokeKey(ctx, id); err != nil {
		return nil, "", fmt.Errorf("revoking old key: %w", err)
	}

	return m.GenerateKey(ctx, old.Name, old.System, old.ExpiresAt)
}

// ListKeys returns API keys with pagination.
func (m *APIKeyManager) ListKeys(ctx context.Context, limit, offset int) ([]*APIKey, int, error) {
	return m.store.ListKeys(ctx, limit, offset)
}

// generateRawKey produces a cryptographically random key string with the
// platform prefix: edt_k1_<32-hex-chars>.
func generateRawKey() (string, error) {
	b := make([]byte, apiKeyRandomBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return apiKeyPrefix + hex.EncodeToString(b), nil
}

// hashKey returns the hex-encoded SHA-256 hash of the raw key string.
func hashKey(rawKey string) string {
	h := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(h[:])
}

// RequireAPIKey returns an Echo middleware that authenticates requests using
// API keys. It checks the X-API-Key header first, then falls back to
// Authorization: Bearer. Requests without a valid key are rejected; this
// middleware guards the external result ingestion surface, which never
// accepts interactive JWT credentials.
func RequireAPIKey(manager *APIKeyManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rawKey := extractAPIKey(c)
			if rawKey == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "api key required")
			}

			key, err := manager.ValidateKey(c.Request().Context(), rawKey)
			if err != nil {
				switch {
				case errors.Is(err, ErrInvalidKey):
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid api key")
				case errors.Is(err, ErrKeyRevoked):
					return echo.NewHTTPError(http.StatusUnauthorized, "api key revoked")
				case errors.Is(err, ErrKeyExpired):
					return echo.NewHTTPError(http.StatusUnauthorized, "api key expired")
				default:
					return echo.NewHTTPError(http.StatusInternalServerError, "api key validation error")
				}
			}

			c.Set("api_key_id", key.ID)
			c.Set("external_system", key.System)

			return next(c)
		}
	}
}

// extractAPIKey returns the raw API key from the request, checking X-API-Key
// header first and then the Authorization: Bearer header.
func extractAPIKey(c echo.Context) string {
	if apiKey := c.Request().Header.Get("X-API-Key"); apiKey != "" {
		return apiKey
	}

	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// APIKeyHandler provides Echo HTTP handlers for API key management endpoints.
type APIKeyHandler struct {
	manager *APIKeyManager
}

// NewAPIKeyHandler creates a new handler backed by the given manager.
func NewAPIKeyHandler(manager *APIKeyManager) *APIKeyHandler {
	return &APIKeyHandler{manager: manager}
}

// RegisterRoutes registers the API key management routes on the given Echo group.
func (h *APIKeyHandler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.CreateKey)
	g.GET("", h.ListKeys)
	g.GET("/:id", h.GetKey)
	g.DELETE("/:id", h.RevokeKey)
	g.POST("/:id/rotate", h.RotateKey)
}

type createKeyRequest struct {
	Name      string     `json:"name"`
	System    string     `json:"system"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// CreateKey handles POST /api-keys. It creates a new API key and returns the
// raw key string exactly once in the response.
func (h *APIKeyHandler) CreateKey(c echo.Context) error {
	var req createKeyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if req.System == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "system is required")
	}

	key, rawKey, err := h.manager.GenerateKey(c.Request().Context(), req.Name, req.System, req.ExpiresAt)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create api key")
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"key":     key,
		"raw_key": rawKey,
		"warning": "Store this key securely. It will not be shown again.",
	})
}

// ListKeys handles GET /api-keys.
func (h *APIKeyHandler) ListKeys(c echo.Context) error {
	limit := 50
	offset := 0
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 {
		limit = v
	}
	if v, err := strconv.Atoi(c.QueryParam("offset")); err == nil && v >= 0 {
		offset = v
	}

	keys, total, err := h.manager.ListKeys(c.Request().Context(), limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list api keys")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"keys":   keys,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// GetKey handles GET /api-keys/:id.
func (h *APIKeyHandler) GetKey(c echo.Context) error {
	key, err := h.manager.store.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "api key not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to retrieve api key")
	}
	return c.JSON(http.StatusOK, key)
}

// RevokeKey handles DELETE /api-keys/:id.
func (h *APIKeyHandler) RevokeKey(c echo.Context) error {
	if err := h.manager.RevokeKey(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "api key not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to revoke api key")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":  "revoked",
		"message": "api key has been revoked",
	})
}

// RotateKey handles POST /api-keys/:id/rotate.
func (h *APIKeyHandler) RotateKey(c echo.Context) error {
	newKey, rawKey, err := h.manager.RotateKey(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "api key not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to rotate api key")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"key":     newKey,
		"raw_key": rawKey,
		"warning": "Store this key securely. It will not be shown again.",
	})
}
