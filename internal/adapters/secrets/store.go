package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kevin07696/booking-payment-service/internal/adapters/garanti"
)

// ErrSecretNotFound is returned when a backend has nothing stored at the path
var ErrSecretNotFound = errors.New("secret not found")

// Store reads a structured secret (a flat string map) from a backend
type Store interface {
	GetSecret(ctx context.Context, path string) (map[string]string, error)
}

// Terminal secret field names
const (
	FieldProvisionPassword = "provision_password"
	FieldUserPassword      = "user_password"
	FieldStoreKey          = "store_key"
)

// LoadTerminalCredentials reads the gateway terminal secrets stored at path
func LoadTerminalCredentials(ctx context.Context, store Store, path string) (garanti.Credentials, error) {
	fields, err := store.GetSecret(ctx, path)
	if err != nil {
		return garanti.Credentials{}, fmt.Errorf("load terminal credentials: %w", err)
	}

	creds := garanti.Credentials{
		ProvisionPassword: fields[FieldProvisionPassword],
		UserPassword:      fields[FieldUserPassword],
		StoreKey:          fields[FieldStoreKey],
	}
	if creds.UserPassword == "" {
		// Most terminals share one password for provisioning and direct calls.
		creds.UserPassword = creds.ProvisionPassword
	}

	var missing []string
	if creds.ProvisionPassword == "" {
		missing = append(missing, FieldProvisionPassword)
	}
	if creds.StoreKey == "" {
		missing = append(missing, FieldStoreKey)
	}
	if len(missing) > 0 {
		return garanti.Credentials{}, fmt.Errorf("terminal secret %s is missing %s", path, strings.Join(missing, ", "))
	}
	return creds, nil
}

// parseFields decodes a JSON object of string values
func parseFields(raw []byte) (map[string]string, error) {
	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("secret payload is not a JSON object: %w", err)
	}
	return stringFields(generic), nil
}

func stringFields(in map[string]interface{}) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch val := v.(type) {
		case string:
			out[k] = val
		case json.Number:
			out[k] = val.String()
		case float64:
			out[k] = fmt.Sprintf("%.0f", val)
		}
	}
	return out
}

type cacheEntry struct {
	fields    map[string]string
	expiresAt time.Time
}

// CachedStore wraps a Store with a per-instance TTL cache
type CachedStore struct {
	next Store
	ttl  time.Duration
	now  func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewCachedStore caches next's results for ttl. A non-positive ttl disables caching.
func NewCachedStore(next Store, ttl time.Duration) *CachedStore {
	return &CachedStore{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// GetSecret serves from cache while fresh
func (c *CachedStore) GetSecret(ctx context.Context, path string) (map[string]string, error) {
	if c.ttl > 0 {
		c.mu.RLock()
		entry, ok := c.entries[path]
		c.mu.RUnlock()
		if ok && c.now().Before(entry.expiresAt) {
			return entry.fields, nil
		}
	}

	fields, err := c.next.GetSecret(ctx, path)
	if err != nil {
		return nil, err
	}

	if c.ttl > 0 {
		c.mu.Lock()
		c.entries[path] = cacheEntry{fields: fields, expiresAt: c.now().Add(c.ttl)}
		c.mu.Unlock()
	}
	return fields, nil
}

// Invalidate drops a cached path so the next read hits the backend
func (c *CachedStore) Invalidate(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}
