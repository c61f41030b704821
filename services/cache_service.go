package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hyunwoolee/subsidy-backend/models"
)

// CacheEntry represents a cached item with expiration
type CacheEntry struct {
	Data      interface{}
	ExpiresAt time.Time
}

// IsExpired checks if the cache entry has expired
func (ce *CacheEntry) IsExpired() bool {
	return time.Now().After(ce.ExpiresAt)
}

// CacheService is an in-memory TTL cache for read-path responses. It
// supports thread-safe get/set, FIFO-ish eviction at max size, and a
// background cleanup goroutine.
type CacheService struct {
	cache      map[string]*CacheEntry
	mutex      sync.RWMutex
	defaultTTL time.Duration
	maxSize    int
}

// NewCacheService creates a cache with default TTL and size.
func NewCacheService() *CacheService {
	return NewCacheServiceWithConfig(15*time.Minute, 1000)
}

// NewCacheServiceWithConfig creates a cache service with custom configuration
func NewCacheServiceWithConfig(defaultTTL time.Duration, maxSize int) *CacheService {
	cs := &CacheService{
		cache:      make(map[string]*CacheEntry),
		defaultTTL: defaultTTL,
		maxSize:    maxSize,
	}

	go cs.cleanupExpired()

	return cs
}

// Get retrieves a value from cache
func (cs *CacheService) Get(key string) (interface{}, bool) {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	entry, exists := cs.cache[key]
	if !exists || entry.IsExpired() {
		return nil, false
	}

	return entry.Data, true
}

// Set stores a value in cache with default TTL
func (cs *CacheService) Set(key string, value interface{}) {
	cs.SetWithTTL(key, value, cs.defaultTTL)
}

// SetWithTTL stores a value in cache with custom TTL
func (cs *CacheService) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	if len(cs.cache) >= cs.maxSize {
		cs.evictOldest()
	}

	cs.cache[key] = &CacheEntry{
		Data:      value,
		ExpiresAt: time.Now().Add(ttl),
	}
}

// evictOldest removes the entry closest to expiry
func (cs *CacheService) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range cs.cache {
		if oldestKey == "" || entry.ExpiresAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.ExpiresAt
		}
	}

	if oldestKey != "" {
		delete(cs.cache, oldestKey)
	}
}

// Delete removes a value from cache
func (cs *CacheService) Delete(key string) {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	delete(cs.cache, key)
}

// DeletePrefix removes every entry whose key starts with the prefix.
func (cs *CacheService) DeletePrefix(prefix string) {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	for key := range cs.cache {
		if strings.HasPrefix(key, prefix) {
			delete(cs.cache, key)
		}
	}
}

// Clear removes all values from cache
func (cs *CacheService) Clear() {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	cs.cache = make(map[string]*CacheEntry)
}

// Size returns the number of items in cache
func (cs *CacheService) Size() int {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	return len(cs.cache)
}

// cleanupExpired removes expired entries from cache
func (cs *CacheService) cleanupExpired() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cs.mutex.Lock()
		for key, entry := range cs.cache {
			if entry.IsExpired() {
				delete(cs.cache, key)
			}
		}
		cs.mutex.Unlock()
	}
}

// SearchResult is a cached page of listing results.
type SearchResult struct {
	Subsidies  []models.Subsidy
	TotalCount int
}

// CachedSubsidyService wraps SubsidyService with listing and detail
// caching. Reconciliation runs call InvalidateSubsidies so readers see
// fresh data right after a sync.
type CachedSubsidyService struct {
	subsidyService *SubsidyService
	cache          *CacheService
}

// NewCachedSubsidyService creates a new cached subsidy service
func NewCachedSubsidyService(subsidyService *SubsidyService, cache *CacheService) *CachedSubsidyService {
	return &CachedSubsidyService{
		subsidyService: subsidyService,
		cache:          cache,
	}
}

func searchCacheKey(filters SearchFilters) string {
	return fmt.Sprintf("subsidies:list:%s:%s:%s:%s:%s:%s:%d:%d",
		filters.Search, filters.Category, filters.Region, filters.BirthYear,
		filters.Gender, filters.Status, filters.Page, filters.Limit)
}

// Search returns a filtered listing page, using cache when possible.
func (c *CachedSubsidyService) Search(ctx context.Context, filters SearchFilters) ([]models.Subsidy, int, error) {
	cacheKey := searchCacheKey(filters)

	if cached, found := c.cache.Get(cacheKey); found {
		if result, ok := cached.(*SearchResult); ok {
			return result.Subsidies, result.TotalCount, nil
		}
	}

	subsidies, totalCount, err := c.subsidyService.Search(ctx, filters)
	if err != nil {
		return nil, 0, err
	}

	// Listing pages change only on sync, so a short TTL is enough.
	c.cache.SetWithTTL(cacheKey, &SearchResult{Subsidies: subsidies, TotalCount: totalCount}, 5*time.Minute)

	return subsidies, totalCount, nil
}

// GetByID returns a single subsidy, using cache when possible.
func (c *CachedSubsidyService) GetByID(ctx context.Context, id string) (*models.Subsidy, error) {
	cacheKey := fmt.Sprintf("subsidies:detail:%s", id)

	if cached, found := c.cache.Get(cacheKey); found {
		if subsidy, ok := cached.(*models.Subsidy); ok {
			return subsidy, nil
		}
	}

	subsidy, err := c.subsidyService.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if subsidy != nil {
		c.cache.SetWithTTL(cacheKey, subsidy, 10*time.Minute)
	}

	return subsidy, nil
}

// InvalidateSubsidies drops every cached listing and detail entry.
// Called after a reconciliation run mutates the catalog.
func (c *CachedSubsidyService) InvalidateSubsidies() {
	c.cache.DeletePrefix("subsidies:")
}

// GetCacheStats returns cache statistics
func (c *CachedSubsidyService) GetCacheStats() map[string]interface{} {
	return map[string]interface{}{
		"size": c.cache.Size(),
		"type": "in-memory",
	}
}
