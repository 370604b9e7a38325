package repo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rlibbert/noc-analyst/internal/cache"
	"github.com/rlibbert/noc-analyst/internal/models"
)

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (m *memoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, cache.ErrCacheMiss
}

func (m *memoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.sets++
	return nil
}

func (m *memoryCache) Del(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memoryCache) Close() error { return nil }

func newTestClient(baseURL string, provider cache.Provider, catalogTTL, kbTTL time.Duration) *ServiceDeskClient {
	return NewServiceDeskClient(baseURL,
		"/api/v1/catalog/resolve", "/api/v1/changes/recent",
		"/api/v1/kb/search", "/api/v1/incidents/search",
		2*time.Second, provider, catalogTTL, kbTTL)
}

func TestResolveFoundAndCached(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/catalog/resolve" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		hits++
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Name != "web-server-01" {
			t.Errorf("unexpected name %q", req.Name)
		}
		json.NewEncoder(w).Encode(map[string]any{"system": models.SystemDetails{
			ID: "srv-web-01", Name: "web-server-01", SystemType: "server",
		}})
	}))
	defer server.Close()

	provider := newMemoryCache()
	client := newTestClient(server.URL, provider, 5*time.Minute, 0)

	for i := 0; i < 2; i++ {
		system, err := client.Resolve(context.Background(), "web-server-01")
		if err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
		if system == nil || system.ID != "srv-web-01" {
			t.Fatalf("resolve %d: unexpected system %+v", i, system)
		}
	}
	if hits != 1 {
		t.Fatalf("second resolve should come from cache, desk hit %d times", hits)
	}
	if provider.sets != 1 {
		t.Fatalf("expected one cache write, got %d", provider.sets)
	}
}

func TestResolveNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"system": nil})
	}))
	defer server.Close()

	client := newTestClient(server.URL, nil, 0, 0)
	system, err := client.Resolve(context.Background(), "ghost-host")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if system != nil {
		t.Fatalf("unknown source must resolve to nil, got %+v", system)
	}
}

func TestResolveServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL, nil, 0, 0)
	if _, err := client.Resolve(context.Background(), "web-server-01"); err == nil {
		t.Fatal("expected error on 500")
	}
}

func TestRecentChanges(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			SinceHours int `json:"since_hours"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.SinceHours != 48 {
			t.Errorf("unexpected window %d", req.SinceHours)
		}
		json.NewEncoder(w).Encode(map[string]any{"changes": []models.Change{
			{ID: "CHG0001234", Title: "Database maintenance", AffectedSystems: []string{"srv-db-01"}},
		}})
	}))
	defer server.Close()

	client := newTestClient(server.URL, nil, 0, 0)
	changes, err := client.RecentChanges(context.Background(), 48)
	if err != nil {
		t.Fatalf("recent changes: %v", err)
	}
	if len(changes) != 1 || changes[0].ID != "CHG0001234" {
		t.Fatalf("unexpected changes %+v", changes)
	}
}

func TestSearchKnowledgeBaseCachesNonEmpty(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		var req struct {
			Symptoms []string `json:"symptoms"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Symptoms) == 0 || req.Symptoms[0] == "nothing" {
			json.NewEncoder(w).Encode(map[string]any{"articles": []models.Article{}})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"articles": []models.Article{
			{ID: "KB001", Title: "Database Connection Pool Exhaustion"},
		}})
	}))
	defer server.Close()

	provider := newMemoryCache()
	client := newTestClient(server.URL, provider, 0, time.Minute)

	// Symptom order must not change the cache key.
	symptoms := []string{"High cpuUsage", "Connection timeout"}
	reversed := []string{"Connection timeout", "High cpuUsage"}
	if _, err := client.SearchKnowledgeBase(context.Background(), symptoms); err != nil {
		t.Fatalf("kb search: %v", err)
	}
	articles, err := client.SearchKnowledgeBase(context.Background(), reversed)
	if err != nil {
		t.Fatalf("kb search reversed: %v", err)
	}
	if len(articles) != 1 || articles[0].ID != "KB001" {
		t.Fatalf("unexpected articles %+v", articles)
	}
	if hits != 1 {
		t.Fatalf("reversed symptoms should hit the cache, desk hit %d times", hits)
	}

	// Empty results are never cached.
	if _, err := client.SearchKnowledgeBase(context.Background(), []string{"nothing"}); err != nil {
		t.Fatalf("kb search empty: %v", err)
	}
	if _, err := client.SearchKnowledgeBase(context.Background(), []string{"nothing"}); err != nil {
		t.Fatalf("kb search empty again: %v", err)
	}
	if hits != 3 {
		t.Fatalf("empty results must not be cached, desk hit %d times", hits)
	}
}

func TestSearchHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"incidents": []models.HistoricalIncident{
			{Number: "INC0000999", Title: "Database connection pool exhausted", Occurrences: 5},
		}})
	}))
	defer server.Close()

	client := newTestClient(server.URL, nil, 0, 0)
	incidents, err := client.SearchHistory(context.Background(), []string{"connection"})
	if err != nil {
		t.Fatalf("history search: %v", err)
	}
	if len(incidents) != 1 || incidents[0].Occurrences != 5 {
		t.Fatalf("unexpected incidents %+v", incidents)
	}
}

func TestResolvePathJoinsBase(t *testing.T) {
	client := NewServiceDeskClient("http://desk.local/base/", "/catalog", "", "", "", time.Second, nil, 0, 0)
	if got := client.resolvePath("/catalog"); got != "http://desk.local/base/catalog" {
		t.Fatalf("unexpected path %q", got)
	}
}
