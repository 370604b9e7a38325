package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/rlibbert/noc-analyst/internal/cache"
	"github.com/rlibbert/noc-analyst/internal/models"
	"github.com/rlibbert/noc-analyst/internal/utils"
)

// ServiceDeskClient talks to the service desk's HTTP collaborator APIs:
// configuration catalog lookups, the change log, knowledge base search and
// incident history search. Catalog and knowledge base responses are cached
// when a cache provider is supplied; change and history lookups always hit
// the desk because they are time-sensitive.
type ServiceDeskClient struct {
	baseURL      string
	catalogPath  string
	changesPath  string
	kbPath       string
	historyPath  string
	httpClient   *http.Client
	cache        cache.Provider
	catalogTTL   time.Duration
	knowledgeTTL time.Duration
}

// NewServiceDeskClient constructs a client for the configured service desk.
// A nil cacheProvider disables caching.
func NewServiceDeskClient(baseURL, catalogPath, changesPath, kbPath, historyPath string, timeout time.Duration, cacheProvider cache.Provider, catalogTTL, knowledgeTTL time.Duration) *ServiceDeskClient {
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	return &ServiceDeskClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		catalogPath: catalogPath,
		changesPath: changesPath,
		kbPath:      kbPath,
		historyPath: historyPath,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		cache:        cacheProvider,
		catalogTTL:   catalogTTL,
		knowledgeTTL: knowledgeTTL,
	}
}

// Resolve looks up a system by name in the configuration catalog. An unknown
// name returns (nil, nil) rather than an error.
func (c *ServiceDeskClient) Resolve(ctx context.Context, name string) (*models.SystemDetails, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("service desk base URL not configured")
	}

	cacheKey := ""
	if c.catalogTTL > 0 {
		cacheKey = "noc:catalog:" + strings.ToLower(name)
		if data, err := c.cache.Get(ctx, cacheKey); err == nil {
			var cached models.SystemDetails
			if err := json.Unmarshal(data, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	var response struct {
		System *models.SystemDetails `json:"system"`
	}
	if err := c.postJSON(ctx, c.resolvePath(c.catalogPath), map[string]any{"name": name}, &response); err != nil {
		return nil, utils.NewAppError("servicedesk.resolve", "catalog request failed", err)
	}
	if response.System == nil {
		return nil, nil
	}

	if cacheKey != "" {
		if payload, err := json.Marshal(response.System); err == nil {
			_ = c.cache.Set(ctx, cacheKey, payload, c.catalogTTL)
		}
	}
	return response.System, nil
}

// RecentChanges returns change-log entries that completed within the last
// sinceHours hours.
func (c *ServiceDeskClient) RecentChanges(ctx context.Context, sinceHours int) ([]models.Change, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("service desk base URL not configured")
	}

	var response struct {
		Changes []models.Change `json:"changes"`
	}
	payload := map[string]any{"since_hours": sinceHours}
	if err := c.postJSON(ctx, c.resolvePath(c.changesPath), payload, &response); err != nil {
		return nil, utils.NewAppError("servicedesk.changes", "change log request failed", err)
	}
	return response.Changes, nil
}

// SearchKnowledgeBase returns articles whose symptoms relate to the given
// extracted symptoms.
func (c *ServiceDeskClient) SearchKnowledgeBase(ctx context.Context, symptoms []string) ([]models.Article, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("service desk base URL not configured")
	}

	cacheKey := ""
	if c.knowledgeTTL > 0 {
		cacheKey = knowledgeCacheKey(symptoms)
		if data, err := c.cache.Get(ctx, cacheKey); err == nil {
			var cached []models.Article
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var response struct {
		Articles []models.Article `json:"articles"`
	}
	payload := map[string]any{"symptoms": symptoms}
	if err := c.postJSON(ctx, c.resolvePath(c.kbPath), payload, &response); err != nil {
		return nil, utils.NewAppError("servicedesk.knowledge", "knowledge base request failed", err)
	}

	if cacheKey != "" && len(response.Articles) > 0 {
		if payload, err := json.Marshal(response.Articles); err == nil {
			_ = c.cache.Set(ctx, cacheKey, payload, c.knowledgeTTL)
		}
	}
	return response.Articles, nil
}

// SearchHistory returns resolved past incidents similar to the given
// symptoms.
func (c *ServiceDeskClient) SearchHistory(ctx context.Context, symptoms []string) ([]models.HistoricalIncident, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("service desk base URL not configured")
	}

	var response struct {
		Incidents []models.HistoricalIncident `json:"incidents"`
	}
	payload := map[string]any{"symptoms": symptoms}
	if err := c.postJSON(ctx, c.resolvePath(c.historyPath), payload, &response); err != nil {
		return nil, utils.NewAppError("servicedesk.history", "incident history request failed", err)
	}
	return response.Incidents, nil
}

func knowledgeCacheKey(symptoms []string) string {
	sorted := make([]string, len(symptoms))
	copy(sorted, symptoms)
	sort.Strings(sorted)
	return "noc:kb:" + strings.ToLower(strings.Join(sorted, "|"))
}

func (c *ServiceDeskClient) resolvePath(p string) string {
	if c.baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

func (c *ServiceDeskClient) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	if endpoint == "" {
		return fmt.Errorf("empty endpoint")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service desk returned %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
