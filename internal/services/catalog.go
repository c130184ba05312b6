package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/herzod/shelfview-cinema/internal/apperr"
	"github.com/herzod/shelfview-cinema/internal/models"
)

const (
	defaultCatalogURL = "https://api.themoviedb.org/3"
	defaultTimeout    = 30 * time.Second
	maxRetries        = 3
	retryDelay        = 2 * time.Second
	userAgent         = "shelfview/1.0"
	maxResponseSize   = 5 * 1024 * 1024 // 5MB

	// MinQueryLength is the shortest free-text search the catalog accepts.
	// Shorter queries must not trigger a request at all.
	MinQueryLength = 2

	searchCachePrefix   = "catalog:search:"
	trendingCachePrefix = "catalog:trending:"
	detailsCachePrefix  = "catalog:details:"
	similarCachePrefix  = "catalog:similar:"
	discoverCachePrefix = "catalog:discover:"
	personCachePrefix   = "catalog:person:"

	// SearchCacheTTL through DetailsCacheTTL are the freshness windows for
	// catalog reads. Listings track upstream popularity, so they stay short;
	// details rarely change.
	SearchCacheTTL   = 5 * time.Minute
	TrendingCacheTTL = 30 * time.Minute
	DiscoverCacheTTL = 30 * time.Minute
	SimilarCacheTTL  = time.Hour
	DetailsCacheTTL  = time.Hour
)

// Catalog action names, used to tag transport errors.
const (
	ActionSearch       = "search"
	ActionTrending     = "trending"
	ActionDetails      = "details"
	ActionSimilar      = "similar"
	ActionDiscover     = "discover"
	ActionPersonMovies = "person_movies"
)

// CatalogClient issues read requests against the external movie catalog and
// shapes responses into typed records. Purely reads; no side effects.
type CatalogClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logrus.Logger
	redis      *redis.Client
	retryDelay time.Duration
}

type CatalogConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	RateLimit  rate.Limit
	RetryDelay time.Duration
	Logger     *logrus.Logger
	Redis      *redis.Client
}

func NewCatalogClient(config *CatalogConfig) *CatalogClient {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultCatalogURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.RateLimit == 0 {
		config.RateLimit = rate.Limit(4) // 4 req/s keeps well under upstream limits
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = retryDelay
	}

	return &CatalogClient{
		baseURL: config.BaseURL,
		apiKey:  config.APIKey,
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		limiter:    rate.NewLimiter(config.RateLimit, 1),
		logger:     config.Logger,
		redis:      config.Redis,
		retryDelay: config.RetryDelay,
	}
}

// Search runs a free-text title search. Queries shorter than MinQueryLength
// are rejected before any request is made.
func (c *CatalogClient) Search(ctx context.Context, query string, page int) (*models.CatalogPage, error) {
	if utf8.RuneCountInString(query) < MinQueryLength {
		return nil, apperr.Validation("query", fmt.Sprintf("must be at least %d characters", MinQueryLength))
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("page", pageParam(page))

	cacheKey := searchCachePrefix + query + ":" + pageParam(page)
	return c.fetchPage(ctx, ActionSearch, "/search/movie", params, cacheKey, SearchCacheTTL)
}

// Trending lists this week's trending movies.
func (c *CatalogClient) Trending(ctx context.Context, page int) (*models.CatalogPage, error) {
	params := url.Values{}
	params.Set("page", pageParam(page))

	cacheKey := trendingCachePrefix + pageParam(page)
	return c.fetchPage(ctx, ActionTrending, "/trending/movie/week", params, cacheKey, TrendingCacheTTL)
}

// Details fetches the full record for one title, credits included.
func (c *CatalogClient) Details(ctx context.Context, movieID int64) (*models.CatalogMovieDetails, error) {
	cacheKey := detailsCachePrefix + strconv.FormatInt(movieID, 10)

	var cached models.CatalogMovieDetails
	if c.getCached(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	params := url.Values{}
	params.Set("append_to_response", "credits")

	body, err := c.makeRequest(ctx, ActionDetails, fmt.Sprintf("/movie/%d", movieID), params)
	if err != nil {
		return nil, err
	}

	var details models.CatalogMovieDetails
	if err := json.Unmarshal(body, &details); err != nil {
		return nil, apperr.Transport(ActionDetails, err)
	}

	c.putCached(ctx, cacheKey, &details, DetailsCacheTTL)
	return &details, nil
}

// Similar lists titles similar to the given movie.
func (c *CatalogClient) Similar(ctx context.Context, movieID int64, page int) (*models.CatalogPage, error) {
	params := url.Values{}
	params.Set("page", pageParam(page))

	cacheKey := similarCachePrefix + strconv.FormatInt(movieID, 10) + ":" + pageParam(page)
	return c.fetchPage(ctx, ActionSimilar, fmt.Sprintf("/movie/%d/similar", movieID), params, cacheKey, SimilarCacheTTL)
}

// DiscoverByGenre lists popular titles in one genre.
func (c *CatalogClient) DiscoverByGenre(ctx context.Context, genreID int64, page int) (*models.CatalogPage, error) {
	params := url.Values{}
	params.Set("with_genres", strconv.FormatInt(genreID, 10))
	params.Set("sort_by", "popularity.desc")
	params.Set("page", pageParam(page))

	cacheKey := fmt.Sprintf("%s%d:%s", discoverCachePrefix, genreID, pageParam(page))
	return c.fetchPage(ctx, ActionDiscover, "/discover/movie", params, cacheKey, DiscoverCacheTTL)
}

// PersonMovies lists titles featuring a person, either in the cast or as a
// director (crew).
func (c *CatalogClient) PersonMovies(ctx context.Context, personID int64, role models.PersonRole, page int) (*models.CatalogPage, error) {
	params := url.Values{}
	if role == models.RoleDirector {
		params.Set("with_crew", strconv.FormatInt(personID, 10))
	} else {
		params.Set("with_cast", strconv.FormatInt(personID, 10))
	}
	params.Set("sort_by", "popularity.desc")
	params.Set("page", pageParam(page))

	cacheKey := fmt.Sprintf("%s%d:%s:%s", personCachePrefix, personID, role, pageParam(page))
	return c.fetchPage(ctx, ActionPersonMovies, "/discover/movie", params, cacheKey, DiscoverCacheTTL)
}

func (c *CatalogClient) fetchPage(ctx context.Context, action, path string, params url.Values, cacheKey string, ttl time.Duration) (*models.CatalogPage, error) {
	var cached models.CatalogPage
	if c.getCached(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	body, err := c.makeRequest(ctx, action, path, params)
	if err != nil {
		return nil, err
	}

	var page models.CatalogPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, apperr.Transport(action, err)
	}

	c.putCached(ctx, cacheKey, &page, ttl)
	return &page, nil
}

// getCached reads a catalog response from redis. A cache failure is only a
// log line; the caller falls through to the network.
func (c *CatalogClient) getCached(ctx context.Context, key string, dest any) bool {
	if c.redis == nil {
		return false
	}

	cached, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).Warn("Failed to read from Redis")
		}
		return false
	}

	if err := json.Unmarshal([]byte(cached), dest); err != nil {
		c.logger.WithError(err).Warn("Failed to unmarshal cached catalog result")
		return false
	}

	c.logger.WithField("key", key).Debug("Catalog cache hit")
	return true
}

func (c *CatalogClient) putCached(ctx context.Context, key string, value any, ttl time.Duration) {
	if c.redis == nil {
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to marshal catalog result for caching")
		return
	}
	if err := c.redis.Set(ctx, key, payload, ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("Failed to write catalog result to cache")
	}
}

func (c *CatalogClient) makeRequest(ctx context.Context, action, path string, params url.Values) ([]byte, error) {
	params.Set("api_key", c.apiKey)
	requestURL := c.baseURL + path + "?" + params.Encode()

	var rErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, apperr.Transport(action, err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return nil, apperr.Transport(action, err)
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			rErr = err
			c.retryLogger(attempt, action, err)
			c.waitForRetry(ctx, attempt)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			if resp.StatusCode == http.StatusNotFound {
				return nil, apperr.ErrNotFound
			}
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				// Client errors will not heal on retry.
				return nil, apperr.Transport(action, fmt.Errorf("catalog returned status code %d", resp.StatusCode))
			}
			rErr = fmt.Errorf("catalog returned status code %d", resp.StatusCode)
			c.retryLogger(attempt, action, rErr)
			c.waitForRetry(ctx, attempt)
			continue
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
		resp.Body.Close()
		if err != nil {
			rErr = err
			c.retryLogger(attempt, action, err)
			c.waitForRetry(ctx, attempt)
			continue
		}
		if len(body) > maxResponseSize {
			return nil, apperr.Transport(action, fmt.Errorf("response too large: exceeded %d bytes", maxResponseSize))
		}

		c.logger.WithFields(logrus.Fields{
			"action":        action,
			"attempt":       attempt,
			"response_size": len(body),
		}).Debug("Catalog request successful")

		return body, nil
	}

	return nil, apperr.Transport(action, fmt.Errorf("failed after %d attempts: %w", maxRetries, rErr))
}

func (c *CatalogClient) retryLogger(attempt int, action string, err error) {
	c.logger.WithFields(logrus.Fields{
		"attempt": attempt + 1,
		"action":  action,
		"error":   err.Error(),
	}).Warn("Catalog request failed, retrying...")
}

func (c *CatalogClient) waitForRetry(ctx context.Context, attempt int) {
	if attempt >= maxRetries-1 {
		return
	}
	delay := time.Duration(attempt+1) * c.retryDelay
	c.logger.WithField("delay", delay).Debug("waiting before retry")
	select {
	case <-time.After(delay):
	case <-ctx.Done():
	}
}

func pageParam(page int) string {
	if page < 1 {
		page = 1
	}
	return strconv.Itoa(page)
}
