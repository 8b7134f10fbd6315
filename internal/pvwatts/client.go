package pvwatts

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/patrickmn/go-cache"
	"github.com/tphakala/roofsolar/internal/conf"
	"github.com/tphakala/roofsolar/internal/errors"
	"github.com/tphakala/roofsolar/internal/mathutil"
	"github.com/tphakala/roofsolar/internal/observability/metrics"
	"github.com/tphakala/roofsolar/internal/production"
)

const maxPreviewLength = 500

// Client provides methods for interacting with the PVWatts API.
// A Client is safe for concurrent use. Every Estimate that misses the cache
// makes exactly one HTTP request and never retries, so the caller's pacer
// governs the spacing of all requests and a timed out call fails once.
type Client struct {
	config     Config
	httpClient *http.Client
	cache      *cache.Cache
	recorder   metrics.Recorder
	debug      bool

	// Metrics
	metrics struct {
		apiCalls      int64
		cacheHits     int64
		cacheMisses   int64
		apiErrors     int64
		totalDuration time.Duration
		mu            sync.RWMutex
	}
}

// NewClient creates a new PVWatts API client. Missing connection settings
// are filled from DefaultConfig.
func NewClient(config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, errors.Newf("PVWatts API key is required").
			Category(errors.CategoryConfiguration).
			Component("pvwatts").
			Build()
	}

	// Use defaults for missing config values
	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = defaults.CacheTTL
	}
	// Zero array and module types are valid PVWatts values, callers start
	// from DefaultConfig to get the roof mount defaults.

	settings := conf.GetSettings()
	debug := settings != nil && settings.Debug

	client := &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		cache:    cache.New(config.CacheTTL, config.CacheTTL*2),
		recorder: metrics.NewNoOpRecorder(),
		debug:    debug,
	}

	getLogger().Info("PVWatts client initialized",
		"base_url", config.BaseURL,
		"timeout", config.Timeout,
		"cache_ttl", config.CacheTTL,
		"array_type", config.ArrayType,
		"module_type", config.ModuleType,
		"losses", config.Losses,
		"api_key_configured", config.APIKey != "")

	return client, nil
}

// SetRecorder routes cache hit and miss counts to the given recorder.
// Call outcomes are recorded by the caller.
func (c *Client) SetRecorder(r metrics.Recorder) {
	c.recorder = metrics.OrNoOp(r)
}

// Close releases cached responses and closes the service log.
func (c *Client) Close() {
	c.cache.Flush()
	getLogger().Info("Closing PVWatts client")
	if closeLogger != nil {
		if err := closeLogger(); err != nil {
			log.Printf("Error closing pvwatts logger: %v", err)
		}
	}
}

// EstimateYield returns the annual AC yield in kWh for one roof segment.
// It implements production.YieldEstimator.
func (c *Client) EstimateYield(ctx context.Context, req production.YieldRequest) (float64, error) {
	est, err := c.Estimate(ctx, req)
	if err != nil {
		return 0, err
	}
	return est.ACAnnual, nil
}

// Estimate calls PVWatts for one system and returns the decoded outputs.
// Identical requests within the cache TTL are answered from memory.
func (c *Client) Estimate(ctx context.Context, req production.YieldRequest) (*Estimate, error) {
	if req.CapacityKW <= 0 {
		return nil, errors.Newf("system capacity must be positive, got %g kW", req.CapacityKW).
			Category(errors.CategoryValidation).
			Component("pvwatts").
			Build()
	}

	params := c.queryParams(req)
	cacheKey := params.Encode()

	if cached, found := c.cache.Get(cacheKey); found {
		if est, ok := cached.(*Estimate); ok {
			c.metrics.mu.Lock()
			c.metrics.cacheHits++
			c.metrics.mu.Unlock()
			c.recorder.RecordOperation(metrics.OpCacheGet, metrics.StatusHit)
			getLogger().Debug("PVWatts cache hit",
				"capacity_kw", params.Get("system_capacity"),
				"tilt", req.Tilt,
				"azimuth", req.Azimuth)
			return est, nil
		}
	}

	c.metrics.mu.Lock()
	c.metrics.cacheMisses++
	c.metrics.mu.Unlock()
	c.recorder.RecordOperation(metrics.OpCacheGet, metrics.StatusMiss)

	params.Set("api_key", c.config.APIKey)
	requestURL := c.config.BaseURL + "?" + params.Encode()

	est, err := c.doRequest(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	c.cache.Set(cacheKey, est, cache.DefaultExpiration)
	return est, nil
}

// queryParams builds the request parameters without the API key, so the
// encoded form doubles as the cache key.
func (c *Client) queryParams(req production.YieldRequest) url.Values {
	params := url.Values{}
	params.Set("lat", formatFloat(req.Latitude))
	params.Set("lon", formatFloat(req.Longitude))
	params.Set("system_capacity", formatFloat(mathutil.Round(req.CapacityKW, 3)))
	params.Set("azimuth", formatFloat(req.Azimuth))
	params.Set("tilt", formatFloat(req.Tilt))
	params.Set("array_type", strconv.Itoa(c.config.ArrayType))
	params.Set("module_type", strconv.Itoa(c.config.ModuleType))
	params.Set("losses", formatFloat(c.config.Losses))
	return params
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (c *Client) doRequest(ctx context.Context, requestURL string) (*Estimate, error) {
	start := time.Now()

	c.metrics.mu.Lock()
	c.metrics.apiCalls++
	c.metrics.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, http.NoBody)
	if err != nil {
		c.recordAPIError()
		return nil, errors.Newf("failed to create HTTP request: %w", err).
			Category(errors.CategoryNetwork).
			Component("pvwatts").
			Build()
	}
	req.Header.Set("Accept", "application/json")

	if c.debug {
		getLogger().Debug("PVWatts API request",
			"base_url", c.config.BaseURL,
			"has_api_key", c.config.APIKey != "")
	}

	resp, err := c.httpClient.Do(req)
	c.addDuration(time.Since(start))
	if err != nil {
		c.recordAPIError()
		err = scrubURLError(err)
		getLogger().Error("PVWatts API request failed",
			"error", err,
			"base_url", c.config.BaseURL)
		category := errors.CategoryNetwork
		if ctx.Err() == nil && isTimeout(err) {
			category = errors.CategoryTimeout
		}
		return nil, errors.Newf("HTTP request failed: %w", err).
			Category(category).
			NetworkContext(c.config.BaseURL, c.config.Timeout).
			Component("pvwatts").
			Build()
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordAPIError()
		return nil, errors.Newf("failed to read response body: %w", err).
			Category(errors.CategoryNetwork).
			Context("status_code", resp.StatusCode).
			Component("pvwatts").
			Build()
	}

	obj, parseErr := jason.NewObjectFromBytes(bodyBytes)

	if resp.StatusCode >= 400 {
		c.recordAPIError()
		message := http.StatusText(resp.StatusCode)
		if parseErr == nil {
			if apiErrors := stringArray(obj, "errors"); len(apiErrors) > 0 {
				message = strings.Join(apiErrors, "; ")
			}
		}
		getLogger().Error("PVWatts API returned error status",
			"status_code", resp.StatusCode,
			"message", message)
		return nil, errors.Newf("PVWatts API error (status %d): %s", resp.StatusCode, message).
			Category(getErrorCategory(resp.StatusCode)).
			Context("status_code", resp.StatusCode).
			Component("pvwatts").
			Build()
	}

	if parseErr != nil {
		c.recordAPIError()
		getLogger().Error("PVWatts API returned malformed body",
			"status_code", resp.StatusCode,
			"response_preview", preview(bodyBytes),
			"error", parseErr)
		return nil, errors.Newf("failed to decode PVWatts response: %w", parseErr).
			Category(errors.CategoryIntegration).
			Context("status_code", resp.StatusCode).
			Component("pvwatts").
			Build()
	}

	return c.decodeEstimate(obj, resp.StatusCode)
}

// decodeEstimate extracts the outputs block. A non-empty errors array is a
// failure even on a 200 response.
func (c *Client) decodeEstimate(obj *jason.Object, statusCode int) (*Estimate, error) {
	if apiErrors := stringArray(obj, "errors"); len(apiErrors) > 0 {
		c.recordAPIError()
		getLogger().Warn("PVWatts API reported errors",
			"status_code", statusCode,
			"errors", apiErrors)
		return nil, errors.Newf("PVWatts API reported errors: %s", strings.Join(apiErrors, "; ")).
			Category(errors.CategoryValidation).
			Context("status_code", statusCode).
			Context("error_count", len(apiErrors)).
			Component("pvwatts").
			Build()
	}

	acAnnual, err := obj.GetFloat64("outputs", "ac_annual")
	if err != nil {
		c.recordAPIError()
		return nil, errors.Newf("PVWatts response has no outputs.ac_annual: %w", err).
			Category(errors.CategoryIntegration).
			Context("status_code", statusCode).
			Component("pvwatts").
			Build()
	}

	est := &Estimate{ACAnnual: acAnnual}
	// Optional outputs, absent values stay zero
	est.SolradAnnual, _ = obj.GetFloat64("outputs", "solrad_annual")
	est.CapacityFactor, _ = obj.GetFloat64("outputs", "capacity_factor")
	est.ACMonthly, _ = obj.GetFloat64Array("outputs", "ac_monthly")
	est.Warnings = stringArray(obj, "warnings")

	if len(est.Warnings) > 0 {
		getLogger().Info("PVWatts API returned warnings", "warnings", est.Warnings)
	}
	return est, nil
}

// ClearCache clears all cached responses
func (c *Client) ClearCache() {
	c.cache.Flush()
	getLogger().Info("PVWatts cache cleared")
}

// GetMetrics returns current client metrics
func (c *Client) GetMetrics() Metrics {
	c.metrics.mu.RLock()
	defer c.metrics.mu.RUnlock()

	m := Metrics{
		APICalls:      c.metrics.apiCalls,
		CacheHits:     c.metrics.cacheHits,
		CacheMisses:   c.metrics.cacheMisses,
		APIErrors:     c.metrics.apiErrors,
		TotalDuration: c.metrics.totalDuration,
	}
	if m.APICalls > 0 {
		m.AvgDuration = time.Duration(int64(m.TotalDuration) / m.APICalls)
	}
	return m
}

func (c *Client) recordAPIError() {
	c.metrics.mu.Lock()
	c.metrics.apiErrors++
	c.metrics.mu.Unlock()
}

func (c *Client) addDuration(d time.Duration) {
	c.metrics.mu.Lock()
	c.metrics.totalDuration += d
	c.metrics.mu.Unlock()
}

// getErrorCategory determines the appropriate error category based on HTTP status code
func getErrorCategory(statusCode int) errors.ErrorCategory {
	switch statusCode {
	case 401, 403:
		// Missing or invalid API key
		return errors.CategoryConfiguration
	case 429:
		return errors.CategoryLimit
	case 404:
		return errors.CategoryNotFound
	case 400, 422:
		// Rejected parameters
		return errors.CategoryValidation
	default:
		return errors.CategoryNetwork
	}
}

// stringArray reads an optional array of strings, skipping non-string entries.
func stringArray(obj *jason.Object, key string) []string {
	values, err := obj.GetValueArray(key)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, err := v.String(); err == nil && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func isTimeout(err error) bool {
	var timeoutErr interface{ Timeout() bool }
	return errors.As(err, &timeoutErr) && timeoutErr.Timeout()
}

// scrubURLError drops the request URL from transport errors so the API key
// never reaches logs or telemetry.
func scrubURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > maxPreviewLength {
		return s[:maxPreviewLength] + "..."
	}
	return s
}
