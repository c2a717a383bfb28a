package feeds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/randytsao24/parkedup/internal/models"
)

const (
	// DefaultAvailabilityURL is the data.gov.sg carpark availability endpoint
	DefaultAvailabilityURL = "https://api.data.gov.sg/v1/transport/carpark-availability"

	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
	defaultRetryDelay = 500 * time.Millisecond
	userAgent         = "parkedup"
)

// ErrMalformedFeed is returned when the availability payload has no usable items
var ErrMalformedFeed = errors.New("malformed availability feed")

// UpstreamError describes a failed availability request
type UpstreamError struct {
	StatusCode int
	Retriable  bool
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("availability upstream error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("availability upstream error: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// AvailabilityClient fetches live lot counts from the availability API
type AvailabilityClient struct {
	httpClient *http.Client
	url        string
	maxRetries int
	retryDelay time.Duration
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// ClientOption configures an AvailabilityClient
type ClientOption func(*AvailabilityClient)

// WithURL overrides the availability endpoint
func WithURL(url string) ClientOption {
	return func(c *AvailabilityClient) {
		c.url = url
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *AvailabilityClient) {
		c.httpClient.Timeout = timeout
	}
}

// WithMaxRetries sets how many times a failed request is retried
func WithMaxRetries(retries int) ClientOption {
	return func(c *AvailabilityClient) {
		c.maxRetries = max(retries, 0)
	}
}

// WithRetryDelay sets the base delay, doubled after each attempt
func WithRetryDelay(delay time.Duration) ClientOption {
	return func(c *AvailabilityClient) {
		c.retryDelay = delay
	}
}

// WithRateLimit caps outgoing requests per second. Zero or less disables the limit.
func WithRateLimit(rps float64) ClientOption {
	return func(c *AvailabilityClient) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithLogger sets the logger used for retries and failures
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *AvailabilityClient) {
		c.logger = logger
	}
}

// NewAvailabilityClient creates a client with the given options
func NewAvailabilityClient(opts ...ClientOption) *AvailabilityClient {
	client := &AvailabilityClient{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		url:        DefaultAvailabilityURL,
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
		limiter:    rate.NewLimiter(rate.Limit(1), 1),
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// availabilityResponse mirrors the upstream JSON payload
type availabilityResponse struct {
	Items []struct {
		Timestamp   string `json:"timestamp"`
		CarparkData []struct {
			CarparkNumber  string `json:"carpark_number"`
			UpdateDatetime string `json:"update_datetime"`
			CarparkInfo    []struct {
				TotalLots     string `json:"total_lots"`
				LotType       string `json:"lot_type"`
				LotsAvailable string `json:"lots_available"`
			} `json:"carpark_info"`
		} `json:"carpark_data"`
	} `json:"items"`
}

func isRetriableStatusCode(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests ||
		statusCode == http.StatusRequestTimeout ||
		statusCode >= 500
}

// Availability fetches the current lot counts, retrying transient failures
// with exponential backoff
func (c *AvailabilityClient) Availability(ctx context.Context) (models.Availability, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<uint(attempt-1))
			c.logger.Warn("retrying availability request",
				"attempt", attempt+1,
				"max_attempts", c.maxRetries+1,
				"delay", delay.String(),
				"error", lastErr,
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		availability, err := c.fetch(ctx)
		if err == nil {
			return availability, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err

		var upstreamErr *UpstreamError
		if errors.As(err, &upstreamErr) && !upstreamErr.Retriable {
			break
		}
	}

	c.logger.Error("availability request failed", "attempts", c.maxRetries+1, "error", lastErr)
	return nil, fmt.Errorf("fetching availability: %w", lastErr)
}

func (c *AvailabilityClient) fetch(ctx context.Context) (models.Availability, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, &UpstreamError{Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Retriable: true, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Retriable:  isRetriableStatusCode(resp.StatusCode),
			Err:        fmt.Errorf("unexpected status code %d", resp.StatusCode),
		}
	}

	var payload availabilityResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &UpstreamError{Err: fmt.Errorf("%w: %w", ErrMalformedFeed, err)}
	}

	return parseAvailability(payload)
}

// parseAvailability sums lots_available across each carpark's sub-reports.
// Unparseable or negative counts contribute 0. A later report for the same carpark
// replaces an earlier one.
func parseAvailability(payload availabilityResponse) (models.Availability, error) {
	if len(payload.Items) == 0 {
		return nil, &UpstreamError{Err: fmt.Errorf("%w: no items", ErrMalformedFeed)}
	}

	data := payload.Items[0].CarparkData
	availability := make(models.Availability, len(data))
	for _, cp := range data {
		number := strings.TrimSpace(cp.CarparkNumber)
		if number == "" {
			continue
		}

		total := 0
		for _, info := range cp.CarparkInfo {
			lots, err := strconv.Atoi(strings.TrimSpace(info.LotsAvailable))
			if err != nil || lots < 0 {
				continue
			}
			total += lots
		}
		availability[number] = total
	}

	return availability, nil
}
