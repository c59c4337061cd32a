package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when the service answers with no documents.
var ErrNotFound = errors.New("address not found")

// APIError is a non-200 answer from the geocoding service.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Body)
}

// Result is the first matching document of an address search.
type Result struct {
	JibunAddress string
	RoadAddress  string
}

type addressName struct {
	AddressName string `json:"address_name"`
}

type document struct {
	AddressName string       `json:"address_name"`
	Address     *addressName `json:"address"`
	RoadAddress *addressName `json:"road_address"`
}

type searchResponse struct {
	Documents []document `json:"documents"`
}

type cachedResult struct {
	result    Result
	timestamp time.Time
}

// Client talks to the Kakao local address search API.
type Client struct {
	apiKey       string
	baseURL      string
	client       *http.Client
	cache        sync.Map
	apiCallCount int64
	apiCallMutex sync.Mutex
}

func NewClient(apiKey, baseURL string) *Client {
	return &Client{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// HasKey reports whether an API key is configured.
func (c *Client) HasKey() bool {
	return c.apiKey != ""
}

// IncrementAPICall safely increments the API call counter
func (c *Client) IncrementAPICall() {
	c.apiCallMutex.Lock()
	c.apiCallCount++
	c.apiCallMutex.Unlock()
}

// GetAPICallCount returns the current API call count
func (c *Client) GetAPICallCount() int64 {
	c.apiCallMutex.Lock()
	defer c.apiCallMutex.Unlock()
	return c.apiCallCount
}

// Search looks up query and returns the first document. Identical queries
// within an hour are answered from memory.
func (c *Client) Search(ctx context.Context, query string) (Result, error) {
	if cached, ok := c.cache.Load(query); ok {
		entry := cached.(cachedResult)
		if time.Since(entry.timestamp) < time.Hour {
			return entry.result, nil
		}
	}

	endpoint := c.baseURL + "?query=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "KakaoAK "+c.apiKey)

	c.IncrementAPICall()

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Result{}, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Result{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Documents) == 0 {
		return Result{}, ErrNotFound
	}

	doc := parsed.Documents[0]
	result := Result{JibunAddress: doc.AddressName}
	if doc.Address != nil {
		result.JibunAddress = doc.Address.AddressName
	}
	if doc.RoadAddress != nil {
		result.RoadAddress = doc.RoadAddress.AddressName
	}

	log.Debug().
		Str("query", query).
		Str("jibun", result.JibunAddress).
		Str("road", result.RoadAddress).
		Msg("Geocoded address")

	c.cache.Store(query, cachedResult{result: result, timestamp: time.Now()})
	return result, nil
}
