package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bookmart/nestable-sdk-go/pkg/journal"
	"github.com/bookmart/nestable-sdk-go/pkg/nestable"
	"github.com/bookmart/nestable-sdk-go/pkg/queryapi"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	headers    map[string]string
}

// NewClient creates a client for the query API at config.BaseURL.
func NewClient(config Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(config.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("query API base URL is required")
	}
	parsedBaseURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid query API base URL: %w", err)
	}
	if parsedBaseURL.Scheme != "http" && parsedBaseURL.Scheme != "https" {
		return nil, fmt.Errorf("invalid query API base URL: scheme must be http or https")
	}
	if strings.TrimSpace(parsedBaseURL.Host) == "" {
		return nil, fmt.Errorf("invalid query API base URL: host is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	headers := map[string]string{}
	for key, value := range config.Headers {
		headers[key] = value
	}

	return &Client{
		baseURL:    strings.TrimRight(parsedBaseURL.String(), "/"),
		httpClient: httpClient,
		apiKey:     strings.TrimSpace(config.APIKey),
		headers:    headers,
	}, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetRegistries lists the registries the remote hosts.
func (c *Client) GetRegistries(ctx context.Context) (queryapi.RegistriesResponse, error) {
	var response queryapi.RegistriesResponse
	err := c.getJSON(ctx, "/registries", &response)
	return response, err
}

// GetToken returns one token with its resolved owner.
func (c *Client) GetToken(ctx context.Context, registry nestable.RegistryID, tokenID nestable.TokenID) (queryapi.TokenResponse, error) {
	var response queryapi.TokenResponse
	if tokenID == 0 {
		return response, fmt.Errorf("token ID is required")
	}
	path := fmt.Sprintf("/registries/%s/tokens/%d", url.PathEscape(string(registry)), tokenID)
	err := c.getJSON(ctx, path, &response)
	return response, err
}

// GetBalance returns the number of tokens account directly owns.
func (c *Client) GetBalance(ctx context.Context, registry nestable.RegistryID, account nestable.Account) (queryapi.BalanceResponse, error) {
	var response queryapi.BalanceResponse
	if strings.TrimSpace(string(account)) == "" {
		return response, fmt.Errorf("account is required")
	}
	path := fmt.Sprintf("/registries/%s/accounts/%s/balance", url.PathEscape(string(registry)), url.PathEscape(string(account)))
	err := c.getJSON(ctx, path, &response)
	return response, err
}

// GetAssetEntry returns a catalog entry.
func (c *Client) GetAssetEntry(ctx context.Context, registry nestable.RegistryID, assetID nestable.AssetID) (queryapi.AssetResponse, error) {
	var response queryapi.AssetResponse
	if assetID == 0 {
		return response, fmt.Errorf("asset ID is required")
	}
	path := fmt.Sprintf("/registries/%s/assets/%d", url.PathEscape(string(registry)), assetID)
	err := c.getJSON(ctx, path, &response)
	return response, err
}

// GetEvents pages through the remote journal from afterSeq until it is
// exhausted or limit entries were read. limit <= 0 reads everything.
func (c *Client) GetEvents(ctx context.Context, registry nestable.RegistryID, afterSeq int64, limit int) ([]journal.Entry, error) {
	result := make([]journal.Entry, 0)
	next := afterSeq
	for {
		pageSize := journal.DefaultPageSize
		if limit > 0 && limit-len(result) < pageSize {
			pageSize = limit - len(result)
		}
		if pageSize <= 0 {
			return result, nil
		}

		values := url.Values{}
		values.Set("after", fmt.Sprintf("%d", next))
		values.Set("limit", fmt.Sprintf("%d", pageSize))
		path := fmt.Sprintf("/registries/%s/events?%s", url.PathEscape(string(registry)), values.Encode())

		var page queryapi.EventsResponse
		if err := c.getJSON(ctx, path, &page); err != nil {
			return nil, err
		}
		result = append(result, page.Events...)
		if len(page.Events) < pageSize || page.Next <= next {
			return result, nil
		}
		next = page.Next
	}
}

func (c *Client) getJSON(ctx context.Context, path string, target any) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	request.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		request.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	}
	for key, value := range c.headers {
		request.Header.Set(key, value)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("query API request failed: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("failed to read query API response: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		message := strings.TrimSpace(string(body))
		var failure queryapi.ErrorResponse
		if json.Unmarshal(body, &failure) == nil && failure.Error != "" {
			message = failure.Error
		}
		return StatusError{StatusCode: response.StatusCode, Message: message}
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to decode query API response: %w", err)
	}
	return nil
}
