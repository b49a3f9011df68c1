package flowcontext

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPOrderStore reads orders from the merchant's commerce REST API.
type HTTPOrderStore struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPOrderStore returns a client for baseURL. A zero timeout defaults to 10 seconds.
func NewHTTPOrderStore(baseURL, apiKey string, timeout time.Duration) *HTTPOrderStore {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPOrderStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type threadOrderResponse struct {
	OrderID string `json:"orderId"`
}

type lineItemsResponse struct {
	Items []LineItem `json:"items"`
}

// OrderIDForThread returns "" when the API has no order for the thread.
func (c *HTTPOrderStore) OrderIDForThread(ctx context.Context, threadID string) (string, error) {
	var resp threadOrderResponse
	found, err := c.get(ctx, "/threads/"+url.PathEscape(threadID)+"/order", &resp)
	if err != nil || !found {
		return "", err
	}
	return resp.OrderID, nil
}

// GetOrder returns nil, nil when the API reports the order as missing.
func (c *HTTPOrderStore) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var order Order
	found, err := c.get(ctx, "/orders/"+url.PathEscape(orderID), &order)
	if err != nil || !found {
		return nil, err
	}
	return &order, nil
}

// GetLineItems fetches the order's line items with warranty terms.
func (c *HTTPOrderStore) GetLineItems(ctx context.Context, orderID string) ([]LineItem, error) {
	var resp lineItemsResponse
	if _, err := c.get(ctx, "/orders/"+url.PathEscape(orderID)+"/line-items", &resp); err != nil {
		return nil, err
	}
	for i := range resp.Items {
		resp.Items[i].Warranty.LineItemID = resp.Items[i].ID
	}
	return resp.Items, nil
}

// get decodes a JSON response into out. A 404 reports found=false without error.
func (c *HTTPOrderStore) get(ctx context.Context, path string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("commerce API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("commerce API returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decode commerce response: %w", err)
	}
	return true, nil
}
