package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/usecase/identity"
	"github.com/sruppelQPS/openclaw-meeting-assistant/pkg/config"
)

// Client queries an external contact directory over HTTP
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a directory client from the resolver configuration
func NewClient(cfg config.ResolverConfig) *Client {
	timeout := cfg.LookupTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: cfg.DirectoryURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Lookup fetches candidate contacts for a name fragment
func (c *Client) Lookup(ctx context.Context, name string) ([]identity.Contact, error) {
	endpoint := fmt.Sprintf("%s/contacts?q=%s", c.baseURL, url.QueryEscape(name))

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory returned status %d", resp.StatusCode)
	}

	var contacts []identity.Contact
	if err := json.NewDecoder(resp.Body).Decode(&contacts); err != nil {
		return nil, fmt.Errorf("failed to decode directory response: %w", err)
	}
	return contacts, nil
}
