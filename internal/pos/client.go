package pos

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrProvider wraps every transport/remote failure so callers can map the
// whole class onto one outcome without inspecting provider internals.
var ErrProvider = errors.New("pos provider request failed")

// Client is the consumed slice of the point-of-sale provider: catalog
// snapshots plus the open-ticket lifecycle.
type Client interface {
	FetchCategories(ctx context.Context) ([]Category, error)
	FetchProducts(ctx context.Context) ([]Product, error)
	FetchProductImage(ctx context.Context, productID string) (string, error)
	CreateTicket(ctx context.Context, roomNumber, guestName string) (string, error)
	AppendTicketItems(ctx context.Context, ticketRef string, items []TicketItem) error
	CloseTicket(ctx context.Context, ticketRef string) error
}

type HTTPClient struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	logger  *zap.Logger
}

// NewHTTPClient builds a provider client with a hard request deadline. A hung
// provider must fail the request rather than block it forever.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *HTTPClient) FetchCategories(ctx context.Context) ([]Category, error) {
	var out struct {
		Categories []Category `json:"categories"`
	}
	if err := c.do(ctx, http.MethodGet, "/catalog/categories", nil, &out); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

func (c *HTTPClient) FetchProducts(ctx context.Context) ([]Product, error) {
	var out struct {
		Products []Product `json:"products"`
	}
	if err := c.do(ctx, http.MethodGet, "/catalog/products", nil, &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

func (c *HTTPClient) FetchProductImage(ctx context.Context, productID string) (string, error) {
	var out struct {
		ImageURL string `json:"imageUrl"`
	}
	path := "/catalog/products/" + url.PathEscape(productID) + "/image"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return "", err
	}
	return out.ImageURL, nil
}

func (c *HTTPClient) CreateTicket(ctx context.Context, roomNumber, guestName string) (string, error) {
	body := map[string]string{"room": roomNumber, "guestName": guestName}
	var out struct {
		TicketID string `json:"ticketId"`
	}
	if err := c.do(ctx, http.MethodPost, "/tickets", body, &out); err != nil {
		return "", err
	}
	if out.TicketID == "" {
		return "", fmt.Errorf("%w: empty ticket id", ErrProvider)
	}
	return out.TicketID, nil
}

func (c *HTTPClient) AppendTicketItems(ctx context.Context, ticketRef string, items []TicketItem) error {
	body := map[string]any{"items": items}
	path := "/tickets/" + url.PathEscape(ticketRef) + "/items"
	return c.do(ctx, http.MethodPost, path, body, nil)
}

func (c *HTTPClient) CloseTicket(ctx context.Context, ticketRef string) error {
	path := "/tickets/" + url.PathEscape(ticketRef) + "/close"
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// DownloadImage fetches raw image bytes through the same bounded client.
func (c *HTTPClient) DownloadImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrProvider, err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("%w: image fetch status %d", ErrProvider, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrProvider, err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrProvider, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProvider, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Api-Key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		c.logger.Warn("pos request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn("pos request rejected",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", payload))
		return fmt.Errorf("%w: status %d", ErrProvider, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrProvider, err)
	}
	return nil
}
