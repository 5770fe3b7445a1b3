package stagestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"relocation/internal/domain/models"
	"relocation/internal/reorder"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 10 << 20

// ErrParentNotFound is returned when a child collection's parent is missing
// from the listing.
var ErrParentNotFound = errors.New("parent not found")

// Client talks to the stage store REST API. It implements reorder.Store.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	logger     *slog.Logger
}

var _ reorder.Store = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sends the token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithLogger sets the client's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// InsertPayload is the body of an insert request.
type InsertPayload struct {
	VillageID string  `json:"villageId,omitempty"` // set from the key for top-level buildings
	Name      string  `json:"name"`
	Desc      *string `json:"desc,omitempty"`
	Position  *int    `json:"position,omitempty"`
}

// List returns the active members of the collection sorted by position. A 404
// from the store means the collection is empty.
func (c *Client) List(ctx context.Context, key reorder.Key) ([]reorder.Item, error) {
	routes, err := routesFor(key)
	if err != nil {
		return nil, err
	}

	body, err := c.do(ctx, http.MethodGet, routes.ListPath(url.PathEscape(key.Village)), nil)
	if err != nil {
		if isNotFound(err) && key.TopLevel() {
			return []reorder.Item{}, nil
		}
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %w", key, ErrParentNotFound)
		}
		return nil, fmt.Errorf("list %s: %w", key, err)
	}

	items, err := decodeCollection(body, key.ParentID)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", key, err)
	}
	return reorder.SortByPosition(activeOnly(items)), nil
}

// ListDeleted returns the soft-deleted members of the collection.
func (c *Client) ListDeleted(ctx context.Context, key reorder.Key) ([]reorder.Item, error) {
	routes, err := routesFor(key)
	if err != nil {
		return nil, err
	}

	body, err := c.do(ctx, http.MethodGet, routes.DeletedPath(url.PathEscape(key.Village), url.PathEscape(key.ParentID)), nil)
	if err != nil {
		if isNotFound(err) {
			return []reorder.Item{}, nil
		}
		return nil, fmt.Errorf("list deleted %s: %w", key, err)
	}
	return reorder.SortByPosition(decodeItems(listResults(body))), nil
}

// Update replaces an item's fields and moves it to payload.Position.
func (c *Client) Update(ctx context.Context, key reorder.Key, id string, payload reorder.UpdatePayload) error {
	routes, err := routesFor(key)
	if err != nil {
		return err
	}
	path := routes.ItemPath(url.PathEscape(key.Village), url.PathEscape(key.ParentID), url.PathEscape(id))
	if _, err := c.do(ctx, http.MethodPut, path, payload); err != nil {
		return fmt.Errorf("update %s in %s: %w", id, key, err)
	}
	c.logger.Debug("item updated", "collection", key.String(), "item_id", id, "position", payload.Position)
	return nil
}

// Delete soft-deletes an item.
func (c *Client) Delete(ctx context.Context, key reorder.Key, id string) error {
	routes, err := routesFor(key)
	if err != nil {
		return err
	}
	path := routes.ItemPath(url.PathEscape(key.Village), url.PathEscape(key.ParentID), url.PathEscape(id))
	if _, err := c.do(ctx, http.MethodDelete, path, nil); err != nil {
		return fmt.Errorf("delete %s in %s: %w", id, key, err)
	}
	return nil
}

// Insert creates an item in the collection and returns it as stored.
func (c *Client) Insert(ctx context.Context, key reorder.Key, payload InsertPayload) (reorder.Item, error) {
	routes, err := routesFor(key)
	if err != nil {
		return reorder.Item{}, err
	}
	if routes.Scoped && key.TopLevel() {
		payload.VillageID = key.Village
	}
	body, err := c.do(ctx, http.MethodPost, routes.InsertPath(url.PathEscape(key.Village), url.PathEscape(key.ParentID)), payload)
	if err != nil {
		return reorder.Item{}, fmt.Errorf("insert into %s: %w", key, err)
	}
	item, ok := decodeResultItem(body)
	if !ok {
		return reorder.Item{}, fmt.Errorf("insert into %s: response carries no item", key)
	}
	return item, nil
}

// do sends a request and returns the response body of a 2xx response. Any
// other status becomes a *StatusError carrying the body.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("store request failed",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
		)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func routesFor(key reorder.Key) (models.Routes, error) {
	if err := key.Validate(); err != nil {
		return models.Routes{}, err
	}
	routes, ok := models.RoutesFor(models.Family(key.Family))
	if !ok {
		return models.Routes{}, fmt.Errorf("unknown family %q", key.Family)
	}
	return routes, nil
}

func activeOnly(items []reorder.Item) []reorder.Item {
	out := make([]reorder.Item, 0, len(items))
	for _, it := range items {
		if !it.Deleted {
			out = append(out, it)
		}
	}
	return out
}
