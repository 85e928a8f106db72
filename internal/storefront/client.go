// Package storefront is the ShopLite API client and the client-side session
// that decides whether cart operations go to the guest cart or the server.
package storefront

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

	"shoplite/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// APIError is a non-2xx API response.
type APIError struct {
	Status  int
	Message string
	Fields  []domain.FieldError
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
}

// Unwrap maps the status onto the domain error taxonomy so callers can use
// errors.Is(err, domain.ErrUnauthorized) and friends.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusForbidden:
		return domain.ErrForbidden
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		return domain.ErrAlreadyExists
	}
	return nil
}

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
}

// CartLine is a server cart line. Item is nil when the item was deleted.
type CartLine struct {
	ItemID   string       `json:"itemId"`
	Item     *domain.Item `json:"item"`
	Quantity int          `json:"quantity"`
}

type AuthResult struct {
	Token string     `json:"token"`
	User  User       `json:"user"`
	Cart  []CartLine `json:"cart"`
}

type MergeResult struct {
	Items   []CartLine `json:"items"`
	Skipped []string   `json:"skipped"`
}

// ItemQuery mirrors the catalog listing filters. Zero values are omitted.
type ItemQuery struct {
	Search   string
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

func (q ItemQuery) values() url.Values {
	v := url.Values{}
	if s := strings.TrimSpace(q.Search); s != "" {
		v.Set("search", s)
	}
	if c := strings.TrimSpace(q.Category); c != "" {
		v.Set("category", c)
	}
	if q.MinPrice != nil {
		v.Set("minPrice", q.MinPrice.String())
	}
	if q.MaxPrice != nil {
		v.Set("maxPrice", q.MaxPrice.String())
	}
	return v
}

// Client talks to the ShopLite HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient returns a client for the API rooted at baseURL, for example
// http://localhost:4000/api. A nil http.Client uses a 15s timeout.
func NewClient(baseURL string, hc *http.Client, logger *zap.Logger) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc, logger: logger}
}

func (c *Client) ListItems(ctx context.Context, q ItemQuery) ([]domain.Item, error) {
	path := "/items"
	if enc := q.values().Encode(); enc != "" {
		path += "?" + enc
	}
	var items []domain.Item
	if err := c.do(ctx, http.MethodGet, path, "", nil, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Item{}
	}
	return items, nil
}

func (c *Client) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	var it domain.Item
	if err := c.do(ctx, http.MethodGet, "/items/"+url.PathEscape(id), "", nil, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

type mergeLine struct {
	ItemID string `json:"itemId"`
	Qty    int    `json:"qty"`
}

func toMergeLines(lines []domain.LineItem) []mergeLine {
	out := make([]mergeLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, mergeLine{ItemID: l.ItemID, Qty: l.Quantity})
	}
	return out
}

// Signup creates an account. A non-empty cart is merged server side in the
// same request; AuthResult.Cart is nil when that merge did not happen.
func (c *Client) Signup(ctx context.Context, name, email, password string, cart []domain.LineItem) (*AuthResult, error) {
	body := map[string]any{"name": name, "email": email, "password": password}
	if len(cart) > 0 {
		body["cart"] = toMergeLines(cart)
	}
	var res AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/signup", "", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var res AuthResult
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Session reports whether token still identifies a user.
func (c *Client) Session(ctx context.Context, token string) (*User, bool, error) {
	var res struct {
		Authenticated bool  `json:"authenticated"`
		User          *User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/session", token, nil, &res); err != nil {
		return nil, false, err
	}
	if !res.Authenticated || res.User == nil {
		return nil, false, nil
	}
	return res.User, true, nil
}

func (c *Client) Cart(ctx context.Context, token string) ([]CartLine, error) {
	return c.cartCall(ctx, http.MethodGet, "/cart", token, nil)
}

func (c *Client) AddToCart(ctx context.Context, token, itemID string, qty int) ([]CartLine, error) {
	return c.cartCall(ctx, http.MethodPost, "/cart/add", token, mergeLine{ItemID: itemID, Qty: qty})
}

// UpdateCart sets the quantity of a line; qty <= 0 removes it.
func (c *Client) UpdateCart(ctx context.Context, token, itemID string, qty int) ([]CartLine, error) {
	return c.cartCall(ctx, http.MethodPatch, "/cart/update", token, mergeLine{ItemID: itemID, Qty: qty})
}

func (c *Client) RemoveFromCart(ctx context.Context, token, itemID string) ([]CartLine, error) {
	return c.cartCall(ctx, http.MethodDelete, "/cart/remove/"+url.PathEscape(itemID), token, nil)
}

func (c *Client) ClearCart(ctx context.Context, token string) ([]CartLine, error) {
	return c.cartCall(ctx, http.MethodDelete, "/cart/clear", token, nil)
}

func (c *Client) MergeCart(ctx context.Context, token string, lines []domain.LineItem) (*MergeResult, error) {
	var res MergeResult
	body := map[string]any{"items": toMergeLines(lines)}
	if err := c.do(ctx, http.MethodPost, "/cart/merge", token, body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) cartCall(ctx context.Context, method, path, token string, body any) ([]CartLine, error) {
	var res struct {
		Items []CartLine `json:"items"`
	}
	if err := c.do(ctx, method, path, token, body, &res); err != nil {
		return nil, err
	}
	if res.Items == nil {
		res.Items = []CartLine{}
	}
	return res.Items, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("api call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Error  string              `json:"error"`
			Errors []domain.FieldError `json:"errors"`
		}
		if json.Unmarshal(raw, &payload) == nil {
			apiErr.Message = payload.Error
			apiErr.Fields = payload.Errors
		}
		return apiErr
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}
