package market

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
)

// AuthAPI covers account endpoints.
type AuthAPI interface {
	Login(ctx context.Context, emailOrUsername, password string) (User, error)
	Register(ctx context.Context, req RegisterRequest) (User, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) (string, error)
	DeleteUser(ctx context.Context, targetID, adminID string) error
}

// CatalogAPI covers the card catalog.
type CatalogAPI interface {
	FetchCatalog(ctx context.Context) ([]Card, error)
}

// MarketplaceAPI covers peer-to-peer listings and checkout.
type MarketplaceAPI interface {
	FetchListings(ctx context.Context) ([]Listing, error)
	Checkout(ctx context.Context, userID string, items []CartItem) ([]Listing, error)
}

// CartAPI covers the per-user cart. Every mutation answers with the full
// cart as the server now holds it.
type CartAPI interface {
	FetchCart(ctx context.Context, userID string) ([]CartItem, error)
	AddToCart(ctx context.Context, userID string, card Card, quantity int, source CardSource) ([]CartItem, error)
	RemoveFromCart(ctx context.Context, userID, cardID string, quantity int) ([]CartItem, error)
}

// CollectionAPI covers the per-user collection. Mutations return nothing;
// callers refetch.
type CollectionAPI interface {
	FetchCollection(ctx context.Context, userID string) ([]CollectionCard, error)
	AddOrUpdateCollection(ctx context.Context, userID string, card Card, source CardSource, quantity int) error
	RemoveCollectionQuantity(ctx context.Context, userID, cardID string, quantity int) error
	UpdateCollectionCard(ctx context.Context, userID string, card CollectionCard) error
	ToggleCollectionFavorite(ctx context.Context, userID, cardID string) error
}

// NotificationAPI covers server-persisted notifications.
type NotificationAPI interface {
	FetchNotifications(ctx context.Context, userID string) ([]Notification, error)
}

// API is the whole backend surface.
type API interface {
	AuthAPI
	CatalogAPI
	MarketplaceAPI
	CartAPI
	CollectionAPI
	NotificationAPI
}

// Ensure Client implements API at compile time.
var _ API = (*Client)(nil)

// Client talks to the marketplace HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

const (
	defaultBaseURL   = "http://127.0.0.1:8080"
	defaultUserAgent = "manavault/0.1"
	requestTimeout   = 10 * time.Second
	maxErrorBody     = 64 << 10
)

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// NewClient builds a Client for the API rooted at baseURL
// (e.g. "http://shop.local:8080" or "shop.local:8080").
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: requestTimeout},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// FetchCatalog lists every catalog card.
func (c *Client) FetchCatalog(ctx context.Context) ([]Card, error) {
	var cards []Card
	if err := c.do(ctx, http.MethodGet, "/api/v1/cards/catalog", nil, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// FetchListings lists every open marketplace listing.
func (c *Client) FetchListings(ctx context.Context) ([]Listing, error) {
	var listings []Listing
	if err := c.do(ctx, http.MethodGet, "/api/v1/marketplace/listings", nil, &listings); err != nil {
		return nil, err
	}
	return listings, nil
}

// Checkout settles a purchase and returns the listings still open afterwards.
func (c *Client) Checkout(ctx context.Context, userID string, items []CartItem) ([]Listing, error) {
	var resp checkoutResponse
	req := checkoutRequest{UserID: userID, PurchasedItems: items}
	if err := c.do(ctx, http.MethodPost, "/api/v1/marketplace/checkout", req, &resp); err != nil {
		return nil, err
	}
	if resp.RemainingListings == nil {
		resp.RemainingListings = []Listing{}
	}
	return resp.RemainingListings, nil
}

// Login authenticates by email or username.
func (c *Client) Login(ctx context.Context, emailOrUsername, password string) (User, error) {
	var resp userResponse
	req := loginRequest{EmailOrUsername: emailOrUsername, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", req, &resp); err != nil {
		return User{}, err
	}
	return resp.User, nil
}

// Register creates an account and returns it.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (User, error) {
	var resp userResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/register", req, &resp); err != nil {
		return User{}, err
	}
	return resp.User, nil
}

// ChangePassword rotates a password; the server verifies currentPassword.
// It returns the server's confirmation message.
func (c *Client) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) (string, error) {
	var resp messageResponse
	req := changePasswordRequest{UserID: userID, CurrentPassword: currentPassword, NewPassword: newPassword}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/change-password", req, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// DeleteUser deletes targetID on behalf of adminID.
func (c *Client) DeleteUser(ctx context.Context, targetID, adminID string) error {
	if strings.TrimSpace(targetID) == "" {
		return fmt.Errorf("target user id required")
	}
	values := url.Values{}
	values.Set("admin_id", adminID)
	rel := &url.URL{Path: "/api/v1/users/" + url.PathEscape(targetID), RawQuery: values.Encode()}
	return c.doURL(ctx, http.MethodDelete, rel, nil, nil)
}

// FetchCart returns the cart of userID.
func (c *Client) FetchCart(ctx context.Context, userID string) ([]CartItem, error) {
	var items []CartItem
	if err := c.do(ctx, http.MethodGet, "/api/v1/cart/"+url.PathEscape(userID), nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// AddToCart adjusts a cart line by quantity (which may be negative).
func (c *Client) AddToCart(ctx context.Context, userID string, card Card, quantity int, source CardSource) ([]CartItem, error) {
	var items []CartItem
	req := cartAddRequest{UserID: userID, Card: card, Quantity: quantity, Source: source}
	if err := c.do(ctx, http.MethodPost, "/api/v1/cart/add", req, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// RemoveFromCart lowers a cart line by quantity, a negative number; the
// server clamps at zero and drops the line.
func (c *Client) RemoveFromCart(ctx context.Context, userID, cardID string, quantity int) ([]CartItem, error) {
	var items []CartItem
	req := cartRemoveRequest{UserID: userID, CardID: cardID, Quantity: quantity}
	if err := c.do(ctx, http.MethodPost, "/api/v1/cart/remove", req, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// FetchCollection returns every owned card of userID.
func (c *Client) FetchCollection(ctx context.Context, userID string) ([]CollectionCard, error) {
	var cards []CollectionCard
	if err := c.do(ctx, http.MethodGet, "/api/v1/collection/"+url.PathEscape(userID), nil, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// AddOrUpdateCollection adds quantity copies of card; the server merges into
// an existing instance with the same original id and source.
func (c *Client) AddOrUpdateCollection(ctx context.Context, userID string, card Card, source CardSource, quantity int) error {
	req := collectionAddRequest{UserID: userID, Card: card, Source: source, Quantity: quantity}
	return c.do(ctx, http.MethodPost, "/api/v1/collection/add-or-update", req, nil)
}

// RemoveCollectionQuantity removes copies of an owned instance; the server
// deletes the instance when nothing is left.
func (c *Client) RemoveCollectionQuantity(ctx context.Context, userID, cardID string, quantity int) error {
	req := collectionRemoveRequest{UserID: userID, CardID: cardID, QuantityToRemove: quantity}
	return c.do(ctx, http.MethodPost, "/api/v1/collection/remove-quantity", req, nil)
}

// UpdateCollectionCard overwrites one owned instance.
func (c *Client) UpdateCollectionCard(ctx context.Context, userID string, card CollectionCard) error {
	req := collectionUpdateRequest{UserID: userID, UpdatedCard: card}
	return c.do(ctx, http.MethodPost, "/api/v1/collection/update-card", req, nil)
}

// ToggleCollectionFavorite flips the favorite flag of an owned instance.
func (c *Client) ToggleCollectionFavorite(ctx context.Context, userID, cardID string) error {
	req := collectionCardRequest{UserID: userID, CardID: cardID}
	return c.do(ctx, http.MethodPost, "/api/v1/collection/toggle-favorite", req, nil)
}

// FetchNotifications returns the persisted notifications of userID.
func (c *Client) FetchNotifications(ctx context.Context, userID string) ([]Notification, error) {
	values := url.Values{}
	values.Set("user_id", userID)
	rel := &url.URL{Path: "/api/v1/user/notifications", RawQuery: values.Encode()}
	var notes []Notification
	if err := c.doURL(ctx, http.MethodGet, rel, nil, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	rel := &url.URL{Path: path}
	return c.doURL(ctx, method, rel, body, dest)
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, body, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	reqURL := c.baseURL.ResolveReference(rel)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Method: method, Path: rel.Path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{
			Method:  method,
			Path:    rel.Path,
			Code:    resp.StatusCode,
			Message: readErrorMessage(resp.Body),
		}
	}
	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("decode response: %w: empty body", ErrMalformedResponse)
		}
		return fmt.Errorf("decode response: %w: %w", ErrMalformedResponse, err)
	}
	return nil
}

func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var msg messageResponse
	if err := json.Unmarshal(raw, &msg); err != nil {
		return strings.TrimSpace(string(raw))
	}
	if msg.Message != "" {
		return msg.Message
	}
	return msg.Error
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api url %q: missing host", raw)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
