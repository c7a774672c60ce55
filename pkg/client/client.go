// Package client is the Go consumer of the groupcart API: a typed HTTP
// client, a locally cached read model with explicit optimistic updates,
// and a subscriber loop that turns WebSocket invalidation events into
// refetches. The server stays the single source of truth; everything
// here reconciles toward it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// APIError is a structured error answer. Only Code is contractually
// stable; Message is display copy the server may change freely.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s", e.Status, e.Code)
}

// ErrValidation is returned for inputs rejected before any network
// call is made.
type ErrValidation struct{ Field string }

func (e *ErrValidation) Error() string { return "invalid " + e.Field }

type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Verified bool   `json:"verified"`
}

type Run struct {
	ID        string  `json:"id"`
	GroupID   string  `json:"group_id"`
	StoreID   string  `json:"store_id"`
	State     string  `json:"state"`
	PlannedOn *string `json:"planned_on,omitempty"`
}

type Participant struct {
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	IsLeader  bool   `json:"is_leader"`
	IsHelper  bool   `json:"is_helper"`
	IsRemoved bool   `json:"is_removed"`
	Ready     bool   `json:"ready"`
}

type RunDetail struct {
	Run          Run           `json:"run"`
	Participants []Participant `json:"participants"`
}

type Product struct {
	ID       string `json:"id"`
	StoreID  string `json:"store_id"`
	Name     string `json:"name"`
	Unit     string `json:"unit"`
	Verified bool   `json:"verified"`
}

type Store struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Verified bool   `json:"verified"`
}

type Bid struct {
	ProductID      string          `json:"product_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	InterestedOnly bool            `json:"interested_only"`
	Comment        string          `json:"comment,omitempty"`
}

type ShoppingItem struct {
	ProductID      string          `json:"product_id"`
	ProductName    string          `json:"product_name"`
	RequestedQty   decimal.Decimal `json:"requested_qty"`
	PurchasedQty   decimal.Decimal `json:"purchased_qty"`
	PurchasedPrice decimal.Decimal `json:"purchased_price"`
	PurchasedTotal decimal.Decimal `json:"purchased_total"`
	Purchased      bool            `json:"purchased"`
}

// Client talks to one groupcart server, carrying the session cookie
// across calls.
type Client struct {
	base string
	http *http.Client
}

func New(baseURL string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Jar: jar},
	}, nil
}

// do performs one request and decodes either the success payload into
// out or the error envelope into an *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var envelope struct {
			Error struct {
				Code    string         `json:"code"`
				Message string         `json:"message"`
				Details map[string]any `json:"details"`
			} `json:"error"`
		}
		apiErr := &APIError{Status: resp.StatusCode, Code: "internal"}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error.Code != "" {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
			apiErr.Details = envelope.Error.Details
		}
		return apiErr
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// ---------- Session ----------

func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	var u User
	err := c.do(ctx, http.MethodPost, "/api/login", map[string]string{
		"email": email, "password": password,
	}, &u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/logout", nil, nil)
}

// ---------- Runs ----------

func (c *Client) CreateRun(ctx context.Context, groupID, storeID string) (*Run, error) {
	var r Run
	err := c.do(ctx, http.MethodPost, "/api/runs/create", map[string]string{
		"group_id": groupID, "store_id": storeID,
	}, &r)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) Run(ctx context.Context, runID string) (*RunDetail, error) {
	var d RunDetail
	if err := c.do(ctx, http.MethodGet, "/api/runs/"+runID, nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) ToggleReady(ctx context.Context, runID string) error {
	return c.do(ctx, http.MethodPost, "/api/runs/"+runID+"/ready", nil, nil)
}

func (c *Client) Activate(ctx context.Context, runID string) error {
	return c.do(ctx, http.MethodPost, "/api/runs/"+runID+"/activate", nil, nil)
}

func (c *Client) ForceConfirm(ctx context.Context, runID string) error {
	return c.do(ctx, http.MethodPost, "/api/runs/"+runID+"/force-confirm", nil, nil)
}

func (c *Client) StartShopping(ctx context.Context, runID string) error {
	return c.do(ctx, http.MethodPost, "/api/runs/"+runID+"/start-shopping", nil, nil)
}

func (c *Client) Cancel(ctx context.Context, runID string) error {
	return c.do(ctx, http.MethodPost, "/api/runs/"+runID+"/cancel", nil, nil)
}

func (c *Client) ToggleHelper(ctx context.Context, runID, userID string) error {
	return c.do(ctx, http.MethodPost, "/api/runs/"+runID+"/helpers/"+userID, nil, nil)
}

func (c *Client) RequestLeadership(ctx context.Context, runID, userID string) error {
	return c.do(ctx, http.MethodPost, "/api/runs/"+runID+"/leadership/request",
		map[string]string{"user_id": userID}, nil)
}

func (c *Client) AcceptLeadership(ctx context.Context, runID string) error {
	return c.do(ctx, http.MethodPost, "/api/runs/"+runID+"/leadership/accept", nil, nil)
}

// FinishAdjusting completes a run. Without force the server rejects the
// request while required items lack purchase records; in that case
// confirm is asked once and the call re-issues with force=true only on
// an explicit yes. confirm may be nil to never force.
func (c *Client) FinishAdjusting(ctx context.Context, runID string, confirm func(missing []string) bool) error {
	err := c.do(ctx, http.MethodPost, "/api/runs/"+runID+"/finish-adjusting", nil, nil)
	if err == nil {
		return nil
	}
	apiErr, ok := err.(*APIError)
	if !ok || apiErr.Code != "unpurchased_items" {
		return err
	}

	missing := []string{}
	if raw, ok := apiErr.Details["products"].([]any); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				missing = append(missing, s)
			}
		}
	}
	if confirm == nil || !confirm(missing) {
		return err
	}
	return c.do(ctx, http.MethodPost, "/api/runs/"+runID+"/finish-adjusting?force=true", nil, nil)
}

// ---------- Bids ----------

// PlaceBid validates before touching the network: a zero quantity
// without interested_only never leaves the process.
func (c *Client) PlaceBid(ctx context.Context, runID, productID string, qty decimal.Decimal, interestedOnly bool, comment string) (*Bid, error) {
	if qty.IsNegative() {
		return nil, &ErrValidation{Field: "quantity"}
	}
	if qty.IsZero() && !interestedOnly {
		return nil, &ErrValidation{Field: "quantity"}
	}
	if interestedOnly {
		qty = decimal.Zero
	}

	var b Bid
	err := c.do(ctx, http.MethodPost, "/api/runs/"+runID+"/bids", map[string]any{
		"product_id":      productID,
		"quantity":        qty.String(),
		"interested_only": interestedOnly,
		"comment":         comment,
	}, &b)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// AdjustBid lowers an existing bid once the run is adjusting. Unlike
// PlaceBid, zero is legal here: it is the advertised range minimum.
func (c *Client) AdjustBid(ctx context.Context, runID, productID string, qty decimal.Decimal) (*Bid, error) {
	if qty.IsNegative() {
		return nil, &ErrValidation{Field: "quantity"}
	}
	var b Bid
	err := c.do(ctx, http.MethodPost, "/api/runs/"+runID+"/bids", map[string]any{
		"product_id": productID,
		"quantity":   qty.String(),
	}, &b)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) RetractBid(ctx context.Context, runID, productID string) error {
	return c.do(ctx, http.MethodDelete, "/api/runs/"+runID+"/bids/"+productID, nil, nil)
}

func (c *Client) AvailableProducts(ctx context.Context, runID string) ([]Product, error) {
	var out []Product
	if err := c.do(ctx, http.MethodGet, "/api/runs/"+runID+"/available-products", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ---------- Shopping ----------

func (c *Client) ShoppingList(ctx context.Context, runID string) ([]ShoppingItem, error) {
	var out []ShoppingItem
	if err := c.do(ctx, http.MethodGet, "/api/runs/"+runID+"/shopping-list", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) MarkPurchased(ctx context.Context, runID, productID string, qty, price decimal.Decimal) error {
	return c.do(ctx, http.MethodPost, "/api/runs/"+runID+"/shopping/"+productID+"/purchase", map[string]string{
		"quantity": qty.String(), "price": price.String(),
	}, nil)
}

func (c *Client) BuyMore(ctx context.Context, runID, productID string, qty, price decimal.Decimal) error {
	return c.do(ctx, http.MethodPost, "/api/runs/"+runID+"/shopping/"+productID+"/buy-more", map[string]string{
		"quantity": qty.String(), "price": price.String(),
	}, nil)
}

func (c *Client) AddPrice(ctx context.Context, runID, productID string, price decimal.Decimal, note string) error {
	return c.do(ctx, http.MethodPost, "/api/runs/"+runID+"/shopping/"+productID+"/price", map[string]string{
		"price": price.String(), "note": note,
	}, nil)
}

// ---------- Admin ----------

func adminListPath(resource, search string, limit, offset int) string {
	return fmt.Sprintf("/admin/%s?search=%s&limit=%d&offset=%d", resource, url.QueryEscape(search), limit, offset)
}

func (c *Client) AdminListUsers(ctx context.Context, search string, limit, offset int) ([]User, error) {
	var out []User
	if err := c.do(ctx, http.MethodGet, adminListPath("users", search, limit, offset), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AdminListProducts(ctx context.Context, search string, limit, offset int) ([]Product, error) {
	var out []Product
	if err := c.do(ctx, http.MethodGet, adminListPath("products", search, limit, offset), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AdminListStores(ctx context.Context, search string, limit, offset int) ([]Store, error) {
	var out []Store
	if err := c.do(ctx, http.MethodGet, adminListPath("stores", search, limit, offset), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AdminToggleVerify(ctx context.Context, resource, id string) error {
	return c.do(ctx, http.MethodPost, "/admin/"+resource+"/"+id+"/verify", nil, nil)
}
