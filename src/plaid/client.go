// Package plaid is a minimal client for the parts of the Plaid API this
// service uses: link token creation, public token exchange, and the
// /transactions/sync incremental change stream.
package plaid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/username/expensio/backend/src/models"
)

// Plaid API base URLs per environment.
var baseURLs = map[string]string{
	"sandbox":     "https://sandbox.plaid.com",
	"development": "https://development.plaid.com",
	"production":  "https://production.plaid.com",
}

// Error codes we react to. ITEM_LOGIN_REQUIRED means the access token was
// revoked or the institution requires re-authentication.
const (
	ErrorCodeItemLoginRequired = "ITEM_LOGIN_REQUIRED"
)

// APIError is a non-success response from Plaid.
type APIError struct {
	StatusCode   int    `json:"-"`
	ErrorType    string `json:"error_type"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

func (e *APIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("plaid: %s (%s)", e.ErrorMessage, e.ErrorCode)
	}
	return fmt.Sprintf("plaid: request failed with status %d", e.StatusCode)
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	secret     string
	clientName string
}

func NewClient(clientID, secret, env, clientName string) *Client {
	baseURL, ok := baseURLs[env]
	if !ok {
		baseURL = baseURLs["sandbox"]
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		clientID:   clientID,
		secret:     secret,
		clientName: clientName,
	}
}

type linkTokenRequest struct {
	ClientID     string        `json:"client_id"`
	Secret       string        `json:"secret"`
	ClientName   string        `json:"client_name"`
	User         linkTokenUser `json:"user"`
	Products     []string      `json:"products"`
	CountryCodes []string      `json:"country_codes"`
	Language     string        `json:"language"`
}

type linkTokenUser struct {
	ClientUserID string `json:"client_user_id"`
}

type linkTokenResponse struct {
	LinkToken string `json:"link_token"`
}

// CreateLinkToken requests a short-lived link_token used to open the Plaid
// Link UI for the given user. Tokens expire after ~30 minutes, so callers
// request a fresh one each time.
func (c *Client) CreateLinkToken(ctx context.Context, clientUserID string) (string, error) {
	req := linkTokenRequest{
		ClientID:     c.clientID,
		Secret:       c.secret,
		ClientName:   c.clientName,
		User:         linkTokenUser{ClientUserID: clientUserID},
		Products:     []string{"transactions"},
		CountryCodes: []string{"US"},
		Language:     "en",
	}
	var resp linkTokenResponse
	if err := c.post(ctx, "/link/token/create", req, &resp); err != nil {
		return "", err
	}
	return resp.LinkToken, nil
}

type exchangeRequest struct {
	ClientID    string `json:"client_id"`
	Secret      string `json:"secret"`
	PublicToken string `json:"public_token"`
}

type exchangeResponse struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
}

// ExchangePublicToken swaps the public_token produced by Plaid Link for a
// long-lived access token and its item id.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (accessToken string, itemID string, err error) {
	req := exchangeRequest{ClientID: c.clientID, Secret: c.secret, PublicToken: publicToken}
	var resp exchangeResponse
	if err := c.post(ctx, "/item/public_token/exchange", req, &resp); err != nil {
		return "", "", err
	}
	return resp.AccessToken, resp.ItemID, nil
}

type syncRequest struct {
	ClientID    string `json:"client_id"`
	Secret      string `json:"secret"`
	AccessToken string `json:"access_token"`
	Cursor      string `json:"cursor,omitempty"`
}

// SyncTransactions fetches one page of the incremental change stream.
// An empty cursor means "from the beginning" and must be omitted on the
// wire; Plaid rejects an explicit empty string on the first call.
func (c *Client) SyncTransactions(ctx context.Context, accessToken, cursor string) (*models.PlaidSyncResponse, error) {
	req := syncRequest{ClientID: c.clientID, Secret: c.secret, AccessToken: accessToken, Cursor: cursor}
	var resp models.PlaidSyncResponse
	if err := c.post(ctx, "/transactions/sync", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("plaid: encoding %s request: %w", path, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("plaid: building %s request: %w", path, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("plaid: calling %s: %w", path, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: httpResp.StatusCode}
		// Best effort: Plaid error bodies are JSON, but don't mask the
		// status if they are not.
		_ = json.NewDecoder(httpResp.Body).Decode(apiErr)
		return apiErr
	}

	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return fmt.Errorf("plaid: decoding %s response: %w", path, err)
	}
	return nil
}
