// Package api is the REST client for the marketplace backend. Every response
// uses the backend's `{success, data, error}` envelope; non-2xx statuses and
// `success:false` bodies are mapped onto the domain sentinel errors.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fieldcart/internal/domain"
	"fieldcart/internal/session"
)

type Client struct {
	baseURL string
	http    *http.Client
	session *session.Session
	log     zerolog.Logger
}

func NewClient(baseURL string, httpClient *http.Client, sess *session.Session, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: baseURL,
		http:    httpClient,
		session: sess,
		log:     log.With().Str("component", "api").Logger(),
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Login exchanges credentials for a bearer token and stores it on the
// session.
func (c *Client) Login(ctx context.Context, username, password string) error {
	body := map[string]string{"username": username, "password": password}
	var data struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &data); err != nil {
		return err
	}
	c.session.SetToken(data.Token)
	return nil
}

// GetConversation fetches one conversation with its full message sequence.
func (c *Client) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	var conv domain.Conversation
	if err := c.do(ctx, http.MethodGet, "/api/chats/"+id, nil, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListConversations fetches the conversation summaries for the current user.
func (c *Client) ListConversations(ctx context.Context) ([]*domain.Conversation, error) {
	var convs []*domain.Conversation
	if err := c.do(ctx, http.MethodGet, "/api/chats", nil, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// SendMessage posts a new message. The created message itself arrives over
// the push channel, not in the response body.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	body := map[string]string{"chatId": chatID, "message": text}
	return c.do(ctx, http.MethodPost, "/api/chats/message", body, nil)
}

// EditMessage replaces a message's text on the server.
func (c *Client) EditMessage(ctx context.Context, chatID, messageID, newText string) error {
	body := map[string]string{"chatId": chatID, "messageId": messageID, "newText": newText}
	return c.do(ctx, http.MethodPut, "/api/chats/message", body, nil)
}

// GetCart fetches the authoritative cart state.
func (c *Client) GetCart(ctx context.Context) (*domain.Cart, error) {
	var cart domain.Cart
	if err := c.do(ctx, http.MethodGet, "/api/cart", nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddCartItem adds a product line to the cart.
func (c *Client) AddCartItem(ctx context.Context, productID string, quantity int) error {
	body := map[string]int{"quantity": quantity}
	return c.do(ctx, http.MethodPost, "/api/cart/"+productID, body, nil)
}

// UpdateCartQuantity sets the quantity for an existing cart line.
func (c *Client) UpdateCartQuantity(ctx context.Context, productID string, quantity int) error {
	body := map[string]int{"quantity": quantity}
	return c.do(ctx, http.MethodPut, "/api/cart/"+productID, body, nil)
}

// RemoveCartItem deletes a cart line.
func (c *Client) RemoveCartItem(ctx context.Context, productID string) error {
	return c.do(ctx, http.MethodDelete, "/api/cart/"+productID, nil, nil)
}

// ListProducts fetches the marketplace catalogue.
func (c *Client) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	var products []*domain.Product
	if err := c.do(ctx, http.MethodGet, "/api/products", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.session != nil && c.session.Token() != "" && c.session.Expired() {
		return domain.ErrUnauthorized
	}

	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session != nil && c.session.Token() != "" {
		req.Header.Set("Authorization", "Bearer "+c.session.Token())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && err != io.EOF {
		return fmt.Errorf("decode response: %w", err)
	}

	if err := statusError(resp.StatusCode, env.Error); err != nil {
		c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("request failed")
		return err
	}
	if !env.Success {
		if env.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, env.Error)
		}
		return fmt.Errorf("%s %s: request not successful", method, path)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}

func statusError(status int, msg string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case status == http.StatusForbidden:
		return domain.ErrForbidden
	case status == http.StatusNotFound:
		return domain.ErrNotFound
	case status == http.StatusBadRequest:
		if msg != "" {
			return fmt.Errorf("%w: %s", domain.ErrInvalidInput, msg)
		}
		return domain.ErrInvalidInput
	default:
		if msg != "" {
			return fmt.Errorf("%w: %s", domain.ErrUnavailable, msg)
		}
		return domain.ErrUnavailable
	}
}
