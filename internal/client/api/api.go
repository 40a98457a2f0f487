// Package api is the client side of the /api/auth surface.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	resp "music_auth/internal/lib/api/response"
	"music_auth/internal/models"

	"github.com/go-chi/render"
)

const defaultTimeout = 10 * time.Second

// APIError carries the server's message so the caller can show it verbatim.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client for the server at baseURL. Requests are never retried.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

func (c *Client) Register(ctx context.Context, username, email, password string) (models.Session, error) {
	const op = "api.Register"

	body := map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}

	var out models.Session
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", "", body, &out); err != nil {
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (models.Session, error) {
	const op = "api.Login"

	body := map[string]string{
		"email":    email,
		"password": password,
	}

	var out models.Session
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", "", body, &out); err != nil {
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (c *Client) WhoAmI(ctx context.Context, token string) (models.PublicAccount, error) {
	const op = "api.WhoAmI"

	var out models.PublicAccount
	if err := c.do(ctx, http.MethodGet, "/api/auth/user", token, nil, &out); err != nil {
		return models.PublicAccount{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// ChangePassword returns the server's confirmation message.
func (c *Client) ChangePassword(ctx context.Context, token, currentPassword, newPassword string) (string, error) {
	const op = "api.ChangePassword"

	body := map[string]string{
		"currentPassword": currentPassword,
		"newPassword":     newPassword,
	}

	var out resp.Response
	if err := c.do(ctx, http.MethodPost, "/api/auth/change-password", token, body, &out); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return out.Message, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}

	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		var msg resp.Response
		if err := render.DecodeJSON(res.Body, &msg); err != nil || msg.Message == "" {
			msg.Message = http.StatusText(res.StatusCode)
		}

		return &APIError{Status: res.StatusCode, Message: msg.Message}
	}

	return render.DecodeJSON(res.Body, out)
}
