// Package api is the REST client for a LANSend server. Every JSON
// endpoint answers with an envelope of either {"data": ...} on success
// or {"code", "message"} on failure.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/meowtec/LANSend/internal/model"
)

// Error is a failure reported by the server inside a response envelope.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %s (code %d)", e.Message, e.Code)
}

// Client talks to one LANSend server. The zero http.Client is fine for
// a LAN peer; uploads carry their own context deadlines.
type Client struct {
	base string
	hc   *http.Client
}

// NewClient builds a client for a base URL such as http://192.168.1.4:17133.
func NewClient(base string) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{},
	}
}

// Users fetches the full presence roster.
func (c *Client) Users(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := c.getJSON(ctx, "/api/users", &users); err != nil {
		return nil, err
	}
	return users, nil
}

// UserInfo fetches the local user's own profile.
func (c *Client) UserInfo(ctx context.Context) (model.User, error) {
	var user model.User
	err := c.getJSON(ctx, "/api/user-info", &user)
	return user, err
}

// UpdateUserInfo posts a profile change and returns the server's copy.
func (c *Client) UpdateUserInfo(ctx context.Context, user model.User) (model.User, error) {
	body, err := json.Marshal(user)
	if err != nil {
		return model.User{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/user-info", bytes.NewReader(body))
	if err != nil {
		return model.User{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var updated model.User
	err = c.do(req, &updated)
	return updated, err
}

// LongText fetches the raw body of an uploaded long text.
func (c *Client) LongText(ctx context.Context, fileID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/file/"+url.PathEscape(fileID), nil)
	if err != nil {
		return "", err
	}
	res, err := c.hc.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("api: fetch long text: status %d", res.StatusCode)
	}
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	res, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return decodeEnvelope(res.Body, out)
}

func decodeEnvelope(r io.Reader, out any) error {
	var env struct {
		Data    json.RawMessage `json:"data"`
		Code    *int            `json:"code"`
		Message string          `json:"message"`
	}
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return fmt.Errorf("decode response envelope: %w", err)
	}
	if env.Code != nil {
		return &Error{Code: *env.Code, Message: env.Message}
	}
	if out == nil {
		return nil
	}
	if env.Data == nil {
		return fmt.Errorf("response envelope carries no data")
	}
	return json.Unmarshal(env.Data, out)
}
