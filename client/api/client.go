// Package api is the blog client's request layer. It attaches the current
// credential to every privileged request and funnels every 401 carrying
// that credential through a single rejection hook, so session eviction
// logic lives in one place instead of at each call site.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	ierrors "github.com/jrsteele09/go-blog-server/internal/errors"
	"github.com/jrsteele09/go-blog-server/posts"
)

// Identity mirrors the server's auth responses.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Token    string `json:"token,omitempty"`
}

// TokenSource supplies the current credential, or "" when anonymous.
type TokenSource func() string

// Client talks to the blog server's JSON API.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	tokenSource TokenSource
	onRejected  func() // fired when a credentialed request gets a 401
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTokenSource sets where the client reads the current credential from.
func WithTokenSource(source TokenSource) ClientOption {
	return func(c *Client) {
		c.tokenSource = source
	}
}

// WithRejectionHandler registers the hook fired when the server rejects the
// attached credential with a 401. Login/signup failures do not fire it:
// those requests carry no credential.
func WithRejectionHandler(handler func()) ClientOption {
	return func(c *Client) {
		c.onRejected = handler
	}
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, options ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

type credentialsBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates and returns the issued identity.
func (c *Client) Login(ctx context.Context, username, password string) (*Identity, error) {
	var identity Identity
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", credentialsBody{username, password}, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

// Register creates an account and returns the issued identity.
func (c *Client) Register(ctx context.Context, username, password string) (*Identity, error) {
	var identity Identity
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", credentialsBody{username, password}, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

// Me returns the identity behind the current credential with the role
// re-synced from the server.
func (c *Client) Me(ctx context.Context) (*Identity, error) {
	var identity Identity
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

// Refresh exchanges the current credential for a fresh one.
func (c *Client) Refresh(ctx context.Context) (*Identity, error) {
	var identity Identity
	if err := c.do(ctx, http.MethodPost, "/api/auth/refresh", nil, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

// Posts lists all posts.
func (c *Client) Posts(ctx context.Context) ([]posts.View, error) {
	var views []posts.View
	if err := c.do(ctx, http.MethodGet, "/api/posts", nil, &views); err != nil {
		return nil, err
	}
	return views, nil
}

// CreatePost creates a post (elevated role).
func (c *Client) CreatePost(ctx context.Context, title, content, date, image, language string) (*posts.View, error) {
	body := map[string]string{
		"title": title, "content": content, "date": date, "image": image, "language": language,
	}
	var view posts.View
	if err := c.do(ctx, http.MethodPost, "/api/posts", body, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// DeletePost deletes a post (elevated role).
func (c *Client) DeletePost(ctx context.Context, postID string) error {
	return c.do(ctx, http.MethodDelete, "/api/posts/"+postID, nil, nil)
}

// ToggleLike flips the caller's like on a post and returns the
// authoritative result.
func (c *Client) ToggleLike(ctx context.Context, postID string) (posts.LikeResult, error) {
	var result posts.LikeResult
	if err := c.do(ctx, http.MethodPost, "/api/posts/"+postID+"/like", nil, &result); err != nil {
		return posts.LikeResult{}, err
	}
	return result, nil
}

// Comments lists a post's comments, oldest first.
func (c *Client) Comments(ctx context.Context, postID string) ([]*posts.Comment, error) {
	var comments []*posts.Comment
	if err := c.do(ctx, http.MethodGet, "/api/posts/"+postID+"/comments", nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// AddComment adds a comment to a post and returns the confirmed record.
func (c *Client) AddComment(ctx context.Context, postID, text string) (*posts.Comment, error) {
	var comment posts.Comment
	if err := c.do(ctx, http.MethodPost, "/api/posts/"+postID+"/comments", map[string]string{"text": text}, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// GeneratePost asks the server for an AI-drafted post (elevated role).
func (c *Client) GeneratePost(ctx context.Context, image, language string) (title, content string, err error) {
	var draft struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	body := map[string]string{"image": image, "language": language}
	if err := c.do(ctx, http.MethodPost, "/api/ai/generate-post", body, &draft); err != nil {
		return "", "", err
	}
	return draft.Title, draft.Content, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "[Client.do] marshal body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "[Client.do] new request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	credentialed := false
	if c.tokenSource != nil {
		if token := c.tokenSource(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
			credentialed = true
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ierrors.Wrapf(ierrors.ErrUpstream, "request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeAPIError(resp)
		if resp.StatusCode == http.StatusUnauthorized && credentialed && c.onRejected != nil {
			// The server has rejected our credential: the session manager
			// evicts; this request is never retried with the same token.
			c.onRejected()
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return ierrors.Wrapf(ierrors.ErrUpstream, "response decode failed: %v", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var envelope struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&envelope)
	message := envelope.Error
	if message == "" {
		message = resp.Status
	}

	var category error
	switch resp.StatusCode {
	case http.StatusBadRequest:
		category = ierrors.ErrValidation
	case http.StatusUnauthorized:
		category = ierrors.ErrAuthentication
	case http.StatusForbidden:
		category = ierrors.ErrAuthorization
	case http.StatusNotFound:
		category = ierrors.ErrNotFound
	case http.StatusConflict:
		category = ierrors.ErrConflict
	case http.StatusBadGateway:
		category = ierrors.ErrUpstream
	default:
		category = ierrors.ErrInternal
	}
	return ierrors.Wrapf(category, "%s", message)
}
