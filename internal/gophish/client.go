// Package gophish is a client for the Gophish REST API.
package gophish

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/foxzi/pca/internal/metrics"
)

// Errors returned by the client. APIError values match ErrNameInUse,
// ErrBadCredentials and ErrNotFound through errors.Is.
var (
	ErrNameInUse      = errors.New("name already in use")
	ErrBadCredentials = errors.New("invalid API key")
	ErrNotFound       = errors.New("not found")
	ErrUnreachable    = errors.New("unable to reach Gophish")
	ErrBadURL         = errors.New("invalid server URL")
)

// APIError is an error response from the server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gophish: HTTP %d: %s", e.StatusCode, e.Message)
}

// Is maps status codes and server messages onto the sentinel errors
func (e *APIError) Is(target error) bool {
	msg := strings.ToLower(e.Message)
	switch target {
	case ErrNameInUse:
		return e.StatusCode == http.StatusConflict || strings.Contains(msg, "already in use")
	case ErrBadCredentials:
		return e.StatusCode == http.StatusUnauthorized || strings.Contains(msg, "invalid api key")
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// Options tune the HTTP transport
type Options struct {
	Timeout time.Duration
	// VerifyTLS enables certificate verification. Gophish ships with a
	// self-signed certificate, so it is off by default.
	VerifyTLS bool
}

// Client is a Gophish API client
type Client struct {
	http    *resty.Client
	baseURL string

	Campaigns *Endpoint[Campaign]
	Groups    *Endpoint[Group]
	Pages     *Endpoint[Page]
	Templates *Endpoint[Template]
	SMTP      *Endpoint[SMTP]
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL, apiKey string, opts Options) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrBadURL, baseURL)
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	baseURL = strings.TrimRight(baseURL, "/")

	hc := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(apiKey).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json").
		SetTLSClientConfig(&tls.Config{InsecureSkipVerify: !opts.VerifyTLS}). // #nosec G402
		OnAfterResponse(func(_ *resty.Client, r *resty.Response) error {
			metrics.ObserveAPIRequest(r.Request.Method, r.StatusCode(), r.Time())
			return nil
		})

	c := &Client{http: hc, baseURL: baseURL}
	c.Campaigns = &Endpoint[Campaign]{c: c, kind: "campaign", path: "/api/campaigns/"}
	c.Groups = &Endpoint[Group]{c: c, kind: "group", path: "/api/groups/"}
	c.Pages = &Endpoint[Page]{c: c, kind: "page", path: "/api/pages/"}
	c.Templates = &Endpoint[Template]{c: c, kind: "template", path: "/api/templates/"}
	c.SMTP = &Endpoint[SMTP]{c: c, kind: "smtp", path: "/api/smtp/"}
	return c, nil
}

// BaseURL returns the server URL without a trailing slash
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request performs an HTTP request to the Gophish API
func (c *Client) request(ctx context.Context, method, path string, body, result any) error {
	req := c.http.R().SetContext(ctx).SetError(&Response{})
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	if resp.IsError() {
		apiErr := &APIError{StatusCode: resp.StatusCode(), Message: http.StatusText(resp.StatusCode())}
		if r, ok := resp.Error().(*Response); ok && r.Message != "" {
			apiErr.Message = r.Message
		}
		return apiErr
	}

	return nil
}

// Connect verifies the server is reachable and accepts the API key
func (c *Client) Connect(ctx context.Context) error {
	if _, err := c.Campaigns.List(ctx); err != nil {
		return fmt.Errorf("error connecting to %s: %w", c.baseURL, err)
	}
	return nil
}

// CompleteCampaign marks a campaign as completed
func (c *Client) CompleteCampaign(ctx context.Context, id int64) (string, error) {
	var resp Response
	path := "/api/campaigns/" + strconv.FormatInt(id, 10) + "/complete"
	if err := c.request(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", fmt.Errorf("complete campaign %d: %s", id, resp.Message)
	}
	return resp.Message, nil
}

// CampaignSummary returns the counters of a campaign
func (c *Client) CampaignSummary(ctx context.Context, id int64) (*Summary, error) {
	var resp Summary
	path := "/api/campaigns/" + strconv.FormatInt(id, 10) + "/summary"
	if err := c.request(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Endpoint exposes the CRUD operations of one object kind
type Endpoint[T Object] struct {
	c    *Client
	kind string
	path string
}

// Kind names the object kind, e.g. "page"
func (e *Endpoint[T]) Kind() string {
	return e.kind
}

// List returns every object of this kind
func (e *Endpoint[T]) List(ctx context.Context) ([]T, error) {
	var out []T
	if err := e.c.request(ctx, http.MethodGet, e.path, nil, &out); err != nil {
		return nil, fmt.Errorf("list %ss: %w", e.kind, err)
	}
	return out, nil
}

// Get returns one object by ID
func (e *Endpoint[T]) Get(ctx context.Context, id int64) (*T, error) {
	var out T
	if err := e.c.request(ctx, http.MethodGet, e.path+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return nil, fmt.Errorf("get %s %d: %w", e.kind, id, err)
	}
	return &out, nil
}

// Create posts obj and returns the stored object with its ID
func (e *Endpoint[T]) Create(ctx context.Context, obj *T) (*T, error) {
	var out T
	if err := e.c.request(ctx, http.MethodPost, e.path, obj, &out); err != nil {
		return nil, fmt.Errorf("create %s %q: %w", e.kind, (*obj).ObjectName(), err)
	}
	metrics.IncObjectsCreated(e.kind)
	return &out, nil
}

// Delete removes one object by ID
func (e *Endpoint[T]) Delete(ctx context.Context, id int64) error {
	if err := e.c.request(ctx, http.MethodDelete, e.path+strconv.FormatInt(id, 10), nil, nil); err != nil {
		return fmt.Errorf("delete %s %d: %w", e.kind, id, err)
	}
	metrics.IncObjectsDeleted(e.kind)
	return nil
}

// Filter returns the objects whose name satisfies keep
func (e *Endpoint[T]) Filter(ctx context.Context, keep func(name string) bool) ([]T, error) {
	all, err := e.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []T
	for _, o := range all {
		if keep(o.ObjectName()) {
			out = append(out, o)
		}
	}
	return out, nil
}

// ByName returns every object carrying exactly name
func (e *Endpoint[T]) ByName(ctx context.Context, name string) ([]T, error) {
	return e.Filter(ctx, func(n string) bool { return n == name })
}
