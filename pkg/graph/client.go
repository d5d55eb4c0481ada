package graph

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultEndpoint = "https://graph.facebook.com/v2.1/"
	DefaultTimeout  = 15 * time.Second
)

var (
	ErrAccessTokenRequired = errors.New("write operations require an access token")
	ErrRequest             = errors.New("graph request failed")
	ErrResponse            = errors.New("invalid graph response")
)

// Client talks to the Graph API. It holds no mutable state after New and is
// safe for concurrent use.
type Client struct {
	accessToken string
	endpoint    string
	timeout     time.Duration
	httpClient  *http.Client
}

type Option func(*Client)

// WithAccessToken authenticates every request with token.
func WithAccessToken(token string) Option {
	return func(c *Client) { c.accessToken = token }
}

// WithEndpoint overrides the API base URL. A trailing slash is added when
// missing.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if !strings.HasSuffix(endpoint, "/") {
			endpoint += "/"
		}
		c.endpoint = endpoint
	}
}

// WithTimeout sets the default per-request timeout. Zero disables it.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.timeout = timeout }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

func New(opts ...Option) *Client {
	c := &Client{
		endpoint:   DefaultEndpoint,
		timeout:    DefaultTimeout,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) AccessToken() string { return c.accessToken }
func (c *Client) Endpoint() string    { return c.endpoint }

// File is an upload part for multipart requests.
type File struct {
	Name   string
	Reader io.Reader
}

// RequestOptions describes a single Graph API call. A nil Body with no Files
// sends the request without a body.
type RequestOptions struct {
	Method  string
	Args    url.Values
	Body    url.Values
	Files   map[string]File
	Timeout time.Duration
}

/*
Request fetches path from the Graph API.

Args become the query string. When Body or Files are set, they are sent as a
form (multipart when files are present). The client's access token is added to
the body if there is one, otherwise to the query.

The call is bounded by ctx and by the per-request timeout (opts.Timeout, or
the client default). API-reported failures are returned as *APIError.
*/
func (c *Client) Request(
	ctx context.Context,
	path string,
	opts RequestOptions,
) (
	Response,
	error,
) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	if method != http.MethodGet && c.accessToken == "" {
		return nil, ErrAccessTokenRequired
	}

	args, body := c.prepareArgsAndBody(opts.Args, opts.Body, len(opts.Files) > 0)

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = c.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := c.newRequest(ctx, method, path, args, body, opts.Files)
	if err != nil {
		return nil, err
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrRequest, method, path, err)
	}
	defer res.Body.Close()

	return parseResponse(res)
}

func (c *Client) prepareArgsAndBody(
	args url.Values,
	body url.Values,
	hasFiles bool,
) (
	url.Values,
	url.Values,
) {
	args = cloneValues(args)
	if body != nil || hasFiles {
		body = cloneValues(body)
	}

	if c.accessToken != "" {
		if body != nil {
			body.Set("access_token", c.accessToken)
		} else {
			args.Set("access_token", c.accessToken)
		}
	}
	return args, body
}

func (c *Client) newRequest(
	ctx context.Context,
	method string,
	path string,
	args url.Values,
	body url.Values,
	files map[string]File,
) (
	*http.Request,
	error,
) {
	u, err := url.Parse(c.endpoint + strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: bad path %q: %v", ErrRequest, path, err)
	}
	if len(args) > 0 {
		u.RawQuery = args.Encode()
	}

	var reader io.Reader
	var contentType string
	switch {
	case len(files) > 0:
		buf, ct, err := encodeMultipart(body, files)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRequest, err)
		}
		reader, contentType = buf, ct
	case body != nil:
		reader = strings.NewReader(body.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

func encodeMultipart(
	fields url.Values,
	files map[string]File,
) (
	*bytes.Buffer,
	string,
	error,
) {
	buf := new(bytes.Buffer)
	w := multipart.NewWriter(buf)

	for key, values := range fields {
		for _, v := range values {
			if err := w.WriteField(key, v); err != nil {
				return nil, "", fmt.Errorf("failed to write field '%s': %v", key, err)
			}
		}
	}
	for field, file := range files {
		name := file.Name
		if name == "" {
			name = field
		}
		part, err := w.CreateFormFile(field, name)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create file part '%s': %v", field, err)
		}
		if _, err := io.Copy(part, file.Reader); err != nil {
			return nil, "", fmt.Errorf("failed to copy file part '%s': %v", field, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

func mergeValues(dst url.Values, src map[string]string) url.Values {
	if dst == nil {
		dst = url.Values{}
	}
	for k, v := range src {
		dst.Set(k, v)
	}
	return dst
}
