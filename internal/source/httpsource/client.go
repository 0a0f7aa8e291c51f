// Package httpsource lists view pages from a DataManager-style HTTP API.
//
// The response envelope is located with gjson paths so servers that nest
// the page differently can be read without a schema change.
package httpsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/roach88/gridview/internal/query"
	"github.com/roach88/gridview/internal/record"
	"github.com/roach88/gridview/internal/remote"
)

// Default envelope paths. "tasks" and "total" are accepted as fallbacks.
const (
	DefaultResultsPath = "results"
	DefaultCountPath   = "count"
)

// maxErrorBody bounds how much of an error response is kept in the message.
const maxErrorBody = 512

// Client is a remote.Source over HTTP.
type Client struct {
	base        *url.URL
	http        *http.Client
	token       string
	resultsPath string
	countPath   string
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client. Default: a client with a 30s timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithToken sends token as a bearer credential.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithResultsPath sets the gjson path of the record array.
func WithResultsPath(path string) Option {
	return func(c *Client) {
		c.resultsPath = path
	}
}

// WithCountPath sets the gjson path of the total count.
func WithCountPath(path string) Option {
	return func(c *Client) {
		c.countPath = path
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		base:        u,
		http:        &http.Client{Timeout: 30 * time.Second},
		resultsPath: DefaultResultsPath,
		countPath:   DefaultCountPath,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// List implements remote.Source.
func (c *Client) List(ctx context.Context, viewID string, params query.ListParams) (remote.PageResult, error) {
	req, err := c.newRequest(ctx, viewID, params)
	if err != nil {
		return remote.PageResult{}, remote.NewTransportError(err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return remote.PageResult{}, ctx.Err()
		}
		return remote.PageResult{}, remote.NewTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return remote.PageResult{}, ctx.Err()
		}
		return remote.PageResult{}, remote.NewTransportError(fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return remote.PageResult{}, remote.NewServerError(resp.StatusCode, errors.New(msg))
	}

	res, err := c.decode(body)
	if err != nil {
		return remote.PageResult{}, remote.NewDecodeError(err)
	}

	c.logger.Debug("page listed",
		"view", viewID,
		"url", req.URL.Path,
		"page", params.Page,
		"rows", len(res.Results),
		"total", res.Count,
	)
	return res, nil
}

func (c *Client) newRequest(ctx context.Context, viewID string, p query.ListParams) (*http.Request, error) {
	u := c.base.JoinPath("api", "dm", "views", viewID, "records")

	q := url.Values{}
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("page_size", strconv.Itoa(p.PageSize))
	if o := p.Ordering(); o != "" {
		q.Set("ordering", o)
	}
	if len(p.IDs) > 0 {
		q.Set("ids", strings.Join(p.IDs, ","))
	}
	if len(p.Include) > 0 {
		q.Set("include", strings.Join(p.Include, ","))
	}
	if !p.Filter.IsZero() {
		f, err := p.Filter.MarshalCanonical()
		if err != nil {
			return nil, fmt.Errorf("encode filters: %w", err)
		}
		q.Set("filters", string(f))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) decode(body []byte) (remote.PageResult, error) {
	if !gjson.ValidBytes(body) {
		return remote.PageResult{}, errors.New("response is not valid JSON")
	}
	doc := gjson.ParseBytes(body)

	list := firstPath(doc, c.resultsPath, "tasks")
	if !list.IsArray() {
		return remote.PageResult{}, fmt.Errorf("no record array at %q", c.resultsPath)
	}

	items := list.Array()
	results := make([]record.Record, 0, len(items))
	for i, item := range items {
		if !item.IsObject() {
			return remote.PageResult{}, fmt.Errorf("record %d is not an object", i)
		}
		rec, err := record.Decode([]byte(item.Raw))
		if err != nil {
			return remote.PageResult{}, fmt.Errorf("record %d: %w", i, err)
		}
		results = append(results, rec)
	}

	count := len(results)
	if n := firstPath(doc, c.countPath, "total"); n.Exists() {
		if n.Type != gjson.Number {
			return remote.PageResult{}, fmt.Errorf("count at %q is not a number", c.countPath)
		}
		count = int(n.Int())
	}
	return remote.PageResult{Results: results, Count: count}, nil
}

func firstPath(doc gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if r := doc.Get(p); r.Exists() {
			return r
		}
	}
	return gjson.Result{}
}
