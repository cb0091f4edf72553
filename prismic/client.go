package prismic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// Client talks to a Prismic-compatible content API.
type Client struct {
	endpoint    *url.URL
	accessToken string
	httpClient  *http.Client
	observer    Observer
}

// Observer is notified about every request the client makes.
type Observer interface {
	ObserveRequest(operation string, duration time.Duration, err error)
}

type Option func(c *Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithObserver(observer Observer) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

func NewClient(endpoint, accessToken string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse endpoint: %w", err)
	}

	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("endpoint %q must be an absolute url", endpoint)
	}

	c := &Client{
		endpoint:    u,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		observer:    nil,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Ref returns the master ref of the repository.
func (c *Client) Ref(ctx context.Context) (string, error) {
	u := *c.endpoint
	c.withAccessToken(&u)

	var api API

	err := c.getJSON(ctx, "ref", u.String(), &api)
	if err != nil {
		return "", fmt.Errorf("failed to get api: %w", err)
	}

	for _, ref := range api.Refs {
		if ref.IsMasterRef {
			return ref.Ref, nil
		}
	}

	return "", ErrNoMasterRef
}

type QueryOptions struct {
	Fetch    []string
	PageSize int
	Page     int
	OrderBy  string
}

// Query searches documents matching all predicates.
func (c *Client) Query(ctx context.Context, predicates []string, opts QueryOptions) (*SearchResponse, error) {
	ref, err := c.Ref(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get master ref: %w", err)
	}

	u := c.endpoint.JoinPath("documents", "search")

	q := u.Query()
	q.Set("ref", ref)

	if len(predicates) > 0 {
		q.Set("q", "["+strings.Join(predicates, "")+"]")
	}

	if len(opts.Fetch) > 0 {
		q.Set("fetch", strings.Join(opts.Fetch, ","))
	}

	if opts.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(opts.PageSize))
	}

	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}

	if opts.OrderBy != "" {
		q.Set("orderings", "["+opts.OrderBy+"]")
	}

	u.RawQuery = q.Encode()
	c.withAccessToken(u)

	var res SearchResponse

	err = c.getJSON(ctx, "query", u.String(), &res)
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}

	stripCursors(&res)

	return &res, nil
}

// GetByUID returns the document of the given type with the given uid.
func (c *Client) GetByUID(ctx context.Context, documentType, uid string) (*Document, error) {
	res, err := c.Query(ctx, []string{At("my."+documentType+".uid", uid)}, QueryOptions{PageSize: 1})
	if err != nil {
		return nil, err
	}

	if len(res.Results) == 0 {
		return nil, DocumentNotFoundError{Type: documentType, UID: uid}
	}

	return &res.Results[0], nil
}

// FetchPage follows a next_page cursor returned by a previous search.
// Cursors carry no access token, the client adds its own.
func (c *Client) FetchPage(ctx context.Context, pageURL string) (*SearchResponse, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page url: %w", err)
	}

	if !c.ownsURL(u) {
		return nil, ForeignURLError{URL: redactAccessToken(pageURL)}
	}

	c.withAccessToken(u)

	var res SearchResponse

	err = c.getJSON(ctx, "fetch_page", u.String(), &res)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}

	stripCursors(&res)

	return &res, nil
}

// stripCursors removes access tokens from next and prev page urls, they end up in public html.
func stripCursors(res *SearchResponse) {
	res.NextPage = stripAccessToken(res.NextPage)
	res.PrevPage = stripAccessToken(res.PrevPage)
}

func stripAccessToken(cursor *string) *string {
	if cursor == nil {
		return nil
	}

	u, err := url.Parse(*cursor)
	if err != nil {
		return cursor
	}

	q := u.Query()
	if !q.Has("access_token") {
		return cursor
	}

	q.Del("access_token")
	u.RawQuery = q.Encode()

	stripped := u.String()

	return &stripped
}

func (c *Client) ownsURL(u *url.URL) bool {
	return strings.EqualFold(u.Scheme, c.endpoint.Scheme) && strings.EqualFold(u.Host, c.endpoint.Host)
}

func (c *Client) withAccessToken(u *url.URL) {
	if c.accessToken == "" {
		return
	}

	q := u.Query()
	q.Set("access_token", c.accessToken)
	u.RawQuery = q.Encode()
}

func (c *Client) getJSON(ctx context.Context, operation, rawURL string, v any) (err error) {
	start := time.Now()

	if c.observer != nil {
		defer func() {
			c.observer.ObserveRequest(operation, time.Since(start), err)
		}()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = redactAccessToken(urlErr.URL)
		}

		return fmt.Errorf("failed to do request: %w", err)
	}

	defer func() {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			slog.ErrorContext(ctx, "failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)

		return StatusError{StatusCode: resp.StatusCode, URL: redactAccessToken(rawURL)}
	}

	err = json.NewDecoder(resp.Body).Decode(v)
	if err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func redactAccessToken(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	q := u.Query()
	if q.Has("access_token") {
		q.Set("access_token", "redacted")
		u.RawQuery = q.Encode()
	}

	return u.String()
}
