package gateway

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
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"socialvibe/internal/domain"
	"socialvibe/internal/infra/metrics"
)

const component = "gateway"

// Client вызывает HTTP API бэкенда. Сессионная cookie хранится в jar и
// прикладывается ко всем запросам автоматически.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	log        zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			cp := *client
			c.httpClient = &cp
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.log = logger
	}
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// envelope оборачивает ответы verify и random.
type envelope[T any] struct {
	Data T `json:"data"`
}

// New создаёт клиента. prefix добавляется к пути baseURL, по умолчанию "/api/".
func New(baseURL, prefix string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "http"
	}
	if prefix == "" {
		prefix = "/api/"
	}
	parsed.Path = strings.TrimSuffix(parsed.Path, "/") + "/" + strings.Trim(prefix, "/") + "/"
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	client := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: 10 * time.Second, Jar: jar},
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient.Jar == nil {
		client.httpClient.Jar = jar
	}
	return client, nil
}

// BaseURL возвращает адрес бэкенда без API префикса.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	u.Path = ""
	return &u
}

// Jar возвращает cookie jar с сессией, чтобы push-канал прошёл ту же аутентификацию.
func (c *Client) Jar() http.CookieJar {
	return c.httpClient.Jar
}

// Cookies возвращает cookie сессии, чтобы сохранить их между запусками.
func (c *Client) Cookies() []*http.Cookie {
	return c.httpClient.Jar.Cookies(c.baseURL)
}

// SetCookies восстанавливает сохранённые cookie для всего хоста бэкенда.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	root := c.BaseURL()
	root.Path = "/"
	restored := make([]*http.Cookie, 0, len(cookies))
	for _, ck := range cookies {
		cp := *ck
		cp.Path = "/"
		restored = append(restored, &cp)
	}
	c.httpClient.Jar.SetCookies(root, restored)
}

func (c *Client) get(ctx context.Context, op, endpoint string, out any) error {
	return c.call(ctx, op, http.MethodGet, endpoint, nil, out)
}

func (c *Client) post(ctx context.Context, op, endpoint string, body, out any) error {
	return c.call(ctx, op, http.MethodPost, endpoint, body, out)
}

func (c *Client) call(ctx context.Context, op, method, endpoint string, body, out any) error {
	start := time.Now()
	req, err := c.newRequest(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	err = c.do(req, op, out)
	metrics.ObserveNetworkRequest(component, op, routeOf(endpoint), start, err)
	if err != nil {
		c.log.Debug().Err(err).Str("op", op).Str("method", method).Msg("gateway: request failed")
	}
	return err
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body any) (*http.Request, error) {
	ref, err := url.Parse(strings.TrimPrefix(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	resolved := c.baseURL.ResolveReference(ref)
	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		buf = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, resolved.String(), buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

func (c *Client) do(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.RemoteError{Operation: op, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr apiError
		data, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if readErr == nil && len(data) > 0 {
			_ = json.Unmarshal(data, &apiErr)
		}
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error
		}
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return mapAPIError(op, resp.StatusCode, msg)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.RemoteError{Operation: op, Status: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", err)}
	}
	return nil
}

func mapAPIError(op string, status int, msg string) error {
	remote := &domain.RemoteError{Operation: op, Status: status, Message: msg}
	switch {
	case op == opVerify && (status == http.StatusUnauthorized || status == http.StatusForbidden):
		remote.Kind = domain.ErrUnauthenticated
	case op == opLogin && (status == http.StatusUnauthorized || status == http.StatusBadRequest || status == http.StatusNotFound):
		remote.Kind = domain.ErrInvalidCredentials
	case op == opSignup && status == http.StatusConflict:
		remote.Kind = domain.ErrDuplicateAccount
	case status == http.StatusUnauthorized:
		remote.Kind = domain.ErrUnauthenticated
	}
	return remote
}

// routeOf убирает идентификаторы и query из пути, чтобы метка метрики была стабильной.
func routeOf(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "/")
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		endpoint = endpoint[:i]
	}
	switch {
	case strings.HasPrefix(endpoint, "post/celebrity/") && endpoint != "post/celebrity/followed":
		return "post/celebrity/{id}"
	case strings.HasPrefix(endpoint, "post/celebrity"):
		return endpoint
	case strings.HasPrefix(endpoint, "post/") && endpoint != "post/data":
		return "post/{id}"
	case strings.HasPrefix(endpoint, "user/celebrity/follow/"):
		return "user/celebrity/follow/{id}"
	case strings.HasPrefix(endpoint, "user/celebrity/unfollow/"):
		return "user/celebrity/unfollow/{id}"
	case strings.HasPrefix(endpoint, "user/") && !isUserCollection(endpoint):
		return "user/{id}"
	}
	return endpoint
}

func isUserCollection(endpoint string) bool {
	switch endpoint {
	case "user/username", "user/followings", "user/followers":
		return true
	}
	return false
}

var _ domain.Gateway = (*Client)(nil)
