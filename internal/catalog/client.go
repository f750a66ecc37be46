package catalog

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

	"github.com/fjod/go_cart/fakestore/internal/domain"
	"github.com/fjod/go_cart/fakestore/internal/metrics"
	"github.com/fjod/go_cart/fakestore/pkg/circuitbreaker"
	"github.com/fjod/go_cart/fakestore/pkg/logger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultBaseURL = "https://fakestoreapi.com"
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20
)

// Client talks to the fakestore products API. Calls are never retried.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *circuitbreaker.Breaker
	metrics *metrics.Metrics
	log     *logger.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithBreaker(b *circuitbreaker.Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = NewBreaker(c.log, 5, 30*time.Second)
	}
	return c
}

// NewBreaker builds the breaker the client uses by default. NotFound and
// shape errors describe the request, not upstream health, and do not count.
func NewBreaker(l *logger.Logger, failures uint32, openTimeout time.Duration) *circuitbreaker.Breaker {
	return circuitbreaker.New(circuitbreaker.Options{
		Name:                "catalog",
		ConsecutiveFailures: failures,
		OpenTimeout:         openTimeout,
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrNotFound) ||
				errors.Is(err, ErrInvalidResponseShape) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name, from, to string) {
			if l != nil {
				l.Warn(context.Background(), fmt.Sprintf("circuit %s: %s -> %s", name, from, to), nil)
			}
		},
	})
}

func (c *Client) FetchAll(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if err := c.do(ctx, "fetch_all", http.MethodGet, "/products", nil, &products, false); err != nil {
		return nil, err
	}
	if products == nil {
		return nil, &Error{Op: "fetch_all", Kind: KindInvalidResponseShape, Message: "expected a list of products"}
	}
	for _, p := range products {
		if p.ID <= 0 {
			return nil, &Error{Op: "fetch_all", Kind: KindInvalidResponseShape, Message: "product without id"}
		}
	}
	return products, nil
}

// FetchOne returns NotFound both for a 404 and for an empty 200 body, which is
// how fakestore answers unknown ids.
func (c *Client) FetchOne(ctx context.Context, id int64) (domain.Product, error) {
	var p domain.Product
	if err := c.do(ctx, "fetch_one", http.MethodGet, productPath(id), nil, &p, true); err != nil {
		return domain.Product{}, err
	}
	if p.ID <= 0 {
		return domain.Product{}, &Error{Op: "fetch_one", Kind: KindInvalidResponseShape, Message: "product without id"}
	}
	return p, nil
}

func (c *Client) Create(ctx context.Context, draft domain.ProductDraft) (domain.Product, error) {
	var p domain.Product
	if err := c.do(ctx, "create", http.MethodPost, "/products", draft, &p, false); err != nil {
		return domain.Product{}, err
	}
	if p.ID <= 0 {
		return domain.Product{}, &Error{Op: "create", Kind: KindInvalidResponseShape, Message: "created product without id"}
	}
	return p, nil
}

func (c *Client) Update(ctx context.Context, id int64, draft domain.ProductDraft) (domain.Product, error) {
	var p domain.Product
	if err := c.do(ctx, "update", http.MethodPut, productPath(id), draft, &p, true); err != nil {
		return domain.Product{}, err
	}
	// some upstreams echo the draft without the id
	if p.ID == 0 {
		p.ID = id
	}
	return p, nil
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, "delete", http.MethodDelete, productPath(id), nil, nil, false)
}

func productPath(id int64) string {
	return fmt.Sprintf("/products/%d", id)
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any, emptyIsNotFound bool) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("catalog %s: encode request: %w", op, err)
		}
		payload = data
	}

	start := time.Now()
	err := c.breaker.Do(func() error {
		return c.roundTrip(ctx, op, method, path, payload, out, emptyIsNotFound)
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		err = &Error{Op: op, Kind: KindNetworkUnreachable, Message: "catalog temporarily unavailable", Err: err}
	}

	outcome := "ok"
	if err != nil {
		outcome = KindOf(err).String()
		c.log.Warn(ctx, fmt.Sprintf("catalog %s %s failed", method, path), err)
	}
	c.metrics.ObserveCatalog(op, outcome, time.Since(start))
	return err
}

func (c *Client) roundTrip(ctx context.Context, op, method, path string, payload []byte, out any, emptyIsNotFound bool) error {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return &Error{Op: op, Kind: KindNetworkUnreachable, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Op: op, Kind: KindNetworkUnreachable, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &Error{Op: op, Kind: KindNetworkUnreachable, StatusCode: resp.StatusCode, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &Error{Op: op, Kind: KindNotFound, StatusCode: resp.StatusCode, Message: upstreamMessage(data)}
	case resp.StatusCode >= 400:
		return &Error{Op: op, Kind: KindServerError, StatusCode: resp.StatusCode, Message: upstreamMessage(data)}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &Error{Op: op, Kind: KindInvalidResponseShape, StatusCode: resp.StatusCode, Message: "unexpected status"}
	}

	if out == nil {
		return nil
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		if emptyIsNotFound {
			return &Error{Op: op, Kind: KindNotFound, StatusCode: resp.StatusCode}
		}
		return &Error{Op: op, Kind: KindInvalidResponseShape, StatusCode: resp.StatusCode, Message: "empty body"}
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return &Error{Op: op, Kind: KindInvalidResponseShape, StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}

// upstreamMessage pulls a human readable message out of an error body: the
// "message" field of a JSON object, or a short plain-text body.
func upstreamMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		return body.Message
	}
	text := strings.TrimSpace(string(data))
	if len(text) > 200 || strings.HasPrefix(text, "<") {
		return ""
	}
	return text
}
