// Package adoption is the REST client of the adoption backend. It implements
// the remote ports of the pets, terms and users contexts.
package adoption

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/oapi-codegen/runtime"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Apurer/pet-adoption-engine/internal/contract"
	petdomain "github.com/Apurer/pet-adoption-engine/internal/domains/pets/domain"
	sharederrors "github.com/Apurer/pet-adoption-engine/internal/shared/errors"
	"github.com/Apurer/pet-adoption-engine/internal/shared/remoteerr"
)

const (
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 3
	maxBodyBytes      = 1 << 20
)

// TokenSource supplies the bearer token of the signed-in user.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// StaticToken is a fixed bearer token for non-interactive processes.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", errors.New("no API token configured")
	}
	return string(t), nil
}

// Client calls the adoption backend.
type Client struct {
	baseURL    string
	http       *http.Client
	tokens     TokenSource
	logger     *slog.Logger
	maxRetries uint64
	retryWait  time.Duration

	refMu sync.RWMutex
	refs  map[refKey]petdomain.ReferenceItem
}

type refKey struct {
	kind petdomain.ReferenceKind
	id   int64
}

type options struct {
	transport  http.RoundTripper
	timeout    time.Duration
	tokens     TokenSource
	logger     *slog.Logger
	maxRetries uint64
	retryWait  time.Duration
}

type Option func(*options)

// WithTransport sets the base round tripper; it is always wrapped with otelhttp.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithTokenSource attaches the bearer token of the device session to every call.
func WithTokenSource(tokens TokenSource) Option {
	return func(o *options) { o.tokens = tokens }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRetry bounds the retries of idempotent calls that failed transiently.
func WithRetry(maxRetries uint64, initialWait time.Duration) Option {
	return func(o *options) {
		o.maxRetries = maxRetries
		if initialWait > 0 {
			o.retryWait = initialWait
		}
	}
}

// New builds a client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("adoption API base URL is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid adoption API base URL: %w", err)
	}
	o := options{
		transport:  http.DefaultTransport,
		timeout:    DefaultTimeout,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxRetries: DefaultMaxRetries,
		retryWait:  200 * time.Millisecond,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.transport == nil {
		o.transport = http.DefaultTransport
	}
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout:   o.timeout,
			Transport: otelhttp.NewTransport(o.transport),
		},
		tokens:     o.tokens,
		logger:     o.logger,
		maxRetries: o.maxRetries,
		retryWait:  o.retryWait,
		refs:       map[refKey]petdomain.ReferenceItem{},
	}, nil
}

// call describes one backend request.
type call struct {
	op     string
	method string
	path   string
	query  url.Values
	header http.Header
	body   any
	out    any
	// retry marks calls that are safe to repeat after a transient failure.
	retry bool
}

func (c *Client) do(ctx context.Context, req call) error {
	operation := func() error {
		err := c.once(ctx, req)
		if err == nil {
			return nil
		}
		if req.retry && remoteerr.KindOf(err) == remoteerr.KindTransient {
			c.logger.LogAttrs(ctx, slog.LevelDebug, "retrying backend call",
				slog.String("op", req.op), slog.String("error", err.Error()))
			return err
		}
		return backoff.Permanent(err)
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryWait
	policy.MaxElapsedTime = 0
	var b backoff.BackOff = policy
	if !req.retry {
		b = &backoff.StopBackOff{}
	} else {
		b = backoff.WithMaxRetries(b, c.maxRetries)
	}
	err := backoff.Retry(operation, backoff.WithContext(b, ctx))
	if err == nil {
		return nil
	}
	var classified *remoteerr.Error
	if errors.As(err, &classified) {
		return err
	}
	return remoteerr.FromTransport(req.op, err)
}

func (c *Client) once(ctx context.Context, rc call) error {
	target := c.baseURL + rc.path
	if len(rc.query) > 0 {
		target += "?" + rc.query.Encode()
	}
	var body io.Reader
	if rc.body != nil {
		raw, err := json.Marshal(rc.body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", rc.op, err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, rc.method, target, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", rc.op, err)
	}
	req.Header.Set("Accept", contract.ContentTypeJSON+", "+contract.ContentTypeProblem)
	if rc.body != nil {
		req.Header.Set("Content-Type", contract.ContentTypeJSON)
	}
	for k, vs := range rc.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return &remoteerr.Error{Op: rc.op, Kind: remoteerr.KindSession, Err: err}
		}
		req.Header.Set(contract.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return remoteerr.FromTransport(rc.op, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return remoteerr.FromTransport(rc.op, err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		message := problemMessage(raw)
		classified := remoteerr.Classify(rc.op, resp.StatusCode, message)
		if message != "" && !remoteerr.Matched(message) {
			c.logger.LogAttrs(ctx, slog.LevelWarn, "unrecognized backend message",
				slog.String("op", rc.op), slog.Int("http.status", resp.StatusCode),
				slog.String("message", message), slog.String("kind", classified.Kind.String()))
		}
		return classified
	}
	if rc.out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, rc.out); err != nil {
		return fmt.Errorf("%s: decode response: %w", rc.op, err)
	}
	return nil
}

// problemMessage extracts the backend message from a problem document, or
// returns the trimmed body when it is not one.
func problemMessage(raw []byte) string {
	var problem sharederrors.ProblemDetail
	if err := json.Unmarshal(raw, &problem); err == nil {
		if msg := problem.Message(); msg != "" {
			return msg
		}
	}
	return strings.TrimSpace(string(raw))
}

func pathParam(name string, value any) (string, error) {
	return runtime.StyleParamWithLocation("simple", false, name, runtime.ParamLocationPath, value)
}

func addQuery(q url.Values, name string, value any) error {
	styled, err := runtime.StyleParamWithLocation("form", true, name, runtime.ParamLocationQuery, value)
	if err != nil {
		return err
	}
	parsed, err := url.ParseQuery(styled)
	if err != nil {
		return err
	}
	for k, vs := range parsed {
		q[k] = append(q[k], vs...)
	}
	return nil
}

// path renders a route template, replacing each {name} with its styled value.
func path(template string, params ...any) (string, error) {
	if len(params)%2 != 0 {
		return "", errors.New("path params must be name/value pairs")
	}
	out := template
	for i := 0; i < len(params); i += 2 {
		name, _ := params[i].(string)
		styled, err := pathParam(name, params[i+1])
		if err != nil {
			return "", fmt.Errorf("style %s: %w", name, err)
		}
		out = strings.ReplaceAll(out, "{"+name+"}", styled)
	}
	return out, nil
}
