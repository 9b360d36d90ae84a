package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/albrthuynh/NBAIQ/internal/core/domain"
	"github.com/albrthuynh/NBAIQ/internal/core/port"
	"github.com/albrthuynh/NBAIQ/internal/infra/config"
)

const (
	tracerName      = "github.com/albrthuynh/NBAIQ/internal/infra/gotrue"
	apiPrefix       = "/auth/v1"
	clientInfo      = "nbaiq-go/1.0"
	flowTypePKCE    = "pkce"
	challengeMethod = "s256"
	maxResponseSize = 1 << 20

	defaultTimeout         = 10 * time.Second
	defaultRefreshMargin   = time.Minute
	defaultRefreshInterval = 30 * time.Second
)

// ErrBaseURLMissing indicates the provider URL was not configured.
var ErrBaseURLMissing = errors.New("gotrue: provider url is required")

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client (tests, custom transports).
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithPersistence keeps the session across restarts.
func WithPersistence(persistence port.SessionPersistence) Option {
	return func(c *Client) {
		c.persistence = persistence
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithTracer overrides the tracer used for provider call spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// Client implements port.IdentityProvider over the GoTrue REST API. It holds at most one
// session, mirroring a browser tab.
type Client struct {
	baseURL          string
	anonKey          string
	pkce             bool
	emailRedirectURL string
	refreshMargin    time.Duration
	refreshInterval  time.Duration
	autoRefresh      bool

	http        *http.Client
	persistence port.SessionPersistence
	logger      *zap.Logger
	tracer      trace.Tracer
	now         func() time.Time

	mu           sync.Mutex
	session      *domain.ProviderSession
	loaded       bool
	codeVerifier string

	// refreshMu collapses concurrent refreshes of the same session into one request.
	refreshMu sync.Mutex

	events *broadcaster

	lifecycleMu sync.Mutex
	stop        chan struct{}
	done        chan struct{}
}

var _ port.IdentityProvider = (*Client)(nil)

// New builds a client for the configured provider.
func New(cfg config.ProviderSettings, logger *zap.Logger, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		return nil, ErrBaseURLMissing
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("gotrue: invalid provider url: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	margin := cfg.RefreshMargin
	if margin <= 0 {
		margin = defaultRefreshMargin
	}
	interval := cfg.RefreshInterval
	if interval <= 0 {
		interval = defaultRefreshInterval
	}

	c := &Client{
		baseURL:          base + apiPrefix,
		anonKey:          cfg.AnonKey,
		pkce:             strings.EqualFold(cfg.FlowType, flowTypePKCE),
		emailRedirectURL: cfg.EmailRedirectURL,
		refreshMargin:    margin,
		refreshInterval:  interval,
		autoRefresh:      cfg.AutoRefresh,
		http:             &http.Client{Timeout: timeout},
		logger:           logger,
		tracer:           otel.Tracer(tracerName),
		now:              time.Now,
		events:           newBroadcaster(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Subscribe registers a session-change stream.
func (c *Client) Subscribe() (<-chan domain.ProviderEvent, func()) {
	return c.events.subscribe()
}

func (c *Client) emit(kind domain.ProviderEventKind, session *domain.ProviderSession) {
	event := domain.ProviderEvent{Kind: kind, At: c.now().UTC()}
	if session != nil {
		copy := *session
		event.Session = &copy
	}
	c.logger.Debug("provider event", zap.String("kind", string(kind)))
	c.events.publish(event)
}

// request describes one call to the provider.
type request struct {
	operation   string
	method      string
	path        string
	query       url.Values
	body        any
	accessToken string
}

// do performs the call inside a span. Transport failures and 5xx responses wrap
// port.ErrProviderUnreachable; other non-2xx responses become *port.ProviderError.
func (c *Client) do(ctx context.Context, req request, out any) error {
	ctx, span := c.tracer.Start(ctx, "gotrue."+req.operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(req.method),
			attribute.String("gotrue.path", req.path),
		),
	)
	defer span.End()

	var reader io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("gotrue %s: encode request: %w", req.operation, err)
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := c.baseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("gotrue %s: build request: %w", req.operation, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Client-Info", clientInfo)
	if reader != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.anonKey != "" {
		httpReq.Header.Set("apikey", c.anonKey)
	}
	bearer := req.accessToken
	if bearer == "" {
		bearer = c.anonKey
	}
	if bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		return fmt.Errorf("gotrue %s: %w: %v", req.operation, port.ErrProviderUnreachable, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(semconv.HTTPResponseStatusCode(resp.StatusCode))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read body")
		return fmt.Errorf("gotrue %s: %w: read body: %v", req.operation, port.ErrProviderUnreachable, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, resp.Status)
		return fmt.Errorf("gotrue %s: %w: status %d", req.operation, port.ErrProviderUnreachable, resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, resp.Status)
		return decodeError(resp.StatusCode, data)
	}

	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			span.RecordError(err)
			return fmt.Errorf("gotrue %s: decode response: %w", req.operation, err)
		}
	}

	return nil
}

func decodeError(status int, data []byte) error {
	perr := &port.ProviderError{Status: status}

	var body errorResponse
	if err := json.Unmarshal(data, &body); err == nil {
		perr.Code = body.code()
		perr.Message = body.message()
	}
	if perr.Message == "" {
		perr.Message = http.StatusText(status)
	}
	return perr
}

func isProviderRejection(err error) bool {
	var perr *port.ProviderError
	return errors.As(err, &perr)
}
