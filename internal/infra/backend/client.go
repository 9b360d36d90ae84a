package backend

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
	"github.com/albrthuynh/NBAIQ/internal/repository"
)

const (
	tracerName      = "github.com/albrthuynh/NBAIQ/internal/infra/backend"
	usersPath       = "/api/users"
	defaultBaseURL  = "http://localhost:5000"
	defaultTimeout  = 10 * time.Second
	maxResponseSize = 1 << 20
)

var (
	// ErrUnavailable reports a transport failure or 5xx from the backing store.
	ErrUnavailable = errors.New("backend: unavailable")
)

// StatusError is a non-2xx response other than 404.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend: status %d: %s", e.Status, e.Message)
}

// Client implements port.ProfileStore against the profile backing-store API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
	tracer  trace.Tracer
}

var _ port.ProfileStore = (*Client)(nil)

// New builds a client; empty settings fall back to the local development backend.
func New(cfg config.BackendSettings, logger *zap.Logger) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(client *http.Client) *Client {
	if client != nil {
		c.http = client
	}
	return c
}

type profilePayload struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id,omitempty"`
	Email     string     `json:"email"`
	FullName  string     `json:"full_name"`
	AvatarURL *string    `json:"avatar_url"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type createProfileRequest struct {
	UserID    string  `json:"user_id"`
	Email     string  `json:"email"`
	FullName  string  `json:"full_name"`
	AvatarURL *string `json:"avatar_url"`
}

type createProfileResponse struct {
	Message string         `json:"message"`
	User    profilePayload `json:"user"`
}

type errorPayload struct {
	Error string `json:"error"`
}

func (p profilePayload) toDomain() *domain.Profile {
	id := p.ID
	if id == "" {
		id = p.UserID
	}
	profile := &domain.Profile{
		ID:        id,
		Email:     p.Email,
		FullName:  p.FullName,
		AvatarURL: p.AvatarURL,
	}
	if p.CreatedAt != nil {
		profile.CreatedAt = p.CreatedAt.UTC()
	}
	return profile
}

// GetProfile fetches the profile of userID. A missing record yields repository.ErrNotFound.
func (c *Client) GetProfile(ctx context.Context, accessToken, userID string) (*domain.Profile, error) {
	var payload profilePayload
	if err := c.do(ctx, "get_profile", http.MethodGet, usersPath+"/"+url.PathEscape(userID), accessToken, nil, &payload); err != nil {
		return nil, err
	}
	return payload.toDomain(), nil
}

// CreateProfile creates the profile. An already existing record is returned as is.
func (c *Client) CreateProfile(ctx context.Context, accessToken string, profile domain.Profile) (*domain.Profile, error) {
	body := createProfileRequest{
		UserID:    profile.ID,
		Email:     profile.Email,
		FullName:  profile.FullName,
		AvatarURL: profile.AvatarURL,
	}

	var resp createProfileResponse
	if err := c.do(ctx, "create_profile", http.MethodPost, usersPath, accessToken, body, &resp); err != nil {
		return nil, err
	}

	c.logger.Debug("profile create acknowledged", zap.String("user_id", profile.ID), zap.String("message", resp.Message))
	created := resp.User.toDomain()
	if created.ID == "" {
		created.ID = profile.ID
	}
	return created, nil
}

func (c *Client) do(ctx context.Context, operation, method, path, accessToken string, body, out any) error {
	ctx, span := c.tracer.Start(ctx, "backend."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(method),
			attribute.String("backend.path", path),
		),
	)
	defer span.End()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend %s: encode request: %w", operation, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("backend %s: build request: %w", operation, err)
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		return fmt.Errorf("backend %s: %w: %v", operation, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(semconv.HTTPResponseStatusCode(resp.StatusCode))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("backend %s: %w: read body: %v", operation, ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return repository.ErrNotFound
	case resp.StatusCode >= http.StatusInternalServerError:
		span.SetStatus(codes.Error, resp.Status)
		return fmt.Errorf("backend %s: %w: status %d", operation, ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		span.SetStatus(codes.Error, resp.Status)
		statusErr := &StatusError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var payload errorPayload
		if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
			statusErr.Message = payload.Error
		}
		return statusErr
	}

	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("backend %s: decode response: %w", operation, err)
		}
	}
	return nil
}
