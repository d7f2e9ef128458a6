// Package rest implements pushbullet.Transport over the Pushbullet HTTP API.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pushbulletnet/pushbullet/internal/provider/resilience"
	"github.com/pushbulletnet/pushbullet/internal/pushbullet"
	"github.com/pushbulletnet/pushbullet/internal/telemetry"
)

const (
	// ProviderName identifies this client in logs, traces and the resilience registry.
	ProviderName = "pushbullet"

	// DefaultBaseURL is the Pushbullet API base URL.
	DefaultBaseURL = "https://api.pushbullet.com/v2"

	tracerName = "github.com/pushbulletnet/pushbullet/internal/pushbullet/rest"
	userAgent  = "pushbullet-go/1.0"

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 64 << 10
)

// ClientConfig holds configuration for the Pushbullet client.
type ClientConfig struct {
	// Token is the Pushbullet access token (required).
	Token string

	// BaseURL is the API base URL (optional, defaults to the Pushbullet API).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Logger for client operations. The zero value logs nothing.
	Logger zerolog.Logger

	// Metrics records per-request metrics (optional).
	Metrics *telemetry.ClientMetrics
}

// Client is a Pushbullet API client bound to a single access token.
type Client struct {
	token      string
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
	metrics    *telemetry.ClientMetrics
	tracer     trace.Tracer
}

var _ pushbullet.Transport = (*Client)(nil)

// NewClient creates a new Pushbullet client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		token:      cfg.Token,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		tracer:     telemetry.Tracer(tracerName),
	}
}

// New creates a client for token with default settings.
func New(token string) *Client {
	return NewClient(ClientConfig{Token: token})
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetUser fetches the account that owns the token.
func (c *Client) GetUser(ctx context.Context) (*pushbullet.User, error) {
	var user pushbullet.User
	if err := c.do(ctx, "get_user", http.MethodGet, "/users/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetDevices lists the account's devices.
func (c *Client) GetDevices(ctx context.Context) ([]pushbullet.Device, error) {
	var resp devicesResponse
	if err := c.do(ctx, "get_devices", http.MethodGet, "/devices", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Devices == nil {
		return []pushbullet.Device{}, nil
	}
	return resp.Devices, nil
}

// GetDevice fetches one device.
func (c *Client) GetDevice(ctx context.Context, iden string) (*pushbullet.Device, error) {
	var device pushbullet.Device
	if err := c.do(ctx, "get_device", http.MethodGet, "/devices/"+url.PathEscape(iden), nil, &device); err != nil {
		return nil, err
	}
	return &device, nil
}

// GetPushes lists the account's pushes, newest first as returned by the server.
func (c *Client) GetPushes(ctx context.Context) ([]pushbullet.Push, error) {
	page, err := c.listPushes(ctx, "get_pushes", pushbullet.ListOptions{})
	if err != nil {
		return nil, err
	}
	return page.Pushes, nil
}

// GetPush fetches one push.
func (c *Client) GetPush(ctx context.Context, iden string) (*pushbullet.Push, error) {
	var push pushbullet.Push
	if err := c.do(ctx, "get_push", http.MethodGet, "/pushes/"+url.PathEscape(iden), nil, &push); err != nil {
		return nil, err
	}
	return &push, nil
}

// ListPushes fetches one page of pushes matching opts.
func (c *Client) ListPushes(ctx context.Context, opts pushbullet.ListOptions) (*pushbullet.PushPage, error) {
	return c.listPushes(ctx, "list_pushes", opts)
}

func (c *Client) listPushes(ctx context.Context, op string, opts pushbullet.ListOptions) (*pushbullet.PushPage, error) {
	path := "/pushes"
	if q := pushesQuery(opts); q != "" {
		path += "?" + q
	}

	var page pushbullet.PushPage
	if err := c.do(ctx, op, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	if page.Pushes == nil {
		page.Pushes = []pushbullet.Push{}
	}
	return &page, nil
}

// GetChats lists the account's chats.
func (c *Client) GetChats(ctx context.Context) ([]pushbullet.Chat, error) {
	var resp chatsResponse
	if err := c.do(ctx, "get_chats", http.MethodGet, "/chats", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Chats == nil {
		return []pushbullet.Chat{}, nil
	}
	return resp.Chats, nil
}

// PushNotification creates a push.
func (c *Client) PushNotification(ctx context.Context, post *pushbullet.NotificationPost) error {
	if post == nil {
		return &pushbullet.ValidationError{Op: "push_notification", Message: "missing push payload"}
	}
	return c.do(ctx, "push_notification", http.MethodPost, "/pushes", post, nil)
}

// CreateDevice registers a device.
func (c *Client) CreateDevice(ctx context.Context, device *pushbullet.NewDevice) error {
	if device == nil {
		return &pushbullet.ValidationError{Op: "create_device", Message: "missing device payload"}
	}
	return c.do(ctx, "create_device", http.MethodPost, "/devices", device, nil)
}

// CreateChat opens a chat with the user registered under email.
func (c *Client) CreateChat(ctx context.Context, email string) error {
	return c.do(ctx, "create_chat", http.MethodPost, "/chats", pushbullet.ChatRequest{Email: email}, nil)
}

// CreateSubscription subscribes to the channel with the given tag.
func (c *Client) CreateSubscription(ctx context.Context, channelTag string) error {
	return c.do(ctx, "create_subscription", http.MethodPost, "/subscriptions",
		pushbullet.SubscriptionRequest{ChannelTag: channelTag}, nil)
}

// do sends one request and decodes a 2xx body into out when out is non-nil.
// Every failure is returned as one of the pushbullet error types.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "pushbullet."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	defer span.End()

	start := time.Now()
	status := 0
	defer func() {
		duration := time.Since(start)
		c.metrics.RecordRequest(ctx, op, status, duration, err)

		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}

		c.logger.Debug().
			Str("op", op).
			Str("method", method).
			Str("path", path).
			Int("status", status).
			Dur("duration", duration).
			Err(err).
			Msg("pushbullet request")
	}()

	var body io.Reader = http.NoBody
	if in != nil {
		payload, mErr := json.Marshal(in)
		if mErr != nil {
			return &pushbullet.ServiceError{Op: op, Err: fmt.Errorf("encoding request: %w", mErr)}
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &pushbullet.ServiceError{Op: op, Err: fmt.Errorf("creating request: %w", err)}
	}
	c.setHeaders(req, in != nil)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &pushbullet.ServiceError{Op: op, Err: fmt.Errorf("executing request: %w", err)}
	}
	defer resp.Body.Close()

	status = resp.StatusCode
	if status < 200 || status >= 300 {
		return decodeError(op, resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &pushbullet.ServiceError{Op: op, StatusCode: status, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request, hasBody bool) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
}

// decodeError reads a Pushbullet error body and classifies the status code.
func decodeError(op string, resp *http.Response) error {
	var body errorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = json.Unmarshal(raw, &body)

	message := body.Error.Message
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	return pushbullet.ErrorFromStatus(op, resp.StatusCode, body.Error.Type, message)
}

func pushesQuery(opts pushbullet.ListOptions) string {
	q := url.Values{}
	if opts.ActiveOnly {
		q.Set("active", "true")
	}
	if opts.ModifiedAfter > 0 {
		q.Set("modified_after", strconv.FormatFloat(opts.ModifiedAfter, 'f', -1, 64))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Cursor != "" {
		q.Set("cursor", opts.Cursor)
	}
	return q.Encode()
}

// Pushbullet API response structures.

type devicesResponse struct {
	Devices []pushbullet.Device `json:"devices"`
}

type chatsResponse struct {
	Chats []pushbullet.Chat `json:"chats"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
		Cat     string `json:"cat"`
	} `json:"error"`
}
