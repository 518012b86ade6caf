package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/DanielPopoola/pay-connector/internal/config"
	"github.com/DanielPopoola/pay-connector/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "github.com/DanielPopoola/pay-connector/internal/gateway"

const (
	MediaTypeXML  = "application/xml"
	MediaTypeJSON = "application/json"
	MediaTypeForm = "application/x-www-form-urlencoded"
)

// Order is a fully built outbound request.
type Order struct {
	Type      OrderType
	Route     string
	MediaType string
	Payload   []byte
	Header    http.Header
	// ProviderSessionID is pinned from an earlier call for gateways that need
	// session affinity.
	ProviderSessionID string
}

// SessionIdentifier runs while the request is built so a provider can inject
// whatever its gateway uses for session affinity.
type SessionIdentifier func(order Order, req *http.Request)

// NoSession is the SessionIdentifier for gateways without affinity.
func NoSession(Order, *http.Request) {}

type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *RawResponse) Successful() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *RawResponse) MediaType() string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mt
}

// Cookie returns the value of a cookie set by the gateway.
func (r *RawResponse) Cookie(name string) string {
	resp := http.Response{Header: r.Header}
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// Client sends orders for one gateway operation. It knows nothing about charge
// state.
type Client struct {
	gateway    domain.GatewayName
	operation  OrderType
	urls       config.GatewayURLs
	session    SessionIdentifier
	httpClient *http.Client
	metrics    *Metrics
	logger     *slog.Logger
}

// ClientFactory hands out per-operation clients sharing one HTTP transport.
type ClientFactory struct {
	httpClient *http.Client
	metrics    *Metrics
	logger     *slog.Logger
}

func NewClientFactory(cfg config.GatewayClientConfig, metrics *Metrics, logger *slog.Logger) *ClientFactory {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: cfg.ConnectTimeout,
		}).DialContext,
		TLSHandshakeTimeout: cfg.ConnectTimeout,
		MaxIdleConnsPerHost: 10,
	}
	return &ClientFactory{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.ConnectTimeout + cfg.ReadTimeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// NewClientFactoryWithHTTPClient is used by tests to point providers at httptest servers.
func NewClientFactoryWithHTTPClient(httpClient *http.Client, metrics *Metrics, logger *slog.Logger) *ClientFactory {
	return &ClientFactory{httpClient: httpClient, metrics: metrics, logger: logger}
}

func (f *ClientFactory) Create(gateway domain.GatewayName, op OrderType, urls config.GatewayURLs, session SessionIdentifier) *Client {
	if session == nil {
		session = NoSession
	}
	return &Client{
		gateway:    gateway,
		operation:  op,
		urls:       urls,
		session:    session,
		httpClient: f.httpClient,
		metrics:    f.metrics,
		logger:     f.logger,
	}
}

// Send posts the order to the account's endpoint. Any HTTP response, whatever its
// status, is returned as a RawResponse; only transport failures produce an Error.
func (c *Client) Send(ctx context.Context, account domain.GatewayAccount, order Order) (*RawResponse, *Error) {
	baseURL := c.urls.URLFor(account.IsLive())
	if baseURL == "" {
		return nil, GatewayError("NO_ENDPOINT",
			fmt.Sprintf("no %s endpoint configured for %s", account.Type, c.gateway))
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "gateway."+string(c.operation))
	defer span.End()
	span.SetAttributes(
		attribute.String("gateway.name", string(c.gateway)),
		attribute.String("gateway.operation", string(c.operation)),
		attribute.String("gateway.account_type", string(account.Type)),
	)

	url := strings.TrimRight(baseURL, "/") + order.Route
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(order.Payload))
	if err != nil {
		return nil, GatewayError("BAD_REQUEST", fmt.Sprintf("error creating request: %v", err))
	}
	req.Header.Set("Content-Type", order.MediaType)
	for k, values := range order.Header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	c.session(order, req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.observe(string(c.gateway), string(c.operation), string(account.Type), time.Since(start))
	if err != nil {
		c.logger.Error("gateway request failed",
			"gateway", c.gateway,
			"operation", c.operation,
			"url", url,
			"error", err)
		c.metrics.failed(string(c.gateway), string(c.operation), KindTransport)
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport error")
		return nil, TransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.failed(string(c.gateway), string(c.operation), KindTransport)
		span.RecordError(err)
		span.SetStatus(codes.Error, "read error")
		return nil, TransportError(fmt.Errorf("reading response body: %w", err))
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= 300 {
		c.logger.Warn("gateway returned non-success status",
			"gateway", c.gateway,
			"operation", c.operation,
			"status", resp.StatusCode)
		c.metrics.failed(string(c.gateway), string(c.operation), KindGateway)
	}

	return &RawResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// Unmarshal decodes a raw body as XML or JSON depending on mediaType. The raw
// payload is logged when decoding fails.
func Unmarshal[T any](logger *slog.Logger, resp *RawResponse, mediaType string) (T, *Error) {
	var out T
	var err error
	switch mediaType {
	case MediaTypeXML:
		err = xml.Unmarshal(resp.Body, &out)
	case MediaTypeJSON:
		err = json.Unmarshal(resp.Body, &out)
	default:
		err = fmt.Errorf("unsupported media type %q", mediaType)
	}
	if err != nil {
		logger.Error("could not parse gateway response",
			"media_type", mediaType,
			"status", resp.StatusCode,
			"payload", string(resp.Body),
			"error", err)
		return out, ParseError(err)
	}
	return out, nil
}

// Logger exposes the client's logger to providers for response parsing.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// BasicAuth returns a header carrying HTTP basic credentials.
func BasicAuth(username, password string) http.Header {
	token := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return http.Header{"Authorization": {"Basic " + token}}
}
