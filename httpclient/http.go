// Package httpclient is the transport core of the Axiom client. It builds
// authenticated requests, sends them and turns responses into decoded values
// or typed errors.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/j-sauer/axiom-go/model"
)

const (
	APIVersion = "v1"

	// OrgIDHeader carries the organization id of API and personal tokens.
	OrgIDHeader = "X-Axiom-Org-Id"

	tracerName = "github.com/j-sauer/axiom-go/httpclient"
)

var (
	InvalidRequest  = -6 // used for requests that could not be built.
	Interrupt       = -5 // used for canceled requests.
	URLParseError   = -4 // used for invalid url.
	ConnectionError = -3 // used for network errors.
	Timeout         = -2 // used for timeout errors.
	Unknown         = -1 // used for unknown errors.
)

type HTTPClient interface {
	Post(ctx context.Context, path string, requestBody, responseData any) error
	Put(ctx context.Context, path string, requestBody, responseData any) error
	Get(ctx context.Context, path string, responseData any) error
	Delete(ctx context.Context, path string) error
	// Do sends an already built request and decodes the response into
	// responseData, if it is not nil.
	Do(req *http.Request, responseData any) error
	NewRequestWithContext(ctx context.Context, method, path string, body io.Reader) (*http.Request, error)
}

type Option struct {
	BaseURL     string
	AccessToken string
	OrgID       string
	// Client is the transport handle. A new client with Timeout is used if nil.
	Client         *http.Client
	Timeout        time.Duration
	Logger         *zap.Logger
	TracerProvider trace.TracerProvider
	Metrics        *MetricsCollector
}

type httpClient struct {
	client      *http.Client
	accessToken string
	orgID       string
	url         string
	logger      *zap.Logger
	tracer      trace.Tracer
	metrics     *MetricsCollector
}

func NewHTTPClient(option Option) HTTPClient {
	client := option.Client
	if client == nil {
		client = &http.Client{
			Timeout: option.Timeout,
		}
	}
	logger := option.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tp := option.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &httpClient{
		client:      client,
		url:         strings.TrimSuffix(option.BaseURL, "/") + "/api/" + APIVersion,
		accessToken: option.AccessToken,
		orgID:       option.OrgID,
		logger:      logger,
		tracer:      tp.Tracer(tracerName),
		metrics:     option.Metrics,
	}
}

func (c *httpClient) NewRequestWithContext(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url+path, body)
	if err != nil {
		return nil, &model.APIError{
			Message:  err.Error(),
			Original: err,
			Status:   InvalidRequest,
		}
	}
	c.setClientHeaders(req)
	return req, nil
}

func (c *httpClient) setClientHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("User-Agent", model.UserAgent())
	// Ingest tokens are bound to one organization, the header is omitted for them.
	if c.orgID != "" && !model.IsIngestToken(c.accessToken) {
		req.Header.Set(OrgIDHeader, c.orgID)
	}
}

func (c *httpClient) Get(ctx context.Context, path string, responseData any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, responseData)
}

func (c *httpClient) Post(ctx context.Context, path string, requestBody, responseData any) error {
	return c.doJSON(ctx, http.MethodPost, path, requestBody, responseData)
}

func (c *httpClient) Put(ctx context.Context, path string, requestBody, responseData any) error {
	return c.doJSON(ctx, http.MethodPut, path, requestBody, responseData)
}

func (c *httpClient) Delete(ctx context.Context, path string) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

func (c *httpClient) doJSON(ctx context.Context, method, path string, requestBody, responseData any) error {
	// Marshal the request body to JSON
	reqBody := io.Reader(http.NoBody)
	if requestBody != nil {
		jsonData, err := json.Marshal(requestBody)
		if err != nil {
			return &model.APIError{
				Message:  err.Error(),
				Original: err,
				Status:   InvalidRequest,
			}
		}
		reqBody = bytes.NewReader(jsonData)
	}
	req, err := c.NewRequestWithContext(ctx, method, path, reqBody)
	if err != nil {
		return err
	}
	if requestBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return c.Do(req, responseData)
}

func (c *httpClient) Do(req *http.Request, responseData any) error {
	ctx, span := c.tracer.Start(req.Context(), "axiom "+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.URL.Path),
		))
	defer span.End()
	req = req.WithContext(ctx)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.observeRequest(req.Method, 0, time.Since(start))
		apiErr := handleHTTPError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, apiErr.Message)
		c.logger.Debug("request failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Error(err))
		return apiErr
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("failed to close response body", zap.Error(err))
		}
	}()

	elapsed := time.Since(start)
	c.metrics.observeRequest(req.Method, resp.StatusCode, elapsed)
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	c.logger.Debug("request completed",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", elapsed))

	if err := checkResponse(resp); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if responseData == nil {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck //best effort
		return nil
	}
	if err := decodeResponse(resp, responseData); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

type errorEnvelope struct {
	Message string `json:"message"`
}

// checkResponse returns an APIError for responses with status >= 400.
//
// The message is, in order of preference: the "message" of a JSON error
// envelope, the raw body of a JSON response that is not an envelope, the
// reason phrase of the status line.
func checkResponse(resp *http.Response) error {
	if resp.StatusCode < http.StatusBadRequest {
		return nil
	}
	reason := reasonPhrase(resp)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &model.APIError{
			Message:  reason,
			Original: err,
			Status:   resp.StatusCode,
		}
	}
	if len(body) == 0 || !isJSON(resp.Header.Get("Content-Type")) {
		return &model.APIError{
			Message: reason,
			Status:  resp.StatusCode,
		}
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Message == "" {
		return &model.APIError{
			Message:  string(body),
			Original: err,
			Status:   resp.StatusCode,
		}
	}
	return &model.APIError{
		Message: envelope.Message,
		Status:  resp.StatusCode,
	}
}

// decodeResponse unmarshals a successful response into responseData. A body
// that is empty, null or not decodable yields a DecodeError.
func decodeResponse(resp *http.Response, responseData any) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.NewDecodeError(resp.StatusCode, err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return model.NewDecodeError(resp.StatusCode, nil)
	}
	if err := json.Unmarshal(body, responseData); err != nil {
		return model.NewDecodeError(resp.StatusCode, err)
	}
	return nil
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json"
}

// reasonPhrase returns the reason phrase of the status line, e.g. "Not Found".
func reasonPhrase(resp *http.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return reason
}

func handleHTTPError(err error) *model.APIError {
	var netErr net.Error
	var opErr *net.OpError
	var urlErr *url.Error

	switch {
	case errors.Is(err, context.Canceled):
		return &model.APIError{
			Message:  "request canceled",
			Original: err,
			Status:   Interrupt,
		}
	case errors.Is(err, context.DeadlineExceeded):
		return &model.APIError{
			Message:  "request timed out",
			Original: err,
			Status:   Timeout,
		}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &model.APIError{
			Message:  "request timed out",
			Original: err,
			Status:   Timeout,
		}
	case errors.As(err, &opErr):
		return &model.APIError{
			Message:  "network error",
			Original: err,
			Status:   ConnectionError,
		}
	case errors.As(err, &urlErr):
		return &model.APIError{
			Message:  "invalid url",
			Original: err,
			Status:   URLParseError,
		}
	default:
		return &model.APIError{
			Message:  err.Error(),
			Original: err,
			Status:   Unknown,
		}
	}
}
